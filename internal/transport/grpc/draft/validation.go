package draft

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"
)

func stringField(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

func validateDraftRequest(req *structpb.Struct) (string, error) {
	if req == nil {
		return "", fmt.Errorf("request is required")
	}
	id := stringField(req, "draft_id")
	if id == "" {
		return "", fmt.Errorf("draft_id is required")
	}
	return id, nil
}

type updateFieldRequest struct {
	DraftID string
	Field   string
	Value   any
}

func validateUpdateField(req *structpb.Struct) (updateFieldRequest, error) {
	id, err := validateDraftRequest(req)
	if err != nil {
		return updateFieldRequest{}, err
	}
	field := stringField(req, "field")
	if field == "" {
		return updateFieldRequest{}, fmt.Errorf("field is required")
	}
	// An explicit null clears the field; a missing key is a client bug.
	v, ok := req.GetFields()["value"]
	if !ok {
		return updateFieldRequest{}, fmt.Errorf("value is required")
	}
	return updateFieldRequest{DraftID: id, Field: field, Value: v.AsInterface()}, nil
}

func validateGoToStep(req *structpb.Struct) (string, int, error) {
	id, err := validateDraftRequest(req)
	if err != nil {
		return "", 0, err
	}
	v, ok := req.GetFields()["step"]
	if !ok {
		return "", 0, fmt.Errorf("step is required")
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return "", 0, fmt.Errorf("step must be a number")
	}
	if n.NumberValue < 0 || n.NumberValue != math.Trunc(n.NumberValue) {
		return "", 0, fmt.Errorf("step must be a non-negative integer")
	}
	return id, int(n.NumberValue), nil
}
