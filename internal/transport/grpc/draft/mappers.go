package draft

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/murkotick/draft-autosave-service/internal/app/draft/autosave"
	"github.com/murkotick/draft-autosave-service/internal/app/draft/dto"
)

// toValue converts a field value to a protobuf Value. Values structpb cannot
// take directly (typed slices, structs) go through their JSON form.
func toValue(v any) (*structpb.Value, error) {
	if pv, err := structpb.NewValue(v); err == nil {
		return pv, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return structpb.NewValue(generic)
}

func fieldsStruct(fields map[string]any) (*structpb.Struct, error) {
	out := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(fields))}
	for k, v := range fields {
		pv, err := toValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		out.Fields[k] = pv
	}
	return out, nil
}

func stringList(in []string) *structpb.Value {
	values := make([]*structpb.Value, 0, len(in))
	for _, s := range in {
		values = append(values, structpb.NewStringValue(s))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: values})
}

func millis(d time.Duration) *structpb.Value {
	return structpb.NewNumberValue(float64(d) / float64(time.Millisecond))
}

func metricsStruct(m autosave.Metrics) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"total_saves":     structpb.NewNumberValue(float64(m.TotalSaves)),
		"batched_saves":   structpb.NewNumberValue(float64(m.BatchedSaves)),
		"failed_saves":    structpb.NewNumberValue(float64(m.FailedSaves)),
		"last_save_ms":    millis(m.LastSaveDuration),
		"average_save_ms": millis(m.AverageSaveDuration),
	}}
}

// mapStatusReply renders the editing state of m.
func mapStatusReply(m *autosave.Manager) (*structpb.Struct, error) {
	doc, _ := m.Document()
	fields, err := fieldsStruct(doc.Fields)
	if err != nil {
		return nil, err
	}

	lastError := ""
	if err := m.LastError(); err != nil {
		lastError = err.Error()
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"draft_id":     structpb.NewStringValue(m.DraftID()),
		"status":       structpb.NewStringValue(string(m.Status())),
		"retry_count":  structpb.NewNumberValue(float64(m.RetryCount())),
		"last_error":   structpb.NewStringValue(lastError),
		"dirty_fields": stringList(m.DirtyFields()),
		"saving":       structpb.NewBoolValue(m.Saving()),
		"current_step": structpb.NewNumberValue(float64(doc.CurrentStep)),
		"fields":       structpb.NewStructValue(fields),
		"metrics":      structpb.NewStructValue(metricsStruct(m.Metrics())),
	}}, nil
}

func mapStatusEvent(ev autosave.StatusEvent) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"draft_id":    structpb.NewStringValue(ev.DraftID),
		"status":      structpb.NewStringValue(string(ev.Status)),
		"retry_count": structpb.NewNumberValue(float64(ev.RetryCount)),
		"last_error":  structpb.NewStringValue(ev.LastError),
		"at":          structpb.NewStringValue(ev.At.UTC().Format(time.RFC3339Nano)),
	}}
}

func mapDraftReply(d *dto.DraftDTO) (*structpb.Struct, error) {
	fields, err := fieldsStruct(d.Fields)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{Fields: map[string]*structpb.Value{
		"draft_id": structpb.NewStringValue(d.DraftID),
		"fields":   structpb.NewStructValue(fields),
	}}
	if d.UpdatedAt != nil {
		out.Fields["updated_at"] = structpb.NewStringValue(*d.UpdatedAt)
	}
	return out, nil
}
