// Package journal keeps a local copy of draft edits the server has not
// acknowledged yet, so an editor can recover them after a crash.
package journal

import (
	"encoding/json"
	"fmt"
)

func encodeValue(field string, v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("journal: encode field %q: %w", field, err)
	}
	return string(b), nil
}

func decodeValue(field, raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("journal: decode field %q: %w", field, err)
	}
	return v, nil
}
