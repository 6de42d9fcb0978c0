package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var errEmptyPayload = errors.New("empty payload")

// decodeList normalises a resource payload into a slice. The canonical
// payload for a list resource is a bare array and for a record resource a
// bare object; deployments that wrap the array under the resource name
// ({"speakers": [...]}) or send a lone object are accepted here so nothing
// past the loader has to care.
func decodeList[T any](resource string, body []byte) ([]T, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errEmptyPayload
	}

	switch body[0] {
	case '[':
		var out []T
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("decode %s array: %w", resource, err)
		}
		return out, nil
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return nil, fmt.Errorf("decode %s object: %w", resource, err)
		}
		if inner, ok := wrapper[resource]; ok && len(wrapper) == 1 {
			return decodeList[T](resource, inner)
		}
		var one T
		if err := json.Unmarshal(body, &one); err != nil {
			return nil, fmt.Errorf("decode %s object: %w", resource, err)
		}
		return []T{one}, nil
	case 'n':
		if string(body) == "null" {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("decode %s: unexpected payload starting with %q", resource, body[0])
}
