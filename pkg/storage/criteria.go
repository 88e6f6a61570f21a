package storage

import (
	"encoding/json"
	"fmt"
)

// decodeFields flattens a record's top-level JSON fields to strings so
// MatchField can compare against them regardless of the underlying Go
// type (string, number, bool) the aggregate used.
func decodeFields(data []byte) (map[string]string, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		fields[k] = fmt.Sprint(v)
	}
	return fields, nil
}
