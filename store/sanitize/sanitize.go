// Package sanitize normalizes joined relations of raw backing-store records.
//
// A nested relation comes back in one of three shapes: the joined object,
// nil when the relation is absent, or an object carrying an "error" field
// when the join could not be resolved (broken foreign key, permission
// denial). Decode turns the last shape, and anything that is not an object,
// into nil so that business code only ever sees an object or nil.
package sanitize

import (
	"encoding/json"
)

// ErrorMarkerKey is the field that flags an unresolved relation.
const ErrorMarkerKey = "error"

// Decode returns a shallow copy of record where every relation listed in
// relationKeys is either a valid object or nil. Other fields are copied as-is.
func Decode(record map[string]any, relationKeys ...string) map[string]any {
	if record == nil {
		return nil
	}

	out := make(map[string]any, len(record))
	for k, v := range record {
		out[k] = v
	}
	for _, key := range relationKeys {
		v, ok := out[key]
		if !ok {
			continue
		}
		if obj, resolved := asObject(v); resolved {
			out[key] = obj
		} else {
			out[key] = nil
		}
	}
	return out
}

// DecodeAll applies Decode to every record.
func DecodeAll(records []map[string]any, relationKeys ...string) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, r := range records {
		out = append(out, Decode(r, relationKeys...))
	}
	return out
}

// IsUnresolved reports whether v would be sanitized to nil.
func IsUnresolved(v any) bool {
	_, resolved := asObject(v)
	return !resolved
}

// asObject normalizes JSON text produced by SQL drivers and checks the shape.
func asObject(v any) (map[string]any, bool) {
	switch raw := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		if _, marked := raw[ErrorMarkerKey]; marked {
			return nil, false
		}
		return raw, true
	case json.RawMessage:
		return parseObject(raw)
	case []byte:
		return parseObject(raw)
	case string:
		return parseObject([]byte(raw))
	default:
		return nil, false
	}
}

func parseObject(data []byte) (map[string]any, bool) {
	if len(data) == 0 {
		return nil, false
	}
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, false
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, false
	}
	return asObject(obj)
}
