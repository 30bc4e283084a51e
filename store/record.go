package store

import (
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"

	"github.com/hrygo/cartsync/store/sanitize"
)

// Drivers hand back loosely typed values: int64 from SQL, float64 from
// JSON, strings from JSON text columns. The helpers below accept all of
// them.

func recordString(r Record, key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return toString(v)
	}
}

func toString(v any) string {
	switch n := v.(type) {
	case int64:
		return strconv.FormatInt(n, 10)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case json.Number:
		return n.String()
	default:
		data, _ := json.Marshal(v)
		return string(data)
	}
}

func recordInt64(r Record, key string) (int64, error) {
	switch v := r[key].(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case float64:
		if v != float64(int64(v)) {
			return 0, errors.Errorf("field %s is not an integer: %v", key, v)
		}
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, errors.Wrapf(err, "field %s", key)
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		return n, errors.Wrapf(err, "field %s", key)
	default:
		return 0, errors.Errorf("field %s has unexpected type %T", key, v)
	}
}

func recordInt32(r Record, key string) (int32, error) {
	n, err := recordInt64(r, key)
	return int32(n), err
}

func recordBool(r Record, key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

// relatedProduct decodes the product relation of r, or nil when it is
// absent, error-marked or malformed.
func relatedProduct(r Record, key string) *Product {
	return sanitize.Resolve[Product](r, key).Ptr()
}
