package predictor

import (
	"fmt"
	"math"
	"reflect"

	tf "github.com/wamuir/graft/tensorflow"
)

// columnValue converts a column of JSON-decoded values into a Go value that
// can back a batch tensor of the given dtype. Scalar-per-instance columns
// become vectors, list-per-instance columns become matrices. Deeper nesting
// is not supported.
func columnValue(dtype tf.DataType, col []any) (any, error) {
	if len(col) == 0 {
		return nil, fmt.Errorf("empty column")
	}

	_, nested := col[0].([]any)

	switch dtype {
	case tf.Float:
		return convertColumn(col, nested, asFloat32)
	case tf.Double:
		return convertColumn(col, nested, asFloat64)
	case tf.Int32:
		return convertColumn(col, nested, asInt32)
	case tf.Int64:
		return convertColumn(col, nested, asInt64)
	case tf.String:
		return convertColumn(col, nested, asString)
	case tf.Bool:
		return convertColumn(col, nested, asBool)
	default:
		return nil, fmt.Errorf("unsupported input dtype %v", dtype)
	}
}

func convertColumn[T any](col []any, nested bool, conv func(any) (T, error)) (any, error) {
	if !nested {
		out := make([]T, len(col))
		for i, v := range col {
			c, err := conv(v)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}

	out := make([][]T, len(col))
	for i, v := range col {
		list, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("mixed scalar and list values in a column")
		}
		row := make([]T, len(list))
		for j, e := range list {
			c, err := conv(e)
			if err != nil {
				return nil, err
			}
			row[j] = c
		}
		out[i] = row
	}
	return out, nil
}

func asFloat32(v any) (float32, error) {
	switch v := v.(type) {
	case float64:
		return float32(v), nil
	case float32:
		return v, nil
	case int:
		return float32(v), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float32", v)
	}
}

func asFloat64(v any) (float64, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", v)
	}
}

func asInt32(v any) (int32, error) {
	switch v := v.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("cannot convert non-integral number %v to int32", v)
		}
		return int32(v), nil
	case int:
		return int32(v), nil
	case int32:
		return v, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int32", v)
	}
}

func asInt64(v any) (int64, error) {
	switch v := v.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("cannot convert non-integral number %v to int64", v)
		}
		return int64(v), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int64", v)
	}
}

func asString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("cannot convert %T to string", v)
	}
	return s, nil
}

func asBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("cannot convert %T to bool", v)
	}
	return b, nil
}

// tensorRows splits a fetched tensor value along the batch dimension,
// returning one plain serializable value per instance.
func tensorRows(v any) ([]any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("expected a batched tensor, got %T", v)
	}
	rows := make([]any, rv.Len())
	for i := range rows {
		rows[i] = rv.Index(i).Interface()
	}
	return rows, nil
}
