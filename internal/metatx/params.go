package metatx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
)

// Params carries operation parameters. The codec treats them as opaque
// beyond requiring canonical encodability: strings, bools, integers,
// nested objects and arrays. Floats and nulls are rejected at build
// time, not at signing time.
type Params map[string]any

// NormalizeParams returns a deep copy of raw in normal form: all
// integer values become int64 when they fit and *big.Int otherwise,
// nested maps and slices become plain map[string]any / []any.
//
// Normal form makes serialization round-trips exact: an entry read
// back from the pending store compares equal to the one written.
func NormalizeParams(raw map[string]any) (Params, error) {
	if raw == nil {
		return Params{}, nil
	}
	out := make(Params, len(raw))
	for k, v := range raw {
		nv, err := normalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", k, err)
		}
		out[k] = nv
	}
	return out, nil
}

func normalizeValue(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is not a valid parameter value")
	case string:
		return val, nil
	case bool:
		return val, nil
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	case uint64:
		if val <= uint64(1<<63-1) {
			return int64(val), nil
		}
		return new(big.Int).SetUint64(val), nil
	case *big.Int:
		if val == nil {
			return nil, fmt.Errorf("nil *big.Int is not a valid parameter value")
		}
		if val.IsInt64() {
			return val.Int64(), nil
		}
		return new(big.Int).Set(val), nil
	case json.Number:
		return normalizeNumber(val)
	case float32, float64:
		return nil, fmt.Errorf("floats are not valid parameter values: %v", val)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			nv, err := normalizeValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = nv
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			nv, err := normalizeValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			out[k] = nv
		}
		return out, nil
	case Params:
		return normalizeValue(map[string]any(val))
	default:
		return nil, fmt.Errorf("unsupported parameter type %T", v)
	}
}

// normalizeNumber parses a JSON number without going through float64,
// so values beyond 2^53 keep full precision.
func normalizeNumber(n json.Number) (any, error) {
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	b, ok := new(big.Int).SetString(n.String(), 10)
	if !ok {
		return nil, fmt.Errorf("non-integer number %q", n.String())
	}
	return b, nil
}

// UnmarshalJSON decodes params using json.Number so integer precision
// survives the trip through the pending store.
func (p *Params) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	normalized, err := NormalizeParams(raw)
	if err != nil {
		return err
	}
	*p = normalized
	return nil
}
