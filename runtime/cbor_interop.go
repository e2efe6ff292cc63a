package tyson

import (
	"math/big"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// GoValue decodes an encoded value into plain Go values: nil, bool, uint64,
// int64 (*big.Int for negatives below math.MinInt64), float64, string,
// []any and map[string]any. Object entry order is not preserved.
func GoValue(s Slice) (any, error) {
	return goValue(s, 0)
}

func goValue(s Slice, depth int) (any, error) {
	if depth > recursionLimit {
		return nil, ErrMaxDepthExceeded
	}
	switch s.Type() {
	case NullType:
		return nil, nil
	case BoolType:
		return s.GetBool()
	case UintType:
		return s.GetUInt()
	case IntType:
		n, err := s.Number()
		if err != nil {
			return nil, err
		}
		if v, ok := n.CoerceInt(); ok {
			return v, nil
		}
		m, _ := n.NegMagnitude()
		z := new(big.Int).SetUint64(m)
		return z.Neg(z), nil
	case DoubleType:
		return s.GetDouble()
	case StringType:
		return s.GetString()
	case ArrayType:
		n, err := s.Len()
		if err != nil {
			return nil, err
		}
		out := make([]any, n)
		for i := 0; i < n; i++ {
			item, err := s.At(i)
			if err != nil {
				return nil, err
			}
			out[i], err = goValue(item, depth+1)
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	case ObjectType:
		n, err := s.Len()
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, n)
		for i := 0; i < n; i++ {
			key, err := s.KeyAt(i)
			if err != nil {
				return nil, err
			}
			ks, err := key.GetString()
			if err != nil {
				return nil, err
			}
			val, err := s.ValueAt(i)
			if err != nil {
				return nil, err
			}
			out[ks], err = goValue(val, depth+1)
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	default:
		return nil, badType(InvalidType, s.Type())
	}
}

// ToCBOR converts the next encoded value into CBOR and returns the CBOR
// bytes and the remainder of the input.
func ToCBOR(b []byte) ([]byte, []byte, error) {
	s, rest, err := ReadValue(b)
	if err != nil {
		return nil, b, err
	}
	v, err := GoValue(s)
	if err != nil {
		return nil, b, err
	}
	out, err := cbor.Marshal(v)
	if err != nil {
		return nil, b, err
	}
	return out, rest, nil
}

// cborDecMode decodes CBOR maps into map[string]any so the result can be
// fed back through the Builder.
var cborDecMode, _ = cbor.DecOptions{
	DefaultMapType: reflect.TypeOf(map[string]any(nil)),
}.DecMode()

// FromCBOR converts one CBOR item into the tyson form using the given
// options.
func FromCBOR(c []byte, opts Options) ([]byte, error) {
	var v any
	if err := cborDecMode.Unmarshal(c, &v); err != nil {
		return nil, err
	}
	b := NewBuilder()
	b.SetOptions(opts)
	if err := b.AddValue(v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
