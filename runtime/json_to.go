package tyson

import (
	"encoding/json"
	"math"
	"strconv"
)

// ToJSONBytes converts the next encoded value into JSON text and returns
// the JSON bytes and the remainder of the input. Doubles that have no JSON
// representation (NaN, infinities) yield ErrNonFiniteNumber.
func ToJSONBytes(b []byte) ([]byte, []byte, error) {
	bb := GetByteBuffer()
	defer PutByteBuffer(bb)
	rest, err := toJSON(bb, b, 0)
	if err != nil {
		return nil, b, err
	}
	out := make([]byte, bb.Len())
	copy(out, bb.Bytes())
	return out, rest, nil
}

func toJSON(buf *ByteBuffer, b []byte, depth int) ([]byte, error) {
	if depth > recursionLimit {
		return b, ErrMaxDepthExceeded
	}
	s, rest, err := ReadValue(b)
	if err != nil {
		return b, err
	}

	switch s.Type() {
	case NullType:
		buf.WriteString("null")
	case BoolType:
		v, err := s.GetBool()
		if err != nil {
			return b, err
		}
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case UintType, IntType:
		n, err := s.Number()
		if err != nil {
			return b, err
		}
		buf.WriteString(n.String())
	case DoubleType:
		f, err := s.GetDouble()
		if err != nil {
			return b, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return b, ErrNonFiniteNumber
		}
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case StringType:
		v, err := s.GetStringUnsafe()
		if err != nil {
			return b, err
		}
		js, err := json.Marshal(v)
		if err != nil {
			return b, err
		}
		buf.Write(js)
	case ArrayType:
		n, err := s.Len()
		if err != nil {
			return b, err
		}
		buf.WriteString("[")
		for i := 0; i < n; i++ {
			if i > 0 {
				buf.WriteString(",")
			}
			item, err := s.At(i)
			if err != nil {
				return b, err
			}
			if _, err := toJSON(buf, item, depth+1); err != nil {
				return b, err
			}
		}
		buf.WriteString("]")
	case ObjectType:
		n, err := s.Len()
		if err != nil {
			return b, err
		}
		buf.WriteString("{")
		for i := 0; i < n; i++ {
			if i > 0 {
				buf.WriteString(",")
			}
			key, err := s.KeyAt(i)
			if err != nil {
				return b, err
			}
			ks, err := key.GetStringUnsafe()
			if err != nil {
				return b, err
			}
			kj, err := json.Marshal(ks)
			if err != nil {
				return b, err
			}
			buf.Write(kj)
			buf.WriteString(":")
			val, err := s.ValueAt(i)
			if err != nil {
				return b, err
			}
			if _, err := toJSON(buf, val, depth+1); err != nil {
				return b, err
			}
		}
		buf.WriteString("}")
	default:
		return b, badType(InvalidType, s.Type())
	}
	return rest, nil
}
