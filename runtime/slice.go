package tyson

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Slice is a zero-copy reader over one encoded tyson value. The underlying
// bytes must stay alive and unmodified while the Slice is in use. Accessors
// perform bounds checks against the slice length; run ValidateValue first
// when the bytes come from an untrusted source.
type Slice []byte

// ReadValue interprets the start of b as one encoded value and returns it
// together with the remaining bytes. Use it to walk multi-value buffers.
func ReadValue(b []byte) (Slice, []byte, error) {
	s := Slice(b)
	sz, err := s.ByteSize()
	if err != nil {
		return nil, b, err
	}
	if sz > len(b) {
		return nil, b, ErrShortBytes
	}
	return s[:sz], b[sz:], nil
}

// Type returns the value type.
func (s Slice) Type() Type { return NextType(s) }

// IsNull reports whether the value is null.
func (s Slice) IsNull() bool { return s.Type() == NullType }

// ByteSize returns the total encoded size of the value, header included.
func (s Slice) ByteSize() (int, error) {
	if len(s) == 0 {
		return 0, ErrShortBytes
	}
	t := s[0]
	switch {
	case t == tagNull || t == tagFalse || t == tagTrue:
		return 1, nil
	case t >= tagSmallUInt && t <= 0x3f:
		return 1, nil
	case t == tagDouble:
		return 9, nil
	case t >= tagNegInt && t <= 0x27:
		return 1 + int(t-tagNegInt) + 1, nil
	case t >= tagUInt && t <= 0x2f:
		return 1 + int(t-tagUInt) + 1, nil
	case t >= tagStringShort && t <= 0xbf:
		return 1 + int(t-tagStringShort), nil
	case t == tagStringLong:
		if len(s) < 9 {
			return 0, ErrShortBytes
		}
		l := binary.LittleEndian.Uint64(s[1:9])
		if l > uint64(math.MaxInt64-9) {
			return 0, ErrShortBytes
		}
		return 9 + int(l), nil
	}
	class, ok := containerClass(t)
	if !ok {
		return 0, badType(InvalidType, tagType(t))
	}
	if class == 0 {
		if len(s) < 2 {
			return 0, ErrShortBytes
		}
		return 1 + int(s[1]), nil
	}
	if len(s) < 9 {
		return 0, ErrShortBytes
	}
	l := binary.LittleEndian.Uint64(s[1:9])
	if l > uint64(math.MaxInt64-1) {
		return 0, ErrShortBytes
	}
	return 1 + int(l), nil
}

// containerClass returns the size class for a container tag.
func containerClass(t byte) (int, bool) {
	switch {
	case t >= tagArrayFixed && t <= 0x05:
		return int(t - tagArrayFixed), true
	case t >= tagArrayIndexed && t <= 0x09:
		return int(t - tagArrayIndexed), true
	case t >= tagObjectSorted && t <= 0x0e && t != tagStringLong:
		return int(t - tagObjectSorted), true
	case t >= tagObjectUnsort && t <= 0x12:
		return int(t - tagObjectUnsort), true
	default:
		return 0, false
	}
}

// containerMeta describes the layout of a container value.
type containerMeta struct {
	total      int
	count      int
	itemsStart int
	idxStart   int // == total for fixed arrays and empty containers
	idxW       int
	fixed      bool
	sorted     bool
}

func (s Slice) containerMeta() (containerMeta, error) {
	t := s.Type()
	if t != ArrayType && t != ObjectType {
		return containerMeta{}, badType(ArrayType, t)
	}
	class, _ := containerClass(s[0])
	total, err := s.ByteSize()
	if err != nil {
		return containerMeta{}, err
	}
	if total > len(s) {
		return containerMeta{}, ErrShortBytes
	}
	m := containerMeta{
		total:  total,
		fixed:  s[0] >= tagArrayFixed && s[0] <= 0x05,
		sorted: s[0] >= tagObjectSorted && s[0] <= 0x0e && s[0] != tagStringLong,
	}
	if total == 2 {
		// empty container: [tag, 0x01]
		m.itemsStart = total
		m.idxStart = total
		m.idxW = 1
		return m, nil
	}
	lenW, cntW := containerWidths(class)
	if total < 1+lenW+cntW {
		return containerMeta{}, ErrShortBytes
	}
	m.count = int(readLE(s[1+lenW : 1+lenW+cntW]))
	m.itemsStart = 1 + lenW + cntW
	m.idxW = cntW
	if m.fixed {
		m.idxStart = total
	} else {
		idxSize := m.count * m.idxW
		if idxSize > total-m.itemsStart {
			return containerMeta{}, ErrShortBytes
		}
		m.idxStart = total - idxSize
	}
	return m, nil
}

func readLE(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// Len returns the number of items of an array or the number of entries of
// an object.
func (s Slice) Len() (int, error) {
	m, err := s.containerMeta()
	if err != nil {
		return 0, err
	}
	return m.count, nil
}

// childAt resolves the start offset of the i-th recorded child.
func (m *containerMeta) childAt(s Slice, i int) (int, error) {
	if i < 0 || i >= m.count {
		return 0, ErrShortBytes
	}
	if m.fixed {
		itemSize := (m.idxStart - m.itemsStart) / m.count
		return m.itemsStart + i*itemSize, nil
	}
	at := m.idxStart + i*m.idxW
	off := int(readLE(s[at : at+m.idxW]))
	if off <= 0 || off >= m.total {
		return 0, ErrShortBytes
	}
	return off, nil
}

// At returns the i-th item of an array.
func (s Slice) At(i int) (Slice, error) {
	if s.Type() != ArrayType {
		return nil, badType(ArrayType, s.Type())
	}
	m, err := s.containerMeta()
	if err != nil {
		return nil, err
	}
	off, err := m.childAt(s, i)
	if err != nil {
		return nil, err
	}
	return s[off:m.total], nil
}

// KeyAt returns the key of the i-th entry of an object, in index order.
// For sorted objects that is byte-lexicographic key order.
func (s Slice) KeyAt(i int) (Slice, error) {
	m, err := s.objectMeta()
	if err != nil {
		return nil, err
	}
	off, err := m.childAt(s, i)
	if err != nil {
		return nil, err
	}
	return s[off:m.total], nil
}

// ValueAt returns the value of the i-th entry of an object, in index order.
func (s Slice) ValueAt(i int) (Slice, error) {
	m, err := s.objectMeta()
	if err != nil {
		return nil, err
	}
	off, err := m.childAt(s, i)
	if err != nil {
		return nil, err
	}
	key := s[off:m.total]
	ksz, err := key.ByteSize()
	if err != nil {
		return nil, err
	}
	if off+ksz >= m.total {
		return nil, ErrShortBytes
	}
	return s[off+ksz : m.total], nil
}

func (s Slice) objectMeta() (containerMeta, error) {
	if s.Type() != ObjectType {
		return containerMeta{}, badType(ObjectType, s.Type())
	}
	return s.containerMeta()
}

// Get looks up an object entry by key. Sorted objects are binary-searched;
// unsorted objects are scanned linearly. A missing key returns (nil, nil).
func (s Slice) Get(key string) (Slice, error) {
	m, err := s.objectMeta()
	if err != nil {
		return nil, err
	}
	want := []byte(key)
	if m.sorted && m.count > 1 {
		lo, hi := 0, m.count
		for lo < hi {
			mid := (lo + hi) / 2
			off, err := m.childAt(s, mid)
			if err != nil {
				return nil, err
			}
			k, err := Slice(s[off:m.total]).GetStringBytes()
			if err != nil {
				return nil, err
			}
			switch bytes.Compare(k, want) {
			case 0:
				return s.ValueAt(mid)
			case -1:
				lo = mid + 1
			default:
				hi = mid
			}
		}
		return nil, nil
	}
	for i := 0; i < m.count; i++ {
		off, err := m.childAt(s, i)
		if err != nil {
			return nil, err
		}
		k, err := Slice(s[off:m.total]).GetStringBytes()
		if err != nil {
			return nil, err
		}
		if bytes.Equal(k, want) {
			return s.ValueAt(i)
		}
	}
	return nil, nil
}

// GetBool returns the boolean value.
func (s Slice) GetBool() (bool, error) {
	if s.Type() != BoolType {
		return false, badType(BoolType, s.Type())
	}
	return s[0] == tagTrue, nil
}

// GetStringBytes returns the string payload without copying.
func (s Slice) GetStringBytes() ([]byte, error) {
	if len(s) == 0 {
		return nil, ErrShortBytes
	}
	t := s[0]
	switch {
	case t >= tagStringShort && t <= 0xbf:
		l := int(t - tagStringShort)
		if len(s) < 1+l {
			return nil, ErrShortBytes
		}
		return s[1 : 1+l], nil
	case t == tagStringLong:
		sz, err := s.ByteSize()
		if err != nil {
			return nil, err
		}
		if len(s) < sz {
			return nil, ErrShortBytes
		}
		return s[9:sz], nil
	default:
		return nil, badType(StringType, s.Type())
	}
}

// GetString returns the string value as a freshly allocated string.
func (s Slice) GetString() (string, error) {
	b, err := s.GetStringBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// GetStringUnsafe returns the string value sharing memory with the slice.
// Only use it when the underlying buffer is immutable for the lifetime of
// the string.
func (s Slice) GetStringUnsafe() (string, error) {
	b, err := s.GetStringBytes()
	if err != nil {
		return "", err
	}
	return UnsafeString(b), nil
}

// GetUInt returns the value of an unsigned integer.
func (s Slice) GetUInt() (uint64, error) {
	n, err := s.Number()
	if err != nil {
		return 0, err
	}
	u, ok := n.Uint()
	if !ok {
		if m, neg := n.NegMagnitude(); neg {
			return 0, IntUnderflow{Magnitude: m}
		}
		return 0, badType(UintType, s.Type())
	}
	return u, nil
}

// GetInt returns the value of an integer, signed or unsigned, when it fits
// an int64.
func (s Slice) GetInt() (int64, error) {
	n, err := s.Number()
	if err != nil {
		return 0, err
	}
	if u, ok := n.Uint(); ok {
		if u > math.MaxInt64 {
			return 0, UintOverflow{Value: u}
		}
		return int64(u), nil
	}
	if m, neg := n.NegMagnitude(); neg {
		if m > 1<<63 {
			return 0, IntUnderflow{Magnitude: m}
		}
		return -int64(m-1) - 1, nil
	}
	return 0, badType(IntType, s.Type())
}

// GetDouble returns the value of a double.
func (s Slice) GetDouble() (float64, error) {
	if s.Type() != DoubleType {
		return 0, badType(DoubleType, s.Type())
	}
	if len(s) < 9 {
		return 0, ErrShortBytes
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(s[1:9])), nil
}

// Number returns a numeric view of an integer or double value.
func (s Slice) Number() (Number, error) {
	var n Number
	if len(s) == 0 {
		return n, ErrShortBytes
	}
	t := s[0]
	switch {
	case t >= tagSmallUInt && t < tagSmallNeg:
		n.AsUint(uint64(t - tagSmallUInt))
	case t >= tagSmallNeg && t <= 0x3f:
		n.AsNegMagnitude(uint64(0x40 - t))
	case t >= tagUInt && t <= 0x2f:
		w := int(t-tagUInt) + 1
		if len(s) < 1+w {
			return n, ErrShortBytes
		}
		n.AsUint(readLE(s[1 : 1+w]))
	case t >= tagNegInt && t <= 0x27:
		w := int(t-tagNegInt) + 1
		if len(s) < 1+w {
			return n, ErrShortBytes
		}
		n.AsNegMagnitude(readLE(s[1:1+w]) + 1)
	case t == tagDouble:
		f, err := s.GetDouble()
		if err != nil {
			return n, err
		}
		n.AsDouble(f)
	default:
		return n, badType(UintType, s.Type())
	}
	return n, nil
}
