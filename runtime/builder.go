package tyson

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// openContainer tracks an array or object whose header is not final yet.
// Offsets are buffer positions, not pointers, so they stay valid across
// buffer reallocation.
type openContainer struct {
	base     int // offset of the placeholder tag byte
	isObject bool
	offsets  []int // absolute start offsets of direct children
}

// Builder assembles a tyson value in an append-only buffer. Scalars are laid
// down in their final form immediately; containers get a one-byte
// placeholder at OpenArray/OpenObject time and are finalized by Close, which
// picks the narrowest size class, shifts the payload to make room for the
// real header, and appends the index table.
//
// The Builder owns its buffer. Clear() makes it ready for reuse; after a
// failed parse the buffer content is unspecified and must be cleared.
type Builder struct {
	buf     *ByteBuffer
	stack   []openContainer
	options Options
}

// NewBuilder returns an empty Builder with default options.
func NewBuilder() *Builder {
	return &Builder{buf: &ByteBuffer{}, options: DefaultOptions()}
}

// SetOptions replaces the builder options. Takes effect for containers
// closed afterwards.
func (b *Builder) SetOptions(o Options) { b.options = o }

// Options returns the current options.
func (b *Builder) Options() Options { return b.options }

// Clear drops all content and open containers; capacity is kept.
func (b *Builder) Clear() {
	b.buf.Reset()
	b.stack = b.stack[:0]
}

// Bytes returns the encoded bytes. Only meaningful when every opened
// container has been closed.
func (b *Builder) Bytes() []byte { return b.buf.Bytes() }

// Size returns the current write position.
func (b *Builder) Size() int { return b.buf.Len() }

// AddNull appends a null value.
func (b *Builder) AddNull() { b.buf.WriteByte(tagNull) }

// AddTrue appends the boolean true.
func (b *Builder) AddTrue() { b.buf.WriteByte(tagTrue) }

// AddFalse appends the boolean false.
func (b *Builder) AddFalse() { b.buf.WriteByte(tagFalse) }

// AddBool appends a boolean.
func (b *Builder) AddBool(v bool) {
	if v {
		b.AddTrue()
	} else {
		b.AddFalse()
	}
}

// uintWidth returns the number of bytes needed for v (at least 1).
func uintWidth(v uint64) int {
	n := 1
	for v > 0xff {
		v >>= 8
		n++
	}
	return n
}

// AddUInt appends an unsigned integer in the narrowest encoding.
func (b *Builder) AddUInt(v uint64) {
	if v <= 9 {
		b.buf.WriteByte(tagSmallUInt + byte(v))
		return
	}
	n := uintWidth(v)
	dst := b.buf.Extend(1 + n)
	dst[0] = byte(tagUInt + n - 1)
	for i := 0; i < n; i++ {
		dst[1+i] = byte(v)
		v >>= 8
	}
}

// AddNegInt appends the negative integer -v, given its magnitude v. The
// payload stores v-1, so the whole range (-2^64, 0) is representable.
// A magnitude of zero appends the unsigned integer 0.
func (b *Builder) AddNegInt(v uint64) {
	if v == 0 {
		b.AddUInt(0)
		return
	}
	if v <= 6 {
		b.buf.WriteByte(0x40 - byte(v))
		return
	}
	m := v - 1
	n := uintWidth(m)
	dst := b.buf.Extend(1 + n)
	dst[0] = byte(tagNegInt + n - 1)
	for i := 0; i < n; i++ {
		dst[1+i] = byte(m)
		m >>= 8
	}
}

// AddInt appends a signed integer.
func (b *Builder) AddInt(v int64) {
	if v >= 0 {
		b.AddUInt(uint64(v))
		return
	}
	b.AddNegInt(uint64(-(v + 1)) + 1)
}

// AddDouble appends an IEEE-754 64-bit float.
func (b *Builder) AddDouble(f float64) {
	dst := b.buf.Extend(9)
	dst[0] = tagDouble
	binary.LittleEndian.PutUint64(dst[1:], math.Float64bits(f))
}

// AddString appends a complete string value, choosing the short or long
// layout by payload size. The Parser does not use this; it emits string
// bytes incrementally and patches the header itself.
func (b *Builder) AddString(s string) {
	if len(s) <= shortStringMaxLen {
		dst := b.buf.Extend(1 + len(s))
		dst[0] = byte(tagStringShort + len(s))
		copy(dst[1:], s)
		return
	}
	dst := b.buf.Extend(9 + len(s))
	dst[0] = tagStringLong
	binary.LittleEndian.PutUint64(dst[1:9], uint64(len(s)))
	copy(dst[9:], s)
}

// OpenArray starts an array. It must be matched by Close.
func (b *Builder) OpenArray() {
	b.open(false)
}

// OpenObject starts an object. It must be matched by Close.
func (b *Builder) OpenObject() {
	b.open(true)
}

func (b *Builder) open(isObject bool) {
	base := b.buf.Len()
	b.buf.WriteByte(tagArrayIndexed) // placeholder, patched on Close
	b.stack = append(b.stack, openContainer{base: base, isObject: isObject})
}

// ReportChildOffset records the current write position as the start of the
// next direct child of the open container whose tag byte sits at base. For
// objects this is called once per entry, before the key.
func (b *Builder) ReportChildOffset(base int) {
	if len(b.stack) == 0 {
		return
	}
	top := &b.stack[len(b.stack)-1]
	if top.base != base {
		return
	}
	top.offsets = append(top.offsets, b.buf.Len())
}

// Close finalizes the innermost open container: it picks the narrowest size
// class that fits, rewrites the header, shifts the payload right to make
// room for the length and count fields, and appends the index table.
func (b *Builder) Close() error {
	if len(b.stack) == 0 {
		return ErrNoOpenContainer
	}
	st := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]

	base := st.base
	end := b.buf.Len()
	payload := end - (base + 1)
	count := len(st.offsets)

	if count == 0 {
		tag := byte(tagArrayFixed)
		if st.isObject {
			tag = tagObjectSorted
		}
		b.buf.SetByte(base, tag)
		b.buf.WriteByte(0x01)
		return nil
	}

	// Arrays whose items all have the same byte size drop the index table.
	fixed := false
	if !st.isObject {
		fixed = true
		first := st.offsets[0]
		var itemSize int
		if count > 1 {
			itemSize = st.offsets[1] - first
		} else {
			itemSize = end - first
		}
		for i := 0; i < count; i++ {
			next := end
			if i+1 < count {
				next = st.offsets[i+1]
			}
			if next-st.offsets[i] != itemSize {
				fixed = false
				break
			}
		}
	}

	sorted := st.isObject && (b.options.SortAttributeNames || count <= 1)

	class := 0
	for ; class < 3; class++ {
		lenW, cntW := containerWidths(class)
		idxSize := 0
		if !fixed {
			idxSize = count * cntW
		}
		total := 1 + lenW + cntW + payload + idxSize
		var limit uint64
		switch class {
		case 0:
			limit = class0Limit
		case 1:
			limit = class1Limit
		default:
			limit = class2Limit
		}
		if uint64(total) < limit {
			break
		}
	}
	// Tag 0x0c belongs to the long string, so a sorted object never uses
	// class 1.
	if sorted && class == 1 {
		class = 2
	}

	lenW, cntW := containerWidths(class)
	idxW := cntW
	idxSize := 0
	if !fixed {
		idxSize = count * idxW
	}
	headerExtra := lenW + cntW
	total := 1 + headerExtra + payload + idxSize

	b.buf.ShiftRight(base+1, headerExtra)

	var tag byte
	switch {
	case fixed:
		tag = tagArrayFixed + byte(class)
	case !st.isObject:
		tag = tagArrayIndexed + byte(class)
	case sorted:
		tag = tagObjectSorted + byte(class)
	default:
		tag = tagObjectUnsort + byte(class)
	}
	b.buf.SetByte(base, tag)

	if lenW == 1 {
		b.buf.SetByte(base+1, byte(total-1))
	} else {
		b.buf.PutUint64LE(base+1, uint64(total-1))
	}
	writeLEAt(b.buf, base+1+lenW, uint64(count), cntW)

	if !fixed {
		rel := make([]int, count)
		for i, off := range st.offsets {
			rel[i] = off - base + headerExtra
		}
		if sorted && count > 1 {
			raw := b.buf.Bytes()
			sort.SliceStable(rel, func(i, j int) bool {
				return bytes.Compare(keyBytesAt(raw, base+rel[i]), keyBytesAt(raw, base+rel[j])) < 0
			})
		}
		dst := b.buf.Extend(count * idxW)
		for i, r := range rel {
			v := uint64(r)
			for j := 0; j < idxW; j++ {
				dst[i*idxW+j] = byte(v)
				v >>= 8
			}
		}
	}
	return nil
}

// writeLEAt overwrites w committed bytes at offset at with the little-endian
// encoding of v.
func writeLEAt(buf *ByteBuffer, at int, v uint64, w int) {
	for i := 0; i < w; i++ {
		buf.SetByte(at+i, byte(v))
		v >>= 8
	}
}

// keyBytesAt returns the payload bytes of the string value at offset pos.
func keyBytesAt(raw []byte, pos int) []byte {
	t := raw[pos]
	if t == tagStringLong {
		l := binary.LittleEndian.Uint64(raw[pos+1 : pos+9])
		return raw[pos+9 : pos+9+int(l)]
	}
	l := int(t - tagStringShort)
	return raw[pos+1 : pos+1+l]
}

// AddValue appends an arbitrary Go value: nil, bool, strings, integers,
// floats, json.Number, []any and map[string]any. Map entries are emitted in
// key order so the encoding is deterministic.
func (b *Builder) AddValue(v any) error {
	return b.addValue(v, 0)
}

func (b *Builder) addValue(v any, depth int) error {
	if depth > recursionLimit {
		return ErrMaxDepthExceeded
	}
	switch x := v.(type) {
	case nil:
		b.AddNull()
	case bool:
		b.AddBool(x)
	case string:
		b.AddString(x)
	case json.Number:
		return b.addNumber(x)
	case float64:
		b.AddDouble(x)
	case float32:
		b.AddDouble(float64(x))
	case int:
		b.AddInt(int64(x))
	case int8:
		b.AddInt(int64(x))
	case int16:
		b.AddInt(int64(x))
	case int32:
		b.AddInt(int64(x))
	case int64:
		b.AddInt(x)
	case uint:
		b.AddUInt(uint64(x))
	case uint8:
		b.AddUInt(uint64(x))
	case uint16:
		b.AddUInt(uint64(x))
	case uint32:
		b.AddUInt(uint64(x))
	case uint64:
		b.AddUInt(x)
	case big.Int:
		return b.addValue(&x, depth)
	case *big.Int:
		if x.Sign() >= 0 {
			if !x.IsUint64() {
				return &ErrUnsupportedType{T: reflect.TypeOf(v)}
			}
			b.AddUInt(x.Uint64())
			return nil
		}
		m := new(big.Int).Neg(x)
		if !m.IsUint64() {
			return &ErrUnsupportedType{T: reflect.TypeOf(v)}
		}
		b.AddNegInt(m.Uint64())
	case []any:
		base := b.buf.Len()
		b.OpenArray()
		for _, e := range x {
			b.ReportChildOffset(base)
			if err := b.addValue(e, depth+1); err != nil {
				return err
			}
		}
		return b.Close()
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		base := b.buf.Len()
		b.OpenObject()
		for _, k := range keys {
			b.ReportChildOffset(base)
			b.AddString(k)
			if err := b.addValue(x[k], depth+1); err != nil {
				return err
			}
		}
		return b.Close()
	default:
		return &ErrUnsupportedType{T: reflect.TypeOf(v)}
	}
	return nil
}

// addNumber appends a json.Number, preferring integer encodings when the
// literal has no fraction or exponent.
func (b *Builder) addNumber(x json.Number) error {
	s := string(x)
	if !strings.ContainsAny(s, ".eE") {
		if i, err := x.Int64(); err == nil {
			b.AddInt(i)
			return nil
		}
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			b.AddUInt(u)
			return nil
		}
	}
	f, err := x.Float64()
	if err != nil {
		return err
	}
	b.AddDouble(f)
	return nil
}
