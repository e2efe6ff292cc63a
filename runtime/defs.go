// Package tyson implements a compact, typed binary representation of JSON
// documents ("the tyson form") together with a single-pass transcoder from
// UTF-8 JSON text.
//
// This package defines four "families" of functionality:
//   - The Parser consumes JSON text and drives the Builder directly, with no
//     intermediate DOM.
//   - The Builder lays down tagged values into a growable ByteBuffer,
//     patching headers in place once sizes are known.
//   - Slice is a zero-copy reader over an encoded value.
//   - ToJSONBytes / ToCBOR / FromCBOR convert an encoded value back to JSON
//     text or bridge it to CBOR.
//
// A typical round trip:
//
//	enc, err := tyson.ParseJSON([]byte(`{"a":12}`))
//	...
//	js, _, err := tyson.ToJSONBytes(enc)
package tyson

// Tag bytes of the tyson form. A value is one tag byte followed by a
// tag-dependent payload.
//
// Containers come in four sub-kinds each, selected by the total byte size of
// the closed value: class 0 (< 256 bytes), class 1 (< 64K), class 2 (< 4G)
// and class 3 (anything larger). Class 0 stores a 1-byte length; the other
// classes store an 8-byte little-endian length. The length field counts every
// byte after the tag, including the length field itself, so an empty
// container is exactly [tag, 0x01]. After the length comes the child count
// (1/2/4/8 bytes by class) and the item payload; arrays with an index table
// and all objects end with a table of per-child offsets (1/2/4/8 bytes by
// class) relative to the tag byte.
const (
	tagArrayFixed   = 0x02 // 0x02..0x05: array, all items the same byte size
	tagArrayIndexed = 0x06 // 0x06..0x09: array with index table
	tagObjectSorted = 0x0b // 0x0b..0x0e: object, index sorted by key
	tagStringLong   = 0x0c // 8-byte LE payload length, then payload
	tagObjectUnsort = 0x0f // 0x0f..0x12: object, index in insertion order

	tagNull   = 0x18
	tagFalse  = 0x19
	tagTrue   = 0x1a
	tagDouble = 0x1b // 8 bytes IEEE-754, little-endian

	tagNegInt = 0x20 // 0x20..0x27: 1..8 byte LE payload holding magnitude-1
	tagUInt   = 0x28 // 0x28..0x2f: 1..8 byte LE payload

	tagSmallUInt = 0x30 // 0x30..0x39: values 0..9
	tagSmallNeg  = 0x3a // 0x3a..0x3f: values -6..-1 (value = tag - 0x40)

	tagStringShort = 0x40 // 0x40..0xbf: payload length = tag - 0x40
)

// Tag 0x0c is claimed by the long string, so the builder never emits a
// class-1 sorted object; those are widened to class 2 (0x0d). The unsorted
// object range has no such hole.

const (
	shortStringMaxLen = 127

	// recursionLimit bounds the recursion depth of the parser, the
	// validator and the interop converters. It can be lowered per parse
	// via Options.MaxNestingDepth.
	recursionLimit = 100000
)

// Container size-class thresholds (total byte size of the closed value).
const (
	class0Limit = 1 << 8
	class1Limit = 1 << 16
	class2Limit = 1 << 32
)

// containerWidths returns the byte widths of the length and count fields
// for a size class. Index table entries share the count width.
func containerWidths(class int) (lenW, cntW int) {
	if class == 0 {
		return 1, 1
	}
	return 8, 1 << uint(class)
}

// Type classifies tyson values.
type Type byte

// Value types.
const (
	InvalidType Type = iota

	NullType
	BoolType
	UintType   // unsigned integer (including small uints)
	IntType    // negative integer (including small negatives)
	DoubleType // IEEE-754 64-bit float
	StringType // short or long string
	ArrayType
	ObjectType
)

// String implements fmt.Stringer
func (t Type) String() string {
	switch t {
	case NullType:
		return "null"
	case BoolType:
		return "bool"
	case UintType:
		return "uint"
	case IntType:
		return "int"
	case DoubleType:
		return "double"
	case StringType:
		return "string"
	case ArrayType:
		return "array"
	case ObjectType:
		return "object"
	default:
		return "<invalid>"
	}
}

// tagType returns the value type for a tag byte.
func tagType(b byte) Type {
	switch {
	case b >= tagStringShort && b <= 0xbf:
		return StringType
	case b == tagStringLong:
		return StringType
	case b >= tagSmallUInt && b < tagSmallNeg:
		return UintType
	case b >= tagSmallNeg && b <= 0x3f:
		return IntType
	case b >= tagUInt && b <= 0x2f:
		return UintType
	case b >= tagNegInt && b <= 0x27:
		return IntType
	case b == tagNull:
		return NullType
	case b == tagFalse || b == tagTrue:
		return BoolType
	case b == tagDouble:
		return DoubleType
	case b >= tagArrayFixed && b <= 0x09:
		return ArrayType
	case b >= tagObjectSorted && b <= 0x12:
		return ObjectType
	default:
		return InvalidType
	}
}

// NextType returns the type of the value starting at b.
func NextType(b []byte) Type {
	if len(b) == 0 {
		return InvalidType
	}
	return tagType(b[0])
}
