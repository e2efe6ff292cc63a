package tyson

import (
	"bytes"
	"strings"
	"testing"
)

func TestBuilderScalars(t *testing.T) {
	cases := []struct {
		name string
		emit func(b *Builder)
		want []byte
	}{
		{"null", func(b *Builder) { b.AddNull() }, []byte{0x18}},
		{"false", func(b *Builder) { b.AddFalse() }, []byte{0x19}},
		{"true", func(b *Builder) { b.AddTrue() }, []byte{0x1a}},
		{"small-uint", func(b *Builder) { b.AddUInt(7) }, []byte{0x37}},
		{"uint-1byte", func(b *Builder) { b.AddUInt(12) }, []byte{0x28, 0x0c}},
		{"uint-2byte", func(b *Builder) { b.AddUInt(0x1234) }, []byte{0x29, 0x34, 0x12}},
		{"uint-8byte", func(b *Builder) { b.AddUInt(0xffffffffffffffff) }, append([]byte{0x2f}, bytes.Repeat([]byte{0xff}, 8)...)},
		{"small-neg", func(b *Builder) { b.AddNegInt(3) }, []byte{0x3d}},
		{"neg-1byte", func(b *Builder) { b.AddNegInt(100) }, []byte{0x20, 0x63}},
		{"neg-magnitude-zero", func(b *Builder) { b.AddNegInt(0) }, []byte{0x30}},
		{"short-string", func(b *Builder) { b.AddString("ab") }, []byte{0x42, 'a', 'b'}},
		{"empty-string", func(b *Builder) { b.AddString("") }, []byte{0x40}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := NewBuilder()
			c.emit(b)
			if !bytes.Equal(b.Bytes(), c.want) {
				t.Fatalf("got % x want % x", b.Bytes(), c.want)
			}
		})
	}
}

func TestBuilderLongString(t *testing.T) {
	b := NewBuilder()
	s := strings.Repeat("x", 128)
	b.AddString(s)
	enc := b.Bytes()
	if enc[0] != tagStringLong {
		t.Fatalf("tag: got %#x want %#x", enc[0], tagStringLong)
	}
	if got := readLE(enc[1:9]); got != 128 {
		t.Fatalf("length field: got %d", got)
	}
	if len(enc) != 9+128 {
		t.Fatalf("total size: got %d", len(enc))
	}
}

func TestBuilderEmptyContainers(t *testing.T) {
	b := NewBuilder()
	b.OpenArray()
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b.Bytes(), []byte{0x02, 0x01}) {
		t.Fatalf("empty array: % x", b.Bytes())
	}

	b.Clear()
	b.OpenObject()
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b.Bytes(), []byte{0x0b, 0x01}) {
		t.Fatalf("empty object: % x", b.Bytes())
	}
}

func TestBuilderFixedArray(t *testing.T) {
	b := NewBuilder()
	base := b.Size()
	b.OpenArray()
	for i := uint64(1); i <= 3; i++ {
		b.ReportChildOffset(base)
		b.AddUInt(i)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x02, 0x05, 0x03, 0x31, 0x32, 0x33}
	if !bytes.Equal(b.Bytes(), want) {
		t.Fatalf("got % x want % x", b.Bytes(), want)
	}
}

func TestBuilderIndexedArray(t *testing.T) {
	b := NewBuilder()
	base := b.Size()
	b.OpenArray()
	b.ReportChildOffset(base)
	b.AddString("a")
	b.ReportChildOffset(base)
	b.AddUInt(1)
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x06, 0x07, 0x02, 0x41, 'a', 0x31, 0x03, 0x05}
	if !bytes.Equal(b.Bytes(), want) {
		t.Fatalf("got % x want % x", b.Bytes(), want)
	}
}

func TestBuilderSortedObjectIndex(t *testing.T) {
	b := NewBuilder()
	base := b.Size()
	b.OpenObject()
	b.ReportChildOffset(base)
	b.AddString("b")
	b.AddUInt(1)
	b.ReportChildOffset(base)
	b.AddString("a")
	b.AddUInt(2)
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x0b, 0x0a, 0x02, 0x41, 'b', 0x31, 0x41, 'a', 0x32, 0x06, 0x03}
	if !bytes.Equal(b.Bytes(), want) {
		t.Fatalf("got % x want % x", b.Bytes(), want)
	}

	// Insertion order with sorting disabled.
	b = NewBuilder()
	b.SetOptions(Options{SortAttributeNames: false})
	base = b.Size()
	b.OpenObject()
	b.ReportChildOffset(base)
	b.AddString("b")
	b.AddUInt(1)
	b.ReportChildOffset(base)
	b.AddString("a")
	b.AddUInt(2)
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	want = []byte{0x0f, 0x0a, 0x02, 0x41, 'b', 0x31, 0x41, 'a', 0x32, 0x03, 0x06}
	if !bytes.Equal(b.Bytes(), want) {
		t.Fatalf("unsorted: got % x want % x", b.Bytes(), want)
	}
}

// A sorted object whose total size lands in [256, 64K) must not use tag
// 0x0c; it is widened to class 2.
func TestBuilderSortedObjectSkipsClass1(t *testing.T) {
	b := NewBuilder()
	base := b.Size()
	b.OpenObject()
	b.ReportChildOffset(base)
	b.AddString("k")
	b.AddString(strings.Repeat("v", 300))
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	enc := b.Bytes()
	if enc[0] != 0x0d {
		t.Fatalf("tag: got %#x want 0x0d", enc[0])
	}
	s := Slice(enc)
	sz, err := s.ByteSize()
	if err != nil {
		t.Fatal(err)
	}
	if sz != len(enc) {
		t.Fatalf("byte size %d != encoded length %d", sz, len(enc))
	}
	v, err := s.Get("k")
	if err != nil {
		t.Fatal(err)
	}
	got, err := v.GetString()
	if err != nil {
		t.Fatal(err)
	}
	if got != strings.Repeat("v", 300) {
		t.Fatalf("value mismatch after widening")
	}
}

// An unsorted object in the same size class keeps the narrowest class
// (class 1, tag 0x10).
func TestBuilderUnsortedObjectClass1(t *testing.T) {
	b := NewBuilder()
	b.SetOptions(Options{SortAttributeNames: false})
	base := b.Size()
	b.OpenObject()
	for _, k := range []string{"k1", "k2"} {
		b.ReportChildOffset(base)
		b.AddString(k)
		b.AddString(strings.Repeat("v", 200))
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if got := b.Bytes()[0]; got != 0x10 {
		t.Fatalf("tag: got %#x want 0x10", got)
	}
}

func TestBuilderCloseWithoutOpen(t *testing.T) {
	b := NewBuilder()
	if err := b.Close(); err != ErrNoOpenContainer {
		t.Fatalf("got %v want ErrNoOpenContainer", err)
	}
}

func TestBuilderAddValueRoundTrip(t *testing.T) {
	in := map[string]any{
		"n":    nil,
		"flag": true,
		"num":  int64(-42),
		"big":  uint64(1) << 63,
		"f":    1.5,
		"s":    "hello",
		"arr":  []any{uint64(1), "two", false},
	}
	b := NewBuilder()
	if err := b.AddValue(in); err != nil {
		t.Fatal(err)
	}
	if err := ValidateDocument(b.Bytes()); err != nil {
		t.Fatal(err)
	}
	got, err := GoValue(Slice(b.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("decoded to %T", got)
	}
	if m["n"] != nil || m["flag"] != true || m["s"] != "hello" {
		t.Fatalf("scalar mismatch: %#v", m)
	}
	if m["num"] != int64(-42) {
		t.Fatalf("num: %#v", m["num"])
	}
	if m["big"] != uint64(1)<<63 {
		t.Fatalf("big: %#v", m["big"])
	}
	if m["f"] != 1.5 {
		t.Fatalf("f: %#v", m["f"])
	}
	arr, ok := m["arr"].([]any)
	if !ok || len(arr) != 3 {
		t.Fatalf("arr: %#v", m["arr"])
	}
	if arr[0] != uint64(1) || arr[1] != "two" || arr[2] != false {
		t.Fatalf("arr content: %#v", arr)
	}
}
