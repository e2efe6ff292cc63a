package tests

import (
	"bytes"
	"strings"
	"testing"

	tyson "github.com/tysonlabs/tyson.go/runtime"
)

// TestScenarioSimpleObject follows the canonical end-to-end example: one
// object with a single unsigned-integer entry.
func TestScenarioSimpleObject(t *testing.T) {
	p := tyson.NewParser()
	nr, err := p.Parse([]byte(`{"a":12}`), false)
	if err != nil {
		t.Fatal(err)
	}
	if nr != 1 {
		t.Fatalf("value count: got %d want 1", nr)
	}
	enc := p.Bytes()
	if enc[0] < 0x0b || enc[0] > 0x0e {
		t.Fatalf("container tag %#x outside the sorted-object range", enc[0])
	}
	s := tyson.Slice(enc)
	v, err := s.Get("a")
	if err != nil {
		t.Fatal(err)
	}
	if v == nil {
		t.Fatal("key 'a' not found")
	}
	if v.Type() != tyson.UintType {
		t.Fatalf("value type: got %v want uint", v.Type())
	}
	u, err := v.GetUInt()
	if err != nil {
		t.Fatal(err)
	}
	if u != 12 {
		t.Fatalf("value: got %d want 12", u)
	}
}

// TestScenarioEmptyContainers checks that [] and {} close to a bare header
// with a length byte of exactly 1.
func TestScenarioEmptyContainers(t *testing.T) {
	for _, js := range []string{"[]", "{}"} {
		enc, err := tyson.ParseJSON([]byte(js))
		if err != nil {
			t.Fatalf("%s: %v", js, err)
		}
		if len(enc) != 2 || enc[1] != 0x01 {
			t.Fatalf("%s: got % x", js, enc)
		}
		n, err := tyson.Slice(enc).Len()
		if err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Fatalf("%s: length %d", js, n)
		}
	}
}

// TestScenarioSurrogatePair: the G clef musical symbol arrives as a UTF-16
// surrogate pair and must come out as one 4-byte UTF-8 sequence under a
// short-string tag.
func TestScenarioSurrogatePair(t *testing.T) {
	enc, err := tyson.ParseJSON([]byte("\"\\uD834\\uDD1E\""))
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x44, 0xf0, 0x9d, 0x84, 0x9e}
	if !bytes.Equal(enc, want) {
		t.Fatalf("got % x want % x", enc, want)
	}
}

// TestScenarioNegativeExponent: -0.5e2 is the double -50.
func TestScenarioNegativeExponent(t *testing.T) {
	enc, err := tyson.ParseJSON([]byte("-0.5e2"))
	if err != nil {
		t.Fatal(err)
	}
	f, err := tyson.Slice(enc).GetDouble()
	if err != nil {
		t.Fatal(err)
	}
	if f != -50.0 {
		t.Fatalf("got %v want -50", f)
	}
}

// TestScenarioUint64Overflow: 2^64 no longer fits the integer accumulator
// and silently becomes a double.
func TestScenarioUint64Overflow(t *testing.T) {
	enc, err := tyson.ParseJSON([]byte("18446744073709551616"))
	if err != nil {
		t.Fatal(err)
	}
	s := tyson.Slice(enc)
	if s.Type() != tyson.DoubleType {
		t.Fatalf("type: got %v want double", s.Type())
	}
	f, err := s.GetDouble()
	if err != nil {
		t.Fatal(err)
	}
	if f != 1.8446744073709552e19 {
		t.Fatalf("got %v", f)
	}
}

// TestScenarioEscapedControlCharacter: the control-character rejection
// applies only to unescaped bytes below 0x20.
func TestScenarioEscapedControlCharacter(t *testing.T) {
	enc, err := tyson.ParseJSON([]byte("\"\\u0001\""))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(enc, []byte{0x41, 0x01}) {
		t.Fatalf("got % x", enc)
	}

	if _, err := tyson.ParseJSON([]byte("\"\x01\"")); err == nil {
		t.Fatal("unescaped control character must be rejected")
	}
}

// TestScenarioMultiMode: "1 2 3" yields three values in multi mode; in
// single mode the trailing value is an error positioned at the second token.
func TestScenarioMultiMode(t *testing.T) {
	p := tyson.NewParser()
	nr, err := p.Parse([]byte("1 2 3"), true)
	if err != nil {
		t.Fatal(err)
	}
	if nr != 3 {
		t.Fatalf("multi count: got %d want 3", nr)
	}

	rest := p.Bytes()
	var vals []uint64
	for len(rest) > 0 {
		var s tyson.Slice
		s, rest, err = tyson.ReadValue(rest)
		if err != nil {
			t.Fatal(err)
		}
		u, err := s.GetUInt()
		if err != nil {
			t.Fatal(err)
		}
		vals = append(vals, u)
	}
	if len(vals) != 3 || vals[0] != 1 || vals[1] != 2 || vals[2] != 3 {
		t.Fatalf("values: %v", vals)
	}

	if _, err := p.Parse([]byte("1 2"), false); err == nil {
		t.Fatal("single mode must fail")
	} else if !strings.Contains(err.Error(), "expecting EOF") {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ErrorPos() != 2 {
		t.Fatalf("error position: got %d want 2", p.ErrorPos())
	}
}

// TestStringTagBoundary: 127 payload bytes use the short tag, 128 the long
// one — also when the payload length only materializes after transcoding.
func TestStringTagBoundary(t *testing.T) {
	short, err := tyson.ParseJSON([]byte(`"` + strings.Repeat("a", 127) + `"`))
	if err != nil {
		t.Fatal(err)
	}
	if short[0] != 0x40+127 {
		t.Fatalf("short tag: %#x", short[0])
	}
	long, err := tyson.ParseJSON([]byte(`"` + strings.Repeat("a", 128) + `"`))
	if err != nil {
		t.Fatal(err)
	}
	if long[0] != 0x0c {
		t.Fatalf("long tag: %#x", long[0])
	}

	// 43 escaped three-byte characters: 129 payload bytes from 258
	// input bytes.
	long, err = tyson.ParseJSON([]byte(`"` + strings.Repeat("\\u20ac", 43) + `"`))
	if err != nil {
		t.Fatal(err)
	}
	if long[0] != 0x0c {
		t.Fatalf("transcoded long tag: %#x", long[0])
	}
	got, err := tyson.Slice(long).GetString()
	if err != nil {
		t.Fatal(err)
	}
	if got != strings.Repeat("€", 43) {
		t.Fatalf("payload mismatch")
	}
}

// TestUTF8Rejection: overlong-ish, truncated and stray-continuation input
// inside strings fails the parse.
func TestUTF8Rejection(t *testing.T) {
	bad := [][]byte{
		[]byte("\"\x80\""),                     // stray continuation
		[]byte("\"\xc3\x28\""),                 // bad continuation byte
		[]byte("\"\xe2\x82\""),                 // truncated 3-byte sequence
		[]byte("\"\xf8\x88\x80\x80\x80\""),     // 5-byte sequence
		[]byte("\"\xff\""),                     // invalid lead
	}
	for _, js := range bad {
		if _, err := tyson.ParseJSON(js); err == nil {
			t.Errorf("accepted invalid UTF-8 input % x", js)
		}
	}
}

// TestValidateParsedOutput: everything the parser emits must satisfy the
// structural validator.
func TestValidateParsedOutput(t *testing.T) {
	inputs := []string{
		`null`, `true`, `[]`, `{}`, `{"a":12}`,
		`[0, -1, 2.5, "x", null, true, false]`,
		`{"nested":{"deep":[[1],[2,[3]]]},"s":"` + strings.Repeat("y", 300) + `"}`,
		`"\uD834\uDD1E"`,
		`-18446744073709551615`,
	}
	for _, js := range inputs {
		enc, err := tyson.ParseJSON([]byte(js))
		if err != nil {
			t.Fatalf("%s: %v", js, err)
		}
		if err := tyson.ValidateDocument(enc); err != nil {
			t.Errorf("%s: validator rejected parser output: %v", js, err)
		}
	}
}

// TestBOM: a UTF-8 byte-order mark at the start is skipped; elsewhere it is
// just content.
func TestBOM(t *testing.T) {
	enc, err := tyson.ParseJSON([]byte("\xef\xbb\xbf[1]"))
	if err != nil {
		t.Fatal(err)
	}
	n, err := tyson.Slice(enc).Len()
	if err != nil || n != 1 {
		t.Fatalf("len %d err %v", n, err)
	}
}
