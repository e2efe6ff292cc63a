package tyson

import (
	"bytes"
	"testing"
)

func TestByteBufferShiftRight(t *testing.T) {
	bb := &ByteBuffer{}
	bb.WriteString("abcdef")
	bb.ShiftRight(2, 3)
	if bb.Len() != 9 {
		t.Fatalf("len after shift: got %d want 9", bb.Len())
	}
	got := bb.Bytes()
	if !bytes.Equal(got[5:], []byte("cdef")) {
		t.Fatalf("shifted tail: got %q", got[5:])
	}
	if !bytes.Equal(got[:2], []byte("ab")) {
		t.Fatalf("prefix disturbed: got %q", got[:2])
	}
}

func TestByteBufferPutUint64LE(t *testing.T) {
	bb := &ByteBuffer{}
	bb.Extend(10)
	bb.PutUint64LE(1, 0x0102030405060708)
	want := []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}
	if !bytes.Equal(bb.Bytes()[1:9], want) {
		t.Fatalf("little-endian write mismatch: %x", bb.Bytes()[1:9])
	}
}

func TestByteBufferRewind(t *testing.T) {
	bb := &ByteBuffer{}
	bb.WriteString("hello")
	bb.Rewind(3)
	if string(bb.Bytes()) != "he" {
		t.Fatalf("rewind: got %q", bb.Bytes())
	}
}

func TestByteBufferEnsureKeepsContent(t *testing.T) {
	bb := &ByteBuffer{}
	bb.WriteString("seed")
	bb.Ensure(1 << 16)
	if string(bb.Bytes()) != "seed" {
		t.Fatalf("content lost on grow: %q", bb.Bytes())
	}
	if bb.Cap() < 4+1<<16 {
		t.Fatalf("capacity not ensured: %d", bb.Cap())
	}
}

func TestByteBufferPool(t *testing.T) {
	bb := GetMinSize(2048)
	if bb.Len() != 0 {
		t.Fatalf("pooled buffer not reset")
	}
	if bb.Cap() < 2048 {
		t.Fatalf("pooled buffer capacity: %d", bb.Cap())
	}
	bb.WriteString("junk")
	PutByteBuffer(bb)
	bb2 := GetByteBuffer()
	if bb2.Len() != 0 {
		t.Fatalf("reused buffer not empty")
	}
	PutByteBuffer(bb2)
}
