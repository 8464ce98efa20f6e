package binbuf_test

import (
	"encoding/binary"
	"testing"

	"modforge/internal/binbuf"
)

func TestReaderScalars(t *testing.T) {
	buf := make([]byte, 18)
	binary.LittleEndian.PutUint32(buf[0:], 0xDEADBEEF)
	binary.LittleEndian.PutUint16(buf[4:], 0x1234)
	binary.LittleEndian.PutUint64(buf[6:], 42)
	binary.LittleEndian.PutUint32(buf[14:], 0x7F)

	r := binbuf.NewReader(buf)
	if v, err := r.Uint32(); err != nil || v != 0xDEADBEEF {
		t.Fatalf("Uint32 = %x, %v", v, err)
	}
	if v, err := r.Uint16(); err != nil || v != 0x1234 {
		t.Fatalf("Uint16 = %x, %v", v, err)
	}
	if v, err := r.Int64(); err != nil || v != 42 {
		t.Fatalf("Int64 = %d, %v", v, err)
	}
	if v, err := r.Int32(); err != nil || v != 0x7F {
		t.Fatalf("Int32 = %d, %v", v, err)
	}
	if r.Remaining() != 0 {
		t.Fatalf("expected exhausted reader, %d bytes remain", r.Remaining())
	}
}

func TestReaderNeverReadsPastEnd(t *testing.T) {
	r := binbuf.NewReader([]byte{1, 2, 3})
	if _, err := r.Uint32(); err == nil {
		t.Fatal("expected error reading uint32 from 3-byte buffer")
	}
	if r.Pos() != 0 {
		t.Fatalf("failed read moved cursor to %d", r.Pos())
	}
	if err := r.Seek(4); err == nil {
		t.Fatal("expected error seeking past end")
	}
	if err := r.Skip(3); err != nil {
		t.Fatalf("Skip to exact end: %v", err)
	}
	if _, err := r.Byte(); err == nil {
		t.Fatal("expected error reading byte at end")
	}
}

func TestAlignedStringRoundTrip(t *testing.T) {
	w := binbuf.NewWriter()
	w.AlignedString("weapon.rifle_base")
	w.Uint32(99)

	r := binbuf.NewReader(w.Out())
	s, err := r.AlignedString(100)
	if err != nil {
		t.Fatalf("AlignedString: %v", err)
	}
	if s != "weapon.rifle_base" {
		t.Fatalf("round-tripped string = %q", s)
	}
	if r.Pos()%4 != 0 {
		t.Fatalf("cursor not 4-aligned after string: %d", r.Pos())
	}
	if v, err := r.Uint32(); err != nil || v != 99 {
		t.Fatalf("field after string = %d, %v", v, err)
	}
}

func TestAlignedStringRejectsCorruptLength(t *testing.T) {
	buf := []byte{0xFF, 0xFF, 0xFF, 0xFF, 'a', 'b'}
	r := binbuf.NewReader(buf)
	if _, err := r.AlignedString(100); err == nil {
		t.Fatal("expected error for oversized length prefix")
	}
}

func TestCString(t *testing.T) {
	r := binbuf.NewReader([]byte("2021.3\x00rest"))
	s, err := r.CString()
	if err != nil {
		t.Fatalf("CString: %v", err)
	}
	if s != "2021.3" {
		t.Fatalf("CString = %q", s)
	}
	if r.Pos() != 7 {
		t.Fatalf("cursor after terminator = %d", r.Pos())
	}

	r = binbuf.NewReader([]byte("no terminator"))
	if _, err := r.CString(); err == nil {
		t.Fatal("expected error for unterminated string")
	}
}

func TestAlignedStringSize(t *testing.T) {
	cases := []struct {
		n    int
		want int
	}{
		{0, 4},
		{1, 8},
		{4, 8},
		{5, 12},
		{17, 24},
	}
	for _, tc := range cases {
		if got := binbuf.AlignedStringSize(tc.n); got != tc.want {
			t.Fatalf("AlignedStringSize(%d) = %d, want %d", tc.n, got, tc.want)
		}
	}
}
