package binbuf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Reader is a bounds-checked little-endian cursor over a byte slice. It never
// reads past the end of the buffer; every accessor returns an error instead.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf without copying it. The caller must not mutate buf
// while the reader is in use.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Pos returns the current cursor position.
func (r *Reader) Pos() int { return r.pos }

// Len returns the total buffer length.
func (r *Reader) Len() int { return len(r.buf) }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

// Seek moves the cursor to an absolute position.
func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.buf) {
		return fmt.Errorf("seek to %d outside buffer of %d bytes", pos, len(r.buf))
	}
	r.pos = pos
	return nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	if n < 0 {
		return fmt.Errorf("skip negative count %d", n)
	}
	return r.Seek(r.pos + n)
}

// Align advances the cursor to the next multiple of n.
func (r *Reader) Align(n int) error {
	if n <= 0 {
		return fmt.Errorf("align to non-positive boundary %d", n)
	}
	rem := r.pos % n
	if rem == 0 {
		return nil
	}
	return r.Skip(n - rem)
}

func (r *Reader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return fmt.Errorf("read of %d bytes at offset %d exceeds buffer of %d bytes", n, r.pos, len(r.buf))
	}
	return nil
}

// Bytes returns the next n bytes as a subslice of the underlying buffer.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("read negative length %d", n)
	}
	if err := r.need(n); err != nil {
		return nil, err
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

// Byte reads a single byte.
func (r *Reader) Byte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// Uint16 reads a little-endian uint16.
func (r *Reader) Uint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

// Uint32 reads a little-endian uint32.
func (r *Reader) Uint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

// Uint64 reads a little-endian uint64.
func (r *Reader) Uint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// Int16 reads a little-endian int16.
func (r *Reader) Int16() (int16, error) {
	v, err := r.Uint16()
	return int16(v), err
}

// Int32 reads a little-endian int32.
func (r *Reader) Int32() (int32, error) {
	v, err := r.Uint32()
	return int32(v), err
}

// Int64 reads a little-endian int64.
func (r *Reader) Int64() (int64, error) {
	v, err := r.Uint64()
	return int64(v), err
}

// Float32 reads a little-endian IEEE 754 single.
func (r *Reader) Float32() (float32, error) {
	v, err := r.Uint32()
	return math.Float32frombits(v), err
}

// AlignedString reads a 4-byte length prefix, the string bytes, and the zero
// padding that brings the string data to the next 4-byte boundary. maxLen
// rejects corrupt prefixes before any large read is attempted.
func (r *Reader) AlignedString(maxLen int) (string, error) {
	n, err := r.Uint32()
	if err != nil {
		return "", err
	}
	if int64(n) > int64(maxLen) {
		return "", fmt.Errorf("string length %d exceeds limit %d at offset %d", n, maxLen, r.pos-4)
	}
	raw, err := r.Bytes(int(n))
	if err != nil {
		return "", err
	}
	s := string(raw)
	if err := r.Skip(pad4(int(n))); err != nil {
		return "", err
	}
	return s, nil
}

// CString reads bytes up to and including a NUL terminator and returns the
// string without the terminator.
func (r *Reader) CString() (string, error) {
	for i := r.pos; i < len(r.buf); i++ {
		if r.buf[i] == 0 {
			s := string(r.buf[r.pos:i])
			r.pos = i + 1
			return s, nil
		}
	}
	return "", fmt.Errorf("unterminated string at offset %d", r.pos)
}

// AlignedStringSize returns the encoded size of an aligned string holding n
// bytes of text: the 4-byte prefix plus padded content.
func AlignedStringSize(n int) int {
	return 4 + n + pad4(n)
}

func pad4(n int) int {
	return (4 - n%4) % 4
}
