package binbuf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Builder reconstructs a record from a template buffer. The source cursor
// walks the template while the output accumulates the rebuilt bytes; regions
// that do not change are copied through verbatim, fixed-width fields are
// replaced in place, and resizable fields update the running size delta.
//
// Replacements must be issued in ascending template offset order; the builder
// rejects attempts to copy backwards.
type Builder struct {
	src    []byte
	srcPos int
	out    bytes.Buffer
	delta  int
}

// NewBuilder starts a rebuild over the given template bytes.
func NewBuilder(src []byte) *Builder {
	b := &Builder{src: src}
	b.out.Grow(len(src))
	return b
}

// SourcePos returns the current template cursor position.
func (b *Builder) SourcePos() int { return b.srcPos }

// OutputLen returns the number of bytes emitted so far.
func (b *Builder) OutputLen() int { return b.out.Len() }

// Delta returns the cumulative signed size difference between emitted
// replacements and the template regions they replaced.
func (b *Builder) Delta() int { return b.delta }

// CopyThrough copies template bytes verbatim from the current source cursor
// up to (not including) absolute template offset off.
func (b *Builder) CopyThrough(off int) error {
	if off < b.srcPos {
		return fmt.Errorf("copy target %d behind source cursor %d", off, b.srcPos)
	}
	if off > len(b.src) {
		return fmt.Errorf("copy target %d exceeds template of %d bytes", off, len(b.src))
	}
	b.out.Write(b.src[b.srcPos:off])
	b.srcPos = off
	return nil
}

// CopyRest copies all remaining template bytes verbatim.
func (b *Builder) CopyRest() error {
	return b.CopyThrough(len(b.src))
}

// SkipSource advances the template cursor by n bytes without emitting them,
// reducing the size delta accordingly.
func (b *Builder) SkipSource(n int) error {
	if n < 0 {
		return fmt.Errorf("skip negative count %d", n)
	}
	if b.srcPos+n > len(b.src) {
		return fmt.Errorf("skip of %d bytes at %d exceeds template of %d bytes", n, b.srcPos, len(b.src))
	}
	b.srcPos += n
	b.delta -= n
	return nil
}

// Append emits raw bytes that have no counterpart in the template, growing
// the size delta.
func (b *Builder) Append(p []byte) {
	b.out.Write(p)
	b.delta += len(p)
}

// ReplaceUint32 overwrites the 4-byte field at the source cursor.
func (b *Builder) ReplaceUint32(v uint32) error {
	return b.replaceFixed(4, func(dst []byte) { binary.LittleEndian.PutUint32(dst, v) })
}

// ReplaceInt32 overwrites the 4-byte field at the source cursor.
func (b *Builder) ReplaceInt32(v int32) error {
	return b.ReplaceUint32(uint32(v))
}

// ReplaceUint16 overwrites the 2-byte field at the source cursor.
func (b *Builder) ReplaceUint16(v uint16) error {
	return b.replaceFixed(2, func(dst []byte) { binary.LittleEndian.PutUint16(dst, v) })
}

// ReplaceInt64 overwrites the 8-byte field at the source cursor.
func (b *Builder) ReplaceInt64(v int64) error {
	return b.replaceFixed(8, func(dst []byte) { binary.LittleEndian.PutUint64(dst, uint64(v)) })
}

// ReplaceFloat32 overwrites the 4-byte field at the source cursor.
func (b *Builder) ReplaceFloat32(v float32) error {
	return b.ReplaceUint32(math.Float32bits(v))
}

func (b *Builder) replaceFixed(width int, put func([]byte)) error {
	if b.srcPos+width > len(b.src) {
		return fmt.Errorf("fixed field of %d bytes at %d exceeds template of %d bytes", width, b.srcPos, len(b.src))
	}
	var scratch [8]byte
	put(scratch[:width])
	b.out.Write(scratch[:width])
	b.srcPos += width
	return nil
}

// ReplaceAlignedString consumes the aligned string at the source cursor and
// emits s in its place, padded to a 4-byte boundary with zeros.
func (b *Builder) ReplaceAlignedString(s string) error {
	r := NewReader(b.src)
	if err := r.Seek(b.srcPos); err != nil {
		return err
	}
	old, err := r.AlignedString(len(b.src))
	if err != nil {
		return fmt.Errorf("template string at %d: %w", b.srcPos, err)
	}
	oldSize := AlignedStringSize(len(old))
	b.srcPos += oldSize
	b.writeAlignedString(s)
	b.delta += AlignedStringSize(len(s)) - oldSize
	return nil
}

// ReplaceSizedBlock consumes a 4-byte size prefix, oldSize content bytes, and
// the old block's 4-byte-boundary padding from the template, then emits the
// prefix, content, and padding for p in their place.
func (b *Builder) ReplaceSizedBlock(oldSize int, p []byte) error {
	if oldSize < 0 {
		return fmt.Errorf("negative block size %d", oldSize)
	}
	total := 4 + oldSize + pad4(oldSize)
	if b.srcPos+total > len(b.src) {
		return fmt.Errorf("sized block of %d bytes at %d exceeds template of %d bytes", total, b.srcPos, len(b.src))
	}
	b.srcPos += total
	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(p)))
	b.out.Write(prefix[:])
	b.out.Write(p)
	b.writePadding(len(p))
	b.delta += (4 + len(p) + pad4(len(p))) - total
	return nil
}

// Bytes returns the rebuilt buffer. The builder must have consumed the whole
// template first; a partial rebuild is a bug in the caller.
func (b *Builder) Bytes() ([]byte, error) {
	if b.srcPos != len(b.src) {
		return nil, fmt.Errorf("rebuild stopped at template offset %d of %d", b.srcPos, len(b.src))
	}
	return b.out.Bytes(), nil
}

func (b *Builder) writeAlignedString(s string) {
	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(s)))
	b.out.Write(prefix[:])
	b.out.WriteString(s)
	b.writePadding(len(s))
}

func (b *Builder) writePadding(n int) {
	for i := 0; i < pad4(n); i++ {
		b.out.WriteByte(0)
	}
}

// AppendAlignedString emits an aligned string with no template counterpart.
func (b *Builder) AppendAlignedString(s string) {
	b.writeAlignedString(s)
	b.delta += AlignedStringSize(len(s))
}

// Writer accumulates little-endian fields for records built from scratch,
// such as fresh global index tables.
type Writer struct {
	out bytes.Buffer
}

// NewWriter returns an empty writer.
func NewWriter() *Writer { return &Writer{} }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return w.out.Len() }

// Uint32 appends a little-endian uint32.
func (w *Writer) Uint32(v uint32) {
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], v)
	w.out.Write(scratch[:])
}

// Int32 appends a little-endian int32.
func (w *Writer) Int32(v int32) { w.Uint32(uint32(v)) }

// Uint16 appends a little-endian uint16.
func (w *Writer) Uint16(v uint16) {
	var scratch [2]byte
	binary.LittleEndian.PutUint16(scratch[:], v)
	w.out.Write(scratch[:])
}

// Int16 appends a little-endian int16.
func (w *Writer) Int16(v int16) { w.Uint16(uint16(v)) }

// Uint64 appends a little-endian uint64.
func (w *Writer) Uint64(v uint64) {
	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], v)
	w.out.Write(scratch[:])
}

// Int64 appends a little-endian int64.
func (w *Writer) Int64(v int64) { w.Uint64(uint64(v)) }

// Float32 appends a little-endian IEEE 754 single.
func (w *Writer) Float32(v float32) { w.Uint32(math.Float32bits(v)) }

// Bytes appends raw bytes.
func (w *Writer) Bytes(p []byte) { w.out.Write(p) }

// AlignedString appends a 4-byte length prefix, the string bytes, and zero
// padding to the next 4-byte boundary.
func (w *Writer) AlignedString(s string) {
	w.Uint32(uint32(len(s)))
	w.out.WriteString(s)
	for i := 0; i < pad4(len(s)); i++ {
		w.out.WriteByte(0)
	}
}

// Pad appends zero bytes until the length is a multiple of n.
func (w *Writer) Pad(n int) {
	for w.out.Len()%n != 0 {
		w.out.WriteByte(0)
	}
}

// Out returns the accumulated bytes.
func (w *Writer) Out() []byte { return w.out.Bytes() }
