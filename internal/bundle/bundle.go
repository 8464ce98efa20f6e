// Package bundle reads and writes the outer chunked envelope that wraps a
// serialized container for the engine's loader. All multi-byte integers in
// the envelope are big-endian, unlike the little-endian container inside it.
package bundle

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"modforge/internal/services"
)

// Magic is seven bytes followed by a NUL terminator on the wire.
const Magic = "FORGEFS"

// FormatVersion is the envelope revision this package emits.
const FormatVersion = 6

// Block compression modes, stored in the low six bits of a flags word.
const (
	compressionNone     = 0
	compressionLZ4      = 2
	compressionLZ4HC    = 3
	compressionModeMask = 0x3F
)

// directoryFlagSerialized marks a directory node holding a serialized
// container rather than a raw resource blob.
const directoryFlagSerialized = 4

// WriteOptions name the envelope header fields the caller controls.
type WriteOptions struct {
	PlayerVersion string
	EngineVersion string
	// InternalName is the single directory entry's name, the identifier the
	// loader resolves the embedded container by.
	InternalName string
}

// Write serializes payload into a single-block, uncompressed envelope. The
// total-size field is written as a placeholder first and backpatched with
// the real byte count once everything else is on the wire.
func Write(ws io.WriteSeeker, payload []byte, opts WriteOptions) error {
	if opts.InternalName == "" {
		return services.Wrap(services.ErrValidation, "write", "write_bundle",
			"internal name must not be empty", nil)
	}

	var header bytes.Buffer
	header.WriteString(Magic)
	header.WriteByte(0)
	be32(&header, FormatVersion)
	header.WriteString(opts.PlayerVersion)
	header.WriteByte(0)
	header.WriteString(opts.EngineVersion)
	header.WriteByte(0)
	totalSizeOffset := int64(header.Len())
	be64(&header, 0) // total size, backpatched below

	info := blockInfo(payload, opts.InternalName)
	be32(&header, uint32(len(info))) // compressed block-info size
	be32(&header, uint32(len(info))) // uncompressed block-info size
	be32(&header, compressionNone)   // header flags: block info stored as-is
	header.Write(info)

	if _, err := ws.Write(header.Bytes()); err != nil {
		return writeFail("write envelope header", err)
	}
	if _, err := ws.Write(payload); err != nil {
		return writeFail("write payload block", err)
	}

	total := int64(header.Len()) + int64(len(payload))
	if _, err := ws.Seek(totalSizeOffset, io.SeekStart); err != nil {
		return writeFail("seek to total-size field", err)
	}
	var patched [8]byte
	binary.BigEndian.PutUint64(patched[:], uint64(total))
	if _, err := ws.Write(patched[:]); err != nil {
		return writeFail("backpatch total size", err)
	}
	if _, err := ws.Seek(0, io.SeekEnd); err != nil {
		return writeFail("restore write position", err)
	}
	return nil
}

// blockInfo builds the block-directory sub-block: hash placeholder, one
// storage block, one directory node.
func blockInfo(payload []byte, internalName string) []byte {
	var b bytes.Buffer
	b.Write(make([]byte, 16)) // hash placeholder
	be32(&b, 1)               // block count
	be32(&b, uint32(len(payload)))
	be32(&b, uint32(len(payload)))
	be16(&b, compressionNone)
	be32(&b, 1) // directory count
	be64(&b, 0) // node offset within the assembled blocks
	be64(&b, uint64(len(payload)))
	be32(&b, directoryFlagSerialized)
	b.WriteString(internalName)
	b.WriteByte(0)
	return b.Bytes()
}

// WriteFile writes an envelope to path, replacing any existing file.
func WriteFile(path string, payload []byte, opts WriteOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return writeFail("create output file", err)
	}
	if err := Write(f, payload, opts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return writeFail("close output file", err)
	}
	return nil
}

func writeFail(message string, err error) error {
	return services.Wrap(services.ErrSerialization, "write", "write_bundle", message, err)
}

func be16(b *bytes.Buffer, v uint16) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	b.Write(buf[:])
}

func be32(b *bytes.Buffer, v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	b.Write(buf[:])
}

func be64(b *bytes.Buffer, v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	b.Write(buf[:])
}
