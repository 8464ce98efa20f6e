package testsupport

import (
	"bytes"

	"modforge/internal/binbuf"
	"modforge/internal/container"
)

// Record fixtures mirror the layouts the default probe descriptors expect:
// a fixed prologue, a size-prefixed payload padded to 4 bytes, and a small
// trailing metadata block carrying the stable-ID string.

// TextureRecord builds a synthetic texture record payload.
func TextureRecord(name string, width, height int, pixels []byte, stableID string) []byte {
	w := binbuf.NewWriter()
	w.AlignedString(name)
	w.Int32(1) // format marker
	w.Int32(int32(width))
	w.Int32(int32(height))
	w.Int32(int32(len(pixels)))
	w.Int32(0) // mip stripped
	w.Int32(4) // format code: RGBA32
	w.Int32(1) // mip count
	writePayload(w, pixels)
	writeTrailer(w, stableID)
	return w.Out()
}

// AudioRecord builds a synthetic audio clip record payload.
func AudioRecord(name string, channels, sampleRate, bits int, samples []byte, stableID string) []byte {
	w := binbuf.NewWriter()
	w.AlignedString(name)
	w.Int32(int32(channels))
	w.Int32(int32(sampleRate))
	w.Int32(int32(bits))
	w.Int32(0) // load type
	writePayload(w, samples)
	writeTrailer(w, stableID)
	return w.Out()
}

// SpriteRecord builds a synthetic sprite record payload.
func SpriteRecord(name string, rectW, rectH, pixelsPerUnit float32, textureRef int64, stableID string) []byte {
	w := binbuf.NewWriter()
	w.AlignedString(name)
	w.Float32(0) // rect x
	w.Float32(0) // rect y
	w.Float32(rectW)
	w.Float32(rectH)
	w.Float32(0.5) // pivot x
	w.Float32(0.5) // pivot y
	w.Float32(0)   // border l
	w.Float32(0)   // border b
	w.Float32(0)   // border r
	w.Float32(0)   // border t
	w.Float32(pixelsPerUnit)
	w.Int64(textureRef)
	writePayload(w, bytes.Repeat([]byte{0x11}, 16))
	writeTrailer(w, stableID)
	return w.Out()
}

// DataRecord builds a synthetic script-defined record: name, int32 fields in
// order, payload, trailer. Pair it with a matching LayoutDescriptor in the
// test.
func DataRecord(name string, fields []int32, payload []byte, stableID string) []byte {
	w := binbuf.NewWriter()
	w.AlignedString(name)
	for _, f := range fields {
		w.Int32(f)
	}
	writePayload(w, payload)
	writeTrailer(w, stableID)
	return w.Out()
}

func writePayload(w *binbuf.Writer, payload []byte) {
	w.Uint32(uint32(len(payload)))
	w.Bytes(payload)
	w.Pad(4)
}

func writeTrailer(w *binbuf.Writer, stableID string) {
	w.Int32(0x0D06F00D)
	if stableID != "" {
		w.AlignedString(stableID)
	}
	w.Int32(0)
}

// NewContainer wraps records into an in-memory container with sequential
// numeric ids starting at firstID.
func NewContainer(firstID int64, recs ...*container.Record) *container.Container {
	c := &container.Container{
		StructuralVersion: 17,
		EngineVersion:     "2021.3.16f1",
	}
	id := firstID
	for _, rec := range recs {
		if rec.NumericID == 0 {
			rec.NumericID = id
			id++
		}
		c.Append(rec)
	}
	return c
}
