package builder

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"modforge/internal/binbuf"
	"modforge/internal/identity"
	"modforge/internal/probe"
	"modforge/internal/services"
)

// Audio builds a native audio clip record from a WAV file, splicing the
// decoded PCM stream into the template's payload slot.
func Audio(template []byte, table *probe.OffsetTable, sourcePath, newIdentity string) ([]byte, error) {
	if !identity.Valid(newIdentity) {
		return nil, services.Wrap(services.ErrValidation, "media", "build_audio",
			fmt.Sprintf("%q is not a valid identity", newIdentity), nil)
	}
	buf, bits, err := decodeWAV(sourcePath)
	if err != nil {
		return nil, services.Wrap(services.ErrDecode, "media", "build_audio",
			"decode source wav", err)
	}
	channels := buf.Format.NumChannels
	rate := buf.Format.SampleRate
	if channels < 1 || channels > 8 {
		return nil, services.Wrap(services.ErrValidation, "media", "build_audio",
			fmt.Sprintf("channel count %d outside [1, 8]", channels), nil)
	}
	if rate < 1 || rate > probe.MaxSampleRate {
		return nil, services.Wrap(services.ErrValidation, "media", "build_audio",
			fmt.Sprintf("sample rate %d outside [1, %d]", rate, probe.MaxSampleRate), nil)
	}
	payload, err := pcmBytes(buf.Data, bits)
	if err != nil {
		return nil, services.Wrap(services.ErrDecode, "media", "build_audio",
			"flatten pcm samples", err)
	}

	b := binbuf.NewBuilder(template)
	if err := replaceName(b, table, newIdentity); err != nil {
		return nil, buildFail("build_audio", err)
	}
	values := map[string]int32{
		"channels":        int32(channels),
		"sample_rate":     int32(rate),
		"bits_per_sample": int32(bits),
	}
	if err := replaceInt32Fields(b, table, values); err != nil {
		return nil, buildFail("build_audio", err)
	}
	if err := replacePayload(b, table, payload); err != nil {
		return nil, buildFail("build_audio", err)
	}
	out, err := b.Bytes()
	if err != nil {
		return nil, buildFail("build_audio", err)
	}
	return out, nil
}

func decodeWAV(path string) (*audio.IntBuffer, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("%s is not a valid wav file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("read pcm from %s: %w", path, err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, 0, fmt.Errorf("%s contains no pcm samples", path)
	}
	bits := buf.SourceBitDepth
	if bits == 0 {
		bits = int(dec.BitDepth)
	}
	return buf, bits, nil
}

// pcmBytes flattens decoded samples into the little-endian interleaved byte
// stream the engine stores.
func pcmBytes(samples []int, bits int) ([]byte, error) {
	switch bits {
	case 8:
		out := make([]byte, len(samples))
		for i, s := range samples {
			out[i] = byte(s)
		}
		return out, nil
	case 16:
		out := make([]byte, 2*len(samples))
		for i, s := range samples {
			binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(s)))
		}
		return out, nil
	case 24:
		out := make([]byte, 3*len(samples))
		for i, s := range samples {
			out[3*i] = byte(s)
			out[3*i+1] = byte(s >> 8)
			out[3*i+2] = byte(s >> 16)
		}
		return out, nil
	case 32:
		out := make([]byte, 4*len(samples))
		for i, s := range samples {
			binary.LittleEndian.PutUint32(out[4*i:], uint32(int32(s)))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", bits)
	}
}
