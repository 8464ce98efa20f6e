package bundle_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/pierrec/lz4/v4"

	"modforge/internal/bundle"
)

func writeTempBundle(t *testing.T, payload []byte) (string, []byte) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "output.bundle")
	err := bundle.WriteFile(path, payload, bundle.WriteOptions{
		PlayerVersion: "5.x.x",
		EngineVersion: "2021.3.16f1",
		InternalName:  "CAB-modforge",
	})
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	return path, raw
}

func TestWriteGoldenHeader(t *testing.T) {
	payload := []byte("container-bytes-go-here!")
	_, raw := writeTempBundle(t, payload)

	want := []byte("FORGEFS\x00")
	want = binary.BigEndian.AppendUint32(want, 6) // format version
	want = append(want, "5.x.x\x00"...)
	want = append(want, "2021.3.16f1\x00"...)
	want = binary.BigEndian.AppendUint64(want, uint64(len(raw))) // backpatched total
	if !bytes.Equal(raw[:len(want)], want) {
		t.Fatalf("header prefix\n got %x\nwant %x", raw[:len(want)], want)
	}
	if !bytes.HasSuffix(raw, payload) {
		t.Fatal("payload not appended after block info")
	}
}

func TestWriteParseRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte{0xC3, 0x01}, 500)
	path, raw := writeTempBundle(t, payload)

	b, err := bundle.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if b.FormatVersion != 6 || b.PlayerVersion != "5.x.x" || b.EngineVersion != "2021.3.16f1" {
		t.Fatalf("header = %+v", b)
	}
	if b.TotalSize != int64(len(raw)) {
		t.Fatalf("total size %d, file is %d bytes", b.TotalSize, len(raw))
	}
	node, ok := b.Node("CAB-modforge")
	if !ok {
		t.Fatalf("directory nodes = %+v", b.Nodes)
	}
	got, err := b.Payload(node)
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("payload bytes changed across round trip")
	}
}

func TestParseRejectsCorruptEnvelopes(t *testing.T) {
	payload := []byte("payload")
	_, raw := writeTempBundle(t, payload)

	bad := append([]byte("WRONGFS\x00"), raw[8:]...)
	if _, err := bundle.Parse(bad); err == nil {
		t.Fatal("expected bad-magic failure")
	}
	if _, err := bundle.Parse(raw[:len(raw)-3]); err == nil {
		t.Fatal("expected total-size mismatch failure")
	}
}

// TestParseLZ4Block hand-assembles an envelope whose single storage block is
// LZ4 compressed, the layout shipped game bundles commonly use.
func TestParseLZ4Block(t *testing.T) {
	payload := bytes.Repeat([]byte("modforge-block-data."), 64)
	compressed := make([]byte, lz4.CompressBlockBound(len(payload)))
	n, err := lz4.CompressBlock(payload, compressed, nil)
	if err != nil || n == 0 {
		t.Fatalf("CompressBlock: n=%d err=%v", n, err)
	}
	compressed = compressed[:n]

	var info bytes.Buffer
	info.Write(make([]byte, 16)) // hash
	be32(&info, 1)               // block count
	be32(&info, uint32(len(payload)))
	be32(&info, uint32(len(compressed)))
	be16(&info, 2) // lz4
	be32(&info, 1) // directory count
	be64(&info, 0)
	be64(&info, uint64(len(payload)))
	be32(&info, 4)
	info.WriteString("CAB-compressed")
	info.WriteByte(0)

	var env bytes.Buffer
	env.WriteString("FORGEFS\x00")
	be32(&env, 6)
	env.WriteString("5.x.x\x00")
	env.WriteString("2021.3.16f1\x00")
	totalAt := env.Len()
	be64(&env, 0)
	be32(&env, uint32(info.Len()))
	be32(&env, uint32(info.Len()))
	be32(&env, 0) // block info itself uncompressed
	env.Write(info.Bytes())
	env.Write(compressed)
	raw := env.Bytes()
	binary.BigEndian.PutUint64(raw[totalAt:], uint64(len(raw)))

	b, err := bundle.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	node, ok := b.Node("CAB-compressed")
	if !ok {
		t.Fatalf("nodes = %+v", b.Nodes)
	}
	got, err := b.Payload(node)
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("decompressed block does not match original payload")
	}
}

// assembleEnvelope frames raw block-info bytes and storage bytes into an
// otherwise well-formed envelope.
func assembleEnvelope(info, storage []byte) []byte {
	var env bytes.Buffer
	env.WriteString("FORGEFS\x00")
	be32(&env, 6)
	env.WriteString("5.x.x\x00")
	env.WriteString("2021.3.16f1\x00")
	totalAt := env.Len()
	be64(&env, 0)
	be32(&env, uint32(len(info)))
	be32(&env, uint32(len(info)))
	be32(&env, 0)
	env.Write(info)
	env.Write(storage)
	raw := env.Bytes()
	binary.BigEndian.PutUint64(raw[totalAt:], uint64(len(raw)))
	return raw
}

// Corrupt counts and sizes in the block info must fail parsing before any
// allocation sized from them happens.
func TestParseRejectsOversizedCounts(t *testing.T) {
	var blocks bytes.Buffer
	blocks.Write(make([]byte, 16))
	be32(&blocks, 0xFFFFFFFF) // block count
	if _, err := bundle.Parse(assembleEnvelope(blocks.Bytes(), nil)); err == nil {
		t.Fatal("expected block-count failure")
	}

	var nodes bytes.Buffer
	nodes.Write(make([]byte, 16))
	be32(&nodes, 0)          // no blocks
	be32(&nodes, 0xFFFFFFFF) // directory count
	if _, err := bundle.Parse(assembleEnvelope(nodes.Bytes(), nil)); err == nil {
		t.Fatal("expected directory-count failure")
	}
}

func TestParseRejectsAbsurdUncompressedSize(t *testing.T) {
	stored := []byte{0x10, 0x00} // 2 stored bytes claiming to expand to 2 GiB
	var info bytes.Buffer
	info.Write(make([]byte, 16))
	be32(&info, 1)
	be32(&info, 0x7FFFFFFF)
	be32(&info, uint32(len(stored)))
	be16(&info, 2) // lz4
	be32(&info, 0) // directory count
	if _, err := bundle.Parse(assembleEnvelope(info.Bytes(), stored)); err == nil {
		t.Fatal("expected declared-size failure")
	}
}

func be16(b *bytes.Buffer, v uint16) { b.Write(binary.BigEndian.AppendUint16(nil, v)) }
func be32(b *bytes.Buffer, v uint32) { b.Write(binary.BigEndian.AppendUint32(nil, v)) }
func be64(b *bytes.Buffer, v uint64) { b.Write(binary.BigEndian.AppendUint64(nil, v)) }
