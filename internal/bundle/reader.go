package bundle

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/pierrec/lz4/v4"

	"modforge/internal/services"
)

// Node is one directory entry of a parsed envelope.
type Node struct {
	Name   string
	Offset int64
	Size   int64
	Flags  uint32
}

// Bundle is a fully parsed envelope with every storage block decompressed.
type Bundle struct {
	FormatVersion uint32
	PlayerVersion string
	EngineVersion string
	TotalSize     int64
	Nodes         []Node

	blocks []byte
}

// Payload returns a node's bytes from the assembled block stream.
func (b *Bundle) Payload(n Node) ([]byte, error) {
	if n.Offset < 0 || n.Size < 0 || n.Offset+n.Size > int64(len(b.blocks)) {
		return nil, readFail(fmt.Sprintf("node %q spans [%d, %d) outside %d assembled bytes",
			n.Name, n.Offset, n.Offset+n.Size, len(b.blocks)), nil)
	}
	return b.blocks[n.Offset : n.Offset+n.Size], nil
}

// Node returns the directory entry with the given name.
func (b *Bundle) Node(name string) (Node, bool) {
	for _, n := range b.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return Node{}, false
}

// Parse reads a complete envelope from memory, decompressing LZ4 storage
// blocks where the block flags call for it.
func Parse(data []byte) (*Bundle, error) {
	c := &beCursor{data: data}

	magic, err := c.cstring()
	if err != nil || magic != Magic {
		return nil, readFail(fmt.Sprintf("bad magic %q", magic), err)
	}
	b := &Bundle{}
	if b.FormatVersion, err = c.uint32(); err != nil {
		return nil, readFail("read format version", err)
	}
	if b.PlayerVersion, err = c.cstring(); err != nil {
		return nil, readFail("read player version", err)
	}
	if b.EngineVersion, err = c.cstring(); err != nil {
		return nil, readFail("read engine version", err)
	}
	total, err := c.uint64()
	if err != nil {
		return nil, readFail("read total size", err)
	}
	b.TotalSize = int64(total)
	if b.TotalSize != int64(len(data)) {
		return nil, readFail(fmt.Sprintf("total size field %d does not match %d envelope bytes",
			b.TotalSize, len(data)), nil)
	}

	compressedInfoSize, err := c.uint32()
	if err != nil {
		return nil, readFail("read block-info compressed size", err)
	}
	uncompressedInfoSize, err := c.uint32()
	if err != nil {
		return nil, readFail("read block-info uncompressed size", err)
	}
	headerFlags, err := c.uint32()
	if err != nil {
		return nil, readFail("read header flags", err)
	}
	rawInfo, err := c.take(int(compressedInfoSize))
	if err != nil {
		return nil, readFail("read block-info section", err)
	}
	info, err := decompress(rawInfo, int(uncompressedInfoSize), headerFlags)
	if err != nil {
		return nil, readFail("decompress block-info section", err)
	}

	blocks, nodes, err := parseBlockInfo(info, c)
	if err != nil {
		return nil, err
	}
	b.blocks = blocks
	b.Nodes = nodes
	return b, nil
}

// ReadFile parses the envelope stored at path.
func ReadFile(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, readFail("read bundle file", err)
	}
	return Parse(data)
}

// parseBlockInfo walks the hash, block list, and directory list, then pulls
// each storage block off the remaining envelope bytes.
func parseBlockInfo(info []byte, c *beCursor) ([]byte, []Node, error) {
	ic := &beCursor{data: info}
	if _, err := ic.take(16); err != nil {
		return nil, nil, readFail("read block-info hash", err)
	}
	blockCount, err := ic.uint32()
	if err != nil {
		return nil, nil, readFail("read block count", err)
	}
	type blockMeta struct {
		uncompressed uint32
		compressed   uint32
		flags        uint16
	}
	// Each block entry occupies 10 info bytes; a count the remaining info
	// cannot hold is corrupt, not a reason to allocate.
	if int64(blockCount)*10 > int64(ic.remaining()) {
		return nil, nil, readFail(fmt.Sprintf("block count %d exceeds %d remaining info bytes",
			blockCount, ic.remaining()), nil)
	}
	metas := make([]blockMeta, blockCount)
	for i := range metas {
		if metas[i].uncompressed, err = ic.uint32(); err != nil {
			return nil, nil, readFail(fmt.Sprintf("read block %d sizes", i), err)
		}
		if metas[i].compressed, err = ic.uint32(); err != nil {
			return nil, nil, readFail(fmt.Sprintf("read block %d sizes", i), err)
		}
		if metas[i].flags, err = ic.uint16(); err != nil {
			return nil, nil, readFail(fmt.Sprintf("read block %d flags", i), err)
		}
	}
	nodeCount, err := ic.uint32()
	if err != nil {
		return nil, nil, readFail("read directory count", err)
	}
	// Offset, size, flags, and the name terminator make a node at least 21
	// info bytes.
	if int64(nodeCount)*21 > int64(ic.remaining()) {
		return nil, nil, readFail(fmt.Sprintf("directory count %d exceeds %d remaining info bytes",
			nodeCount, ic.remaining()), nil)
	}
	nodes := make([]Node, nodeCount)
	for i := range nodes {
		off, err := ic.uint64()
		if err != nil {
			return nil, nil, readFail(fmt.Sprintf("read node %d offset", i), err)
		}
		size, err := ic.uint64()
		if err != nil {
			return nil, nil, readFail(fmt.Sprintf("read node %d size", i), err)
		}
		flags, err := ic.uint32()
		if err != nil {
			return nil, nil, readFail(fmt.Sprintf("read node %d flags", i), err)
		}
		name, err := ic.cstring()
		if err != nil {
			return nil, nil, readFail(fmt.Sprintf("read node %d name", i), err)
		}
		nodes[i] = Node{Name: name, Offset: int64(off), Size: int64(size), Flags: flags}
	}

	var blocks bytes.Buffer
	for i, m := range metas {
		raw, err := c.take(int(m.compressed))
		if err != nil {
			return nil, nil, readFail(fmt.Sprintf("read storage block %d", i), err)
		}
		plain, err := decompress(raw, int(m.uncompressed), uint32(m.flags))
		if err != nil {
			return nil, nil, readFail(fmt.Sprintf("decompress storage block %d", i), err)
		}
		blocks.Write(plain)
	}
	return blocks.Bytes(), nodes, nil
}

// maxLZ4Ratio bounds how far an LZ4 block can expand; a declared
// uncompressed size beyond it cannot come from the stored bytes.
const maxLZ4Ratio = 255

// decompress applies the compression mode from a flags word's low bits.
func decompress(raw []byte, uncompressedSize int, flags uint32) ([]byte, error) {
	switch flags & compressionModeMask {
	case compressionNone:
		if len(raw) != uncompressedSize {
			return nil, fmt.Errorf("stored block is %d bytes, header says %d", len(raw), uncompressedSize)
		}
		return raw, nil
	case compressionLZ4, compressionLZ4HC:
		if uncompressedSize < 0 || int64(uncompressedSize) > int64(len(raw))*maxLZ4Ratio {
			return nil, fmt.Errorf("declared size %d cannot decompress from %d stored bytes", uncompressedSize, len(raw))
		}
		out := make([]byte, uncompressedSize)
		n, err := lz4.UncompressBlock(raw, out)
		if err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		if n != uncompressedSize {
			return nil, fmt.Errorf("lz4 yielded %d bytes, header says %d", n, uncompressedSize)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported compression mode %d", flags&compressionModeMask)
	}
}

func readFail(message string, err error) error {
	return services.Wrap(services.ErrStructural, "read", "read_bundle", message, err)
}

// beCursor is a bounds-checked big-endian cursor over envelope bytes.
type beCursor struct {
	data []byte
	pos  int
}

func (c *beCursor) remaining() int { return len(c.data) - c.pos }

func (c *beCursor) take(n int) ([]byte, error) {
	if n < 0 || c.pos+n > len(c.data) {
		return nil, fmt.Errorf("need %d bytes at offset %d of %d", n, c.pos, len(c.data))
	}
	out := c.data[c.pos : c.pos+n]
	c.pos += n
	return out, nil
}

func (c *beCursor) uint16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (c *beCursor) uint32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (c *beCursor) uint64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (c *beCursor) cstring() (string, error) {
	i := bytes.IndexByte(c.data[c.pos:], 0)
	if i < 0 {
		return "", fmt.Errorf("unterminated string at offset %d", c.pos)
	}
	s := string(c.data[c.pos : c.pos+i])
	c.pos += i + 1
	return s, nil
}
