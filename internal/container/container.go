package container

import (
	"fmt"
	"os"

	"modforge/internal/binbuf"
)

// Well-known type tags used by the target engine build.
const (
	TypeTexture     int32 = 28
	TypeAudioClip   int32 = 83
	TypeDataRecord  int32 = 114
	TypeGlobalIndex int32 = 147
	TypeSprite      int32 = 213
)

const (
	magic           = "SOC\x00"
	tableEntrySize  = 24
	dataAlign       = 8
	maxVersionBytes = 64
)

// Record is one object's raw serialized payload plus its table metadata.
// The payload is opaque to this package.
type Record struct {
	NumericID   int64
	TypeTag     int32
	ScriptIndex int16
	Data        []byte
}

// Container is an ordered, mutable set of records plus the header needed to
// re-serialize them. It is owned by exactly one compile pass at a time.
type Container struct {
	StructuralVersion uint32
	EngineVersion     string
	Records           []*Record
}

// Load reads and parses a container file.
func Load(path string) (*Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read container: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse container %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a serialized container from memory.
func Parse(data []byte) (*Container, error) {
	r := binbuf.NewReader(data)

	head, err := r.Bytes(4)
	if err != nil {
		return nil, err
	}
	if string(head) != magic {
		return nil, fmt.Errorf("bad container magic % x", head)
	}

	version, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	engineVersion, err := r.CString()
	if err != nil {
		return nil, fmt.Errorf("engine version: %w", err)
	}
	if len(engineVersion) > maxVersionBytes {
		return nil, fmt.Errorf("engine version string of %d bytes exceeds limit", len(engineVersion))
	}

	count, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	dataOffset, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if int64(dataOffset) > int64(len(data)) {
		return nil, fmt.Errorf("data offset %d beyond container of %d bytes", dataOffset, len(data))
	}

	c := &Container{
		StructuralVersion: version,
		EngineVersion:     engineVersion,
		Records:           make([]*Record, 0, count),
	}
	seen := make(map[int64]struct{}, count)
	for i := uint32(0); i < count; i++ {
		id, err := r.Int64()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		typeTag, err := r.Int32()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		scriptIndex, err := r.Int16()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if err := r.Skip(2); err != nil { // table padding
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		offset, err := r.Uint32()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		size, err := r.Uint32()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		start := int64(dataOffset) + int64(offset)
		end := start + int64(size)
		if end > int64(len(data)) {
			return nil, fmt.Errorf("record %d payload [%d,%d) beyond container of %d bytes", i, start, end, len(data))
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate numeric id %d", id)
		}
		seen[id] = struct{}{}

		payload := make([]byte, size)
		copy(payload, data[start:end])
		c.Records = append(c.Records, &Record{
			NumericID:   id,
			TypeTag:     typeTag,
			ScriptIndex: scriptIndex,
			Data:        payload,
		})
	}
	return c, nil
}

// Serialize encodes the container back to bytes. Record order is preserved;
// payload offsets are recomputed from scratch, so any in-memory size change
// is accounted for automatically.
func (c *Container) Serialize() ([]byte, error) {
	header := binbuf.NewWriter()
	header.Bytes([]byte(magic))
	header.Uint32(c.StructuralVersion)
	header.Bytes(append([]byte(c.EngineVersion), 0))
	header.Uint32(uint32(len(c.Records)))

	headerSize := header.Len() + 4 // plus the data offset field itself
	tableSize := len(c.Records) * tableEntrySize
	dataOffset := alignUp(headerSize+tableSize, 16)
	header.Uint32(uint32(dataOffset))

	table := binbuf.NewWriter()
	payloads := binbuf.NewWriter()
	for i, rec := range c.Records {
		if rec == nil {
			return nil, fmt.Errorf("nil record at index %d", i)
		}
		payloads.Pad(dataAlign)
		offset := payloads.Len()

		table.Int64(rec.NumericID)
		table.Int32(rec.TypeTag)
		table.Int16(rec.ScriptIndex)
		table.Uint16(0)
		table.Uint32(uint32(offset))
		table.Uint32(uint32(len(rec.Data)))

		payloads.Bytes(rec.Data)
	}

	out := binbuf.NewWriter()
	out.Bytes(header.Out())
	out.Bytes(table.Out())
	for out.Len() < dataOffset {
		out.Bytes([]byte{0})
	}
	out.Bytes(payloads.Out())
	return out.Out(), nil
}

// WriteFile serializes the container to a new file. Output always goes to a
// fresh path; inputs are never overwritten in place.
func (c *Container) WriteFile(path string) error {
	data, err := c.Serialize()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// RecordByID returns the record with the given numeric id.
func (c *Container) RecordByID(id int64) (*Record, bool) {
	for _, rec := range c.Records {
		if rec.NumericID == id {
			return rec, true
		}
	}
	return nil, false
}

// RecordsByType returns all records carrying the given type tag, in container
// order.
func (c *Container) RecordsByType(typeTag int32) []*Record {
	var out []*Record
	for _, rec := range c.Records {
		if rec.TypeTag == typeTag {
			out = append(out, rec)
		}
	}
	return out
}

// Append adds a record to the end of the container. The caller is
// responsible for allocating a unique numeric id via IDAllocator.
func (c *Container) Append(rec *Record) {
	c.Records = append(c.Records, rec)
}

// MaxNumericID returns the highest numeric id present, or zero for an empty
// container.
func (c *Container) MaxNumericID() int64 {
	var max int64
	for _, rec := range c.Records {
		if rec.NumericID > max {
			max = rec.NumericID
		}
	}
	return max
}

func alignUp(n, align int) int {
	rem := n % align
	if rem == 0 {
		return n
	}
	return n + align - rem
}
