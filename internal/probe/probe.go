package probe

import (
	"fmt"
	"math"

	"modforge/internal/binbuf"
	"modforge/internal/identity"
)

// maxTrailer is the largest trailing metadata block considered consistent
// with a payload size hypothesis. Anything bigger means the 4-byte word we
// are looking at is not the payload size field.
const maxTrailer = 200

// FieldOffset records where one fixed prologue field lives in a specific
// template record.
type FieldOffset struct {
	Name   string
	Kind   FieldKind
	Offset int
	Width  int
}

// OffsetTable is the result of probing one template record. It is ephemeral:
// consumed by a builder or cloner immediately and recomputed whenever the
// template's structural version differs.
type OffsetTable struct {
	Kind    string
	Version int
	// Name is the record's identity string, parsed from the prologue.
	Name string

	fields map[string]FieldOffset
	order  []string

	// PayloadSizeOffset is where the 4-byte payload size field lives;
	// PayloadOffset/PayloadSize describe the payload bytes themselves, and
	// TrailerOffset is the first byte of trailing metadata after the padded
	// payload.
	PayloadSizeOffset int
	PayloadOffset     int
	PayloadSize       int
	TrailerOffset     int
}

// Field returns the offset entry for a named field.
func (t *OffsetTable) Field(name string) (FieldOffset, bool) {
	f, ok := t.fields[name]
	return f, ok
}

// Fields returns every prologue field in declared order.
func (t *OffsetTable) Fields() []FieldOffset {
	out := make([]FieldOffset, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.fields[name])
	}
	return out
}

// Probe walks a record payload against a layout descriptor. It validates
// every numeric prologue field against the descriptor's plausibility bounds
// and aborts on the first violation; it never guesses past an invalid field.
func Probe(data []byte, desc *LayoutDescriptor, version int) (*OffsetTable, error) {
	if err := validateDescriptor(desc); err != nil {
		return nil, err
	}

	r := binbuf.NewReader(data)
	table := &OffsetTable{
		Kind:    desc.Kind,
		Version: version,
		fields:  make(map[string]FieldOffset, len(desc.Fields)),
	}

	for i, spec := range desc.Fields {
		offset := r.Pos()
		if i == 0 {
			name, err := r.AlignedString(identity.MaxLength)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", spec.Name, err)
			}
			if !identity.Valid(name) {
				return nil, fmt.Errorf("field %q: %q is not a plausible identity", spec.Name, name)
			}
			table.Name = name
			table.addField(FieldOffset{Name: spec.Name, Kind: spec.Kind, Offset: offset, Width: r.Pos() - offset})
			continue
		}

		value, err := readNumeric(r, spec.Kind)
		if err != nil {
			return nil, fmt.Errorf("field %q at offset %d: %w", spec.Name, offset, err)
		}
		if err := checkPlausible(spec, value); err != nil {
			return nil, fmt.Errorf("field %q at offset %d: %w", spec.Name, offset, err)
		}
		table.addField(FieldOffset{Name: spec.Name, Kind: spec.Kind, Offset: offset, Width: spec.Kind.Width()})
	}

	if err := locatePayload(data, r.Pos(), table); err != nil {
		return nil, err
	}
	return table, nil
}

func (t *OffsetTable) addField(f FieldOffset) {
	t.fields[f.Name] = f
	t.order = append(t.order, f.Name)
}

func readNumeric(r *binbuf.Reader, kind FieldKind) (float64, error) {
	switch kind {
	case KindInt16:
		v, err := r.Int16()
		return float64(v), err
	case KindInt32:
		v, err := r.Int32()
		return float64(v), err
	case KindInt64:
		v, err := r.Int64()
		return float64(v), err
	case KindFloat32:
		v, err := r.Float32()
		return float64(v), err
	default:
		return 0, fmt.Errorf("unsupported prologue kind %q", kind)
	}
}

func checkPlausible(spec FieldSpec, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("value is not finite")
	}
	if len(spec.Set) > 0 {
		for _, allowed := range spec.Set {
			if value == float64(allowed) {
				return nil
			}
		}
		return fmt.Errorf("value %v not in allowed set %v", value, spec.Set)
	}
	if spec.Min == 0 && spec.Max == 0 {
		return nil
	}
	if value < spec.Min || value > spec.Max {
		return fmt.Errorf("value %v outside plausible range [%v, %v]", value, spec.Min, spec.Max)
	}
	return nil
}

// locatePayload scans forward from the end of the fixed prologue for a
// 4-byte size field whose declared length leaves a remainder consistent with
// a small trailing metadata block. This is the core heuristic for recovering
// where the variable payload starts with no schema.
func locatePayload(data []byte, prologueEnd int, table *OffsetTable) error {
	r := binbuf.NewReader(data)
	for off := prologueEnd; off+4 <= len(data); off++ {
		if err := r.Seek(off); err != nil {
			return err
		}
		size, err := r.Uint32()
		if err != nil {
			return err
		}
		n := int(size)
		if n <= 0 {
			continue
		}
		end := off + 4 + n
		if end > len(data) {
			continue
		}
		padded := end + pad4(n)
		if padded > len(data) {
			continue
		}
		if trailer := len(data) - padded; trailer < maxTrailer {
			table.PayloadSizeOffset = off
			table.PayloadOffset = off + 4
			table.PayloadSize = n
			table.TrailerOffset = padded
			return nil
		}
	}
	return fmt.Errorf("no payload size field found after prologue offset %d", prologueEnd)
}

func pad4(n int) int { return (4 - n%4) % 4 }
