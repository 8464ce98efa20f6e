package probe

import (
	"encoding/json"
	"fmt"
	"os"

	"modforge/internal/container"
)

// FieldKind enumerates the primitive field encodings a descriptor can name.
type FieldKind string

const (
	KindString  FieldKind = "string" // 4-byte length prefix, 4-byte aligned
	KindInt16   FieldKind = "int16"
	KindInt32   FieldKind = "int32"
	KindInt64   FieldKind = "int64"
	KindFloat32 FieldKind = "float32"
)

// Width returns the encoded byte width of fixed-size kinds, or zero for
// variable-size kinds.
func (k FieldKind) Width() int {
	switch k {
	case KindInt16:
		return 2
	case KindInt32, KindFloat32:
		return 4
	case KindInt64:
		return 8
	default:
		return 0
	}
}

// FieldSpec is one field in a layout's fixed prologue, with the plausibility
// bounds used to confirm the offset hypothesis.
type FieldSpec struct {
	Name string    `json:"name"`
	Kind FieldKind `json:"kind"`
	// Min/Max bound numeric values; both zero means no range check.
	Min float64 `json:"min,omitempty"`
	Max float64 `json:"max,omitempty"`
	// Set restricts the field to an explicit value list; overrides Min/Max.
	Set []int64 `json:"set,omitempty"`
}

// LayoutDescriptor declares one asset kind's fixed field prologue for one
// structural version of the container format. Version zero matches any
// build and is used for the shipped defaults.
type LayoutDescriptor struct {
	Kind    string      `json:"kind"`
	Version int         `json:"version,omitempty"`
	TypeTag int32       `json:"type_tag"`
	Fields  []FieldSpec `json:"fields"`
}

// Media kinds with shipped default layouts.
const (
	KindTexture = "texture"
	KindAudio   = "audio"
	KindSprite  = "sprite"
)

// Dimension and rate bounds considered plausible for the engine's assets.
const (
	MaxDimension     = 16384
	MaxSampleRate    = 384000
	MaxPixelsPerUnit = 10000
)

func textureLayout() *LayoutDescriptor {
	return &LayoutDescriptor{
		Kind:    KindTexture,
		TypeTag: container.TypeTexture,
		Fields: []FieldSpec{
			{Name: "name", Kind: KindString},
			{Name: "format_marker", Kind: KindInt32, Set: []int64{1}},
			{Name: "width", Kind: KindInt32, Min: 1, Max: MaxDimension},
			{Name: "height", Kind: KindInt32, Min: 1, Max: MaxDimension},
			{Name: "image_byte_count", Kind: KindInt32, Min: 1, Max: 1 << 30},
			{Name: "mip_stripped", Kind: KindInt32, Set: []int64{0, 1}},
			{Name: "format_code", Kind: KindInt32, Min: 1, Max: 64},
			{Name: "mip_count", Kind: KindInt32, Min: 1, Max: 16},
		},
	}
}

func audioLayout() *LayoutDescriptor {
	return &LayoutDescriptor{
		Kind:    KindAudio,
		TypeTag: container.TypeAudioClip,
		Fields: []FieldSpec{
			{Name: "name", Kind: KindString},
			{Name: "channels", Kind: KindInt32, Min: 1, Max: 8},
			{Name: "sample_rate", Kind: KindInt32, Min: 1, Max: MaxSampleRate},
			{Name: "bits_per_sample", Kind: KindInt32, Set: []int64{8, 16, 24, 32}},
			{Name: "load_type", Kind: KindInt32, Min: 0, Max: 2},
		},
	}
}

func spriteLayout() *LayoutDescriptor {
	return &LayoutDescriptor{
		Kind:    KindSprite,
		TypeTag: container.TypeSprite,
		Fields: []FieldSpec{
			{Name: "name", Kind: KindString},
			{Name: "rect_x", Kind: KindFloat32, Min: -MaxDimension, Max: MaxDimension},
			{Name: "rect_y", Kind: KindFloat32, Min: -MaxDimension, Max: MaxDimension},
			{Name: "rect_w", Kind: KindFloat32, Min: 0, Max: MaxDimension},
			{Name: "rect_h", Kind: KindFloat32, Min: 0, Max: MaxDimension},
			{Name: "pivot_x", Kind: KindFloat32, Min: -8, Max: 8},
			{Name: "pivot_y", Kind: KindFloat32, Min: -8, Max: 8},
			{Name: "border_l", Kind: KindFloat32, Min: 0, Max: MaxDimension},
			{Name: "border_b", Kind: KindFloat32, Min: 0, Max: MaxDimension},
			{Name: "border_r", Kind: KindFloat32, Min: 0, Max: MaxDimension},
			{Name: "border_t", Kind: KindFloat32, Min: 0, Max: MaxDimension},
			{Name: "pixels_per_unit", Kind: KindFloat32, Min: 0, Max: MaxPixelsPerUnit},
			{Name: "texture_ref", Kind: KindInt64},
		},
	}
}

// Registry resolves layout descriptors by kind and structural version,
// preferring an exact version match and falling back to the version-zero
// default.
type Registry struct {
	exact    map[string]map[int]*LayoutDescriptor
	fallback map[string]*LayoutDescriptor
}

// NewRegistry returns a registry seeded with the shipped default layouts.
func NewRegistry() *Registry {
	r := &Registry{
		exact:    make(map[string]map[int]*LayoutDescriptor),
		fallback: make(map[string]*LayoutDescriptor),
	}
	for _, desc := range []*LayoutDescriptor{textureLayout(), audioLayout(), spriteLayout()} {
		r.Register(desc)
	}
	return r
}

// Register adds a descriptor, replacing any previous entry for the same kind
// and version.
func (r *Registry) Register(desc *LayoutDescriptor) {
	if desc.Version == 0 {
		r.fallback[desc.Kind] = desc
		return
	}
	if r.exact[desc.Kind] == nil {
		r.exact[desc.Kind] = make(map[int]*LayoutDescriptor)
	}
	r.exact[desc.Kind][desc.Version] = desc
}

// Lookup resolves the descriptor for a kind under a structural version.
func (r *Registry) Lookup(kind string, version int) (*LayoutDescriptor, bool) {
	if byVersion, ok := r.exact[kind]; ok {
		if desc, ok := byVersion[version]; ok {
			return desc, true
		}
	}
	desc, ok := r.fallback[kind]
	return desc, ok
}

// Kinds lists every kind the registry can resolve.
func (r *Registry) Kinds() []string {
	seen := make(map[string]struct{})
	var out []string
	for kind := range r.fallback {
		if _, ok := seen[kind]; !ok {
			seen[kind] = struct{}{}
			out = append(out, kind)
		}
	}
	for kind := range r.exact {
		if _, ok := seen[kind]; !ok {
			seen[kind] = struct{}{}
			out = append(out, kind)
		}
	}
	return out
}

// LoadDescriptors reads extra layout descriptors from a JSON file, allowing
// field layouts to track engine builds without a code change.
func LoadDescriptors(path string) ([]*LayoutDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layouts: %w", err)
	}
	var descs []*LayoutDescriptor
	if err := json.Unmarshal(data, &descs); err != nil {
		return nil, fmt.Errorf("parse layouts %s: %w", path, err)
	}
	for i, desc := range descs {
		if err := validateDescriptor(desc); err != nil {
			return nil, fmt.Errorf("layout %d in %s: %w", i, path, err)
		}
	}
	return descs, nil
}

func validateDescriptor(desc *LayoutDescriptor) error {
	if desc.Kind == "" {
		return fmt.Errorf("missing kind")
	}
	if len(desc.Fields) == 0 {
		return fmt.Errorf("descriptor %q has no fields", desc.Kind)
	}
	if desc.Fields[0].Kind != KindString {
		return fmt.Errorf("descriptor %q must start with the name string", desc.Kind)
	}
	for _, f := range desc.Fields[1:] {
		switch f.Kind {
		case KindInt16, KindInt32, KindInt64, KindFloat32:
		default:
			return fmt.Errorf("descriptor %q field %q: prologue fields after the name must be fixed width, got %q", desc.Kind, f.Name, f.Kind)
		}
	}
	return nil
}
