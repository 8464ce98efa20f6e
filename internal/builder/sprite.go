package builder

import (
	"fmt"

	"modforge/internal/binbuf"
	"modforge/internal/identity"
	"modforge/internal/probe"
	"modforge/internal/services"
)

// SpriteParams are the scalar fields a rebuilt sprite record carries. Rect
// and border follow the layout's field order: x, y, width, height and left,
// bottom, right, top respectively.
type SpriteParams struct {
	Rect          [4]float32
	Pivot         [2]float32
	Border        [4]float32
	PixelsPerUnit float32
	TextureRef    int64
}

// SpriteParamsFromImage derives sprite scalars for an image file: a rect
// covering the full image, a centered pivot, and no border.
func SpriteParamsFromImage(path string, pixelsPerUnit float32, textureRef int64) (SpriteParams, error) {
	img, err := decodeRGBA(path)
	if err != nil {
		return SpriteParams{}, services.Wrap(services.ErrDecode, "media", "build_sprite",
			"decode source image", err)
	}
	return SpriteParams{
		Rect:          [4]float32{0, 0, float32(img.Rect.Dx()), float32(img.Rect.Dy())},
		Pivot:         [2]float32{0.5, 0.5},
		PixelsPerUnit: pixelsPerUnit,
		TextureRef:    textureRef,
	}, nil
}

// Sprite builds a sprite reference record from the template, rewriting its
// identity and scalar fields. The payload is structural and carried over
// from the template unchanged.
func Sprite(template []byte, table *probe.OffsetTable, newIdentity string, p SpriteParams) ([]byte, error) {
	if !identity.Valid(newIdentity) {
		return nil, services.Wrap(services.ErrValidation, "media", "build_sprite",
			fmt.Sprintf("%q is not a valid identity", newIdentity), nil)
	}
	if p.PixelsPerUnit < 0 || p.PixelsPerUnit > probe.MaxPixelsPerUnit {
		return nil, services.Wrap(services.ErrValidation, "media", "build_sprite",
			fmt.Sprintf("pixels per unit %v outside [0, %d]", p.PixelsPerUnit, probe.MaxPixelsPerUnit), nil)
	}

	floats := map[string]float32{
		"rect_x":          p.Rect[0],
		"rect_y":          p.Rect[1],
		"rect_w":          p.Rect[2],
		"rect_h":          p.Rect[3],
		"pivot_x":         p.Pivot[0],
		"pivot_y":         p.Pivot[1],
		"border_l":        p.Border[0],
		"border_b":        p.Border[1],
		"border_r":        p.Border[2],
		"border_t":        p.Border[3],
		"pixels_per_unit": p.PixelsPerUnit,
	}

	b := binbuf.NewBuilder(template)
	if err := replaceName(b, table, newIdentity); err != nil {
		return nil, buildFail("build_sprite", err)
	}
	for _, f := range table.Fields() {
		switch {
		case f.Kind == probe.KindFloat32:
			v, ok := floats[f.Name]
			if !ok {
				continue
			}
			if err := b.CopyThrough(f.Offset); err != nil {
				return nil, buildFail("build_sprite", err)
			}
			if err := b.ReplaceFloat32(v); err != nil {
				return nil, buildFail("build_sprite", err)
			}
		case f.Name == "texture_ref" && f.Kind == probe.KindInt64:
			if err := b.CopyThrough(f.Offset); err != nil {
				return nil, buildFail("build_sprite", err)
			}
			if err := b.ReplaceInt64(p.TextureRef); err != nil {
				return nil, buildFail("build_sprite", err)
			}
		}
	}
	if err := b.CopyRest(); err != nil {
		return nil, buildFail("build_sprite", err)
	}
	out, err := b.Bytes()
	if err != nil {
		return nil, buildFail("build_sprite", err)
	}
	return out, nil
}
