package builder

import (
	"fmt"

	"modforge/internal/binbuf"
	"modforge/internal/identity"
	"modforge/internal/probe"
	"modforge/internal/services"
)

// formatRGBA32 is the uncompressed 8-bit-per-channel format code emitted for
// every rebuilt texture. Re-encoding into the template's compressed format is
// deliberately avoided; the engine accepts RGBA32 for any texture slot.
const formatRGBA32 = 4

// Texture builds a native texture record from an image file. The template
// record supplies every byte the decoded image does not dictate.
func Texture(template []byte, table *probe.OffsetTable, sourcePath, newIdentity string) ([]byte, error) {
	if !identity.Valid(newIdentity) {
		return nil, services.Wrap(services.ErrValidation, "media", "build_texture",
			fmt.Sprintf("%q is not a valid identity", newIdentity), nil)
	}
	img, err := decodeRGBA(sourcePath)
	if err != nil {
		return nil, services.Wrap(services.ErrDecode, "media", "build_texture",
			"decode source image", err)
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w < 1 || w > probe.MaxDimension || h < 1 || h > probe.MaxDimension {
		return nil, services.Wrap(services.ErrValidation, "media", "build_texture",
			fmt.Sprintf("image dimensions %dx%d outside [1, %d]", w, h, probe.MaxDimension), nil)
	}
	payload := bottomUpRGBA(img)

	b := binbuf.NewBuilder(template)
	if err := replaceName(b, table, newIdentity); err != nil {
		return nil, buildFail("build_texture", err)
	}
	values := map[string]int32{
		"width":            int32(w),
		"height":           int32(h),
		"image_byte_count": int32(len(payload)),
		"mip_stripped":     0,
		"format_code":      formatRGBA32,
		"mip_count":        1,
	}
	if err := replaceInt32Fields(b, table, values); err != nil {
		return nil, buildFail("build_texture", err)
	}
	if err := replacePayload(b, table, payload); err != nil {
		return nil, buildFail("build_texture", err)
	}
	out, err := b.Bytes()
	if err != nil {
		return nil, buildFail("build_texture", err)
	}
	return out, nil
}

func buildFail(op string, err error) error {
	return services.Wrap(services.ErrStructural, "media", op, "rebuild record from template", err)
}

// replaceName rewrites the identity string at the head of the record.
func replaceName(b *binbuf.Builder, table *probe.OffsetTable, newIdentity string) error {
	fields := table.Fields()
	if len(fields) == 0 || fields[0].Kind != probe.KindString {
		return fmt.Errorf("offset table has no leading name field")
	}
	if err := b.CopyThrough(fields[0].Offset); err != nil {
		return err
	}
	return b.ReplaceAlignedString(newIdentity)
}

// replaceInt32Fields rewrites the named fixed-width fields in ascending
// template offset order, leaving unnamed fields untouched.
func replaceInt32Fields(b *binbuf.Builder, table *probe.OffsetTable, values map[string]int32) error {
	for _, f := range table.Fields() {
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		if f.Kind != probe.KindInt32 {
			return fmt.Errorf("field %q is %s, not int32", f.Name, f.Kind)
		}
		if err := b.CopyThrough(f.Offset); err != nil {
			return err
		}
		if err := b.ReplaceInt32(v); err != nil {
			return err
		}
	}
	return nil
}

// replacePayload swaps the size-prefixed trailing payload and copies the
// remaining trailer bytes verbatim.
func replacePayload(b *binbuf.Builder, table *probe.OffsetTable, payload []byte) error {
	if err := b.CopyThrough(table.PayloadSizeOffset); err != nil {
		return err
	}
	if err := b.ReplaceSizedBlock(table.PayloadSize, payload); err != nil {
		return err
	}
	return b.CopyRest()
}
