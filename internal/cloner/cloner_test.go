package cloner_test

import (
	"bytes"
	"errors"
	"testing"

	"modforge/internal/binbuf"
	"modforge/internal/cloner"
	"modforge/internal/container"
	"modforge/internal/identity"
	"modforge/internal/services"
	"modforge/internal/testsupport"
)

func TestCloneRewritesBothIdentityFields(t *testing.T) {
	src := testsupport.TextureRecord("ui.icon_ammo", 8, 8, bytes.Repeat([]byte{0x5A}, 64), "ui.icon_ammo.id_0042")
	res, err := cloner.Clone(src, "ui.icon_copy", len(src))
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if res.Degraded {
		t.Fatalf("unexpected degraded clone: %s", res.Warning)
	}

	m, ok := identity.Scan(res.Data, 64)
	if !ok || m.Name != "ui.icon_copy" || m.Offset != 0 {
		t.Fatalf("name scan = %+v, ok=%v", m, ok)
	}
	nameEnd := binbuf.AlignedStringSize(len("ui.icon_copy"))
	id, ok := identity.ScanFrom(res.Data, nameEnd, len(res.Data))
	if !ok || id.Name != "ui.icon_copy" {
		t.Fatalf("stable-ID scan = %+v, ok=%v", id, ok)
	}

	nameDelta := binbuf.AlignedStringSize(len("ui.icon_copy")) - binbuf.AlignedStringSize(len("ui.icon_ammo"))
	idDelta := binbuf.AlignedStringSize(len("ui.icon_copy")) - binbuf.AlignedStringSize(len("ui.icon_ammo.id_0042"))
	if got := len(res.Data) - len(src); got != nameDelta+idDelta {
		t.Fatalf("size delta %d, want %d", got, nameDelta+idDelta)
	}
}

func TestCloneDegradesWhenStableIDMissing(t *testing.T) {
	src := testsupport.DataRecord("unit.rifleman", []int32{10, 20}, []byte{1, 2, 3, 4}, "")
	res, err := cloner.Clone(src, "unit.rifleman_elite", len(src))
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if !res.Degraded || res.Warning == "" {
		t.Fatal("expected degraded clone with a warning")
	}
	m, ok := identity.Scan(res.Data, 64)
	if !ok || m.Name != "unit.rifleman_elite" {
		t.Fatalf("name scan = %+v, ok=%v", m, ok)
	}
}

func TestCloneDegradesOnTruncatedStableID(t *testing.T) {
	// A stable-ID whose 4-byte alignment padding is cut off at the buffer
	// end scans fine but cannot be rewritten in place.
	w := binbuf.NewWriter()
	w.AlignedString("unit.rifleman")
	w.Int32(7)
	src := append(w.Out(), []byte{5, 0, 0, 0, 'a', 'b', '.', 'c', 'd'}...)

	res, err := cloner.Clone(src, "unit.rifleman_elite", len(src))
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if !res.Degraded {
		t.Fatal("expected degraded clone")
	}
}

func TestCloneRejectsInvalidInputs(t *testing.T) {
	src := testsupport.DataRecord("unit.rifleman", nil, []byte{1, 2, 3, 4}, "")
	if _, err := cloner.Clone(src, "BAD NAME", len(src)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("invalid identity: err = %v", err)
	}
	junk := []byte{0xFF, 0xFF, 0xFF, 0xFF, 1, 2, 3}
	if _, err := cloner.Clone(junk, "unit.ok_name", len(junk)); !errors.Is(err, services.ErrStructural) {
		t.Fatalf("junk record: err = %v", err)
	}
}

func TestCloneRecordAllocatesFreshID(t *testing.T) {
	rec := &container.Record{
		NumericID:   40,
		TypeTag:     container.TypeDataRecord,
		ScriptIndex: 3,
		Data:        testsupport.DataRecord("unit.rifleman", []int32{10}, []byte{1, 2, 3, 4}, "unit.rifleman.id_0040"),
	}
	alloc := container.NewIDAllocator(100)
	clone, res, err := cloner.CloneRecord(rec, "unit.rifleman_elite", len(rec.Data), alloc)
	if err != nil {
		t.Fatalf("CloneRecord: %v", err)
	}
	if clone.NumericID != 101 || clone.TypeTag != rec.TypeTag || clone.ScriptIndex != rec.ScriptIndex {
		t.Fatalf("clone metadata = %+v", clone)
	}
	if res.Degraded {
		t.Fatalf("unexpected degraded clone: %s", res.Warning)
	}
	if bytes.Equal(clone.Data, rec.Data) {
		t.Fatal("clone bytes identical to source")
	}
}
