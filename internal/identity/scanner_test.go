package identity_test

import (
	"bytes"
	"testing"

	"modforge/internal/binbuf"
	"modforge/internal/identity"
)

func TestScanFindsAlignedName(t *testing.T) {
	w := binbuf.NewWriter()
	w.Bytes([]byte{0xDE, 0xAD, 0xBE, 0xEF, 0x10, 0x00, 0x00, 0x00})
	nameOffset := w.Len()
	w.AlignedString("weapon.rifle_base")
	w.Bytes(bytes.Repeat([]byte{0x99}, 16))

	m, ok := identity.Scan(w.Out(), 64)
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Name != "weapon.rifle_base" {
		t.Fatalf("matched %q", m.Name)
	}
	if m.Offset != nameOffset {
		t.Fatalf("matched at %d, want %d", m.Offset, nameOffset)
	}
}

func TestScanFindsUnalignedName(t *testing.T) {
	w := binbuf.NewWriter()
	w.Bytes([]byte{1, 2, 3}) // knock candidates off 4-byte alignment
	w.AlignedString("ui.icon_ammo_9mm")

	m, ok := identity.Scan(w.Out(), 64)
	if !ok || m.Name != "ui.icon_ammo_9mm" {
		t.Fatalf("match = %+v, ok = %v", m, ok)
	}
	if m.Offset != 3 {
		t.Fatalf("offset = %d, want 3", m.Offset)
	}
}

func TestScanTiesBreakToLowestOffset(t *testing.T) {
	w := binbuf.NewWriter()
	w.AlignedString("weapon.rifle_base")
	w.AlignedString("weapon.rifle_base.id_0001")

	m, ok := identity.Scan(w.Out(), 256)
	if !ok || m.Name != "weapon.rifle_base" {
		t.Fatalf("expected first occurrence, got %+v ok=%v", m, ok)
	}
	if m.Offset != 0 {
		t.Fatalf("offset = %d", m.Offset)
	}
}

func TestScanFromSkipsPrimaryName(t *testing.T) {
	w := binbuf.NewWriter()
	w.AlignedString("weapon.rifle_base")
	afterName := w.Len()
	w.Bytes(bytes.Repeat([]byte{0x42}, 12))
	w.AlignedString("weapon.rifle_base.id_0001")

	m, ok := identity.ScanFrom(w.Out(), afterName, 256)
	if !ok || m.Name != "weapon.rifle_base.id_0001" {
		t.Fatalf("match = %+v, ok = %v", m, ok)
	}
}

func TestScanRespectsWindow(t *testing.T) {
	w := binbuf.NewWriter()
	w.Bytes(bytes.Repeat([]byte{0}, 40))
	w.AlignedString("weapon.rifle_base")

	if _, ok := identity.Scan(w.Out(), 8); ok {
		t.Fatal("match found outside search window")
	}
	if _, ok := identity.Scan(w.Out(), 64); !ok {
		t.Fatal("match missing inside search window")
	}
}

func TestScanNeverReadsPastEnd(t *testing.T) {
	// Length prefix claims more bytes than the buffer holds.
	buf := []byte{0x20, 0x00, 0x00, 0x00, 'a', 'b', '.', 'c'}
	if _, ok := identity.Scan(buf, 64); ok {
		t.Fatal("matched a truncated token")
	}
	if _, ok := identity.Scan(nil, 64); ok {
		t.Fatal("matched in empty buffer")
	}
}

func TestValidShapes(t *testing.T) {
	valid := []string{
		"weapon.rifle_base",
		"ui.icon_9",
		"fx_smoke.puff_01.small",
		"ab.c12",
	}
	for _, name := range valid {
		if !identity.Valid(name) {
			t.Fatalf("expected %q to be valid", name)
		}
	}
	invalid := []string{
		"",
		"a.bc",                         // prefix too short
		"Weapon.rifle",                 // uppercase prefix
		"weapon.Rifle",                 // uppercase suffix
		"weaponrifle",                  // no separator
		"weapon.",                      // empty suffix
		"toolongprefixtoolongprefix.x", // prefix beyond 20
		"we apon.rifle",                // space
	}
	for _, name := range invalid {
		if identity.Valid(name) {
			t.Fatalf("expected %q to be invalid", name)
		}
	}
}
