package globalindex_test

import (
	"bytes"
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"modforge/internal/binbuf"
	"modforge/internal/globalindex"
)

func buildTable(tail []byte, entries ...globalindex.Entry) []byte {
	w := binbuf.NewWriter()
	w.Uint32(uint32(len(entries)))
	for _, e := range entries {
		w.AlignedString(e.Path)
		w.Int32(e.OriginType)
		w.Int64(e.NumericID)
	}
	w.Bytes(tail)
	return w.Out()
}

func TestParseSerializeRoundTrip(t *testing.T) {
	tail := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02}
	raw := buildTable(tail,
		globalindex.Entry{Path: "assets/audio/shot.wav", OriginType: 0, NumericID: 12},
		globalindex.Entry{Path: "assets/textures/gun.png", OriginType: 0, NumericID: 7},
	)
	table, err := globalindex.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(table.Entries) != 2 {
		t.Fatalf("parsed %d entries", len(table.Entries))
	}
	if !bytes.Equal(table.Serialize(), raw) {
		t.Fatal("round trip of already-sorted table altered bytes")
	}
}

func TestParseRejectsDuplicatesAndTruncation(t *testing.T) {
	dup := buildTable(nil,
		globalindex.Entry{Path: "assets/a.png", NumericID: 1},
		globalindex.Entry{Path: "assets/a.png", NumericID: 2},
	)
	if _, err := globalindex.Parse(dup); err == nil {
		t.Fatal("expected duplicate-path failure")
	}
	truncated := buildTable(nil, globalindex.Entry{Path: "assets/a.png", NumericID: 1})
	if _, err := globalindex.Parse(truncated[:len(truncated)-4]); err == nil {
		t.Fatal("expected truncation failure")
	}
}

func TestReplaceIsIdempotent(t *testing.T) {
	raw := buildTable(nil, globalindex.Entry{Path: "assets/textures/gun.png", OriginType: 0, NumericID: 7})
	table, err := globalindex.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if replaced := table.Set("assets/textures/gun.png", 0, 100); !replaced {
		t.Fatal("first Set should replace")
	}
	if replaced := table.Set("assets/textures/gun.png", 0, 200); !replaced {
		t.Fatal("second Set should replace")
	}
	if len(table.Entries) != 1 {
		t.Fatalf("entry count %d after double replace", len(table.Entries))
	}
	e, ok := table.Lookup("assets/textures/gun.png")
	if !ok || e.NumericID != 200 {
		t.Fatalf("lookup after replace = %+v, ok=%v", e, ok)
	}
}

func TestInsertKeepsSortedPosition(t *testing.T) {
	raw := buildTable(nil,
		globalindex.Entry{Path: "assets/a.png", NumericID: 1},
		globalindex.Entry{Path: "assets/z.png", NumericID: 2},
	)
	table, err := globalindex.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if replaced := table.Set("assets/m.png", 0, 3); replaced {
		t.Fatal("Set of a new path must insert, not replace")
	}
	out, err := globalindex.Parse(table.Serialize())
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if len(out.Entries) != 3 || out.Entries[1].Path != "assets/m.png" {
		t.Fatalf("entries after insert: %+v", out.Entries)
	}
}

func TestSerializeIsStrictlySortedUnderRandomMutations(t *testing.T) {
	rng := rand.New(rand.NewSource(41))
	table := &globalindex.Table{Tail: []byte{0x00, 0x01}}
	for i := 0; i < 200; i++ {
		// Duplicate paths exercise the replace branch alongside inserts.
		path := fmt.Sprintf("assets/gen/%03d.asset", rng.Intn(120))
		table.Set(path, int32(rng.Intn(3)), int64(i))
	}
	out, err := globalindex.Parse(table.Serialize())
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if !sort.SliceIsSorted(out.Entries, func(i, j int) bool {
		return out.Entries[i].Path < out.Entries[j].Path
	}) {
		t.Fatal("serialized entries not sorted by path")
	}
	for i := 1; i < len(out.Entries); i++ {
		if out.Entries[i-1].Path == out.Entries[i].Path {
			t.Fatalf("duplicate path %q survived", out.Entries[i].Path)
		}
	}
	if !bytes.Equal(out.Tail, []byte{0x00, 0x01}) {
		t.Fatal("tail not preserved")
	}
}
