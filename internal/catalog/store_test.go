package catalog_test

import (
	"context"
	"testing"
	"time"

	"modforge/internal/catalog"
	"modforge/internal/container"
	"modforge/internal/testsupport"
)

func openStore(t *testing.T) *catalog.Store {
	t.Helper()
	return testsupport.MustOpenCatalog(t, testsupport.NewConfig(t))
}

func TestReplaceAndLookup(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	scan := &catalog.ContainerScan{
		Fingerprint:       "abc123",
		Path:              "/data/resources.assets",
		StructuralVersion: 17,
		EngineVersion:     "2021.3.16f1",
		ScannedAt:         time.Now().UTC(),
		Records: []catalog.RecordScan{
			{NumericID: 2, TypeTag: container.TypeTexture, Name: "ui.icon_ammo", NameOffset: 0},
			{NumericID: 1, TypeTag: container.TypeDataRecord, Name: "unit.rifleman", NameOffset: 0},
		},
	}
	if err := store.Replace(ctx, scan); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	got, ok, err := store.Lookup(ctx, "abc123")
	if err != nil || !ok {
		t.Fatalf("Lookup: ok=%v err=%v", ok, err)
	}
	if got.StructuralVersion != 17 || got.EngineVersion != "2021.3.16f1" {
		t.Fatalf("container fields = %+v", got)
	}
	if len(got.Records) != 2 || got.Records[0].NumericID != 1 || got.Records[1].Name != "ui.icon_ammo" {
		t.Fatalf("records = %+v", got.Records)
	}

	// Replacing the same fingerprint discards the old rows entirely.
	scan.Records = scan.Records[:1]
	if err := store.Replace(ctx, scan); err != nil {
		t.Fatalf("second Replace: %v", err)
	}
	got, ok, err = store.Lookup(ctx, "abc123")
	if err != nil || !ok {
		t.Fatalf("Lookup after replace: ok=%v err=%v", ok, err)
	}
	if len(got.Records) != 1 {
		t.Fatalf("stale records survived: %+v", got.Records)
	}
}

func TestLookupMissingAndForget(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if _, ok, err := store.Lookup(ctx, "nope"); ok || err != nil {
		t.Fatalf("missing lookup: ok=%v err=%v", ok, err)
	}
	if err := store.Replace(ctx, &catalog.ContainerScan{Fingerprint: "zzz", Path: "p", ScannedAt: time.Now()}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := store.Forget(ctx, "zzz"); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if _, ok, _ := store.Lookup(ctx, "zzz"); ok {
		t.Fatal("scan survived Forget")
	}
}

func TestScanContainer(t *testing.T) {
	c := testsupport.NewContainer(1,
		&container.Record{TypeTag: container.TypeDataRecord, Data: testsupport.DataRecord("unit.rifleman", []int32{10}, []byte{1, 2, 3, 4}, "unit.rifleman.id_0001")},
		&container.Record{TypeTag: container.TypeDataRecord, Data: []byte{0xFF, 0xFF, 0xFF, 0xFF, 0, 0, 0, 0, 0, 0}},
	)
	scan := catalog.ScanContainer(c, "/data/resources.assets", "fp", 256)
	if len(scan.Records) != 1 {
		t.Fatalf("scanned %d records, want the single named one", len(scan.Records))
	}
	if scan.Records[0].Name != "unit.rifleman" || scan.Records[0].NumericID != 1 {
		t.Fatalf("scan = %+v", scan.Records[0])
	}
}
