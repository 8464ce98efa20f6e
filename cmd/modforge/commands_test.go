package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"modforge/internal/config"
	"modforge/internal/container"
	"modforge/internal/globalindex"
	"modforge/internal/testsupport"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()

	encoded, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "modforge dev") {
		t.Fatalf("version output = %q", out)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("init output = %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
	if _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestInspectListsRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Paths.GameDataDir, 0o755); err != nil {
		t.Fatalf("mkdir game data: %v", err)
	}

	c := testsupport.NewContainer(1,
		&container.Record{
			TypeTag: container.TypeTexture,
			Data:    testsupport.TextureRecord("ui.icon_ammo", 4, 4, make([]byte, 64), "ui.icon_ammo.id_01"),
		},
		&container.Record{
			TypeTag: container.TypeDataRecord,
			Data:    testsupport.DataRecord("weapon.rifle_base", []int32{3}, []byte(`{"damage":10}`), "weapon.rifle_base.id_02"),
		},
	)
	if err := c.WriteFile(cfg.PrimaryContainerPath()); err != nil {
		t.Fatalf("write container: %v", err)
	}
	cfgPath := writeTestConfig(t, cfg)

	out, err := runCLI(t, "--config", cfgPath, "inspect", "--json")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}

	var report struct {
		StructuralVersion uint32       `json:"structural_version"`
		Records           []recordView `json:"records"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode inspect output: %v\n%s", err, out)
	}
	if report.StructuralVersion != 17 {
		t.Fatalf("structural version = %d", report.StructuralVersion)
	}
	if len(report.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(report.Records))
	}
	if report.Records[0].Name != "ui.icon_ammo" || report.Records[0].TypeTag != container.TypeTexture {
		t.Fatalf("first record = %+v", report.Records[0])
	}
	if report.Records[1].Name != "weapon.rifle_base" {
		t.Fatalf("second record = %+v", report.Records[1])
	}
}

func TestIndexDumpsEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Paths.GameDataDir, 0o755); err != nil {
		t.Fatalf("mkdir game data: %v", err)
	}

	table := &globalindex.Table{}
	table.Set("assets/ui/icon_ammo.png", container.TypeTexture, 42)
	table.Set("assets/sfx/shot.wav", container.TypeAudioClip, 7)

	c := testsupport.NewContainer(1, &container.Record{
		TypeTag: container.TypeGlobalIndex,
		Data:    table.Serialize(),
	})
	if err := c.WriteFile(cfg.GlobalIndexPath()); err != nil {
		t.Fatalf("write index container: %v", err)
	}
	cfgPath := writeTestConfig(t, cfg)

	out, err := runCLI(t, "--config", cfgPath, "index")
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if !strings.Contains(out, "2 entries") {
		t.Fatalf("index output missing entry count:\n%s", out)
	}
	// Serialization sorts by path, so the wav entry renders first.
	wavAt := strings.Index(out, "assets/sfx/shot.wav")
	pngAt := strings.Index(out, "assets/ui/icon_ammo.png")
	if wavAt < 0 || pngAt < 0 || wavAt > pngAt {
		t.Fatalf("entries missing or unsorted:\n%s", out)
	}
}

func TestInspectMissingContainerFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfgPath := writeTestConfig(t, cfg)

	if _, err := runCLI(t, "--config", cfgPath, "inspect"); err == nil {
		t.Fatal("expected inspect of missing container to fail")
	}
}
