package patchset_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"modforge/internal/patchset"
	"modforge/internal/services"
)

func writeSet(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "merged.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write set: %v", err)
	}
	return path
}

func TestLoadMergedSet(t *testing.T) {
	path := writeSet(t, `{
		"patches": {
			"UnitTemplate": {
				"unit.rifleman": {"damage": 99, "tags": {"$append": ["elite"]}}
			}
		},
		"clones": {
			"UnitTemplate": {"unit.rifleman_elite": "unit.rifleman"}
		},
		"media": [
			{"kind": "texture", "name": "ui.icon_new", "source": "icon.png", "index_path": "assets/ui/icon_new.png"}
		]
	}`)
	s, err := patchset.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Empty() {
		t.Fatal("set reported empty")
	}
	if got := s.Clones["UnitTemplate"]["unit.rifleman_elite"]; got != "unit.rifleman" {
		t.Fatalf("clone source %q", got)
	}
	fields := s.Patches["UnitTemplate"]["unit.rifleman"]
	if fields["damage"] != float64(99) {
		t.Fatalf("damage = %v (%T)", fields["damage"], fields["damage"])
	}
	if !patchset.IsArrayOp(fields["tags"]) {
		t.Fatal("tags patch not recognized as array op")
	}
	if len(s.Media) != 1 || s.Media[0].Kind != patchset.MediaTexture {
		t.Fatalf("media = %+v", s.Media)
	}
}

func TestLoadRejectsBadSets(t *testing.T) {
	cases := map[string]string{
		"invalid clone name": `{"clones": {"T": {"Not Valid": "unit.src"}}}`,
		"clone without src":  `{"clones": {"T": {"unit.copy_a": ""}}}`,
		"empty patch":        `{"patches": {"T": {"unit.rifleman": {}}}}`,
		"unknown media kind": `{"media": [{"kind": "video", "name": "ui.clip_a", "source": "a.mp4"}]}`,
		"media without file": `{"media": [{"kind": "audio", "name": "sfx.shot_a", "source": ""}]}`,
	}
	for name, body := range cases {
		if _, err := patchset.Load(writeSet(t, body)); !errors.Is(err, services.ErrConfiguration) {
			t.Errorf("%s: err = %v, want configuration failure", name, err)
		}
	}
}

func TestIsArrayOp(t *testing.T) {
	if patchset.IsArrayOp(map[string]any{"$append": []any{1}, "other": 2}) {
		t.Fatal("mixed keys must not count as an array op")
	}
	if patchset.IsArrayOp(42) || patchset.IsArrayOp(map[string]any{}) {
		t.Fatal("non-directive values recognized as array ops")
	}
	if !patchset.IsArrayOp(map[string]any{"$remove": []any{"x"}}) {
		t.Fatal("pure directive not recognized")
	}
}

func TestApplyOpsOrder(t *testing.T) {
	current := []any{
		map[string]any{"name": "a", "damage": float64(1)},
		"b",
		map[string]any{"name": "c", "damage": float64(3)},
		"d",
	}
	out, err := patchset.ApplyOps(current, map[string]any{
		"$remove": []any{float64(1)},
		// Indices apply to the post-removal array: [a c d].
		"$update": map[string]any{"1": map[string]any{"damage": float64(30)}},
		"$append": []any{"e"},
	})
	if err != nil {
		t.Fatalf("ApplyOps: %v", err)
	}
	want := []any{
		map[string]any{"name": "a", "damage": float64(1)},
		map[string]any{"name": "c", "damage": float64(30)},
		"d",
		"e",
	}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("result %v, want %v", out, want)
	}
	if len(current) != 4 || current[1] != "b" {
		t.Fatalf("input mutated: %v", current)
	}
}

func TestApplyOpsRemovesByIndex(t *testing.T) {
	out, err := patchset.ApplyOps([]any{"alpha", "beta", "gamma"}, map[string]any{
		"$remove": []any{float64(0)},
	})
	if err != nil {
		t.Fatalf("ApplyOps: %v", err)
	}
	if !reflect.DeepEqual(out, []any{"beta", "gamma"}) {
		t.Fatalf("result %v, want [beta gamma]", out)
	}
	// Duplicate indices drop the element once.
	out, err = patchset.ApplyOps([]any{"alpha", "beta", "gamma"}, map[string]any{
		"$remove": []any{float64(2), float64(0), float64(2)},
	})
	if err != nil {
		t.Fatalf("ApplyOps: %v", err)
	}
	if !reflect.DeepEqual(out, []any{"beta"}) {
		t.Fatalf("result %v, want [beta]", out)
	}
}

func TestApplyOpsUpdateMergesFields(t *testing.T) {
	out, err := patchset.ApplyOps(
		[]any{map[string]any{"damage": float64(1), "name": "x"}},
		map[string]any{"$update": map[string]any{"0": map[string]any{"damage": float64(5)}}},
	)
	if err != nil {
		t.Fatalf("ApplyOps: %v", err)
	}
	want := []any{map[string]any{"damage": float64(5), "name": "x"}}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("result %v, want %v", out, want)
	}
}

func TestApplyOpsErrors(t *testing.T) {
	obj := map[string]any{"damage": float64(5)}
	cases := map[string]map[string]any{
		"out-of-range update":      {"$update": map[string]any{"5": obj}},
		"non-object update value":  {"$update": map[string]any{"0": float64(9)}},
		"update of scalar element": {"$update": map[string]any{"0": obj}},
		"$remove not a list":       {"$remove": "not-a-list"},
		"$remove value not index":  {"$remove": []any{"a"}},
		"$remove index fractional": {"$remove": []any{1.5}},
		"$remove out of range":     {"$remove": []any{float64(3)}},
	}
	for name, directive := range cases {
		if _, err := patchset.ApplyOps([]any{float64(1)}, directive); err == nil {
			t.Errorf("%s: expected failure", name)
		}
	}
}
