package compile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"modforge/internal/textutil"
)

// writeLooseAssets writes every touched record to a loose file under the
// output directory and returns the manifest path. The manifest maps asset
// name to its relative file location.
func (o *Orchestrator) writeLooseAssets() (string, error) {
	dir := filepath.Join(o.cfg.Paths.OutputDir, "loose")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create loose asset dir: %w", err)
	}

	manifest := make(map[string]string, len(o.touched))
	for _, name := range sortedKeys(o.touched) {
		rec := o.touched[name]
		file := textutil.SanitizeFileName(name) + ".bin"
		if err := os.WriteFile(filepath.Join(dir, file), rec.Data, 0o644); err != nil {
			return "", fmt.Errorf("write loose asset %q: %w", name, err)
		}
		manifest[name] = filepath.Join("loose", file)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize loose manifest: %w", err)
	}
	path := filepath.Join(o.cfg.Paths.OutputDir, "loose_manifest.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write loose manifest: %w", err)
	}
	return path, nil
}
