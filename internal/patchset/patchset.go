// Package patchset loads the merged mutation requests a compile pass
// consumes: field patches, clones, and media builds. Merging individual mod
// files happens upstream; this package reads one pre-merged set and treats
// it as read-only.
package patchset

import (
	"encoding/json"
	"fmt"
	"os"

	"modforge/internal/identity"
	"modforge/internal/services"
)

// MergedPatchSet maps templateType to instanceName to field name to the new
// value for that field.
type MergedPatchSet map[string]map[string]map[string]any

// MergedCloneSet maps templateType to each requested clone's new name and
// the existing record it duplicates.
type MergedCloneSet map[string]map[string]string

// Media kinds a request may name.
const (
	MediaTexture = "texture"
	MediaAudio   = "audio"
	MediaSprite  = "sprite"
)

// MediaRequest asks for one external file to be built into a record.
type MediaRequest struct {
	// Kind selects the builder: texture, audio, or sprite.
	Kind string `json:"kind"`
	// Name is the identity the built record carries.
	Name string `json:"name"`
	// Template is the identity of an existing record used as the byte
	// template. Empty means any record of the kind's type tag.
	Template string `json:"template,omitempty"`
	// Source is the media file on disk.
	Source string `json:"source"`
	// IndexPath, when set, is the global index path pointed at the new
	// record; an existing path is replaced, a new one inserted.
	IndexPath string `json:"index_path,omitempty"`
}

// Set is one complete merged mutation request.
type Set struct {
	Patches MergedPatchSet `json:"patches,omitempty"`
	Clones  MergedCloneSet `json:"clones,omitempty"`
	Media   []MediaRequest `json:"media,omitempty"`
}

// Load reads and validates a merged set from a JSON file.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, loadFail("read patch set", err)
	}
	var s Set
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, loadFail(fmt.Sprintf("parse %s", path), err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func loadFail(message string, err error) error {
	return services.Wrap(services.ErrConfiguration, "load", "load_patchset", message, err)
}

func (s *Set) validate() error {
	for templateType, clones := range s.Clones {
		for newName, sourceName := range clones {
			if !identity.Valid(newName) {
				return loadFail(fmt.Sprintf("clone target %q under %q is not a valid identity", newName, templateType), nil)
			}
			if sourceName == "" {
				return loadFail(fmt.Sprintf("clone %q under %q has no source", newName, templateType), nil)
			}
		}
	}
	for templateType, instances := range s.Patches {
		for instanceName, fields := range instances {
			if len(fields) == 0 {
				return loadFail(fmt.Sprintf("patch for %q under %q sets no fields", instanceName, templateType), nil)
			}
			for field := range fields {
				if field == "" {
					return loadFail(fmt.Sprintf("patch for %q under %q has an unnamed field", instanceName, templateType), nil)
				}
			}
		}
	}
	for i, m := range s.Media {
		switch m.Kind {
		case MediaTexture, MediaAudio, MediaSprite:
		default:
			return loadFail(fmt.Sprintf("media request %d has unknown kind %q", i, m.Kind), nil)
		}
		if !identity.Valid(m.Name) {
			return loadFail(fmt.Sprintf("media request %d name %q is not a valid identity", i, m.Name), nil)
		}
		if m.Source == "" {
			return loadFail(fmt.Sprintf("media request %d has no source file", i), nil)
		}
	}
	return nil
}

// Empty reports whether the set requests no work at all.
func (s *Set) Empty() bool {
	return len(s.Patches) == 0 && len(s.Clones) == 0 && len(s.Media) == 0
}
