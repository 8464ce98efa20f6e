package compile

import "time"

// Stage names the steps of a compile pass in execution order.
type Stage string

const (
	StageIdle             Stage = "idle"
	StageLoadContainer    Stage = "load_container"
	StageProcessClones    Stage = "process_clones"
	StageProcessPatches   Stage = "process_replacements_and_patches"
	StageProcessMedia     Stage = "process_media"
	StagePatchGlobalIndex Stage = "patch_global_index"
	StageWriteOutput      Stage = "write_output"
	StageDone             Stage = "done"
	StageFailed           Stage = "failed"
)

// Counts tallies the mutations a pass performed.
type Counts struct {
	Cloned        int `json:"cloned"`
	Patched       int `json:"patched"`
	MediaBuilt    int `json:"media_built"`
	IndexReplaced int `json:"index_replaced"`
	IndexInserted int `json:"index_inserted"`
}

// Result is the aggregate outcome of one compile pass. Per-item problems
// land in Warnings; Success is false only when a stage precondition failed
// outright.
type Result struct {
	Success   bool   `json:"success"`
	Stage     Stage  `json:"stage"`
	SessionID string `json:"session_id"`
	// OutputPath names the written bundle, or the raw container file when
	// the envelope writer failed and the pass degraded.
	OutputPath string `json:"output_path,omitempty"`
	// FallbackManifest is set when no container form could be produced and
	// mutated assets were written as loose files instead.
	FallbackManifest string        `json:"fallback_manifest,omitempty"`
	Message          string        `json:"message,omitempty"`
	Warnings         []string      `json:"warnings,omitempty"`
	Counts           Counts        `json:"counts"`
	Duration         time.Duration `json:"duration_ns"`
}
