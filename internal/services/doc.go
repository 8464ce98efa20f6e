// Package services defines shared utilities consumed by the compile pipeline
// stages.
//
// Key responsibilities:
//   - Context helpers that stamp asset names, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the compile error taxonomy (probing, identity, decode, structural,
//     serialization) so the orchestrator can decide between a per-item
//     warning and a terminal failure.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
