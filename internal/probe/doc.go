// Package probe recovers field byte offsets inside opaque record payloads.
//
// The target build strips type descriptions, so offsets cannot be read from
// the container. Instead each asset kind has a LayoutDescriptor naming its
// fixed field prologue in declared order; Probe walks a record against the
// descriptor, validating every numeric field against a domain plausibility
// range and aborting on the first violation rather than guessing past it.
// The variable trailing payload is then located heuristically: the first
// 4-byte size field past the prologue whose declared length leaves only a
// small trailing metadata block is taken as the payload.
//
// Offset tables are template-specific: optional fields vary between engine
// builds, so a table is recomputed per template record and never persisted.
package probe
