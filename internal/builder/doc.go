// Package builder constructs native asset records from external media
// files, using a structurally similar existing record as a byte template.
// Fixed-width fields are rewritten in place; only the identity string and
// the trailing payload ever change size.
package builder
