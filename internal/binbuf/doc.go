// Package binbuf provides bounds-checked primitives for reading and
// rebuilding the little-endian record payloads stored in object containers.
//
// Reader is a cursor over an immutable byte slice; every read validates
// bounds before touching the buffer. Builder rebuilds a record from a
// template: unchanged regions are copied verbatim, fixed-width fields are
// replaced in place, and resizable fields (length-prefixed strings, trailing
// payloads) are swapped while the builder tracks the cumulative size delta so
// callers can reconcile downstream offsets.
//
// All record mutation in this repository goes through these two types so the
// offset arithmetic lives in one tested place.
package binbuf
