// Package container reads and writes the engine's serialized object
// container format.
//
// A container is a header (magic, structural version, engine version string)
// followed by a record table and a data region holding each record's opaque
// byte payload. Records carry (numericID, typeTag, scriptIndex) metadata in
// the table; their identity strings live inside the payload bytes and are
// recovered by the identity scanner, not by this package.
//
// A container is loaded once per compile pass, mutated in memory, and
// serialized to new files only. The original input file is never rewritten in
// place.
package container
