// Package identity locates the stable identity strings embedded inside
// opaque record payloads.
//
// The target build ships no schema, so the scanner works from shape alone: a
// 4-byte little-endian length prefix followed by an ASCII token of the form
// prefix.suffix, where the prefix is 2-20 lowercase letters or underscores
// and the suffix is at least one lowercase letter, digit, underscore, or dot.
// Engine-generated names ("weapon.rifle_base", "ui.icon_ammo_9mm") follow
// this shape; incidental binary data essentially never does.
package identity

import "encoding/binary"

const (
	// MinLength and MaxLength bound a plausible identity token.
	MinLength = 5
	MaxLength = 100

	minPrefix = 2
	maxPrefix = 20
)

// Match is a located identity string and the byte offset of its length
// prefix within the scanned buffer.
type Match struct {
	Name   string
	Offset int
}

// Scan searches data from the start, considering candidate offsets up to
// window bytes in. It returns the first (lowest offset) match. The scanner
// never reads past the end of data.
func Scan(data []byte, window int) (Match, bool) {
	return ScanFrom(data, 0, window)
}

// ScanFrom behaves like Scan but starts at the given offset; window still
// counts candidate offsets from start. Used to find the stable-ID string
// that follows a record's primary name.
func ScanFrom(data []byte, start, window int) (Match, bool) {
	if start < 0 || window <= 0 {
		return Match{}, false
	}
	limit := start + window
	if max := len(data) - 4 - MinLength; limit > max {
		limit = max
	}
	for off := start; off <= limit; off++ {
		n := int(binary.LittleEndian.Uint32(data[off:]))
		if n < MinLength || n > MaxLength {
			continue
		}
		if off+4+n > len(data) {
			continue
		}
		if token := data[off+4 : off+4+n]; validToken(token) {
			return Match{Name: string(token), Offset: off}, true
		}
	}
	return Match{}, false
}

// Valid reports whether a string has the identity shape. New names supplied
// for clones and built assets must pass this before they are spliced into a
// record, or the scanner would not find them again.
func Valid(name string) bool {
	if len(name) < MinLength || len(name) > MaxLength {
		return false
	}
	return validToken([]byte(name))
}

func validToken(token []byte) bool {
	dot := -1
	for i, b := range token {
		if b == '.' {
			dot = i
			break
		}
	}
	if dot < minPrefix || dot > maxPrefix {
		return false
	}
	for _, b := range token[:dot] {
		if !isLower(b) && b != '_' {
			return false
		}
	}
	suffix := token[dot+1:]
	if len(suffix) == 0 {
		return false
	}
	for _, b := range suffix {
		if !isLower(b) && !isDigit(b) && b != '_' && b != '.' {
			return false
		}
	}
	return true
}

func isLower(b byte) bool { return b >= 'a' && b <= 'z' }

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
