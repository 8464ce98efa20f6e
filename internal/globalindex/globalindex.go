// Package globalindex patches the runtime loader's path-to-record lookup
// table. The table is consulted by binary search at runtime, so it must stay
// strictly sorted by path under ordinal comparison; a single out-of-order
// entry silently breaks lookups for unrelated paths.
package globalindex

import (
	"fmt"
	"sort"
	"strings"

	"modforge/internal/binbuf"
	"modforge/internal/services"
)

// maxPathLength bounds a single entry's path string. Real tables stay far
// below this; anything larger means the buffer is not an index table.
const maxPathLength = 4096

// Entry maps one asset path to a record reference.
type Entry struct {
	Path       string
	OriginType int32
	NumericID  int64
}

// Table is a parsed global index. Tail holds every byte after the entry
// list (preload table, dependency list) and is written back verbatim.
type Table struct {
	Entries []Entry
	Tail    []byte
}

// Parse reads an entry count followed by (path, originType, numericId)
// tuples. Bytes past the last tuple are captured untouched.
func Parse(data []byte) (*Table, error) {
	r := binbuf.NewReader(data)
	count, err := r.Uint32()
	if err != nil {
		return nil, parseFail("read entry count", err)
	}
	t := &Table{Entries: make([]Entry, 0, count)}
	seen := make(map[string]struct{}, count)
	for i := uint32(0); i < count; i++ {
		path, err := r.AlignedString(maxPathLength)
		if err != nil {
			return nil, parseFail(fmt.Sprintf("read entry %d path", i), err)
		}
		origin, err := r.Int32()
		if err != nil {
			return nil, parseFail(fmt.Sprintf("read entry %d origin type", i), err)
		}
		id, err := r.Int64()
		if err != nil {
			return nil, parseFail(fmt.Sprintf("read entry %d record id", i), err)
		}
		if _, dup := seen[path]; dup {
			return nil, parseFail(fmt.Sprintf("duplicate path %q at entry %d", path, i), nil)
		}
		seen[path] = struct{}{}
		t.Entries = append(t.Entries, Entry{Path: path, OriginType: origin, NumericID: id})
	}
	t.Tail = append([]byte(nil), data[r.Pos():]...)
	return t, nil
}

func parseFail(message string, err error) error {
	return services.Wrap(services.ErrStructural, "index", "parse_index", message, err)
}

// Lookup returns the entry for a path.
func (t *Table) Lookup(path string) (Entry, bool) {
	for _, e := range t.Entries {
		if e.Path == path {
			return e, true
		}
	}
	return Entry{}, false
}

// Set overwrites the target of an existing path or appends a new entry.
// It reports whether an existing entry was replaced. Sorting is deferred to
// Serialize, so mutation order never matters.
func (t *Table) Set(path string, originType int32, numericID int64) bool {
	for i := range t.Entries {
		if t.Entries[i].Path == path {
			t.Entries[i].OriginType = originType
			t.Entries[i].NumericID = numericID
			return true
		}
	}
	t.Entries = append(t.Entries, Entry{Path: path, OriginType: originType, NumericID: numericID})
	return false
}

// Serialize re-emits the whole table from scratch, sorted by ordinal path
// comparison, followed by the preserved tail.
func (t *Table) Serialize() []byte {
	sorted := append([]Entry(nil), t.Entries...)
	sort.Slice(sorted, func(i, j int) bool {
		return strings.Compare(sorted[i].Path, sorted[j].Path) < 0
	})
	w := binbuf.NewWriter()
	w.Uint32(uint32(len(sorted)))
	for _, e := range sorted {
		w.AlignedString(e.Path)
		w.Int32(e.OriginType)
		w.Int64(e.NumericID)
	}
	w.Bytes(t.Tail)
	return w.Out()
}
