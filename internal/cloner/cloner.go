// Package cloner duplicates asset records under a new identity. A record
// carries its identity twice, as the primary name string at the head and as
// a stable-ID string somewhere in the trailing metadata; the clone rewrites
// both when it can.
package cloner

import (
	"fmt"

	"modforge/internal/binbuf"
	"modforge/internal/container"
	"modforge/internal/identity"
	"modforge/internal/services"
)

// Result is a completed clone. Degraded clones carry the new name but kept
// the source's stable-ID; the runtime still finds them by name.
type Result struct {
	Data     []byte
	Degraded bool
	Warning  string
}

// Clone duplicates source bytes under newIdentity. The name patch comes
// first because its offset is fixed at the record head; the stable-ID patch
// uses the scanned offset shifted by the name's size delta, and is skipped
// with a warning when that shifted offset no longer lands inside the buffer.
func Clone(source []byte, newIdentity string, window int) (*Result, error) {
	if !identity.Valid(newIdentity) {
		return nil, services.Wrap(services.ErrValidation, "clone", "clone_record",
			fmt.Sprintf("%q is not a valid identity", newIdentity), nil)
	}

	r := binbuf.NewReader(source)
	oldName, err := r.AlignedString(identity.MaxLength)
	if err != nil {
		return nil, services.Wrap(services.ErrStructural, "clone", "clone_record",
			"record does not start with a name string", err)
	}
	if !identity.Valid(oldName) {
		return nil, services.Wrap(services.ErrStructural, "clone", "clone_record",
			fmt.Sprintf("record name %q is not a plausible identity", oldName), nil)
	}
	nameEnd := r.Pos()
	nameDelta := binbuf.AlignedStringSize(len(newIdentity)) - binbuf.AlignedStringSize(len(oldName))

	b := binbuf.NewBuilder(source)
	if err := b.ReplaceAlignedString(newIdentity); err != nil {
		return nil, services.Wrap(services.ErrStructural, "clone", "clone_record",
			"rewrite name string", err)
	}

	idMatch, found := identity.ScanFrom(source, nameEnd, window)
	degradedWhy := ""
	if !found {
		degradedWhy = "no stable-ID string found within scan window"
	} else {
		shifted := idMatch.Offset + nameDelta
		idSize := binbuf.AlignedStringSize(len(idMatch.Name))
		if shifted < 0 || shifted+idSize > len(source)+nameDelta {
			degradedWhy = fmt.Sprintf("shifted stable-ID offset %d out of bounds", shifted)
		}
	}
	if degradedWhy != "" {
		if err := b.CopyRest(); err != nil {
			return nil, services.Wrap(services.ErrStructural, "clone", "clone_record", "copy record tail", err)
		}
		data, err := b.Bytes()
		if err != nil {
			return nil, services.Wrap(services.ErrStructural, "clone", "clone_record", "assemble clone", err)
		}
		return &Result{
			Data:     data,
			Degraded: true,
			Warning:  fmt.Sprintf("clone %q: %s; name patched only", newIdentity, degradedWhy),
		}, nil
	}

	if err := b.CopyThrough(idMatch.Offset); err != nil {
		return nil, services.Wrap(services.ErrStructural, "clone", "clone_record", "copy through stable-ID", err)
	}
	if err := b.ReplaceAlignedString(newIdentity); err != nil {
		return nil, services.Wrap(services.ErrStructural, "clone", "clone_record", "rewrite stable-ID", err)
	}
	if err := b.CopyRest(); err != nil {
		return nil, services.Wrap(services.ErrStructural, "clone", "clone_record", "copy record tail", err)
	}
	data, err := b.Bytes()
	if err != nil {
		return nil, services.Wrap(services.ErrStructural, "clone", "clone_record", "assemble clone", err)
	}
	return &Result{Data: data}, nil
}

// CloneRecord clones a container record, assigning the duplicate a fresh
// numeric id and carrying over the source's type tag and script index.
func CloneRecord(rec *container.Record, newIdentity string, window int, alloc *container.IDAllocator) (*container.Record, *Result, error) {
	res, err := Clone(rec.Data, newIdentity, window)
	if err != nil {
		return nil, nil, err
	}
	clone := &container.Record{
		NumericID:   alloc.Next(),
		TypeTag:     rec.TypeTag,
		ScriptIndex: rec.ScriptIndex,
		Data:        res.Data,
	}
	return clone, res, nil
}
