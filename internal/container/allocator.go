package container

// IDAllocator hands out numeric ids for new records. Ids are monotonically
// increasing and never reused, even when the record they were allocated for
// fails to build; a gap in the id space is harmless, a collision is not.
//
// One allocator is owned by one compile pass and threaded explicitly through
// every stage. There is no package-level counter.
type IDAllocator struct {
	next int64
}

// NewIDAllocator returns an allocator whose first id is after+1.
func NewIDAllocator(after int64) *IDAllocator {
	return &IDAllocator{next: after + 1}
}

// ForContainer returns an allocator starting past the container's highest
// existing id.
func ForContainer(c *Container) *IDAllocator {
	return NewIDAllocator(c.MaxNumericID())
}

// Next returns a fresh id. The id is consumed whether or not the caller's
// record ends up in the container.
func (a *IDAllocator) Next() int64 {
	id := a.next
	a.next++
	return id
}

// Peek returns the id the next call to Next will produce.
func (a *IDAllocator) Peek() int64 {
	return a.next
}
