package bridge

import "sync"

// Handle is an opaque reference to a context in a Table.
// Handle 0 is reserved and always invalid.
type Handle uint32

type entry struct {
	ctx   *Context
	valid bool
}

// Table maps dense handles to live contexts. Callers on the far side of
// the boundary hold handles, never pointers. Freed handles are recycled
// through a free list.
//
// Unlike an individual Context, a Table is safe for concurrent use.
type Table struct {
	entries  []entry
	freeList []Handle
	mu       sync.RWMutex
	closed   bool
}

// NewTable creates an empty context table.
func NewTable() *Table {
	return &Table{
		entries:  make([]entry, 0, 16),
		freeList: make([]Handle, 0, 8),
	}
}

// Insert stores a context and returns its handle, or 0 if the table is
// closed or the context is nil.
func (t *Table) Insert(ctx *Context) Handle {
	if ctx == nil {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0
	}

	e := entry{ctx: ctx, valid: true}
	if len(t.freeList) > 0 {
		h := t.freeList[len(t.freeList)-1]
		t.freeList = t.freeList[:len(t.freeList)-1]
		t.entries[h-1] = e
		return h
	}

	t.entries = append(t.entries, e)
	return Handle(len(t.entries))
}

// Get retrieves a context by handle.
func (t *Table) Get(h Handle) (*Context, bool) {
	if h == 0 {
		return nil, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	idx := int(h) - 1
	if idx >= len(t.entries) || !t.entries[idx].valid {
		return nil, false
	}
	return t.entries[idx].ctx, true
}

// Remove drops a handle and closes its context. Removing an invalid or
// already-removed handle is a safe no-op returning false.
func (t *Table) Remove(h Handle) bool {
	if h == 0 {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	idx := int(h) - 1
	if idx >= len(t.entries) || !t.entries[idx].valid {
		return false
	}

	ctx := t.entries[idx].ctx
	t.entries[idx] = entry{}
	t.freeList = append(t.freeList, h)
	ctx.Close()
	return true
}

// Len returns the number of live contexts.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, e := range t.entries {
		if e.valid {
			n++
		}
	}
	return n
}

// Close closes every live context and stops accepting inserts.
func (t *Table) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	for i := range t.entries {
		if t.entries[i].valid {
			t.entries[i].ctx.Close()
			t.entries[i] = entry{}
		}
	}
	t.entries = t.entries[:0]
	t.freeList = t.freeList[:0]
}
