// Package selection implements the global selection-ownership table
// (spec.md §4.7): SetSelectionOwner/GetSelectionOwner/ConvertSelection.
// New code; no teacher equivalent (a client never owns a selection),
// grounded on the SendClientMessage/SetSelectionOwner request shapes in
// the teacher's x11/window.go.
package selection

import (
	"sync"

	"github.com/KarpelesLab/x11anywhere/internal/proto"
)

// Owner records the current owner of one selection atom.
type Owner struct {
	Window    proto.ResourceID
	Timestamp proto.Timestamp
}

// Table is the mutex-guarded global selection->owner map. There is one
// Table per server (selections are not per-client).
type Table struct {
	mu      sync.Mutex
	owners  map[proto.Atom]Owner
}

// New creates an empty selection table.
func New() *Table {
	return &Table{owners: make(map[proto.Atom]Owner)}
}

// SetOwner implements SetSelectionOwner. A window of proto.None clears
// ownership. Per spec.md §4.7, the request succeeds unconditionally
// (clients are trusted to pass a monotonic timestamp); this
// implementation does not reject stale timestamps.
func (t *Table) SetOwner(sel proto.Atom, win proto.ResourceID, ts proto.Timestamp) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if win == proto.None {
		delete(t.owners, sel)
		return
	}
	t.owners[sel] = Owner{Window: win, Timestamp: ts}
}

// GetOwner implements GetSelectionOwner, returning proto.None if
// unowned.
func (t *Table) GetOwner(sel proto.Atom) proto.ResourceID {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.owners[sel]
	if !ok {
		return proto.None
	}
	return o.Window
}

// ClearOwnerForWindow clears any selection owned by win, used when win
// is destroyed (spec.md §4.7's implicit SelectionClear on destroy),
// returning the cleared selection atoms so the caller can emit
// SelectionClear events.
func (t *Table) ClearOwnerForWindow(win proto.ResourceID) []proto.Atom {
	t.mu.Lock()
	defer t.mu.Unlock()
	var cleared []proto.Atom
	for sel, o := range t.owners {
		if o.Window == win {
			cleared = append(cleared, sel)
			delete(t.owners, sel)
		}
	}
	return cleared
}
