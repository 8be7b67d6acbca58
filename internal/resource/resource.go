// Package resource implements the server's typed resource graph: the
// arena-keyed-by-id store described in spec.md §9's re-architecture note,
// covering windows, pixmaps, graphics contexts, cursors, fonts, and
// colormaps under one id space with cascade-destroy semantics (§4.3).
package resource

import (
	"sync"

	"github.com/KarpelesLab/x11anywhere/internal/proto"
)

// Kind identifies what a resource id names.
type Kind uint8

const (
	KindWindow Kind = iota
	KindPixmap
	KindGC
	KindCursor
	KindFont
	KindColormap
)

func (k Kind) String() string {
	switch k {
	case KindWindow:
		return "window"
	case KindPixmap:
		return "pixmap"
	case KindGC:
		return "gcontext"
	case KindCursor:
		return "cursor"
	case KindFont:
		return "font"
	case KindColormap:
		return "colormap"
	default:
		return "unknown"
	}
}

// Entry is one live resource: its kind, owning client, and an opaque
// payload the owning subsystem (wintree, gcontext, ...) controls.
type Entry struct {
	ID      proto.ResourceID
	Kind    Kind
	Owner   ClientID
	Payload interface{}
}

// ClientID identifies a connected client for resource-ownership and
// cascade-destroy-on-disconnect purposes.
type ClientID uint32

// DestroyFunc is called once per destroyed resource so the owning
// subsystem can release its own side state (e.g. wintree removing a
// window from its tree, gcontext freeing dash lists).
type DestroyFunc func(Entry)

// Table is the mutex-guarded resource graph. It does not know how to
// interpret a Payload; it only tracks id -> Entry and enforces the
// "destroying a resource that doesn't exist is an error" invariant
// (spec.md §3, §8). Create does not check the per-client id partition;
// callers check it with InRange.
type Table struct {
	mu      sync.Mutex
	entries map[proto.ResourceID]Entry
	byOwner map[ClientID]map[proto.ResourceID]struct{}
}

// NewTable creates an empty resource table.
func NewTable() *Table {
	return &Table{
		entries: make(map[proto.ResourceID]Entry),
		byOwner: make(map[ClientID]map[proto.ResourceID]struct{}),
	}
}

// InRange reports whether id falls within the id-base/id-mask window
// assigned to a client at connection setup (spec.md §4.2's
// resource-id-base/resource-id-mask fields).
func InRange(id proto.ResourceID, base, mask uint32) bool {
	return uint32(id)&^mask == base&^mask
}

// Create registers a new resource. It returns false if id is already in
// use (the ErrIDChoice case, spec.md §7).
func (t *Table) Create(id proto.ResourceID, kind Kind, owner ClientID, payload interface{}) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.entries[id]; exists {
		return false
	}
	t.entries[id] = Entry{ID: id, Kind: kind, Owner: owner, Payload: payload}
	set, ok := t.byOwner[owner]
	if !ok {
		set = make(map[proto.ResourceID]struct{})
		t.byOwner[owner] = set
	}
	set[id] = struct{}{}
	return true
}

// Lookup returns the entry for id, if any.
func (t *Table) Lookup(id proto.ResourceID) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	return e, ok
}

// LookupKind returns the entry for id only if it matches kind; callers
// use this to produce the correct error code (e.g. ErrWindow vs
// ErrPixmap) when a request names the wrong kind of resource.
func (t *Table) LookupKind(id proto.ResourceID, kind Kind) (Entry, bool) {
	e, ok := t.Lookup(id)
	if !ok || e.Kind != kind {
		return Entry{}, false
	}
	return e, true
}

// Update replaces the payload of an existing entry.
func (t *Table) Update(id proto.ResourceID, payload interface{}) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return false
	}
	e.Payload = payload
	t.entries[id] = e
	return true
}

// Destroy removes id from the table and returns its entry so the caller
// can run subsystem-specific teardown.
func (t *Table) Destroy(id proto.ResourceID) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return Entry{}, false
	}
	delete(t.entries, id)
	if set, ok := t.byOwner[e.Owner]; ok {
		delete(set, id)
	}
	return e, true
}

// DestroyAllForOwner removes every resource owned by owner (spec.md
// §4.3's disconnect cascade) and invokes fn for each, in no particular
// order. Safe to call with fn == nil.
func (t *Table) DestroyAllForOwner(owner ClientID, fn DestroyFunc) {
	t.mu.Lock()
	set := t.byOwner[owner]
	ids := make([]proto.ResourceID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		if e, ok := t.entries[id]; ok {
			entries = append(entries, e)
			delete(t.entries, id)
		}
	}
	delete(t.byOwner, owner)
	t.mu.Unlock()

	if fn != nil {
		for _, e := range entries {
			fn(e)
		}
	}
}

// AllOfKind returns every live entry of the given kind, in no particular
// order (used by e.g. ListInstalledColormaps-style whole-table scans).
func (t *Table) AllOfKind(kind Kind) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Entry
	for _, e := range t.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the number of live resources of each kind, used by the
// debug snapshot side channel (SPEC_FULL.md §B.4).
func (t *Table) Count() map[Kind]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	counts := make(map[Kind]int)
	for _, e := range t.entries {
		counts[e.Kind]++
	}
	return counts
}
