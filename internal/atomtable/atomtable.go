// Package atomtable implements atom interning (spec.md §4.7), inverted
// from the teacher's client-side x11/atoms.go InternAtom/GetAtomName
// into a server-side table that owns the id<->name mapping outright.
package atomtable

import "github.com/KarpelesLab/x11anywhere/internal/proto"

import "sync"

// Table interns strings into Atoms, pre-populated with the protocol's
// fixed low-range atoms (proto.BuiltinAtomNames).
type Table struct {
	mu      sync.Mutex
	byName  map[string]proto.Atom
	byAtom  map[proto.Atom]string
	nextID  proto.Atom
}

// New creates a Table with the builtin atoms already interned.
func New() *Table {
	t := &Table{
		byName: make(map[string]proto.Atom),
		byAtom: make(map[proto.Atom]string),
		nextID: proto.FirstNotBuiltin,
	}
	for id := 1; id < len(proto.BuiltinAtomNames); id++ {
		name := proto.BuiltinAtomNames[id]
		a := proto.Atom(id)
		t.byName[name] = a
		t.byAtom[a] = name
	}
	return t
}

// Intern returns the Atom for name, creating one if onlyIfExists is
// false and name is not already interned (InternAtom's semantics).
func (t *Table) Intern(name string, onlyIfExists bool) (proto.Atom, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if a, ok := t.byName[name]; ok {
		return a, true
	}
	if onlyIfExists {
		return proto.AtomNone, false
	}
	a := t.nextID
	t.nextID++
	t.byName[name] = a
	t.byAtom[a] = name
	return a, true
}

// Name returns the name for atom, if interned.
func (t *Table) Name(atom proto.Atom) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	name, ok := t.byAtom[atom]
	return name, ok
}
