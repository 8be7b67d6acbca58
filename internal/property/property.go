// Package property implements per-window property storage (spec.md
// §4.7): ChangeProperty/GetProperty/DeleteProperty/ListProperties, with
// GetProperty's delete-on-read and partial-read (long-offset/long-length)
// semantics. New code, grounded on the value-list encode shape of the
// teacher's x11/window.go ChangeProperty method, inverted to store
// rather than transmit.
package property

import (
	"sync"

	"github.com/KarpelesLab/x11anywhere/internal/proto"
)

// Property is one interned property's stored value.
type Property struct {
	Type   proto.Atom
	Format uint8 // 8, 16, or 32 bits per element
	Data   []byte
}

// Store owns the property maps for every window, keyed by window id
// then by property-name atom.
type Store struct {
	mu    sync.Mutex
	byWin map[proto.ResourceID]map[proto.Atom]*Property
}

// New creates an empty property store.
func New() *Store {
	return &Store{byWin: make(map[proto.ResourceID]map[proto.Atom]*Property)}
}

func (s *Store) windowProps(win proto.ResourceID) map[proto.Atom]*Property {
	m, ok := s.byWin[win]
	if !ok {
		m = make(map[proto.Atom]*Property)
		s.byWin[win] = m
	}
	return m
}

func elemSize(format uint8) int {
	switch format {
	case 16:
		return 2
	case 32:
		return 4
	default:
		return 1
	}
}

// Change implements ChangeProperty's Replace/Prepend/Append modes. data
// is the raw element bytes (already stripped of wire padding).
func (s *Store) Change(win proto.ResourceID, name proto.Atom, typ proto.Atom, format uint8, mode uint8, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	props := s.windowProps(win)
	existing, had := props[name]

	switch mode {
	case proto.PropModeReplace:
		if !had {
			mode = proto.PropModeReplace
		}
	}

	switch mode {
	case proto.PropModePrepend:
		if had && existing.Type == typ && existing.Format == format {
			merged := append(append([]byte(nil), data...), existing.Data...)
			props[name] = &Property{Type: typ, Format: format, Data: merged}
			return
		}
		props[name] = &Property{Type: typ, Format: format, Data: append([]byte(nil), data...)}
	case proto.PropModeAppend:
		if had && existing.Type == typ && existing.Format == format {
			merged := append(append([]byte(nil), existing.Data...), data...)
			props[name] = &Property{Type: typ, Format: format, Data: merged}
			return
		}
		props[name] = &Property{Type: typ, Format: format, Data: append([]byte(nil), data...)}
	default: // Replace
		props[name] = &Property{Type: typ, Format: format, Data: append([]byte(nil), data...)}
	}
}

// GetResult is GetProperty's outcome.
type GetResult struct {
	Exists      bool
	Type        proto.Atom
	Format      uint8
	BytesAfter  uint32
	Data        []byte
	Deleted     bool
}

// Get implements GetProperty: returns up to longLength 4-byte units
// starting at longOffset 4-byte units into the stored value, and deletes
// the property afterward if delete is true and the whole value was read.
func (s *Store) Get(win proto.ResourceID, name proto.Atom, typ proto.Atom, longOffset, longLength uint32, delete bool) GetResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	props, ok := s.byWin[win]
	if !ok {
		return GetResult{Exists: false}
	}
	p, ok := props[name]
	if !ok {
		return GetResult{Exists: false}
	}
	if typ != proto.AnyPropertyType && typ != p.Type {
		// Wrong type requested: real servers report bytes-after without
		// data so the client can see the type mismatch via GetWindowProperty's
		// reply type field while reading zero bytes.
		return GetResult{Exists: true, Type: p.Type, Format: p.Format, BytesAfter: uint32(len(p.Data))}
	}

	byteOffset := int(longOffset) * 4
	if byteOffset > len(p.Data) {
		byteOffset = len(p.Data)
	}
	maxBytes := int(longLength) * 4
	end := byteOffset + maxBytes
	if end > len(p.Data) {
		end = len(p.Data)
	}
	slice := p.Data[byteOffset:end]
	bytesAfter := len(p.Data) - end

	result := GetResult{
		Exists:     true,
		Type:       p.Type,
		Format:     p.Format,
		BytesAfter: uint32(bytesAfter),
		Data:       append([]byte(nil), slice...),
	}

	if delete && bytesAfter == 0 {
		deleteProp(props, name)
		result.Deleted = true
	}
	return result
}

func deleteProp(props map[proto.Atom]*Property, name proto.Atom) {
	delete(props, name)
}

// Delete removes a property outright (DeleteProperty). Returns true if
// it existed.
func (s *Store) Delete(win proto.ResourceID, name proto.Atom) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	props, ok := s.byWin[win]
	if !ok {
		return false
	}
	_, existed := props[name]
	delete(props, name)
	return existed
}

// List returns the names of every property set on win, in no particular
// order (ListProperties).
func (s *Store) List(win proto.ResourceID) []proto.Atom {
	s.mu.Lock()
	defer s.mu.Unlock()
	props, ok := s.byWin[win]
	if !ok {
		return nil
	}
	names := make([]proto.Atom, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	return names
}

// DestroyWindow drops all property state for win, called when the
// window is destroyed.
func (s *Store) DestroyWindow(win proto.ResourceID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byWin, win)
}

// ElemSize exposes elemSize for dispatch's reply-encoding step.
func ElemSize(format uint8) int { return elemSize(format) }
