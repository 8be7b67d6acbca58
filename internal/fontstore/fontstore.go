// Package fontstore implements the server's font subsystem (spec.md §4.6,
// §9 open question 3, SPEC_FULL.md §C.3): one built-in fixed-width
// bitmap font with synthesized per-character metrics, enough to answer
// OpenFont/CloseFont/QueryFont/QueryTextExtents/ImageText8 and a
// glob-matching ListFonts/ListFontsWithInfo (SPEC_FULL.md §B.4). New
// code; no teacher equivalent.
package fontstore

import (
	"path"
	"sync"

	"github.com/KarpelesLab/x11anywhere/internal/proto"
)

// BuiltinName is the canonical name of the only font this server knows,
// and the default alias most clients already expect to exist.
const BuiltinName = "fixed"

// Aliases are the extra name patterns the builtin font answers to, so
// that clients probing conventional XLFD-style names at startup (xterm,
// and similar) still get a usable font instead of an empty ListFonts
// reply.
var Aliases = []string{
	BuiltinName,
	"6x13",
	"-misc-fixed-medium-r-normal--13-120-75-75-c-70-iso8859-1",
	"*",
}

// CharWidth, CharHeight, CharAscent, CharDescent describe the single
// built-in font's fixed-width bitmap metrics in pixels.
const (
	CharWidth   = 7
	CharHeight  = 13
	CharAscent  = 10
	CharDescent = 3
)

// CharInfo is one glyph's metrics, in the shape QueryFont's
// CHARINFO wire structure expects.
type CharInfo struct {
	LeftSideBearing  int16
	RightSideBearing int16
	CharWidth        int16
	Ascent           int16
	Descent          int16
	Attributes       uint16
}

// Metrics returns the fixed metrics shared by every printable glyph in
// the builtin font.
func Metrics() CharInfo {
	return CharInfo{
		LeftSideBearing:  0,
		RightSideBearing: CharWidth,
		CharWidth:        CharWidth,
		Ascent:           CharAscent,
		Descent:          CharDescent,
	}
}

// Font is a client's open handle onto the builtin font (OpenFont).
type Font struct {
	ID   proto.ResourceID
	Name string
}

// Store tracks open font resources. The backing glyph data itself is
// not per-resource; every Font shares the same builtin metrics.
type Store struct {
	mu    sync.Mutex
	fonts map[proto.ResourceID]*Font
}

// New creates an empty font store.
func New() *Store { return &Store{fonts: make(map[proto.ResourceID]*Font)} }

// Open registers id as an open handle on name (OpenFont). The name is
// accepted unconditionally; every name resolves to the builtin font.
func (s *Store) Open(id proto.ResourceID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fonts[id] = &Font{ID: id, Name: name}
}

// Close releases a font handle (CloseFont).
func (s *Store) Close(id proto.ResourceID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.fonts[id]
	delete(s.fonts, id)
	return ok
}

// Get returns the Font for id.
func (s *Store) Get(id proto.ResourceID) (*Font, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fonts[id]
	return f, ok
}

// Match implements ListFonts'/ListFontsWithInfo's glob-style pattern
// match (`*` any run, `?` one character) against the registered name
// aliases, returning the alias names that match pattern, deduplicated.
func Match(pattern string, maxNames int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, alias := range Aliases {
		if !seen[alias] && globMatch(pattern, alias) {
			seen[alias] = true
			out = append(out, alias)
			if maxNames > 0 && len(out) >= maxNames {
				break
			}
		}
	}
	return out
}

// globMatch implements `*`/`?` glob matching; path.Match handles this
// shape directly but additionally treats '/' specially, which font name
// patterns never contain, so it is safe to reuse here.
func globMatch(pattern, name string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}

// TextExtent computes QueryTextExtents' reply fields for a string of n
// characters in the builtin fixed-width font.
func TextExtent(n int) (overallAscent, overallDescent int16, overallWidth int32) {
	return CharAscent, CharDescent, int32(n * CharWidth)
}
