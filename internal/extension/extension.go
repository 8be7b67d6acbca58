// Package extension implements QueryExtension/ListExtensions as a static
// registry, plus the BIG-REQUESTS Enable request (spec.md §4.8). New
// code; the registry-table pattern is grounded on gpu/registry.go's
// map-of-factories style, repurposed here as a map of static extension
// descriptors rather than constructible backends.
package extension

// Descriptor is one extension's QueryExtension reply shape.
type Descriptor struct {
	Name        string
	MajorOpcode uint8
	FirstEvent  uint8
	FirstError  uint8
}

// Registry lists every extension this server answers QueryExtension
// for. Only BIG-REQUESTS has request-handling behavior (enabling
// extended-length requests); the rest are present so well-behaved
// clients that probe for RENDER/XFIXES/etc. get a clean "not present"
// answer instead of treating an unknown extension as a protocol error.
var Registry = []Descriptor{
	{Name: "BIG-REQUESTS", MajorOpcode: 128},
	{Name: "RENDER"},
	{Name: "XFIXES"},
	{Name: "DAMAGE"},
	{Name: "Composite"},
	{Name: "SHAPE"},
	{Name: "SYNC"},
	{Name: "RANDR"},
	{Name: "MIT-SHM"},
	{Name: "XKEYBOARD"},
}

// present is the subset of Registry this server actually implements
// (answers Present=true for); the rest are listed so ListExtensions
// reports their name (clients may ask about them) but QueryExtension
// reports Present=false with zeroed opcode/event/error bases.
var present = map[string]bool{
	"BIG-REQUESTS": true,
}

// Query implements QueryExtension: looks up name, reporting whether it
// is actually present (usable) versus merely known-by-name.
func Query(name string) (desc Descriptor, knownPresent bool) {
	for _, d := range Registry {
		if d.Name == name {
			return d, present[d.Name]
		}
	}
	return Descriptor{}, false
}

// Names implements ListExtensions: every extension name this server
// recognizes, present or not (a real server does the same — clients use
// ListExtensions to decide whether QueryExtension is even worth calling).
func Names() []string {
	names := make([]string, len(Registry))
	for i, d := range Registry {
		names[i] = d.Name
	}
	return names
}
