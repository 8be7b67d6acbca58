package resource

import (
	"testing"

	"github.com/KarpelesLab/x11anywhere/internal/proto"
)

func TestCreateRejectsDuplicateID(t *testing.T) {
	tbl := NewTable()
	if !tbl.Create(1, KindWindow, 0, nil) {
		t.Fatal("expected first Create to succeed")
	}
	if tbl.Create(1, KindPixmap, 0, nil) {
		t.Fatal("expected Create to reject a duplicate id regardless of kind")
	}
}

func TestLookupKindRejectsMismatch(t *testing.T) {
	tbl := NewTable()
	tbl.Create(1, KindWindow, 0, nil)

	if _, ok := tbl.LookupKind(1, KindPixmap); ok {
		t.Fatal("expected LookupKind to reject a kind mismatch")
	}
	if _, ok := tbl.LookupKind(1, KindWindow); !ok {
		t.Fatal("expected LookupKind to find the matching entry")
	}
}

func TestDestroyRemovesFromOwnerIndex(t *testing.T) {
	tbl := NewTable()
	tbl.Create(1, KindWindow, 7, nil)
	tbl.Create(2, KindWindow, 7, nil)

	if _, ok := tbl.Destroy(1); !ok {
		t.Fatal("expected Destroy to find the entry")
	}
	if _, ok := tbl.Destroy(1); ok {
		t.Fatal("expected Destroy to report missing on second call")
	}

	var destroyed []proto.ResourceID
	tbl.DestroyAllForOwner(7, func(e Entry) { destroyed = append(destroyed, e.ID) })
	if len(destroyed) != 1 || destroyed[0] != 2 {
		t.Fatalf("expected cascade to destroy only remaining id 2, got %v", destroyed)
	}
	if tbl.Count()[KindWindow] != 0 {
		t.Fatal("expected no windows left after cascade destroy")
	}
}

func TestDestroyAllForOwnerIsNoopForUnknownOwner(t *testing.T) {
	tbl := NewTable()
	tbl.Create(1, KindWindow, 1, nil)
	tbl.DestroyAllForOwner(99, nil)
	if _, ok := tbl.Lookup(1); !ok {
		t.Fatal("expected resources owned by a different client to survive")
	}
}

func TestUpdateReplacesPayload(t *testing.T) {
	tbl := NewTable()
	tbl.Create(1, KindGC, 0, "before")
	if !tbl.Update(1, "after") {
		t.Fatal("expected Update to succeed on an existing entry")
	}
	e, _ := tbl.Lookup(1)
	if e.Payload != "after" {
		t.Fatalf("expected payload %q, got %q", "after", e.Payload)
	}
	if tbl.Update(2, "x") {
		t.Fatal("expected Update to fail for a missing id")
	}
}

func TestInRangeMatchesClientPartition(t *testing.T) {
	base := uint32(1) << 21
	mask := uint32(1<<21) - 1
	if !InRange(proto.ResourceID(base|5), base, mask) {
		t.Fatal("expected an id within the client's partition to match")
	}
	otherBase := uint32(2) << 21
	if InRange(proto.ResourceID(otherBase|5), base, mask) {
		t.Fatal("expected an id in a different client's partition to not match")
	}
}

func TestAllOfKindFiltersByKind(t *testing.T) {
	tbl := NewTable()
	tbl.Create(1, KindWindow, 0, nil)
	tbl.Create(2, KindPixmap, 0, nil)
	tbl.Create(3, KindWindow, 0, nil)

	windows := tbl.AllOfKind(KindWindow)
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}
}
