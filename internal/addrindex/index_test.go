package addrindex

import (
	"testing"

	"github.com/propmerge/internal/schema"
)

func TestAddAssignsOccurrences(t *testing.T) {
	ix := New()

	addr := schema.Address{Street: "23 Willoughby Road", Suburb: "Crows Nest", State: "NSW", Postcode: "2065"}
	other := schema.Address{Street: "100 Pacific Highway", Suburb: "North Sydney", State: "NSW", Postcode: "2060"}

	first, ok := ix.Add(0, addr)
	if !ok {
		t.Fatal("expected first add to index")
	}
	if _, ok := ix.Add(1, other); !ok {
		t.Fatal("expected second add to index")
	}
	second, ok := ix.Add(2, addr)
	if !ok {
		t.Fatal("expected third add to index")
	}

	if first.Occurrence != 1 {
		t.Errorf("first occurrence = %d, want 1", first.Occurrence)
	}
	if second.Occurrence != 2 {
		t.Errorf("second occurrence = %d, want 2", second.Occurrence)
	}

	rows := ix.RowsFor(addr.Full())
	if len(rows) != 2 || rows[0] != 0 || rows[1] != 2 {
		t.Errorf("RowsFor = %v, want [0 2]", rows)
	}
	if ix.Count(addr.Full()) != 2 {
		t.Errorf("Count = %d, want 2", ix.Count(addr.Full()))
	}
	if ix.Count(other.Full()) != 1 {
		t.Errorf("Count = %d, want 1", ix.Count(other.Full()))
	}

	if ix.Len() != 3 {
		t.Errorf("Len = %d, want 3", ix.Len())
	}
}

func TestAddSkipsIncompleteAddresses(t *testing.T) {
	tests := []struct {
		name string
		addr schema.Address
	}{
		{
			name: "missing street",
			addr: schema.Address{Suburb: "Crows Nest", State: "NSW", Postcode: "2065"},
		},
		{
			name: "missing suburb",
			addr: schema.Address{Street: "23 Willoughby Road", State: "NSW", Postcode: "2065"},
		},
		{
			name: "missing state",
			addr: schema.Address{Street: "23 Willoughby Road", Suburb: "Crows Nest", Postcode: "2065"},
		},
		{
			name: "whitespace street",
			addr: schema.Address{Street: "   ", Suburb: "Crows Nest", State: "NSW"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := New()
			if _, ok := ix.Add(0, tt.addr); ok {
				t.Errorf("Add indexed an incomplete address: %s", tt.addr.Full())
			}
			if ix.Count(tt.addr.Full()) != 0 {
				t.Errorf("Count reported an incomplete address")
			}
		})
	}
}

func TestMissingPostcodeStillIndexable(t *testing.T) {
	ix := New()
	addr := schema.Address{Street: "23 Willoughby Road", Suburb: "Crows Nest", State: "NSW"}

	if _, ok := ix.Add(0, addr); !ok {
		t.Fatal("expected address without postcode to index")
	}
	if ix.Count(addr.Full()) != 1 {
		t.Error("Count did not report the indexed address")
	}
}

func TestUniqueAddressOrder(t *testing.T) {
	ix := New()

	a := schema.Address{Street: "1 First St", Suburb: "Sydney", State: "NSW"}
	b := schema.Address{Street: "2 Second St", Suburb: "Sydney", State: "NSW"}

	ix.Add(0, a)
	ix.Add(1, b)
	ix.Add(2, a)

	unique := ix.UniqueAddresses()
	if len(unique) != 2 {
		t.Fatalf("UniqueAddresses length = %d, want 2", len(unique))
	}
	if unique[0] != a.Full() || unique[1] != b.Full() {
		t.Errorf("UniqueAddresses order = %v, want first-seen order", unique)
	}
}
