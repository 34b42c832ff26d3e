package graph

import (
	"testing"

	"transit_router/internal/testnet"
	"transit_router/pkg/catalogue"
)

func TestUnionFind(t *testing.T) {
	uf := NewUnionFind(5)

	for i := range uint32(5) {
		if uf.Find(i) != i {
			t.Errorf("Find(%d) = %d, want %d", i, uf.Find(i), i)
		}
	}

	if !uf.Union(0, 1) {
		t.Error("Union(0, 1) = false, want true")
	}
	uf.Union(2, 3)
	if uf.Find(0) == uf.Find(2) {
		t.Error("0 and 2 should be in different sets")
	}

	uf.Union(1, 3)
	if uf.Find(0) != uf.Find(3) {
		t.Error("0 and 3 should now be in same set")
	}
	if uf.Union(0, 2) {
		t.Error("Union of same set should return false")
	}
	if got := uf.Size(2); got != 4 {
		t.Errorf("Size(2) = %d, want 4", got)
	}
	if got := uf.Size(4); got != 1 {
		t.Errorf("Size(4) = %d, want 1", got)
	}
}

func TestComponentsConnected(t *testing.T) {
	g, err := Build(testnet.Catalogue(t), testnet.Settings)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// 750 and 828 share Rasskazovka.
	got := Components(g)
	if got.Count != 1 || got.Largest != 5 {
		t.Errorf("Components = %+v, want {1 5}", got)
	}
}

func TestComponentsSplit(t *testing.T) {
	c := testnet.Catalogue(t)
	c.AddStop("X", 55.7, 37.7)
	c.AddStop("Y", 55.71, 37.71)
	if err := c.AddDistance("X", "Y", 1000); err != nil {
		t.Fatal(err)
	}
	if err := c.AddRoute("99", []string{"X", "Y"}, catalogue.Linear); err != nil {
		t.Fatal(err)
	}

	g, err := Build(c, testnet.Settings)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got := Components(g)
	if got.Count != 2 || got.Largest != 5 {
		t.Errorf("Components = %+v, want {2 5}", got)
	}
}

func TestComponentsEmpty(t *testing.T) {
	g, err := Build(catalogue.New(), testnet.Settings)
	if err != nil {
		t.Fatal(err)
	}
	if got := Components(g); got.Count != 0 {
		t.Errorf("Components = %+v, want zero", got)
	}
}
