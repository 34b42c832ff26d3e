package routing

import (
	"errors"
	"math"
	"sync"
	"testing"

	"transit_router/internal/testnet"
	"transit_router/pkg/catalogue"
	"transit_router/pkg/graph"
)

func checkItems(t *testing.T, got []Item, want []Item) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d items %+v, want %d", len(got), got, len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.Kind != w.Kind || g.StopName != w.StopName || g.Bus != w.Bus || g.SpanCount != w.SpanCount {
			t.Errorf("item %d = %+v, want %+v", i, g, w)
		}
		if math.Abs(g.Minutes-w.Minutes) > 1e-9 {
			t.Errorf("item %d minutes = %v, want %v", i, g.Minutes, w.Minutes)
		}
	}
}

func TestBuildRoute(t *testing.T) {
	r := buildTestRouter(t)

	tests := []struct {
		name  string
		from  string
		to    string
		total float64
		items []Item
	}{
		{
			name:  "single ride",
			from:  testnet.Tolsto,
			to:    testnet.Marushkino,
			total: 9.8,
			items: []Item{
				{Kind: Wait, StopName: testnet.Tolsto, Minutes: 2},
				{Kind: Ride, Bus: "750", SpanCount: 1, Minutes: 7.8},
			},
		},
		{
			name:  "back leg uses its own distance",
			from:  testnet.Marushkino,
			to:    testnet.Tolsto,
			total: 8,
			items: []Item{
				{Kind: Wait, StopName: testnet.Marushkino, Minutes: 2},
				{Kind: Ride, Bus: "750", SpanCount: 1, Minutes: 6},
			},
		},
		{
			name:  "transfer",
			from:  testnet.Universam,
			to:    testnet.Tolsto,
			total: 41.2,
			items: []Item{
				{Kind: Wait, StopName: testnet.Universam, Minutes: 2},
				{Kind: Ride, Bus: "828", SpanCount: 1, Minutes: 11.2},
				{Kind: Wait, StopName: testnet.Rasskazovka, Minutes: 2},
				{Kind: Ride, Bus: "750", SpanCount: 3, Minutes: 26},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.BuildRoute(tt.from, tt.to)
			if err != nil {
				t.Fatalf("BuildRoute: %v", err)
			}
			if math.Abs(got.TotalTime-tt.total) > 1e-9 {
				t.Errorf("TotalTime = %v, want %v", got.TotalTime, tt.total)
			}
			checkItems(t, got.Items, tt.items)

			var sum float64
			for _, it := range got.Items {
				sum += it.Minutes
			}
			if math.Abs(sum-got.TotalTime) > 1e-9 {
				t.Errorf("items sum to %v, total is %v", sum, got.TotalTime)
			}
		})
	}
}

func TestBuildRouteSameStop(t *testing.T) {
	r := buildTestRouter(t)
	got, err := r.BuildRoute(testnet.Marushkino, testnet.Marushkino)
	if err != nil {
		t.Fatalf("BuildRoute: %v", err)
	}
	if got.TotalTime != 0 || len(got.Items) != 0 {
		t.Errorf("got %+v, want empty itinerary", got)
	}
}

func TestBuildRouteNoRoute(t *testing.T) {
	c := testnet.Catalogue(t)
	c.AddStop("Depot", 55.6, 37.6)
	c.AddStop("X", 55.7, 37.7)
	c.AddStop("Y", 55.71, 37.71)
	if err := c.AddDistance("X", "Y", 1000); err != nil {
		t.Fatal(err)
	}
	// Circular X -> Y only: Y never reaches X.
	if err := c.AddRoute("99", []string{"X", "Y"}, catalogue.Circular); err != nil {
		t.Fatal(err)
	}
	g, err := graph.Build(c, testnet.Settings)
	if err != nil {
		t.Fatal(err)
	}
	r := NewRouter(g, testnet.Settings)

	tests := []struct{ from, to string }{
		{"Depot", testnet.Tolsto},
		{testnet.Tolsto, "Depot"},
		{"Nowhere", testnet.Tolsto},
		{testnet.Tolsto, "X"},
		{"Y", "X"},
	}
	for _, tt := range tests {
		if _, err := r.BuildRoute(tt.from, tt.to); !errors.Is(err, ErrNoRoute) {
			t.Errorf("BuildRoute(%q, %q) err = %v, want ErrNoRoute", tt.from, tt.to, err)
		}
	}

	if _, err := r.BuildRoute("X", "Y"); err != nil {
		t.Errorf("BuildRoute(X, Y): %v", err)
	}
}

func TestRouterSettings(t *testing.T) {
	r := buildTestRouter(t)
	if r.Settings() != testnet.Settings {
		t.Errorf("Settings = %+v, want %+v", r.Settings(), testnet.Settings)
	}
}

func TestBuildRouteConcurrent(t *testing.T) {
	r := buildTestRouter(t)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for range 32 {
		wg.Go(func() {
			got, err := r.BuildRoute(testnet.Universam, testnet.Tolsto)
			if err != nil {
				errs <- err
				return
			}
			if math.Abs(got.TotalTime-41.2) > 1e-9 {
				errs <- errors.New("wrong total under concurrency")
			}
		})
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
