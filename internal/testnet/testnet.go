// Package testnet builds the small network used across package tests.
//
// Stops: Biryulyovo Zapadnoye, Biryusinka Universam, Rasskazovka,
// Tolstopaltsevo, Marushkino. Bus 828 is circular over the first three,
// bus 750 is linear Tolstopaltsevo - Marushkino - Marushkino - Rasskazovka.
package testnet

import (
	"testing"

	"transit_router/pkg/catalogue"
	"transit_router/pkg/settings"
)

const (
	Biryulyovo  = "Biryulyovo Zapadnoye"
	Universam   = "Universam"
	Rasskazovka = "Rasskazovka"
	Tolsto      = "Tolstopaltsevo"
	Marushkino  = "Marushkino"
)

// Settings are 30 km/h (500 m/min) with a 2 minute boarding wait.
var Settings = settings.NewRoutingSettings(30, 2)

// Catalogue returns a freshly built copy of the network.
func Catalogue(tb testing.TB) *catalogue.Catalogue {
	tb.Helper()
	c := catalogue.New()
	c.AddStop(Biryulyovo, 55.574371, 37.6517)
	c.AddStop(Universam, 55.587655, 37.645687)
	c.AddStop(Rasskazovka, 55.595579, 37.605757)
	c.AddStop(Tolsto, 55.611087, 37.20829)
	c.AddStop(Marushkino, 55.595884, 37.209755)

	dists := []struct {
		from, to string
		m        int
	}{
		{Biryulyovo, Universam, 2400},
		{Rasskazovka, Universam, 5600},
		{Biryulyovo, Rasskazovka, 7500},
		{Tolsto, Marushkino, 3900},
		{Marushkino, Tolsto, 3000},
		{Marushkino, Rasskazovka, 9900},
		{Marushkino, Marushkino, 100},
	}
	for _, d := range dists {
		if err := c.AddDistance(d.from, d.to, d.m); err != nil {
			tb.Fatalf("AddDistance(%s, %s): %v", d.from, d.to, err)
		}
	}

	if err := c.AddRoute("828", []string{Biryulyovo, Universam, Rasskazovka, Biryulyovo}, catalogue.Circular); err != nil {
		tb.Fatalf("AddRoute(828): %v", err)
	}
	if err := c.AddRoute("750", []string{Tolsto, Marushkino, Marushkino, Rasskazovka}, catalogue.Linear); err != nil {
		tb.Fatalf("AddRoute(750): %v", err)
	}
	return c
}
