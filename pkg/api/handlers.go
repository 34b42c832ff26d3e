// Package api answers queries against a loaded network: the plain query
// records, and the JSON batch documents built on top of them.
package api

import (
	"errors"
	"math"
	"sync"

	"transit_router/pkg/catalogue"
	"transit_router/pkg/routing"
)

var (
	// ErrNotFound is returned for an unknown bus or stop.
	ErrNotFound = errors.New("not found")

	// ErrInvalidQuery is returned for a query with out-of-range arguments.
	ErrInvalidQuery = errors.New("invalid query")
)

// Error messages written into ErrorResponse.
const (
	msgNotFound       = "not found"
	msgInvalidRequest = "invalid request"
	msgNoMap          = "map rendering not available"
)

// Handlers answers queries. It is safe for concurrent use once the catalogue
// and router are fully built.
type Handlers struct {
	cat    *catalogue.Catalogue
	router *routing.Router
}

// NewHandlers creates handlers over a built network.
func NewHandlers(cat *catalogue.Catalogue, router *routing.Router) *Handlers {
	return &Handlers{cat: cat, router: router}
}

// BusStat answers a BusStatQuery.
func (h *Handlers) BusStat(q BusStatQuery) (catalogue.RouteStat, error) {
	stat, ok := h.cat.RouteStat(q.BusName)
	if !ok {
		return catalogue.RouteStat{}, ErrNotFound
	}
	return stat, nil
}

// StopBuses answers a StopQuery. A known stop without buses yields an empty,
// non-nil list.
func (h *Handlers) StopBuses(q StopQuery) ([]string, error) {
	buses, ok := h.cat.RoutesThroughStop(q.StopName)
	if !ok {
		return nil, ErrNotFound
	}
	if buses == nil {
		buses = []string{}
	}
	return buses, nil
}

// Route answers a RouteQuery. It returns routing.ErrNoRoute when the stops
// are not connected.
func (h *Handlers) Route(q RouteQuery) (*routing.RouteData, error) {
	return h.router.BuildRoute(q.From, q.To)
}

// Nearby answers a NearbyQuery.
func (h *Handlers) Nearby(q NearbyQuery) ([]catalogue.NearbyStop, error) {
	if err := validateCoord(q.Latitude, q.Longitude); err != nil {
		return nil, err
	}
	if math.IsNaN(q.Radius) || q.Radius < 0 || math.IsInf(q.Radius, 0) {
		return nil, ErrInvalidQuery
	}
	return h.cat.NearbyStops(q.Latitude, q.Longitude, q.Radius), nil
}

// Handle answers one stat request and returns the response object to encode.
func (h *Handlers) Handle(req StatRequest) any {
	switch req.Type {
	case "Bus":
		stat, err := h.BusStat(BusStatQuery{BusName: req.Name})
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return BusResponse{
			RequestID:       req.ID,
			Curvature:       finite(stat.Curvature),
			RouteLength:     stat.RoadDistance,
			StopCount:       stat.StopCount,
			UniqueStopCount: stat.UniqueStopCount,
		}

	case "Stop":
		buses, err := h.StopBuses(StopQuery{StopName: req.Name})
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return StopResponse{RequestID: req.ID, Buses: buses}

	case "Route":
		data, err := h.Route(RouteQuery{From: req.From, To: req.To})
		if err != nil {
			return errorResponse(req.ID, err)
		}
		resp := RouteResponse{
			RequestID: req.ID,
			TotalTime: data.TotalTime,
			Items:     make([]ItemJSON, len(data.Items)),
		}
		for i, it := range data.Items {
			resp.Items[i] = ItemJSON{
				Type:      it.Kind.String(),
				StopName:  it.StopName,
				Bus:       it.Bus,
				SpanCount: it.SpanCount,
				Time:      it.Minutes,
			}
		}
		return resp

	case "Nearby":
		stops, err := h.Nearby(NearbyQuery{Latitude: req.Latitude, Longitude: req.Longitude, Radius: req.Radius})
		if err != nil {
			return errorResponse(req.ID, err)
		}
		resp := NearbyResponse{RequestID: req.ID, Stops: make([]NearbyStopJSON, len(stops))}
		for i, s := range stops {
			resp.Stops[i] = NearbyStopJSON{Name: s.Name, DistanceMeters: s.DistanceMeters}
		}
		return resp

	case "Map":
		return ErrorResponse{RequestID: req.ID, ErrorMessage: msgNoMap}
	}
	return ErrorResponse{RequestID: req.ID, ErrorMessage: msgInvalidRequest}
}

// HandleBatch answers reqs with at most workers requests in flight and
// returns the responses in request order.
func (h *Handlers) HandleBatch(reqs []StatRequest, workers int) []any {
	if workers < 1 {
		workers = 1
	}
	out := make([]any, len(reqs))
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	for i := range reqs {
		sem <- struct{}{}
		wg.Go(func() {
			defer func() { <-sem }()
			out[i] = h.Handle(reqs[i])
		})
	}
	wg.Wait()
	return out
}

func errorResponse(id int, err error) ErrorResponse {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, routing.ErrNoRoute):
		return ErrorResponse{RequestID: id, ErrorMessage: msgNotFound}
	default:
		return ErrorResponse{RequestID: id, ErrorMessage: msgInvalidRequest}
	}
}

func validateCoord(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return ErrInvalidQuery
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return ErrInvalidQuery
	}
	return nil
}
