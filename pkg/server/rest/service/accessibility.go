package service

import (
	"context"
	"log"

	"github.com/pkg/errors"
	"github.com/veloreach/veloreach/pkg/datastructure"
	"github.com/veloreach/veloreach/pkg/engine/accessibility"
	"github.com/veloreach/veloreach/pkg/osmparser"
	"github.com/veloreach/veloreach/pkg/topology"
)

type AccessibilityEngine interface {
	Accessibility(q accessibility.Query) (*accessibility.Result, error)
}

var ErrNoDestinations = errors.New("no destinations resolved for query")

// AccessibilityService answers accessibility queries over one loaded
// street graph. Destinations come either verbatim from the request or
// resolved from the POI set by amenity tag.
type AccessibilityService struct {
	engine AccessibilityEngine
	g      *datastructure.Graph
	pois   []osmparser.POI
	stats  topology.Stats
}

func NewAccessibilityService(engine AccessibilityEngine, g *datastructure.Graph,
	pois []osmparser.POI, stats topology.Stats) *AccessibilityService {
	return &AccessibilityService{engine: engine, g: g, pois: pois, stats: stats}
}

// Accessibility runs one cumulative-opportunities query. When
// destinations is empty the amenity tag selects them from the POI set.
// minSuitability of "" means no edge filter. The third return value is
// the encoded polyline of each origin's attachment edge, in origin
// order.
func (s *AccessibilityService) Accessibility(ctx context.Context, origins, destinations []datastructure.Coordinate,
	amenity string, weight datastructure.WeightKey, threshold float64,
	minSuitability string) (*accessibility.Result, []datastructure.Coordinate, []string, error) {

	if len(destinations) == 0 {
		destinations = s.destinationsForAmenity(amenity)
	}
	if len(destinations) == 0 {
		return nil, nil, nil, errors.Wrapf(ErrNoDestinations, "amenity %q", amenity)
	}

	var filter datastructure.EdgeFilter
	if minSuitability != "" {
		min, err := datastructure.ParseSuitability(minSuitability)
		if err != nil {
			return nil, nil, nil, err
		}
		filter = datastructure.MinSuitability(min)
	}

	res, err := s.engine.Accessibility(accessibility.Query{
		Origins:      origins,
		Destinations: destinations,
		Weight:       weight,
		Threshold:    threshold,
		Filter:       filter,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	edgePaths := make([]string, len(res.OriginSnaps))
	for i, snapped := range res.OriginSnaps {
		edgePaths[i] = datastructure.RenderPath(s.g.GetEdge(snapped.EdgeID).Geometry)
	}

	log.Printf("accessibility: %d origin(s) x %d destination(s), threshold %.2f %s",
		len(origins), len(destinations), threshold, weight)
	return res, destinations, edgePaths, nil
}

func (s *AccessibilityService) destinationsForAmenity(amenity string) []datastructure.Coordinate {
	if amenity == "" {
		return nil
	}
	dests := make([]datastructure.Coordinate, 0)
	for _, poi := range s.pois {
		if poi.Amenity() == amenity {
			dests = append(dests, poi.Coordinate())
		}
	}
	return dests
}

// GraphSummary describes the loaded graph for operators: size,
// component structure and the suitability mix of the network.
type GraphSummary struct {
	Nodes           int
	Edges           int
	POIs            int
	ComponentCount  int
	LargestFraction float64
	TotalKm         float64
	KmBySuitability map[string]float64
}

func (s *AccessibilityService) Summary(ctx context.Context) GraphSummary {
	summary := GraphSummary{
		Nodes:           s.g.NumNodes(),
		Edges:           s.g.NumEdges(),
		POIs:            len(s.pois),
		ComponentCount:  s.stats.ComponentCount,
		LargestFraction: s.stats.LargestFraction(),
		KmBySuitability: make(map[string]float64),
	}
	for _, e := range s.g.GetEdges() {
		summary.TotalKm += e.DistanceKm
		summary.KmBySuitability[e.Suitability.String()] += e.DistanceKm
	}
	return summary
}
