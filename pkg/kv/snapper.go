package kv

import (
	"math"

	"github.com/pkg/errors"
	"github.com/veloreach/veloreach/pkg/datastructure"
	"github.com/veloreach/veloreach/pkg/snap"
)

// maxSnapRing bounds the H3 neighborhood search: ring 2 at resolution
// 9 covers roughly half a kilometer around the query point.
const maxSnapRing = 2

// H3Snapper resolves query points to their nearest edge using the
// badger cell index instead of an in-memory R-tree. Projection
// semantics are identical to snap.EdgeSnapper: the same virtual
// attachment, the same maximum-radius failure.
type H3Snapper struct {
	kv          *KVDB
	g           *datastructure.Graph
	maxRadiusKm float64
}

func NewH3Snapper(kv *KVDB, g *datastructure.Graph, maxRadiusKm float64) *H3Snapper {
	if maxRadiusKm <= 0 {
		maxRadiusKm = snap.DefaultMaxRadiusKm
	}
	return &H3Snapper{kv: kv, g: g, maxRadiusKm: maxRadiusKm}
}

func (s *H3Snapper) Snap(lat, lon float64) (snap.SnappedPoint, error) {
	p := datastructure.NewCoordinate(lat, lon)

	for ring := 1; ring <= maxSnapRing; ring++ {
		candidates, err := s.kv.EdgesNearCoord(lat, lon, ring)
		if errors.Is(err, ErrEdgesNotFound) {
			continue
		}
		if err != nil {
			return snap.SnappedPoint{}, err
		}

		best := snap.SnappedPoint{DistanceToPointKm: math.MaxFloat64}
		for _, candidate := range candidates {
			snapped := snap.ProjectOntoEdge(s.g.GetEdge(candidate.EdgeID), p)
			if snapped.DistanceToPointKm < best.DistanceToPointKm {
				best = snapped
			}
		}
		if best.DistanceToPointKm <= s.maxRadiusKm {
			return best, nil
		}
	}

	return snap.SnappedPoint{}, errors.Wrapf(snap.ErrSnapTooFar,
		"no indexed edge within %.2f km of (%f, %f)", s.maxRadiusKm, lat, lon)
}
