package snap

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/pkg/errors"
	"github.com/veloreach/veloreach/pkg/datastructure"
	"github.com/veloreach/veloreach/pkg/geo"
)

// ErrSnapTooFar is returned when a query point is farther from every
// graph edge than the configured maximum radius. Ambiguous snapping is
// a caller-visible condition, never silently approximated.
var ErrSnapTooFar = errors.New("point too far from the road network")

const (
	// DefaultMaxRadiusKm bounds how far off-network a query point may
	// be before snapping fails.
	DefaultMaxRadiusKm = 0.5

	// search rings start small and grow until candidates appear
	minSearchRadiusKm = 0.3

	kmPerLatDegree = 110.574
	kmPerLonDegree = 111.320
)

// SnappedPoint is a virtual attachment of a query point to the graph:
// the nearest edge, the projection onto its geometry, and the along-
// edge distances from the projection to both endpoints. The graph is
// never mutated; the off-network leg (DistanceToPointKm) is reported
// but not charged into path costs.
type SnappedPoint struct {
	EdgeID            int32
	Point             datastructure.Coordinate
	DistanceToPointKm float64
	OffsetFromKm      float64
	OffsetToKm        float64
}

// ProjectOntoEdge computes the virtual attachment of p on one edge.
func ProjectOntoEdge(edge datastructure.Edge, p datastructure.Coordinate) SnappedPoint {
	proj, segIdx, dist := geo.NearestPointOnLine(edge.Geometry, p)
	offsetFrom := geo.OffsetAlongLine(edge.Geometry, segIdx, proj)
	if offsetFrom > edge.DistanceKm {
		offsetFrom = edge.DistanceKm
	}
	return SnappedPoint{
		EdgeID:            edge.ID,
		Point:             proj,
		DistanceToPointKm: dist,
		OffsetFromKm:      offsetFrom,
		OffsetToKm:        edge.DistanceKm - offsetFrom,
	}
}

type edgeLeaf struct {
	id   int32
	rect rtreego.Rect
}

func (e *edgeLeaf) Bounds() rtreego.Rect {
	return e.rect
}

// EdgeSnapper snaps query points to their nearest edge using an R-tree
// over edge bounding boxes.
type EdgeSnapper struct {
	tree        *rtreego.Rtree
	g           *datastructure.Graph
	maxRadiusKm float64
}

func NewEdgeSnapper(g *datastructure.Graph, maxRadiusKm float64) *EdgeSnapper {
	if maxRadiusKm <= 0 {
		maxRadiusKm = DefaultMaxRadiusKm
	}
	s := &EdgeSnapper{
		tree:        rtreego.NewTree(2, 8, 32),
		g:           g,
		maxRadiusKm: maxRadiusKm,
	}
	for _, e := range g.GetEdges() {
		rect, err := geometryRect(e.Geometry)
		if err != nil {
			continue
		}
		s.tree.Insert(&edgeLeaf{id: e.ID, rect: rect})
	}
	return s
}

func geometryRect(geom []datastructure.Coordinate) (rtreego.Rect, error) {
	minLat, minLon := math.MaxFloat64, math.MaxFloat64
	maxLat, maxLon := -math.MaxFloat64, -math.MaxFloat64
	for _, c := range geom {
		minLat = math.Min(minLat, c.Lat)
		maxLat = math.Max(maxLat, c.Lat)
		minLon = math.Min(minLon, c.Lon)
		maxLon = math.Max(maxLon, c.Lon)
	}
	const pad = 1e-9
	return rtreego.NewRect(
		rtreego.Point{minLat - pad, minLon - pad},
		[]float64{maxLat - minLat + 2*pad, maxLon - minLon + 2*pad},
	)
}

// Snap maps (lat, lon) to its nearest point on the graph. The search
// window grows from minSearchRadiusKm until candidates appear or the
// maximum radius is exceeded.
func (s *EdgeSnapper) Snap(lat, lon float64) (SnappedPoint, error) {
	p := datastructure.NewCoordinate(lat, lon)

	radius := minSearchRadiusKm
	for {
		candidates := s.searchWithin(p, radius)
		if best, ok := s.bestProjection(candidates, p); ok && best.DistanceToPointKm <= s.maxRadiusKm {
			return best, nil
		}
		if radius >= s.maxRadiusKm {
			break
		}
		radius = math.Min(radius*2, s.maxRadiusKm)
	}

	return SnappedPoint{}, errors.Wrapf(ErrSnapTooFar,
		"no edge within %.2f km of (%f, %f)", s.maxRadiusKm, lat, lon)
}

func (s *EdgeSnapper) searchWithin(p datastructure.Coordinate, radiusKm float64) []rtreego.Spatial {
	dLat := radiusKm / kmPerLatDegree
	cosLat := math.Cos(p.Lat * math.Pi / 180.0)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	dLon := radiusKm / (kmPerLonDegree * cosLat)

	rect, err := rtreego.NewRect(
		rtreego.Point{p.Lat - dLat, p.Lon - dLon},
		[]float64{2 * dLat, 2 * dLon},
	)
	if err != nil {
		return nil
	}
	return s.tree.SearchIntersect(rect)
}

func (s *EdgeSnapper) bestProjection(candidates []rtreego.Spatial, p datastructure.Coordinate) (SnappedPoint, bool) {
	best := SnappedPoint{DistanceToPointKm: math.MaxFloat64}
	found := false
	for _, spatial := range candidates {
		leaf := spatial.(*edgeLeaf)
		snapped := ProjectOntoEdge(s.g.GetEdge(leaf.id), p)
		if snapped.DistanceToPointKm < best.DistanceToPointKm {
			best = snapped
			found = true
		}
	}
	return best, found
}
