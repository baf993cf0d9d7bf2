package topology

import (
	"log"
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/pkg/errors"
	"github.com/veloreach/veloreach/pkg/builder"
	"github.com/veloreach/veloreach/pkg/costmodel"
	"github.com/veloreach/veloreach/pkg/datastructure"
)

type edgeItem struct {
	id   int32
	rect rtreego.Rect
}

func (e *edgeItem) Bounds() rtreego.Rect {
	return e.rect
}

// edgeRect returns the bounding rectangle of an edge geometry, padded
// by epsilon so touching edges always intersect in the index.
func edgeRect(geom []datastructure.Coordinate, epsilonDeg float64) (rtreego.Rect, error) {
	minLat, minLon := math.MaxFloat64, math.MaxFloat64
	maxLat, maxLon := -math.MaxFloat64, -math.MaxFloat64
	for _, c := range geom {
		minLat = math.Min(minLat, c.Lat)
		maxLat = math.Max(maxLat, c.Lat)
		minLon = math.Min(minLon, c.Lon)
		maxLon = math.Max(maxLon, c.Lon)
	}
	return rtreego.NewRect(
		rtreego.Point{minLat - epsilonDeg, minLon - epsilonDeg},
		[]float64{maxLat - minLat + 2*epsilonDeg, maxLon - minLon + 2*epsilonDeg},
	)
}

// Subdivide repairs graph topology: wherever a vertex of one edge
// coincides (within epsilon) with a vertex of another edge, both edges
// are split there so the shared point becomes a real node. Sub-edges
// concatenate to the parent geometry; length and travel time are
// recomputed per sub-edge from its own geometry while suitability,
// speed and direction are inherited.
//
// Candidate edge pairs come from an R-tree over padded edge bounding
// boxes instead of the naive all-pairs scan, which matters from a few
// thousand segments up.
//
// Running Subdivide on an already subdivided graph finds no interior
// coincidences and returns the graph unchanged.
func Subdivide(g *datastructure.Graph, epsilonDeg float64) (*datastructure.Graph, error) {
	if epsilonDeg <= 0 {
		epsilonDeg = builder.DefaultEpsilonDeg
	}

	edges := g.GetEdges()
	if len(edges) == 0 {
		return g, nil
	}

	tree := rtreego.NewTree(2, 8, 32)
	items := make([]*edgeItem, len(edges))
	for i := range edges {
		rect, err := edgeRect(edges[i].Geometry, epsilonDeg)
		if err != nil {
			return nil, errors.Wrapf(err, "bounding box of edge %d", edges[i].ID)
		}
		items[i] = &edgeItem{id: edges[i].ID, rect: rect}
		tree.Insert(items[i])
	}

	// splits[edgeID] = set of interior vertex indices to cut at
	splits := make(map[int32]map[int]struct{})
	record := func(edgeID int32, vertexIdx, lastIdx int) {
		if vertexIdx <= 0 || vertexIdx >= lastIdx {
			return
		}
		if _, ok := splits[edgeID]; !ok {
			splits[edgeID] = make(map[int]struct{})
		}
		splits[edgeID][vertexIdx] = struct{}{}
	}

	coincident := func(a, b datastructure.Coordinate) bool {
		return math.Abs(a.Lat-b.Lat) <= epsilonDeg && math.Abs(a.Lon-b.Lon) <= epsilonDeg
	}

	for i := range edges {
		e := &edges[i]
		for _, spatial := range tree.SearchIntersect(items[i].rect) {
			other := spatial.(*edgeItem)
			if other.id <= e.ID {
				// each unordered pair once; split points are recorded
				// for both sides of the pair
				continue
			}
			f := g.GetEdge(other.id)
			for vi, v := range e.Geometry {
				for wi, w := range f.Geometry {
					if !coincident(v, w) {
						continue
					}
					record(e.ID, vi, len(e.Geometry)-1)
					record(f.ID, wi, len(f.Geometry)-1)
				}
			}
		}
	}

	if len(splits) == 0 {
		return g, nil
	}

	b := builder.NewBuilder(epsilonDeg, builder.KeepSelfLoop)
	splitCount := 0
	for i := range edges {
		e := &edges[i]
		for _, piece := range cutGeometry(e.Geometry, splits[e.ID]) {
			b.AddSegment(costmodel.NewSegmentFromParts(piece, e.SpeedKmh, e.Suitability, e.Oneway))
		}
		splitCount += len(splits[e.ID])
	}

	log.Printf("topology: subdivided %d edge(s) at %d coincident point(s)", len(splits), splitCount)
	return b.Build()
}

// cutGeometry slices a polyline at the given interior vertex indices.
// The pieces concatenate back to the original line.
func cutGeometry(geom []datastructure.Coordinate, cuts map[int]struct{}) [][]datastructure.Coordinate {
	if len(cuts) == 0 {
		return [][]datastructure.Coordinate{geom}
	}

	pieces := make([][]datastructure.Coordinate, 0, len(cuts)+1)
	start := 0
	for i := 1; i < len(geom)-1; i++ {
		if _, ok := cuts[i]; !ok {
			continue
		}
		pieces = append(pieces, geom[start:i+1])
		start = i
	}
	pieces = append(pieces, geom[start:])
	return pieces
}
