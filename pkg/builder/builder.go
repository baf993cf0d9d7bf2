package builder

import (
	"log"
	"math"

	"github.com/veloreach/veloreach/pkg/costmodel"
	"github.com/veloreach/veloreach/pkg/datastructure"
)

// DefaultEpsilonDeg is the coordinate-equality tolerance in degrees,
// roughly 10 centimeters at the equator.
const DefaultEpsilonDeg = 1e-6

// DegeneratePolicy decides what happens to zero-length segments and
// segments whose endpoints resolve to the same node.
type DegeneratePolicy uint8

const (
	// KeepSelfLoop keeps degenerate segments as flagged self-loop edges.
	KeepSelfLoop DegeneratePolicy = iota
	// DropDegenerate drops them (counted, logged once at Build).
	DropDegenerate
)

type cellKey struct {
	x int64
	y int64
}

// Builder converts attributed segments into a graph. Raw endpoint
// coordinates within epsilon of an existing node resolve to that node;
// anything else creates a new one. Node IDs are creation-ordered.
type Builder struct {
	epsilonDeg float64
	policy     DegeneratePolicy

	nodes []datastructure.Node
	edges []datastructure.Edge
	cells map[cellKey][]int32

	droppedDegenerate int
}

func NewBuilder(epsilonDeg float64, policy DegeneratePolicy) *Builder {
	if epsilonDeg <= 0 {
		epsilonDeg = DefaultEpsilonDeg
	}
	return &Builder{
		epsilonDeg: epsilonDeg,
		policy:     policy,
		cells:      make(map[cellKey][]int32),
	}
}

func (b *Builder) cellOf(lat, lon float64) cellKey {
	return cellKey{
		x: int64(math.Floor(lon / b.epsilonDeg)),
		y: int64(math.Floor(lat / b.epsilonDeg)),
	}
}

// ResolveNode maps a raw coordinate to a node ID, creating the node if
// no existing node lies within epsilon. Candidates come from the
// coordinate's quantized cell and its 8 neighbors, so two coordinates
// within epsilon always share a node even when they straddle a cell
// boundary.
func (b *Builder) ResolveNode(lat, lon float64) int32 {
	center := b.cellOf(lat, lon)
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			key := cellKey{x: center.x + dx, y: center.y + dy}
			for _, id := range b.cells[key] {
				node := b.nodes[id]
				if math.Abs(node.Lat-lat) <= b.epsilonDeg && math.Abs(node.Lon-lon) <= b.epsilonDeg {
					return id
				}
			}
		}
	}

	id := int32(len(b.nodes))
	b.nodes = append(b.nodes, datastructure.NewNode(id, lat, lon))
	b.cells[center] = append(b.cells[center], id)
	return id
}

// AddSegment adds one attributed segment as an edge. Degenerate
// segments (zero length, or both endpoints on the same node) follow the
// configured policy. Self-loops that survive are flagged and safe for
// path-finding: they can never shorten a path.
func (b *Builder) AddSegment(seg costmodel.Segment) {
	if len(seg.Geometry) == 0 {
		b.droppedDegenerate++
		return
	}

	first := seg.Geometry[0]
	last := seg.Geometry[len(seg.Geometry)-1]

	from := b.ResolveNode(first.Lat, first.Lon)
	to := b.ResolveNode(last.Lat, last.Lon)

	selfLoop := from == to || seg.DistanceKm == 0
	if selfLoop && b.policy == DropDegenerate {
		b.droppedDegenerate++
		return
	}

	b.edges = append(b.edges, datastructure.Edge{
		ID:            int32(len(b.edges)),
		From:          from,
		To:            to,
		DistanceKm:    seg.DistanceKm,
		SpeedKmh:      seg.SpeedKmh,
		TravelTimeMin: seg.TravelTimeMin,
		Suitability:   seg.Suitability,
		Oneway:        seg.Oneway,
		SelfLoop:      selfLoop,
		Geometry:      seg.Geometry,
	})
}

// Build returns the assembled graph. The node count is at most twice
// the segment count because each segment contributes two endpoints.
func (b *Builder) Build() (*datastructure.Graph, error) {
	if b.droppedDegenerate > 0 {
		log.Printf("builder: dropped %d degenerate segment(s)", b.droppedDegenerate)
	}
	return datastructure.NewGraph(b.nodes, b.edges)
}
