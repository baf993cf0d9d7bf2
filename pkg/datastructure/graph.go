package datastructure

import (
	"errors"
	"fmt"

	"github.com/twpayne/go-polyline"
)

// Suitability is the discrete cycling-friendliness class of an edge.
type Suitability uint8

const (
	SuitabilityLow Suitability = iota
	SuitabilityMedium
	SuitabilityGood
)

func (s Suitability) String() string {
	switch s {
	case SuitabilityGood:
		return "good"
	case SuitabilityMedium:
		return "medium"
	default:
		return "low"
	}
}

func ParseSuitability(s string) (Suitability, error) {
	switch s {
	case "good":
		return SuitabilityGood, nil
	case "medium":
		return SuitabilityMedium, nil
	case "low":
		return SuitabilityLow, nil
	}
	return SuitabilityLow, fmt.Errorf("unknown suitability class %q", s)
}

// WeightKey selects which edge attribute a shortest-path search uses as
// its cost. Weights and thresholds share the attribute's unit, the
// engine never converts units.
type WeightKey string

const (
	WeightTravelTime WeightKey = "travel_time" // minutes
	WeightDistance   WeightKey = "distance"    // kilometers
)

var (
	ErrInvalidWeightKey = errors.New("weight key not present on edges")
	ErrEmptyGraph       = errors.New("graph has no nodes")
)

type Node struct {
	ID  int32
	Lat float64
	Lon float64
}

func NewNode(id int32, lat, lon float64) Node {
	return Node{ID: id, Lat: lat, Lon: lon}
}

func (n Node) Coordinate() Coordinate {
	return Coordinate{Lat: n.Lat, Lon: n.Lon}
}

// Edge is one street segment's contribution to the graph. Edges are
// traversable in both directions; Oneway is carried as an attribute so a
// direction-aware filter needs no model change.
type Edge struct {
	ID            int32
	From          int32
	To            int32
	DistanceKm    float64
	SpeedKmh      float64
	TravelTimeMin float64
	Suitability   Suitability
	Oneway        bool
	SelfLoop      bool
	Geometry      []Coordinate
}

// Other returns the opposite endpoint of the edge.
func (e Edge) Other(nodeID int32) int32 {
	if e.From == nodeID {
		return e.To
	}
	return e.From
}

func (e Edge) Weight(key WeightKey) float64 {
	switch key {
	case WeightDistance:
		return e.DistanceKm
	default:
		return e.TravelTimeMin
	}
}

// EdgeFilter restricts a search to an edge subset. A nil filter admits
// every edge. Filtering is a view over the graph, never a mutation.
type EdgeFilter func(edge Edge) bool

// MinSuitability admits edges whose suitability class is at least min.
func MinSuitability(min Suitability) EdgeFilter {
	return func(edge Edge) bool {
		return edge.Suitability >= min
	}
}

// Graph is an immutable adjacency-list street graph. Node IDs are dense
// creation-ordered indices; every edge ID appears in the adjacency list
// of both its endpoints.
type Graph struct {
	nodes    []Node
	edges    []Edge
	firstOut [][]int32
}

func NewGraph(nodes []Node, edges []Edge) (*Graph, error) {
	g := &Graph{
		nodes:    nodes,
		edges:    edges,
		firstOut: make([][]int32, len(nodes)),
	}
	for i := range edges {
		e := &edges[i]
		if int(e.From) >= len(nodes) || int(e.To) >= len(nodes) || e.From < 0 || e.To < 0 {
			return nil, fmt.Errorf("edge %d references missing node (%d -> %d)", e.ID, e.From, e.To)
		}
		g.firstOut[e.From] = append(g.firstOut[e.From], e.ID)
		if e.To != e.From {
			g.firstOut[e.To] = append(g.firstOut[e.To], e.ID)
		}
	}
	return g, nil
}

func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

func (g *Graph) NumEdges() int {
	return len(g.edges)
}

func (g *Graph) GetNode(nodeID int32) Node {
	return g.nodes[nodeID]
}

func (g *Graph) GetEdge(edgeID int32) Edge {
	return g.edges[edgeID]
}

// GetNodeEdges returns the IDs of every edge incident to nodeID.
func (g *Graph) GetNodeEdges(nodeID int32) []int32 {
	return g.firstOut[nodeID]
}

func (g *Graph) GetNodes() []Node {
	return g.nodes
}

func (g *Graph) GetEdges() []Edge {
	return g.edges
}

// ValidateWeightKey fails fast before any path computation when the
// requested weight attribute is unknown or the graph is empty.
func (g *Graph) ValidateWeightKey(key WeightKey) error {
	if len(g.nodes) == 0 {
		return ErrEmptyGraph
	}
	switch key {
	case WeightTravelTime, WeightDistance:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidWeightKey, key)
}

// RenderPath encodes a coordinate path as a google encoded polyline.
func RenderPath(path []Coordinate) string {
	coords := make([][]float64, 0, len(path))
	for _, p := range path {
		coords = append(coords, []float64{p.Lat, p.Lon})
	}
	return string(polyline.EncodeCoords(coords))
}
