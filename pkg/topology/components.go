package topology

import (
	"log"

	"github.com/veloreach/veloreach/pkg/datastructure"
	"golang.org/x/exp/slices"
)

// Stats summarizes component structure for reporting collaborators.
type Stats struct {
	TotalNodes     int
	TotalEdges     int
	ComponentCount int
	LargestNodes   int
}

// LargestFraction is the share of all nodes inside the largest
// component.
func (s Stats) LargestFraction() float64 {
	if s.TotalNodes == 0 {
		return 0
	}
	return float64(s.LargestNodes) / float64(s.TotalNodes)
}

// ConnectedComponents enumerates components over the undirected
// adjacency view, ignoring the oneway attribute. BFS starts from node 0
// upward, so components come out ordered by their minimum node ID.
func ConnectedComponents(g *datastructure.Graph) [][]int32 {
	n := g.NumNodes()
	visited := make([]bool, n)
	components := make([][]int32, 0)

	for start := int32(0); start < int32(n); start++ {
		if visited[start] {
			continue
		}
		component := make([]int32, 0)
		queue := []int32{start}
		visited[start] = true

		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			component = append(component, v)

			for _, edgeID := range g.GetNodeEdges(v) {
				w := g.GetEdge(edgeID).Other(v)
				if !visited[w] {
					visited[w] = true
					queue = append(queue, w)
				}
			}
		}
		components = append(components, component)
	}
	return components
}

// LargestComponent reduces the graph to its largest connected
// component as an induced subgraph. Ties on node count are broken by
// the component containing the lowest node ID, which is the first one
// BFS discovers. Node IDs in the result are re-assigned in ascending
// order of the old IDs, so reduction is deterministic and reducing an
// already reduced graph is a no-op.
func LargestComponent(g *datastructure.Graph) (*datastructure.Graph, Stats, error) {
	components := ConnectedComponents(g)

	stats := Stats{
		TotalNodes:     g.NumNodes(),
		TotalEdges:     g.NumEdges(),
		ComponentCount: len(components),
	}
	if len(components) == 0 {
		return g, stats, nil
	}

	largest := components[0]
	for _, c := range components[1:] {
		if len(c) > len(largest) {
			largest = c
		}
	}
	stats.LargestNodes = len(largest)

	if len(largest) == g.NumNodes() {
		return g, stats, nil
	}

	member := slices.Clone(largest)
	slices.Sort(member)

	remap := make(map[int32]int32, len(member))
	nodes := make([]datastructure.Node, len(member))
	for newID, oldID := range member {
		remap[oldID] = int32(newID)
		old := g.GetNode(oldID)
		nodes[newID] = datastructure.NewNode(int32(newID), old.Lat, old.Lon)
	}

	edges := make([]datastructure.Edge, 0)
	for _, e := range g.GetEdges() {
		from, ok := remap[e.From]
		if !ok {
			continue
		}
		e.ID = int32(len(edges))
		e.From = from
		e.To = remap[e.To]
		edges = append(edges, e)
	}

	log.Printf("topology: kept largest of %d component(s), %d/%d nodes (%.1f%%)",
		stats.ComponentCount, stats.LargestNodes, stats.TotalNodes, 100*stats.LargestFraction())

	reduced, err := datastructure.NewGraph(nodes, edges)
	return reduced, stats, err
}
