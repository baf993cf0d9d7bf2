package accessibility

import (
	"math"

	"github.com/veloreach/veloreach/pkg/datastructure"
	"github.com/veloreach/veloreach/pkg/snap"
)

// Unreachable is the cost of a destination outside the origin's
// component. It is data, not an error.
var Unreachable = math.Inf(1)

// attachmentNodeTolKm: a projection closer than this to an endpoint is
// treated as standing on the node itself, so no travel over the
// attachment edge is needed (and the edge filter does not apply).
const attachmentNodeTolKm = 1e-6

// offsetCost converts an along-edge distance into the requested weight
// unit. Guarded against zero speed: a degenerate edge contributes no
// travel time.
func offsetCost(edge datastructure.Edge, weight datastructure.WeightKey, offsetKm float64) float64 {
	if weight == datastructure.WeightDistance {
		return offsetKm
	}
	if edge.SpeedKmh <= 0 {
		return 0
	}
	return offsetKm / edge.SpeedKmh * 60.0
}

// singleSource runs Dijkstra from a virtual attachment over the
// (optionally filtered) undirected edge view and returns the cost to
// every settled node. Non-negative weights only; the priority queue
// uses DecreaseKey on already-discovered nodes.
func (e *Engine) singleSource(source snap.SnappedPoint, weight datastructure.WeightKey,
	filter datastructure.EdgeFilter) map[int32]float64 {

	dist := make(map[int32]float64)
	pq := datastructure.NewMinHeap[int32]()

	relax := func(nodeID int32, cost float64) {
		if old, ok := dist[nodeID]; !ok {
			dist[nodeID] = cost
			pq.Insert(datastructure.NewPriorityQueueNode(cost, nodeID))
		} else if cost < old {
			dist[nodeID] = cost
			pq.DecreaseKey(datastructure.NewPriorityQueueNode(cost, nodeID))
		}
	}

	srcEdge := e.g.GetEdge(source.EdgeID)
	srcAllowed := filter == nil || filter(srcEdge)

	// Seed both endpoints of the attachment edge with the partial-edge
	// cost. A projection sitting exactly on a node needs no edge
	// traversal, so it seeds even when the attachment edge itself is
	// filtered out.
	if source.OffsetFromKm <= attachmentNodeTolKm {
		relax(srcEdge.From, 0)
	} else if srcAllowed {
		relax(srcEdge.From, offsetCost(srcEdge, weight, source.OffsetFromKm))
	}
	if source.OffsetToKm <= attachmentNodeTolKm {
		relax(srcEdge.To, 0)
	} else if srcAllowed {
		relax(srcEdge.To, offsetCost(srcEdge, weight, source.OffsetToKm))
	}

	for pq.Size() > 0 {
		node, _ := pq.ExtractMin()
		if node.Rank > dist[node.Item] {
			continue
		}

		for _, edgeID := range e.g.GetNodeEdges(node.Item) {
			edge := e.g.GetEdge(edgeID)
			if edge.SelfLoop {
				// a self-loop returns to its own node and can never
				// shorten a path
				continue
			}
			if filter != nil && !filter(edge) {
				continue
			}
			relax(edge.Other(node.Item), node.Rank+edge.Weight(weight))
		}
	}

	return dist
}

// destinationCost resolves a destination attachment against the
// settled costs of one origin search. The cheaper of entering via
// either endpoint wins; a destination on the origin's own edge may
// also be reached directly along it.
func (e *Engine) destinationCost(dist map[int32]float64, source, dest snap.SnappedPoint,
	weight datastructure.WeightKey, filter datastructure.EdgeFilter) float64 {

	edge := e.g.GetEdge(dest.EdgeID)
	allowed := filter == nil || filter(edge)
	best := Unreachable

	if dest.OffsetFromKm <= attachmentNodeTolKm {
		if d, ok := dist[edge.From]; ok && d < best {
			best = d
		}
	} else if allowed {
		if d, ok := dist[edge.From]; ok && d+offsetCost(edge, weight, dest.OffsetFromKm) < best {
			best = d + offsetCost(edge, weight, dest.OffsetFromKm)
		}
	}

	if dest.OffsetToKm <= attachmentNodeTolKm {
		if d, ok := dist[edge.To]; ok && d < best {
			best = d
		}
	} else if allowed {
		if d, ok := dist[edge.To]; ok && d+offsetCost(edge, weight, dest.OffsetToKm) < best {
			best = d + offsetCost(edge, weight, dest.OffsetToKm)
		}
	}

	if source.EdgeID == dest.EdgeID && allowed {
		direct := offsetCost(edge, weight, math.Abs(source.OffsetFromKm-dest.OffsetFromKm))
		if direct < best {
			best = direct
		}
	}

	return best
}
