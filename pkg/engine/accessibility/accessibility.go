package accessibility

import (
	"runtime"

	"github.com/pkg/errors"
	"github.com/veloreach/veloreach/pkg/concurrent"
	"github.com/veloreach/veloreach/pkg/datastructure"
	"github.com/veloreach/veloreach/pkg/snap"
)

// Snapper maps an arbitrary coordinate to its nearest location on the
// graph without mutating it.
type Snapper interface {
	Snap(lat, lon float64) (snap.SnappedPoint, error)
}

// Engine answers cumulative-opportunities accessibility queries: how
// many destinations are reachable from each origin within a cost
// threshold, over the full graph or a filtered edge subset.
type Engine struct {
	g       *datastructure.Graph
	snapper Snapper
	workers int
}

func NewEngine(g *datastructure.Graph, snapper Snapper) *Engine {
	return &Engine{
		g:       g,
		snapper: snapper,
		workers: runtime.GOMAXPROCS(0),
	}
}

// SetWorkers overrides the per-origin search parallelism. Values < 1
// force sequential execution.
func (e *Engine) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	e.workers = n
}

// Query is one accessibility request. Weight and Threshold share a
// unit (minutes for travel time, kilometers for distance); the engine
// never converts units. A nil Filter admits every edge.
type Query struct {
	Origins      []datastructure.Coordinate
	Destinations []datastructure.Coordinate
	Weight       datastructure.WeightKey
	Threshold    float64
	Filter       datastructure.EdgeFilter
}

// Result holds the origins x destinations cost matrix and its
// classification against the threshold. Costs[i][j] is Unreachable
// when destination j lies outside origin i's component.
type Result struct {
	Costs            [][]float64
	Reachable        [][]bool
	ReachableCount   []int
	OriginSnaps      []snap.SnappedPoint
	DestinationSnaps []snap.SnappedPoint
}

// Accessibility snaps every origin and destination, runs one
// single-source search per origin (in parallel across origins) and
// classifies each destination as reachable iff cost < Threshold,
// strictly: a destination at exactly the threshold is unreachable.
func (e *Engine) Accessibility(q Query) (*Result, error) {
	if err := e.g.ValidateWeightKey(q.Weight); err != nil {
		return nil, err
	}

	originSnaps, err := e.snapAll(q.Origins, "origin")
	if err != nil {
		return nil, err
	}
	destSnaps, err := e.snapAll(q.Destinations, "destination")
	if err != nil {
		return nil, err
	}

	costs := e.costMatrix(originSnaps, destSnaps, q.Weight, q.Filter)

	res := &Result{
		Costs:            costs,
		Reachable:        make([][]bool, len(costs)),
		ReachableCount:   make([]int, len(costs)),
		OriginSnaps:      originSnaps,
		DestinationSnaps: destSnaps,
	}
	for i, row := range costs {
		res.Reachable[i] = make([]bool, len(row))
		for j, cost := range row {
			if cost < q.Threshold {
				res.Reachable[i][j] = true
				res.ReachableCount[i]++
			}
		}
	}
	return res, nil
}

// CostMatrix computes shortest-path costs between pre-snapped points.
// The weight key is validated before any search starts.
func (e *Engine) CostMatrix(origins, dests []snap.SnappedPoint,
	weight datastructure.WeightKey, filter datastructure.EdgeFilter) ([][]float64, error) {
	if err := e.g.ValidateWeightKey(weight); err != nil {
		return nil, err
	}
	return e.costMatrix(origins, dests, weight, filter), nil
}

type rowResult struct {
	originIdx int
	row       []float64
}

func (e *Engine) costMatrix(origins, dests []snap.SnappedPoint,
	weight datastructure.WeightKey, filter datastructure.EdgeFilter) [][]float64 {

	costs := make([][]float64, len(origins))
	if len(origins) == 0 {
		return costs
	}

	workers := e.workers
	if workers > len(origins) {
		workers = len(origins)
	}

	if workers <= 1 {
		for i, src := range origins {
			costs[i] = e.costRow(src, dests, weight, filter)
		}
		return costs
	}

	// searches share only the immutable graph, one job per origin
	wp := concurrent.NewWorkerPool[concurrent.OriginSearchParam, rowResult](workers, len(origins))
	wp.Start(func(job concurrent.OriginSearchParam) rowResult {
		return rowResult{
			originIdx: job.OriginIdx,
			row:       e.costRow(job.Source, dests, weight, filter),
		}
	})
	for i, src := range origins {
		wp.AddJob(concurrent.NewOriginSearchParam(i, src))
	}
	wp.CloseJobQueue()
	wp.Wait()
	for res := range wp.CollectResults() {
		costs[res.originIdx] = res.row
	}
	return costs
}

func (e *Engine) costRow(source snap.SnappedPoint, dests []snap.SnappedPoint,
	weight datastructure.WeightKey, filter datastructure.EdgeFilter) []float64 {

	dist := e.singleSource(source, weight, filter)
	row := make([]float64, len(dests))
	for j, dest := range dests {
		row[j] = e.destinationCost(dist, source, dest, weight, filter)
	}
	return row
}

func (e *Engine) snapAll(points []datastructure.Coordinate, kind string) ([]snap.SnappedPoint, error) {
	snaps := make([]snap.SnappedPoint, len(points))
	for i, p := range points {
		snapped, err := e.snapper.Snap(p.Lat, p.Lon)
		if err != nil {
			return nil, errors.Wrapf(err, "snapping %s %d", kind, i)
		}
		snaps[i] = snapped
	}
	return snaps, nil
}
