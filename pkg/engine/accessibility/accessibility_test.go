package accessibility

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veloreach/veloreach/pkg/datastructure"
	"github.com/veloreach/veloreach/pkg/geo"
	"github.com/veloreach/veloreach/pkg/snap"
)

var (
	coordA = datastructure.NewCoordinate(0, 0)
	coordB = datastructure.NewCoordinate(0, 0.01)
	coordC = datastructure.NewCoordinate(0.01, 0.01)
	coordD = datastructure.NewCoordinate(0.01, 0)
)

// squareGraph is the A-B-C-D-A ring with every edge taking exactly one
// minute. lowAB marks the A-B edge suitability low so a medium filter
// drops it; every other edge is medium.
func squareGraph(t *testing.T, lowAB bool) *datastructure.Graph {
	t.Helper()

	nodes := []datastructure.Node{
		datastructure.NewNode(0, coordA.Lat, coordA.Lon),
		datastructure.NewNode(1, coordB.Lat, coordB.Lon),
		datastructure.NewNode(2, coordC.Lat, coordC.Lon),
		datastructure.NewNode(3, coordD.Lat, coordD.Lon),
	}

	ring := []struct {
		from, to int32
		a, b     datastructure.Coordinate
	}{
		{0, 1, coordA, coordB},
		{1, 2, coordB, coordC},
		{2, 3, coordC, coordD},
		{3, 0, coordD, coordA},
	}

	edges := make([]datastructure.Edge, 0, len(ring))
	for i, r := range ring {
		distKm := geo.CalculateHaversineDistance(r.a.Lat, r.a.Lon, r.b.Lat, r.b.Lon)
		suitability := datastructure.SuitabilityMedium
		if lowAB && i == 0 {
			suitability = datastructure.SuitabilityLow
		}
		edges = append(edges, datastructure.Edge{
			ID:            int32(i),
			From:          r.from,
			To:            r.to,
			DistanceKm:    distKm,
			SpeedKmh:      distKm * 60.0, // exactly one minute per edge
			TravelTimeMin: 1.0,
			Suitability:   suitability,
			Geometry:      []datastructure.Coordinate{r.a, r.b},
		})
	}

	g, err := datastructure.NewGraph(nodes, edges)
	require.NoError(t, err)
	return g
}

func newSquareEngine(t *testing.T, lowAB bool) *Engine {
	t.Helper()
	g := squareGraph(t, lowAB)
	return NewEngine(g, snap.NewEdgeSnapper(g, snap.DefaultMaxRadiusKm))
}

func TestSquareGraphAccessibility(t *testing.T) {
	e := newSquareEngine(t, false)

	res, err := e.Accessibility(Query{
		Origins:      []datastructure.Coordinate{coordA},
		Destinations: []datastructure.Coordinate{coordB, coordC, coordD},
		Weight:       datastructure.WeightTravelTime,
		Threshold:    2.5,
	})
	require.NoError(t, err)

	require.Len(t, res.Costs, 1)
	assert.InDelta(t, 1.0, res.Costs[0][0], 1e-6) // B
	assert.InDelta(t, 2.0, res.Costs[0][1], 1e-6) // C, via B or D
	assert.InDelta(t, 1.0, res.Costs[0][2], 1e-6) // D
	assert.Equal(t, []bool{true, true, true}, res.Reachable[0])
	assert.Equal(t, 3, res.ReachableCount[0])
}

func TestSquareGraphTighterThreshold(t *testing.T) {
	e := newSquareEngine(t, false)

	res, err := e.Accessibility(Query{
		Origins:      []datastructure.Coordinate{coordA},
		Destinations: []datastructure.Coordinate{coordB, coordC, coordD},
		Weight:       datastructure.WeightTravelTime,
		Threshold:    1.5,
	})
	require.NoError(t, err)

	assert.Equal(t, []bool{true, false, true}, res.Reachable[0])
	assert.Equal(t, 2, res.ReachableCount[0])
}

// reachability is strict: a destination costing exactly the threshold
// is out, threshold minus epsilon is in.
func TestThresholdBoundaryIsStrict(t *testing.T) {
	e := newSquareEngine(t, false)

	res, err := e.Accessibility(Query{
		Origins:      []datastructure.Coordinate{coordA},
		Destinations: []datastructure.Coordinate{coordC},
		Weight:       datastructure.WeightTravelTime,
		Threshold:    res0CCost(t, e),
	})
	require.NoError(t, err)
	assert.False(t, res.Reachable[0][0])

	res, err = e.Accessibility(Query{
		Origins:      []datastructure.Coordinate{coordA},
		Destinations: []datastructure.Coordinate{coordC},
		Weight:       datastructure.WeightTravelTime,
		Threshold:    res0CCost(t, e) + 1e-9,
	})
	require.NoError(t, err)
	assert.True(t, res.Reachable[0][0])
}

func res0CCost(t *testing.T, e *Engine) float64 {
	t.Helper()
	res, err := e.Accessibility(Query{
		Origins:      []datastructure.Coordinate{coordA},
		Destinations: []datastructure.Coordinate{coordC},
		Weight:       datastructure.WeightTravelTime,
		Threshold:    math.Inf(1),
	})
	require.NoError(t, err)
	return res.Costs[0][0]
}

func TestFilteredSubgraphReroutes(t *testing.T) {
	e := newSquareEngine(t, true)

	unfiltered, err := e.Accessibility(Query{
		Origins:      []datastructure.Coordinate{coordA},
		Destinations: []datastructure.Coordinate{coordB, coordC},
		Weight:       datastructure.WeightTravelTime,
		Threshold:    10,
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, unfiltered.Costs[0][0], 1e-6)
	assert.InDelta(t, 2.0, unfiltered.Costs[0][1], 1e-6)

	// same engine, same graph, medium-suitability view drops A-B
	filtered, err := e.Accessibility(Query{
		Origins:      []datastructure.Coordinate{coordA},
		Destinations: []datastructure.Coordinate{coordB, coordC},
		Weight:       datastructure.WeightTravelTime,
		Threshold:    10,
		Filter:       datastructure.MinSuitability(datastructure.SuitabilityMedium),
	})
	require.NoError(t, err)
	// B now only via D-C, C only via D
	assert.InDelta(t, 3.0, filtered.Costs[0][0], 1e-6)
	assert.InDelta(t, 2.0, filtered.Costs[0][1], 1e-6)
}

func TestUnreachableIsSentinelNotError(t *testing.T) {
	// square plus a far-away disconnected edge
	g := squareGraph(t, false)
	nodes := append([]datastructure.Node{}, g.GetNodes()...)
	edges := append([]datastructure.Edge{}, g.GetEdges()...)

	island1 := datastructure.NewNode(int32(len(nodes)), 1, 1)
	island2 := datastructure.NewNode(int32(len(nodes)+1), 1, 1.01)
	nodes = append(nodes, island1, island2)
	distKm := geo.CalculateHaversineDistance(1, 1, 1, 1.01)
	edges = append(edges, datastructure.Edge{
		ID:            int32(len(edges)),
		From:          island1.ID,
		To:            island2.ID,
		DistanceKm:    distKm,
		SpeedKmh:      20,
		TravelTimeMin: distKm / 20 * 60,
		Suitability:   datastructure.SuitabilityMedium,
		Geometry:      []datastructure.Coordinate{island1.Coordinate(), island2.Coordinate()},
	})

	joined, err := datastructure.NewGraph(nodes, edges)
	require.NoError(t, err)
	e := NewEngine(joined, snap.NewEdgeSnapper(joined, snap.DefaultMaxRadiusKm))

	res, err := e.Accessibility(Query{
		Origins:      []datastructure.Coordinate{coordA},
		Destinations: []datastructure.Coordinate{{Lat: 1, Lon: 1}},
		Weight:       datastructure.WeightTravelTime,
		Threshold:    1000,
	})
	require.NoError(t, err)
	assert.True(t, math.IsInf(res.Costs[0][0], 1))
	assert.False(t, res.Reachable[0][0])
}

func TestInvalidWeightKeyFailsFast(t *testing.T) {
	e := newSquareEngine(t, false)

	_, err := e.Accessibility(Query{
		Origins:      []datastructure.Coordinate{coordA},
		Destinations: []datastructure.Coordinate{coordB},
		Weight:       datastructure.WeightKey("speed"),
		Threshold:    10,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, datastructure.ErrInvalidWeightKey))
}

func TestEmptyGraphFailsFast(t *testing.T) {
	g, err := datastructure.NewGraph(nil, nil)
	require.NoError(t, err)
	e := NewEngine(g, snapFuncStub{})

	_, err = e.Accessibility(Query{
		Weight:    datastructure.WeightTravelTime,
		Threshold: 10,
	})
	assert.True(t, errors.Is(err, datastructure.ErrEmptyGraph))
}

type snapFuncStub struct{}

func (snapFuncStub) Snap(lat, lon float64) (snap.SnappedPoint, error) {
	return snap.SnappedPoint{}, nil
}

func TestSelfLoopDoesNotBreakSearch(t *testing.T) {
	g := squareGraph(t, false)
	nodes := append([]datastructure.Node{}, g.GetNodes()...)
	edges := append([]datastructure.Edge{}, g.GetEdges()...)
	edges = append(edges, datastructure.Edge{
		ID:          int32(len(edges)),
		From:        0,
		To:          0,
		SelfLoop:    true,
		Suitability: datastructure.SuitabilityMedium,
		Geometry:    []datastructure.Coordinate{coordA, coordA},
	})

	withLoop, err := datastructure.NewGraph(nodes, edges)
	require.NoError(t, err)
	e := NewEngine(withLoop, snap.NewEdgeSnapper(withLoop, snap.DefaultMaxRadiusKm))

	res, err := e.Accessibility(Query{
		Origins:      []datastructure.Coordinate{coordA},
		Destinations: []datastructure.Coordinate{coordC},
		Weight:       datastructure.WeightTravelTime,
		Threshold:    2.5,
	})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, res.Costs[0][0], 1e-6)
}

func TestManyOriginsRunInParallel(t *testing.T) {
	e := newSquareEngine(t, false)
	e.SetWorkers(4)

	res, err := e.Accessibility(Query{
		Origins:      []datastructure.Coordinate{coordA, coordB, coordC, coordD},
		Destinations: []datastructure.Coordinate{coordA, coordB, coordC, coordD},
		Weight:       datastructure.WeightTravelTime,
		Threshold:    2.5,
	})
	require.NoError(t, err)

	// rows stay in origin order regardless of worker scheduling
	for i := 0; i < 4; i++ {
		assert.InDelta(t, 0.0, res.Costs[i][i], 1e-6)
		opposite := (i + 2) % 4
		assert.InDelta(t, 2.0, res.Costs[i][opposite], 1e-6)
	}
}

func TestCostMatrixOverPreSnappedPoints(t *testing.T) {
	g := squareGraph(t, false)
	snapper := snap.NewEdgeSnapper(g, snap.DefaultMaxRadiusKm)
	e := NewEngine(g, snapper)

	origin, err := snapper.Snap(coordA.Lat, coordA.Lon)
	require.NoError(t, err)
	dest, err := snapper.Snap(coordC.Lat, coordC.Lon)
	require.NoError(t, err)

	costs, err := e.CostMatrix([]snap.SnappedPoint{origin}, []snap.SnappedPoint{dest},
		datastructure.WeightTravelTime, nil)
	require.NoError(t, err)
	require.Len(t, costs, 1)
	assert.InDelta(t, 2.0, costs[0][0], 1e-6)

	_, err = e.CostMatrix([]snap.SnappedPoint{origin}, []snap.SnappedPoint{dest},
		datastructure.WeightKey("speed"), nil)
	assert.True(t, errors.Is(err, datastructure.ErrInvalidWeightKey))
}

func TestDistanceWeightKey(t *testing.T) {
	e := newSquareEngine(t, false)

	res, err := e.Accessibility(Query{
		Origins:      []datastructure.Coordinate{coordA},
		Destinations: []datastructure.Coordinate{coordB},
		Weight:       datastructure.WeightDistance,
		Threshold:    2.0, // kilometers here, not minutes
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.112, res.Costs[0][0], 0.01)
	assert.True(t, res.Reachable[0][0])
}
