package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-polyline"
	"github.com/veloreach/veloreach/pkg/builder"
	"github.com/veloreach/veloreach/pkg/costmodel"
	"github.com/veloreach/veloreach/pkg/datastructure"
	"github.com/veloreach/veloreach/pkg/engine/accessibility"
	"github.com/veloreach/veloreach/pkg/osmparser"
	"github.com/veloreach/veloreach/pkg/snap"
	"github.com/veloreach/veloreach/pkg/topology"
)

func buildService(t *testing.T) *AccessibilityService {
	t.Helper()

	b := builder.NewBuilder(builder.DefaultEpsilonDeg, builder.KeepSelfLoop)
	seg, err := costmodel.BuildSegment([]datastructure.Coordinate{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 0.01},
	}, costmodel.ConstantGradient(0), costmodel.Tags{"highway": "cycleway"})
	require.NoError(t, err)
	b.AddSegment(seg)
	g, err := b.Build()
	require.NoError(t, err)

	engine := accessibility.NewEngine(g, snap.NewEdgeSnapper(g, snap.DefaultMaxRadiusKm))
	pois := []osmparser.POI{
		{Lat: 0, Lon: 0.01, Tags: map[string]string{"amenity": "school"}},
		{Lat: 0, Lon: 0, Tags: map[string]string{"amenity": "cafe"}},
	}
	stats := topology.Stats{TotalNodes: g.NumNodes(), TotalEdges: g.NumEdges(), ComponentCount: 1, LargestNodes: g.NumNodes()}
	return NewAccessibilityService(engine, g, pois, stats)
}

func TestAccessibilityWithExplicitDestinations(t *testing.T) {
	svc := buildService(t)

	res, dests, edgePaths, err := svc.Accessibility(context.Background(),
		[]datastructure.Coordinate{{Lat: 0, Lon: 0}},
		[]datastructure.Coordinate{{Lat: 0, Lon: 0.01}},
		"", datastructure.WeightTravelTime, 60.0, "")
	require.NoError(t, err)

	assert.Len(t, dests, 1)
	assert.Equal(t, 1, res.ReachableCount[0])
	require.Len(t, edgePaths, 1)
	assert.NotEmpty(t, edgePaths[0])
}

func TestAccessibilityRendersAttachmentEdgePath(t *testing.T) {
	svc := buildService(t)

	res, _, edgePaths, err := svc.Accessibility(context.Background(),
		[]datastructure.Coordinate{{Lat: 0, Lon: 0.005}},
		nil, "school", datastructure.WeightTravelTime, 60.0, "")
	require.NoError(t, err)

	require.Len(t, edgePaths, 1)
	edge := svc.g.GetEdge(res.OriginSnaps[0].EdgeID)
	assert.Equal(t, datastructure.RenderPath(edge.Geometry), edgePaths[0])

	decoded, _, err := polyline.DecodeCoords([]byte(edgePaths[0]))
	require.NoError(t, err)
	require.Len(t, decoded, len(edge.Geometry))
	assert.InDelta(t, edge.Geometry[0].Lat, decoded[0][0], 1e-5)
	assert.InDelta(t, edge.Geometry[0].Lon, decoded[0][1], 1e-5)
}

func TestAccessibilityResolvesAmenity(t *testing.T) {
	svc := buildService(t)

	res, dests, _, err := svc.Accessibility(context.Background(),
		[]datastructure.Coordinate{{Lat: 0, Lon: 0}},
		nil, "school", datastructure.WeightTravelTime, 60.0, "")
	require.NoError(t, err)

	require.Len(t, dests, 1)
	assert.Equal(t, 0.01, dests[0].Lon)
	assert.Equal(t, 1, res.ReachableCount[0])
}

func TestAccessibilityUnknownAmenity(t *testing.T) {
	svc := buildService(t)

	_, _, _, err := svc.Accessibility(context.Background(),
		[]datastructure.Coordinate{{Lat: 0, Lon: 0}},
		nil, "hospital", datastructure.WeightTravelTime, 60.0, "")
	assert.ErrorIs(t, err, ErrNoDestinations)
}

func TestAccessibilitySuitabilityFilter(t *testing.T) {
	svc := buildService(t)

	// the only edge is a cycleway, so a "good" floor keeps it
	res, _, _, err := svc.Accessibility(context.Background(),
		[]datastructure.Coordinate{{Lat: 0, Lon: 0}},
		nil, "school", datastructure.WeightTravelTime, 60.0, "good")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ReachableCount[0])
}

func TestAccessibilityBadSuitability(t *testing.T) {
	svc := buildService(t)

	_, _, _, err := svc.Accessibility(context.Background(),
		[]datastructure.Coordinate{{Lat: 0, Lon: 0}},
		nil, "school", datastructure.WeightTravelTime, 60.0, "excellent")
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	svc := buildService(t)

	summary := svc.Summary(context.Background())
	assert.Equal(t, 2, summary.Nodes)
	assert.Equal(t, 1, summary.Edges)
	assert.Equal(t, 2, summary.POIs)
	assert.Equal(t, 1, summary.ComponentCount)
	assert.Greater(t, summary.TotalKm, 1.0)
	assert.Greater(t, summary.KmBySuitability["good"], 0.0)
}
