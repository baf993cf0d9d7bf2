package osmparser

import (
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
)

func way(tags map[string]string, nodeCount int) *osm.Way {
	w := &osm.Way{}
	for k, v := range tags {
		w.Tags = append(w.Tags, osm.Tag{Key: k, Value: v})
	}
	for i := 0; i < nodeCount; i++ {
		w.Nodes = append(w.Nodes, osm.WayNode{ID: osm.NodeID(i + 1)})
	}
	return w
}

func TestAcceptWay(t *testing.T) {
	tests := []struct {
		name string
		way  *osm.Way
		want bool
	}{
		{"residential street", way(map[string]string{"highway": "residential"}, 2), true},
		{"cycleway", way(map[string]string{"highway": "cycleway"}, 3), true},
		{"no highway tag", way(map[string]string{"waterway": "river"}, 2), false},
		{"motorway skipped", way(map[string]string{"highway": "motorway"}, 2), false},
		{"bicycle forbidden", way(map[string]string{"highway": "residential", "bicycle": "no"}, 2), false},
		{"single node way", way(map[string]string{"highway": "residential"}, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, acceptWay(tt.way))
		})
	}
}

func TestPOIAmenity(t *testing.T) {
	p := POI{Lat: -7.5, Lon: 110.8, Tags: map[string]string{"amenity": "school", "name": "SDN 1"}}
	assert.Equal(t, "school", p.Amenity())
	assert.Equal(t, -7.5, p.Coordinate().Lat)
}
