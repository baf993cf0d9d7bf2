package osmparser

import (
	"context"
	"log"
	"os"
	"runtime"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/pkg/errors"
	"github.com/veloreach/veloreach/pkg/costmodel"
	"github.com/veloreach/veloreach/pkg/datastructure"
)

// RawLine is one cycling-relevant way as it comes out of the data
// source: an untyped polyline (lon, lat order) plus its categorical
// tags. Coordinates are WGS84; no reprojection happens downstream.
type RawLine struct {
	Geometry orb.LineString
	Tags     costmodel.Tags
}

// POI is a point of interest (amenity node). Not part of the graph;
// snapped at query time only.
type POI struct {
	Lat  float64
	Lon  float64
	Tags map[string]string
}

func (p POI) Coordinate() datastructure.Coordinate {
	return datastructure.NewCoordinate(p.Lat, p.Lon)
}

func (p POI) Amenity() string {
	return p.Tags["amenity"]
}

// highway values that are never cyclable, skipped at parse time
var skippedHighways = map[string]struct{}{
	"motorway":      {},
	"motorway_link": {},
	"trunk":         {},
	"trunk_link":    {},
	"proposed":      {},
	"construction":  {},
	"abandoned":     {},
	"platform":      {},
	"raceway":       {},
	"elevator":      {},
}

// tag keys carried onto the graph; everything else is dropped early
var keptWayTags = []string{
	"highway",
	"cycleway",
	"cycleway:left",
	"cycleway:right",
	"cycleway:both",
	"bicycle",
	"oneway",
	"name",
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse reads an .osm.pbf extract and returns the cycling-relevant
// ways as raw tagged lines together with amenity POIs. The file is
// scanned twice: once for ways, once to resolve node coordinates, so
// only node IDs referenced by kept ways stay in memory.
func (p *Parser) Parse(mapFile string) ([]RawLine, []POI, error) {
	type pendingWay struct {
		nodeIDs []int64
		tags    costmodel.Tags
	}

	ways := make([]pendingWay, 0)
	neededNodes := make(map[int64]struct{})

	err := p.scan(mapFile, func(obj osm.Object) {
		way, ok := obj.(*osm.Way)
		if !ok {
			return
		}
		if !acceptWay(way) {
			return
		}

		tags := make(costmodel.Tags)
		for _, key := range keptWayTags {
			if v := way.Tags.Find(key); v != "" {
				tags[key] = v
			}
		}

		nodeIDs := make([]int64, 0, len(way.Nodes))
		for _, wn := range way.Nodes {
			nodeIDs = append(nodeIDs, int64(wn.ID))
			neededNodes[int64(wn.ID)] = struct{}{}
		}
		ways = append(ways, pendingWay{nodeIDs: nodeIDs, tags: tags})
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "scanning ways")
	}

	pois := make([]POI, 0)
	nodeCoords := make(map[int64]orb.Point, len(neededNodes))
	err = p.scan(mapFile, func(obj osm.Object) {
		node, ok := obj.(*osm.Node)
		if !ok {
			return
		}
		if _, needed := neededNodes[int64(node.ID)]; needed {
			nodeCoords[int64(node.ID)] = orb.Point{node.Lon, node.Lat}
		}
		if amenity := node.Tags.Find("amenity"); amenity != "" {
			pois = append(pois, POI{
				Lat:  node.Lat,
				Lon:  node.Lon,
				Tags: node.Tags.Map(),
			})
		}
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "scanning nodes")
	}

	lines := make([]RawLine, 0, len(ways))
	incomplete := 0
	for _, way := range ways {
		geom := make(orb.LineString, 0, len(way.nodeIDs))
		complete := true
		for _, id := range way.nodeIDs {
			pt, ok := nodeCoords[id]
			if !ok {
				complete = false
				break
			}
			geom = append(geom, pt)
		}
		if !complete || len(geom) < 2 {
			incomplete++
			continue
		}
		lines = append(lines, RawLine{Geometry: geom, Tags: way.tags})
	}

	if incomplete > 0 {
		log.Printf("osmparser: skipped %d way(s) with unresolved nodes", incomplete)
	}
	log.Printf("osmparser: %d way(s), %d poi(s) from %s", len(lines), len(pois), mapFile)
	return lines, pois, nil
}

func (p *Parser) scan(mapFile string, visit func(osm.Object)) error {
	f, err := os.Open(mapFile)
	if err != nil {
		return errors.Wrapf(err, "opening %s", mapFile)
	}
	defer f.Close()

	scanner := osmpbf.New(context.Background(), f, runtime.GOMAXPROCS(0))
	defer scanner.Close()

	for scanner.Scan() {
		visit(scanner.Object())
	}
	return scanner.Err()
}

func acceptWay(way *osm.Way) bool {
	if len(way.Nodes) < 2 {
		return false
	}
	highway := way.Tags.Find("highway")
	if highway == "" {
		return false
	}
	if _, skip := skippedHighways[highway]; skip {
		return false
	}
	if way.Tags.Find("bicycle") == "no" {
		return false
	}
	return true
}
