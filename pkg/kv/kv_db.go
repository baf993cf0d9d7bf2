package kv

import (
	"context"
	"log"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"github.com/uber/h3-go/v4"
	"github.com/veloreach/veloreach/pkg/datastructure"
)

const (
	// H3Resolution 9 cells are ~170 m across, a good match for the
	// snap search radius.
	H3Resolution = 9

	keyPrefix = "edgecell/"

	writeBatchSize = 1000
)

var ErrEdgesNotFound = errors.New("no edges indexed near cell")

// KVDB is a badger-backed H3-cell index of graph edges, used by the
// serving layer to find snap candidates near a query point without
// holding a second in-memory spatial index.
type KVDB struct {
	db *badger.DB
}

func NewKVDB(db *badger.DB) *KVDB {
	return &KVDB{db: db}
}

func (k *KVDB) Close() error {
	return k.db.Close()
}

// BuildCellIndexedEdges indexes every edge under the H3 cell of each
// of its geometry vertices, so a cell lookup finds edges passing
// through it, not only those starting there.
func (k *KVDB) BuildCellIndexedEdges(ctx context.Context, g *datastructure.Graph) error {
	log.Printf("kv: indexing %d edge(s) into h3 cells...", g.NumEdges())

	cells := make(map[string][]KVEdge)
	for _, edge := range g.GetEdges() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		seen := make(map[string]struct{}, len(edge.Geometry))
		for _, c := range edge.Geometry {
			cell := h3.LatLngToCell(h3.NewLatLng(c.Lat, c.Lon), H3Resolution)
			key := cell.String()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			cells[key] = append(cells[key], KVEdge{
				EdgeID:    edge.ID,
				CenterLat: edge.Geometry[0].Lat,
				CenterLon: edge.Geometry[0].Lon,
			})
		}
	}

	batch := k.db.NewWriteBatch()
	defer func() { batch.Cancel() }()

	written := 0
	for key, edges := range cells {
		val, err := encodeEdges(edges)
		if err != nil {
			return err
		}
		if err := batch.Set([]byte(keyPrefix+key), val); err != nil {
			return errors.Wrapf(err, "writing cell %s", key)
		}
		written++
		if written%writeBatchSize == 0 {
			if err := batch.Flush(); err != nil {
				return errors.Wrap(err, "flushing cell batch")
			}
			batch = k.db.NewWriteBatch()
		}
	}
	if err := batch.Flush(); err != nil {
		return errors.Wrap(err, "flushing cell batch")
	}

	log.Printf("kv: indexed %d cell(s)", len(cells))
	return nil
}

// EdgesNearCoord returns the candidate edges indexed in the query
// point's cell and its ring-k neighborhood.
func (k *KVDB) EdgesNearCoord(lat, lon float64, ring int) ([]KVEdge, error) {
	center := h3.LatLngToCell(h3.NewLatLng(lat, lon), H3Resolution)

	out := make([]KVEdge, 0)
	seen := make(map[int32]struct{})
	for _, cell := range h3.GridDisk(center, ring) {
		edges, err := k.cellEdges(cell.String())
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			if _, dup := seen[e.EdgeID]; dup {
				continue
			}
			seen[e.EdgeID] = struct{}{}
			out = append(out, e)
		}
	}

	if len(out) == 0 {
		return nil, errors.Wrapf(ErrEdgesNotFound, "(%f, %f)", lat, lon)
	}
	return out, nil
}

func (k *KVDB) cellEdges(cellKey string) ([]KVEdge, error) {
	var edges []KVEdge
	err := k.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + cellKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		edges, err = decodeEdges(val)
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "reading cell %s", cellKey)
	}
	return edges, nil
}
