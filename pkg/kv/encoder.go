package kv

import (
	"github.com/DataDog/zstd"
	"github.com/kelindar/binary"
	"github.com/pkg/errors"
)

// KVEdge is the candidate-edge record stored per H3 cell: just enough
// to find the full edge in the in-memory graph.
type KVEdge struct {
	EdgeID    int32
	CenterLat float64
	CenterLon float64
}

func encodeEdges(edges []KVEdge) ([]byte, error) {
	encoded, err := binary.Marshal(edges)
	if err != nil {
		return nil, errors.Wrap(err, "encoding cell edges")
	}
	compressed, err := zstd.Compress(nil, encoded)
	if err != nil {
		return nil, errors.Wrap(err, "compressing cell edges")
	}
	return compressed, nil
}

func decodeEdges(compressed []byte) ([]KVEdge, error) {
	decompressed, err := zstd.Decompress(nil, compressed)
	if err != nil {
		return nil, errors.Wrap(err, "decompressing cell edges")
	}
	var edges []KVEdge
	if err := binary.Unmarshal(decompressed, &edges); err != nil {
		return nil, errors.Wrap(err, "decoding cell edges")
	}
	return edges, nil
}
