package concurrent

import (
	"github.com/veloreach/veloreach/pkg/snap"
)

// OriginSearchParam is the per-origin unit of work for the
// accessibility engine: one snapped origin whose single-source search
// runs independently of every other origin.
type OriginSearchParam struct {
	OriginIdx int
	Source    snap.SnappedPoint
}

func NewOriginSearchParam(originIdx int, source snap.SnappedPoint) OriginSearchParam {
	return OriginSearchParam{
		OriginIdx: originIdx,
		Source:    source,
	}
}

type JobI interface {
	OriginSearchParam
}

type Job[T JobI] struct {
	ID      int
	JobItem T
}

type JobFunc[T JobI, G any] func(job T) G
