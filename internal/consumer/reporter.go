package consumer

import (
	"context"

	"go.uber.org/zap"

	"github.com/thirdroom/simcore/internal/stats"
)

// StatsSink receives periodic stats snapshots from the main thread.
type StatsSink interface {
	Record(ctx context.Context, s stats.Snapshot) error
}

// Reporter reads the shared stats buffer on the main thread every few frames.
type Reporter struct {
	buf   *stats.Buffer
	every uint32
	sink  StatsSink
	log   *zap.Logger
	last  stats.Snapshot
}

// NewReporter reports every `every` frames. sink may be nil.
func NewReporter(buf *stats.Buffer, every int, sink StatsSink, log *zap.Logger) *Reporter {
	if every <= 0 {
		every = 1
	}
	return &Reporter{buf: buf, every: uint32(every), sink: sink, log: log.Named("stats")}
}

// OnFrame matches Options.OnFrame.
func (r *Reporter) OnFrame(ctx context.Context, frame uint32) {
	if frame%r.every != 0 {
		return
	}
	snap := r.buf.Snapshot()
	if snap.Tick == r.last.Tick {
		return // simulation has not moved since the last report
	}
	r.last = snap
	r.log.Info("frame stats",
		zap.Uint32("tick", snap.Tick),
		zap.Uint32("watermark", snap.Watermark),
		zap.Uint32("lag", snap.Lag()),
		zap.Uint32("live", snap.LiveEntities),
		zap.Uint32("pending_ids", snap.PendingIDs),
		zap.Uint32("released_total", snap.ReleasedTotal),
		zap.Float32("frame_ms", snap.FrameDurationMs),
	)
	if r.sink == nil {
		return
	}
	if err := r.sink.Record(ctx, snap); err != nil {
		r.log.Warn("record stats", zap.Error(err))
	}
}

// Last returns the most recent reported snapshot.
func (r *Reporter) Last() stats.Snapshot { return r.last }
