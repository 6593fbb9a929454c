package persist

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/thirdroom/simcore/internal/stats"
)

// FrameWriter is the write side of StatsRepo.
type FrameWriter interface {
	WriteFrames(ctx context.Context, session uuid.UUID, rows []FrameRow) error
}

// Recorder batches stats snapshots from the main thread and writes them when
// the batch fills. Flush writes whatever is left.
type Recorder struct {
	mu      sync.Mutex
	w       FrameWriter
	session uuid.UUID
	size    int
	batch   []FrameRow
}

func NewRecorder(w FrameWriter, session uuid.UUID, batchSize int) *Recorder {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Recorder{
		w:       w,
		session: session,
		size:    batchSize,
		batch:   make([]FrameRow, 0, batchSize),
	}
}

// Record implements consumer.StatsSink.
func (r *Recorder) Record(ctx context.Context, s stats.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batch = append(r.batch, rowFromSnapshot(s))
	if len(r.batch) < r.size {
		return nil
	}
	return r.flushLocked(ctx)
}

func (r *Recorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushLocked(ctx)
}

// Buffered returns the number of rows waiting to be written.
func (r *Recorder) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batch)
}

// flushLocked keeps the batch on failure so the next flush retries it.
func (r *Recorder) flushLocked(ctx context.Context) error {
	if len(r.batch) == 0 {
		return nil
	}
	if err := r.w.WriteFrames(ctx, r.session, r.batch); err != nil {
		return err
	}
	r.batch = r.batch[:0]
	return nil
}

func rowFromSnapshot(s stats.Snapshot) FrameRow {
	return FrameRow{
		Tick:            s.Tick,
		FrameMs:         s.FrameDurationMs,
		Watermark:       s.Watermark,
		Released:        s.Released,
		ReleasedTotal:   s.ReleasedTotal,
		PendingBins:     s.PendingBins,
		PendingIDs:      s.PendingIDs,
		LiveEntities:    s.LiveEntities,
		DisposeFailures: s.DisposeFailures,
	}
}
