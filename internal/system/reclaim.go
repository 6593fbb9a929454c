package system

import (
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/thirdroom/simcore/internal/core/ecs"
	"github.com/thirdroom/simcore/internal/core/event"
	coresys "github.com/thirdroom/simcore/internal/core/system"
	"github.com/thirdroom/simcore/internal/core/tick"
	"github.com/thirdroom/simcore/internal/recycle"
	"github.com/thirdroom/simcore/internal/stats"
)

// ReclaimSystem ends each tick: it publishes the finished tick to the
// consumer threads, reads back their acknowledgements and releases every
// sealed bin at or below the lowest one. Phase 5 (Reclaim).
type ReclaimSystem struct {
	clock   *Clock
	bins    *recycle.Context
	channel *tick.Channel
	dispose recycle.DisposeFunc
	world   *ecs.World
	bus     *event.Bus
	stats   *stats.Buffer
	log     *zap.Logger
	now     func() time.Time

	releasedTotal uint32
	failures      uint32
}

// NewReclaimSystem wires release to world.DisposeEntity. bus and buf may be nil.
func NewReclaimSystem(clock *Clock, bins *recycle.Context, channel *tick.Channel, world *ecs.World, bus *event.Bus, buf *stats.Buffer, log *zap.Logger) *ReclaimSystem {
	return &ReclaimSystem{
		clock:   clock,
		bins:    bins,
		channel: channel,
		dispose: world.DisposeEntity,
		world:   world,
		bus:     bus,
		stats:   buf,
		log:     log,
		now:     time.Now,
	}
}

func (s *ReclaimSystem) Phase() coresys.Phase { return coresys.PhaseReclaim }

func (s *ReclaimSystem) Update(_ time.Duration) {
	t := s.clock.Tick()
	s.channel.WriteCurrentTick(t)
	s.Reclaim()
}

// Reclaim releases everything under the current watermark without publishing
// a new tick. It returns the number of ids handed back to the allocator.
func (s *ReclaimSystem) Reclaim() int {
	t := s.clock.Tick()
	watermark := s.channel.Watermark()
	n, err := s.bins.Release(watermark, s.dispose)
	s.releasedTotal += uint32(n)
	if err != nil {
		errs := multierr.Errors(err)
		s.failures += uint32(len(errs))
		s.log.Error("entity disposal failed",
			zap.Uint32("tick", t),
			zap.Uint32("watermark", watermark),
			zap.Int("failures", len(errs)),
			zap.Error(errs[0]),
		)
	}
	if n > 0 {
		if s.bus != nil {
			event.Emit(s.bus, event.EntitiesReleased{Tick: t, Watermark: watermark, Count: n})
		}
		if ce := s.log.Check(zap.DebugLevel, "released entities"); ce != nil {
			ce.Write(zap.Uint32("tick", t), zap.Uint32("watermark", watermark), zap.Int("count", n))
		}
	}
	s.writeStats(t, watermark, n)
	return n
}

// Drained reports whether every sealed bin has been released.
func (s *ReclaimSystem) Drained() bool {
	return s.bins.Pending() == 0
}

func (s *ReclaimSystem) writeStats(t, watermark uint32, released int) {
	if s.stats == nil {
		return
	}
	s.stats.Set(stats.Tick, t)
	s.stats.SetFloat(stats.FrameDuration, float32(s.clock.Elapsed(s.now()))/float32(time.Millisecond))
	s.stats.Set(stats.Watermark, watermark)
	s.stats.Set(stats.Released, uint32(released))
	s.stats.Set(stats.ReleasedTotal, s.releasedTotal)
	pending := s.bins.PendingIDs()
	s.stats.Set(stats.PendingBins, uint32(s.bins.Pending()))
	s.stats.Set(stats.PendingIDs, uint32(pending))
	live := s.world.Count() - pending - s.bins.ActiveLen()
	if live < 0 {
		live = 0
	}
	s.stats.Set(stats.LiveEntities, uint32(live))
	s.stats.Set(stats.DisposeFailures, s.failures)
}
