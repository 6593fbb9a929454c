package system

import (
	"time"

	"github.com/thirdroom/simcore/internal/core/ecs"
	"github.com/thirdroom/simcore/internal/core/event"
	coresys "github.com/thirdroom/simcore/internal/core/system"
	"github.com/thirdroom/simcore/internal/recycle"
)

// CleanupSystem flushes the deferred entity destruction queue at tick end.
// Destroyed ids go into the active recycle bin, not back to the allocator.
// Phase 4 (Cleanup).
type CleanupSystem struct {
	world *ecs.World
	bins  *recycle.Context
	clock *Clock
	bus   *event.Bus
}

func NewCleanupSystem(world *ecs.World, bins *recycle.Context, clock *Clock, bus *event.Bus) *CleanupSystem {
	return &CleanupSystem{world: world, bins: bins, clock: clock, bus: bus}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.world.FlushDestroyQueue(s.recycle)
}

func (s *CleanupSystem) recycle(id ecs.EntityID) {
	s.bins.Recycle(id)
	if s.bus != nil {
		event.Emit(s.bus, event.EntityDestroyed{EntityID: id, Tick: s.clock.Tick()})
	}
}
