package system

import (
	"time"

	coresys "github.com/thirdroom/simcore/internal/core/system"
	"github.com/thirdroom/simcore/internal/recycle"
)

// AdvanceSystem starts each tick: it bumps the clock and seals the previous
// tick's recycle bin before any system can recycle into the new one.
// Phase 0 (TickStart).
type AdvanceSystem struct {
	clock *Clock
	bins  *recycle.Context
	now   func() time.Time
}

func NewAdvanceSystem(clock *Clock, bins *recycle.Context) *AdvanceSystem {
	return &AdvanceSystem{clock: clock, bins: bins, now: time.Now}
}

func (s *AdvanceSystem) Phase() coresys.Phase { return coresys.PhaseTickStart }

func (s *AdvanceSystem) Update(_ time.Duration) {
	t := s.clock.advance(s.now())
	s.bins.Advance(t)
}
