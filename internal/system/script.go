package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/thirdroom/simcore/internal/core/event"
	coresys "github.com/thirdroom/simcore/internal/core/system"
	"github.com/thirdroom/simcore/internal/scripting"
)

// ScriptSystem runs the Lua workload once per tick and forwards release
// notifications to it. Phase 2 (Update).
type ScriptSystem struct {
	engine *scripting.Engine
	clock  *Clock
	log    *zap.Logger
	errors int
}

func NewScriptSystem(engine *scripting.Engine, clock *Clock, bus *event.Bus, log *zap.Logger) *ScriptSystem {
	s := &ScriptSystem{engine: engine, clock: clock, log: log}
	if bus != nil && engine.HasHook("on_released") {
		event.Subscribe(bus, s.onReleased)
	}
	return s
}

func (s *ScriptSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *ScriptSystem) Update(_ time.Duration) {
	if err := s.engine.OnTick(s.clock.Tick()); err != nil {
		s.errors++
		s.log.Error("workload tick failed", zap.Uint32("tick", s.clock.Tick()), zap.Error(err))
	}
}

// Errors returns how many hook calls have failed.
func (s *ScriptSystem) Errors() int { return s.errors }

func (s *ScriptSystem) onReleased(ev event.EntitiesReleased) {
	if err := s.engine.OnReleased(ev.Tick, ev.Count); err != nil {
		s.errors++
		s.log.Error("workload release hook failed", zap.Uint32("tick", ev.Tick), zap.Error(err))
	}
}
