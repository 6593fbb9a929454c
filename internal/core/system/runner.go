package system

import (
	"fmt"
	"time"
)

// Runner executes systems in phase order each tick. Systems sharing a phase
// keep their registration order.
type Runner struct {
	phases [phaseCount][]System
	spent  [phaseCount]time.Duration
	now    func() time.Time
}

func NewRunner() *Runner {
	return &Runner{now: time.Now}
}

// Register panics on a phase outside the known range.
func (r *Runner) Register(s System) {
	p := s.Phase()
	if p < 0 || p >= phaseCount {
		panic(fmt.Sprintf("system: register %T with unknown phase %d", s, p))
	}
	r.phases[p] = append(r.phases[p], s)
}

func (r *Runner) Tick(dt time.Duration) {
	for p := Phase(0); p < phaseCount; p++ {
		r.TickPhase(p, dt)
	}
}

// TickPhase runs only the systems of one phase. The final drain at shutdown
// uses it to keep reclaiming without running game logic.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	start := r.now()
	for _, s := range r.phases[phase] {
		s.Update(dt)
	}
	r.spent[phase] = r.now().Sub(start)
}

// Spent returns how long phase took the last time it ran.
func (r *Runner) Spent(phase Phase) time.Duration { return r.spent[phase] }

func (r *Runner) Len() int {
	n := 0
	for _, ss := range r.phases {
		n += len(ss)
	}
	return n
}
