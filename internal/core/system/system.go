package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseTickStart  Phase = iota // 0: advance tick, seal last tick's recycle bin
	PhasePreUpdate               // 1: process last tick's events
	PhaseUpdate                  // 2: game logic
	PhasePostUpdate              // 3: derived state
	PhaseCleanup                 // 4: destroy queued entities into the recycle bin
	PhaseReclaim                 // 5: publish tick, release bins under the watermark

	phaseCount
)

func (p Phase) String() string {
	switch p {
	case PhaseTickStart:
		return "tick_start"
	case PhasePreUpdate:
		return "pre_update"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post_update"
	case PhaseCleanup:
		return "cleanup"
	case PhaseReclaim:
		return "reclaim"
	}
	return "unknown"
}

// System is the interface every ECS system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
