package system

import (
	"slices"
	"testing"
	"time"
)

type stub struct {
	phase Phase
	name  string
	log   *[]string
}

func (s stub) Phase() Phase { return s.phase }
func (s stub) Update(time.Duration) {
	*s.log = append(*s.log, s.name)
}

func TestRunnerOrdersByPhase(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(stub{PhaseReclaim, "reclaim", &log})
	r.Register(stub{PhaseUpdate, "script", &log})
	r.Register(stub{PhaseTickStart, "advance", &log})
	r.Register(stub{PhaseUpdate, "logic", &log})
	r.Register(stub{PhaseCleanup, "cleanup", &log})

	r.Tick(time.Millisecond)
	want := []string{"advance", "script", "logic", "cleanup", "reclaim"}
	if !slices.Equal(log, want) {
		t.Fatalf("got %v, want %v", log, want)
	}
}

func TestTickPhase(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(stub{PhaseUpdate, "logic", &log})
	r.Register(stub{PhaseReclaim, "reclaim", &log})
	r.TickPhase(PhaseReclaim, 0)
	if !slices.Equal(log, []string{"reclaim"}) {
		t.Fatalf("got %v", log)
	}
}

func TestSpentTracksLastRun(t *testing.T) {
	var log []string
	r := NewRunner()
	clock := time.Unix(0, 0)
	r.now = func() time.Time {
		clock = clock.Add(3 * time.Millisecond)
		return clock
	}
	r.Register(stub{PhaseCleanup, "cleanup", &log})
	r.TickPhase(PhaseCleanup, 0)
	if got := r.Spent(PhaseCleanup); got != 3*time.Millisecond {
		t.Fatalf("Spent(cleanup) = %v, want 3ms", got)
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
}

func TestRegisterUnknownPhasePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	var log []string
	NewRunner().Register(stub{Phase(42), "bad", &log})
}
