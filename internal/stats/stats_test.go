package stats

import (
	"testing"

	"github.com/thirdroom/simcore/internal/core/shm"
)

func TestSnapshot(t *testing.T) {
	b, err := NewBuffer(shm.NewRegion(Words))
	if err != nil {
		t.Fatal(err)
	}
	b.Set(Tick, 12)
	b.Set(Watermark, 9)
	b.SetFloat(FrameDuration, 1.25)
	b.Set(PendingIDs, 3)

	s := b.Snapshot()
	if s.Tick != 12 || s.Watermark != 9 || s.FrameDurationMs != 1.25 || s.PendingIDs != 3 {
		t.Fatalf("unexpected snapshot %+v", s)
	}
	if s.Lag() != 3 {
		t.Fatalf("expected lag 3, got %d", s.Lag())
	}
}

func TestBufferNeedsRoom(t *testing.T) {
	if _, err := NewBuffer(shm.NewRegion(Words - 1)); err == nil {
		t.Fatal("expected allocation failure")
	}
}

func TestStatString(t *testing.T) {
	if PendingBins.String() != "pendingBins" {
		t.Fatalf("got %q", PendingBins.String())
	}
}
