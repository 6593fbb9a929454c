// Package stats is the shared frame-statistics block. The simulation thread
// writes it once per tick; the main thread reads it on its own schedule.
package stats

import (
	"fmt"
	"math"

	"github.com/thirdroom/simcore/internal/core/shm"
)

type Stat int

const (
	Tick Stat = iota
	FrameDuration
	Watermark
	Released
	ReleasedTotal
	PendingBins
	PendingIDs
	LiveEntities
	DisposeFailures

	statCount
)

var statNames = [statCount]string{
	"tick", "frameDuration", "watermark", "released", "releasedTotal",
	"pendingBins", "pendingIds", "liveEntities", "disposeFailures",
}

func (s Stat) String() string {
	if s >= 0 && s < statCount {
		return statNames[s]
	}
	return fmt.Sprintf("Stat(%d)", int(s))
}

// Words is the number of region words a Buffer occupies.
const Words = int(statCount)

// Buffer holds one word per Stat. FrameDuration is stored as float32 bits in
// milliseconds; every other stat is an unsigned counter.
type Buffer struct {
	cells [statCount]*shm.Cell
}

func NewBuffer(r *shm.Region) (*Buffer, error) {
	b := &Buffer{}
	for i := range b.cells {
		c, err := shm.NewCell(r)
		if err != nil {
			return nil, fmt.Errorf("stat %v: %w", Stat(i), err)
		}
		b.cells[i] = c
	}
	return b, nil
}

func (b *Buffer) Set(s Stat, v uint32) { b.cells[s].Store(v) }
func (b *Buffer) Get(s Stat) uint32    { return b.cells[s].Load() }

func (b *Buffer) SetFloat(s Stat, v float32) { b.cells[s].Store(math.Float32bits(v)) }
func (b *Buffer) GetFloat(s Stat) float32    { return math.Float32frombits(b.cells[s].Load()) }

// Snapshot is a point-in-time copy of the buffer. Fields are read one at a
// time, so a snapshot taken mid-tick may mix two ticks.
type Snapshot struct {
	Tick            uint32
	FrameDurationMs float32
	Watermark       uint32
	Released        uint32
	ReleasedTotal   uint32
	PendingBins     uint32
	PendingIDs      uint32
	LiveEntities    uint32
	DisposeFailures uint32
}

func (b *Buffer) Snapshot() Snapshot {
	return Snapshot{
		Tick:            b.Get(Tick),
		FrameDurationMs: b.GetFloat(FrameDuration),
		Watermark:       b.Get(Watermark),
		Released:        b.Get(Released),
		ReleasedTotal:   b.Get(ReleasedTotal),
		PendingBins:     b.Get(PendingBins),
		PendingIDs:      b.Get(PendingIDs),
		LiveEntities:    b.Get(LiveEntities),
		DisposeFailures: b.Get(DisposeFailures),
	}
}

// Lag is how many ticks reclamation trails the simulation.
func (s Snapshot) Lag() uint32 {
	if s.Watermark >= s.Tick {
		return 0
	}
	return s.Tick - s.Watermark
}
