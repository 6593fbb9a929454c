// Package tick carries tick numbers between the simulation thread and its
// consumer threads through single-word shared cells. The simulation thread
// publishes the tick it just finished; each consumer publishes the last tick
// it has completely read. Latest value wins; nothing is queued.
package tick

import (
	"errors"
	"fmt"

	"github.com/thirdroom/simcore/internal/core/shm"
)

// Thread identifies a consumer thread.
type Thread uint8

const (
	ThreadRender Thread = iota
	ThreadMain

	threadCount
)

func (t Thread) String() string {
	switch t {
	case ThreadRender:
		return "render"
	case ThreadMain:
		return "main"
	}
	return fmt.Sprintf("Thread(%d)", uint8(t))
}

var (
	ErrNoThreads     = errors.New("tick: channel needs at least one consumer thread")
	ErrUnknownThread = errors.New("tick: unknown consumer thread")
)

// Channel is the fixed-layout handshake block: one word for the current tick
// and one acknowledgement word per registered consumer.
type Channel struct {
	current *shm.Cell
	acks    [threadCount]*shm.Cell
	threads []Thread
}

// Words reports how many region words a channel for n threads occupies.
func Words(n int) int { return 1 + n }

func NewChannel(r *shm.Region, threads ...Thread) (*Channel, error) {
	if len(threads) == 0 {
		return nil, ErrNoThreads
	}
	cur, err := shm.NewCell(r)
	if err != nil {
		return nil, fmt.Errorf("current tick cell: %w", err)
	}
	ch := &Channel{current: cur}
	for _, th := range threads {
		if th >= threadCount {
			return nil, fmt.Errorf("%v: %w", th, ErrUnknownThread)
		}
		if ch.acks[th] != nil {
			continue
		}
		cell, err := shm.NewCell(r)
		if err != nil {
			return nil, fmt.Errorf("%v ack cell: %w", th, err)
		}
		ch.acks[th] = cell
		ch.threads = append(ch.threads, th)
	}
	return ch, nil
}

// Threads returns the registered consumers in registration order.
func (c *Channel) Threads() []Thread {
	out := make([]Thread, len(c.threads))
	copy(out, c.threads)
	return out
}

// WriteCurrentTick publishes the tick the simulation has just finished.
func (c *Channel) WriteCurrentTick(t uint32) { c.current.Store(t) }

// ReadCurrentTick returns the most recently published simulation tick.
func (c *Channel) ReadCurrentTick() uint32 { return c.current.Load() }

// Acknowledge records that th has fully read component data through tick t.
// Acknowledgements only move forward.
func (c *Channel) Acknowledge(th Thread, t uint32) {
	c.ack(th).StoreMax(t)
}

func (c *Channel) ReadAcknowledgedTick(th Thread) uint32 {
	return c.ack(th).Load()
}

// Watermark is the lowest acknowledgement across all consumers. Every id
// sealed at or before it is no longer visible to any thread.
func (c *Channel) Watermark() uint32 {
	w := ^uint32(0)
	for _, th := range c.threads {
		if v := c.acks[th].Load(); v < w {
			w = v
		}
	}
	return w
}

func (c *Channel) ack(th Thread) *shm.Cell {
	if th >= threadCount || c.acks[th] == nil {
		panic(fmt.Sprintf("tick: thread %v not registered", th))
	}
	return c.acks[th]
}
