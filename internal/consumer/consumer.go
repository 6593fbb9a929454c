// Package consumer runs the render and main threads. Each one repeatedly
// reads the published simulation tick, makes a full read pass over the
// shared component stores and then acknowledges that tick, which is what
// lets the simulation thread reclaim ids sealed at or before it.
package consumer

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/thirdroom/simcore/internal/core/ecs"
	"github.com/thirdroom/simcore/internal/core/shm"
	"github.com/thirdroom/simcore/internal/core/tick"
)

type Options struct {
	// Interval between frames.
	Interval time.Duration
	// AckDelay holds each acknowledgement back by this many frames.
	AckDelay int
	// Visit is called for every alive entity during a pass. When nil the pass
	// reads every word of every store for the entity.
	Visit func(ecs.EntityID)
	// OnFrame runs after each completed frame.
	OnFrame func(ctx context.Context, frame uint32)
}

type Consumer struct {
	thread  tick.Thread
	view    *ecs.View
	channel *tick.Channel
	opts    Options
	log     *zap.Logger

	held     []uint32
	stores   []*shm.Store
	frames   atomic.Uint32
	lastSeen atomic.Uint32
	checksum uint32
}

func New(thread tick.Thread, view *ecs.View, channel *tick.Channel, opts Options, log *zap.Logger) *Consumer {
	c := &Consumer{
		thread:  thread,
		view:    view,
		channel: channel,
		opts:    opts,
		log:     log.Named(thread.String()),
		held:    make([]uint32, 0, opts.AckDelay+1),
	}
	view.EachStore(func(s *shm.Store) { c.stores = append(c.stores, s) })
	return c
}

func (c *Consumer) Thread() tick.Thread { return c.thread }

// Frames returns the number of completed frames.
func (c *Consumer) Frames() uint32 { return c.frames.Load() }

// LastSeen returns the simulation tick read at the start of the latest frame.
func (c *Consumer) LastSeen() uint32 { return c.lastSeen.Load() }

// Run steps frames on a ticker until ctx is done. It returns nil on
// cancellation.
func (c *Consumer) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	c.log.Debug("consumer started", zap.Duration("interval", c.opts.Interval), zap.Int("ack_delay", c.opts.AckDelay))
	for {
		select {
		case <-ctx.Done():
			c.log.Debug("consumer stopped", zap.Uint32("frames", c.Frames()), zap.Uint32("acked", c.channel.ReadAcknowledgedTick(c.thread)))
			return nil
		case <-ticker.C:
			c.Step(ctx)
		}
	}
}

// Step runs a single frame: read the tick, read every alive entity, then
// acknowledge. The tick must be read before the pass so the acknowledgement
// never claims more than what was actually read.
func (c *Consumer) Step(ctx context.Context) {
	t := c.channel.ReadCurrentTick()
	c.lastSeen.Store(t)

	if c.opts.Visit != nil {
		c.view.EachAlive(c.opts.Visit)
	} else {
		c.view.EachAlive(c.readAll)
	}

	c.held = append(c.held, t)
	if len(c.held) > c.opts.AckDelay {
		c.channel.Acknowledge(c.thread, c.held[0])
		c.held = append(c.held[:0], c.held[1:]...)
	}

	frame := c.frames.Add(1)
	if c.opts.OnFrame != nil {
		c.opts.OnFrame(ctx, frame)
	}
}

func (c *Consumer) readAll(id ecs.EntityID) {
	for _, s := range c.stores {
		for e := 0; e < s.Elements(); e++ {
			c.checksum += s.Get(uint32(id), e)
		}
	}
}
