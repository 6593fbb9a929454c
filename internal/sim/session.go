// Package sim wires one simulation session: the shared region, the world,
// the reclamation context, the per-tick systems and the two consumer threads.
package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/thirdroom/simcore/internal/config"
	"github.com/thirdroom/simcore/internal/consumer"
	"github.com/thirdroom/simcore/internal/core/ecs"
	"github.com/thirdroom/simcore/internal/core/event"
	"github.com/thirdroom/simcore/internal/core/shm"
	coresys "github.com/thirdroom/simcore/internal/core/system"
	"github.com/thirdroom/simcore/internal/core/tick"
	"github.com/thirdroom/simcore/internal/data"
	"github.com/thirdroom/simcore/internal/recycle"
	"github.com/thirdroom/simcore/internal/scripting"
	"github.com/thirdroom/simcore/internal/stats"
	"github.com/thirdroom/simcore/internal/system"
)

var ErrNotDrained = errors.New("sim: consumers did not catch up before drain timeout")

// Deps are the optional collaborators a session can be built with.
type Deps struct {
	Schema *data.ComponentSchema // nil = data.DefaultComponentSchema()
	Engine *scripting.Engine     // nil = no workload script
	// Workload, when set, is called by NewSession to build the script engine
	// once the world exists. It is ignored when Engine is set.
	Workload func(w *ecs.World) (*scripting.Engine, error)
	Sink     consumer.StatsSink
	// Logic systems registered after the built-in ones.
	Systems []coresys.System
}

type Session struct {
	id  uuid.UUID
	cfg *config.Config
	log *zap.Logger

	region  *shm.Region
	world   *ecs.World
	bins    *recycle.Context
	channel *tick.Channel
	bus     *event.Bus
	stats   *stats.Buffer
	clock   *system.Clock
	runner  *coresys.Runner
	reclaim *system.ReclaimSystem
	engine  *scripting.Engine

	render   *consumer.Consumer
	main     *consumer.Consumer
	reporter *consumer.Reporter
}

func NewSession(cfg *config.Config, deps Deps, log *zap.Logger) (*Session, error) {
	schema := deps.Schema
	if schema == nil {
		schema = data.DefaultComponentSchema()
	}
	capacity := cfg.Session.MaxEntities
	fields := schema.Fields()

	region := shm.NewRegion(ecs.RegionWords(capacity, fields) + tick.Words(2) + stats.Words)
	world, err := ecs.NewWorld(region, capacity, fields)
	if err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	channel, err := tick.NewChannel(region, tick.ThreadRender, tick.ThreadMain)
	if err != nil {
		return nil, fmt.Errorf("tick channel: %w", err)
	}
	buf, err := stats.NewBuffer(region)
	if err != nil {
		return nil, fmt.Errorf("stats buffer: %w", err)
	}

	id := uuid.New()
	log = log.With(zap.String("session", id.String()))

	s := &Session{
		id:      id,
		cfg:     cfg,
		log:     log,
		region:  region,
		world:   world,
		bins:    recycle.NewContext(),
		channel: channel,
		bus:     event.NewBus(),
		stats:   buf,
		clock:   system.NewClock(),
		runner:  coresys.NewRunner(),
		engine:  deps.Engine,
	}
	if s.engine == nil && deps.Workload != nil {
		if s.engine, err = deps.Workload(world); err != nil {
			return nil, fmt.Errorf("workload: %w", err)
		}
	}

	s.reclaim = system.NewReclaimSystem(s.clock, s.bins, channel, world, s.bus, buf, log.Named("reclaim"))
	s.runner.Register(system.NewAdvanceSystem(s.clock, s.bins))
	s.runner.Register(system.NewEventDispatchSystem(s.bus))
	if s.engine != nil {
		s.runner.Register(system.NewScriptSystem(s.engine, s.clock, s.bus, log.Named("script")))
	}
	for _, sys := range deps.Systems {
		s.runner.Register(sys)
	}
	s.runner.Register(system.NewCleanupSystem(world, s.bins, s.clock, s.bus))
	s.runner.Register(s.reclaim)

	s.reporter = consumer.NewReporter(buf, cfg.Main.ReportEvery, deps.Sink, log)
	s.render = consumer.New(tick.ThreadRender, world.View(), channel, consumer.Options{
		Interval: cfg.Render.FrameInterval,
		AckDelay: cfg.Render.AckDelay,
	}, log)
	s.main = consumer.New(tick.ThreadMain, world.View(), channel, consumer.Options{
		Interval: cfg.Main.FrameInterval,
		AckDelay: cfg.Main.AckDelay,
		OnFrame:  s.reporter.OnFrame,
	}, log)

	log.Debug("session created",
		zap.Int("max_entities", capacity),
		zap.Int("components", schema.Count()),
		zap.Int("region_bytes", region.ByteLen()),
	)
	return s, nil
}

func (s *Session) ID() uuid.UUID                { return s.id }
func (s *Session) World() *ecs.World            { return s.world }
func (s *Session) Bins() *recycle.Context       { return s.bins }
func (s *Session) Channel() *tick.Channel       { return s.channel }
func (s *Session) Stats() *stats.Buffer         { return s.stats }
func (s *Session) Tick() uint32                 { return s.clock.Tick() }
func (s *Session) Render() *consumer.Consumer   { return s.render }
func (s *Session) Main() *consumer.Consumer     { return s.main }
func (s *Session) Reporter() *consumer.Reporter { return s.reporter }
func (s *Session) Runner() *coresys.Runner      { return s.runner }
func (s *Session) Engine() *scripting.Engine    { return s.engine }

// Step runs exactly one simulation tick on the calling goroutine.
func (s *Session) Step() {
	s.runner.Tick(s.cfg.Session.TickRate)
}

// Run drives the simulation loop and both consumer threads until ctx is
// cancelled or MaxTicks is reached, then drains: consumers keep running while
// the simulation keeps reclaiming, until every sealed bin is released or the
// drain timeout passes.
func (s *Session) Run(ctx context.Context) error {
	consumerCtx, stopConsumers := context.WithCancel(context.WithoutCancel(ctx))
	defer stopConsumers()

	g, gctx := errgroup.WithContext(consumerCtx)
	g.Go(func() error { return s.render.Run(gctx) })
	g.Go(func() error { return s.main.Run(gctx) })
	g.Go(func() error {
		defer stopConsumers()
		if err := s.loop(ctx); err != nil {
			return err
		}
		return s.drain(gctx)
	})
	return g.Wait()
}

func (s *Session) loop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Session.TickRate)
	defer ticker.Stop()

	s.log.Info("simulation started", zap.Duration("tick_rate", s.cfg.Session.TickRate), zap.Uint32("max_ticks", s.cfg.Session.MaxTicks))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("simulation stopping", zap.Uint32("tick", s.clock.Tick()))
			return nil
		case <-ticker.C:
			s.Step()
			if limit := s.cfg.Session.MaxTicks; limit > 0 && s.clock.Tick() >= limit {
				s.log.Info("tick limit reached", zap.Uint32("tick", s.clock.Tick()))
				return nil
			}
		}
	}
}

// drain flushes any queued destruction, seals the last active bin under one
// final tick and keeps releasing until the historian is empty. The final tick
// is published so consumers can acknowledge it.
func (s *Session) drain(ctx context.Context) error {
	s.runner.TickPhase(coresys.PhaseCleanup, 0)
	s.runner.TickPhase(coresys.PhaseTickStart, 0)
	s.channel.WriteCurrentTick(s.clock.Tick())

	timeout := time.NewTimer(s.cfg.Session.DrainTimeout)
	defer timeout.Stop()
	poll := time.NewTicker(s.cfg.Render.FrameInterval)
	defer poll.Stop()

	for {
		s.reclaim.Reclaim()
		if s.reclaim.Drained() {
			s.log.Info("reclamation drained",
				zap.Uint32("tick", s.clock.Tick()),
				zap.Uint32("released_total", s.stats.Get(stats.ReleasedTotal)),
			)
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-timeout.C:
			s.log.Warn("drain timed out",
				zap.Int("pending_bins", s.bins.Pending()),
				zap.Int("pending_ids", s.bins.PendingIDs()),
				zap.Uint32("watermark", s.channel.Watermark()),
			)
			return ErrNotDrained
		case <-poll.C:
		}
	}
}

// Close releases the script engine.
func (s *Session) Close() {
	if s.engine != nil {
		s.engine.Close()
	}
}
