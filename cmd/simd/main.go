package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/thirdroom/simcore/internal/config"
	"github.com/thirdroom/simcore/internal/consumer"
	"github.com/thirdroom/simcore/internal/core/ecs"
	"github.com/thirdroom/simcore/internal/data"
	"github.com/thirdroom/simcore/internal/persist"
	"github.com/thirdroom/simcore/internal/scripting"
	"github.com/thirdroom/simcore/internal/sim"
	"github.com/thirdroom/simcore/internal/stats"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              simcore  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      entity id reclamation simulator      \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1msession:\033[0m %s\n\n", name)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Session ───────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	switch cfg.Profile.Mode {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(cfg.Profile.Path), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath(cfg.Profile.Path), profile.NoShutdownHook).Stop()
	}

	printBanner(cfg.Session.Name)

	// 3. Component schema
	printSection("schema")
	schema := data.DefaultComponentSchema()
	if cfg.Schema.Path != "" {
		if schema, err = data.LoadComponentSchema(cfg.Schema.Path); err != nil {
			return fmt.Errorf("component schema: %w", err)
		}
	}
	printStat("components", schema.Count())
	printStat("max entities", cfg.Session.MaxEntities)
	fmt.Println()

	// 4. Optional stats database
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := sim.Deps{Schema: schema}
	if cfg.Scripting.Enabled {
		deps.Workload = func(w *ecs.World) (*scripting.Engine, error) {
			return scripting.NewEngine(cfg.Scripting.Dir, w, log.Named("lua"))
		}
	}

	var (
		repo     *persist.StatsRepo
		recorder *persist.Recorder
	)
	if cfg.Stats.DSN != "" {
		printSection("database")
		dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(dbCtx, cfg.Stats, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		if err := persist.RunMigrations(dbCtx, db.Pool, log); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("migrations applied")
		fmt.Println()
		repo = persist.NewStatsRepo(db)
	}

	// 5. Build the session. The recorder needs the session id, so the sink
	// is bound after construction through a forwarding wrapper.
	sink := &lateSink{}
	deps.Sink = sink
	session, err := sim.NewSession(cfg, deps, log)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	defer session.Close()

	if repo != nil {
		if err := repo.BeginSession(ctx, session.ID(), cfg.Session.Name, cfg.Session.MaxEntities); err != nil {
			return fmt.Errorf("begin session: %w", err)
		}
		recorder = persist.NewRecorder(repo, session.ID(), cfg.Stats.BatchSize)
		sink.target = recorder
	}

	printSection("simulation")
	if session.Engine() != nil {
		printOK("workload scripts loaded")
	}
	printStat("tick rate (ms)", int(cfg.Session.TickRate/time.Millisecond))
	printStat("render ack delay", cfg.Render.AckDelay)
	fmt.Println()
	printReady(fmt.Sprintf("session %s running, Ctrl+C to stop", session.ID()))

	runErr := session.Run(ctx)

	// 6. Shutdown
	final := session.Stats().Snapshot()
	log.Info("session finished",
		zap.Uint32("tick", final.Tick),
		zap.Uint32("released_total", final.ReleasedTotal),
		zap.Uint32("pending_ids", final.PendingIDs),
		zap.Uint32("dispose_failures", final.DisposeFailures),
	)
	if recorder != nil {
		// The signal context may already be done.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := recorder.Record(shutdownCtx, final); err != nil {
			log.Warn("record final stats", zap.Error(err))
		}
		if err := recorder.Flush(shutdownCtx); err != nil {
			log.Error("flush stats", zap.Error(err), zap.Int("buffered", recorder.Buffered()))
		}
		if err := repo.EndSession(shutdownCtx, session.ID()); err != nil {
			log.Error("end session", zap.Error(err))
		}
	}
	if errors.Is(runErr, sim.ErrNotDrained) {
		log.Warn("shutdown with ids still pending", zap.Uint32("pending_ids", final.PendingIDs))
		return nil
	}
	return runErr
}

// lateSink forwards to target once it is set. It is set before Run starts.
type lateSink struct {
	target consumer.StatsSink
}

func (s *lateSink) Record(ctx context.Context, snap stats.Snapshot) error {
	if s.target == nil {
		return nil
	}
	return s.target.Record(ctx, snap)
}

func loadConfig() (*config.Config, error) {
	path := "config/simd.toml"
	if p := os.Getenv("SIMD_CONFIG"); p != "" {
		path = p
	}
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) && os.Getenv("SIMD_CONFIG") == "" {
		return config.Defaults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
