package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/l1jgo/ecs/internal/config"
	"github.com/l1jgo/ecs/internal/core/ecs"
	coresys "github.com/l1jgo/ecs/internal/core/system"
	"github.com/l1jgo/ecs/internal/data"
	"github.com/l1jgo/ecs/internal/persist"
	"github.com/l1jgo/ecs/internal/scripting"
	"github.com/l1jgo/ecs/internal/system"
	"github.com/pkg/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultConfigPath = "config/ecsd.toml"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfgPath := os.Getenv("ECSD_CONFIG")
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	if stop := startProfile(cfg.Profile, log); stop != nil {
		defer stop()
	}

	// 3. Build the world
	w := ecs.NewWorld(
		ecs.WithLogger(log.Named("ecs")),
		ecs.WithListenerWarnLimit(cfg.World.ListenerWarnLimit),
	)

	if cfg.World.Manifest != "" {
		m, err := data.LoadManifest(cfg.World.Manifest)
		if err != nil {
			return fmt.Errorf("load manifest: %w", err)
		}
		st, err := m.Apply(w, system.Builtins(w))
		if err != nil {
			return fmt.Errorf("apply manifest: %w", err)
		}
		log.Info("manifest applied",
			zap.String("path", cfg.World.Manifest),
			zap.Int("components", st.Components),
			zap.Int("entities", st.Entities),
			zap.Int("systems", st.Systems))
	}

	if cfg.World.ScriptsDir != "" {
		eng, err := scripting.NewEngine(w, cfg.World.ScriptsDir, log.Named("lua"))
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer eng.Close()
		log.Info("scripts loaded",
			zap.String("dir", cfg.World.ScriptsDir),
			zap.Strings("systems", eng.Systems()))
	}

	runner := coresys.NewRunner(w, cfg.World.TickRate, log.Named("runner"))

	// 4. Optional tick telemetry in PostgreSQL
	if cfg.Database.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, cfg.World.Name, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()

		version, err := persist.RunMigrations(ctx, db.Pool)
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		log.Info("telemetry schema ready", zap.Int64("version", version))

		rec := system.NewStatsRecorder(persist.NewTickStatsRepo(db), cfg.World.Name,
			cfg.Stats.FlushIntervalTicks, cfg.Stats.BatchSize, log.Named("stats"))
		rec.SetRetention(cfg.Stats.Retention)
		runner.AddHook(rec.Record)
		// runs before db.Close
		defer rec.Flush()
	}

	// 5. Run until signalled
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("world running",
		zap.String("world", cfg.World.Name),
		zap.Duration("tick_rate", cfg.World.TickRate),
		zap.Int("entities", w.Len()),
		zap.Strings("systems", w.Systems().Names()))

	if err := runner.Run(ctx); err != nil {
		return err
	}

	applied := w.Flush()
	log.Info("world stopped",
		zap.Uint64("ticks", w.Ticks()),
		zap.Duration("clock", w.Clock()),
		zap.Int("entities", w.Len()),
		zap.Int("destroyed_on_exit", applied.Entities))
	return nil
}

func startProfile(cfg config.ProfileConfig, log *zap.Logger) func() {
	var mode func(*profile.Profile)
	switch cfg.Mode {
	case "":
		return nil
	case "cpu":
		mode = profile.CPUProfile
	case "mem":
		mode = profile.MemProfileAllocs
	default:
		return nil // rejected by config validation
	}
	p := profile.Start(mode, profile.ProfilePath(cfg.Path), profile.NoShutdownHook, profile.Quiet)
	log.Info("profiling enabled", zap.String("mode", cfg.Mode), zap.String("path", cfg.Path))
	return p.Stop
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
