package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/SteelMorgan/hostlog-checker/internal/config"
	"github.com/SteelMorgan/hostlog-checker/internal/logreader"
	"github.com/SteelMorgan/hostlog-checker/internal/observability"
	"github.com/SteelMorgan/hostlog-checker/internal/offset"
	"github.com/SteelMorgan/hostlog-checker/internal/pagination"
	"github.com/SteelMorgan/hostlog-checker/internal/registry"
	"github.com/SteelMorgan/hostlog-checker/internal/retry"
)

const version = "0.1.0"

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	output   string
	logLevel string
}

// app is the state every command builds from configuration
type app struct {
	cfg         *config.Config
	registry    *registry.Registry
	openJournal logreader.JournalOpener
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "hostlog",
		Short: "Classify, page through and live-tail host logs",
		Long: `hostlog reads the systemd journal and pacman.log, classifies every
record into a typed event and serves the events page by page or live.

Configuration comes from environment variables (HTTP_PORT, PKG_LOG_PATH,
CHECKPOINT_BACKEND and friends). Log classes can be adjusted in the YAML
file named by REGISTRY_OVERRIDES_PATH.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "output format: text, json")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override LOG_LEVEL")

	root.AddCommand(
		newServeCmd(opts),
		newPageCmd(opts),
		newTailCmd(opts),
		newClassesCmd(opts),
		newMCPCmd(opts),
	)
	return root
}

// setup loads configuration, initializes logging and builds the registry
func setup(opts *globalOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	observability.InitLogger(cfg.LogLevel, cfg.LogFile)

	overrides, err := registry.LoadOverrides(cfg.RegistryOverridesPath)
	if err != nil {
		return nil, err
	}
	reg, err := registry.Default(cfg.PkgLogPath).Apply(overrides)
	if err != nil {
		return nil, fmt.Errorf("failed to build log class registry: %w", err)
	}

	return &app{
		cfg:         cfg,
		registry:    reg,
		openJournal: logreader.NewSystemdOpener(cfg.JournalDir),
	}, nil
}

func (a *app) paginator() *pagination.Paginator {
	return pagination.New(a.registry, a.openJournal, pagination.Options{
		MaxLimit: a.cfg.MaxPageLimit,
		Workers:  a.cfg.ClassifyWorkers,
	})
}

func (a *app) pollInterval() time.Duration {
	return time.Duration(a.cfg.LivePollIntervalMS) * time.Millisecond
}

// openCheckpoints opens the configured live-tail checkpoint store
func (a *app) openCheckpoints(ctx context.Context) (offset.CheckpointStore, error) {
	switch a.cfg.CheckpointBackend {
	case config.CheckpointBolt:
		return offset.NewBoltDBStore(a.cfg.CheckpointDBPath)
	case config.CheckpointRedis:
		rc := offset.DefaultRedisConfig(a.cfg.RedisAddr)
		rc.Password = a.cfg.RedisPassword
		rc.Database = a.cfg.RedisDB
		// Redis may still be starting next to us
		store, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*offset.RedisStore, error) {
			return offset.NewRedisStore(rc)
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		log.Warn().Msg("Live-tail checkpoints disabled")
		return offset.NopStore{}, nil
	}
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			log.Info().Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}
