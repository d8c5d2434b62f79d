package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/SteelMorgan/hostlog-checker/internal/livetail"
	"github.com/SteelMorgan/hostlog-checker/internal/observability"
	"github.com/SteelMorgan/hostlog-checker/internal/server"
	"github.com/SteelMorgan/hostlog-checker/internal/service"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve pagination and live tail over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				a.cfg.HTTPPort = port
			}
			return a.serve()
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "override HTTP_PORT")
	return cmd
}

func (a *app) serve() error {
	log.Info().
		Str("version", version).
		Strs("log_classes", a.registry.Names()).
		Msg("Starting hostlog server")

	shutdownTracer, err := observability.InitTracer(observability.TracerConfig{
		ServiceVersion: version,
		Endpoint:       a.cfg.TracingEndpoint,
		Protocol:       a.cfg.TracingProtocol,
		Enabled:        a.cfg.TracingEnabled,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	store, err := a.openCheckpoints(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	broadcaster := livetail.NewBroadcaster(a.cfg.LiveBufferCapacity)
	tails, err := service.NewTailService(a.registry, broadcaster, service.Options{
		OpenJournal:  a.openJournal,
		Checkpoints:  store,
		PollInterval: a.pollInterval(),
	})
	if err != nil {
		return err
	}
	if err := tails.Start(ctx, a.cfg.EagerProducers); err != nil {
		return err
	}

	srv, err := server.NewServer(a.cfg.HTTPPort, a.registry, a.paginator(), livetail.NewHub(a.registry, broadcaster, tails))
	if err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errChan:
		log.Error().Err(err).Msg("HTTP server error")
	}

	log.Info().Msg("Shutting down gracefully...")
	cancel()

	if err := srv.Stop(); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
	if err := tails.Stop(); err != nil {
		log.Error().Err(err).Msg("Error stopping tail service")
	}
	if err := shutdownTracer(context.Background()); err != nil {
		log.Error().Err(err).Msg("Error flushing traces")
	}

	log.Info().Msg("hostlog server stopped")
	return nil
}
