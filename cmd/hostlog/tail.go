package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/SteelMorgan/hostlog-checker/internal/livetail"
	"github.com/SteelMorgan/hostlog-checker/internal/offset"
	"github.com/SteelMorgan/hostlog-checker/internal/output"
	"github.com/SteelMorgan/hostlog-checker/internal/service"
)

type tailOptions struct {
	query        string
	eventTypes   []string
	noCheckpoint bool
}

func newTailCmd(opts *globalOptions) *cobra.Command {
	to := &tailOptions{}
	cmd := &cobra.Command{
		Use:   "tail <log-class>",
		Short: "Follow a log class and print new events as they arrive",
		Long: `Follow a log class and print new events as they arrive.

Unless --no-checkpoint is given the position is saved to the configured
checkpoint store, so a restart resumes where the last run stopped.

Examples:
  hostlog tail sshd.events
  hostlog tail pkgmanager.events --event-type PkgInstalled -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(opts)
			if err != nil {
				return err
			}
			renderer, err := output.New(opts.output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return a.tail(args[0], to, renderer)
		},
	}
	cmd.Flags().StringVarP(&to.query, "query", "q", "", "case-insensitive keyword filter")
	cmd.Flags().StringSliceVarP(&to.eventTypes, "event-type", "t", nil, "event types to keep (repeatable)")
	cmd.Flags().BoolVar(&to.noCheckpoint, "no-checkpoint", false, "start at the end and do not save the position")
	return cmd
}

func (a *app) tail(logClass string, to *tailOptions, renderer output.Renderer) error {
	if _, err := a.registry.Get(logClass); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	var store offset.CheckpointStore = offset.NopStore{}
	if !to.noCheckpoint {
		s, err := a.openCheckpoints(ctx)
		if err != nil {
			return err
		}
		store = s
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
	if err := tails.Start(ctx, false); err != nil {
		return err
	}
	defer tails.Stop()

	hub := livetail.NewHub(a.registry, broadcaster, tails)
	events, err := hub.SubscribeLive(ctx, logClass, to.query, to.eventTypes)
	if err != nil {
		return err
	}

	log.Info().Str("log_class", logClass).Msg("Following log class, press Ctrl+C to stop")
	for ev := range events {
		if err := renderer.Render(ev); err != nil {
			return fmt.Errorf("failed to render event: %w", err)
		}
	}
	return nil
}
