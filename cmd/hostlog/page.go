package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SteelMorgan/hostlog-checker/internal/domain"
	"github.com/SteelMorgan/hostlog-checker/internal/output"
	"github.com/SteelMorgan/hostlog-checker/internal/pagination"
)

type pageOptions struct {
	mode       string
	cursor     string
	limit      int
	query      string
	eventTypes []string
}

func newPageCmd(opts *globalOptions) *cobra.Command {
	po := &pageOptions{}
	cmd := &cobra.Command{
		Use:   "page <log-class>",
		Short: "Print one page of classified events",
		Long: `Print one page of classified events. The initial page starts at the
beginning of the log.

The cursor of the page is printed to stderr; pass it back with --cursor
and --mode older to continue forward, or --mode previous to walk back
from the cursor.

Examples:
  hostlog page sshd.events --limit 20
  hostlog page pkgmanager.events --mode older --cursor 'Manual:{...}'
  hostlog page sudo.events --event-type Failure -o json`,
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
			return a.page(cmd, args[0], po, renderer)
		},
	}
	cmd.Flags().StringVarP(&po.mode, "mode", "m", "initial", "initial, older or previous")
	cmd.Flags().StringVar(&po.cursor, "cursor", "", "cursor token of a previous page")
	cmd.Flags().IntVarP(&po.limit, "limit", "n", 50, "events per page")
	cmd.Flags().StringVarP(&po.query, "query", "q", "", "case-insensitive keyword filter")
	cmd.Flags().StringSliceVarP(&po.eventTypes, "event-type", "t", nil, "event types to keep (repeatable)")
	return cmd
}

func (a *app) page(cmd *cobra.Command, logClass string, po *pageOptions, renderer output.Renderer) error {
	mode, err := pagination.ParseMode(po.mode)
	if err != nil {
		return err
	}
	req := pagination.Request{
		LogClass:   logClass,
		Mode:       mode,
		Limit:      po.limit,
		Keyword:    po.query,
		EventTypes: po.eventTypes,
	}
	if po.cursor != "" {
		if req.Cursor, err = domain.ParseCursor(po.cursor); err != nil {
			return err
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	page, err := a.paginator().Paginate(ctx, req)
	if err != nil {
		return err
	}
	for _, ev := range page.Events {
		if err := renderer.Render(ev); err != nil {
			return fmt.Errorf("failed to render event: %w", err)
		}
	}

	errOut := cmd.ErrOrStderr()
	if page.Cursor == nil {
		fmt.Fprintln(errOut, "cursor: none (no events)")
		return nil
	}
	token, err := domain.RenderCursor(page.Cursor)
	if err != nil {
		return err
	}
	fmt.Fprintf(errOut, "cursor: %s\n", token)
	return nil
}
