package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"lecturemate/internal/api"
	"lecturemate/internal/events"
	"lecturemate/internal/notify"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the progress API and deliver study reminders",
		Long:  "Starts the local HTTP API used by the browser popup and runs the reminder " +
			"scheduler. Reminders are answered through POST /api/sessions/{id}/...",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, st, err := storeFor(cmd)
			if err != nil {
				return err
			}
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = e.settings.API.Addr
			}

			notifiers := []notify.Notifier{notify.NewLogNotifier(e.log)}
			if isTerminal() {
				notifiers = append(notifiers, notify.NewTerminalNotifier(cmd.OutOrStdout()))
			}
			bus := events.NewBus()
			bus.Subscribe(func(ev events.Event) {
				due := ev.(events.SessionDue)
				e.log.Info("Study session due", "session_id", due.Session.ID, "title", due.Session.Title)
			}, events.KindSessionDue)

			m, err := newManager(cmd, e, notify.NewMulti(notifiers...), bus)
			if err != nil {
				return err
			}
			if err := m.Restore(cmd.Context()); err != nil {
				return &ExitError{Code: ExitStoreError, Err: err}
			}
			e.log.Info("Reminders armed", "pending", m.Pending(), "open", len(m.Active()))

			srv := api.New(api.Config{Store: st, Reminders: m, Logger: e.log})
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				m.Start()
				<-ctx.Done()
				m.Stop()
				return nil
			})
			g.Go(func() error {
				if err := srv.ListenAndServe(ctx, addr); err != nil {
					return err
				}
				// A clean server exit also stops the scheduler.
				return context.Canceled
			})
			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			return nil
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default from api.addr)")
	return cmd
}
