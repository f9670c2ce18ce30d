package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/heydoc/scheduling/internal/appointment"
	"github.com/heydoc/scheduling/internal/clock"
	"github.com/heydoc/scheduling/internal/config"
	"github.com/heydoc/scheduling/internal/db"
	"github.com/heydoc/scheduling/internal/notify"
)

// remindWorkerCmd runs the reminder loop: every interval it finds
// appointments starting inside the reminder window that have not been
// reminded yet, notifies, and marks them so the next sweep skips them.
func remindWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind-worker",
		Short: "Run the appointment reminder worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := newLogger(cfg.Env).With().Str("component", "remind-worker").Logger()
			log.Info().
				Dur("interval", cfg.WorkerInterval).
				Dur("window", cfg.ReminderWindow).
				Msg("worker starting")

			rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
			pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
			cancelPg()
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			repo := appointment.NewPgRepository(pool)
			statuses := appointment.NewStatusRegistry()
			loadCtx, cancelLoad := context.WithTimeout(rootCtx, 5*time.Second)
			err = statuses.Load(loadCtx, repo)
			cancelLoad()
			if err != nil {
				return err
			}

			worker := reminderWorker{
				repo:     repo,
				statuses: statuses,
				notifier: notify.NewLogNotifier(log),
				clock:    clock.System(),
				window:   cfg.ReminderWindow,
				log:      log,
			}

			ticker := time.NewTicker(cfg.WorkerInterval)
			defer ticker.Stop()

			for {
				worker.sweep(rootCtx)
				select {
				case <-rootCtx.Done():
					log.Info().Msg("worker stopping")
					return nil
				case <-ticker.C:
				}
			}
		},
	}
}

type reminderWorker struct {
	repo     appointment.Repository
	statuses *appointment.StatusRegistry
	notifier notify.Notifier
	clock    clock.Clock
	window   time.Duration
	log      zerolog.Logger
}

func (w *reminderWorker) sweep(ctx context.Context) {
	now := w.clock.Now()
	due, err := w.repo.ListNeedingReminder(ctx, now, now.Add(w.window), w.statuses.ActiveNames())
	if err != nil {
		w.log.Error().Err(err).Msg("list reminders")
		return
	}

	for _, a := range due {
		w.notifier.Notify(ctx, notify.Event{
			Kind:          notify.EventReminder,
			AppointmentID: a.ID,
			BookingID:     a.BookingID,
			PatientID:     a.PatientID,
			DoctorID:      a.DoctorID,
			Message: fmt.Sprintf("Reminder: appointment %s on %s at %s",
				a.BookingID, a.Date.Format("2006-01-02"), a.Time.String()),
		})
		if err := w.repo.MarkReminderSent(ctx, a.ID, now); err != nil {
			w.log.Error().Err(err).Str("booking_id", a.BookingID).Msg("mark reminder sent")
			continue
		}
	}
	if len(due) > 0 {
		w.log.Info().Int("sent", len(due)).Msg("reminders dispatched")
	}
}
