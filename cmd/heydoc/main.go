package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/heydoc/scheduling/internal/api"
	"github.com/heydoc/scheduling/internal/appointment"
	"github.com/heydoc/scheduling/internal/clock"
	"github.com/heydoc/scheduling/internal/config"
	"github.com/heydoc/scheduling/internal/db"
	"github.com/heydoc/scheduling/internal/doctor"
	"github.com/heydoc/scheduling/internal/notify"
	redisclient "github.com/heydoc/scheduling/internal/redis"
	"github.com/heydoc/scheduling/internal/review"
)

const version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "heydoc",
		Short: "HeyDoc appointment scheduling service",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(simulateCmd())
	rootCmd.AddCommand(remindWorkerCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(env string) zerolog.Logger {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if env == "dev" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return log
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the scheduling API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := newLogger(cfg.Env)
			log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("starting api server")

			rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
			pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
			cancelPg()
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pgPool.Close()
			log.Info().Msg("connected to postgres")

			rdb, err := redisclient.NewRedisClient(cfg)
			if err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}
			defer rdb.Close()
			log.Info().Msg("connected to redis")

			clk := clock.System()
			runner := db.NewRunner(pgPool)
			apptRepo := appointment.NewPgRepository(pgPool)
			doctorRepo := doctor.NewPgRepository(pgPool)
			reviewRepo := review.NewPgRepository(pgPool)

			statuses := appointment.NewStatusRegistry()
			loadCtx, cancelLoad := context.WithTimeout(rootCtx, 5*time.Second)
			err = statuses.Load(loadCtx, apptRepo)
			cancelLoad()
			if err != nil {
				return err
			}

			locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
			notifier := notify.NewLogNotifier(log)

			validator := appointment.NewConflictValidator(apptRepo, statuses, cfg.DailyBookingCap)
			booking := appointment.NewBookingService(
				apptRepo, doctorRepo, validator, statuses, locker, runner, clk,
				notifier, log.With().Str("component", "booking").Logger(), cfg.BookingIDRetry)
			machine := appointment.NewStateMachine(
				apptRepo, statuses, runner, clk, notifier,
				log.With().Str("component", "statemachine").Logger(), cfg.CancelCutoff)
			calendar := doctor.NewCalendar(doctorRepo, appointment.NewCalendarLookup(apptRepo, statuses), clk)
			aggregator := review.NewAggregator(reviewRepo)
			reviews := review.NewService(reviewRepo, aggregator, runner,
				log.With().Str("component", "reviews").Logger())

			router := api.NewRouter(api.RouterConfig{
				Booking:      booking,
				Transitions:  machine,
				Appointments: apptRepo,
				Slots:        calendar,
				Reviews:      reviews,
				Clock:        clk,
				PgPool:       pgPool,
				Redis:        rdb,
				JWTSecret:    cfg.JWTSecret,
				Env:          cfg.Env,
				Version:      version,
				Log:          log.With().Str("component", "http").Logger(),
			})

			server := &http.Server{
				Addr:              ":" + cfg.HTTPPort,
				Handler:           router,
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", server.Addr).Msg("listening")
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("server: %w", err)
			case <-rootCtx.Done():
			}

			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := newLogger(cfg.Env)

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			applied, err := db.NewMigrator(pool, cfg.MigrationsDir).Up(ctx)
			if err != nil {
				return err
			}
			log.Info().Int("applied", applied).Msg("migrations complete")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, cfg.MigrationsDir).Status(ctx)
			if err != nil {
				return err
			}
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied " + s.AppliedAt.Format(time.RFC3339)
				}
				fmt.Printf("%04d %-40s %s\n", s.Version, s.Name, state)
			}
			return nil
		},
	})

	return cmd
}
