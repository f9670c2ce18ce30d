package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/heydoc/scheduling/internal/auth"
	"github.com/heydoc/scheduling/internal/config"
	"github.com/heydoc/scheduling/internal/db"
	"github.com/heydoc/scheduling/internal/doctor"
)

type simMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (m *simMetrics) record(latency time.Duration, status int) {
	atomic.AddInt64(&m.Total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&m.Success, 1)
	case status == http.StatusBadRequest || status == http.StatusConflict:
		atomic.AddInt64(&m.Conflict, 1)
	default:
		atomic.AddInt64(&m.Error, 1)
	}
	m.mu.Lock()
	m.latencies = append(m.latencies, latency)
	m.mu.Unlock()
}

func (m *simMetrics) report() {
	m.mu.Lock()
	defer m.mu.Unlock()

	fmt.Printf("requests=%d booked=%d conflicts=%d errors=%d\n",
		m.Total, m.Success, m.Conflict, m.Error)
	if len(m.latencies) == 0 {
		return
	}

	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}
	p := func(pct int) time.Duration {
		idx := len(sorted) * pct / 100
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		return sorted[idx]
	}
	fmt.Printf("latency avg=%s min=%s max=%s p50=%s p95=%s\n",
		sum/time.Duration(len(sorted)), sorted[0], sorted[len(sorted)-1], p(50), p(95))
}

// simulateCmd hammers the booking endpoint with concurrent patients
// competing for a small pool of slots, to observe the conflict handling
// under contention. Every slot should end up booked exactly once.
func simulateCmd() *cobra.Command {
	var (
		baseURL  string
		workers  int
		patients int
		duration time.Duration
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a concurrent booking simulation against a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := newLogger(cfg.Env)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			doctors, err := loadDoctorIDs(ctx, pool, 20)
			if err != nil {
				return fmt.Errorf("load doctors: %w", err)
			}
			if len(doctors) == 0 {
				return fmt.Errorf("no doctors found, run seed first")
			}

			tokens := make([]string, patients)
			for i := range tokens {
				tokens[i], err = auth.GenerateToken(cfg.JWTSecret, auth.Principal{
					UserID:    uuid.New(),
					IsPatient: true,
				}, time.Hour)
				if err != nil {
					return err
				}
			}

			date := time.Now().AddDate(0, 0, 1)
			for date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
				date = date.AddDate(0, 0, 1)
			}
			slots := make([]doctor.TimeOfDay, 0, 16)
			for t := doctor.TimeOfDay(9 * 60); t < 17*60; t += 30 {
				slots = append(slots, t)
			}

			log.Info().
				Int("workers", workers).
				Int("patients", patients).
				Int("doctors", len(doctors)).
				Str("date", date.Format("2006-01-02")).
				Msg("simulation starting")

			client := &http.Client{Timeout: 10 * time.Second}
			metrics := &simMetrics{}
			deadline := time.Now().Add(duration)

			var wg sync.WaitGroup
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func(seed int64) {
					defer wg.Done()
					rng := rand.New(rand.NewSource(seed))
					for time.Now().Before(deadline) {
						body, _ := json.Marshal(map[string]any{
							"doctor_id":        doctors[rng.Intn(len(doctors))].String(),
							"appointment_date": date.Format("2006-01-02"),
							"appointment_time": slots[rng.Intn(len(slots))].String(),
							"symptoms":         "load test",
						})
						req, err := http.NewRequest(http.MethodPost, baseURL+"/appointments/", bytes.NewReader(body))
						if err != nil {
							continue
						}
						req.Header.Set("Content-Type", "application/json")
						req.Header.Set("Authorization", "Bearer "+tokens[rng.Intn(len(tokens))])

						start := time.Now()
						resp, err := client.Do(req)
						if err != nil {
							metrics.record(time.Since(start), 0)
							continue
						}
						_, _ = io.Copy(io.Discard, resp.Body)
						resp.Body.Close()
						metrics.record(time.Since(start), resp.StatusCode)
					}
				}(int64(w))
			}
			wg.Wait()

			metrics.report()
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "http://localhost:8080", "API base URL")
	cmd.Flags().IntVar(&workers, "workers", 10, "concurrent workers")
	cmd.Flags().IntVar(&patients, "patients", 50, "distinct simulated patients")
	cmd.Flags().DurationVar(&duration, "duration", 30*time.Second, "how long to run")
	return cmd
}

func loadDoctorIDs(ctx context.Context, pool *pgxpool.Pool, limit int) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, `
		SELECT id FROM doctor_profiles
		WHERE is_available AND is_verified
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
