package review

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Aggregator recomputes a doctor's rating columns from scratch after
// every review change. Full recompute keeps the stored numbers exact no
// matter how reviews were added, removed, or moderated.
type Aggregator struct {
	repo Repository
}

func NewAggregator(repo Repository) *Aggregator {
	return &Aggregator{repo: repo}
}

// Recompute locks the doctor row, reads the approved-review stats and
// writes rating and total_reviews back. Callers run it inside the same
// transaction as the review change it follows.
func (a *Aggregator) Recompute(ctx context.Context, doctorID uuid.UUID) error {
	if err := a.repo.LockDoctor(ctx, doctorID); err != nil {
		return fmt.Errorf("lock doctor for rating update: %w", err)
	}
	stats, err := a.repo.ApprovedStats(ctx, doctorID)
	if err != nil {
		return fmt.Errorf("read review stats: %w", err)
	}
	rating := 0.0
	if stats.Count > 0 {
		rating = round2(stats.Average)
	}
	return a.repo.UpdateDoctorRating(ctx, doctorID, rating, stats.Count)
}

// round2 rounds to two decimal places, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
