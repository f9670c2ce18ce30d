package main

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/heydoc/scheduling/internal/auth"
	"github.com/heydoc/scheduling/internal/config"
	"github.com/heydoc/scheduling/internal/db"
	"github.com/heydoc/scheduling/internal/doctor"
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

func seedCmd() *cobra.Command {
	var doctors int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the database with fake doctors and schedules",
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

			gofakeit.Seed(time.Now().UnixNano())
			repo := doctor.NewPgRepository(pool)

			log.Info().Int("doctors", doctors).Msg("seeding")
			for i := 0; i < doctors; i++ {
				if err := seedDoctor(ctx, repo); err != nil {
					return fmt.Errorf("seed doctor %d: %w", i, err)
				}
			}
			log.Info().Msg("seed complete")

			// A patient token for manual testing against the seeded data.
			token, err := auth.GenerateToken(cfg.JWTSecret, auth.Principal{
				UserID:    uuid.New(),
				IsPatient: true,
			}, 24*time.Hour)
			if err != nil {
				return err
			}
			fmt.Printf("patient token: %s\n", token)
			return nil
		},
	}
	cmd.Flags().IntVar(&doctors, "doctors", 25, "number of doctors to create")
	return cmd
}

func seedDoctor(ctx context.Context, repo doctor.Repository) error {
	specialty := specialties[gofakeit.Number(0, len(specialties)-1)]
	profile := &doctor.DoctorProfile{
		UserID:          uuid.New(),
		DisplayName:     "Dr. " + gofakeit.Name(),
		Specialty:       &specialty,
		ConsultationFee: float64(gofakeit.Number(30, 200)),
		IsVerified:      true,
		IsAvailable:     true,
	}
	if err := repo.CreateProfile(ctx, profile); err != nil {
		return err
	}

	phone := gofakeit.Phone()
	clinic := &doctor.Clinic{
		DoctorID:  profile.ID,
		Name:      gofakeit.Company() + " Clinic",
		Address:   gofakeit.Street() + ", " + gofakeit.City(),
		Phone:     &phone,
		IsPrimary: true,
	}
	if err := repo.CreateClinic(ctx, clinic); err != nil {
		return err
	}

	// Weekday schedule, 09:00 to 17:00 in 30 minute slots.
	for day := time.Monday; day <= time.Friday; day++ {
		sched := &doctor.Schedule{
			DoctorID:     profile.ID,
			ClinicID:     clinic.ID,
			DayOfWeek:    day,
			StartTime:    doctor.TimeOfDay(9 * 60),
			EndTime:      doctor.TimeOfDay(17 * 60),
			SlotDuration: 30,
			IsActive:     true,
		}
		if err := repo.CreateSchedule(ctx, sched); err != nil {
			return err
		}
	}
	return nil
}
