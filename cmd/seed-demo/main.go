package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/classbeacon/classbeacon-backend/internal/config"
	"github.com/classbeacon/classbeacon-backend/internal/database"
	"github.com/classbeacon/classbeacon-backend/internal/logger"
	"github.com/classbeacon/classbeacon-backend/internal/model"
	"github.com/classbeacon/classbeacon-backend/internal/repository"
	"github.com/classbeacon/classbeacon-backend/internal/service"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// Seeds a demo teacher, one class and a set of enrolled students. Every
// account gets the same password so a demo walkthrough needs no notes.
const demoPassword = "classbeacon"

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	profileRepo := repository.NewProfileRepository(pool)
	classRepo := repository.NewClassRepository(pool)
	enrollmentRepo := repository.NewEnrollmentRepository(pool)
	classService := service.NewClassService(classRepo, enrollmentRepo)

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash demo password")
	}

	fmt.Println("=== Seeding Demo Data ===")

	// ─── Teacher ───────────────────────────────────────────────────────
	teacher, err := profileRepo.GetByEmail(ctx, "teacher@classbeacon.dev")
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Fatal().Err(err).Msg("Failed to check existing teacher")
		}
		teacher = &model.Profile{
			Email:        "teacher@classbeacon.dev",
			Name:         "Demo Teacher",
			Role:         model.RoleTeacher,
			PasswordHash: string(hash),
		}
		if err := profileRepo.Create(ctx, teacher); err != nil {
			log.Fatal().Err(err).Msg("Failed to create teacher")
		}
		fmt.Printf("Created teacher %s\n", teacher.Email)
	} else {
		fmt.Printf("Found existing teacher %s\n", teacher.Email)
	}

	// ─── Class ─────────────────────────────────────────────────────────
	class, err := classService.Create(ctx, teacher.ID, "Physics 101")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create class")
	}
	fmt.Printf("Created class %q with join code %s\n", class.Name, class.JoinCode)

	// ─── Students ──────────────────────────────────────────────────────
	names := []string{
		"Alice Moreno", "Ben Takahashi", "Carla Osei", "Dmitri Volkov",
		"Elena Petrova", "Farid Rahimi", "Grace Liu", "Hassan Demir",
		"Ines Costa", "Jonas Berg", "Katya Ivanova", "Liam O'Connor",
		"Mina Park", "Noah Fischer", "Olga Szabo", "Pavel Horak",
	}

	seeded := 0
	for i, name := range names {
		student := &model.Profile{
			Email:        fmt.Sprintf("student%02d@classbeacon.dev", i+1),
			Name:         name,
			Role:         model.RoleStudent,
			PasswordHash: string(hash),
		}
		if err := profileRepo.Create(ctx, student); err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				existing, lookupErr := profileRepo.GetByEmail(ctx, student.Email)
				if lookupErr != nil {
					log.Fatal().Err(lookupErr).Msg("Failed to load existing student")
				}
				student = existing
			} else {
				log.Fatal().Err(err).Str("email", student.Email).Msg("Failed to create student")
			}
		}

		enrollment := &model.Enrollment{StudentID: student.ID, ClassID: class.ID}
		if err := enrollmentRepo.Enroll(ctx, enrollment); err != nil && !errors.Is(err, repository.ErrAlreadyEnrolled) {
			log.Fatal().Err(err).Str("email", student.Email).Msg("Failed to enroll student")
		}
		seeded++
	}

	fmt.Printf("Seeded %d students into %q\n", seeded, class.Name)
	fmt.Printf("All accounts use password %q\n", demoPassword)
}
