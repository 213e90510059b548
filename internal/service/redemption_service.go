package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/classbeacon/classbeacon-backend/internal/config"
	"github.com/classbeacon/classbeacon-backend/internal/geo"
	"github.com/classbeacon/classbeacon-backend/internal/model"
	"github.com/classbeacon/classbeacon-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Slices of the stores the redemption pipeline reads and writes.
type codeLookup interface {
	Lookup(ctx context.Context, classID uuid.UUID, code string) (*model.AttendanceCode, error)
}

type enrollmentChecker interface {
	IsEnrolled(ctx context.Context, studentID, classID uuid.UUID) (bool, error)
}

type recordInserter interface {
	InsertIfAbsent(ctx context.Context, rec *model.AttendanceRecord) error
}

type profileGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error)
}

// rosterPublisher fans a successful check-in out to live teacher views.
type rosterPublisher interface {
	PublishCheckin(ctx context.Context, rec *model.AttendanceRecord, studentName string)
}

// geocodeEnqueuer schedules best-effort address backfill for a record.
type geocodeEnqueuer interface {
	Enqueue(ctx context.Context, rec *model.AttendanceRecord)
}

// RedemptionService converts a valid attendance code into a persisted
// attendance record. This is the verification core: a strictly sequential
// pipeline where every stage either fails with one typed reason or
// proceeds, and the only shared state is the store's uniqueness
// constraint.
type RedemptionService struct {
	codes       codeLookup
	enrollments enrollmentChecker
	records     recordInserter
	profiles    profileGetter
	roster      rosterPublisher
	geocodes    geocodeEnqueuer
	cfg         *config.Config
	log         zerolog.Logger
}

// NewRedemptionService creates a new RedemptionService.
func NewRedemptionService(
	codes codeLookup,
	enrollments enrollmentChecker,
	records recordInserter,
	profiles profileGetter,
	roster rosterPublisher,
	geocodes geocodeEnqueuer,
	cfg *config.Config,
	log zerolog.Logger,
) *RedemptionService {
	return &RedemptionService{
		codes:       codes,
		enrollments: enrollments,
		records:     records,
		profiles:    profiles,
		roster:      roster,
		geocodes:    geocodes,
		cfg:         cfg,
		log:         log.With().Str("component", "redemption_service").Logger(),
	}
}

// Redeem validates and records a student's check-in.
//
// Stage order is deliberate: enrollment is checked before distance so a
// student who is not in the class learns nothing about its location, and
// the spatial gate runs before the write so a rejected attempt leaves no
// record behind. The duplicate check is not a stage at all; it is the
// store's constraint surfacing on the insert, which is what makes two
// concurrent redemptions resolve to exactly one success.
func (s *RedemptionService) Redeem(ctx context.Context, studentID, classID uuid.UUID, code string, lat, lon *float64) (*model.AttendanceRecord, error) {
	if lat == nil || lon == nil {
		return nil, ErrLocationUnavailable
	}

	// 1. Lookup, expiry filtered by the store's clock.
	ac, err := s.codes.Lookup(ctx, classID, code)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			return nil, ErrInvalidOrExpiredCode
		}
		return nil, fmt.Errorf("lookup code: %w", err)
	}

	// 2. Enrollment, fail closed.
	enrolled, err := s.enrollments.IsEnrolled(ctx, studentID, classID)
	if err != nil {
		return nil, fmt.Errorf("check enrollment: %w", err)
	}
	if !enrolled {
		return nil, ErrNotEnrolled
	}

	// 3. Spatial gate. Skipped when the code carries no issuer
	// coordinates; issuance is fail-closed on location so this only
	// happens for legacy rows.
	if ac.HasIssuerLocation() {
		distance := geo.DistanceMeters(*lat, *lon, *ac.TeacherLatitude, *ac.TeacherLongitude)
		if distance > s.cfg.ProximityRadiusMeters {
			s.log.Debug().
				Str("student_id", studentID.String()).
				Str("class_id", classID.String()).
				Float64("distance_m", distance).
				Msg("Redemption out of range")
			return nil, ErrOutOfRange
		}
	}

	// 4. Atomic insert; the unique index decides duplicates.
	rec := &model.AttendanceRecord{
		ClassID:   classID,
		StudentID: studentID,
		Status:    model.StatusPresent,
		Latitude:  lat,
		Longitude: lon,
	}
	if err := s.records.InsertIfAbsent(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicateAttendance) {
			return nil, ErrAlreadyMarked
		}
		return nil, fmt.Errorf("insert attendance: %w", err)
	}

	s.log.Info().
		Str("student_id", studentID.String()).
		Str("class_id", classID.String()).
		Msg("Attendance marked")

	// 5. Post-write side effects are best-effort; the record is already
	// durable and must not be failed retroactively.
	studentName := ""
	if profile, err := s.profiles.GetByID(ctx, studentID); err == nil {
		studentName = profile.Name
	}
	s.roster.PublishCheckin(ctx, rec, studentName)
	s.geocodes.Enqueue(ctx, rec)

	return rec, nil
}
