package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/classbeacon/classbeacon-backend/internal/config"
	"github.com/classbeacon/classbeacon-backend/internal/model"
	"github.com/classbeacon/classbeacon-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// codeIssuer is the slice of the code store the issuance service needs.
type codeIssuer interface {
	Issue(ctx context.Context, c *model.AttendanceCode) error
}

// IssuanceService generates and persists teacher attendance codes.
type IssuanceService struct {
	codes codeIssuer
	cfg   *config.Config
	log   zerolog.Logger
}

// NewIssuanceService creates a new IssuanceService.
func NewIssuanceService(codes codeIssuer, cfg *config.Config, log zerolog.Logger) *IssuanceService {
	return &IssuanceService{
		codes: codes,
		cfg:   cfg,
		log:   log.With().Str("component", "issuance_service").Logger(),
	}
}

// IssueCode captures the issuing teacher's location, generates a code, and
// persists it with the requested lifetime.
//
// Fail-closed on location: without teacher coordinates the redemption
// spatial gate would silently degrade to no check at all, so a code is
// never issued without them. A ttl of zero falls back to the configured
// default; anything above the cap is clamped. On a code collision the
// service regenerates up to CodeIssueRetries times before giving up with
// ErrIssuanceFailed.
func (s *IssuanceService) IssueCode(ctx context.Context, classID uuid.UUID, ttl time.Duration, lat, lon *float64) (*model.AttendanceCode, error) {
	if lat == nil || lon == nil {
		return nil, ErrLocationUnavailable
	}

	if ttl <= 0 {
		ttl = s.cfg.CodeTTL
	}
	if ttl > s.cfg.CodeMaxTTL {
		ttl = s.cfg.CodeMaxTTL
	}

	for attempt := 0; attempt <= s.cfg.CodeIssueRetries; attempt++ {
		code, err := GenerateCode()
		if err != nil {
			return nil, err
		}

		ac := &model.AttendanceCode{
			ClassID:          classID,
			Code:             code,
			ExpiryTime:       time.Now().Add(ttl),
			TeacherLatitude:  lat,
			TeacherLongitude: lon,
		}

		err = s.codes.Issue(ctx, ac)
		if err == nil {
			s.log.Info().
				Str("class_id", classID.String()).
				Time("expiry_time", ac.ExpiryTime).
				Msg("Attendance code issued")
			return ac, nil
		}
		if !errors.Is(err, repository.ErrDuplicateCode) {
			return nil, fmt.Errorf("issue code: %w", err)
		}

		s.log.Warn().
			Str("class_id", classID.String()).
			Int("attempt", attempt+1).
			Msg("Code collision, regenerating")
	}

	return nil, ErrIssuanceFailed
}
