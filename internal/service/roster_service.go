package service

import (
	"context"
	"encoding/json"

	"github.com/classbeacon/classbeacon-backend/internal/config"
	"github.com/classbeacon/classbeacon-backend/internal/model"
	ws "github.com/classbeacon/classbeacon-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RosterService fans successful check-ins out to subscribed teacher views
// over Redis PubSub. The feed is a live tail: events published while
// nobody listens are dropped, and resubscribing replays nothing.
type RosterService struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRosterService creates a new RosterService.
func NewRosterService(rdb *redis.Client, log zerolog.Logger) *RosterService {
	return &RosterService{
		rdb: rdb,
		log: log.With().Str("component", "roster_service").Logger(),
	}
}

// PublishCheckin pushes a check-in event onto the class's roster channel.
// Failures are logged and swallowed; the attendance record is already
// durable and the feed is advisory.
func (s *RosterService) PublishCheckin(ctx context.Context, rec *model.AttendanceRecord, studentName string) {
	event := ws.CheckinEvent{
		Event:       ws.EventCheckin,
		ClassID:     rec.ClassID,
		StudentID:   rec.StudentID,
		StudentName: studentName,
		Date:        rec.Date.Format("2006-01-02"),
		CheckedInAt: rec.CreatedAt,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.log.Error().Err(err).Msg("Marshal checkin event")
		return
	}

	channel := config.CacheKey.RosterChannel(rec.ClassID.String())
	if err := s.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		s.log.Error().Err(err).Str("channel", channel).Msg("Publish checkin event")
	}
}

// Subscribe opens a live subscription to a class's roster channel. The
// caller owns the returned PubSub and must Close it.
func (s *RosterService) Subscribe(ctx context.Context, classID uuid.UUID) *redis.PubSub {
	return s.rdb.Subscribe(ctx, config.CacheKey.RosterChannel(classID.String()))
}
