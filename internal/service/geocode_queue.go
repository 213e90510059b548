package service

import (
	"context"
	"encoding/json"

	"github.com/classbeacon/classbeacon-backend/internal/config"
	"github.com/classbeacon/classbeacon-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// GeocodeJob asks the geocode worker to backfill a record's address.
// Attempts counts failed resolutions so the worker can drop a job whose
// retry budget is spent.
type GeocodeJob struct {
	RecordID  string  `json:"record_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Attempts  int     `json:"attempts,omitempty"`
}

// GeocodeQueue enqueues reverse-geocode jobs onto a Redis list consumed by
// the geocode worker.
type GeocodeQueue struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewGeocodeQueue creates a new GeocodeQueue.
func NewGeocodeQueue(rdb *redis.Client, log zerolog.Logger) *GeocodeQueue {
	return &GeocodeQueue{
		rdb: rdb,
		log: log.With().Str("component", "geocode_queue").Logger(),
	}
}

// Enqueue schedules address backfill for a record. Best-effort: a record
// without coordinates is skipped and queue failures are only logged.
func (q *GeocodeQueue) Enqueue(ctx context.Context, rec *model.AttendanceRecord) {
	if rec.Latitude == nil || rec.Longitude == nil {
		return
	}

	payload, err := json.Marshal(GeocodeJob{
		RecordID:  rec.ID.String(),
		Latitude:  *rec.Latitude,
		Longitude: *rec.Longitude,
	})
	if err != nil {
		q.log.Error().Err(err).Msg("Marshal geocode job")
		return
	}

	if err := q.rdb.RPush(ctx, config.WorkerKey.GeocodeQueue, payload).Err(); err != nil {
		q.log.Error().Err(err).Msg("Enqueue geocode job")
	}
}
