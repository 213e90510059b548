package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/classbeacon/classbeacon-backend/internal/config"
	"github.com/classbeacon/classbeacon-backend/internal/geo"
	"github.com/classbeacon/classbeacon-backend/internal/repository"
	"github.com/classbeacon/classbeacon-backend/internal/service"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// geocodeCacheTTL bounds how long a resolved address is reused for nearby
// coordinates. Addresses do not move, but cached garbage should age out.
const geocodeCacheTTL = 30 * 24 * time.Hour

// maxGeocodeAttempts is a job's retry budget. Backfill is best-effort; a
// job that keeps failing (upstream 403, unparsable reply) is dropped so
// one poisoned job cannot pin the worker.
const maxGeocodeAttempts = 5

// GeocodeWorker consumes geocode_queue and backfills human-readable
// addresses onto attendance records via the reverse geocoder. Results are
// cached in Redis by rounded coordinates so a classroom of students
// resolves to one upstream request.
type GeocodeWorker struct {
	attendanceRepo *repository.AttendanceRepository
	rdb            *redis.Client
	geocoder       *geo.Geocoder
	log            zerolog.Logger
}

// NewGeocodeWorker creates a new GeocodeWorker.
func NewGeocodeWorker(
	attendanceRepo *repository.AttendanceRepository,
	rdb *redis.Client,
	geocoder *geo.Geocoder,
	log zerolog.Logger,
) *GeocodeWorker {
	return &GeocodeWorker{
		attendanceRepo: attendanceRepo,
		rdb:            rdb,
		geocoder:       geocoder,
		log:            log.With().Str("component", "geocode_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *GeocodeWorker) Start(ctx context.Context) {
	if !w.geocoder.Enabled() {
		w.log.Info().Msg("Geocoder disabled, worker not running")
		return
	}

	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *GeocodeWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or timeout (1 second).
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.GeocodeQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var job service.GeocodeJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.resolve(ctx, &job); err != nil {
		payload, retry := nextRetry(&job)
		if !retry {
			w.log.Error().Err(err).
				Str("record_id", job.RecordID).
				Int("attempts", job.Attempts).
				Msg("Geocode retry budget spent, dropping job")
			return
		}

		w.log.Error().Err(err).
			Str("record_id", job.RecordID).
			Int("attempts", job.Attempts).
			Msg("Geocode error, retrying in 5s")
		// Push back to queue for retry. Nominatim rate limits; back off.
		w.rdb.RPush(ctx, config.WorkerKey.GeocodeQueue, payload)
		time.Sleep(5 * time.Second)
	}
}

// nextRetry bumps a failed job's attempt count and returns the payload to
// requeue, or false when the retry budget is spent.
func nextRetry(job *service.GeocodeJob) ([]byte, bool) {
	job.Attempts++
	if job.Attempts >= maxGeocodeAttempts {
		return nil, false
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, false
	}
	return payload, true
}

func (w *GeocodeWorker) resolve(ctx context.Context, job *service.GeocodeJob) error {
	recordID, err := uuid.Parse(job.RecordID)
	if err != nil {
		return err
	}

	address, err := w.lookupAddress(ctx, job.Latitude, job.Longitude)
	if err != nil {
		if err == geo.ErrNoAddress {
			// Coordinates with no address (open water, bad fix). Done.
			return nil
		}
		return err
	}

	return w.attendanceRepo.SetLocationAddress(ctx, recordID, address)
}

// lookupAddress checks the Redis cache before hitting the upstream
// geocoder.
func (w *GeocodeWorker) lookupAddress(ctx context.Context, lat, lon float64) (string, error) {
	cacheKey := config.CacheKey.GeocodeKey(lat, lon)

	cached, err := w.rdb.Get(ctx, cacheKey).Result()
	if err == nil && cached != "" {
		return cached, nil
	}

	address, err := w.geocoder.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return "", err
	}

	if err := w.rdb.Set(ctx, cacheKey, address, geocodeCacheTTL).Err(); err != nil {
		w.log.Warn().Err(err).Msg("Cache geocode result")
	}
	return address, nil
}

// drain processes all remaining items in the queue before shutdown.
func (w *GeocodeWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.GeocodeQueue).Result()
		if err != nil {
			break
		}

		var job service.GeocodeJob
		if err := json.Unmarshal([]byte(result), &job); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.resolve(ctx, &job); err != nil {
			w.log.Error().Err(err).Msg("Drain geocode error")
			w.rdb.RPush(ctx, config.WorkerKey.GeocodeQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
