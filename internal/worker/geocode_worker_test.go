package worker

import (
	"encoding/json"
	"testing"

	"github.com/classbeacon/classbeacon-backend/internal/service"
)

func TestNextRetryGivesUpAfterBudget(t *testing.T) {
	job := &service.GeocodeJob{RecordID: "rec-1", Latitude: 52.52, Longitude: 13.405}

	retries := 0
	for {
		payload, retry := nextRetry(job)
		if !retry {
			break
		}
		retries++
		if retries > maxGeocodeAttempts {
			t.Fatalf("still retrying after %d attempts", retries)
		}

		// The requeued payload carries the attempt count forward, as it
		// would through Redis.
		var requeued service.GeocodeJob
		if err := json.Unmarshal(payload, &requeued); err != nil {
			t.Fatalf("unmarshal requeued job: %v", err)
		}
		if requeued.Attempts != job.Attempts {
			t.Fatalf("requeued attempts = %d, want %d", requeued.Attempts, job.Attempts)
		}
		job = &requeued
	}

	if retries != maxGeocodeAttempts-1 {
		t.Errorf("retries = %d, want %d", retries, maxGeocodeAttempts-1)
	}
	if job.Attempts != maxGeocodeAttempts {
		t.Errorf("final attempts = %d, want %d", job.Attempts, maxGeocodeAttempts)
	}
}
