package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/classbeacon/classbeacon-backend/internal/model"
	"github.com/classbeacon/classbeacon-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// conflictingCodeStore rejects the first n Issue calls with a duplicate
// error, then accepts.
type conflictingCodeStore struct {
	conflicts int
	calls     int
	issued    []model.AttendanceCode
}

func (f *conflictingCodeStore) Issue(ctx context.Context, c *model.AttendanceCode) error {
	f.calls++
	if f.calls <= f.conflicts {
		return repository.ErrDuplicateCode
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	f.issued = append(f.issued, *c)
	return nil
}

func TestIssueCodePersistsWithTTL(t *testing.T) {
	store := &conflictingCodeStore{}
	svc := NewIssuanceService(store, testConfig(), zerolog.Nop())

	before := time.Now()
	ac, err := svc.IssueCode(context.Background(), uuid.New(), 10*time.Minute, ptr(40.0), ptr(-75.0))
	if err != nil {
		t.Fatalf("IssueCode: %v", err)
	}

	if len(ac.Code) != 6 {
		t.Errorf("code = %q, want 6 digits", ac.Code)
	}
	wantExpiry := before.Add(10 * time.Minute)
	if ac.ExpiryTime.Before(wantExpiry) || ac.ExpiryTime.After(wantExpiry.Add(5*time.Second)) {
		t.Errorf("expiry = %v, want ~%v", ac.ExpiryTime, wantExpiry)
	}
	if !ac.HasIssuerLocation() {
		t.Error("issued code must carry issuer coordinates")
	}
}

func TestIssueCodeDefaultsTTL(t *testing.T) {
	store := &conflictingCodeStore{}
	svc := NewIssuanceService(store, testConfig(), zerolog.Nop())

	before := time.Now()
	ac, err := svc.IssueCode(context.Background(), uuid.New(), 0, ptr(40.0), ptr(-75.0))
	if err != nil {
		t.Fatalf("IssueCode: %v", err)
	}

	wantExpiry := before.Add(15 * time.Minute)
	if ac.ExpiryTime.Before(wantExpiry) || ac.ExpiryTime.After(wantExpiry.Add(5*time.Second)) {
		t.Errorf("expiry = %v, want default 15m (~%v)", ac.ExpiryTime, wantExpiry)
	}
}

func TestIssueCodeClampsTTL(t *testing.T) {
	store := &conflictingCodeStore{}
	svc := NewIssuanceService(store, testConfig(), zerolog.Nop())

	before := time.Now()
	ac, err := svc.IssueCode(context.Background(), uuid.New(), 48*time.Hour, ptr(40.0), ptr(-75.0))
	if err != nil {
		t.Fatalf("IssueCode: %v", err)
	}

	cap := before.Add(2 * time.Hour)
	if ac.ExpiryTime.After(cap.Add(5 * time.Second)) {
		t.Errorf("expiry = %v, want clamped to ~%v", ac.ExpiryTime, cap)
	}
}

func TestIssueCodeFailsClosedWithoutLocation(t *testing.T) {
	store := &conflictingCodeStore{}
	svc := NewIssuanceService(store, testConfig(), zerolog.Nop())

	_, err := svc.IssueCode(context.Background(), uuid.New(), 10*time.Minute, nil, nil)
	if !errors.Is(err, ErrLocationUnavailable) {
		t.Fatalf("IssueCode = %v, want ErrLocationUnavailable", err)
	}
	if store.calls != 0 {
		t.Errorf("store called %d times, want 0 (no code without location)", store.calls)
	}
}

func TestIssueCodeRetriesOnCollision(t *testing.T) {
	store := &conflictingCodeStore{conflicts: 2}
	svc := NewIssuanceService(store, testConfig(), zerolog.Nop())

	ac, err := svc.IssueCode(context.Background(), uuid.New(), 10*time.Minute, ptr(40.0), ptr(-75.0))
	if err != nil {
		t.Fatalf("IssueCode: %v", err)
	}
	if store.calls != 3 {
		t.Errorf("store calls = %d, want 3 (two collisions then success)", store.calls)
	}
	if ac.Code == "" {
		t.Error("issued code is empty")
	}
}

func TestIssueCodeGivesUpAfterRetryBudget(t *testing.T) {
	// More conflicts than the budget (retries=3 means 4 attempts total).
	store := &conflictingCodeStore{conflicts: 10}
	svc := NewIssuanceService(store, testConfig(), zerolog.Nop())

	_, err := svc.IssueCode(context.Background(), uuid.New(), 10*time.Minute, ptr(40.0), ptr(-75.0))
	if !errors.Is(err, ErrIssuanceFailed) {
		t.Fatalf("IssueCode = %v, want ErrIssuanceFailed", err)
	}
	if store.calls != 4 {
		t.Errorf("store calls = %d, want 4", store.calls)
	}
}
