package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/classbeacon/classbeacon-backend/internal/config"
	"github.com/classbeacon/classbeacon-backend/internal/model"
	"github.com/classbeacon/classbeacon-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ─── In-memory fakes ────────────────────────────────────────────────

type fakeCodeStore struct {
	mu    sync.Mutex
	codes []model.AttendanceCode
}

func (f *fakeCodeStore) Issue(ctx context.Context, c *model.AttendanceCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.codes {
		if existing.ClassID == c.ClassID && existing.Code == c.Code {
			return repository.ErrDuplicateCode
		}
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	f.codes = append(f.codes, *c)
	return nil
}

func (f *fakeCodeStore) Lookup(ctx context.Context, classID uuid.UUID, code string) (*model.AttendanceCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.codes) - 1; i >= 0; i-- {
		c := f.codes[i]
		if c.ClassID == classID && c.Code == code && c.ExpiryTime.After(time.Now()) {
			return &c, nil
		}
	}
	return nil, repository.ErrCodeNotFound
}

type fakeEnrollments struct {
	enrolled map[string]bool
}

func enrollmentKey(studentID, classID uuid.UUID) string {
	return studentID.String() + "|" + classID.String()
}

func (f *fakeEnrollments) IsEnrolled(ctx context.Context, studentID, classID uuid.UUID) (bool, error) {
	return f.enrolled[enrollmentKey(studentID, classID)], nil
}

// fakeRecordStore enforces the (class, student, date) uniqueness under a
// mutex, the way the real unique index does, so concurrent redemption
// tests exercise a real race.
type fakeRecordStore struct {
	mu      sync.Mutex
	records map[string]model.AttendanceRecord
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: make(map[string]model.AttendanceRecord)}
}

func (f *fakeRecordStore) InsertIfAbsent(ctx context.Context, rec *model.AttendanceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	date := time.Now().UTC().Truncate(24 * time.Hour)
	key := fmt.Sprintf("%s|%s|%s", rec.ClassID, rec.StudentID, date.Format("2006-01-02"))
	if _, exists := f.records[key]; exists {
		return repository.ErrDuplicateAttendance
	}

	rec.ID = uuid.New()
	rec.Date = date
	rec.CreatedAt = time.Now()
	f.records[key] = *rec
	return nil
}

type fakeProfiles struct {
	names map[uuid.UUID]string
}

func (f *fakeProfiles) GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	name, ok := f.names[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	return &model.Profile{ID: id, Name: name, Role: model.RoleStudent}, nil
}

type captureRoster struct {
	mu     sync.Mutex
	events []string
}

func (f *captureRoster) PublishCheckin(ctx context.Context, rec *model.AttendanceRecord, studentName string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, studentName)
}

func (f *captureRoster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type noopGeocodes struct{}

func (noopGeocodes) Enqueue(ctx context.Context, rec *model.AttendanceRecord) {}

// ─── Fixture ────────────────────────────────────────────────────────

type redemptionFixture struct {
	svc     *RedemptionService
	codes   *fakeCodeStore
	records *fakeRecordStore
	enroll  *fakeEnrollments
	roster  *captureRoster

	teacherLat float64
	teacherLon float64
	classID    uuid.UUID
	studentID  uuid.UUID
}

func testConfig() *config.Config {
	return &config.Config{
		CodeTTL:               15 * time.Minute,
		CodeMaxTTL:            2 * time.Hour,
		CodeIssueRetries:      3,
		ProximityRadiusMeters: 50,
	}
}

func newRedemptionFixture(t *testing.T) *redemptionFixture {
	t.Helper()

	fx := &redemptionFixture{
		codes:      &fakeCodeStore{},
		records:    newFakeRecordStore(),
		enroll:     &fakeEnrollments{enrolled: make(map[string]bool)},
		roster:     &captureRoster{},
		teacherLat: 40.0,
		teacherLon: -75.0,
		classID:    uuid.New(),
		studentID:  uuid.New(),
	}

	profiles := &fakeProfiles{names: map[uuid.UUID]string{fx.studentID: "Sam Student"}}

	fx.svc = NewRedemptionService(
		fx.codes, fx.enroll, fx.records, profiles, fx.roster, noopGeocodes{},
		testConfig(), zerolog.Nop(),
	)

	fx.enroll.enrolled[enrollmentKey(fx.studentID, fx.classID)] = true
	return fx
}

// issueCode seeds a valid code for the fixture class at the teacher's
// location, expiring ttl from now.
func (fx *redemptionFixture) issueCode(t *testing.T, code string, ttl time.Duration) {
	t.Helper()
	lat, lon := fx.teacherLat, fx.teacherLon
	err := fx.codes.Issue(context.Background(), &model.AttendanceCode{
		ClassID:          fx.classID,
		Code:             code,
		ExpiryTime:       time.Now().Add(ttl),
		TeacherLatitude:  &lat,
		TeacherLongitude: &lon,
	})
	if err != nil {
		t.Fatalf("seed code: %v", err)
	}
}

func ptr(f float64) *float64 { return &f }

// ─── Tests ──────────────────────────────────────────────────────────

func TestRedeemSuccess(t *testing.T) {
	fx := newRedemptionFixture(t)
	fx.issueCode(t, "123456", 15*time.Minute)

	// ~1.5m from the teacher.
	rec, err := fx.svc.Redeem(context.Background(), fx.studentID, fx.classID, "123456",
		ptr(40.00001), ptr(-75.00001))
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}

	if rec.Status != model.StatusPresent {
		t.Errorf("status = %q, want present", rec.Status)
	}
	today := time.Now().UTC().Format("2006-01-02")
	if rec.Date.Format("2006-01-02") != today {
		t.Errorf("date = %s, want %s", rec.Date.Format("2006-01-02"), today)
	}
	if fx.roster.count() != 1 {
		t.Errorf("roster events = %d, want 1", fx.roster.count())
	}
	if len(fx.roster.events) == 1 && fx.roster.events[0] != "Sam Student" {
		t.Errorf("roster event name = %q, want Sam Student", fx.roster.events[0])
	}
}

func TestRedeemTwiceIsAlreadyMarked(t *testing.T) {
	fx := newRedemptionFixture(t)
	fx.issueCode(t, "123456", 15*time.Minute)

	lat, lon := ptr(40.00001), ptr(-75.00001)
	if _, err := fx.svc.Redeem(context.Background(), fx.studentID, fx.classID, "123456", lat, lon); err != nil {
		t.Fatalf("first Redeem: %v", err)
	}

	_, err := fx.svc.Redeem(context.Background(), fx.studentID, fx.classID, "123456", lat, lon)
	if !errors.Is(err, ErrAlreadyMarked) {
		t.Fatalf("second Redeem = %v, want ErrAlreadyMarked", err)
	}
	if fx.roster.count() != 1 {
		t.Errorf("roster events = %d, want 1 (duplicate must not publish)", fx.roster.count())
	}
}

func TestRedeemExpiredCode(t *testing.T) {
	fx := newRedemptionFixture(t)
	// Issued in the past: expiry already behind us.
	fx.issueCode(t, "123456", -time.Minute)

	_, err := fx.svc.Redeem(context.Background(), fx.studentID, fx.classID, "123456",
		ptr(40.00001), ptr(-75.00001))
	if !errors.Is(err, ErrInvalidOrExpiredCode) {
		t.Fatalf("Redeem = %v, want ErrInvalidOrExpiredCode", err)
	}
}

func TestRedeemWrongCodeIndistinguishableFromExpired(t *testing.T) {
	fx := newRedemptionFixture(t)
	fx.issueCode(t, "123456", 15*time.Minute)

	_, wrongErr := fx.svc.Redeem(context.Background(), fx.studentID, fx.classID, "654321",
		ptr(40.00001), ptr(-75.00001))

	fx2 := newRedemptionFixture(t)
	fx2.issueCode(t, "123456", -time.Minute)
	_, expiredErr := fx2.svc.Redeem(context.Background(), fx2.studentID, fx2.classID, "123456",
		ptr(40.00001), ptr(-75.00001))

	if !errors.Is(wrongErr, ErrInvalidOrExpiredCode) || !errors.Is(expiredErr, ErrInvalidOrExpiredCode) {
		t.Fatalf("wrong = %v, expired = %v, want both ErrInvalidOrExpiredCode", wrongErr, expiredErr)
	}
}

func TestRedeemNotEnrolled(t *testing.T) {
	fx := newRedemptionFixture(t)
	fx.issueCode(t, "123456", 15*time.Minute)

	stranger := uuid.New()
	_, err := fx.svc.Redeem(context.Background(), stranger, fx.classID, "123456",
		ptr(40.00001), ptr(-75.00001))
	if !errors.Is(err, ErrNotEnrolled) {
		t.Fatalf("Redeem = %v, want ErrNotEnrolled", err)
	}
}

func TestRedeemEnrollmentCheckedBeforeDistance(t *testing.T) {
	fx := newRedemptionFixture(t)
	fx.issueCode(t, "123456", 15*time.Minute)

	// Not enrolled AND far away: must fail with NotEnrolled, not
	// OutOfRange, so class location leaks nothing to outsiders.
	stranger := uuid.New()
	_, err := fx.svc.Redeem(context.Background(), stranger, fx.classID, "123456",
		ptr(41.0), ptr(-76.0))
	if !errors.Is(err, ErrNotEnrolled) {
		t.Fatalf("Redeem = %v, want ErrNotEnrolled before ErrOutOfRange", err)
	}
}

func TestRedeemOutOfRange(t *testing.T) {
	fx := newRedemptionFixture(t)
	fx.issueCode(t, "123456", 15*time.Minute)

	// ~200m north of the teacher.
	_, err := fx.svc.Redeem(context.Background(), fx.studentID, fx.classID, "123456",
		ptr(40.0018), ptr(-75.0))
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("Redeem = %v, want ErrOutOfRange", err)
	}
	if fx.roster.count() != 0 {
		t.Errorf("rejected attempt must not publish roster events")
	}
}

func TestRedeemSpatialBoundary(t *testing.T) {
	// 1 degree of latitude is ~111195m on the sphere used by the
	// distance function.
	const degPerMeterLat = 1.0 / 111195

	tests := []struct {
		name    string
		offsetM float64
		wantErr error
	}{
		{"49m passes", 49, nil},
		{"51m rejected", 51, ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newRedemptionFixture(t)
			fx.teacherLat, fx.teacherLon = 0, 0
			fx.issueCode(t, "123456", 15*time.Minute)

			_, err := fx.svc.Redeem(context.Background(), fx.studentID, fx.classID, "123456",
				ptr(tt.offsetM*degPerMeterLat), ptr(0))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Redeem = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRedeemSkipsSpatialGateWithoutIssuerLocation(t *testing.T) {
	fx := newRedemptionFixture(t)
	err := fx.codes.Issue(context.Background(), &model.AttendanceCode{
		ClassID:    fx.classID,
		Code:       "123456",
		ExpiryTime: time.Now().Add(15 * time.Minute),
	})
	if err != nil {
		t.Fatalf("seed code: %v", err)
	}

	// Far from anywhere, but the code has no issuer coordinates.
	rec, err := fx.svc.Redeem(context.Background(), fx.studentID, fx.classID, "123456",
		ptr(10.0), ptr(10.0))
	if err != nil {
		t.Fatalf("Redeem = %v, want success without spatial gate", err)
	}
	if rec.Status != model.StatusPresent {
		t.Errorf("status = %q, want present", rec.Status)
	}
}

func TestRedeemRequiresStudentLocation(t *testing.T) {
	fx := newRedemptionFixture(t)
	fx.issueCode(t, "123456", 15*time.Minute)

	_, err := fx.svc.Redeem(context.Background(), fx.studentID, fx.classID, "123456", nil, nil)
	if !errors.Is(err, ErrLocationUnavailable) {
		t.Fatalf("Redeem = %v, want ErrLocationUnavailable", err)
	}
}

func TestRedeemConcurrentExactlyOneWins(t *testing.T) {
	fx := newRedemptionFixture(t)
	fx.issueCode(t, "123456", 15*time.Minute)

	const attempts = 16

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = fx.svc.Redeem(context.Background(), fx.studentID, fx.classID, "123456",
				ptr(40.00001), ptr(-75.00001))
		}(i)
	}
	wg.Wait()

	succeeded, alreadyMarked := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrAlreadyMarked):
			alreadyMarked++
		default:
			t.Fatalf("unexpected redemption error: %v", err)
		}
	}

	if succeeded != 1 {
		t.Errorf("successes = %d, want exactly 1", succeeded)
	}
	if alreadyMarked != attempts-1 {
		t.Errorf("already-marked = %d, want %d", alreadyMarked, attempts-1)
	}
	if fx.roster.count() != 1 {
		t.Errorf("roster events = %d, want exactly 1", fx.roster.count())
	}
}
