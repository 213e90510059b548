package repository

import (
	"context"
	"errors"
	"time"

	"github.com/classbeacon/classbeacon-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrDuplicateCode = errors.New("this code already exists for the class")
	ErrCodeNotFound  = errors.New("no valid code found")
)

// AttendanceCodeRepository handles issued attendance code persistence.
// Codes are immutable rows; validity is a read-time predicate on
// expiry_time against the database clock, never the client's.
type AttendanceCodeRepository struct {
	pool *pgxpool.Pool
}

// NewAttendanceCodeRepository creates a new AttendanceCodeRepository.
func NewAttendanceCodeRepository(pool *pgxpool.Pool) *AttendanceCodeRepository {
	return &AttendanceCodeRepository{pool: pool}
}

// Issue inserts a new code row. Returns ErrDuplicateCode when the same
// code value already exists for the class; the issuance service handles
// that by regenerating.
func (r *AttendanceCodeRepository) Issue(ctx context.Context, c *model.AttendanceCode) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO attendance_codes (class_id, code, expiry_time, teacher_latitude, teacher_longitude)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		c.ClassID, c.Code, c.ExpiryTime, c.TeacherLatitude, c.TeacherLongitude,
	).Scan(&c.ID, &c.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateCode
		}
		return err
	}
	return nil
}

// Lookup retrieves the non-expired code row for (class, code). Expiry is
// filtered with the server's NOW() so a client with a skewed clock cannot
// redeem a stale code. Wrong code and expired code are indistinguishable
// here; both come back as ErrCodeNotFound.
func (r *AttendanceCodeRepository) Lookup(ctx context.Context, classID uuid.UUID, code string) (*model.AttendanceCode, error) {
	c := &model.AttendanceCode{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, class_id, code, expiry_time, teacher_latitude, teacher_longitude, created_at
		 FROM attendance_codes
		 WHERE class_id = $1 AND code = $2 AND expiry_time > NOW()
		 ORDER BY created_at DESC
		 LIMIT 1`, classID, code,
	).Scan(&c.ID, &c.ClassID, &c.Code, &c.ExpiryTime, &c.TeacherLatitude, &c.TeacherLongitude, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	return c, nil
}

// ListActiveByClass retrieves the still-valid codes for a class, newest
// first. Teachers use this to re-display a running code after app restart.
func (r *AttendanceCodeRepository) ListActiveByClass(ctx context.Context, classID uuid.UUID) ([]model.AttendanceCode, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, class_id, code, expiry_time, teacher_latitude, teacher_longitude, created_at
		 FROM attendance_codes
		 WHERE class_id = $1 AND expiry_time > NOW()
		 ORDER BY created_at DESC`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []model.AttendanceCode
	for rows.Next() {
		var c model.AttendanceCode
		if err := rows.Scan(&c.ID, &c.ClassID, &c.Code, &c.ExpiryTime, &c.TeacherLatitude, &c.TeacherLongitude, &c.CreatedAt); err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

// DeleteExpired garbage-collects code rows whose expiry passed more than
// retention ago. Returns the number of rows removed.
func (r *AttendanceCodeRepository) DeleteExpired(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM attendance_codes
		 WHERE expiry_time < NOW() - ($1 * interval '1 second')`,
		retention.Seconds(),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
