package repository

import (
	"context"
	"errors"
	"time"

	"github.com/classbeacon/classbeacon-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDuplicateAttendance = errors.New("attendance already recorded for this student, class, and day")

// AttendanceRepository handles attendance record persistence. The unique
// index on (class_id, student_id, date) is the single point that decides
// which of two racing redemptions wins; there is no check-then-insert.
type AttendanceRepository struct {
	pool *pgxpool.Pool
}

// NewAttendanceRepository creates a new AttendanceRepository.
func NewAttendanceRepository(pool *pgxpool.Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// InsertIfAbsent writes a present record dated with the database's UTC
// calendar day. Returns ErrDuplicateAttendance when a record for the same
// (class, student, day) already exists.
func (r *AttendanceRepository) InsertIfAbsent(ctx context.Context, rec *model.AttendanceRecord) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO attendance (class_id, student_id, date, status, latitude, longitude, location_address)
		 VALUES ($1, $2, (NOW() AT TIME ZONE 'utc')::date, $3, $4, $5, $6)
		 RETURNING id, date, created_at`,
		rec.ClassID, rec.StudentID, rec.Status, rec.Latitude, rec.Longitude, rec.LocationAddress,
	).Scan(&rec.ID, &rec.Date, &rec.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateAttendance
		}
		return err
	}
	return nil
}

// ListByClass retrieves a class's records, optionally bounded by an
// inclusive date range, newest first.
func (r *AttendanceRepository) ListByClass(ctx context.Context, classID uuid.UUID, from, to *time.Time) ([]model.AttendanceRecord, error) {
	query := `SELECT id, class_id, student_id, date, status, latitude, longitude, location_address, created_at
		 FROM attendance WHERE class_id = $1`
	args := []interface{}{classID}

	if from != nil {
		args = append(args, *from)
		query += ` AND date >= $2`
	}
	if to != nil {
		args = append(args, *to)
		if from != nil {
			query += ` AND date <= $3`
		} else {
			query += ` AND date <= $2`
		}
	}
	query += ` ORDER BY date DESC, created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.AttendanceRecord
	for rows.Next() {
		var rec model.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.ClassID, &rec.StudentID, &rec.Date, &rec.Status,
			&rec.Latitude, &rec.Longitude, &rec.LocationAddress, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListByStudent retrieves a student's own records across classes, newest
// first.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]model.AttendanceRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, class_id, student_id, date, status, latitude, longitude, location_address, created_at
		 FROM attendance WHERE student_id = $1
		 ORDER BY date DESC, created_at DESC
		 LIMIT $2`, studentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.AttendanceRecord
	for rows.Next() {
		var rec model.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.ClassID, &rec.StudentID, &rec.Date, &rec.Status,
			&rec.Latitude, &rec.Longitude, &rec.LocationAddress, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// InsertAbsentees writes absent records for every enrolled student of a
// class who has no record for the given date. ON CONFLICT DO NOTHING keeps
// it safe against concurrent redemptions landing mid-statement. Returns the
// number of rows written.
func (r *AttendanceRepository) InsertAbsentees(ctx context.Context, classID uuid.UUID, date time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO attendance (class_id, student_id, date, status)
		 SELECT e.class_id, e.student_id, $2::date, 'absent'
		 FROM class_enrollments e
		 WHERE e.class_id = $1
		 ON CONFLICT (class_id, student_id, date) DO NOTHING`,
		classID, date,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// SetLocationAddress backfills the reverse-geocoded address of a record.
// Used by the geocode worker only; everything else about a record is
// immutable once written.
func (r *AttendanceRepository) SetLocationAddress(ctx context.Context, id uuid.UUID, address string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE attendance SET location_address = $1 WHERE id = $2`,
		address, id,
	)
	return err
}
