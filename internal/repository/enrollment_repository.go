package repository

import (
	"context"
	"errors"

	"github.com/classbeacon/classbeacon-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrAlreadyEnrolled = errors.New("student is already enrolled in this class")

// EnrollmentRepository handles class membership data access.
type EnrollmentRepository struct {
	pool *pgxpool.Pool
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(pool *pgxpool.Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// IsEnrolled reports whether a student belongs to a class.
func (r *EnrollmentRepository) IsEnrolled(ctx context.Context, studentID, classID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		    SELECT 1 FROM class_enrollments WHERE student_id = $1 AND class_id = $2
		 )`, studentID, classID,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Enroll adds a student to a class.
func (r *EnrollmentRepository) Enroll(ctx context.Context, e *model.Enrollment) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO class_enrollments (student_id, class_id)
		 VALUES ($1, $2)
		 RETURNING id, created_at`,
		e.StudentID, e.ClassID,
	).Scan(&e.ID, &e.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyEnrolled
		}
		return err
	}
	return nil
}

// ListClassesByStudent retrieves the classes a student is enrolled in.
func (r *EnrollmentRepository) ListClassesByStudent(ctx context.Context, studentID uuid.UUID) ([]model.Class, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.name, c.teacher_id, c.join_code, c.created_at, c.updated_at
		 FROM classes c
		 JOIN class_enrollments e ON e.class_id = c.id
		 WHERE e.student_id = $1
		 ORDER BY c.name`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var classes []model.Class
	for rows.Next() {
		var c model.Class
		if err := rows.Scan(&c.ID, &c.Name, &c.TeacherID, &c.JoinCode, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// ListStudentsByClass retrieves the roster of a class.
func (r *EnrollmentRepository) ListStudentsByClass(ctx context.Context, classID uuid.UUID) ([]model.Profile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.email, p.name, p.role, p.password_hash, p.created_at, p.updated_at
		 FROM profiles p
		 JOIN class_enrollments e ON e.student_id = p.id
		 WHERE e.class_id = $1
		 ORDER BY p.name`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []model.Profile
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.Name, &p.Role, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		students = append(students, p)
	}
	return students, rows.Err()
}
