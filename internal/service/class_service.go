package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/classbeacon/classbeacon-backend/internal/model"
	"github.com/classbeacon/classbeacon-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// joinCodeRetries bounds regeneration when a generated join code collides.
const joinCodeRetries = 3

// ClassService handles class lifecycle and enrollment.
type ClassService struct {
	classRepo      *repository.ClassRepository
	enrollmentRepo *repository.EnrollmentRepository
}

// NewClassService creates a new ClassService.
func NewClassService(classRepo *repository.ClassRepository, enrollmentRepo *repository.EnrollmentRepository) *ClassService {
	return &ClassService{classRepo: classRepo, enrollmentRepo: enrollmentRepo}
}

// Create makes a new class for a teacher with a fresh join code.
func (s *ClassService) Create(ctx context.Context, teacherID uuid.UUID, name string) (*model.Class, error) {
	for attempt := 0; attempt <= joinCodeRetries; attempt++ {
		joinCode, err := GenerateJoinCode()
		if err != nil {
			return nil, err
		}

		class := &model.Class{
			Name:      name,
			TeacherID: teacherID,
			JoinCode:  joinCode,
		}
		err = s.classRepo.Create(ctx, class)
		if err == nil {
			return class, nil
		}
		if !errors.Is(err, repository.ErrDuplicateJoinCode) {
			return nil, fmt.Errorf("create class: %w", err)
		}
	}
	return nil, fmt.Errorf("create class: join code collisions exhausted retries")
}

// GetOwned fetches a class and verifies the teacher owns it.
func (s *ClassService) GetOwned(ctx context.Context, teacherID, classID uuid.UUID) (*model.Class, error) {
	class, err := s.classRepo.GetByID(ctx, classID)
	if err != nil {
		return nil, err
	}
	if class.TeacherID != teacherID {
		return nil, ErrNotClassOwner
	}
	return class, nil
}

// ListByTeacher retrieves a teacher's classes.
func (s *ClassService) ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]model.Class, error) {
	return s.classRepo.ListByTeacher(ctx, teacherID)
}

// ListByStudent retrieves the classes a student is enrolled in.
func (s *ClassService) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]model.Class, error) {
	return s.enrollmentRepo.ListClassesByStudent(ctx, studentID)
}

// Rename updates a class name after an ownership check.
func (s *ClassService) Rename(ctx context.Context, teacherID, classID uuid.UUID, name string) (*model.Class, error) {
	if _, err := s.GetOwned(ctx, teacherID, classID); err != nil {
		return nil, err
	}
	if err := s.classRepo.Rename(ctx, classID, name); err != nil {
		return nil, err
	}
	return s.classRepo.GetByID(ctx, classID)
}

// Delete removes a class after an ownership check.
func (s *ClassService) Delete(ctx context.Context, teacherID, classID uuid.UUID) error {
	if _, err := s.GetOwned(ctx, teacherID, classID); err != nil {
		return err
	}
	return s.classRepo.Delete(ctx, classID)
}

// Join enrolls a student into the class behind a join code.
func (s *ClassService) Join(ctx context.Context, studentID uuid.UUID, joinCode string) (*model.Class, error) {
	class, err := s.classRepo.GetByJoinCode(ctx, joinCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get class by join code: %w", err)
	}

	enrollment := &model.Enrollment{StudentID: studentID, ClassID: class.ID}
	if err := s.enrollmentRepo.Enroll(ctx, enrollment); err != nil {
		return nil, err
	}
	return class, nil
}

// Roster lists the students enrolled in a class, teacher-only.
func (s *ClassService) Roster(ctx context.Context, teacherID, classID uuid.UUID) ([]model.Profile, error) {
	if _, err := s.GetOwned(ctx, teacherID, classID); err != nil {
		return nil, err
	}
	return s.enrollmentRepo.ListStudentsByClass(ctx, classID)
}
