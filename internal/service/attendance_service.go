package service

import (
	"context"
	"time"

	"github.com/classbeacon/classbeacon-backend/internal/model"
	"github.com/classbeacon/classbeacon-backend/internal/repository"
	"github.com/google/uuid"
)

// AttendanceService handles attendance reads and teacher reporting around
// the redemption core.
type AttendanceService struct {
	attendanceRepo *repository.AttendanceRepository
	codeRepo       *repository.AttendanceCodeRepository
	classService   *ClassService
}

// NewAttendanceService creates a new AttendanceService.
func NewAttendanceService(
	attendanceRepo *repository.AttendanceRepository,
	codeRepo *repository.AttendanceCodeRepository,
	classService *ClassService,
) *AttendanceService {
	return &AttendanceService{
		attendanceRepo: attendanceRepo,
		codeRepo:       codeRepo,
		classService:   classService,
	}
}

// ListClassRecords retrieves a class's records for its teacher, optionally
// bounded by an inclusive date range.
func (s *AttendanceService) ListClassRecords(ctx context.Context, teacherID, classID uuid.UUID, from, to *time.Time) ([]model.AttendanceRecord, error) {
	if _, err := s.classService.GetOwned(ctx, teacherID, classID); err != nil {
		return nil, err
	}
	return s.attendanceRepo.ListByClass(ctx, classID, from, to)
}

// ListStudentRecords retrieves a student's own attendance history.
func (s *AttendanceService) ListStudentRecords(ctx context.Context, studentID uuid.UUID, limit int) ([]model.AttendanceRecord, error) {
	return s.attendanceRepo.ListByStudent(ctx, studentID, limit)
}

// ActiveCodes lists the class's still-valid codes so a teacher can
// re-display a running code after an app restart.
func (s *AttendanceService) ActiveCodes(ctx context.Context, teacherID, classID uuid.UUID) ([]model.AttendanceCode, error) {
	if _, err := s.classService.GetOwned(ctx, teacherID, classID); err != nil {
		return nil, err
	}
	return s.codeRepo.ListActiveByClass(ctx, classID)
}

// CloseOutDay marks every enrolled student without a record for the date
// as absent. Safe to call repeatedly; students who already checked in are
// untouched. Returns the number of absent rows written.
func (s *AttendanceService) CloseOutDay(ctx context.Context, teacherID, classID uuid.UUID, date time.Time) (int64, error) {
	if _, err := s.classService.GetOwned(ctx, teacherID, classID); err != nil {
		return 0, err
	}
	return s.attendanceRepo.InsertAbsentees(ctx, classID, date)
}
