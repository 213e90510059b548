package model

import (
	"time"

	"github.com/google/uuid"
)

// Enrollment records that a student belongs to a class.
type Enrollment struct {
	ID        uuid.UUID `json:"id"`
	StudentID uuid.UUID `json:"student_id"`
	ClassID   uuid.UUID `json:"class_id"`
	CreatedAt time.Time `json:"created_at"`
}
