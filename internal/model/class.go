package model

import (
	"time"

	"github.com/google/uuid"
)

// Class represents a class session owned by one teacher.
type Class struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	TeacherID uuid.UUID `json:"teacher_id"`
	JoinCode  string    `json:"join_code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateClassRequest is the payload for creating or renaming a class.
type CreateClassRequest struct {
	Name string `json:"name" binding:"required,min=2,max=100"`
}

// JoinClassRequest is the payload for a student self-enrolling by join code.
type JoinClassRequest struct {
	JoinCode string `json:"join_code" binding:"required,len=8"`
}
