package model

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceStatus is the recorded state of a student for one class day.
// Redemption only ever writes "present"; "absent" rows are written by
// teachers closing out a day.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusAbsent  AttendanceStatus = "absent"
)

// AttendanceRecord is one student's attendance for one class on one
// calendar day. The (class_id, student_id, date) triple is unique at the
// storage layer; that constraint, not application logic, is what keeps
// concurrent redemptions from double-marking.
type AttendanceRecord struct {
	ID              uuid.UUID        `json:"id"`
	ClassID         uuid.UUID        `json:"class_id"`
	StudentID       uuid.UUID        `json:"student_id"`
	Date            time.Time        `json:"date"`
	Status          AttendanceStatus `json:"status"`
	Latitude        *float64         `json:"latitude,omitempty"`
	Longitude       *float64         `json:"longitude,omitempty"`
	LocationAddress *string          `json:"location_address,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// RedeemRequest is the student payload for converting a code into an
// attendance record. Coordinates come from the student's device; the
// handler rejects the call when they are missing.
type RedeemRequest struct {
	Code      string   `json:"code" binding:"required,len=6,numeric"`
	Latitude  *float64 `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
}
