package model

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceCode is a short-lived code a teacher issues for one class.
// Rows are immutable after insert; a code stops being redeemable the moment
// expiry_time passes, which the store evaluates against its own clock.
type AttendanceCode struct {
	ID               uuid.UUID `json:"id"`
	ClassID          uuid.UUID `json:"class_id"`
	Code             string    `json:"code"`
	ExpiryTime       time.Time `json:"expiry_time"`
	TeacherLatitude  *float64  `json:"teacher_latitude,omitempty"`
	TeacherLongitude *float64  `json:"teacher_longitude,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// HasIssuerLocation reports whether the issuing teacher's coordinates were
// captured. Without them the redemption spatial gate is skipped.
func (c *AttendanceCode) HasIssuerLocation() bool {
	return c.TeacherLatitude != nil && c.TeacherLongitude != nil
}

// IssueCodeRequest is the teacher payload for generating a code. TTL is
// given in minutes plus seconds to match the app's picker; both zero falls
// back to the configured default. Coordinates come from the teacher's
// device; omitting them fails the call.
type IssueCodeRequest struct {
	ExpiryMinutes int      `json:"expiry_minutes" binding:"min=0,max=120"`
	ExpirySeconds int      `json:"expiry_seconds" binding:"min=0,max=59"`
	Latitude      *float64 `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude     *float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
}

// IssueCodeResponse is returned to the teacher after a code is persisted.
// ExpiresIn lets the client render a countdown without trusting its own
// clock for the cutoff.
type IssueCodeResponse struct {
	Code       string    `json:"code"`
	ExpiryTime time.Time `json:"expiry_time"`
	ExpiresIn  int       `json:"expires_in_seconds"`
}
