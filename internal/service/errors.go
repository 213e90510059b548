package service

import "errors"

// Typed outcomes of the issuance and redemption pipelines. Handlers map
// these one-to-one onto API error codes; anything else bubbling out of a
// service is an infrastructure failure.
var (
	// ErrLocationUnavailable means the caller's device supplied no usable
	// coordinates. Fatal to the call, never retried automatically.
	ErrLocationUnavailable = errors.New("location unavailable")

	// ErrInvalidOrExpiredCode covers both a wrong code and an expired one.
	// The two are deliberately indistinguishable so the endpoint cannot be
	// used as a code-guessing oracle.
	ErrInvalidOrExpiredCode = errors.New("invalid or expired attendance code")

	// ErrNotEnrolled means the student does not belong to the class.
	ErrNotEnrolled = errors.New("student not enrolled in class")

	// ErrOutOfRange means the student is beyond the proximity radius of
	// the issuing teacher.
	ErrOutOfRange = errors.New("student out of range of class location")

	// ErrAlreadyMarked is the benign duplicate-redemption outcome; the
	// student already has a record for this class today.
	ErrAlreadyMarked = errors.New("attendance already marked today")

	// ErrIssuanceFailed means code generation kept colliding until the
	// retry budget ran out.
	ErrIssuanceFailed = errors.New("attendance code issuance failed")

	// ErrInvalidCredentials is returned on any authentication mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotClassOwner means a teacher acted on a class they do not own.
	ErrNotClassOwner = errors.New("not the owner of this class")
)
