package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/classbeacon/classbeacon-backend/internal/middleware"
	"github.com/classbeacon/classbeacon-backend/internal/model"
	"github.com/classbeacon/classbeacon-backend/internal/response"
	"github.com/classbeacon/classbeacon-backend/internal/service"
	"github.com/classbeacon/classbeacon-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// AttendanceHandler handles code issuance, redemption and attendance
// queries.
type AttendanceHandler struct {
	classService      *service.ClassService
	issuanceService   *service.IssuanceService
	redemptionService *service.RedemptionService
	attendanceService *service.AttendanceService
}

// NewAttendanceHandler creates a new AttendanceHandler.
func NewAttendanceHandler(
	classService *service.ClassService,
	issuanceService *service.IssuanceService,
	redemptionService *service.RedemptionService,
	attendanceService *service.AttendanceService,
) *AttendanceHandler {
	return &AttendanceHandler{
		classService:      classService,
		issuanceService:   issuanceService,
		redemptionService: redemptionService,
		attendanceService: attendanceService,
	}
}

// IssueCode godoc
// POST /api/v1/teacher/classes/:id/codes
// Generates a short-lived attendance code bound to the teacher's current
// location. Fails when the teacher's coordinates are missing.
func (h *AttendanceHandler) IssueCode(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	classID, ok := parseClassID(c)
	if !ok {
		return
	}

	var req model.IssueCodeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	// Ownership check happens before anything is written.
	if _, err := h.classService.GetOwned(c.Request.Context(), claims.UserID, classID); err != nil {
		failClassLookup(c, err)
		return
	}

	ttl := time.Duration(req.ExpiryMinutes)*time.Minute + time.Duration(req.ExpirySeconds)*time.Second
	code, err := h.issuanceService.IssueCode(c.Request.Context(), classID, ttl, req.Latitude, req.Longitude)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLocationUnavailable):
			response.Fail(c, http.StatusBadRequest, response.ErrLocationUnavailable)
		case errors.Is(err, service.ErrIssuanceFailed):
			response.Fail(c, http.StatusInternalServerError, response.ErrIssuanceFailed)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"code": model.IssueCodeResponse{
			Code:       code.Code,
			ExpiryTime: code.ExpiryTime,
			ExpiresIn:  int(time.Until(code.ExpiryTime).Seconds()),
		},
	})
}

// ListActiveCodes godoc
// GET /api/v1/teacher/classes/:id/codes
// Lists unexpired codes for a class owned by the authenticated teacher.
func (h *AttendanceHandler) ListActiveCodes(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	classID, ok := parseClassID(c)
	if !ok {
		return
	}

	codes, err := h.attendanceService.ActiveCodes(c.Request.Context(), claims.UserID, classID)
	if err != nil {
		failClassLookup(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"codes": codes})
}

// ListClassAttendance godoc
// GET /api/v1/teacher/classes/:id/attendance?from=2026-01-02&to=2026-01-31
// Lists attendance records for a class, optionally bounded by date.
func (h *AttendanceHandler) ListClassAttendance(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	classID, ok := parseClassID(c)
	if !ok {
		return
	}

	from, ok := parseDateQuery(c, "from")
	if !ok {
		return
	}
	to, ok := parseDateQuery(c, "to")
	if !ok {
		return
	}

	records, err := h.attendanceService.ListClassRecords(c.Request.Context(), claims.UserID, classID, from, to)
	if err != nil {
		failClassLookup(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"records": records})
}

// CloseOutDay godoc
// POST /api/v1/teacher/classes/:id/attendance/close?date=2026-01-02
// Writes absent records for every enrolled student with no record on the
// given date. Date defaults to today (UTC).
func (h *AttendanceHandler) CloseOutDay(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	classID, ok := parseClassID(c)
	if !ok {
		return
	}

	date := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
			return
		}
		date = parsed
	}

	marked, err := h.attendanceService.CloseOutDay(c.Request.Context(), claims.UserID, classID, date)
	if err != nil {
		failClassLookup(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"marked_absent": marked})
}

// Redeem godoc
// POST /api/v1/student/classes/:id/redeem
// Converts a valid code into today's attendance record. The request is
// rejected unless the student is enrolled, inside the proximity radius
// and not yet marked for the day.
func (h *AttendanceHandler) Redeem(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	classID, ok := parseClassID(c)
	if !ok {
		return
	}

	var req model.RedeemRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	record, err := h.redemptionService.Redeem(
		c.Request.Context(), claims.UserID, classID, req.Code, req.Latitude, req.Longitude)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLocationUnavailable):
			middleware.RedemptionOutcomes.WithLabelValues("location_unavailable").Inc()
			response.Fail(c, http.StatusBadRequest, response.ErrLocationUnavailable)
		case errors.Is(err, service.ErrInvalidOrExpiredCode):
			middleware.RedemptionOutcomes.WithLabelValues("invalid_code").Inc()
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidOrExpiredCode)
		case errors.Is(err, service.ErrNotEnrolled):
			middleware.RedemptionOutcomes.WithLabelValues("not_enrolled").Inc()
			response.Fail(c, http.StatusForbidden, response.ErrNotEnrolled)
		case errors.Is(err, service.ErrOutOfRange):
			middleware.RedemptionOutcomes.WithLabelValues("out_of_range").Inc()
			response.Fail(c, http.StatusForbidden, response.ErrOutOfRange)
		case errors.Is(err, service.ErrAlreadyMarked):
			middleware.RedemptionOutcomes.WithLabelValues("already_marked").Inc()
			response.Fail(c, http.StatusConflict, response.ErrAlreadyMarked)
		default:
			middleware.RedemptionOutcomes.WithLabelValues("error").Inc()
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	middleware.RedemptionOutcomes.WithLabelValues("marked").Inc()
	response.Success(c, http.StatusCreated, gin.H{"record": record})
}

// ListStudentAttendance godoc
// GET /api/v1/student/attendance?limit=50
// Lists the authenticated student's most recent attendance records.
func (h *AttendanceHandler) ListStudentAttendance(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
			return
		}
		limit = parsed
	}

	records, err := h.attendanceService.ListStudentRecords(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"records": records})
}

// parseDateQuery reads an optional YYYY-MM-DD query param, writing a 400
// on malformed input.
func parseDateQuery(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return nil, false
	}
	return &parsed, true
}
