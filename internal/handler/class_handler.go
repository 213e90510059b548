package handler

import (
	"errors"
	"net/http"

	"github.com/classbeacon/classbeacon-backend/internal/middleware"
	"github.com/classbeacon/classbeacon-backend/internal/model"
	"github.com/classbeacon/classbeacon-backend/internal/repository"
	"github.com/classbeacon/classbeacon-backend/internal/response"
	"github.com/classbeacon/classbeacon-backend/internal/service"
	"github.com/classbeacon/classbeacon-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ClassHandler handles class management for teachers and enrollment for
// students.
type ClassHandler struct {
	classService *service.ClassService
}

// NewClassHandler creates a new ClassHandler.
func NewClassHandler(classService *service.ClassService) *ClassHandler {
	return &ClassHandler{classService: classService}
}

// CreateClass godoc
// POST /api/v1/teacher/classes
// Creates a class owned by the authenticated teacher.
func (h *ClassHandler) CreateClass(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateClassRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	class, err := h.classService.Create(c.Request.Context(), claims.UserID, req.Name)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"class": class})
}

// ListTeacherClasses godoc
// GET /api/v1/teacher/classes
// Lists classes owned by the authenticated teacher.
func (h *ClassHandler) ListTeacherClasses(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	classes, err := h.classService.ListByTeacher(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"classes": classes})
}

// GetClass godoc
// GET /api/v1/teacher/classes/:id
// Returns one class owned by the authenticated teacher.
func (h *ClassHandler) GetClass(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	classID, ok := parseClassID(c)
	if !ok {
		return
	}

	class, err := h.classService.GetOwned(c.Request.Context(), claims.UserID, classID)
	if err != nil {
		failClassLookup(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"class": class})
}

// RenameClass godoc
// PUT /api/v1/teacher/classes/:id
// Renames a class owned by the authenticated teacher.
func (h *ClassHandler) RenameClass(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	classID, ok := parseClassID(c)
	if !ok {
		return
	}

	var req model.CreateClassRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	class, err := h.classService.Rename(c.Request.Context(), claims.UserID, classID, req.Name)
	if err != nil {
		failClassLookup(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"class": class})
}

// DeleteClass godoc
// DELETE /api/v1/teacher/classes/:id
// Deletes a class and its enrollments, codes and records.
func (h *ClassHandler) DeleteClass(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	classID, ok := parseClassID(c)
	if !ok {
		return
	}

	if err := h.classService.Delete(c.Request.Context(), claims.UserID, classID); err != nil {
		failClassLookup(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// GetRoster godoc
// GET /api/v1/teacher/classes/:id/roster
// Lists students enrolled in a class owned by the authenticated teacher.
func (h *ClassHandler) GetRoster(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	classID, ok := parseClassID(c)
	if !ok {
		return
	}

	students, err := h.classService.Roster(c.Request.Context(), claims.UserID, classID)
	if err != nil {
		failClassLookup(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"students": students})
}

// JoinClass godoc
// POST /api/v1/student/classes/join
// Enrolls the authenticated student in a class by join code.
func (h *ClassHandler) JoinClass(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.JoinClassRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	class, err := h.classService.Join(c.Request.Context(), claims.UserID, req.JoinCode)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, repository.ErrAlreadyEnrolled):
			response.Fail(c, http.StatusConflict, response.ErrAlreadyEnrolled)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"class": class})
}

// ListStudentClasses godoc
// GET /api/v1/student/classes
// Lists classes the authenticated student is enrolled in.
func (h *ClassHandler) ListStudentClasses(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	classes, err := h.classService.ListByStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"classes": classes})
}

// parseClassID reads the :id route param as a UUID, writing a 400 on
// failure.
func parseClassID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// failClassLookup translates class ownership and lookup errors.
func failClassLookup(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotClassOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotClassOwner)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
