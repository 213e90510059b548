package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handlers behind the JWT middleware never see a request without claims,
// but the guard branch must still answer with a 401 rather than an empty
// 200 if it is ever reached.
func TestHandlersRejectMissingClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ah := NewAttendanceHandler(nil, nil, nil, nil)
	ch := NewClassHandler(nil)
	auth := NewAuthHandler(nil)

	endpoints := map[string]gin.HandlerFunc{
		"GetProfile":            auth.GetProfile,
		"CreateClass":           ch.CreateClass,
		"ListTeacherClasses":    ch.ListTeacherClasses,
		"GetClass":              ch.GetClass,
		"RenameClass":           ch.RenameClass,
		"DeleteClass":           ch.DeleteClass,
		"GetRoster":             ch.GetRoster,
		"JoinClass":             ch.JoinClass,
		"ListStudentClasses":    ch.ListStudentClasses,
		"IssueCode":             ah.IssueCode,
		"ListActiveCodes":       ah.ListActiveCodes,
		"ListClassAttendance":   ah.ListClassAttendance,
		"CloseOutDay":           ah.CloseOutDay,
		"Redeem":                ah.Redeem,
		"ListStudentAttendance": ah.ListStudentAttendance,
	}

	for name, fn := range endpoints {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Params = gin.Params{{Key: "id", Value: uuid.NewString()}}

			fn(c)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}
