package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConflictHandlerDetectGuardRequiresWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewConflictHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/conflicts/detect/guards/guard-1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "guard_id", Value: "guard-1"}}

	handler.DetectGuard(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConflictHandlerReportRejectsInvertedWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewConflictHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/conflicts/report?from=2025-07-31&to=2025-07-01", nil)
	c.Request = req

	handler.Report(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConflictHandlerReportRejectsMalformedDates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewConflictHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/conflicts/report?from=July+1&to=2025-07-31", nil)
	c.Request = req

	handler.Report(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
