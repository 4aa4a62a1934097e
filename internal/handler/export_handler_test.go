package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vgs-ops/shift-ops-api/internal/models"
	"github.com/vgs-ops/shift-ops-api/internal/service"
	"github.com/vgs-ops/shift-ops-api/pkg/storage"
)

type conflictReportStub struct{}

func (conflictReportStub) Report(ctx context.Context, from, to time.Time) (*service.ConflictReport, bool, error) {
	return &service.ConflictReport{
		GeneratedAt: time.Now().UTC(),
		From:        from,
		To:          to,
		Total:       1,
		BySeverity:  map[string]int{"CRITICAL": 1},
		ByType:      map[string]int{"DOUBLE_BOOKING": 1},
		Conflicts: []models.ShiftConflict{{
			Type: models.ConflictTypeDoubleBooking, Severity: models.ConflictSeverityCritical,
			GuardID: "guard-1", ShiftID: "shift-1",
			Description: "guard is booked on overlapping shifts", DetectedAt: time.Now().UTC(),
		}},
	}, false, nil
}

func newExportHandlerForTest(t *testing.T) *ExportHandler {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := service.NewExportService(conflictReportStub{}, store, signer, service.ExportConfig{APIPrefix: "/api/v1"}, zap.NewNop(), nil, nil)
	return NewExportHandler(svc)
}

func TestExportHandlerGenerateRejectsUnknownFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newExportHandlerForTest(t)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/conflicts/report/export?from=2025-07-01&to=2025-07-31&format=xlsx", nil)
	c.Request = req

	handler.Generate(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportHandlerGenerateAndDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newExportHandlerForTest(t)

	r := gin.New()
	r.POST("/conflicts/report/export", handler.Generate)
	r.GET("/export/:token", handler.Download)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/conflicts/report/export?from=2025-07-01&to=2025-07-31", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data struct {
			Token string `json:"Token"`
			URL   string `json:"URL"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.Token)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/export/"+envelope.Data.Token, nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Greater(t, w.Body.Len(), 0)
}

func TestExportHandlerDownloadRejectsBadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newExportHandlerForTest(t)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/export/not-a-token", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "token", Value: "not-a-token"}}

	handler.Download(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
