package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vgs-ops/shift-ops-api/internal/middleware"
	"github.com/vgs-ops/shift-ops-api/internal/models"
	"github.com/vgs-ops/shift-ops-api/internal/service"
	appErrors "github.com/vgs-ops/shift-ops-api/pkg/errors"
	"github.com/vgs-ops/shift-ops-api/pkg/response"
)

// ConflictHandler handles conflict detection and resolution endpoints.
type ConflictHandler struct {
	service *service.ConflictService
}

// NewConflictHandler constructs a conflict handler.
func NewConflictHandler(svc *service.ConflictService) *ConflictHandler {
	return &ConflictHandler{service: svc}
}

type resolveRequest struct {
	Notes string `json:"notes"`
}

// DetectGuard godoc
// @Summary Scan one guard's schedule for conflicts
// @Tags Conflicts
// @Produce json
// @Param guard_id path string true "Guard ID"
// @Param from query string true "Window start (YYYY-MM-DD)"
// @Param to query string true "Window end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /conflicts/detect/guards/{guard_id} [post]
func (h *ConflictHandler) DetectGuard(c *gin.Context) {
	from, to, err := parseWindow(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	conflicts, err := h.service.DetectForGuard(c.Request.Context(), c.Param("guard_id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflicts, nil)
}

// DetectLocation godoc
// @Summary Scan every guard at a location for conflicts
// @Tags Conflicts
// @Produce json
// @Param location_id path string true "Location ID"
// @Param from query string true "Window start (YYYY-MM-DD)"
// @Param to query string true "Window end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /conflicts/detect/locations/{location_id} [post]
func (h *ConflictHandler) DetectLocation(c *gin.Context) {
	from, to, err := parseWindow(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	conflicts, err := h.service.DetectForLocation(c.Request.Context(), c.Param("location_id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflicts, nil)
}

// List godoc
// @Summary List conflicts
// @Tags Conflicts
// @Produce json
// @Param guard_id query string false "Filter by guard"
// @Param type query string false "Filter by conflict type"
// @Param severity query string false "Filter by severity"
// @Param resolution query string false "Filter by resolution state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /conflicts [get]
func (h *ConflictHandler) List(c *gin.Context) {
	var filter models.ConflictFilter
	filter.GuardID = c.Query("guard_id")
	filter.Type = models.ConflictType(c.Query("type"))
	filter.Severity = models.ConflictSeverity(c.Query("severity"))
	filter.Resolution = models.ConflictResolution(c.Query("resolution"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	conflicts, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflicts, pagination)
}

// Get godoc
// @Summary Get conflict by id
// @Tags Conflicts
// @Produce json
// @Param id path string true "Conflict ID"
// @Success 200 {object} response.Envelope
// @Router /conflicts/{id} [get]
func (h *ConflictHandler) Get(c *gin.Context) {
	conflict, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflict, nil)
}

// StartResolution godoc
// @Summary Claim a conflict and mark it in progress
// @Tags Conflicts
// @Produce json
// @Param id path string true "Conflict ID"
// @Success 200 {object} response.Envelope
// @Router /conflicts/{id}/start [post]
func (h *ConflictHandler) StartResolution(c *gin.Context) {
	conflict, err := h.service.StartResolution(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflict, nil)
}

// Resolve godoc
// @Summary Mark a conflict as resolved
// @Tags Conflicts
// @Accept json
// @Produce json
// @Param id path string true "Conflict ID"
// @Param payload body resolveRequest false "Resolution notes"
// @Success 200 {object} response.Envelope
// @Router /conflicts/{id}/resolve [post]
func (h *ConflictHandler) Resolve(c *gin.Context) {
	var req resolveRequest
	_ = c.ShouldBindJSON(&req)
	conflict, err := h.service.Resolve(c.Request.Context(), c.Param("id"), currentUserID(c), req.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflict, nil)
}

// Ignore godoc
// @Summary Mark a conflict as ignored
// @Tags Conflicts
// @Accept json
// @Produce json
// @Param id path string true "Conflict ID"
// @Param payload body resolveRequest false "Resolution notes"
// @Success 200 {object} response.Envelope
// @Router /conflicts/{id}/ignore [post]
func (h *ConflictHandler) Ignore(c *gin.Context) {
	var req resolveRequest
	_ = c.ShouldBindJSON(&req)
	conflict, err := h.service.Ignore(c.Request.Context(), c.Param("id"), currentUserID(c), req.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflict, nil)
}

// Report godoc
// @Summary Build the open-conflict report for a window
// @Tags Conflicts
// @Produce json
// @Param from query string true "Window start (YYYY-MM-DD)"
// @Param to query string true "Window end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /conflicts/report [get]
func (h *ConflictHandler) Report(c *gin.Context) {
	from, to, err := parseWindow(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, cacheHit, err := h.service.Report(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, report, nil, middleware.ExtractMeta(c))
}

func parseWindow(c *gin.Context) (time.Time, time.Time, error) {
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "from must be a YYYY-MM-DD date")
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "to must be a YYYY-MM-DD date")
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "to cannot be earlier than from")
	}
	// The window covers the whole final day.
	return from, to.Add(24*time.Hour - time.Nanosecond), nil
}

func currentUserID(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil {
		return ""
	}
	return claims.UserID
}
