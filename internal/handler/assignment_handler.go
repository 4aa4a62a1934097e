package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vgs-ops/shift-ops-api/internal/models"
	"github.com/vgs-ops/shift-ops-api/internal/service"
	appErrors "github.com/vgs-ops/shift-ops-api/pkg/errors"
	"github.com/vgs-ops/shift-ops-api/pkg/response"
)

// AssignmentHandler handles assignment lifecycle endpoints.
type AssignmentHandler struct {
	service *service.AssignmentService
}

// NewAssignmentHandler constructs an assignment handler.
func NewAssignmentHandler(svc *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: svc}
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// List godoc
// @Summary List assignments
// @Tags Assignments
// @Produce json
// @Param shift_id query string false "Filter by shift"
// @Param guard_id query string false "Filter by guard"
// @Param team_id query string false "Filter by team"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	var filter models.AssignmentFilter
	filter.ShiftID = c.Query("shift_id")
	filter.GuardID = c.Query("guard_id")
	filter.TeamID = c.Query("team_id")
	filter.Status = models.AssignmentStatus(c.Query("status"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	assignments, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, pagination)
}

// Create godoc
// @Summary Assign a guard to a shift
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body service.CreateAssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	var req service.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assignment, err := h.service.Assign(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Confirm godoc
// @Summary Confirm an assignment
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/confirm [post]
func (h *AssignmentHandler) Confirm(c *gin.Context) {
	h.respond(c, func() (*models.ShiftAssignment, error) {
		return h.service.Confirm(c.Request.Context(), c.Param("id"))
	})
}

// Decline godoc
// @Summary Decline an assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body reasonRequest true "Decline reason"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/decline [post]
func (h *AssignmentHandler) Decline(c *gin.Context) {
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	h.respond(c, func() (*models.ShiftAssignment, error) {
		return h.service.Decline(c.Request.Context(), c.Param("id"), req.Reason)
	})
}

// CheckIn godoc
// @Summary Check a guard in for their shift
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/check-in [post]
func (h *AssignmentHandler) CheckIn(c *gin.Context) {
	h.respond(c, func() (*models.ShiftAssignment, error) {
		return h.service.CheckIn(c.Request.Context(), c.Param("id"))
	})
}

// CheckOut godoc
// @Summary Check a guard out of their shift
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/check-out [post]
func (h *AssignmentHandler) CheckOut(c *gin.Context) {
	h.respond(c, func() (*models.ShiftAssignment, error) {
		return h.service.CheckOut(c.Request.Context(), c.Param("id"))
	})
}

// Complete godoc
// @Summary Complete a checked-out assignment
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/complete [post]
func (h *AssignmentHandler) Complete(c *gin.Context) {
	h.respond(c, func() (*models.ShiftAssignment, error) {
		return h.service.Complete(c.Request.Context(), c.Param("id"))
	})
}

// NoShow godoc
// @Summary Mark a guard as absent
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body reasonRequest false "Optional note"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/no-show [post]
func (h *AssignmentHandler) NoShow(c *gin.Context) {
	var req reasonRequest
	_ = c.ShouldBindJSON(&req)
	h.respond(c, func() (*models.ShiftAssignment, error) {
		return h.service.NoShow(c.Request.Context(), c.Param("id"), req.Reason)
	})
}

// Cancel godoc
// @Summary Cancel an assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body reasonRequest true "Cancellation reason"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/cancel [post]
func (h *AssignmentHandler) Cancel(c *gin.Context) {
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	h.respond(c, func() (*models.ShiftAssignment, error) {
		return h.service.Cancel(c.Request.Context(), c.Param("id"), req.Reason)
	})
}

// Replace godoc
// @Summary Replace the guard on an assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body service.ReplaceAssignmentRequest true "Replacement payload"
// @Success 201 {object} response.Envelope
// @Router /assignments/{id}/replace [post]
func (h *AssignmentHandler) Replace(c *gin.Context) {
	var req service.ReplaceAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	replacement, err := h.service.Replace(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, replacement)
}

func (h *AssignmentHandler) respond(c *gin.Context, fn func() (*models.ShiftAssignment, error)) {
	assignment, err := fn()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}
