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

// TemplateHandler handles shift template endpoints.
type TemplateHandler struct {
	service *service.TemplateImportService
}

// NewTemplateHandler constructs a template handler.
func NewTemplateHandler(svc *service.TemplateImportService) *TemplateHandler {
	return &TemplateHandler{service: svc}
}

// Import godoc
// @Summary Import shift templates from a contract schedule feed
// @Tags Templates
// @Accept json
// @Produce json
// @Param payload body models.ContractScheduleFeed true "Contract schedule feed"
// @Success 200 {object} response.Envelope
// @Router /templates/import [post]
func (h *TemplateHandler) Import(c *gin.Context) {
	var feed models.ContractScheduleFeed
	if err := c.ShouldBindJSON(&feed); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	report, err := h.service.Import(c.Request.Context(), feed)
	if err != nil {
		if report != nil {
			// Every item failed; the itemized report still goes back.
			response.JSON(c, http.StatusUnprocessableEntity, report, nil)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// List godoc
// @Summary List shift templates
// @Tags Templates
// @Produce json
// @Param contract_id query string false "Filter by contract"
// @Param location_id query string false "Filter by location"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /templates [get]
func (h *TemplateHandler) List(c *gin.Context) {
	var filter models.TemplateFilter
	filter.ContractID = c.Query("contract_id")
	filter.LocationID = c.Query("location_id")
	filter.Status = models.TemplateStatus(c.Query("status"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	templates, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, templates, pagination)
}

// Get godoc
// @Summary Get shift template by id
// @Tags Templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} response.Envelope
// @Router /templates/{id} [get]
func (h *TemplateHandler) Get(c *gin.Context) {
	tpl, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tpl, nil)
}
