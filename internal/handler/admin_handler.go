package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cendekia-fest/kompetisi-api/internal/dto"
	"github.com/cendekia-fest/kompetisi-api/internal/models"
	appErrors "github.com/cendekia-fest/kompetisi-api/pkg/errors"
	"github.com/cendekia-fest/kompetisi-api/pkg/response"
)

type adminRegistrationService interface {
	AdminList(ctx context.Context, filter models.RegistrationFilter, actor *models.JWTClaims) ([]models.RegistrationDetail, *models.Pagination, error)
	SetStatus(ctx context.Context, req dto.UpdateStatusRequest, actor *models.JWTClaims) (*dto.UpdateStatusResponse, error)
}

type settingsService interface {
	Get(ctx context.Context) (*models.RegistrationSettings, error)
	Update(ctx context.Context, req dto.UpdateSettingsRequest, actor *models.JWTClaims) (*models.RegistrationSettings, error)
}

// AdminHandler manages the admin review surface: registration listings, bulk
// status decisions and the settings record.
type AdminHandler struct {
	registrations adminRegistrationService
	settings      settingsService
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(registrations adminRegistrationService, settings settingsService) *AdminHandler {
	return &AdminHandler{registrations: registrations, settings: settings}
}

// ListRegistrations godoc
// @Summary List registrations across all participants
// @Tags Admin
// @Produce json
// @Param status query string false "Status filter"
// @Param competition_id query string false "Competition filter"
// @Param batch_id query string false "Batch filter"
// @Param paid_only query bool false "Only registrations with proof"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/registrations [get]
func (h *AdminHandler) ListRegistrations(c *gin.Context) {
	filter := models.RegistrationFilter{
		CompetitionID: c.Query("competition_id"),
		BatchID:       c.Query("batch_id"),
		Status:        models.RegistrationStatus(c.Query("status")),
		SortBy:        c.Query("sort_by"),
		SortOrder:     c.Query("sort_order"),
	}
	if v, err := strconv.ParseBool(c.DefaultQuery("paid_only", "false")); err == nil {
		filter.PaidOnly = v
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	regs, pagination, err := h.registrations.AdminList(c.Request.Context(), filter, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, regs, pagination)
}

// UpdateStatus godoc
// @Summary Apply a status decision to a batch of registrations
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.UpdateStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/registrations/status [put]
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid status payload"))
		return
	}
	res, err := h.registrations.SetStatus(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// GetSettings godoc
// @Summary Read the registration settings record
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/settings [get]
func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// UpdateSettings godoc
// @Summary Update the registration settings record
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.UpdateSettingsRequest true "Settings payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/settings [put]
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid settings payload"))
		return
	}
	settings, err := h.settings.Update(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}
