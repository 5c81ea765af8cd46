package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cendekia-fest/kompetisi-api/internal/models"
	"github.com/cendekia-fest/kompetisi-api/internal/service"
	appErrors "github.com/cendekia-fest/kompetisi-api/pkg/errors"
	"github.com/cendekia-fest/kompetisi-api/pkg/response"
)

type pricingService interface {
	List(ctx context.Context, filter models.PricingFilter, actor *models.JWTClaims) ([]models.PricingEntry, error)
	Upsert(ctx context.Context, req service.UpsertPricingRequest, actor *models.JWTClaims) (*models.PricingEntry, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
}

// PricingHandler serves the admin pricing matrix endpoints.
type PricingHandler struct {
	service pricingService
}

// NewPricingHandler constructs the handler.
func NewPricingHandler(svc pricingService) *PricingHandler {
	return &PricingHandler{service: svc}
}

// List godoc
// @Summary List pricing entries
// @Tags Pricing
// @Produce json
// @Param competition_id query string false "Filter by competition"
// @Param batch_id query string false "Filter by batch"
// @Param level query string false "Filter by education level"
// @Success 200 {object} response.Envelope
// @Router /admin/pricing [get]
func (h *PricingHandler) List(c *gin.Context) {
	filter := models.PricingFilter{
		CompetitionID: c.Query("competition_id"),
		BatchID:       c.Query("batch_id"),
		Level:         models.EducationLevel(c.Query("level")),
	}
	entries, err := h.service.List(c.Request.Context(), filter, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Upsert godoc
// @Summary Create or replace a pricing entry
// @Tags Pricing
// @Accept json
// @Produce json
// @Param payload body service.UpsertPricingRequest true "Pricing payload"
// @Success 200 {object} response.Envelope
// @Router /admin/pricing [put]
func (h *PricingHandler) Upsert(c *gin.Context) {
	var req service.UpsertPricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid pricing payload"))
		return
	}
	entry, err := h.service.Upsert(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Delete godoc
// @Summary Delete a pricing entry
// @Tags Pricing
// @Produce json
// @Param id path string true "Pricing entry ID"
// @Success 204 {object} response.Envelope
// @Router /admin/pricing/{id} [delete]
func (h *PricingHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
