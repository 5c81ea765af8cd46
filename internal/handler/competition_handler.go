package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cendekia-fest/kompetisi-api/internal/models"
	"github.com/cendekia-fest/kompetisi-api/internal/service"
	appErrors "github.com/cendekia-fest/kompetisi-api/pkg/errors"
	"github.com/cendekia-fest/kompetisi-api/pkg/response"
)

type competitionService interface {
	ListActive(ctx context.Context) ([]models.Competition, error)
	List(ctx context.Context, filter models.CompetitionFilter) ([]models.Competition, error)
	Get(ctx context.Context, id string) (*models.Competition, error)
	Create(ctx context.Context, req service.CreateCompetitionRequest, actor *models.JWTClaims) (*models.Competition, error)
	Update(ctx context.Context, id string, req service.UpdateCompetitionRequest, actor *models.JWTClaims) (*models.Competition, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
}

// CompetitionHandler serves the competition catalog.
type CompetitionHandler struct {
	service competitionService
}

// NewCompetitionHandler constructs the handler.
func NewCompetitionHandler(svc competitionService) *CompetitionHandler {
	return &CompetitionHandler{service: svc}
}

// List godoc
// @Summary List competitions
// @Tags Competitions
// @Produce json
// @Param all query bool false "Include inactive (admin listings)"
// @Success 200 {object} response.Envelope
// @Router /competitions [get]
func (h *CompetitionHandler) List(c *gin.Context) {
	if all, err := strconv.ParseBool(c.DefaultQuery("all", "false")); err == nil && all {
		competitions, err := h.service.List(c.Request.Context(), models.CompetitionFilter{Search: c.Query("search")})
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, competitions, nil)
		return
	}
	competitions, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, competitions, nil)
}

// Get godoc
// @Summary Get one competition
// @Tags Competitions
// @Produce json
// @Param id path string true "Competition ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /competitions/{id} [get]
func (h *CompetitionHandler) Get(c *gin.Context) {
	competition, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, competition, nil)
}

// Create godoc
// @Summary Create a competition
// @Tags Competitions
// @Accept json
// @Produce json
// @Param payload body service.CreateCompetitionRequest true "Competition payload"
// @Success 201 {object} response.Envelope
// @Router /admin/competitions [post]
func (h *CompetitionHandler) Create(c *gin.Context) {
	var req service.CreateCompetitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid competition payload"))
		return
	}
	competition, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, competition)
}

// Update godoc
// @Summary Update a competition
// @Tags Competitions
// @Accept json
// @Produce json
// @Param id path string true "Competition ID"
// @Param payload body service.UpdateCompetitionRequest true "Competition payload"
// @Success 200 {object} response.Envelope
// @Router /admin/competitions/{id} [put]
func (h *CompetitionHandler) Update(c *gin.Context) {
	var req service.UpdateCompetitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid competition payload"))
		return
	}
	competition, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, competition, nil)
}

// Delete godoc
// @Summary Delete a competition
// @Tags Competitions
// @Produce json
// @Param id path string true "Competition ID"
// @Success 204 {object} response.Envelope
// @Router /admin/competitions/{id} [delete]
func (h *CompetitionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
