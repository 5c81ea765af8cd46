package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cendekia-fest/kompetisi-api/internal/models"
	appErrors "github.com/cendekia-fest/kompetisi-api/pkg/errors"
)

type competitionStore interface {
	List(ctx context.Context, filter models.CompetitionFilter) ([]models.Competition, error)
	FindByID(ctx context.Context, id string) (*models.Competition, error)
	Create(ctx context.Context, competition *models.Competition) error
	Update(ctx context.Context, competition *models.Competition) error
	Delete(ctx context.Context, id string) error
}

// catalogCacheKey holds the public list of active competitions.
const catalogCacheKey = "catalog:competitions:active"

// CreateCompetitionRequest describes a new competition.
type CreateCompetitionRequest struct {
	Title       string `json:"title" validate:"required"`
	Category    string `json:"category" validate:"required"`
	Description string `json:"description"`
	IsTeam      bool   `json:"is_team"`
	MaxTeamSize int    `json:"max_team_size"`
	Active      bool   `json:"active"`
}

// UpdateCompetitionRequest mutates an existing competition.
type UpdateCompetitionRequest struct {
	Title       *string `json:"title,omitempty"`
	Category    *string `json:"category,omitempty"`
	Description *string `json:"description,omitempty"`
	MaxTeamSize *int    `json:"max_team_size,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

// CompetitionService manages the competition catalog. The public active list
// is served from Redis when available.
type CompetitionService struct {
	repo      competitionStore
	cache     detailsCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCompetitionService constructs CompetitionService.
func NewCompetitionService(repo competitionStore, cache detailsCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *CompetitionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &CompetitionService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// ListActive returns the public catalog of active competitions.
func (s *CompetitionService) ListActive(ctx context.Context) ([]models.Competition, error) {
	if s.cache != nil {
		var cached []models.Competition
		if err := s.cache.Get(ctx, catalogCacheKey, &cached); err == nil {
			return cached, nil
		}
	}
	active := true
	competitions, err := s.repo.List(ctx, models.CompetitionFilter{Active: &active})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list competitions")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, catalogCacheKey, competitions, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache competition catalog", zap.Error(err))
		}
	}
	return competitions, nil
}

// List returns competitions matching the filter, including inactive ones.
func (s *CompetitionService) List(ctx context.Context, filter models.CompetitionFilter) ([]models.Competition, error) {
	competitions, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list competitions")
	}
	return competitions, nil
}

// Get returns one competition by id.
func (s *CompetitionService) Get(ctx context.Context, id string) (*models.Competition, error) {
	competition, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "kompetisi tidak ditemukan")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load competition")
	}
	return competition, nil
}

// Create adds a competition to the catalog.
func (s *CompetitionService) Create(ctx context.Context, req CreateCompetitionRequest, actor *models.JWTClaims) (*models.Competition, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid competition payload")
	}
	if req.IsTeam && req.MaxTeamSize < 2 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "ukuran tim minimal 2 untuk kompetisi tim")
	}
	maxTeamSize := req.MaxTeamSize
	if !req.IsTeam {
		maxTeamSize = 1
	}
	competition := &models.Competition{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Category:    req.Category,
		Description: req.Description,
		IsTeam:      req.IsTeam,
		MaxTeamSize: maxTeamSize,
		Active:      req.Active,
	}
	if err := s.repo.Create(ctx, competition); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create competition")
	}
	s.invalidateCatalog(ctx)
	return competition, nil
}

// Update mutates a competition and refreshes the public catalog.
func (s *CompetitionService) Update(ctx context.Context, id string, req UpdateCompetitionRequest, actor *models.JWTClaims) (*models.Competition, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}
	competition, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "kompetisi tidak ditemukan")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load competition")
	}
	if req.Title != nil {
		competition.Title = *req.Title
	}
	if req.Category != nil {
		competition.Category = *req.Category
	}
	if req.Description != nil {
		competition.Description = *req.Description
	}
	if req.MaxTeamSize != nil {
		if competition.IsTeam && *req.MaxTeamSize < 2 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "ukuran tim minimal 2 untuk kompetisi tim")
		}
		competition.MaxTeamSize = *req.MaxTeamSize
	}
	if req.Active != nil {
		competition.Active = *req.Active
	}
	if err := s.repo.Update(ctx, competition); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update competition")
	}
	s.invalidateCatalog(ctx)
	return competition, nil
}

// Delete removes a competition from the catalog.
func (s *CompetitionService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete competition")
	}
	s.invalidateCatalog(ctx)
	return nil
}

func (s *CompetitionService) requireAdmin(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return appErrors.ErrForbidden
	}
	return nil
}

func (s *CompetitionService) invalidateCatalog(ctx context.Context) {
	if s.cache != nil {
		s.cache.Delete(ctx, catalogCacheKey)
	}
}
