package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cendekia-fest/kompetisi-api/internal/models"
	appErrors "github.com/cendekia-fest/kompetisi-api/pkg/errors"
)

type pricingStore interface {
	Find(ctx context.Context, competitionID, batchID string, level models.EducationLevel) (*models.PricingEntry, error)
	List(ctx context.Context, filter models.PricingFilter) ([]models.PricingEntry, error)
	Upsert(ctx context.Context, entry *models.PricingEntry) error
	Delete(ctx context.Context, id string) error
}

type pricingUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type pricingLeaderReader interface {
	FindLeader(ctx context.Context, registrationID string) (*models.TeamMember, error)
	ListByRegistration(ctx context.Context, registrationID string) ([]models.TeamMember, error)
}

// UpsertPricingRequest creates or replaces one price point.
type UpsertPricingRequest struct {
	CompetitionID string                `json:"competition_id" validate:"required"`
	BatchID       string                `json:"batch_id" validate:"required"`
	Level         models.EducationLevel `json:"level" validate:"required"`
	Amount        int64                 `json:"amount" validate:"required,gt=0"`
}

// PricingService resolves registration fees and manages the price matrix.
// A fee is keyed by (competition, batch, education level); a missing entry is
// a hard configuration error, never a free or fallback price.
type PricingService struct {
	repo      pricingStore
	users     pricingUserReader
	leaders   pricingLeaderReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPricingService constructs PricingService.
func NewPricingService(repo pricingStore, users pricingUserReader, leaders pricingLeaderReader, validate *validator.Validate, logger *zap.Logger) *PricingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PricingService{repo: repo, users: users, leaders: leaders, validator: validate, logger: logger}
}

// Resolve determines the fee for a registration. Individual registrations
// price by the owner's grade, team registrations by the leader's grade.
func (s *PricingService) Resolve(ctx context.Context, reg *models.Registration) (*models.PricingEntry, models.EducationLevel, error) {
	level, err := s.resolveLevel(ctx, reg)
	if err != nil {
		return nil, "", err
	}
	entry, err := s.repo.Find(ctx, reg.CompetitionID, reg.BatchID, level)
	if err != nil {
		if err == sql.ErrNoRows {
			s.logger.Warn("price not configured",
				zap.String("competition_id", reg.CompetitionID),
				zap.String("batch_id", reg.BatchID),
				zap.String("level", string(level)))
			return nil, "", appErrors.ErrPriceNotConfigured
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load price entry")
	}
	return entry, level, nil
}

func (s *PricingService) resolveLevel(ctx context.Context, reg *models.Registration) (models.EducationLevel, error) {
	if reg.IsTeam {
		leader, err := s.findLeader(ctx, reg.ID)
		if err != nil {
			return "", err
		}
		level, ok := models.LevelForGrade(leader.Grade)
		if !ok {
			return "", appErrors.ErrInvalidGrade
		}
		return level, nil
	}
	user, err := s.users.FindByID(ctx, reg.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", appErrors.Clone(appErrors.ErrNotFound, "pengguna tidak ditemukan")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Grade == nil || *user.Grade == "" {
		return "", appErrors.ErrEducationLevelNotSet
	}
	level, ok := models.LevelForGrade(*user.Grade)
	if !ok {
		return "", appErrors.ErrInvalidGrade
	}
	return level, nil
}

// findLeader fetches the leader row; a roster with members but no leader row
// falls back to the first member so the fee still resolves.
func (s *PricingService) findLeader(ctx context.Context, registrationID string) (*models.TeamMember, error) {
	leader, err := s.leaders.FindLeader(ctx, registrationID)
	if err == nil {
		return leader, nil
	}
	if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load team leader")
	}
	members, err := s.leaders.ListByRegistration(ctx, registrationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load team members")
	}
	if len(members) == 0 {
		return nil, appErrors.ErrTeamDataIncomplete
	}
	s.logger.Warn("team roster has no leader row, using first member",
		zap.String("registration_id", registrationID),
		zap.String("member_id", members[0].ID))
	return &members[0], nil
}

// List returns price entries matching the filter.
func (s *PricingService) List(ctx context.Context, filter models.PricingFilter, actor *models.JWTClaims) ([]models.PricingEntry, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list price entries")
	}
	return entries, nil
}

// Upsert creates or replaces the price point for one (competition, batch,
// level) key.
func (s *PricingService) Upsert(ctx context.Context, req UpsertPricingRequest, actor *models.JWTClaims) (*models.PricingEntry, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid price payload")
	}
	if !req.Level.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "jenjang pendidikan tidak dikenal")
	}
	entry := &models.PricingEntry{
		ID:            uuid.NewString(),
		CompetitionID: req.CompetitionID,
		BatchID:       req.BatchID,
		Level:         req.Level,
		Amount:        req.Amount,
	}
	if err := s.repo.Upsert(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save price entry")
	}
	return entry, nil
}

// Delete removes one price entry.
func (s *PricingService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return appErrors.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete price entry")
	}
	return nil
}
