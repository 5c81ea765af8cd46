package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/cendekia-fest/kompetisi-api/internal/dto"
	"github.com/cendekia-fest/kompetisi-api/internal/models"
	appErrors "github.com/cendekia-fest/kompetisi-api/pkg/errors"
)

type rosterRegistrationReader interface {
	FindByID(ctx context.Context, id string) (*models.Registration, error)
}

type teamMemberStore interface {
	ListByRegistration(ctx context.Context, registrationID string) ([]models.TeamMember, error)
	Replace(ctx context.Context, registrationID string, members []models.TeamMember) error
}

type rosterCacheInvalidator interface {
	Delete(ctx context.Context, keys ...string)
}

// RosterServiceConfig controls roster validation policy.
type RosterServiceConfig struct {
	// StrictSchoolMatch rejects rosters mixing schools instead of only
	// logging the mismatch.
	StrictSchoolMatch bool
}

// RosterService manages team member submission. A roster is replaced
// wholesale: the previous rows are discarded in the same transaction that
// writes the new ones, and the first submitted member is always the leader.
type RosterService struct {
	registrations rosterRegistrationReader
	competitions  competitionReader
	members       teamMemberStore
	cache         rosterCacheInvalidator
	audit         auditLogger
	validator     *validator.Validate
	logger        *zap.Logger
	cfg           RosterServiceConfig
}

// NewRosterService constructs RosterService.
func NewRosterService(registrations rosterRegistrationReader, competitions competitionReader, members teamMemberStore, cache rosterCacheInvalidator, audit auditLogger, validate *validator.Validate, logger *zap.Logger, cfg RosterServiceConfig) *RosterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{
		registrations: registrations,
		competitions:  competitions,
		members:       members,
		cache:         cache,
		audit:         audit,
		validator:     validate,
		logger:        logger,
		cfg:           cfg,
	}
}

// Submit validates and stores the complete roster of a team registration.
// The member count must equal the competition's team size exactly, every
// grade must map to a known education level and all members must share the
// leader's level.
func (s *RosterService) Submit(ctx context.Context, registrationID string, req dto.SubmitRosterRequest, actor *models.JWTClaims) ([]models.TeamMember, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster payload")
	}
	reg, err := s.registrations.FindByID(ctx, registrationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "pendaftaran tidak ditemukan")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	if actor.Role != models.RoleAdmin && reg.UserID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	if !reg.IsTeam {
		return nil, appErrors.ErrNotTeamCompetition
	}
	if reg.Status != models.RegistrationStatusPending {
		return nil, appErrors.ErrInvalidStatus
	}
	competition, err := s.competitions.FindByID(ctx, reg.CompetitionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "kompetisi tidak ditemukan")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load competition")
	}
	if len(req.Members) != competition.MaxTeamSize {
		return nil, appErrors.TeamSizeMismatch(competition.MaxTeamSize, len(req.Members))
	}

	members, err := s.buildMembers(registrationID, req.Members)
	if err != nil {
		return nil, err
	}
	if err := s.members.Replace(ctx, registrationID, members); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save team members")
	}
	if s.cache != nil {
		s.cache.Delete(ctx, PaymentDetailsCacheKey(registrationID))
	}
	s.emitAudit(ctx, actor, registrationID, len(members))
	return members, nil
}

// List returns the stored roster, leader first.
func (s *RosterService) List(ctx context.Context, registrationID string, actor *models.JWTClaims) ([]models.TeamMember, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	reg, err := s.registrations.FindByID(ctx, registrationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "pendaftaran tidak ditemukan")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	if actor.Role != models.RoleAdmin && reg.UserID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	members, err := s.members.ListByRegistration(ctx, registrationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list team members")
	}
	return members, nil
}

func (s *RosterService) buildMembers(registrationID string, inputs []dto.TeamMemberInput) ([]models.TeamMember, error) {
	var leaderLevel models.EducationLevel
	leaderSchool := ""
	members := make([]models.TeamMember, 0, len(inputs))
	for i, in := range inputs {
		level, ok := models.LevelForGrade(in.Grade)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrInvalidGrade, fmt.Sprintf("kelas/jenjang tidak dikenali: %s", in.Grade))
		}
		if i == 0 {
			leaderLevel = level
			leaderSchool = in.School
		} else if level != leaderLevel {
			return nil, appErrors.ErrTeamLevelMismatch
		}
		if i > 0 && in.School != leaderSchool {
			if s.cfg.StrictSchoolMatch {
				return nil, appErrors.ErrTeamSchoolMismatch
			}
			s.logger.Warn("roster mixes schools",
				zap.String("registration_id", registrationID),
				zap.String("leader_school", leaderSchool),
				zap.String("member_school", in.School))
		}
		birthDate, err := time.Parse("2006-01-02", in.BirthDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("tanggal lahir tidak valid: %s", in.BirthDate))
		}
		role := models.TeamRoleMember
		if i == 0 {
			role = models.TeamRoleLeader
		}
		members = append(members, models.TeamMember{
			RegistrationID:   registrationID,
			Name:             in.Name,
			Email:            in.Email,
			Phone:            in.Phone,
			School:           in.School,
			Grade:            in.Grade,
			IDDocumentType:   in.IDDocumentType,
			IDDocumentNumber: in.IDDocumentNumber,
			Address:          in.Address,
			BirthDate:        birthDate,
			Gender:           in.Gender,
			Role:             role,
		})
	}
	return members, nil
}

func (s *RosterService) emitAudit(ctx context.Context, actor *models.JWTClaims, registrationID string, size int) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionRosterSubmit,
		Resource:   "registration",
		ResourceID: &registrationID,
		NewValues:  []byte(fmt.Sprintf(`{"members":%d}`, size)),
		IPAddress:  "system",
		UserAgent:  "roster-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to create roster audit", zap.Error(err))
	}
}
