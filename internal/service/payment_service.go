package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cendekia-fest/kompetisi-api/internal/dto"
	"github.com/cendekia-fest/kompetisi-api/internal/models"
	appErrors "github.com/cendekia-fest/kompetisi-api/pkg/errors"
	"github.com/cendekia-fest/kompetisi-api/pkg/export"
)

type registrationDetailReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.RegistrationDetail, error)
}

type rosterLister interface {
	ListByRegistration(ctx context.Context, registrationID string) ([]models.TeamMember, error)
}

type priceResolver interface {
	Resolve(ctx context.Context, reg *models.Registration) (*models.PricingEntry, models.EducationLevel, error)
}

type detailsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string)
}

type receiptRenderer interface {
	Render(data export.ReceiptData) ([]byte, error)
}

type paymentUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// PaymentDetailsCacheKey is the cache key for one registration's payment
// summary. Roster re-submission must invalidate it, the leader's grade can
// change the resolved fee.
func PaymentDetailsCacheKey(registrationID string) string {
	return "payment_details:" + registrationID
}

// PaymentService assembles payment summaries and approved-registration
// receipts on top of the pricing resolver.
type PaymentService struct {
	registrations registrationDetailReader
	roster        rosterLister
	pricing       priceResolver
	users         paymentUserReader
	cache         detailsCache
	renderer      receiptRenderer
	cacheTTL      time.Duration
	logger        *zap.Logger
}

// NewPaymentService constructs PaymentService.
func NewPaymentService(registrations registrationDetailReader, roster rosterLister, pricing priceResolver, users paymentUserReader, cache detailsCache, renderer receiptRenderer, cacheTTL time.Duration, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &PaymentService{
		registrations: registrations,
		roster:        roster,
		pricing:       pricing,
		users:         users,
		cache:         cache,
		renderer:      renderer,
		cacheTTL:      cacheTTL,
		logger:        logger,
	}
}

// Details returns the payment summary for a registration: the resolved fee,
// the education level it was priced at and, for teams, the roster.
func (s *PaymentService) Details(ctx context.Context, id string, actor *models.JWTClaims) (*dto.PaymentDetails, error) {
	detail, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		var cached dto.PaymentDetails
		if err := s.cache.Get(ctx, PaymentDetailsCacheKey(id), &cached); err == nil {
			return &cached, nil
		}
	}
	details, err := s.build(ctx, detail)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, PaymentDetailsCacheKey(id), details, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache payment details", zap.String("registration_id", id), zap.Error(err))
		}
	}
	return details, nil
}

// Receipt renders the PDF receipt of an approved registration.
func (s *PaymentService) Receipt(ctx context.Context, id string, actor *models.JWTClaims) ([]byte, error) {
	detail, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if detail.Status != models.RegistrationStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "bukti pendaftaran hanya tersedia untuk pendaftaran yang disetujui")
	}
	entry, level, err := s.pricing.Resolve(ctx, &detail.Registration)
	if err != nil {
		return nil, err
	}
	data := export.ReceiptData{
		RegistrationID:   detail.ID,
		CompetitionTitle: detail.CompetitionTitle,
		CategoryLabel:    level.Label(),
		BatchName:        detail.BatchName,
		ParticipantName:  detail.ParticipantName,
		ParticipantEmail: detail.ParticipantEmail,
		Amount:           entry.Amount,
		IssuedAt:         time.Now().UTC(),
	}
	if detail.IsTeam {
		members, err := s.roster.ListByRegistration(ctx, detail.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load team members")
		}
		for _, m := range members {
			data.TeamMembers = append(data.TeamMembers, export.ReceiptTeamMember{
				Name:   m.Name,
				Grade:  m.Grade,
				Role:   string(m.Role),
				School: m.School,
			})
			if m.Role == models.TeamRoleLeader {
				data.School = m.School
			}
		}
	} else if user, err := s.users.FindByID(ctx, detail.UserID); err == nil && user.School != nil {
		data.School = *user.School
	}
	pdf, err := s.renderer.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return pdf, nil
}

func (s *PaymentService) load(ctx context.Context, id string, actor *models.JWTClaims) (*models.RegistrationDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	detail, err := s.registrations.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "pendaftaran tidak ditemukan")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	if actor.Role != models.RoleAdmin && detail.UserID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return detail, nil
}

func (s *PaymentService) build(ctx context.Context, detail *models.RegistrationDetail) (*dto.PaymentDetails, error) {
	entry, level, err := s.pricing.Resolve(ctx, &detail.Registration)
	if err != nil {
		return nil, err
	}
	details := &dto.PaymentDetails{
		RegistrationID:   detail.ID,
		CompetitionTitle: detail.CompetitionTitle,
		BatchName:        detail.BatchName,
		Level:            level,
		CategoryLabel:    fmt.Sprintf("%s - %s", detail.CompetitionTitle, level.Label()),
		Amount:           entry.Amount,
		IsTeam:           detail.IsTeam,
		ExpiresAt:        detail.ExpiresAt,
	}
	if detail.IsTeam {
		members, err := s.roster.ListByRegistration(ctx, detail.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load team members")
		}
		details.TeamMembers = members
	}
	return details, nil
}
