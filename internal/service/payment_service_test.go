package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cendekia-fest/kompetisi-api/internal/models"
	appErrors "github.com/cendekia-fest/kompetisi-api/pkg/errors"
	"github.com/cendekia-fest/kompetisi-api/pkg/export"
)

type mockPriceResolver struct {
	entry *models.PricingEntry
	level models.EducationLevel
	err   error
	calls int
}

func (m *mockPriceResolver) Resolve(ctx context.Context, reg *models.Registration) (*models.PricingEntry, models.EducationLevel, error) {
	m.calls++
	if m.err != nil {
		return nil, "", m.err
	}
	return m.entry, m.level, nil
}

type mockDetailsCache struct {
	store   map[string][]byte
	deleted []string
}

func (m *mockDetailsCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.store[key]
	if !ok {
		return appErrors.ErrNotFound
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockDetailsCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.store == nil {
		m.store = make(map[string][]byte)
	}
	m.store[key] = raw
	return nil
}

func (m *mockDetailsCache) Delete(ctx context.Context, keys ...string) {
	m.deleted = append(m.deleted, keys...)
	for _, k := range keys {
		delete(m.store, k)
	}
}

type mockReceiptRenderer struct {
	last export.ReceiptData
}

func (m *mockReceiptRenderer) Render(data export.ReceiptData) ([]byte, error) {
	m.last = data
	return []byte("%PDF-1.4 receipt"), nil
}

func newTestPaymentService(repo *mockRegistrationStore, pricing *mockPriceResolver) (*PaymentService, *mockTeamMemberStore, *mockDetailsCache, *mockReceiptRenderer) {
	roster := &mockTeamMemberStore{}
	cache := &mockDetailsCache{}
	renderer := &mockReceiptRenderer{}
	users := &mockPricingUserReader{users: map[string]*models.User{
		"user-1": {ID: "user-1", School: strPtr("SMAN 1")},
	}}
	svc := NewPaymentService(repo, roster, pricing, users, cache, renderer, time.Minute, nil)
	return svc, roster, cache, renderer
}

func smaPricing() *mockPriceResolver {
	return &mockPriceResolver{
		entry: &models.PricingEntry{ID: "price-1", Amount: 150000},
		level: models.LevelSMA,
	}
}

func TestPaymentServiceDetails(t *testing.T) {
	future := time.Now().UTC().Add(24 * time.Hour)
	repo := &mockRegistrationStore{regs: map[string]models.Registration{
		"reg-1": {
			ID: "reg-1", UserID: "user-1", CompetitionID: "comp-1", BatchID: "batch-1",
			Status: models.RegistrationStatusPending, ExpiresAt: &future,
		},
	}}
	pricing := smaPricing()
	svc, _, _, _ := newTestPaymentService(repo, pricing)

	details, err := svc.Details(context.Background(), "reg-1", participantClaims("user-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(150000), details.Amount)
	assert.Equal(t, models.LevelSMA, details.Level)
	assert.NotNil(t, details.ExpiresAt)
	assert.Equal(t, 1, pricing.calls)
}

func TestPaymentServiceDetailsCached(t *testing.T) {
	repo := &mockRegistrationStore{regs: map[string]models.Registration{
		"reg-1": {ID: "reg-1", UserID: "user-1", Status: models.RegistrationStatusPending},
	}}
	pricing := smaPricing()
	svc, _, cache, _ := newTestPaymentService(repo, pricing)

	_, err := svc.Details(context.Background(), "reg-1", participantClaims("user-1"))
	require.NoError(t, err)
	assert.Contains(t, cache.store, PaymentDetailsCacheKey("reg-1"))

	details, err := svc.Details(context.Background(), "reg-1", participantClaims("user-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(150000), details.Amount)
	assert.Equal(t, 1, pricing.calls)
}

func TestPaymentServiceDetailsIncludesRoster(t *testing.T) {
	repo := &mockRegistrationStore{regs: map[string]models.Registration{
		"reg-team": {ID: "reg-team", UserID: "user-1", Status: models.RegistrationStatusPending, IsTeam: true},
	}}
	svc, roster, _, _ := newTestPaymentService(repo, smaPricing())
	roster.members = map[string][]models.TeamMember{
		"reg-team": {
			{Name: "Ketua", Role: models.TeamRoleLeader, School: "SMAN 1"},
			{Name: "Anggota", Role: models.TeamRoleMember, School: "SMAN 1"},
		},
	}

	details, err := svc.Details(context.Background(), "reg-team", participantClaims("user-1"))
	require.NoError(t, err)
	assert.True(t, details.IsTeam)
	require.Len(t, details.TeamMembers, 2)
	assert.Equal(t, models.TeamRoleLeader, details.TeamMembers[0].Role)
}

func TestPaymentServiceDetailsPropagatesPricingError(t *testing.T) {
	repo := &mockRegistrationStore{regs: map[string]models.Registration{
		"reg-1": {ID: "reg-1", UserID: "user-1", Status: models.RegistrationStatusPending},
	}}
	pricing := &mockPriceResolver{err: appErrors.ErrPriceNotConfigured}
	svc, _, cache, _ := newTestPaymentService(repo, pricing)

	_, err := svc.Details(context.Background(), "reg-1", participantClaims("user-1"))
	require.Error(t, err)
	assert.Equal(t, "PRICE_NOT_CONFIGURED", appErrors.FromError(err).Code)
	assert.NotContains(t, cache.store, PaymentDetailsCacheKey("reg-1"))
}

func TestPaymentServiceReceipt(t *testing.T) {
	repo := &mockRegistrationStore{regs: map[string]models.Registration{
		"reg-1": {ID: "reg-1", UserID: "user-1", Status: models.RegistrationStatusApproved},
	}}
	svc, _, _, renderer := newTestPaymentService(repo, smaPricing())

	pdf, err := svc.Receipt(context.Background(), "reg-1", participantClaims("user-1"))
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
	assert.Equal(t, "reg-1", renderer.last.RegistrationID)
	assert.Equal(t, int64(150000), renderer.last.Amount)
	assert.Equal(t, "SMAN 1", renderer.last.School)
	assert.WithinDuration(t, time.Now().UTC(), renderer.last.IssuedAt, time.Minute)
}

func TestPaymentServiceReceiptTeamUsesLeaderSchool(t *testing.T) {
	repo := &mockRegistrationStore{regs: map[string]models.Registration{
		"reg-team": {ID: "reg-team", UserID: "user-1", Status: models.RegistrationStatusApproved, IsTeam: true},
	}}
	svc, roster, _, renderer := newTestPaymentService(repo, smaPricing())
	roster.members = map[string][]models.TeamMember{
		"reg-team": {
			{Name: "Ketua", Role: models.TeamRoleLeader, School: "SMAN 3", Grade: "Kelas 11 (SMA)"},
			{Name: "Anggota", Role: models.TeamRoleMember, School: "SMAN 3", Grade: "Kelas 10 (SMA)"},
		},
	}

	_, err := svc.Receipt(context.Background(), "reg-team", participantClaims("user-1"))
	require.NoError(t, err)
	assert.Equal(t, "SMAN 3", renderer.last.School)
	require.Len(t, renderer.last.TeamMembers, 2)
	assert.Equal(t, "Ketua", renderer.last.TeamMembers[0].Name)
}

func TestPaymentServiceReceiptRequiresApproval(t *testing.T) {
	repo := &mockRegistrationStore{regs: map[string]models.Registration{
		"reg-1": {ID: "reg-1", UserID: "user-1", Status: models.RegistrationStatusPending},
	}}
	svc, _, _, _ := newTestPaymentService(repo, smaPricing())

	_, err := svc.Receipt(context.Background(), "reg-1", participantClaims("user-1"))
	require.Error(t, err)
	assert.Equal(t, "INVALID_STATUS", appErrors.FromError(err).Code)
}

func TestPaymentServiceForbiddenForOtherUser(t *testing.T) {
	repo := &mockRegistrationStore{regs: map[string]models.Registration{
		"reg-1": {ID: "reg-1", UserID: "user-1", Status: models.RegistrationStatusPending},
	}}
	svc, _, _, _ := newTestPaymentService(repo, smaPricing())

	_, err := svc.Details(context.Background(), "reg-1", participantClaims("user-2"))
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", appErrors.FromError(err).Code)
}
