package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cendekia-fest/kompetisi-api/internal/models"
	appErrors "github.com/cendekia-fest/kompetisi-api/pkg/errors"
)

type mockPricingStore struct {
	entries map[string]models.PricingEntry
	deleted []string
}

func pricingKey(competitionID, batchID string, level models.EducationLevel) string {
	return competitionID + "|" + batchID + "|" + string(level)
}

func (m *mockPricingStore) Find(ctx context.Context, competitionID, batchID string, level models.EducationLevel) (*models.PricingEntry, error) {
	if e, ok := m.entries[pricingKey(competitionID, batchID, level)]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPricingStore) List(ctx context.Context, filter models.PricingFilter) ([]models.PricingEntry, error) {
	var list []models.PricingEntry
	for _, e := range m.entries {
		list = append(list, e)
	}
	return list, nil
}

func (m *mockPricingStore) Upsert(ctx context.Context, entry *models.PricingEntry) error {
	if m.entries == nil {
		m.entries = make(map[string]models.PricingEntry)
	}
	m.entries[pricingKey(entry.CompetitionID, entry.BatchID, entry.Level)] = *entry
	return nil
}

func (m *mockPricingStore) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockPricingUserReader struct {
	users map[string]*models.User
}

func (m *mockPricingUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

type mockLeaderReader struct {
	leaders map[string]*models.TeamMember
	members map[string][]models.TeamMember
}

func (m *mockLeaderReader) FindLeader(ctx context.Context, registrationID string) (*models.TeamMember, error) {
	if l, ok := m.leaders[registrationID]; ok {
		return l, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLeaderReader) ListByRegistration(ctx context.Context, registrationID string) ([]models.TeamMember, error) {
	return m.members[registrationID], nil
}

func strPtr(s string) *string { return &s }

func newTestPricingService() (*PricingService, *mockPricingStore, *mockPricingUserReader, *mockLeaderReader) {
	repo := &mockPricingStore{entries: map[string]models.PricingEntry{
		pricingKey("comp-1", "batch-1", models.LevelSMA): {
			ID: "price-1", CompetitionID: "comp-1", BatchID: "batch-1",
			Level: models.LevelSMA, Amount: 150000,
		},
	}}
	users := &mockPricingUserReader{users: map[string]*models.User{
		"user-1": {ID: "user-1", Grade: strPtr("Kelas 11 (SMA)")},
		"user-2": {ID: "user-2"},
		"user-3": {ID: "user-3", Grade: strPtr("Kelas Aneh")},
	}}
	leaders := &mockLeaderReader{leaders: map[string]*models.TeamMember{
		"reg-team": {RegistrationID: "reg-team", Grade: "Kelas 10 (SMA)", Role: models.TeamRoleLeader},
	}}
	return NewPricingService(repo, users, leaders, nil, nil), repo, users, leaders
}

func TestPricingServiceResolveIndividual(t *testing.T) {
	svc, _, _, _ := newTestPricingService()
	reg := &models.Registration{ID: "reg-1", UserID: "user-1", CompetitionID: "comp-1", BatchID: "batch-1"}

	entry, level, err := svc.Resolve(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, models.LevelSMA, level)
	assert.Equal(t, int64(150000), entry.Amount)
}

func TestPricingServiceResolveTeamUsesLeader(t *testing.T) {
	svc, _, _, _ := newTestPricingService()
	reg := &models.Registration{ID: "reg-team", UserID: "user-2", CompetitionID: "comp-1", BatchID: "batch-1", IsTeam: true}

	entry, level, err := svc.Resolve(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, models.LevelSMA, level)
	assert.Equal(t, "price-1", entry.ID)
}

func TestPricingServiceResolveTeamFallsBackToFirstMember(t *testing.T) {
	svc, _, _, leaders := newTestPricingService()
	// Roster rows exist but none carries the leader role.
	leaders.members = map[string][]models.TeamMember{
		"reg-orphan": {
			{ID: "member-1", RegistrationID: "reg-orphan", Grade: "Kelas 10 (SMA)", Role: models.TeamRoleMember},
			{ID: "member-2", RegistrationID: "reg-orphan", Grade: "Kelas 11 (SMA)", Role: models.TeamRoleMember},
		},
	}
	reg := &models.Registration{ID: "reg-orphan", UserID: "user-2", CompetitionID: "comp-1", BatchID: "batch-1", IsTeam: true}

	entry, level, err := svc.Resolve(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, models.LevelSMA, level)
	assert.Equal(t, "price-1", entry.ID)
}

func TestPricingServiceResolveTeamWithoutRoster(t *testing.T) {
	svc, _, _, _ := newTestPricingService()
	reg := &models.Registration{ID: "reg-empty", UserID: "user-1", CompetitionID: "comp-1", BatchID: "batch-1", IsTeam: true}

	_, _, err := svc.Resolve(context.Background(), reg)
	require.Error(t, err)
	assert.Equal(t, "TEAM_DATA_INCOMPLETE", appErrors.FromError(err).Code)
}

func TestPricingServiceResolveGradeNotSet(t *testing.T) {
	svc, _, _, _ := newTestPricingService()
	reg := &models.Registration{ID: "reg-1", UserID: "user-2", CompetitionID: "comp-1", BatchID: "batch-1"}

	_, _, err := svc.Resolve(context.Background(), reg)
	require.Error(t, err)
	assert.Equal(t, "EDUCATION_LEVEL_NOT_SET", appErrors.FromError(err).Code)
}

func TestPricingServiceResolveUnknownGrade(t *testing.T) {
	svc, _, _, _ := newTestPricingService()
	reg := &models.Registration{ID: "reg-1", UserID: "user-3", CompetitionID: "comp-1", BatchID: "batch-1"}

	_, _, err := svc.Resolve(context.Background(), reg)
	require.Error(t, err)
	assert.Equal(t, "INVALID_GRADE", appErrors.FromError(err).Code)
}

func TestPricingServiceResolvePriceNotConfigured(t *testing.T) {
	svc, _, _, _ := newTestPricingService()
	reg := &models.Registration{ID: "reg-1", UserID: "user-1", CompetitionID: "comp-other", BatchID: "batch-1"}

	_, _, err := svc.Resolve(context.Background(), reg)
	require.Error(t, err)
	assert.Equal(t, "PRICE_NOT_CONFIGURED", appErrors.FromError(err).Code)
}

func TestPricingServiceUpsert(t *testing.T) {
	svc, repo, _, _ := newTestPricingService()

	entry, err := svc.Upsert(context.Background(), UpsertPricingRequest{
		CompetitionID: "comp-1",
		BatchID:       "batch-2",
		Level:         models.LevelSMP,
		Amount:        100000,
	}, adminClaims())
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Contains(t, repo.entries, pricingKey("comp-1", "batch-2", models.LevelSMP))
}

func TestPricingServiceUpsertRejectsUnknownLevel(t *testing.T) {
	svc, _, _, _ := newTestPricingService()

	_, err := svc.Upsert(context.Background(), UpsertPricingRequest{
		CompetitionID: "comp-1",
		BatchID:       "batch-1",
		Level:         "tk",
		Amount:        100000,
	}, adminClaims())
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", appErrors.FromError(err).Code)
}

func TestPricingServiceAdminOnly(t *testing.T) {
	svc, _, _, _ := newTestPricingService()
	participant := participantClaims("user-1")

	_, err := svc.List(context.Background(), models.PricingFilter{}, participant)
	assert.Equal(t, "FORBIDDEN", appErrors.FromError(err).Code)

	_, err = svc.Upsert(context.Background(), UpsertPricingRequest{
		CompetitionID: "comp-1", BatchID: "batch-1", Level: models.LevelSMA, Amount: 1,
	}, participant)
	assert.Equal(t, "FORBIDDEN", appErrors.FromError(err).Code)

	err = svc.Delete(context.Background(), "price-1", participant)
	assert.Equal(t, "FORBIDDEN", appErrors.FromError(err).Code)
}
