package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cendekia-fest/kompetisi-api/internal/dto"
	"github.com/cendekia-fest/kompetisi-api/internal/models"
	"github.com/cendekia-fest/kompetisi-api/internal/repository"
	appErrors "github.com/cendekia-fest/kompetisi-api/pkg/errors"
)

type mockRegistrationStore struct {
	regs          map[string]models.Registration
	active        bool
	deleted       []string
	swept         int64
	failCreate    error
	failAttach    error
	statusUpdated []string
	lastStatus    models.RegistrationStatus
}

func (m *mockRegistrationStore) Create(ctx context.Context, reg *models.Registration) error {
	if m.failCreate != nil {
		return m.failCreate
	}
	if m.regs == nil {
		m.regs = make(map[string]models.Registration)
	}
	m.regs[reg.ID] = *reg
	return nil
}

func (m *mockRegistrationStore) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	if r, ok := m.regs[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRegistrationStore) FindDetailByID(ctx context.Context, id string) (*models.RegistrationDetail, error) {
	if r, ok := m.regs[id]; ok {
		return &models.RegistrationDetail{Registration: r}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRegistrationStore) ListByUser(ctx context.Context, userID string, now time.Time) ([]models.RegistrationDetail, error) {
	var list []models.RegistrationDetail
	for _, r := range m.regs {
		if r.UserID == userID && !r.Expired(now) {
			list = append(list, models.RegistrationDetail{Registration: r})
		}
	}
	return list, nil
}

func (m *mockRegistrationStore) HasActiveClaim(ctx context.Context, userID string) (bool, error) {
	return m.active, nil
}

func (m *mockRegistrationStore) FindProvisionalByUserAndCompetition(ctx context.Context, userID, competitionID string) (*models.Registration, error) {
	for _, r := range m.regs {
		if r.UserID == userID && r.CompetitionID == competitionID && r.IsProvisional() {
			return &r, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockRegistrationStore) AttachPaymentProof(ctx context.Context, id, filePath string, submittedAt time.Time) error {
	if m.failAttach != nil {
		return m.failAttach
	}
	r := m.regs[id]
	r.PaymentProof = &filePath
	r.PaymentSubmittedAt = &submittedAt
	r.ExpiresAt = nil
	m.regs[id] = r
	return nil
}

func (m *mockRegistrationStore) ResetForReupload(ctx context.Context, id, filePath string, submittedAt time.Time) error {
	r := m.regs[id]
	r.PaymentProof = &filePath
	r.PaymentSubmittedAt = &submittedAt
	r.Status = models.RegistrationStatusPending
	r.AdminNotes = nil
	m.regs[id] = r
	return nil
}

func (m *mockRegistrationStore) UpdateStatusBulk(ctx context.Context, ids []string, status models.RegistrationStatus, notes *string) (int64, error) {
	m.statusUpdated = append(m.statusUpdated, ids...)
	m.lastStatus = status
	return int64(len(ids)), nil
}

func (m *mockRegistrationStore) Delete(ctx context.Context, id string) error {
	delete(m.regs, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockRegistrationStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return m.swept, nil
}

func (m *mockRegistrationStore) List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, int, error) {
	return nil, 0, nil
}

type mockRegCompetitionReader struct {
	competitions map[string]*models.Competition
}

func (m *mockRegCompetitionReader) FindByID(ctx context.Context, id string) (*models.Competition, error) {
	if c, ok := m.competitions[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type mockBatchReader struct{}

func (m *mockBatchReader) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	if id == "missing" {
		return nil, sql.ErrNoRows
	}
	return &models.Batch{ID: id, Name: "Gelombang 1"}, nil
}

type mockSettingsReader struct {
	closed  bool
	batchID string
}

func (m *mockSettingsReader) Get(ctx context.Context) (*models.RegistrationSettings, error) {
	batchID := m.batchID
	if batchID == "" {
		batchID = "batch-1"
	}
	return &models.RegistrationSettings{ID: 1, RegistrationClosed: m.closed, CurrentBatchID: batchID}, nil
}

type mockProofStorage struct {
	saved    []string
	deleted  []string
	failSave bool
}

func (m *mockProofStorage) SaveStream(filename string, r io.Reader) (string, error) {
	if m.failSave {
		return "", errors.New("disk full")
	}
	m.saved = append(m.saved, filename)
	return filename, nil
}

func (m *mockProofStorage) Open(filename string) (*os.File, error) {
	return nil, errors.New("not supported in mock")
}

func (m *mockProofStorage) Delete(filename string) error {
	m.deleted = append(m.deleted, filename)
	return nil
}

type mockAudit struct {
	logs []models.AuditLog
}

func (m *mockAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

func participantClaims(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleParticipant}
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func newTestRegistrationService(repo *mockRegistrationStore, storage *mockProofStorage) (*RegistrationService, *mockAudit) {
	audit := &mockAudit{}
	competitions := &mockRegCompetitionReader{competitions: map[string]*models.Competition{
		"comp-1":    {ID: "comp-1", Title: "Olimpiade Matematika", Active: true},
		"comp-team": {ID: "comp-team", Title: "LCC", IsTeam: true, MaxTeamSize: 3, Active: true},
	}}
	svc := NewRegistrationService(repo, competitions, &mockBatchReader{}, &mockSettingsReader{}, storage, audit, validator.New(), zap.NewNop(), RegistrationServiceConfig{})
	return svc, audit
}

func jpegUpload(size int) ProofUpload {
	payload := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x01}, size)...)
	return ProofUpload{
		Filename: "bukti.jpg",
		Size:     int64(len(payload)),
		Content:  bytes.NewReader(payload),
	}
}

func TestRegistrationServiceRequestCreatesHold(t *testing.T) {
	repo := &mockRegistrationStore{}
	svc, audit := newTestRegistrationService(repo, &mockProofStorage{})

	before := time.Now().UTC()
	reg, err := svc.Request(context.Background(), dto.CreateRegistrationRequest{CompetitionID: "comp-1"}, participantClaims("user-1"))
	require.NoError(t, err)
	require.NotNil(t, reg.ExpiresAt)
	assert.Equal(t, models.RegistrationStatusPending, reg.Status)
	assert.Nil(t, reg.PaymentProof)
	assert.WithinDuration(t, before.Add(48*time.Hour), *reg.ExpiresAt, 5*time.Second)
	assert.False(t, reg.IsTeam)
	assert.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionRegistrationCreate, audit.logs[0].Action)
}

func TestRegistrationServiceRequestDerivesTeamFlag(t *testing.T) {
	repo := &mockRegistrationStore{}
	svc, _ := newTestRegistrationService(repo, &mockProofStorage{})

	reg, err := svc.Request(context.Background(), dto.CreateRegistrationRequest{CompetitionID: "comp-team"}, participantClaims("user-1"))
	require.NoError(t, err)
	assert.True(t, reg.IsTeam)
	assert.False(t, reg.TeamDataComplete)
}

func TestRegistrationServiceRequestClosed(t *testing.T) {
	repo := &mockRegistrationStore{}
	audit := &mockAudit{}
	competitions := &mockRegCompetitionReader{competitions: map[string]*models.Competition{"comp-1": {ID: "comp-1", Active: true}}}
	svc := NewRegistrationService(repo, competitions, &mockBatchReader{}, &mockSettingsReader{closed: true}, &mockProofStorage{}, audit, validator.New(), zap.NewNop(), RegistrationServiceConfig{})

	_, err := svc.Request(context.Background(), dto.CreateRegistrationRequest{CompetitionID: "comp-1"}, participantClaims("user-1"))
	require.Error(t, err)
	assert.Equal(t, "REGISTRATION_CLOSED", appErrors.FromError(err).Code)
}

func TestRegistrationServiceRequestActiveClaim(t *testing.T) {
	repo := &mockRegistrationStore{active: true}
	svc, _ := newTestRegistrationService(repo, &mockProofStorage{})

	_, err := svc.Request(context.Background(), dto.CreateRegistrationRequest{CompetitionID: "comp-1"}, participantClaims("user-1"))
	require.Error(t, err)
	assert.Equal(t, "ALREADY_HAS_ACTIVE_CLAIM", appErrors.FromError(err).Code)
}

func TestRegistrationServiceRequestIdempotentContinue(t *testing.T) {
	future := time.Now().UTC().Add(24 * time.Hour)
	repo := &mockRegistrationStore{regs: map[string]models.Registration{
		"reg-1": {ID: "reg-1", UserID: "user-1", CompetitionID: "comp-1", BatchID: "batch-1", Status: models.RegistrationStatusPending, ExpiresAt: &future},
	}}
	svc, _ := newTestRegistrationService(repo, &mockProofStorage{})

	reg, err := svc.Request(context.Background(), dto.CreateRegistrationRequest{CompetitionID: "comp-1"}, participantClaims("user-1"))
	require.NoError(t, err)
	assert.Equal(t, "reg-1", reg.ID)
	assert.Equal(t, future.Unix(), reg.ExpiresAt.Unix())
	assert.Empty(t, repo.deleted)
}

func TestRegistrationServiceRequestReplacesExpiredClaim(t *testing.T) {
	past := time.Now().UTC().Add(-time.Hour)
	repo := &mockRegistrationStore{regs: map[string]models.Registration{
		"reg-old": {ID: "reg-old", UserID: "user-1", CompetitionID: "comp-1", BatchID: "batch-1", Status: models.RegistrationStatusPending, ExpiresAt: &past},
	}}
	svc, _ := newTestRegistrationService(repo, &mockProofStorage{})

	reg, err := svc.Request(context.Background(), dto.CreateRegistrationRequest{CompetitionID: "comp-1"}, participantClaims("user-1"))
	require.NoError(t, err)
	assert.NotEqual(t, "reg-old", reg.ID)
	assert.Contains(t, repo.deleted, "reg-old")
	require.NotNil(t, reg.ExpiresAt)
	assert.True(t, reg.ExpiresAt.After(time.Now().UTC()))
}

func TestRegistrationServiceRequestUniqueViolationBackstop(t *testing.T) {
	repo := &mockRegistrationStore{failCreate: repository.ErrActiveClaimExists}
	svc, _ := newTestRegistrationService(repo, &mockProofStorage{})

	_, err := svc.Request(context.Background(), dto.CreateRegistrationRequest{CompetitionID: "comp-1"}, participantClaims("user-1"))
	require.Error(t, err)
	assert.Equal(t, "ALREADY_HAS_ACTIVE_CLAIM", appErrors.FromError(err).Code)
}

func TestRegistrationServiceUploadProof(t *testing.T) {
	future := time.Now().UTC().Add(24 * time.Hour)
	repo := &mockRegistrationStore{regs: map[string]models.Registration{
		"reg-1": {ID: "reg-1", UserID: "user-1", CompetitionID: "comp-1", Status: models.RegistrationStatusPending, ExpiresAt: &future},
	}}
	storage := &mockProofStorage{}
	svc, audit := newTestRegistrationService(repo, storage)

	reg, err := svc.UploadProof(context.Background(), "reg-1", jpegUpload(64), participantClaims("user-1"))
	require.NoError(t, err)
	require.NotNil(t, reg.PaymentProof)
	assert.Nil(t, reg.ExpiresAt)
	assert.Len(t, storage.saved, 1)
	assert.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionProofUpload, audit.logs[0].Action)
}

func TestRegistrationServiceUploadProofTeamIncomplete(t *testing.T) {
	repo := &mockRegistrationStore{regs: map[string]models.Registration{
		"reg-1": {ID: "reg-1", UserID: "user-1", Status: models.RegistrationStatusPending, IsTeam: true},
	}}
	svc, _ := newTestRegistrationService(repo, &mockProofStorage{})

	_, err := svc.UploadProof(context.Background(), "reg-1", jpegUpload(64), participantClaims("user-1"))
	require.Error(t, err)
	assert.Equal(t, "TEAM_DATA_INCOMPLETE", appErrors.FromError(err).Code)
}

func TestRegistrationServiceUploadProofTwiceRejected(t *testing.T) {
	proof := "proof_1.jpg"
	repo := &mockRegistrationStore{regs: map[string]models.Registration{
		"reg-1": {ID: "reg-1", UserID: "user-1", Status: models.RegistrationStatusPending, PaymentProof: &proof},
	}}
	svc, _ := newTestRegistrationService(repo, &mockProofStorage{})

	_, err := svc.UploadProof(context.Background(), "reg-1", jpegUpload(64), participantClaims("user-1"))
	require.Error(t, err)
	assert.Equal(t, "INVALID_STATUS", appErrors.FromError(err).Code)
}

func TestRegistrationServiceUploadProofTooLarge(t *testing.T) {
	repo := &mockRegistrationStore{regs: map[string]models.Registration{
		"reg-1": {ID: "reg-1", UserID: "user-1", Status: models.RegistrationStatusPending},
	}}
	svc, _ := newTestRegistrationService(repo, &mockProofStorage{})

	upload := jpegUpload(64)
	upload.Size = 6 * 1024 * 1024
	_, err := svc.UploadProof(context.Background(), "reg-1", upload, participantClaims("user-1"))
	require.Error(t, err)
	assert.Equal(t, "FILE_TOO_LARGE", appErrors.FromError(err).Code)
}

func TestRegistrationServiceUploadProofBadType(t *testing.T) {
	repo := &mockRegistrationStore{regs: map[string]models.Registration{
		"reg-1": {ID: "reg-1", UserID: "user-1", Status: models.RegistrationStatusPending},
	}}
	svc, _ := newTestRegistrationService(repo, &mockProofStorage{})

	payload := []byte("%PDF-1.4 not an image")
	upload := ProofUpload{Filename: "bukti.pdf", Size: int64(len(payload)), Content: bytes.NewReader(payload)}
	_, err := svc.UploadProof(context.Background(), "reg-1", upload, participantClaims("user-1"))
	require.Error(t, err)
	assert.Equal(t, "UNSUPPORTED_FILE_TYPE", appErrors.FromError(err).Code)
}

func TestRegistrationServiceUploadProofSniffsContentNotName(t *testing.T) {
	repo := &mockRegistrationStore{regs: map[string]models.Registration{
		"reg-1": {ID: "reg-1", UserID: "user-1", Status: models.RegistrationStatusPending},
	}}
	storage := &mockProofStorage{}
	svc, _ := newTestRegistrationService(repo, storage)

	// PDF bytes disguised as an image: the .jpg name must not be trusted.
	payload := []byte("%PDF-1.7 disguised payload")
	upload := ProofUpload{Filename: "bukti.jpg", Size: int64(len(payload)), Content: bytes.NewReader(payload)}
	_, err := svc.UploadProof(context.Background(), "reg-1", upload, participantClaims("user-1"))
	require.Error(t, err)
	assert.Equal(t, "UNSUPPORTED_FILE_TYPE", appErrors.FromError(err).Code)
	assert.Empty(t, storage.saved)
}

func TestRegistrationServiceUploadProofCompensatesStorage(t *testing.T) {
	repo := &mockRegistrationStore{
		regs: map[string]models.Registration{
			"reg-1": {ID: "reg-1", UserID: "user-1", Status: models.RegistrationStatusPending},
		},
		failAttach: errors.New("db down"),
	}
	storage := &mockProofStorage{}
	svc, _ := newTestRegistrationService(repo, storage)

	_, err := svc.UploadProof(context.Background(), "reg-1", jpegUpload(64), participantClaims("user-1"))
	require.Error(t, err)
	require.Len(t, storage.saved, 1)
	assert.Equal(t, storage.saved, storage.deleted)
}

func TestRegistrationServiceUploadProofForbiddenForOtherUser(t *testing.T) {
	repo := &mockRegistrationStore{regs: map[string]models.Registration{
		"reg-1": {ID: "reg-1", UserID: "user-1", Status: models.RegistrationStatusPending},
	}}
	svc, _ := newTestRegistrationService(repo, &mockProofStorage{})

	_, err := svc.UploadProof(context.Background(), "reg-1", jpegUpload(64), participantClaims("user-2"))
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", appErrors.FromError(err).Code)
}

func TestRegistrationServiceReuploadProof(t *testing.T) {
	oldProof := "proof_old.jpg"
	notes := "foto buram"
	repo := &mockRegistrationStore{regs: map[string]models.Registration{
		"reg-1": {ID: "reg-1", UserID: "user-1", Status: models.RegistrationStatusRejected, PaymentProof: &oldProof, AdminNotes: &notes},
	}}
	storage := &mockProofStorage{}
	svc, _ := newTestRegistrationService(repo, storage)

	reg, err := svc.ReuploadProof(context.Background(), "reg-1", jpegUpload(64), participantClaims("user-1"))
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusPending, reg.Status)
	assert.Nil(t, reg.AdminNotes)
	assert.NotEqual(t, oldProof, *reg.PaymentProof)
	assert.Contains(t, storage.deleted, oldProof)
}

func TestRegistrationServiceReuploadRequiresRejected(t *testing.T) {
	repo := &mockRegistrationStore{regs: map[string]models.Registration{
		"reg-1": {ID: "reg-1", UserID: "user-1", Status: models.RegistrationStatusPending},
	}}
	svc, _ := newTestRegistrationService(repo, &mockProofStorage{})

	_, err := svc.ReuploadProof(context.Background(), "reg-1", jpegUpload(64), participantClaims("user-1"))
	require.Error(t, err)
	assert.Equal(t, "NOT_REJECTED", appErrors.FromError(err).Code)
}

func TestRegistrationServiceCancelProvisional(t *testing.T) {
	future := time.Now().UTC().Add(time.Hour)
	repo := &mockRegistrationStore{regs: map[string]models.Registration{
		"reg-1": {ID: "reg-1", UserID: "user-1", Status: models.RegistrationStatusPending, ExpiresAt: &future},
	}}
	svc, audit := newTestRegistrationService(repo, &mockProofStorage{})

	require.NoError(t, svc.Cancel(context.Background(), "reg-1", participantClaims("user-1")))
	assert.Contains(t, repo.deleted, "reg-1")
	assert.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionRegistrationCancel, audit.logs[0].Action)
}

func TestRegistrationServiceCancelAfterPaymentRejected(t *testing.T) {
	proof := "proof_1.jpg"
	repo := &mockRegistrationStore{regs: map[string]models.Registration{
		"reg-1": {ID: "reg-1", UserID: "user-1", Status: models.RegistrationStatusPending, PaymentProof: &proof},
	}}
	svc, _ := newTestRegistrationService(repo, &mockProofStorage{})

	err := svc.Cancel(context.Background(), "reg-1", participantClaims("user-1"))
	require.Error(t, err)
	assert.Equal(t, "CANNOT_CANCEL_AFTER_PAYMENT", appErrors.FromError(err).Code)
}

func TestRegistrationServiceSetStatusBulk(t *testing.T) {
	repo := &mockRegistrationStore{}
	svc, _ := newTestRegistrationService(repo, &mockProofStorage{})

	res, err := svc.SetStatus(context.Background(), dto.UpdateStatusRequest{
		IDs:    []string{"reg-1", "reg-2"},
		Status: models.RegistrationStatusApproved,
	}, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Updated)
	assert.Equal(t, models.RegistrationStatusApproved, repo.lastStatus)
}

func TestRegistrationServiceSetStatusRequiresAdmin(t *testing.T) {
	repo := &mockRegistrationStore{}
	svc, _ := newTestRegistrationService(repo, &mockProofStorage{})

	_, err := svc.SetStatus(context.Background(), dto.UpdateStatusRequest{
		IDs:    []string{"reg-1"},
		Status: models.RegistrationStatusApproved,
	}, participantClaims("user-1"))
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", appErrors.FromError(err).Code)
}

func TestRegistrationServiceSetStatusRejectsUnknown(t *testing.T) {
	repo := &mockRegistrationStore{}
	svc, _ := newTestRegistrationService(repo, &mockProofStorage{})

	_, err := svc.SetStatus(context.Background(), dto.UpdateStatusRequest{
		IDs:    []string{"reg-1"},
		Status: models.RegistrationStatus("WAITLISTED"),
	}, adminClaims())
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", appErrors.FromError(err).Code)
}

func TestRegistrationServiceGetHidesExpired(t *testing.T) {
	past := time.Now().UTC().Add(-time.Hour)
	repo := &mockRegistrationStore{regs: map[string]models.Registration{
		"reg-1": {ID: "reg-1", UserID: "user-1", Status: models.RegistrationStatusPending, ExpiresAt: &past},
	}}
	svc, _ := newTestRegistrationService(repo, &mockProofStorage{})

	_, err := svc.Get(context.Background(), "reg-1", participantClaims("user-1"))
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", appErrors.FromError(err).Code)
	assert.Contains(t, repo.deleted, "reg-1")
}

func TestRegistrationServiceListMineFiltersExpired(t *testing.T) {
	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)
	repo := &mockRegistrationStore{regs: map[string]models.Registration{
		"reg-live":    {ID: "reg-live", UserID: "user-1", Status: models.RegistrationStatusPending, ExpiresAt: &future},
		"reg-expired": {ID: "reg-expired", UserID: "user-1", Status: models.RegistrationStatusPending, ExpiresAt: &past},
	}}
	svc, _ := newTestRegistrationService(repo, &mockProofStorage{})

	regs, err := svc.ListMine(context.Background(), participantClaims("user-1"))
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, "reg-live", regs[0].ID)
}
