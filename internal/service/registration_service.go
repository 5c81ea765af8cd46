package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cendekia-fest/kompetisi-api/internal/dto"
	"github.com/cendekia-fest/kompetisi-api/internal/models"
	"github.com/cendekia-fest/kompetisi-api/internal/repository"
	appErrors "github.com/cendekia-fest/kompetisi-api/pkg/errors"
)

type registrationStore interface {
	Create(ctx context.Context, reg *models.Registration) error
	FindByID(ctx context.Context, id string) (*models.Registration, error)
	FindDetailByID(ctx context.Context, id string) (*models.RegistrationDetail, error)
	ListByUser(ctx context.Context, userID string, now time.Time) ([]models.RegistrationDetail, error)
	HasActiveClaim(ctx context.Context, userID string) (bool, error)
	FindProvisionalByUserAndCompetition(ctx context.Context, userID, competitionID string) (*models.Registration, error)
	AttachPaymentProof(ctx context.Context, id, filePath string, submittedAt time.Time) error
	ResetForReupload(ctx context.Context, id, filePath string, submittedAt time.Time) error
	UpdateStatusBulk(ctx context.Context, ids []string, status models.RegistrationStatus, notes *string) (int64, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, int, error)
}

type competitionReader interface {
	FindByID(ctx context.Context, id string) (*models.Competition, error)
}

type batchReader interface {
	FindByID(ctx context.Context, id string) (*models.Batch, error)
}

type settingsReader interface {
	Get(ctx context.Context) (*models.RegistrationSettings, error)
}

type proofFileStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type registrationMetrics interface {
	RecordRegistrationEvent(event string)
	RecordExpiredReclaimed(count int64)
}

// ProofUpload carries payment proof metadata and stream reader. The file type
// is always determined from the content itself, never from client headers.
type ProofUpload struct {
	Filename string
	Size     int64
	Content  io.ReadSeeker
}

// RegistrationServiceConfig holds the hold window and upload limits.
type RegistrationServiceConfig struct {
	HoldDuration time.Duration
	MaxFileSize  int64
	AllowedMIMEs []string
}

// RegistrationService orchestrates the registration lifecycle: claiming a
// slot, payment proof upload, admin review and cancellation. A claim without
// proof expires after the hold window; expired claims are invisible to reads
// and reclaimed lazily.
type RegistrationService struct {
	repo         registrationStore
	competitions competitionReader
	batches      batchReader
	settings     settingsReader
	storage      proofFileStorage
	audit        auditLogger
	metrics      registrationMetrics
	validator    *validator.Validate
	logger       *zap.Logger
	cfg          RegistrationServiceConfig
	mimeSet      map[string]struct{}
}

// NewRegistrationService constructs RegistrationService.
func NewRegistrationService(repo registrationStore, competitions competitionReader, batches batchReader, settings settingsReader, storage proofFileStorage, audit auditLogger, validate *validator.Validate, logger *zap.Logger, cfg RegistrationServiceConfig) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.HoldDuration <= 0 {
		cfg.HoldDuration = 48 * time.Hour
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 5 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"image/jpeg", "image/png"}
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, m := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}
	return &RegistrationService{
		repo:         repo,
		competitions: competitions,
		batches:      batches,
		settings:     settings,
		storage:      storage,
		audit:        audit,
		validator:    validate,
		logger:       logger,
		cfg:          cfg,
		mimeSet:      mimeSet,
	}
}

// SetMetrics attaches lifecycle counters. Optional; nil disables recording.
func (s *RegistrationService) SetMetrics(m *MetricsService) {
	if m == nil {
		s.metrics = nil
		return
	}
	s.metrics = m
}

func (s *RegistrationService) recordEvent(event string) {
	if s.metrics != nil {
		s.metrics.RecordRegistrationEvent(event)
	}
}

// Request claims a slot in a competition for the current batch. When the user
// already holds an unexpired provisional claim for the same competition the
// existing claim is returned unchanged; an expired one is replaced by a fresh
// claim with a new hold window.
func (s *RegistrationService) Request(ctx context.Context, req dto.CreateRegistrationRequest, actor *models.JWTClaims) (*models.Registration, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	cfgRow, err := s.settings.Get(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration settings")
	}
	if cfgRow.RegistrationClosed {
		return nil, appErrors.ErrRegistrationClosed
	}
	competition, err := s.competitions.FindByID(ctx, req.CompetitionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "kompetisi tidak ditemukan")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load competition")
	}
	if !competition.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "kompetisi tidak ditemukan")
	}
	if _, err := s.batches.FindByID(ctx, cfgRow.CurrentBatchID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "gelombang pendaftaran tidak ditemukan")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}

	now := time.Now().UTC()
	if existing, err := s.repo.FindProvisionalByUserAndCompetition(ctx, actor.UserID, req.CompetitionID); err == nil {
		if !existing.Expired(now) {
			return existing, nil
		}
		// Expired leftover claim: reclaim and fall through to a fresh one.
		if err := s.repo.Delete(ctx, existing.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reclaim expired registration")
		}
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing registration")
	}

	active, err := s.repo.HasActiveClaim(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active registrations")
	}
	if active {
		return nil, appErrors.ErrActiveClaim
	}

	expiresAt := now.Add(s.cfg.HoldDuration)
	reg := &models.Registration{
		ID:            uuid.NewString(),
		UserID:        actor.UserID,
		CompetitionID: competition.ID,
		BatchID:       cfgRow.CurrentBatchID,
		Status:        models.RegistrationStatusPending,
		CreatedAt:     now,
		ExpiresAt:     &expiresAt,
		IsTeam:        competition.IsTeam,
	}
	if err := s.repo.Create(ctx, reg); err != nil {
		if errors.Is(err, repository.ErrActiveClaimExists) {
			return nil, appErrors.ErrActiveClaim
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create registration")
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionRegistrationCreate,
		Resource:   "registration",
		ResourceID: &reg.ID,
		NewValues:  []byte(fmt.Sprintf(`{"competition_id":"%s","batch_id":"%s","is_team":%t}`, reg.CompetitionID, reg.BatchID, reg.IsTeam)),
	})
	s.recordEvent("created")
	return reg, nil
}

// ListMine returns the actor's registrations, never including expired unpaid
// claims. Reclamation of expired rows happens opportunistically here.
func (s *RegistrationService) ListMine(ctx context.Context, actor *models.JWTClaims) ([]models.RegistrationDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	now := time.Now().UTC()
	regs, err := s.repo.ListByUser(ctx, actor.UserID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
	}
	if deleted, err := s.repo.DeleteExpired(ctx, now); err != nil {
		s.logger.Warn("failed to reclaim expired registrations", zap.Error(err))
	} else if deleted > 0 {
		s.logger.Info("reclaimed expired registrations", zap.Int64("count", deleted))
		if s.metrics != nil {
			s.metrics.RecordExpiredReclaimed(deleted)
		}
	}
	return regs, nil
}

// Get returns one registration with competition and participant context.
// Participants only see their own rows; expired unpaid claims read as absent.
func (s *RegistrationService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.RegistrationDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "pendaftaran tidak ditemukan")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	if actor.Role != models.RoleAdmin && detail.UserID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	if detail.Expired(time.Now().UTC()) {
		if err := s.repo.Delete(ctx, detail.ID); err != nil {
			s.logger.Warn("failed to reclaim expired registration", zap.String("registration_id", detail.ID), zap.Error(err))
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "pendaftaran tidak ditemukan")
	}
	return detail, nil
}

// UploadProof attaches a payment proof image and clears the hold deadline.
// If the claim is past its deadline but not yet reclaimed, the payment wins.
func (s *RegistrationService) UploadProof(ctx context.Context, id string, upload ProofUpload, actor *models.JWTClaims) (*models.Registration, error) {
	reg, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if reg.Status != models.RegistrationStatusPending || reg.HasPaymentProof() {
		return nil, appErrors.ErrInvalidStatus
	}
	if reg.IsTeam && !reg.TeamDataComplete {
		return nil, appErrors.ErrTeamDataIncomplete
	}
	path, err := s.saveProof(upload)
	if err != nil {
		return nil, err
	}
	submittedAt := time.Now().UTC()
	if err := s.repo.AttachPaymentProof(ctx, reg.ID, path, submittedAt); err != nil {
		_ = s.storage.Delete(path)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach payment proof")
	}
	reg.PaymentProof = &path
	reg.PaymentSubmittedAt = &submittedAt
	reg.ExpiresAt = nil
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionProofUpload,
		Resource:   "registration",
		ResourceID: &reg.ID,
		NewValues:  []byte(fmt.Sprintf(`{"payment_proof":"%s"}`, path)),
	})
	s.recordEvent("proof_uploaded")
	return reg, nil
}

// ReuploadProof replaces the proof of a rejected registration and resets the
// status to pending so the admin reviews it again.
func (s *RegistrationService) ReuploadProof(ctx context.Context, id string, upload ProofUpload, actor *models.JWTClaims) (*models.Registration, error) {
	reg, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if reg.Status != models.RegistrationStatusRejected {
		return nil, appErrors.ErrNotRejected
	}
	path, err := s.saveProof(upload)
	if err != nil {
		return nil, err
	}
	submittedAt := time.Now().UTC()
	if err := s.repo.ResetForReupload(ctx, reg.ID, path, submittedAt); err != nil {
		_ = s.storage.Delete(path)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace payment proof")
	}
	if reg.PaymentProof != nil && *reg.PaymentProof != path {
		if err := s.storage.Delete(*reg.PaymentProof); err != nil {
			s.logger.Warn("failed to remove replaced payment proof", zap.String("path", *reg.PaymentProof), zap.Error(err))
		}
	}
	reg.PaymentProof = &path
	reg.PaymentSubmittedAt = &submittedAt
	reg.Status = models.RegistrationStatusPending
	reg.AdminNotes = nil
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionProofReupload,
		Resource:   "registration",
		ResourceID: &reg.ID,
		NewValues:  []byte(fmt.Sprintf(`{"payment_proof":"%s"}`, path)),
	})
	s.recordEvent("proof_reuploaded")
	return reg, nil
}

// Cancel withdraws a provisional claim. Once proof has been submitted the
// registration is in admin hands and can no longer be cancelled.
func (s *RegistrationService) Cancel(ctx context.Context, id string, actor *models.JWTClaims) error {
	reg, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return err
	}
	if !reg.IsProvisional() {
		return appErrors.ErrCannotCancel
	}
	if err := s.repo.Delete(ctx, reg.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel registration")
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionRegistrationCancel,
		Resource:   "registration",
		ResourceID: &reg.ID,
	})
	s.recordEvent("cancelled")
	return nil
}

// SetStatus applies one review decision to a batch of registrations.
func (s *RegistrationService) SetStatus(ctx context.Context, req dto.UpdateStatusRequest, actor *models.JWTClaims) (*dto.UpdateStatusResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status pendaftaran tidak dikenal")
	}
	updated, err := s.repo.UpdateStatusBulk(ctx, req.IDs, req.Status, req.AdminNotes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update registration status")
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:    &actor.UserID,
		Action:    models.AuditActionStatusChange,
		Resource:  "registration",
		NewValues: []byte(fmt.Sprintf(`{"status":"%s","requested":%d,"updated":%d}`, req.Status, len(req.IDs), updated)),
	})
	s.recordEvent("status_" + strings.ToLower(string(req.Status)))
	return &dto.UpdateStatusResponse{Updated: updated, Status: req.Status}, nil
}

// AdminList returns registrations across all users with pagination metadata.
func (s *RegistrationService) AdminList(ctx context.Context, filter models.RegistrationFilter, actor *models.JWTClaims) ([]models.RegistrationDetail, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, nil, appErrors.ErrForbidden
	}
	regs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return regs, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// OpenProof opens the stored proof file of a registration for streaming.
func (s *RegistrationService) OpenProof(ctx context.Context, id string, actor *models.JWTClaims) (*os.File, error) {
	reg, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if !reg.HasPaymentProof() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "bukti pembayaran tidak ditemukan")
	}
	file, err := s.storage.Open(*reg.PaymentProof)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open payment proof")
	}
	return file, nil
}

// SweepExpired deletes every expired unpaid claim. Used by the background
// sweep job; reads already filter these rows out regardless.
func (s *RegistrationService) SweepExpired(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sweep expired registrations")
	}
	return deleted, nil
}

func (s *RegistrationService) loadOwned(ctx context.Context, id string, actor *models.JWTClaims) (*models.Registration, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "pendaftaran tidak ditemukan")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	if actor.Role != models.RoleAdmin && reg.UserID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return reg, nil
}

func (s *RegistrationService) saveProof(upload ProofUpload) (string, error) {
	if upload.Content == nil || upload.Size <= 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "file bukti pembayaran wajib diisi")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return "", appErrors.ErrFileTooLarge
	}
	mimeType, err := s.detectMime(upload)
	if err != nil {
		return "", err
	}
	if _, allowed := s.mimeSet[strings.ToLower(mimeType)]; !allowed {
		return "", appErrors.ErrUnsupportedFileType
	}
	filename := s.generateProofFilename(upload.Filename, mimeType)
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	path, err := s.storage.SaveStream(filename, upload.Content)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist payment proof")
	}
	return path, nil
}

func (s *RegistrationService) detectMime(upload ProofUpload) (string, error) {
	header := make([]byte, 512)
	n, err := upload.Content.Read(header)
	if err != nil && err != io.EOF {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect file")
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	if n == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "file kosong")
	}
	return http.DetectContentType(header[:n]), nil
}

func (s *RegistrationService) generateProofFilename(original, mimeType string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" {
		switch mimeType {
		case "image/jpeg":
			ext = ".jpg"
		case "image/png":
			ext = ".png"
		default:
			ext = ".bin"
		}
	}
	return fmt.Sprintf("proof_%d_%s%s", time.Now().Unix(), randomSuffix(), ext)
}

func randomSuffix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

func (s *RegistrationService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = "registration-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to create registration audit", zap.Error(err))
	}
}
