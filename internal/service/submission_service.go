package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cendekia-fest/kompetisi-api/internal/models"
	appErrors "github.com/cendekia-fest/kompetisi-api/pkg/errors"
)

type submissionStore interface {
	Create(ctx context.Context, submission *models.Submission) error
	FindByRegistrationAndType(ctx context.Context, registrationID string, submissionType models.SubmissionType) (*models.Submission, error)
	ListByRegistration(ctx context.Context, registrationID string) ([]models.Submission, error)
	Delete(ctx context.Context, id string) error
}

type submissionSignedURLSigner interface {
	Generate(id, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (id, relPath string, expiresAt time.Time, err error)
}

// SubmissionDownload bundles file reader metadata for streaming.
type SubmissionDownload struct {
	File      *os.File
	Filename  string
	MimeType  string
	SizeBytes int64
}

// SubmissionServiceConfig holds upload limits for work artifacts.
type SubmissionServiceConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
}

// SubmissionService manages post-approval artifact uploads. Only approved
// registrations may submit, and one artifact per type is kept: uploading
// again replaces the previous file.
type SubmissionService struct {
	repo          submissionStore
	registrations rosterRegistrationReader
	storage       proofFileStorage
	signer        submissionSignedURLSigner
	audit         auditLogger
	logger        *zap.Logger
	cfg           SubmissionServiceConfig
	mimeSet       map[string]struct{}
}

// NewSubmissionService constructs SubmissionService.
func NewSubmissionService(repo submissionStore, registrations rosterRegistrationReader, storage proofFileStorage, signer submissionSignedURLSigner, audit auditLogger, logger *zap.Logger, cfg SubmissionServiceConfig) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 20 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"application/pdf", "application/zip", "image/jpeg", "image/png"}
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, m := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}
	return &SubmissionService{
		repo:          repo,
		registrations: registrations,
		storage:       storage,
		signer:        signer,
		audit:         audit,
		logger:        logger,
		cfg:           cfg,
		mimeSet:       mimeSet,
	}
}

// Upload stores a work artifact for an approved registration.
func (s *SubmissionService) Upload(ctx context.Context, registrationID string, submissionType models.SubmissionType, upload ProofUpload, actor *models.JWTClaims) (*models.Submission, error) {
	reg, err := s.loadOwned(ctx, registrationID, actor)
	if err != nil {
		return nil, err
	}
	if reg.Status != models.RegistrationStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "pengumpulan karya hanya untuk pendaftaran yang disetujui")
	}
	if submissionType != models.SubmissionTypeWork && submissionType != models.SubmissionTypeDeclaration {
		return nil, appErrors.Clone(appErrors.ErrValidation, "jenis pengumpulan tidak dikenal")
	}
	if upload.Content == nil || upload.Size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file wajib diisi")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return nil, appErrors.ErrFileTooLarge
	}
	mimeType, err := s.detectMime(upload)
	if err != nil {
		return nil, err
	}
	if _, allowed := s.mimeSet[strings.ToLower(mimeType)]; !allowed {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFileType, "format file tidak didukung")
	}

	previous, err := s.repo.FindByRegistrationAndType(ctx, registrationID, submissionType)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing submission")
	}

	ext := strings.ToLower(filepath.Ext(upload.Filename))
	if ext == "" {
		ext = ".bin"
	}
	filename := fmt.Sprintf("submission_%s_%d_%s%s", strings.ToLower(string(submissionType)), time.Now().Unix(), randomSuffix(), ext)
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	path, err := s.storage.SaveStream(filename, upload.Content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist submission file")
	}

	submission := &models.Submission{
		RegistrationID: registrationID,
		Type:           submissionType,
		FilePath:       path,
		MimeType:       mimeType,
		SizeBytes:      upload.Size,
	}
	if err := s.repo.Create(ctx, submission); err != nil {
		_ = s.storage.Delete(path)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create submission")
	}

	if previous != nil {
		if err := s.repo.Delete(ctx, previous.ID); err != nil {
			s.logger.Warn("failed to delete replaced submission", zap.String("submission_id", previous.ID), zap.Error(err))
		} else if err := s.storage.Delete(previous.FilePath); err != nil {
			s.logger.Warn("failed to remove replaced submission file", zap.String("path", previous.FilePath), zap.Error(err))
		}
	}

	if s.audit != nil {
		log := &models.AuditLog{
			UserID:     &actor.UserID,
			Action:     models.AuditActionSubmissionUpload,
			Resource:   "submission",
			ResourceID: &submission.ID,
			NewValues:  []byte(fmt.Sprintf(`{"type":"%s","registration_id":"%s"}`, submissionType, registrationID)),
			IPAddress:  "system",
			UserAgent:  "submission-service",
		}
		if err := s.audit.CreateAuditLog(ctx, log); err != nil {
			s.logger.Warn("failed to create submission audit", zap.Error(err))
		}
	}
	return submission, nil
}

// List returns submissions for a registration.
func (s *SubmissionService) List(ctx context.Context, registrationID string, actor *models.JWTClaims) ([]models.Submission, error) {
	if _, err := s.loadOwned(ctx, registrationID, actor); err != nil {
		return nil, err
	}
	submissions, err := s.repo.ListByRegistration(ctx, registrationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return submissions, nil
}

// GetDownloadURL issues a short-lived signed token for one submission file.
func (s *SubmissionService) GetDownloadURL(ctx context.Context, registrationID string, submissionType models.SubmissionType, actor *models.JWTClaims) (string, error) {
	if _, err := s.loadOwned(ctx, registrationID, actor); err != nil {
		return "", err
	}
	submission, err := s.repo.FindByRegistrationAndType(ctx, registrationID, submissionType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "pengumpulan tidak ditemukan")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	token, _, err := s.signer.Generate(submission.ID, submission.FilePath)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	return token, nil
}

// Download validates a signed token and opens the referenced file.
func (s *SubmissionService) Download(ctx context.Context, registrationID, token string, actor *models.JWTClaims) (*SubmissionDownload, error) {
	if _, err := s.loadOwned(ctx, registrationID, actor); err != nil {
		return nil, err
	}
	submissionID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "tautan unduhan tidak valid atau kedaluwarsa")
	}
	submissions, err := s.repo.ListByRegistration(ctx, registrationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	var match *models.Submission
	for i := range submissions {
		if submissions[i].ID == submissionID && submissions[i].FilePath == relPath {
			match = &submissions[i]
			break
		}
	}
	if match == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "pengumpulan tidak ditemukan")
	}
	file, err := s.storage.Open(match.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open submission file")
	}
	return &SubmissionDownload{
		File:      file,
		Filename:  filepath.Base(match.FilePath),
		MimeType:  match.MimeType,
		SizeBytes: match.SizeBytes,
	}, nil
}

func (s *SubmissionService) loadOwned(ctx context.Context, registrationID string, actor *models.JWTClaims) (*models.Registration, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	reg, err := s.registrations.FindByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "pendaftaran tidak ditemukan")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	if actor.Role != models.RoleAdmin && reg.UserID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return reg, nil
}

func (s *SubmissionService) detectMime(upload ProofUpload) (string, error) {
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
