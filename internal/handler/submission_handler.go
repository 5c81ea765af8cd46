package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cendekia-fest/kompetisi-api/internal/models"
	"github.com/cendekia-fest/kompetisi-api/internal/service"
	appErrors "github.com/cendekia-fest/kompetisi-api/pkg/errors"
	"github.com/cendekia-fest/kompetisi-api/pkg/response"
)

type submissionService interface {
	Upload(ctx context.Context, registrationID string, submissionType models.SubmissionType, upload service.ProofUpload, actor *models.JWTClaims) (*models.Submission, error)
	List(ctx context.Context, registrationID string, actor *models.JWTClaims) ([]models.Submission, error)
	GetDownloadURL(ctx context.Context, registrationID string, submissionType models.SubmissionType, actor *models.JWTClaims) (string, error)
	Download(ctx context.Context, registrationID, token string, actor *models.JWTClaims) (*service.SubmissionDownload, error)
}

// SubmissionHandler serves competition work artifact endpoints.
type SubmissionHandler struct {
	service submissionService
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(svc submissionService) *SubmissionHandler {
	return &SubmissionHandler{service: svc}
}

func submissionTypeFromQuery(c *gin.Context) (models.SubmissionType, error) {
	raw := c.DefaultQuery("type", string(models.SubmissionTypeWork))
	switch t := models.SubmissionType(raw); t {
	case models.SubmissionTypeWork, models.SubmissionTypeDeclaration:
		return t, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "jenis berkas tidak dikenal")
	}
}

// Upload godoc
// @Summary Upload a work artifact for an approved registration
// @Tags Submissions
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Registration ID"
// @Param type query string false "Submission type (WORK or DECLARATION)"
// @Param file formData file true "Artifact file"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations/{id}/submissions [post]
func (h *SubmissionHandler) Upload(c *gin.Context) {
	submissionType, err := submissionTypeFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	upload, err := proofUploadFromForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	submission, err := h.service.Upload(c.Request.Context(), c.Param("id"), submissionType, upload, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}

// List godoc
// @Summary List submissions for a registration
// @Tags Submissions
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Router /registrations/{id}/submissions [get]
func (h *SubmissionHandler) List(c *gin.Context) {
	submissions, err := h.service.List(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submissions, nil)
}

// DownloadURL godoc
// @Summary Issue a signed download URL for a submission
// @Tags Submissions
// @Produce json
// @Param id path string true "Registration ID"
// @Param type query string false "Submission type (WORK or DECLARATION)"
// @Success 200 {object} response.Envelope
// @Router /registrations/{id}/submissions/download-url [get]
func (h *SubmissionHandler) DownloadURL(c *gin.Context) {
	submissionType, err := submissionTypeFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	url, err := h.service.GetDownloadURL(c.Request.Context(), c.Param("id"), submissionType, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"download_url": url}, nil)
}

// Download godoc
// @Summary Download a submission via signed token
// @Tags Submissions
// @Produce octet-stream
// @Param id path string true "Registration ID"
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Router /registrations/{id}/submissions/download [get]
func (h *SubmissionHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token wajib diisi"))
		return
	}
	download, err := h.service.Download(c.Request.Context(), c.Param("id"), token, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.DataFromReader(http.StatusOK, download.SizeBytes, download.MimeType, download.File, nil)
}
