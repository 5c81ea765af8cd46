package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/cendekia-fest/kompetisi-api/internal/dto"
	"github.com/cendekia-fest/kompetisi-api/internal/models"
	"github.com/cendekia-fest/kompetisi-api/internal/service"
	appErrors "github.com/cendekia-fest/kompetisi-api/pkg/errors"
	"github.com/cendekia-fest/kompetisi-api/pkg/response"
)

type registrationService interface {
	Request(ctx context.Context, req dto.CreateRegistrationRequest, actor *models.JWTClaims) (*models.Registration, error)
	ListMine(ctx context.Context, actor *models.JWTClaims) ([]models.RegistrationDetail, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.RegistrationDetail, error)
	UploadProof(ctx context.Context, id string, upload service.ProofUpload, actor *models.JWTClaims) (*models.Registration, error)
	ReuploadProof(ctx context.Context, id string, upload service.ProofUpload, actor *models.JWTClaims) (*models.Registration, error)
	OpenProof(ctx context.Context, id string, actor *models.JWTClaims) (*os.File, error)
	Cancel(ctx context.Context, id string, actor *models.JWTClaims) error
}

type rosterService interface {
	Submit(ctx context.Context, registrationID string, req dto.SubmitRosterRequest, actor *models.JWTClaims) ([]models.TeamMember, error)
	List(ctx context.Context, registrationID string, actor *models.JWTClaims) ([]models.TeamMember, error)
}

type paymentService interface {
	Details(ctx context.Context, id string, actor *models.JWTClaims) (*dto.PaymentDetails, error)
	Receipt(ctx context.Context, id string, actor *models.JWTClaims) ([]byte, error)
}

// RegistrationHandler manages participant-facing registration endpoints.
type RegistrationHandler struct {
	registrations registrationService
	roster        rosterService
	payments      paymentService
}

// NewRegistrationHandler constructs the handler.
func NewRegistrationHandler(registrations registrationService, roster rosterService, payments paymentService) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations, roster: roster, payments: payments}
}

// Create godoc
// @Summary Request a registration slot
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body dto.CreateRegistrationRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations [post]
func (h *RegistrationHandler) Create(c *gin.Context) {
	var req dto.CreateRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid registration payload"))
		return
	}
	reg, err := h.registrations.Request(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reg)
}

// ListMine godoc
// @Summary List own registrations
// @Tags Registrations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /registrations [get]
func (h *RegistrationHandler) ListMine(c *gin.Context) {
	regs, err := h.registrations.ListMine(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, regs, nil)
}

// Get godoc
// @Summary Get one registration
// @Tags Registrations
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /registrations/{id} [get]
func (h *RegistrationHandler) Get(c *gin.Context) {
	reg, err := h.registrations.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reg, nil)
}

// Cancel godoc
// @Summary Cancel a provisional registration
// @Tags Registrations
// @Produce json
// @Param id path string true "Registration ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations/{id} [delete]
func (h *RegistrationHandler) Cancel(c *gin.Context) {
	if err := h.registrations.Cancel(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UploadProof godoc
// @Summary Upload payment proof
// @Tags Registrations
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Registration ID"
// @Param file formData file true "Proof image (JPG/PNG)"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /registrations/{id}/payment-proof [post]
func (h *RegistrationHandler) UploadProof(c *gin.Context) {
	upload, err := proofUploadFromForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	reg, err := h.registrations.UploadProof(c.Request.Context(), c.Param("id"), upload, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reg, nil)
}

// ReuploadProof godoc
// @Summary Replace proof of a rejected registration
// @Tags Registrations
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Registration ID"
// @Param file formData file true "Proof image (JPG/PNG)"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations/{id}/reupload [post]
func (h *RegistrationHandler) ReuploadProof(c *gin.Context) {
	upload, err := proofUploadFromForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	reg, err := h.registrations.ReuploadProof(c.Request.Context(), c.Param("id"), upload, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reg, nil)
}

// SubmitRoster godoc
// @Summary Submit the full team roster
// @Tags Registrations
// @Accept json
// @Produce json
// @Param id path string true "Registration ID"
// @Param payload body dto.SubmitRosterRequest true "Roster payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations/{id}/team-roster [post]
func (h *RegistrationHandler) SubmitRoster(c *gin.Context) {
	var req dto.SubmitRosterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid roster payload"))
		return
	}
	members, err := h.roster.Submit(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, members, nil)
}

// ListRoster godoc
// @Summary List the team roster
// @Tags Registrations
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Router /registrations/{id}/team-roster [get]
func (h *RegistrationHandler) ListRoster(c *gin.Context) {
	members, err := h.roster.List(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, members, nil)
}

// PaymentDetails godoc
// @Summary Payment summary for a registration
// @Tags Registrations
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations/{id}/payment-details [get]
func (h *RegistrationHandler) PaymentDetails(c *gin.Context) {
	details, err := h.payments.Details(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, nil)
}

// Receipt godoc
// @Summary Download the PDF receipt of an approved registration
// @Tags Registrations
// @Produce application/pdf
// @Param id path string true "Registration ID"
// @Success 200 {file} binary
// @Failure 409 {object} response.Envelope
// @Router /registrations/{id}/receipt [get]
func (h *RegistrationHandler) Receipt(c *gin.Context) {
	pdf, err := h.payments.Receipt(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="bukti-pendaftaran.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// ViewProof godoc
// @Summary Stream the uploaded payment proof
// @Tags Registrations
// @Produce octet-stream
// @Param id path string true "Registration ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /registrations/{id}/payment-proof [get]
func (h *RegistrationHandler) ViewProof(c *gin.Context) {
	file, err := h.registrations.OpenProof(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat payment proof"))
		return
	}
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), file)
}

func proofUploadFromForm(c *gin.Context) (service.ProofUpload, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return service.ProofUpload{}, appErrors.Clone(appErrors.ErrValidation, "file wajib diisi")
	}
	src, err := fileHeader.Open()
	if err != nil {
		return service.ProofUpload{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	defer src.Close()

	reader, ok := src.(io.ReadSeeker)
	if !ok {
		buf, readErr := io.ReadAll(src)
		if readErr != nil {
			return service.ProofUpload{}, appErrors.Wrap(readErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer file")
		}
		reader = bytes.NewReader(buf)
	}
	return service.ProofUpload{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		Content:  reader,
	}, nil
}
