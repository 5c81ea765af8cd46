package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cendekia-fest/kompetisi-api/internal/dto"
	"github.com/cendekia-fest/kompetisi-api/internal/middleware"
	"github.com/cendekia-fest/kompetisi-api/internal/models"
	"github.com/cendekia-fest/kompetisi-api/internal/service"
	appErrors "github.com/cendekia-fest/kompetisi-api/pkg/errors"
)

type registrationServiceMock struct {
	reg        *models.Registration
	requestErr error
	cancelErr  error
	lastUpload service.ProofUpload
}

func (m *registrationServiceMock) Request(ctx context.Context, req dto.CreateRegistrationRequest, actor *models.JWTClaims) (*models.Registration, error) {
	if m.requestErr != nil {
		return nil, m.requestErr
	}
	return m.reg, nil
}

func (m *registrationServiceMock) ListMine(ctx context.Context, actor *models.JWTClaims) ([]models.RegistrationDetail, error) {
	return nil, nil
}

func (m *registrationServiceMock) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.RegistrationDetail, error) {
	return &models.RegistrationDetail{Registration: *m.reg}, nil
}

func (m *registrationServiceMock) UploadProof(ctx context.Context, id string, upload service.ProofUpload, actor *models.JWTClaims) (*models.Registration, error) {
	m.lastUpload = upload
	return m.reg, nil
}

func (m *registrationServiceMock) ReuploadProof(ctx context.Context, id string, upload service.ProofUpload, actor *models.JWTClaims) (*models.Registration, error) {
	m.lastUpload = upload
	return m.reg, nil
}

func (m *registrationServiceMock) OpenProof(ctx context.Context, id string, actor *models.JWTClaims) (*os.File, error) {
	return nil, appErrors.ErrNotFound
}

func (m *registrationServiceMock) Cancel(ctx context.Context, id string, actor *models.JWTClaims) error {
	return m.cancelErr
}

type rosterServiceMock struct {
	members   []models.TeamMember
	submitErr error
}

func (m *rosterServiceMock) Submit(ctx context.Context, registrationID string, req dto.SubmitRosterRequest, actor *models.JWTClaims) ([]models.TeamMember, error) {
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	return m.members, nil
}

func (m *rosterServiceMock) List(ctx context.Context, registrationID string, actor *models.JWTClaims) ([]models.TeamMember, error) {
	return m.members, nil
}

type paymentServiceMock struct {
	details    *dto.PaymentDetails
	detailsErr error
}

func (m *paymentServiceMock) Details(ctx context.Context, id string, actor *models.JWTClaims) (*dto.PaymentDetails, error) {
	if m.detailsErr != nil {
		return nil, m.detailsErr
	}
	return m.details, nil
}

func (m *paymentServiceMock) Receipt(ctx context.Context, id string, actor *models.JWTClaims) ([]byte, error) {
	return []byte("%PDF-1.4"), nil
}

func newRegistrationTestContext(t *testing.T) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleParticipant})
	return w, c
}

func TestRegistrationHandlerCreate(t *testing.T) {
	svc := &registrationServiceMock{reg: &models.Registration{ID: "reg-1", CompetitionID: "comp-1"}}
	h := NewRegistrationHandler(svc, &rosterServiceMock{}, &paymentServiceMock{})
	w, c := newRegistrationTestContext(t)

	body, _ := json.Marshal(dto.CreateRegistrationRequest{CompetitionID: "comp-1"})
	req, _ := http.NewRequest(http.MethodPost, "/registrations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"reg-1"`)
}

func TestRegistrationHandlerCreateInvalidBody(t *testing.T) {
	h := NewRegistrationHandler(&registrationServiceMock{}, &rosterServiceMock{}, &paymentServiceMock{})
	w, c := newRegistrationTestContext(t)

	req, _ := http.NewRequest(http.MethodPost, "/registrations", bytes.NewReader([]byte(`not-json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegistrationHandlerCreateConflictPassthrough(t *testing.T) {
	svc := &registrationServiceMock{requestErr: appErrors.ErrActiveClaim}
	h := NewRegistrationHandler(svc, &rosterServiceMock{}, &paymentServiceMock{})
	w, c := newRegistrationTestContext(t)

	body, _ := json.Marshal(dto.CreateRegistrationRequest{CompetitionID: "comp-1"})
	req, _ := http.NewRequest(http.MethodPost, "/registrations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Create(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "ALREADY_HAS_ACTIVE_CLAIM")
}

func TestRegistrationHandlerUploadProof(t *testing.T) {
	svc := &registrationServiceMock{reg: &models.Registration{ID: "reg-1"}}
	h := NewRegistrationHandler(svc, &rosterServiceMock{}, &paymentServiceMock{})
	w, c := newRegistrationTestContext(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "bukti.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02})
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, _ := http.NewRequest(http.MethodPost, "/registrations/reg-1/payment-proof", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "reg-1"}}

	h.UploadProof(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bukti.jpg", svc.lastUpload.Filename)
	assert.NotNil(t, svc.lastUpload.Content)
}

func TestRegistrationHandlerUploadProofMissingFile(t *testing.T) {
	h := NewRegistrationHandler(&registrationServiceMock{}, &rosterServiceMock{}, &paymentServiceMock{})
	w, c := newRegistrationTestContext(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.Close())

	req, _ := http.NewRequest(http.MethodPost, "/registrations/reg-1/payment-proof", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "reg-1"}}

	h.UploadProof(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegistrationHandlerCancel(t *testing.T) {
	h := NewRegistrationHandler(&registrationServiceMock{}, &rosterServiceMock{}, &paymentServiceMock{})
	w, c := newRegistrationTestContext(t)

	req, _ := http.NewRequest(http.MethodDelete, "/registrations/reg-1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "reg-1"}}

	h.Cancel(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRegistrationHandlerPaymentDetailsError(t *testing.T) {
	h := NewRegistrationHandler(&registrationServiceMock{}, &rosterServiceMock{}, &paymentServiceMock{detailsErr: appErrors.ErrPriceNotConfigured})
	w, c := newRegistrationTestContext(t)

	req, _ := http.NewRequest(http.MethodGet, "/registrations/reg-1/payment-details", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "reg-1"}}

	h.PaymentDetails(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "PRICE_NOT_CONFIGURED")
}

func TestRegistrationHandlerReceiptContentType(t *testing.T) {
	h := NewRegistrationHandler(&registrationServiceMock{}, &rosterServiceMock{}, &paymentServiceMock{})
	w, c := newRegistrationTestContext(t)

	req, _ := http.NewRequest(http.MethodGet, "/registrations/reg-1/receipt", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "reg-1"}}

	h.Receipt(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
}
