package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "email atau kata sandi salah")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "akun tidak aktif")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "data tidak ditemukan")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "akses ditolak")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "silakan masuk terlebih dahulu")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "data sudah ada")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "data yang dikirim tidak valid")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "terjadi kesalahan pada server")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Registration lifecycle errors. Each code drives a distinct user-facing
// message so the frontend never shows a generic failure for a business rule.
var (
	ErrRegistrationClosed = New("REGISTRATION_CLOSED", http.StatusForbidden, "pendaftaran sedang ditutup")
	ErrActiveClaim        = New("ALREADY_HAS_ACTIVE_CLAIM", http.StatusConflict, "kamu sudah memiliki pendaftaran aktif")
	ErrInvalidStatus      = New("INVALID_STATUS", http.StatusConflict, "status pendaftaran tidak memungkinkan aksi ini")
	ErrNotRejected        = New("NOT_REJECTED", http.StatusConflict, "upload ulang hanya untuk pendaftaran yang ditolak")
	ErrCannotCancel       = New("CANNOT_CANCEL_AFTER_PAYMENT", http.StatusConflict, "pendaftaran tidak dapat dibatalkan setelah bukti pembayaran dikirim")
)

// Team roster errors.
var (
	ErrNotTeamCompetition = New("NOT_TEAM_COMPETITION", http.StatusConflict, "kompetisi ini bukan kompetisi tim")
	ErrTeamSizeMismatch   = New("TEAM_SIZE_MISMATCH", http.StatusBadRequest, "jumlah anggota tim tidak sesuai")
	ErrTeamLevelMismatch  = New("TEAM_LEVEL_MISMATCH", http.StatusBadRequest, "semua anggota tim harus berada pada jenjang pendidikan yang sama")
	ErrTeamSchoolMismatch = New("TEAM_SCHOOL_MISMATCH", http.StatusBadRequest, "semua anggota tim harus berasal dari sekolah yang sama")
	ErrInvalidGrade       = New("INVALID_GRADE", http.StatusBadRequest, "kelas/jenjang tidak dikenali")
	ErrTeamDataIncomplete = New("TEAM_DATA_INCOMPLETE", http.StatusConflict, "lengkapi data anggota tim sebelum melakukan pembayaran")
)

// Pricing errors.
var (
	ErrEducationLevelNotSet = New("EDUCATION_LEVEL_NOT_SET", http.StatusPreconditionFailed, "jenjang pendidikan belum diisi pada profil")
	ErrPriceNotConfigured   = New("PRICE_NOT_CONFIGURED", http.StatusConflict, "biaya pendaftaran belum dikonfigurasi, hubungi panitia")
)

// Upload errors.
var (
	ErrFileTooLarge        = New("FILE_TOO_LARGE", http.StatusRequestEntityTooLarge, "ukuran file maksimal 5MB")
	ErrUnsupportedFileType = New("UNSUPPORTED_FILE_TYPE", http.StatusBadRequest, "format file harus JPG atau PNG")
)

// TeamSizeMismatch builds a TEAM_SIZE_MISMATCH error carrying the expected and
// actual member counts.
func TeamSizeMismatch(expected, actual int) *Error {
	return New(ErrTeamSizeMismatch.Code, ErrTeamSizeMismatch.Status,
		fmt.Sprintf("jumlah anggota tim harus %d, diterima %d", expected, actual))
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
