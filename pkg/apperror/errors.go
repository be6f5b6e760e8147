package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Wallet Lifecycle (WAL) ----

func ErrWalletNotFound() *AppError {
	return New("WAL_001", "Wallet not found for owner", http.StatusNotFound)
}

func ErrWalletAlreadyExists() *AppError {
	return New("WAL_002", "An active wallet already exists for this owner", http.StatusConflict)
}

func ErrWalletInactive() *AppError {
	return New("WAL_003", "Wallet has been deactivated", http.StatusConflict)
}

// ---- Ledger Business Rules (LED) ----

func ErrInsufficientBalance() *AppError {
	return New("LED_001", "Insufficient token balance for this operation", http.StatusPaymentRequired)
}

func ErrTokenNotAssociated() *AppError {
	return New("LED_002", "Account is not associated with the reward token", http.StatusConflict)
}

func ErrAccountFrozen() *AppError {
	return New("LED_003", "Ledger account is frozen", http.StatusForbidden)
}

func ErrInvalidAmount() *AppError {
	return New("LED_004", "Amount must be a positive integer", http.StatusBadRequest)
}

func ErrLedgerUnavailable(err error) *AppError {
	return Wrap("LED_005", "Ledger network unavailable, retry later", http.StatusServiceUnavailable, err)
}

func ErrLedgerRejected(err error) *AppError {
	return Wrap("LED_006", "Ledger network rejected the transaction", http.StatusBadGateway, err)
}

// ---- Security (SEC) ----

// ErrKeyDecryption deliberately carries no detail beyond the wrapped cause;
// callers must never place key material inside err.
func ErrKeyDecryption(err error) *AppError {
	return Wrap("SEC_001", "Signing key could not be decrypted", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SEC_002", "Encryption service failure", http.StatusInternalServerError, err)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired service token", http.StatusUnauthorized)
}

func ErrInvalidAPIKey() *AppError {
	return New("AUTH_002", "Unknown service or invalid API key", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a SYS_002-style validation error.
func Validation(message string) *AppError {
	return New("SYS_002", message, http.StatusBadRequest)
}
