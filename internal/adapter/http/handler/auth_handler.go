package handler

import (
	"crypto/subtle"

	"smiles-ledger/internal/adapter/http/dto"
	"smiles-ledger/internal/core/ports"
	"smiles-ledger/pkg/apperror"
	"smiles-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler exchanges per-service API keys for short-lived bearer tokens.
// Keys are provisioned out of band in configuration; there is no
// self-registration.
type AuthHandler struct {
	tokenSvc    ports.TokenService
	serviceKeys map[string]string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(tokenSvc ports.TokenService, serviceKeys map[string]string) *AuthHandler {
	return &AuthHandler{tokenSvc: tokenSvc, serviceKeys: serviceKeys}
}

// IssueToken handles POST /api/v1/auth/token.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req dto.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	expected, ok := h.serviceKeys[req.ServiceName]
	if !ok || subtle.ConstantTimeCompare([]byte(expected), []byte(req.APIKey)) != 1 {
		response.Error(c, apperror.ErrInvalidAPIKey())
		return
	}

	token, expiry, err := h.tokenSvc.Generate(req.ServiceName)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.TokenResponse{
		Token:  token,
		Expiry: expiry.Unix(),
	})
}
