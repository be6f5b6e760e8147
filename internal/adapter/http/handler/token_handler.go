package handler

import (
	"smiles-ledger/internal/adapter/http/dto"
	"smiles-ledger/internal/core/ports"
	"smiles-ledger/pkg/apperror"
	"smiles-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// TokenHandler handles token movement endpoints (mint, transfer, burn).
// Every request carries an event_ref; replays return the original result.
type TokenHandler struct {
	ledgerSvc ports.LedgerService
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(ledgerSvc ports.LedgerService) *TokenHandler {
	return &TokenHandler{ledgerSvc: ledgerSvc}
}

// Mint handles POST /api/v1/tokens/mint.
func (h *TokenHandler) Mint(c *gin.Context) {
	var req dto.MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.ledgerSvc.Mint(c.Request.Context(), ports.MintRequest{
		OwnerID:  req.OwnerID,
		Amount:   req.Amount,
		EventRef: req.EventRef,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.TransactionResultResponse{
		TransactionID: result.TransactionID,
		NewBalance:    result.NewBalance,
	})
}

// Transfer handles POST /api/v1/tokens/transfer.
func (h *TokenHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.ledgerSvc.Transfer(c.Request.Context(), ports.TransferRequest{
		FromOwnerID: req.FromOwnerID,
		ToOwnerID:   req.ToOwnerID,
		Amount:      req.Amount,
		EventRef:    req.EventRef,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.TransactionResultResponse{
		TransactionID: result.TransactionID,
		NewBalance:    result.NewBalance,
	})
}

// Burn handles POST /api/v1/tokens/burn.
func (h *TokenHandler) Burn(c *gin.Context) {
	var req dto.BurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.ledgerSvc.Burn(c.Request.Context(), ports.BurnRequest{
		OwnerID:  req.OwnerID,
		Amount:   req.Amount,
		EventRef: req.EventRef,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.TransactionResultResponse{
		TransactionID: result.TransactionID,
		NewBalance:    result.NewBalance,
	})
}
