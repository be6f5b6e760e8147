package handler

import (
	"time"

	"smiles-ledger/internal/adapter/http/dto"
	"smiles-ledger/internal/core/domain"
	"smiles-ledger/internal/core/ports"
	"smiles-ledger/pkg/apperror"
	"smiles-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles custodial wallet endpoints.
type WalletHandler struct {
	ledgerSvc ports.LedgerService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledgerSvc ports.LedgerService) *WalletHandler {
	return &WalletHandler{ledgerSvc: ledgerSvc}
}

// Create handles POST /api/v1/wallets. Creating a wallet that already
// exists is a conflict; mint and transfer provision wallets implicitly.
func (h *WalletHandler) Create(c *gin.Context) {
	var req dto.CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	wallet, err := h.ledgerSvc.CreateWallet(c.Request.Context(), req.OwnerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toWalletResponse(wallet))
}

// GetBalance handles GET /api/v1/wallets/:owner_id/balance. The balance is
// read live from the ledger, never from a cache.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	ownerID, ok := ownerIDParam(c)
	if !ok {
		return
	}

	balance, err := h.ledgerSvc.GetBalance(c.Request.Context(), ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		Native: balance.Native,
		Token:  balance.Token,
	})
}

// Deactivate handles DELETE /api/v1/wallets/:owner_id (soft-deactivate).
func (h *WalletHandler) Deactivate(c *gin.Context) {
	ownerID, ok := ownerIDParam(c)
	if !ok {
		return
	}

	if err := h.ledgerSvc.DeactivateWallet(c.Request.Context(), ownerID); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"owner_id": ownerID, "is_active": false})
}

// Associate handles POST /api/v1/wallets/:owner_id/associate.
func (h *WalletHandler) Associate(c *gin.Context) {
	ownerID, ok := ownerIDParam(c)
	if !ok {
		return
	}

	associated, err := h.ledgerSvc.AssociateToken(c.Request.Context(), ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.AssociateResponse{Associated: associated})
}

// ownerIDParam extracts and validates the :owner_id path parameter. On
// failure it writes the error response and returns ok=false.
func ownerIDParam(c *gin.Context) (string, bool) {
	ownerID := c.Param("owner_id")
	if !dto.IsSafeID(ownerID) {
		response.Error(c, apperror.Validation("invalid owner_id"))
		return "", false
	}
	return ownerID, true
}

func toWalletResponse(w *domain.Wallet) dto.WalletResponse {
	return dto.WalletResponse{
		ID:        w.ID.String(),
		OwnerID:   w.OwnerID,
		AccountID: w.AccountID,
		PublicKey: w.PublicKey,
		IsActive:  w.IsActive,
		CreatedAt: w.CreatedAt.Format(time.RFC3339),
	}
}
