package handler

import (
	"strconv"
	"strings"
	"time"

	"smiles-ledger/internal/adapter/http/dto"
	"smiles-ledger/internal/core/domain"
	"smiles-ledger/internal/core/ports"
	"smiles-ledger/pkg/apperror"
	"smiles-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// ReportingHandler handles transaction listing and aggregate stats for the
// platform's admin dashboard.
type ReportingHandler struct {
	reportingSvc ports.ReportingService
}

// NewReportingHandler creates a new ReportingHandler.
func NewReportingHandler(reportingSvc ports.ReportingService) *ReportingHandler {
	return &ReportingHandler{reportingSvc: reportingSvc}
}

// ListTransactions handles GET /api/v1/transactions.
// Query params: account_id, kind, status, page, page_size.
func (h *ReportingHandler) ListTransactions(c *gin.Context) {
	params := ports.TransactionListParams{}

	if accountID := c.Query("account_id"); accountID != "" {
		if !dto.IsSafeID(accountID) {
			response.Error(c, apperror.Validation("invalid account_id"))
			return
		}
		params.AccountID = &accountID
	}

	if kindStr := c.Query("kind"); kindStr != "" {
		kind := domain.TransactionKind(strings.ToUpper(kindStr))
		switch kind {
		case domain.TransactionKindMint, domain.TransactionKindBurn,
			domain.TransactionKindTransfer, domain.TransactionKindAssociate:
			params.Kind = &kind
		default:
			response.Error(c, apperror.Validation("invalid kind"))
			return
		}
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := domain.TransactionStatus(strings.ToUpper(statusStr))
		switch status {
		case domain.TransactionStatusSubmitted, domain.TransactionStatusConfirmed,
			domain.TransactionStatusFailed:
			params.Status = &status
		default:
			response.Error(c, apperror.Validation("invalid status"))
			return
		}
	}

	params.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	params.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	txns, total, err := h.reportingSvc.ListTransactions(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, toTransactionResponse(&txns[i]))
	}

	response.OK(c, dto.TransactionListResponse{
		Transactions: items,
		Total:        total,
		Page:         params.Page,
		PageSize:     params.PageSize,
	})
}

// GetStats handles GET /api/v1/transactions/stats.
func (h *ReportingHandler) GetStats(c *gin.Context) {
	stats, err := h.reportingSvc.GetStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.StatsResponse{
		TotalTransactions: stats.TotalTransactions,
		Confirmed:         stats.Confirmed,
		Failed:            stats.Failed,
		TotalMinted:       stats.TotalMinted,
		TotalBurned:       stats.TotalBurned,
		TotalTransferred:  stats.TotalTransferred,
	})
}

func toTransactionResponse(tx *domain.LedgerTransaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:            tx.ID,
		Kind:          string(tx.Kind),
		FromAccountID: tx.FromAccountID,
		ToAccountID:   tx.ToAccountID,
		Amount:        tx.Amount,
		AppEventRef:   tx.AppEventRef,
		Status:        string(tx.Status),
		CreatedAt:     tx.CreatedAt.Format(time.RFC3339),
	}
}
