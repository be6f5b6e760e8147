package service

import (
	"context"

	"smiles-ledger/internal/core/domain"
	"smiles-ledger/internal/core/ports"
	"smiles-ledger/pkg/apperror"
)

// reportingService implements ports.ReportingService.
type reportingService struct {
	txRepo ports.LedgerTransactionRepository
}

// NewReportingService creates a new reporting service.
func NewReportingService(txRepo ports.LedgerTransactionRepository) ports.ReportingService {
	return &reportingService{txRepo: txRepo}
}

// ListTransactions returns a paginated slice of the transaction record.
func (s *reportingService) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.LedgerTransaction, int64, error) {
	txns, total, err := s.txRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return txns, total, nil
}

// GetStats returns aggregate supply figures for the admin dashboard.
func (s *reportingService) GetStats(ctx context.Context) (*ports.LedgerStats, error) {
	stats, err := s.txRepo.GetStats(ctx)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return stats, nil
}
