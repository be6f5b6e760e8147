package service

import (
	"context"
	"errors"
	"testing"

	"smiles-ledger/internal/core/domain"
	"smiles-ledger/internal/core/ports"
	"smiles-ledger/internal/core/ports/mocks"
	"smiles-ledger/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestReportingService_ListTransactions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	txRepo := mocks.NewMockLedgerTransactionRepository(ctrl)
	svc := NewReportingService(txRepo)

	ctx := context.Background()
	params := ports.TransactionListParams{Page: 1, PageSize: 20}
	expected := []domain.LedgerTransaction{{ID: "0.0.2@1.2", Kind: domain.TransactionKindMint}}

	txRepo.EXPECT().List(ctx, params).Return(expected, int64(1), nil)

	txns, total, err := svc.ListTransactions(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, expected, txns)
}

func TestReportingService_GetStats(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	txRepo := mocks.NewMockLedgerTransactionRepository(ctrl)
	svc := NewReportingService(txRepo)

	ctx := context.Background()
	txRepo.EXPECT().GetStats(ctx).Return(&ports.LedgerStats{TotalMinted: 500, TotalBurned: 120}, nil)

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(500), stats.TotalMinted)

	txRepo.EXPECT().GetStats(ctx).Return(nil, errors.New("db down"))
	_, err = svc.GetStats(ctx)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "SYS_001", appErr.Code)
}
