package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smiles-ledger/internal/core/domain"
	"smiles-ledger/internal/core/ports"
	"smiles-ledger/pkg/apperror"
	"smiles-ledger/pkg/keyedmutex"

	"github.com/rs/zerolog"
)

const idempotencyTTL = 24 * time.Hour

// LedgerServiceImpl implements ports.LedgerService. Every token-moving
// operation runs the same shape: replay check (redis, then the confirmed-row
// table), per-account FIFO lock, submit, persist the terminal row, re-query
// the live balance. Balances are never computed locally.
//
// Supply operations are two legs through the treasury. The intermediate leg
// carries a derived event ref; the final leg carries the caller's ref, so
// the overall operation is confirmed exactly when its final leg is. A retry
// after a mid-operation crash skips legs that already confirmed.
type LedgerServiceImpl struct {
	registry   ports.WalletRegistry
	txRepo     ports.LedgerTransactionRepository
	idempCache ports.IdempotencyCache
	vault      ports.KeyVault
	gateway    ports.LedgerGateway
	locks      *keyedmutex.KeyedMutex
	notifier   ports.Notifier
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	registry ports.WalletRegistry,
	txRepo ports.LedgerTransactionRepository,
	idempCache ports.IdempotencyCache,
	vault ports.KeyVault,
	gateway ports.LedgerGateway,
	locks *keyedmutex.KeyedMutex,
	notifier ports.Notifier,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		registry:   registry,
		txRepo:     txRepo,
		idempCache: idempCache,
		vault:      vault,
		gateway:    gateway,
		locks:      locks,
		notifier:   notifier,
		log:        log,
	}
}

// CreateWallet explicitly provisions a wallet for the owner. Unlike the
// provisioning that mint and transfer do on first touch, an explicit create
// of an existing wallet is a conflict.
func (s *LedgerServiceImpl) CreateWallet(ctx context.Context, ownerID string) (*domain.Wallet, error) {
	existing, err := s.registry.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.ErrWalletAlreadyExists()
	}
	return s.registry.GetOrCreate(ctx, ownerID)
}

// GetBalance returns the live network balance for the owner's account.
func (s *LedgerServiceImpl) GetBalance(ctx context.Context, ownerID string) (*ports.Balance, error) {
	wallet, err := s.registry.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	balance, err := s.gateway.GetBalance(ctx, wallet.AccountID)
	if err != nil {
		return nil, mapGatewayError(err)
	}
	return balance, nil
}

// Mint credits freshly minted tokens to the owner: supply is minted into the
// treasury, then transferred out. The wallet is provisioned on first touch.
func (s *LedgerServiceImpl) Mint(ctx context.Context, req ports.MintRequest) (*ports.TransactionResult, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.EventRef == "" {
		return nil, apperror.Validation("event_ref is required")
	}

	wallet, err := s.registry.GetOrCreate(ctx, req.OwnerID)
	if err != nil {
		return nil, err
	}

	if result, ok := s.replayCheck(ctx, req.EventRef, wallet.AccountID); ok {
		return result, nil
	}

	treasury := s.gateway.TreasuryAccountID()
	var final *domain.LedgerTransaction

	// Both legs are signed by the treasury, so one treasury lock covers the
	// whole operation and keeps supply movements strictly ordered.
	err = s.locks.WithLock(ctx, treasury, func() error {
		// A concurrent duplicate may have settled while this caller waited
		// on the lock.
		if confirmed, err := s.txRepo.GetConfirmedByEventRef(ctx, req.EventRef); err != nil {
			return apperror.InternalError(err)
		} else if confirmed != nil {
			final = confirmed
			return nil
		}

		mintRef := domain.MintLegRef(req.EventRef)
		done, err := s.legConfirmed(ctx, mintRef)
		if err != nil {
			return err
		}
		if !done {
			res, submitErr := s.gateway.Mint(ctx, req.Amount)
			if _, err := s.recordOutcome(ctx, domain.TransactionKindMint, nil, &treasury, req.Amount, mintRef, res, submitErr); err != nil {
				return err
			}
		}

		res, submitErr := s.gateway.Transfer(ctx, treasury, wallet.AccountID, req.Amount, "")
		final, err = s.recordOutcome(ctx, domain.TransactionKindTransfer, &treasury, &wallet.AccountID, req.Amount, req.EventRef, res, submitErr)
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.settle(ctx, final, wallet.AccountID)
}

// Transfer moves tokens between two owners, signed by the sender's key. The
// recipient's wallet is provisioned on first touch.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*ports.TransactionResult, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.EventRef == "" {
		return nil, apperror.Validation("event_ref is required")
	}
	if req.FromOwnerID == req.ToOwnerID {
		return nil, apperror.Validation("cannot transfer to the same owner")
	}

	fromWallet, err := s.activeWallet(ctx, req.FromOwnerID)
	if err != nil {
		return nil, err
	}
	toWallet, err := s.registry.GetOrCreate(ctx, req.ToOwnerID)
	if err != nil {
		return nil, err
	}

	if result, ok := s.replayCheck(ctx, req.EventRef, fromWallet.AccountID); ok {
		return result, nil
	}

	var final *domain.LedgerTransaction
	err = s.locks.WithLock(ctx, fromWallet.AccountID, func() error {
		if confirmed, err := s.txRepo.GetConfirmedByEventRef(ctx, req.EventRef); err != nil {
			return apperror.InternalError(err)
		} else if confirmed != nil {
			final = confirmed
			return nil
		}

		signingKey, err := s.vault.Decrypt(fromWallet.EncryptedPrivateKey)
		if err != nil {
			return apperror.ErrKeyDecryption(err)
		}

		res, submitErr := s.gateway.Transfer(ctx, fromWallet.AccountID, toWallet.AccountID, req.Amount, signingKey)
		final, err = s.recordOutcome(ctx, domain.TransactionKindTransfer, &fromWallet.AccountID, &toWallet.AccountID, req.Amount, req.EventRef, res, submitErr)
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.settle(ctx, final, fromWallet.AccountID)
}

// Burn retires tokens from the owner's balance: they are transferred back to
// the treasury, then burned from supply.
func (s *LedgerServiceImpl) Burn(ctx context.Context, req ports.BurnRequest) (*ports.TransactionResult, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.EventRef == "" {
		return nil, apperror.Validation("event_ref is required")
	}

	wallet, err := s.activeWallet(ctx, req.OwnerID)
	if err != nil {
		return nil, err
	}

	if result, ok := s.replayCheck(ctx, req.EventRef, wallet.AccountID); ok {
		return result, nil
	}

	treasury := s.gateway.TreasuryAccountID()

	// Leg 1: owner -> treasury, signed by the owner. The confirmed check has
	// to happen under the owner lock, or a concurrent duplicate that settled
	// the leg while this caller queued would be debited a second time.
	xferRef := domain.TransferLegRef(req.EventRef)
	err = s.locks.WithLock(ctx, wallet.AccountID, func() error {
		done, err := s.legConfirmed(ctx, xferRef)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		signingKey, err := s.vault.Decrypt(wallet.EncryptedPrivateKey)
		if err != nil {
			return apperror.ErrKeyDecryption(err)
		}
		res, submitErr := s.gateway.Transfer(ctx, wallet.AccountID, treasury, req.Amount, signingKey)
		_, err = s.recordOutcome(ctx, domain.TransactionKindTransfer, &wallet.AccountID, &treasury, req.Amount, xferRef, res, submitErr)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Leg 2: burn from treasury supply.
	var final *domain.LedgerTransaction
	err = s.locks.WithLock(ctx, treasury, func() error {
		if confirmed, err := s.txRepo.GetConfirmedByEventRef(ctx, req.EventRef); err != nil {
			return apperror.InternalError(err)
		} else if confirmed != nil {
			final = confirmed
			return nil
		}

		res, submitErr := s.gateway.Burn(ctx, req.Amount)
		var err error
		final, err = s.recordOutcome(ctx, domain.TransactionKindBurn, &treasury, nil, req.Amount, req.EventRef, res, submitErr)
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.settle(ctx, final, wallet.AccountID)
}

// AssociateToken links the owner's account to the reward token. Accounts
// provisioned by the registry are associated already, so this mostly covers
// re-association after network-side changes. Returns true on success whether
// or not a submission was needed.
func (s *LedgerServiceImpl) AssociateToken(ctx context.Context, ownerID string) (bool, error) {
	wallet, err := s.activeWallet(ctx, ownerID)
	if err != nil {
		return false, err
	}

	associated, err := s.gateway.IsTokenAssociated(ctx, wallet.AccountID)
	if err != nil {
		return false, mapGatewayError(err)
	}
	if associated {
		return true, nil
	}

	ref := domain.AssociationRef(wallet.AccountID)
	done, err := s.legConfirmed(ctx, ref)
	if err != nil {
		return false, err
	}
	if done {
		return true, nil
	}

	err = s.locks.WithLock(ctx, wallet.AccountID, func() error {
		signingKey, err := s.vault.Decrypt(wallet.EncryptedPrivateKey)
		if err != nil {
			return apperror.ErrKeyDecryption(err)
		}

		res, submitErr := s.gateway.AssociateToken(ctx, wallet.AccountID, signingKey)
		var gwErr *ports.GatewayError
		if errors.As(submitErr, &gwErr) && gwErr.Kind == ports.KindAlreadyAssociated {
			return nil
		}
		_, err = s.recordOutcome(ctx, domain.TransactionKindAssociate, nil, &wallet.AccountID, 0, ref, res, submitErr)
		return err
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeactivateWallet soft-disables the owner's wallet.
func (s *LedgerServiceImpl) DeactivateWallet(ctx context.Context, ownerID string) error {
	return s.registry.Deactivate(ctx, ownerID)
}

// activeWallet resolves an owner to an existing, active wallet.
func (s *LedgerServiceImpl) activeWallet(ctx context.Context, ownerID string) (*domain.Wallet, error) {
	wallet, err := s.registry.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	if !wallet.IsActive {
		return nil, apperror.ErrWalletInactive()
	}
	return wallet, nil
}

// replayCheck returns the recorded outcome for an event ref that already
// settled. Redis first, then the confirmed-row table; a cache fault falls
// through to the durable check.
func (s *LedgerServiceImpl) replayCheck(ctx context.Context, ref, accountID string) (*ports.TransactionResult, bool) {
	cached, err := s.idempCache.Get(ctx, ref)
	if err != nil {
		s.log.Warn().Err(err).Str("event_ref", ref).Msg("redis replay check failed, falling through to db")
	}
	if cached != nil {
		var result ports.TransactionResult
		if err := json.Unmarshal(cached, &result); err == nil {
			s.log.Debug().Str("event_ref", ref).Msg("replay served from cache")
			return &result, true
		}
	}

	confirmed, err := s.txRepo.GetConfirmedByEventRef(ctx, ref)
	if err != nil || confirmed == nil {
		return nil, false
	}

	result := &ports.TransactionResult{TransactionID: confirmed.ID}
	if balance, err := s.gateway.GetBalance(ctx, accountID); err == nil {
		result.NewBalance = balance.Token
	}
	s.log.Debug().Str("event_ref", ref).Msg("replay served from confirmed row")
	return result, true
}

// legConfirmed reports whether a leg's event ref already has a confirmed row.
func (s *LedgerServiceImpl) legConfirmed(ctx context.Context, ref string) (bool, error) {
	confirmed, err := s.txRepo.GetConfirmedByEventRef(ctx, ref)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("replay check %s: %w", ref, err))
	}
	return confirmed != nil, nil
}

// recordOutcome persists the terminal row for one submission. Rows are only
// written in terminal states; a submission that failed before being assigned
// an identifier leaves no row.
func (s *LedgerServiceImpl) recordOutcome(
	ctx context.Context,
	kind domain.TransactionKind,
	from, to *string,
	amount int64,
	ref string,
	res *ports.SubmitResult,
	submitErr error,
) (*domain.LedgerTransaction, error) {
	if submitErr != nil {
		var gwErr *ports.GatewayError
		if errors.As(submitErr, &gwErr) && gwErr.TransactionID != "" {
			failed := &domain.LedgerTransaction{
				ID:            gwErr.TransactionID,
				Kind:          kind,
				FromAccountID: from,
				ToAccountID:   to,
				Amount:        amount,
				AppEventRef:   ref,
				Status:        domain.TransactionStatusFailed,
				CreatedAt:     time.Now().UTC(),
			}
			if err := s.txRepo.Create(ctx, failed); err != nil {
				s.log.Error().Err(err).Str("event_ref", ref).Msg("failed to persist failed transaction row")
			}
		}
		return nil, mapGatewayError(submitErr)
	}

	tx := &domain.LedgerTransaction{
		ID:            res.TransactionID,
		Kind:          kind,
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        amount,
		AppEventRef:   ref,
		Status:        domain.TransactionStatusConfirmed,
		CreatedAt:     res.ConsensusAt,
	}
	if err := s.txRepo.Create(ctx, tx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("persist transaction: %w", err))
	}
	return tx, nil
}

// settle finishes a confirmed operation: re-query the live balance, cache
// the outcome under the event ref and publish the confirmation.
func (s *LedgerServiceImpl) settle(ctx context.Context, final *domain.LedgerTransaction, accountID string) (*ports.TransactionResult, error) {
	result := &ports.TransactionResult{TransactionID: final.ID}

	balance, err := s.gateway.GetBalance(ctx, accountID)
	if err != nil {
		// The operation settled; a failed balance read must not fail it.
		s.log.Warn().Err(err).Str("account_id", accountID).Msg("post-settlement balance query failed")
	} else {
		result.NewBalance = balance.Token
	}

	if payload, err := json.Marshal(result); err == nil {
		if err := s.idempCache.Set(ctx, final.AppEventRef, payload, idempotencyTTL); err != nil {
			s.log.Warn().Err(err).Str("event_ref", final.AppEventRef).Msg("failed to cache settled result")
		}
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyConfirmed(ctx, final); err != nil {
			s.log.Warn().Err(err).Str("tx_id", final.ID).Msg("confirmation notify failed")
		}
	}

	return result, nil
}

// mapGatewayError translates the gateway's typed errors onto the API error
// taxonomy.
func mapGatewayError(err error) error {
	var gwErr *ports.GatewayError
	if !errors.As(err, &gwErr) {
		return apperror.InternalError(err)
	}
	switch gwErr.Kind {
	case ports.KindInsufficientBalance:
		return apperror.ErrInsufficientBalance()
	case ports.KindTokenNotAssociated:
		return apperror.ErrTokenNotAssociated()
	case ports.KindAccountFrozen:
		return apperror.ErrAccountFrozen()
	case ports.KindUnavailable:
		return apperror.ErrLedgerUnavailable(gwErr)
	default:
		return apperror.ErrLedgerRejected(gwErr)
	}
}
