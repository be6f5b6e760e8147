package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smiles-ledger/internal/core/domain"
	"smiles-ledger/internal/core/ports"
	"smiles-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// WalletRegistryImpl implements ports.WalletRegistry. Provisioning is
// collapsed per owner with singleflight so a burst of first-touch requests
// creates exactly one ledger account; a lost race against another instance
// is resolved through the owner_id unique constraint.
type WalletRegistryImpl struct {
	walletRepo     ports.WalletRepository
	gateway        ports.LedgerGateway
	vault          ports.KeyVault
	initialBalance int64
	group          singleflight.Group
	log            zerolog.Logger
}

// NewWalletRegistry creates a new WalletRegistryImpl. initialBalance is the
// native-unit funding for freshly provisioned accounts.
func NewWalletRegistry(
	walletRepo ports.WalletRepository,
	gateway ports.LedgerGateway,
	vault ports.KeyVault,
	initialBalance int64,
	log zerolog.Logger,
) *WalletRegistryImpl {
	return &WalletRegistryImpl{
		walletRepo:     walletRepo,
		gateway:        gateway,
		vault:          vault,
		initialBalance: initialBalance,
		log:            log,
	}
}

// GetOrCreate returns the owner's active wallet, provisioning one on first
// use. An existing but deactivated wallet is never resurrected.
func (s *WalletRegistryImpl) GetOrCreate(ctx context.Context, ownerID string) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch wallet: %w", err))
	}
	if wallet != nil {
		if !wallet.IsActive {
			return nil, apperror.ErrWalletInactive()
		}
		return wallet, nil
	}

	v, err, _ := s.group.Do(ownerID, func() (any, error) {
		return s.provision(ctx, ownerID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Wallet), nil
}

// provision creates the ledger account, seals its key and records the
// mapping. The plaintext key exists only inside this call.
func (s *WalletRegistryImpl) provision(ctx context.Context, ownerID string) (*domain.Wallet, error) {
	// Re-check under the flight: a concurrent call may have just finished.
	existing, err := s.walletRepo.GetByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch wallet: %w", err))
	}
	if existing != nil {
		if !existing.IsActive {
			return nil, apperror.ErrWalletInactive()
		}
		return existing, nil
	}

	info, err := s.gateway.CreateAccount(ctx, s.initialBalance)
	if err != nil {
		return nil, mapGatewayError(err)
	}

	// Associate before anything can be credited. The account's own key
	// signs the association.
	if _, err := s.gateway.AssociateToken(ctx, info.AccountID, info.PrivateKey); err != nil {
		var gwErr *ports.GatewayError
		if !errors.As(err, &gwErr) || gwErr.Kind != ports.KindAlreadyAssociated {
			return nil, mapGatewayError(err)
		}
	}

	sealed, err := s.vault.Encrypt(info.PrivateKey)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(err)
	}

	now := time.Now().UTC()
	wallet := &domain.Wallet{
		ID:                  uuid.New(),
		OwnerID:             ownerID,
		AccountID:           info.AccountID,
		PublicKey:           info.PublicKey,
		EncryptedPrivateKey: sealed,
		IsActive:            true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		if errors.Is(err, ports.ErrDuplicateOwner) {
			// Another instance won the race; its row is authoritative. The
			// account created here is unfunded beyond the initial native
			// allotment and simply goes unused.
			s.log.Warn().Str("owner_id", ownerID).Str("orphan_account", info.AccountID).
				Msg("lost wallet provisioning race, using existing row")
			winner, err := s.walletRepo.GetByOwnerID(ctx, ownerID)
			if err != nil {
				return nil, apperror.InternalError(fmt.Errorf("fetch winning wallet: %w", err))
			}
			if winner == nil {
				return nil, apperror.InternalError(errors.New("duplicate owner but no wallet row"))
			}
			return winner, nil
		}
		return nil, apperror.InternalError(fmt.Errorf("persist wallet: %w", err))
	}

	s.log.Info().Str("owner_id", ownerID).Str("account_id", wallet.AccountID).Msg("wallet provisioned")
	return wallet, nil
}

// Get returns the owner's wallet or (nil, nil), inactive wallets included.
func (s *WalletRegistryImpl) Get(ctx context.Context, ownerID string) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch wallet: %w", err))
	}
	return wallet, nil
}

// Deactivate soft-disables the owner's wallet. The ledger account and its
// sealed key are retained, nothing on chain is touched.
func (s *WalletRegistryImpl) Deactivate(ctx context.Context, ownerID string) error {
	wallet, err := s.walletRepo.GetByOwnerID(ctx, ownerID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("fetch wallet: %w", err))
	}
	if wallet == nil {
		return apperror.ErrWalletNotFound()
	}
	if !wallet.IsActive {
		return nil // already deactivated, idempotent
	}
	if err := s.walletRepo.Deactivate(ctx, ownerID); err != nil {
		return apperror.InternalError(fmt.Errorf("deactivate wallet: %w", err))
	}
	s.log.Info().Str("owner_id", ownerID).Msg("wallet deactivated")
	return nil
}
