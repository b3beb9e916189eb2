package ledger

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service provides business logic for wallet operations
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new ledger service
func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// Transfer moves amount between two wallets as one all-or-nothing unit.
// Validation happens before any lock is taken.
func (s *Service) Transfer(ctx context.Context, sourceID, destID int64, amount decimal.Decimal, reason string) (*TransferResult, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if sourceID == destID {
		return nil, ErrSameWallet
	}

	result, err := s.repo.Transfer(ctx, sourceID, destID, amount, reason)
	if err != nil {
		return nil, err
	}

	s.logger.Info("transfer completed",
		zap.String("transaction_id", result.TransactionID.String()),
		zap.Int64("source_wallet", sourceID),
		zap.Int64("dest_wallet", destID),
		zap.String("amount", amount.String()),
		zap.String("reason", reason))

	return result, nil
}

// GetWallet retrieves a wallet by id
func (s *Service) GetWallet(ctx context.Context, id int64) (*Wallet, error) {
	return s.repo.GetWallet(ctx, id)
}

// ResolveWallet finds the wallet belonging to a user or company
func (s *Service) ResolveWallet(ctx context.Context, ownerType OwnerType, ownerID int64) (*Wallet, error) {
	return s.repo.GetWalletByOwner(ctx, ownerType, ownerID)
}

// ListTransactions pages through a wallet's transaction history
func (s *Service) ListTransactions(ctx context.Context, walletID int64, page, pageSize int) ([]*WalletTransaction, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.repo.ListTransactions(ctx, walletID, pageSize, (page-1)*pageSize)
}
