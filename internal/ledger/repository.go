package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Repository is the only code path permitted to mutate wallet balances
type Repository interface {
	GetWallet(ctx context.Context, id int64) (*Wallet, error)
	GetWalletByOwner(ctx context.Context, ownerType OwnerType, ownerID int64) (*Wallet, error)
	Transfer(ctx context.Context, sourceID, destID int64, amount decimal.Decimal, reason string) (*TransferResult, error)
	ListTransactions(ctx context.Context, walletID int64, limit, offset int) ([]*WalletTransaction, error)
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new ledger repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetWallet(ctx context.Context, id int64) (*Wallet, error) {
	var wallet Wallet
	err := r.db.GetContext(ctx, &wallet,
		`SELECT id, owner_type, owner_id, balance, credit_balance, created_at, updated_at
		 FROM wallets WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to load wallet %d: %w", id, err)
	}
	return &wallet, nil
}

func (r *PostgresRepository) GetWalletByOwner(ctx context.Context, ownerType OwnerType, ownerID int64) (*Wallet, error) {
	var wallet Wallet
	err := r.db.GetContext(ctx, &wallet,
		`SELECT id, owner_type, owner_id, balance, credit_balance, created_at, updated_at
		 FROM wallets WHERE owner_type = $1 AND owner_id = $2`, ownerType, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to load wallet for %s %d: %w", ownerType, ownerID, err)
	}
	return &wallet, nil
}

// Transfer atomically moves amount from sourceID to destID and records one
// transaction row per side. Both wallet rows are locked in ascending id order
// so concurrent transfers touching the same pair cannot deadlock; writers to
// disjoint wallets do not block each other.
func (r *PostgresRepository) Transfer(ctx context.Context, sourceID, destID int64, amount decimal.Decimal, reason string) (result *TransferResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transfer: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked []Wallet
	err = tx.SelectContext(ctx, &locked,
		`SELECT id, owner_type, owner_id, balance, credit_balance, created_at, updated_at
		 FROM wallets WHERE id IN ($1, $2) ORDER BY id FOR UPDATE`, sourceID, destID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallets %d, %d: %w", sourceID, destID, err)
	}
	if len(locked) != 2 {
		return nil, ErrWalletNotFound
	}

	var source, dest *Wallet
	for i := range locked {
		switch locked[i].ID {
		case sourceID:
			source = &locked[i]
		case destID:
			dest = &locked[i]
		}
	}
	if source == nil || dest == nil {
		return nil, ErrWalletNotFound
	}
	if source.Balance.LessThan(amount) {
		return nil, ErrInsufficientFunds
	}

	now := time.Now()
	newSourceBalance := source.Balance.Sub(amount)
	newDestBalance := dest.Balance.Add(amount)

	if _, err = tx.ExecContext(ctx,
		`UPDATE wallets SET balance = $1, updated_at = $2 WHERE id = $3`,
		newSourceBalance, now, sourceID); err != nil {
		return nil, fmt.Errorf("failed to debit wallet %d: %w", sourceID, err)
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE wallets SET balance = $1, updated_at = $2 WHERE id = $3`,
		newDestBalance, now, destID); err != nil {
		return nil, fmt.Errorf("failed to credit wallet %d: %w", destID, err)
	}

	txnID := uuid.New()
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_transactions (id, wallet_id, counterparty_wallet_id, direction, amount, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		txnID, sourceID, destID, DirectionDebit, amount, reason, now); err != nil {
		return nil, fmt.Errorf("failed to record debit: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_transactions (id, wallet_id, counterparty_wallet_id, direction, amount, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), destID, sourceID, DirectionCredit, amount, reason, now); err != nil {
		return nil, fmt.Errorf("failed to record credit: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transfer: %w", err)
	}

	return &TransferResult{
		TransactionID:  txnID,
		SourceWalletID: sourceID,
		DestWalletID:   destID,
		Amount:         amount,
		SourceBalance:  newSourceBalance,
		DestBalance:    newDestBalance,
		Reason:         reason,
		CreatedAt:      now,
	}, nil
}

func (r *PostgresRepository) ListTransactions(ctx context.Context, walletID int64, limit, offset int) ([]*WalletTransaction, error) {
	var out []*WalletTransaction
	err := r.db.SelectContext(ctx, &out,
		`SELECT id, wallet_id, counterparty_wallet_id, direction, amount, reason, created_at
		 FROM wallet_transactions WHERE wallet_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, walletID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for wallet %d: %w", walletID, err)
	}
	return out, nil
}
