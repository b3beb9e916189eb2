package ledger

import "errors"

var (
	// ErrInvalidAmount rejects zero or negative transfer amounts.
	ErrInvalidAmount = errors.New("transfer amount must be positive")
	// ErrInsufficientFunds rejects a transfer the source balance cannot cover.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrWalletNotFound indicates a missing source or destination wallet.
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrSameWallet rejects a transfer from a wallet to itself.
	ErrSameWallet = errors.New("source and destination wallets are identical")
)
