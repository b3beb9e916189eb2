package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OwnerType discriminates wallet holders
type OwnerType string

const (
	OwnerTypeUser    OwnerType = "user"
	OwnerTypeCompany OwnerType = "company"
)

// Direction of a transaction record relative to its wallet
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// Wallet is one balance per user or company. Balance never goes negative;
// every mutation goes through Repository.Transfer. The table is migrated by
// gorm alongside the rest of the schema; the sqlx repository addresses the
// same columns by name.
type Wallet struct {
	ID            int64           `db:"id" gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerType     OwnerType       `db:"owner_type" gorm:"not null;uniqueIndex:idx_wallet_owner" json:"owner_type"`
	OwnerID       int64           `db:"owner_id" gorm:"not null;uniqueIndex:idx_wallet_owner" json:"owner_id"`
	Balance       decimal.Decimal `db:"balance" gorm:"type:decimal(18,2);not null;default:0" json:"balance"`
	CreditBalance decimal.Decimal `db:"credit_balance" gorm:"type:decimal(18,6);not null;default:0" json:"credit_balance"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// TableName specifies the table name
func (Wallet) TableName() string {
	return "wallets"
}

// WalletTransaction is one side of a completed transfer, written inside the
// same database transaction as the balance updates.
type WalletTransaction struct {
	ID                   uuid.UUID       `db:"id" gorm:"type:uuid;primaryKey" json:"id"`
	WalletID             int64           `db:"wallet_id" gorm:"not null;index" json:"wallet_id"`
	CounterpartyWalletID int64           `db:"counterparty_wallet_id" gorm:"not null" json:"counterparty_wallet_id"`
	Direction            Direction       `db:"direction" gorm:"not null" json:"direction"`
	Amount               decimal.Decimal `db:"amount" gorm:"type:decimal(18,2);not null" json:"amount"`
	Reason               string          `db:"reason" json:"reason"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
}

// TableName specifies the table name
func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}

// TransferResult summarises a completed transfer
type TransferResult struct {
	TransactionID  uuid.UUID       `json:"transaction_id"`
	SourceWalletID int64           `json:"source_wallet_id"`
	DestWalletID   int64           `json:"dest_wallet_id"`
	Amount         decimal.Decimal `json:"amount"`
	SourceBalance  decimal.Decimal `json:"source_balance"`
	DestBalance    decimal.Decimal `json:"dest_balance"`
	Reason         string          `json:"reason"`
	CreatedAt      time.Time       `json:"created_at"`
}
