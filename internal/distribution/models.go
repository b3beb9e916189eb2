package distribution

import (
	"time"

	"github.com/shopspring/decimal"
)

// DistributionStatus is the round-level status
type DistributionStatus string

const (
	StatusProcessing DistributionStatus = "processing"
	StatusCompleted  DistributionStatus = "completed"
	StatusFailed     DistributionStatus = "failed"
)

// DetailStatus is the per-contributor outcome
type DetailStatus string

const (
	DetailSuccess DetailStatus = "success"
	DetailFailed  DetailStatus = "failed"
)

// ShareFormula selects the contribution metric used to weight payouts
type ShareFormula string

const (
	// FormulaEnergy weights owners by charged energy (kWh). Default.
	FormulaEnergy ShareFormula = "ENERGY"
	// FormulaCredits weights owners by CO2-equivalent contribution.
	FormulaCredits ShareFormula = "CREDITS"
)

// ProfitDistribution is one payout round initiated by a company. Rounds are
// immutable history once they leave the processing state.
type ProfitDistribution struct {
	ID           int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	CompanyID    int64              `gorm:"not null;index" json:"company_id"`
	InitiatedBy  int64              `gorm:"not null" json:"initiated_by"`
	ReportID     *int64             `gorm:"index" json:"report_id"`
	TotalAmount  decimal.Decimal    `gorm:"type:decimal(18,2);not null" json:"total_amount"`
	Formula      ShareFormula       `gorm:"not null;default:'ENERGY'" json:"formula"`
	Status       DistributionStatus `gorm:"not null;default:'processing';index" json:"status"`
	Description  string             `json:"description"`
	ErrorMessage string             `json:"error_message,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	CompletedAt  *time.Time         `json:"completed_at"`
}

// TableName specifies the table name
func (ProfitDistribution) TableName() string {
	return "profit_distributions"
}

// ProfitDistributionDetail is one per-contributor outcome within a round.
// Rows are append-only: written exactly once, never mutated.
type ProfitDistributionDetail struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	DistributionID int64           `gorm:"not null;index" json:"distribution_id"`
	OwnerID        int64           `gorm:"not null;index" json:"owner_id"`
	AmountMoney    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount_money"`
	AmountEnergy   decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"amount_energy"`
	Status         DetailStatus    `gorm:"not null" json:"status"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`

	Distribution ProfitDistribution `gorm:"foreignKey:DistributionID" json:"-"`
}

// TableName specifies the table name
func (ProfitDistributionDetail) TableName() string {
	return "profit_distribution_details"
}

// ShareRequest is the payload of a distribution round
type ShareRequest struct {
	CompanyID   int64           `json:"company_id"`
	InitiatedBy int64           `json:"initiated_by"`
	ReportID    *int64          `json:"report_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Formula     ShareFormula    `json:"formula"`
	Description string          `json:"description"`
}
