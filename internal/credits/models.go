package credits

import (
	"time"

	"github.com/shopspring/decimal"
)

// BatchStatus represents the lifecycle of an issuance batch
type BatchStatus string

const (
	BatchStatusIssued  BatchStatus = "issued"
	BatchStatusRetired BatchStatus = "retired"
)

// CreditStatus represents the lifecycle of one minted credit unit
type CreditStatus string

const (
	CreditStatusAvailable CreditStatus = "available"
	CreditStatusListed    CreditStatus = "listed"
	CreditStatusSold      CreditStatus = "sold"
	CreditStatusRetired   CreditStatus = "retired"
	CreditStatusExpired   CreditStatus = "expired"
	CreditStatusTraded    CreditStatus = "traded"
)

// CreditBatch is one issuance event for exactly one emission report. The
// unique index on ReportID enforces at-most-one batch per report.
type CreditBatch struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ReportID      int64           `gorm:"not null;uniqueIndex" json:"report_id"`
	CompanyID     int64           `gorm:"not null;index" json:"company_id"`
	ProjectID     int64           `gorm:"not null;index" json:"project_id"`
	VintageYear   int             `gorm:"not null;index" json:"vintage_year"`
	BatchCode     string          `gorm:"not null;uniqueIndex" json:"batch_code"`
	SerialPrefix  string          `gorm:"not null" json:"serial_prefix"`
	SerialFrom    int64           `gorm:"not null" json:"serial_from"`
	SerialTo      int64           `gorm:"not null" json:"serial_to"`
	TotalQuantity decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"total_quantity"`
	UnitCount     int64           `gorm:"not null" json:"unit_count"`
	Residual      decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"residual"`
	Status        BatchStatus     `gorm:"not null;default:'issued'" json:"status"`
	IssuedBy      int64           `gorm:"not null" json:"issued_by"`
	IssuedAt      time.Time       `json:"issued_at"`
	CertificateKey string         `json:"certificate_key"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName specifies the table name
func (CreditBatch) TableName() string {
	return "credit_batches"
}

// CarbonCredit is one minted unit belonging to a batch. Code is globally
// unique and immutable; available + listed never exceeds total.
type CarbonCredit struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	BatchID           int64           `gorm:"not null;index" json:"batch_id"`
	CompanyID         int64           `gorm:"not null;index" json:"company_id"`
	ProjectID         int64           `gorm:"not null;index" json:"project_id"`
	Code              string          `gorm:"not null;uniqueIndex" json:"code"`
	Serial            int64           `gorm:"not null" json:"serial"`
	Status            CreditStatus    `gorm:"not null;default:'available';index" json:"status"`
	AvailableQuantity decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"available_quantity"`
	ListedQuantity    decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0" json:"listed_quantity"`
	TotalQuantity     decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"total_quantity"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	Batch CreditBatch `gorm:"foreignKey:BatchID" json:"-"`
}

// TableName specifies the table name
func (CarbonCredit) TableName() string {
	return "carbon_credits"
}

// SerialCounter backs the serial allocator: one row per
// (project, company, vintage year) scope, advanced atomically.
type SerialCounter struct {
	ID          int64 `gorm:"primaryKey;autoIncrement"`
	ProjectID   int64 `gorm:"not null;uniqueIndex:idx_serial_scope"`
	CompanyID   int64 `gorm:"not null;uniqueIndex:idx_serial_scope"`
	VintageYear int   `gorm:"not null;uniqueIndex:idx_serial_scope"`
	LastSerial  int64 `gorm:"not null;default:0"`
}

// TableName specifies the table name
func (SerialCounter) TableName() string {
	return "credit_serial_counters"
}

// BatchSummary is returned to callers of IssueForReport
type BatchSummary struct {
	BatchID    int64  `json:"batch_id"`
	BatchCode  string `json:"batch_code"`
	UnitCount  int64  `json:"unit_count"`
	SerialFrom int64  `json:"serial_from"`
	SerialTo   int64  `json:"serial_to"`
}
