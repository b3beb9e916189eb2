package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportStatus represents the lifecycle status of an emission report
type ReportStatus string

const (
	StatusSubmitted     ReportStatus = "submitted"
	StatusCvaApproved   ReportStatus = "cva-approved"
	StatusAdminApproved ReportStatus = "admin-approved"
	StatusCreditIssued  ReportStatus = "credit-issued"
	StatusApproved      ReportStatus = "approved"
	StatusPaidOut       ReportStatus = "paid-out"
	StatusRejected      ReportStatus = "rejected"
)

// EmissionReport is one verified charging-data submission for a
// (company, project, period). It is created by the upload workflow and only
// ever moves forward through the review chain.
type EmissionReport struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CompanyID      int64           `gorm:"not null;index" json:"company_id"`
	ProjectID      int64           `gorm:"not null;index" json:"project_id"`
	Period         string          `gorm:"not null" json:"period"` // e.g. "2025-Q1"
	TotalEnergyKwh decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"total_energy_kwh"`
	TotalCo2Kg     decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"total_co2_kg"`
	Status         ReportStatus    `gorm:"not null;default:'submitted';index" json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TableName specifies the table name
func (EmissionReport) TableName() string {
	return "emission_reports"
}

// VehicleContribution is one vehicle's verified share of a report's totals.
// Rows are written by the verification workflow and read by the profit
// distribution engine.
type VehicleContribution struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ReportID  int64           `gorm:"not null;index" json:"report_id"`
	Plate     string          `gorm:"not null;index" json:"plate"`
	EnergyKwh decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"energy_kwh"`
	Co2Kg     decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"co2_kg"`
	CreatedAt time.Time       `json:"created_at"`

	Report EmissionReport `gorm:"foreignKey:ReportID" json:"-"`
}

// TableName specifies the table name
func (VehicleContribution) TableName() string {
	return "vehicle_contributions"
}
