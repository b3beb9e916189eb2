package reports

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/pkg/workflows"
)

// ErrInvalidTransition is returned when a status update would skip or reverse
// a stage of the review chain.
var ErrInvalidTransition = errors.New("invalid report status transition")

// Repository defines data access for emission reports and their
// per-vehicle contribution detail
type Repository interface {
	GetByID(ctx context.Context, id int64) (*EmissionReport, error)
	ListByCompanyAndStatus(ctx context.Context, companyID int64, status ReportStatus) ([]*EmissionReport, error)
	UpdateStatus(ctx context.Context, id int64, status ReportStatus) error
	ListContributions(ctx context.Context, reportID int64) ([]*VehicleContribution, error)
}

// GormRepository implements Repository on PostgreSQL
type GormRepository struct {
	db *gorm.DB
	sm *workflows.StateMachine
}

// NewRepository creates a new reports repository
func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{
		db: db,
		sm: workflows.NewReportStateMachine(),
	}
}

func (r *GormRepository) GetByID(ctx context.Context, id int64) (*EmissionReport, error) {
	var report EmissionReport
	if err := r.db.WithContext(ctx).First(&report, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load report %d: %w", id, err)
	}
	return &report, nil
}

func (r *GormRepository) ListByCompanyAndStatus(ctx context.Context, companyID int64, status ReportStatus) ([]*EmissionReport, error) {
	var out []*EmissionReport
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND status = ?", companyID, status).
		Order("id").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reports for company %d: %w", companyID, err)
	}
	return out, nil
}

// UpdateStatus moves a report forward in its lifecycle. The state machine
// guard and the WHERE clause on the current status together make the update
// safe under concurrent writers: a lost race affects zero rows.
func (r *GormRepository) UpdateStatus(ctx context.Context, id int64, status ReportStatus) error {
	report, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if report == nil {
		return gorm.ErrRecordNotFound
	}
	if !r.sm.CanTransition(string(report.Status), string(status)) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, report.Status, status)
	}

	res := r.db.WithContext(ctx).
		Model(&EmissionReport{}).
		Where("id = ? AND status = ?", id, report.Status).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update report %d status: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: report %d changed concurrently", ErrInvalidTransition, id)
	}
	return nil
}

func (r *GormRepository) ListContributions(ctx context.Context, reportID int64) ([]*VehicleContribution, error) {
	var out []*VehicleContribution
	err := r.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("id").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions for report %d: %w", reportID, err)
	}
	return out, nil
}
