package credits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/reports"
)

// IssuanceSpec carries everything the repository needs to materialize one
// batch atomically. Serial allocation happens inside the same transaction.
type IssuanceSpec struct {
	ReportID      int64
	CompanyID     int64
	ProjectID     int64
	CompanyCode   string
	ProjectCode   string
	VintageYear   int
	UnitCount     int64
	TotalQuantity decimal.Decimal
	Residual      decimal.Decimal
	IssuedBy      int64
}

// BatchFilter narrows batch listings
type BatchFilter struct {
	CompanyID *int64
	ProjectID *int64
	Page      int
	PageSize  int
}

// CreditFilter narrows credit listings
type CreditFilter struct {
	BatchID   *int64
	CompanyID *int64
	Status    *CreditStatus
	Page      int
	PageSize  int
}

// Repository defines data access for batches and minted credits
type Repository interface {
	CreateIssuance(ctx context.Context, spec IssuanceSpec) (*CreditBatch, error)
	GetBatchByReportID(ctx context.Context, reportID int64) (*CreditBatch, error)
	GetBatchByID(ctx context.Context, id int64) (*CreditBatch, error)
	ListBatches(ctx context.Context, filter BatchFilter) ([]*CreditBatch, int64, error)
	GetCreditByID(ctx context.Context, id int64) (*CarbonCredit, error)
	ListCredits(ctx context.Context, filter CreditFilter) ([]*CarbonCredit, int64, error)
	SetCertificateKey(ctx context.Context, batchID int64, key string) error
}

// GormRepository implements Repository on PostgreSQL
type GormRepository struct {
	db *gorm.DB
}

// NewRepository creates a new credits repository
func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

const creditInsertChunk = 500

// CreateIssuance reserves a serial range, persists the batch and its credits
// and advances the report to credit-issued, all in one transaction. Any
// failure rolls the reservation back with the rest.
func (r *GormRepository) CreateIssuance(ctx context.Context, spec IssuanceSpec) (*CreditBatch, error) {
	var batch *CreditBatch

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		from, to, err := NewGormAllocator(tx).Allocate(ctx, spec.ProjectID, spec.CompanyID, spec.VintageYear, spec.UnitCount)
		if err != nil {
			return err
		}

		now := time.Now()
		batch = &CreditBatch{
			ReportID:      spec.ReportID,
			CompanyID:     spec.CompanyID,
			ProjectID:     spec.ProjectID,
			VintageYear:   spec.VintageYear,
			BatchCode:     BuildBatchCode(spec.VintageYear, spec.CompanyCode, spec.ProjectCode, from, to),
			SerialPrefix:  SerialPrefix(spec.VintageYear, spec.CompanyCode, spec.ProjectCode),
			SerialFrom:    from,
			SerialTo:      to,
			TotalQuantity: spec.TotalQuantity,
			UnitCount:     spec.UnitCount,
			Residual:      spec.Residual,
			Status:        BatchStatusIssued,
			IssuedBy:      spec.IssuedBy,
			IssuedAt:      now,
		}
		if err := tx.Create(batch).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyIssued
			}
			return fmt.Errorf("failed to create batch: %w", err)
		}

		one := decimal.NewFromInt(1)
		creditRows := make([]CarbonCredit, 0, spec.UnitCount)
		for serial := from; serial <= to; serial++ {
			creditRows = append(creditRows, CarbonCredit{
				BatchID:           batch.ID,
				CompanyID:         spec.CompanyID,
				ProjectID:         spec.ProjectID,
				Code:              BuildCreditCode(spec.VintageYear, spec.CompanyCode, spec.ProjectCode, serial),
				Serial:            serial,
				Status:            CreditStatusAvailable,
				AvailableQuantity: one,
				ListedQuantity:    decimal.Zero,
				TotalQuantity:     one,
			})
		}
		if err := tx.CreateInBatches(creditRows, creditInsertChunk).Error; err != nil {
			return fmt.Errorf("failed to mint credits: %w", err)
		}

		res := tx.Model(&reports.EmissionReport{}).
			Where("id = ? AND status = ?", spec.ReportID, reports.StatusAdminApproved).
			Update("status", reports.StatusCreditIssued)
		if res.Error != nil {
			return fmt.Errorf("failed to mark report issued: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// Lost a race with another reviewer action.
			return ErrReportNotApproved
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func (r *GormRepository) GetBatchByReportID(ctx context.Context, reportID int64) (*CreditBatch, error) {
	var batch CreditBatch
	err := r.db.WithContext(ctx).Where("report_id = ?", reportID).First(&batch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load batch for report %d: %w", reportID, err)
	}
	return &batch, nil
}

func (r *GormRepository) GetBatchByID(ctx context.Context, id int64) (*CreditBatch, error) {
	var batch CreditBatch
	if err := r.db.WithContext(ctx).First(&batch, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load batch %d: %w", id, err)
	}
	return &batch, nil
}

func (r *GormRepository) ListBatches(ctx context.Context, filter BatchFilter) ([]*CreditBatch, int64, error) {
	query := r.db.WithContext(ctx).Model(&CreditBatch{})
	if filter.CompanyID != nil {
		query = query.Where("company_id = ?", *filter.CompanyID)
	}
	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count batches: %w", err)
	}

	var out []*CreditBatch
	err := query.Order("issued_at DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&out).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list batches: %w", err)
	}
	return out, total, nil
}

func (r *GormRepository) GetCreditByID(ctx context.Context, id int64) (*CarbonCredit, error) {
	var credit CarbonCredit
	if err := r.db.WithContext(ctx).First(&credit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load credit %d: %w", id, err)
	}
	return &credit, nil
}

func (r *GormRepository) ListCredits(ctx context.Context, filter CreditFilter) ([]*CarbonCredit, int64, error) {
	query := r.db.WithContext(ctx).Model(&CarbonCredit{})
	if filter.BatchID != nil {
		query = query.Where("batch_id = ?", *filter.BatchID)
	}
	if filter.CompanyID != nil {
		query = query.Where("company_id = ?", *filter.CompanyID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count credits: %w", err)
	}

	var out []*CarbonCredit
	err := query.Order("serial").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&out).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list credits: %w", err)
	}
	return out, total, nil
}

func (r *GormRepository) SetCertificateKey(ctx context.Context, batchID int64, key string) error {
	err := r.db.WithContext(ctx).
		Model(&CreditBatch{}).
		Where("id = ?", batchID).
		Update("certificate_key", key).Error
	if err != nil {
		return fmt.Errorf("failed to set certificate key on batch %d: %w", batchID, err)
	}
	return nil
}
