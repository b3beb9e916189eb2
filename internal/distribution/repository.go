package distribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Repository defines data access for distribution rounds and their details
type Repository interface {
	Create(ctx context.Context, dist *ProfitDistribution) error
	GetByID(ctx context.Context, id int64) (*ProfitDistribution, error)
	MarkCompleted(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string) error
	CreateDetail(ctx context.Context, detail *ProfitDistributionDetail) error
	ListDetails(ctx context.Context, distributionID int64, page, pageSize int) ([]*ProfitDistributionDetail, int64, error)
	ListStale(ctx context.Context, olderThan time.Time) ([]*ProfitDistribution, error)
}

// GormRepository implements Repository on PostgreSQL
type GormRepository struct {
	db *gorm.DB
}

// NewRepository creates a new distribution repository
func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, dist *ProfitDistribution) error {
	if err := r.db.WithContext(ctx).Create(dist).Error; err != nil {
		return fmt.Errorf("failed to create distribution: %w", err)
	}
	return nil
}

func (r *GormRepository) GetByID(ctx context.Context, id int64) (*ProfitDistribution, error) {
	var dist ProfitDistribution
	if err := r.db.WithContext(ctx).First(&dist, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load distribution %d: %w", id, err)
	}
	return &dist, nil
}

func (r *GormRepository) MarkCompleted(ctx context.Context, id int64) error {
	now := time.Now()
	err := r.db.WithContext(ctx).
		Model(&ProfitDistribution{}).
		Where("id = ? AND status = ?", id, StatusProcessing).
		Updates(map[string]interface{}{"status": StatusCompleted, "completed_at": now}).Error
	if err != nil {
		return fmt.Errorf("failed to complete distribution %d: %w", id, err)
	}
	return nil
}

func (r *GormRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	now := time.Now()
	err := r.db.WithContext(ctx).
		Model(&ProfitDistribution{}).
		Where("id = ? AND status = ?", id, StatusProcessing).
		Updates(map[string]interface{}{
			"status":        StatusFailed,
			"error_message": reason,
			"completed_at":  now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to fail distribution %d: %w", id, err)
	}
	return nil
}

func (r *GormRepository) CreateDetail(ctx context.Context, detail *ProfitDistributionDetail) error {
	if err := r.db.WithContext(ctx).Create(detail).Error; err != nil {
		return fmt.Errorf("failed to create distribution detail: %w", err)
	}
	return nil
}

func (r *GormRepository) ListDetails(ctx context.Context, distributionID int64, page, pageSize int) ([]*ProfitDistributionDetail, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&ProfitDistributionDetail{}).
		Where("distribution_id = ?", distributionID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count details: %w", err)
	}

	var out []*ProfitDistributionDetail
	err := query.Order("id").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&out).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list details: %w", err)
	}
	return out, total, nil
}

// ListStale returns rounds still marked processing past the given deadline,
// used by the reaper worker.
func (r *GormRepository) ListStale(ctx context.Context, olderThan time.Time) ([]*ProfitDistribution, error) {
	var out []*ProfitDistribution
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", StatusProcessing, olderThan).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale distributions: %w", err)
	}
	return out, nil
}
