package projects

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Repository reads projects for code resolution
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Project, error)
}

// GormRepository implements Repository on PostgreSQL
type GormRepository struct {
	db *gorm.DB
}

// NewRepository creates a new projects repository
func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) GetByID(ctx context.Context, id int64) (*Project, error) {
	var project Project
	if err := r.db.WithContext(ctx).First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load project %d: %w", id, err)
	}
	return &project, nil
}
