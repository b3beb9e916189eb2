package accounts

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Repository reads companies and users for code resolution and notifications
type Repository interface {
	GetCompany(ctx context.Context, id int64) (*Company, error)
	GetUser(ctx context.Context, id int64) (*User, error)
}

// GormRepository implements Repository on PostgreSQL
type GormRepository struct {
	db *gorm.DB
}

// NewRepository creates a new accounts repository
func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) GetCompany(ctx context.Context, id int64) (*Company, error) {
	var company Company
	if err := r.db.WithContext(ctx).First(&company, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load company %d: %w", id, err)
	}
	return &company, nil
}

func (r *GormRepository) GetUser(ctx context.Context, id int64) (*User, error) {
	var user User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load user %d: %w", id, err)
	}
	return &user, nil
}
