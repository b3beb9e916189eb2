package vehicles

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Resolver maps vehicle plates to registered owner accounts. Plates missing
// from the result are the "unregistered" class: their share of a payout pool
// stays with the company.
type Resolver interface {
	ResolveOwners(ctx context.Context, plates []string) (map[string]int64, error)
}

// GormResolver implements Resolver on PostgreSQL
type GormResolver struct {
	db *gorm.DB
}

// NewResolver creates a new vehicle ownership resolver
func NewResolver(db *gorm.DB) *GormResolver {
	return &GormResolver{db: db}
}

func (r *GormResolver) ResolveOwners(ctx context.Context, plates []string) (map[string]int64, error) {
	owners := make(map[string]int64, len(plates))
	if len(plates) == 0 {
		return owners, nil
	}

	var rows []Vehicle
	err := r.db.WithContext(ctx).
		Where("plate IN ? AND owner_id IS NOT NULL", plates).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vehicle owners: %w", err)
	}

	for _, v := range rows {
		owners[v.Plate] = *v.OwnerID
	}
	return owners, nil
}
