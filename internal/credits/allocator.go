package credits

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"
)

// ErrInvalidCount rejects allocation requests for zero or negative ranges.
var ErrInvalidCount = errors.New("allocation count must be positive")

// SerialAllocator hands out non-overlapping serial ranges scoped to
// (project, company, vintage year). Allocation is atomic: a failed call
// consumes nothing, and concurrent callers never receive overlapping ranges.
type SerialAllocator interface {
	Allocate(ctx context.Context, projectID, companyID int64, vintageYear int, count int64) (from, to int64, err error)
}

// GormAllocator advances a per-scope counter row with a single upsert, so
// two issuances can never read the same starting serial. The handle may be
// an open transaction; the issuance path constructs one over its own tx so
// a failed issuance rolls the reservation back with everything else.
type GormAllocator struct {
	db *gorm.DB
}

// NewGormAllocator creates a database-backed serial allocator
func NewGormAllocator(db *gorm.DB) *GormAllocator {
	return &GormAllocator{db: db}
}

func (a *GormAllocator) Allocate(ctx context.Context, projectID, companyID int64, vintageYear int, count int64) (int64, int64, error) {
	if count <= 0 {
		return 0, 0, ErrInvalidCount
	}

	var to int64
	err := a.db.WithContext(ctx).Raw(`
		INSERT INTO credit_serial_counters (project_id, company_id, vintage_year, last_serial)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (project_id, company_id, vintage_year)
		DO UPDATE SET last_serial = credit_serial_counters.last_serial + EXCLUDED.last_serial
		RETURNING last_serial`,
		projectID, companyID, vintageYear, count).Scan(&to).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to reserve serial range: %w", err)
	}

	return to - count + 1, to, nil
}

// MemoryAllocator is an in-process allocator for tests and single-node
// deployments without a shared counter store.
type MemoryAllocator struct {
	mu       sync.Mutex
	counters map[serialScope]int64
}

type serialScope struct {
	projectID   int64
	companyID   int64
	vintageYear int
}

// NewMemoryAllocator creates an empty in-memory allocator
func NewMemoryAllocator() *MemoryAllocator {
	return &MemoryAllocator{counters: make(map[serialScope]int64)}
}

func (a *MemoryAllocator) Allocate(_ context.Context, projectID, companyID int64, vintageYear int, count int64) (int64, int64, error) {
	if count <= 0 {
		return 0, 0, ErrInvalidCount
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	scope := serialScope{projectID: projectID, companyID: companyID, vintageYear: vintageYear}
	from := a.counters[scope] + 1
	to := from + count - 1
	a.counters[scope] = to
	return from, to, nil
}
