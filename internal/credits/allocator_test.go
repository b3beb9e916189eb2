package credits

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAllocatorSequentialRanges(t *testing.T) {
	allocator := NewMemoryAllocator()
	ctx := context.Background()

	from, to, err := allocator.Allocate(ctx, 1, 1, 2025, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), from)
	assert.Equal(t, int64(100), to)

	from, to, err = allocator.Allocate(ctx, 1, 1, 2025, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(101), from)
	assert.Equal(t, int64(150), to)
}

func TestMemoryAllocatorScopesAreIndependent(t *testing.T) {
	allocator := NewMemoryAllocator()
	ctx := context.Background()

	from, _, err := allocator.Allocate(ctx, 1, 1, 2025, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), from)

	// Different vintage year starts its own sequence.
	from, _, err = allocator.Allocate(ctx, 1, 1, 2026, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), from)

	// Different project likewise.
	from, _, err = allocator.Allocate(ctx, 2, 1, 2025, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), from)
}

func TestMemoryAllocatorRejectsInvalidCount(t *testing.T) {
	allocator := NewMemoryAllocator()

	_, _, err := allocator.Allocate(context.Background(), 1, 1, 2025, 0)
	assert.ErrorIs(t, err, ErrInvalidCount)

	_, _, err = allocator.Allocate(context.Background(), 1, 1, 2025, -3)
	assert.ErrorIs(t, err, ErrInvalidCount)
}

// Concurrent callers must never receive overlapping ranges and must cover the
// serial space without double assignment.
func TestMemoryAllocatorConcurrentUniqueness(t *testing.T) {
	allocator := NewMemoryAllocator()
	ctx := context.Background()

	const callers = 50
	const perCall = 20

	type allocated struct{ from, to int64 }
	results := make([]allocated, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			from, to, err := allocator.Allocate(ctx, 7, 3, 2025, perCall)
			assert.NoError(t, err)
			results[i] = allocated{from: from, to: to}
		}()
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for _, r := range results {
		require.Equal(t, int64(perCall), r.to-r.from+1)
		for serial := r.from; serial <= r.to; serial++ {
			assert.False(t, seen[serial], "serial %d assigned twice", serial)
			seen[serial] = true
		}
	}
	assert.Len(t, seen, callers*perCall)
}
