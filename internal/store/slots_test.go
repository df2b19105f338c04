package store

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := NewDB(filepath.Join(t.TempDir(), "slots.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedTimes(n int) []time.Time {
	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	times := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		times = append(times, base.Add(time.Duration(i)*time.Hour))
	}
	return times
}

func TestListAvailable(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		slots, err := db.ListAvailable(ctx, 4)
		require.NoError(t, err)
		assert.Empty(t, slots)
	})

	require.NoError(t, db.SeedSlots(ctx, seedTimes(6)))

	t.Run("limit applied", func(t *testing.T) {
		slots, err := db.ListAvailable(ctx, 4)
		require.NoError(t, err)
		assert.Len(t, slots, 4)
	})

	t.Run("ordered by time", func(t *testing.T) {
		slots, err := db.ListAvailable(ctx, 0)
		require.NoError(t, err)
		require.Len(t, slots, 6)
		for i := 1; i < len(slots); i++ {
			assert.True(t, slots[i-1].SlotTime.Before(slots[i].SlotTime))
		}
	})

	t.Run("listing does not mutate", func(t *testing.T) {
		first, err := db.ListAvailable(ctx, 0)
		require.NoError(t, err)
		second, err := db.ListAvailable(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestReserve(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.SeedSlots(ctx, seedTimes(2)))

	slots, err := db.ListAvailable(ctx, 2)
	require.NoError(t, err)
	require.Len(t, slots, 2)

	t.Run("first reserve wins", func(t *testing.T) {
		ok, err := db.Reserve(ctx, slots[0].ID, "CA123")
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := db.GetSlot(ctx, slots[0].ID)
		require.NoError(t, err)
		assert.True(t, got.Booked)
		assert.Equal(t, "CA123", got.Holder())
	})

	t.Run("second reserve on same slot fails", func(t *testing.T) {
		ok, err := db.Reserve(ctx, slots[0].ID, "CA456")
		require.NoError(t, err)
		assert.False(t, ok)

		// Holder reference never overwritten.
		got, err := db.GetSlot(ctx, slots[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "CA123", got.Holder())
	})

	t.Run("reserved slot leaves the listing", func(t *testing.T) {
		available, err := db.ListAvailable(ctx, 0)
		require.NoError(t, err)
		require.Len(t, available, 1)
		assert.Equal(t, slots[1].ID, available[0].ID)
	})

	t.Run("unknown slot", func(t *testing.T) {
		ok, err := db.Reserve(ctx, 9999, "CA789")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestReserveMutualExclusion(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.SeedSlots(ctx, seedTimes(1)))

	slots, err := db.ListAvailable(ctx, 1)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	slotID := slots[0].ID

	const callers = 20
	var wg sync.WaitGroup
	winners := make(chan string, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(holder string) {
			defer wg.Done()
			ok, err := db.Reserve(ctx, slotID, holder)
			if err != nil {
				t.Errorf("reserve failed: %v", err)
				return
			}
			if ok {
				winners <- holder
			}
		}(fmt.Sprintf("CA%04d", i))
	}
	wg.Wait()
	close(winners)

	var won []string
	for w := range winners {
		won = append(won, w)
	}
	require.Len(t, won, 1, "exactly one caller must win the slot")

	got, err := db.GetSlot(ctx, slotID)
	require.NoError(t, err)
	assert.True(t, got.Booked)
	assert.Equal(t, won[0], got.Holder())
}

func TestGetSlot(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.GetSlot(ctx, 42)
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestListBookedAndCount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.SeedSlots(ctx, seedTimes(3)))

	slots, err := db.ListAvailable(ctx, 3)
	require.NoError(t, err)

	ok, err := db.Reserve(ctx, slots[1].ID, "CA001")
	require.NoError(t, err)
	require.True(t, ok)

	booked, err := db.ListBooked(ctx)
	require.NoError(t, err)
	require.Len(t, booked, 1)
	assert.Equal(t, slots[1].ID, booked[0].ID)

	count, err := db.CountAvailable(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
