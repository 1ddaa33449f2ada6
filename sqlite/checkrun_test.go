package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/minute-repeater/restocked"
	"github.com/minute-repeater/restocked/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckRunService(t *testing.T) {
	t.Parallel()

	t.Run("creates and finds check runs", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewCheckRunService(db)
		ctx := context.Background()

		run := &restocked.CheckRun{
			TrackedItemID: "item-1",
			URL:           "https://shop.example.com/widget",
			Success:       true,
		}
		require.NoError(t, svc.CreateCheckRun(ctx, run))
		assert.NotEmpty(t, run.ID)
		assert.False(t, run.CheckedAt.IsZero())

		require.NoError(t, svc.CreateCheckRun(ctx, &restocked.CheckRun{
			TrackedItemID: "item-2",
			URL:           "https://shop.example.com/gadget",
			Success:       false,
			Error:         "fetch timed out",
		}))

		itemID := "item-1"
		found, err := svc.FindCheckRuns(ctx, restocked.CheckRunFilter{TrackedItemID: &itemID})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.True(t, found[0].Success)

		all, err := svc.FindCheckRuns(ctx, restocked.CheckRunFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("returns EINVALID for missing URL", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewCheckRunService(db)

		err := svc.CreateCheckRun(context.Background(), &restocked.CheckRun{})
		assert.Equal(t, restocked.EINVALID, restocked.ErrorCode(err))
	})

	t.Run("computes success rate", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewCheckRunService(db)
		ctx := context.Background()

		for i, success := range []bool{true, true, true, false} {
			require.NoError(t, svc.CreateCheckRun(ctx, &restocked.CheckRun{
				TrackedItemID: "item-1",
				URL:           "https://shop.example.com/widget",
				Success:       success,
				CheckedAt:     time.Now().UTC().Add(time.Duration(i) * time.Millisecond),
			}))
		}

		rate, err := svc.SuccessRate(ctx, time.Now().UTC().Add(-time.Hour))
		require.NoError(t, err)
		assert.InDelta(t, 0.75, rate, 0.001)
	})

	t.Run("success rate is zero without runs", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewCheckRunService(db)

		rate, err := svc.SuccessRate(context.Background(), time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Zero(t, rate)
	})
}
