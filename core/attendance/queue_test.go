package attendance

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/rollcall/services/logger"
	"github.com/trezcool/rollcall/storage/database/inmem"
)

func pendingIDs(items []PendingWrite) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

func TestQueue(t *testing.T) {
	ctx := context.Background()
	store := inmemdb.NewKVStore()
	logger := logsvc.NewConsoleLoggerMock()
	q := NewQueue(store, prefix, logger)

	items, err := q.DrainAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	for i, id := range []string{"p1", "p2", "p3"} {
		require.NoError(t, q.Enqueue(ctx, pendingWrite(id, assignmentID, ModeSubmit, testNow.Add(time.Duration(i)*time.Minute))))
	}

	t.Run("stored newest first", func(t *testing.T) {
		data, err := store.Get(ctx, "rollcall:attendance:queue")
		require.NoError(t, err)
		var stored []PendingWrite
		require.NoError(t, json.Unmarshal(data, &stored))
		assert.Equal(t, []string{"p3", "p2", "p1"}, pendingIDs(stored))
		assert.Equal(t, FormatVersion, stored[0].Version)
	})

	t.Run("drained oldest first", func(t *testing.T) {
		items, err := q.DrainAll(ctx)
		require.NoError(t, err)
		if diff := cmp.Diff([]string{"p1", "p2", "p3"}, pendingIDs(items)); diff != "" {
			t.Errorf("DrainAll() order mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, 3, queueLen(t, q))
	})

	t.Run("durable across instances", func(t *testing.T) {
		items, err := NewQueue(store, prefix, logger).DrainAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"p1", "p2", "p3"}, pendingIDs(items))
	})

	t.Run("remove keeps order", func(t *testing.T) {
		require.NoError(t, q.Remove(ctx, "p2", "unknown"))
		items, err := q.DrainAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"p1", "p3"}, pendingIDs(items))

		require.NoError(t, q.Remove(ctx))
		assert.Equal(t, 2, queueLen(t, q))
	})

	t.Run("id required", func(t *testing.T) {
		assert.Error(t, q.Enqueue(ctx, PendingWrite{Mode: ModeSubmit}))
	})
}

func TestQueue_UnknownVersionHoldsDrain(t *testing.T) {
	ctx := context.Background()
	store := inmemdb.NewKVStore()
	logger := logsvc.NewConsoleLoggerMock()
	q := NewQueue(store, prefix, logger)

	// newest first: p3, future, p1
	raw := `[
		{"v":1,"id":"p3","mode":"submit","payload":{"assignmentId":"A100"}},
		{"v":7,"id":"future","mode":"merge","payload":{"assignmentId":"A100"}},
		{"id":"p1","mode":"submit","payload":{"assignmentId":"A100"}}
	]`
	require.NoError(t, store.Set(ctx, "rollcall:attendance:queue", []byte(raw)))

	items, err := q.DrainAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, pendingIDs(items))
	assert.Equal(t, 1, items[0].Version)
	assert.Len(t, logger.Entries(logsvc.LevelWarn), 1)
	assert.Equal(t, 3, queueLen(t, q))
}

func TestQueue_ConcurrentEnqueue(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(inmemdb.NewKVStore(), prefix, logsvc.NewConsoleLoggerMock())

	const n = 20
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			errs <- q.Enqueue(ctx, pendingWrite("p"+string(rune('a'+i)), assignmentID, ModeSubmit, testNow))
		}(i)
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}
	assert.Equal(t, n, queueLen(t, q))
}
