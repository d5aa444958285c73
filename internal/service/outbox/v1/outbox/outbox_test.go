package outbox_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/imellon/go-investa/internal/logger"
	"github.com/imellon/go-investa/internal/models/modelqueue"
	"github.com/imellon/go-investa/internal/models/modelstorage"
	"github.com/imellon/go-investa/internal/service/outbox/v1/outbox"
	"github.com/imellon/go-investa/internal/storage/v1/inkv"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *inkv.Storage {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return inkv.InitWithClient(rdb, logger.InitLog())
}

func TestOutbox_ShutdownDrainsCleanly(t *testing.T) {
	st := newTestStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	o := outbox.InitOutbox(ctx, st, logger.InitLog(), wg, 2, 3)
	o.ListenAndProcess()

	o.Enqueue(modelqueue.NotificationQueueEntry{
		UserID:       "u1",
		Notification: modelstorage.NotificationDocument{ID: "n1", Title: "Deposit approved"},
	})

	cancel()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("outbox did not shut down")
	}
}

func TestOutbox_EnqueueAfterShutdownIsSafe(t *testing.T) {
	st := newTestStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	o := outbox.InitOutbox(ctx, st, logger.InitLog(), wg, 2, 3)
	o.ListenAndProcess()

	cancel()
	wg.Wait()

	// a late producer must be dropped, never panic on a closed channel
	assert.NotPanics(t, func() {
		o.Enqueue(modelqueue.NotificationQueueEntry{
			UserID:       "u1",
			Notification: modelstorage.NotificationDocument{ID: "n-late"},
		})
	})

	raw, err := st.ListNotificationsRaw(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestOutbox_DeliversAfterBackoff(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out the retry backoff window")
	}
	st := newTestStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wg := &sync.WaitGroup{}
	o := outbox.InitOutbox(ctx, st, logger.InitLog(), wg, 2, 3)
	o.ListenAndProcess()

	o.Enqueue(modelqueue.NotificationQueueEntry{
		UserID: "u1",
		Notification: modelstorage.NotificationDocument{
			ID:        "n1",
			Type:      "transaction",
			Title:     "Deposit approved",
			CreatedAt: time.Now().UnixMilli(),
		},
	})

	require.Eventually(t, func() bool {
		raw, err := st.ListNotificationsRaw(context.Background(), "u1")
		return err == nil && len(raw) == 1
	}, 10*time.Second, 200*time.Millisecond)

	raw, err := st.ListNotificationsRaw(context.Background(), "u1")
	require.NoError(t, err)
	assert.Contains(t, raw, "n1")
}
