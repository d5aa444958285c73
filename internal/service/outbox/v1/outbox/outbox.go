// Package outbox retries notification writes that failed alongside a committed
// status change, so every applied transition eventually produces its notification.
package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/imellon/go-investa/internal/models/modelqueue"
	"github.com/imellon/go-investa/internal/storage/v1"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const retryBackoff = 5 * time.Second

type Outbox struct {
	ctx        context.Context
	log        *zerolog.Logger
	queue      chan modelqueue.NotificationQueueEntry
	storage    storage.Notifications
	wg         *sync.WaitGroup
	workers    int
	maxRetries int
}

type deliveryWorker struct {
	ID         int
	ctx        context.Context
	log        *zerolog.Logger
	queue      chan modelqueue.NotificationQueueEntry
	storage    storage.Notifications
	maxRetries int
}

// InitOutbox initializes the retry queue and its delivery workers.
func InitOutbox(ctx context.Context, st storage.Notifications, log *zerolog.Logger, wg *sync.WaitGroup, workers, maxRetries int) *Outbox {
	return &Outbox{
		ctx:        ctx,
		log:        log,
		queue:      make(chan modelqueue.NotificationQueueEntry, 1000),
		storage:    st,
		wg:         wg,
		workers:    workers,
		maxRetries: maxRetries,
	}
}

// Enqueue hands a failed notification over for retried delivery. The queue
// channel is never closed, so enqueueing after shutdown buffers a dead entry
// instead of panicking.
func (o *Outbox) Enqueue(entry modelqueue.NotificationQueueEntry) {
	entry.LastAttempt = time.Now()
	select {
	case <-o.ctx.Done():
		o.log.Warn().Msg(fmt.Sprintf("outbox stopped, dropping notification %s for user %s", entry.Notification.ID, entry.UserID))
		return
	default:
	}
	select {
	case o.queue <- entry:
	default:
		o.log.Warn().Msg(fmt.Sprintf("outbox queue full, dropping notification %s for user %s", entry.Notification.ID, entry.UserID))
	}
}

// ListenAndProcess starts the delivery worker pool. Workers exit on context
// cancellation rather than on channel close, since producers may still hold
// the queue when the listener stops.
func (o *Outbox) ListenAndProcess() {
	o.wg.Add(1)
	go func() {
		o.log.Info().Msg("started listening to notification outbox queue")
		defer o.wg.Done()
		g, _ := errgroup.WithContext(o.ctx)
		for i := 0; i < o.workers; i++ {
			w := &deliveryWorker{ID: i, ctx: o.ctx, log: o.log, queue: o.queue, storage: o.storage, maxRetries: o.maxRetries}
			g.Go(w.processAsync)
		}
		if err := g.Wait(); err != nil {
			o.log.Error().Err(err).Msg("closing outbox errgroup failed")
		}
		o.log.Info().Msg("stopped listening to notification outbox queue")
	}()
}

func (w *deliveryWorker) processAsync() error {
	for {
		var entry modelqueue.NotificationQueueEntry
		select {
		case <-w.ctx.Done():
			return nil
		case entry = <-w.queue:
		}
		// wait out the backoff window before retrying the same record
		for time.Since(entry.LastAttempt) < retryBackoff {
			select {
			case <-w.ctx.Done():
				return nil
			case <-time.After(retryBackoff - time.Since(entry.LastAttempt)):
			}
		}
		ctxTO, cancel := context.WithTimeout(w.ctx, 2*time.Second)
		err := w.storage.AddNotification(ctxTO, entry.UserID, entry.Notification)
		cancel()
		if err != nil {
			if entry.RetryCount >= w.maxRetries {
				w.log.Warn().Msg(fmt.Sprintf("WID %v, notification %s, abandonment due to retry limit exceeding", w.ID, entry.Notification.ID))
				continue
			}
			w.log.Warn().Msg(fmt.Sprintf("WID %v, notification %s, could not deliver, sending back to queue", w.ID, entry.Notification.ID))
			entry.RetryCount++
			entry.LastAttempt = time.Now()
			select {
			case w.queue <- entry:
			case <-w.ctx.Done():
				return nil
			}
			continue
		}
		w.log.Info().Msg(fmt.Sprintf("WID %v, notification %s, delivered for user %s", w.ID, entry.Notification.ID, entry.UserID))
	}
}
