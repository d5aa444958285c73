// Package modelqueue provides types for queueing pieces of data.

package modelqueue

import (
	"time"

	"github.com/imellon/go-investa/internal/models/modelstorage"
)

type NotificationQueueEntry struct {
	UserID       string
	Notification modelstorage.NotificationDocument
	RetryCount   int
	LastAttempt  time.Time
}
