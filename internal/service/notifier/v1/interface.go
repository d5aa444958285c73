package notifier

import (
	"context"

	"github.com/imellon/go-investa/internal/models/modeldto"
)

// Notifier manages per-user notification records.
type Notifier interface {
	Create(ctx context.Context, userID, nType, title, body, link string) (string, error)
	Fetch(ctx context.Context, userID string) ([]modeldto.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
}
