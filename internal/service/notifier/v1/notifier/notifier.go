// Package notifier implements notification creation, retrieval and read marking.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/imellon/go-investa/internal/models/modeldto"
	"github.com/imellon/go-investa/internal/models/modelstorage"
	"github.com/imellon/go-investa/internal/storage/v1"
	"github.com/rs/zerolog"
)

// Notification types produced by admin transaction actions.
const (
	TypeDepositApproved    = "deposit_approved"
	TypeDepositRejected    = "deposit_rejected"
	TypeWithdrawalApproved = "withdrawal_approved"
	TypeWithdrawalRejected = "withdrawal_rejected"
	TypePlanProfit         = "plan_profit"
)

// Service defines attributes of a struct available to its methods.
type Service struct {
	storage storage.Notifications
	log     *zerolog.Logger
}

// InitService initializes a notification service.
func InitService(st storage.Notifications, log *zerolog.Logger) *Service {
	return &Service{storage: st, log: log}
}

// Create appends a new unread notification and returns its generated id.
func (n *Service) Create(ctx context.Context, userID, nType, title, body, link string) (string, error) {
	id := uuid.New().String()
	doc := modelstorage.NotificationDocument{
		ID:        id,
		Type:      nType,
		Title:     title,
		Body:      body,
		Read:      false,
		CreatedAt: time.Now().UnixMilli(),
		Link:      link,
	}
	if err := n.storage.AddNotification(ctx, userID, doc); err != nil {
		n.log.Error().Err(err).Msg(fmt.Sprintf("creating notification failed for user %s", userID))
		return "", err
	}
	return id, nil
}

// Fetch retrieves the full collection newest-first. Each record is coerced
// field by field; malformed fields collapse to zero values instead of failing
// the whole fetch.
func (n *Service) Fetch(ctx context.Context, userID string) ([]modeldto.Notification, error) {
	entries, err := n.storage.ListNotificationsRaw(ctx, userID)
	if err != nil {
		return nil, err
	}
	notifications := make([]modeldto.Notification, 0, len(entries))
	for id, raw := range entries {
		notifications = append(notifications, coerce(id, raw))
	}
	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt > notifications[j].CreatedAt
	})
	return notifications, nil
}

// MarkRead flips the read flag of a single notification.
func (n *Service) MarkRead(ctx context.Context, userID, id string) error {
	return n.storage.MarkNotificationRead(ctx, userID, id)
}

func coerce(id, raw string) modeldto.Notification {
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return modeldto.Notification{ID: id}
	}
	return modeldto.Notification{
		ID:        id,
		Type:      coerceString(fields["type"]),
		Title:     coerceString(fields["title"]),
		Body:      coerceString(fields["body"]),
		Read:      coerceBool(fields["read"]),
		CreatedAt: coerceInt64(fields["createdAt"]),
		Link:      coerceString(fields["link"]),
	}
}

func coerceString(v interface{}) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

func coerceBool(v interface{}) bool {
	b, ok := v.(bool)
	if !ok {
		return false
	}
	return b
}

func coerceInt64(v interface{}) int64 {
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	return int64(f)
}
