package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ad/insight-quest/internal/db"
	"github.com/ad/insight-quest/internal/models"
)

// NotificationSink presents progression events to the user behind identity.
type NotificationSink interface {
	Publish(ctx context.Context, identity string, p models.UserProgression, events []models.Event) error
}

type NopSink struct{}

func (NopSink) Publish(context.Context, string, models.UserProgression, []models.Event) error {
	return nil
}

// TelegramNotifier delivers events to the chat of the Telegram user that
// connected the identity's wallet. Identities without a connected chat are
// skipped.
type TelegramNotifier struct {
	users      *db.UserRepository
	msgManager *MessageManager
}

func NewTelegramNotifier(users *db.UserRepository, msgManager *MessageManager) *TelegramNotifier {
	return &TelegramNotifier{users: users, msgManager: msgManager}
}

func (n *TelegramNotifier) Publish(ctx context.Context, identity string, _ models.UserProgression, events []models.Event) error {
	text := FormatEvents(events)
	if text == "" {
		return nil
	}
	user, err := n.users.GetByWallet(identity)
	if errors.Is(err, db.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve chat for %s: %w", identity, err)
	}
	return n.msgManager.SendHTML(ctx, user.ID, text)
}
