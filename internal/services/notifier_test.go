package services

import (
	"context"
	"strings"
	"testing"

	"github.com/ad/insight-quest/internal/db"
	"github.com/ad/insight-quest/internal/models"
	tgmodels "github.com/go-telegram/bot/models"
)

func TestTelegramNotifier_SendsToConnectedChat(t *testing.T) {
	queue := setupTestQueue(t)
	users := db.NewUserRepository(queue)
	if err := users.CreateOrUpdate(&models.User{ID: 555, FirstName: "Ada"}); err != nil {
		t.Fatal(err)
	}
	if err := users.LinkWallet(555, "wallet-a"); err != nil {
		t.Fatal(err)
	}

	sender := &fakeSender{}
	notifier := NewTelegramNotifier(users, NewMessageManager(sender, NewErrorManager(sender, 1)))

	events := []models.Event{{Kind: models.EventXPAwarded, Amount: 10}}
	if err := notifier.Publish(context.Background(), "wallet-a", models.UserProgression{}, events); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	sent := sender.messages()
	if len(sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sent))
	}
	if sent[0].ChatID != int64(555) || sent[0].ParseMode != tgmodels.ParseModeHTML {
		t.Errorf("unexpected params: %+v", sent[0])
	}
	if !strings.Contains(sent[0].Text, "+10 XP earned!") {
		t.Errorf("text = %q", sent[0].Text)
	}
}

func TestTelegramNotifier_SkipsUnknownIdentity(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewTelegramNotifier(db.NewUserRepository(setupTestQueue(t)), NewMessageManager(sender, NewErrorManager(sender, 1)))

	events := []models.Event{{Kind: models.EventXPAwarded, Amount: 10}}
	if err := notifier.Publish(context.Background(), "web-only", models.UserProgression{}, events); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(sender.messages()) != 0 {
		t.Error("no message expected for an identity without a chat")
	}
}

func TestErrorManager_NotifyAdminOnPanic(t *testing.T) {
	sender := &fakeSender{}
	mgr := NewErrorManager(sender, 1)

	update := &tgmodels.Update{Message: &tgmodels.Message{From: &tgmodels.User{ID: 9, FirstName: "Bob", Username: "bob"}}}
	mgr.NotifyAdmin(context.Background(), "boom", update)

	sent := sender.messages()
	if len(sent) != 1 {
		t.Fatalf("expected 1 admin message, got %d", len(sent))
	}
	if !strings.Contains(sent[0].Text, "Bob [9] @bob") || !strings.Contains(sent[0].Text, "boom") {
		t.Errorf("panic report = %q", sent[0].Text)
	}
	if len(sent[0].Text) > maxAdminMessageLen+len("\n... (truncated)") {
		t.Errorf("panic report not truncated: %d chars", len(sent[0].Text))
	}
}
