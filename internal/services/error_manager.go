package services

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
)

// MessageSender is the part of *bot.Bot used to deliver messages.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

const maxAdminMessageLen = 4000

type ErrorManager struct {
	sender  MessageSender
	adminID int64
	log     *logrus.Entry
}

func NewErrorManager(sender MessageSender, adminID int64) *ErrorManager {
	return &ErrorManager{
		sender:  sender,
		adminID: adminID,
		log:     logrus.WithField("component", "error_manager"),
	}
}

func (e *ErrorManager) NotifyAdmin(ctx context.Context, panicValue interface{}, update *tgmodels.Update) {
	userInfo := "unknown"
	if update != nil {
		if update.Message != nil && update.Message.From != nil {
			userInfo = formatTelegramUser(update.Message.From)
		} else if update.CallbackQuery != nil && update.CallbackQuery.From.ID != 0 {
			userInfo = formatTelegramUser(&update.CallbackQuery.From)
		}
	}

	e.log.WithField("user", userInfo).Errorf("[PANIC] %v", panicValue)

	msg := fmt.Sprintf("🚨 Panic in handler\nUser: %s\nError: %v\n\nStack trace:\n%s",
		userInfo, panicValue, string(debug.Stack()))
	e.sendToAdmin(ctx, msg)
}

// ReportSendFailure tells the admin that a message could not be delivered,
// including the request payload for manual replay.
func (e *ErrorManager) ReportSendFailure(ctx context.Context, chatID int64, request interface{}, err error) {
	e.log.WithError(err).WithField("chat_id", chatID).Warn("[SEND] message delivery failed")
	if chatID == e.adminID {
		return
	}

	payload, jsonErr := json.MarshalIndent(request, "", "  ")
	if jsonErr != nil {
		payload = []byte(fmt.Sprintf("failed to serialize request: %v", jsonErr))
	}
	msg := fmt.Sprintf("❌ Failed to send message\nChat: [%d]\nError: %v\n\nRequest:\n%s", chatID, err, payload)
	e.sendToAdmin(ctx, msg)
}

func (e *ErrorManager) sendToAdmin(ctx context.Context, msg string) {
	if len(msg) > maxAdminMessageLen {
		msg = msg[:maxAdminMessageLen] + "\n... (truncated)"
	}
	_, err := e.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: e.adminID,
		Text:   msg,
	})
	if err != nil {
		e.log.WithError(err).Error("[ADMIN] failed to notify admin")
	}
}

func formatTelegramUser(u *tgmodels.User) string {
	info := fmt.Sprintf("[%d]", u.ID)
	if u.FirstName != "" {
		info = u.FirstName + " " + info
	}
	if u.Username != "" {
		info = info + " @" + u.Username
	}
	return info
}
