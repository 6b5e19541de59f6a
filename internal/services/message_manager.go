package services

import (
	"context"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

type MessageManager struct {
	sender   MessageSender
	errMgr   *ErrorManager
	maxRetry int
}

func NewMessageManager(sender MessageSender, errMgr *ErrorManager) *MessageManager {
	return &MessageManager{
		sender:   sender,
		errMgr:   errMgr,
		maxRetry: 2,
	}
}

func (m *MessageManager) SendWithRetry(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error) {
	var lastErr error
	for attempt := 0; attempt < m.maxRetry; attempt++ {
		msg, err := m.sender.SendMessage(ctx, params)
		if err == nil {
			return msg, nil
		}
		lastErr = err
	}
	chatID, _ := params.ChatID.(int64)
	m.errMgr.ReportSendFailure(ctx, chatID, params, lastErr)
	return nil, lastErr
}

// SendHTML sends text rendered with Telegram's HTML parse mode.
func (m *MessageManager) SendHTML(ctx context.Context, chatID int64, text string) error {
	_, err := m.SendWithRetry(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
	})
	return err
}
