package telegram

import (
	"context"
	"errors"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"go.uber.org/zap"

	"rewards-backend/internal/models"
	"rewards-backend/internal/services"
)

// Sender is the part of *gotgbot.Bot the notifier uses.
type Sender interface {
	SendMessageWithContext(ctx context.Context, chatId int64, text string, opts *gotgbot.SendMessageOpts) (*gotgbot.Message, error)
}

// Notifier messages the chat an account registered with /start.
type Notifier struct {
	sender Sender
	chats  services.ChatDirectory
	log    *zap.Logger
}

func NewNotifier(sender Sender, chats services.ChatDirectory, log *zap.Logger) *Notifier {
	return &Notifier{sender: sender, chats: chats, log: log}
}

func (n *Notifier) Notify(ctx context.Context, accountID string, event models.Event) {
	var text string
	switch {
	case event.Type == models.EventPlayed && event.Play != nil:
		text = playText(event.Play)
	case event.Type == models.EventDeposited && event.Deposit != nil:
		text = depositText(event.Deposit)
	default:
		return
	}

	chatID, err := n.chats.ChatID(ctx, accountID)
	if errors.Is(err, services.ErrChatNotFound) {
		return
	}
	if err != nil {
		n.log.Warn("failed to look up chat", zap.String("account_id", accountID), zap.Error(err))
		return
	}

	if _, err := n.sender.SendMessageWithContext(ctx, chatID, text, &gotgbot.SendMessageOpts{}); err != nil {
		n.log.Warn("failed to send telegram notification",
			zap.String("account_id", accountID),
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}
