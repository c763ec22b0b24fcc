package telegram

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/mikey/mail-sentinel/internal/config"
)

// Notifier is a Telegram implementation of the Notifier port. It sends
// pre-escaped HTML payloads to a single configured chat.
type Notifier struct {
	bot    *bot.Bot
	chatID string
	logger *zap.Logger
}

// NewNotifier creates a new Telegram notifier
func NewNotifier(cfg config.TelegramConfig, logger *zap.Logger) (*Notifier, error) {
	b, err := bot.New(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	return &Notifier{
		bot:    b,
		chatID: cfg.ChatID,
		logger: logger,
	}, nil
}

// Send delivers one formatted message to the configured chat
func (n *Notifier) Send(ctx context.Context, text string) error {
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("failed to send Telegram message: %w", err)
	}

	n.logger.Debug("Telegram message sent", zap.Int("length", len(text)))
	return nil
}

// SelfTest verifies connectivity by resolving the bot identity and sending a
// probe message to the configured chat
func (n *Notifier) SelfTest(ctx context.Context) error {
	me, err := n.bot.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve bot identity: %w", err)
	}

	n.logger.Info("Telegram bot reachable", zap.String("username", me.Username))

	return n.Send(ctx, "🔔 <b>mail-sentinel</b> connectivity test")
}
