// Package telegram is the bot front end: commands for players and a
// notifier that reports ledger events back to their chat.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"go.uber.org/zap"

	"rewards-backend/internal/models"
	"rewards-backend/internal/services"
)

const commandTimeout = 15 * time.Second

type Commands struct {
	engine     *services.WagerEngine
	chats      services.ChatDirectory
	limiter    services.RateLimiter
	playLimit  int
	playWindow time.Duration
	log        *zap.Logger
}

// NewCommands wires the bot commands. limiter may be nil.
func NewCommands(engine *services.WagerEngine, chats services.ChatDirectory, limiter services.RateLimiter, playLimit int, log *zap.Logger) *Commands {
	return &Commands{
		engine:     engine,
		chats:      chats,
		limiter:    limiter,
		playLimit:  playLimit,
		playWindow: time.Minute,
		log:        log,
	}
}

// Handlers returns every command handler for the dispatcher.
func (c *Commands) Handlers() []ext.Handler {
	return []ext.Handler{
		handlers.NewCommand("start", c.reply(c.start)),
		handlers.NewCommand("balance", c.reply(c.balance)),
		handlers.NewCommand("play", c.reply(c.play)),
		handlers.NewCommand("odds", c.reply(c.odds)),
	}
}

// commandFunc computes the reply for one command invocation.
type commandFunc func(ctx context.Context, accountID string, chatID int64, args []string) string

func (c *Commands) reply(fn commandFunc) handlers.Response {
	return func(b *gotgbot.Bot, ectx *ext.Context) error {
		msg := ectx.EffectiveMessage
		user := ectx.EffectiveUser
		if msg == nil || user == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		args := ectx.Args()
		if len(args) > 0 {
			args = args[1:]
		}

		accountID := models.TelegramName(user.Username, user.FirstName, user.LastName)
		text := fn(ctx, accountID, msg.Chat.Id, args)
		_, err := msg.Reply(b, text, &gotgbot.SendMessageOpts{})
		return err
	}
}

func (c *Commands) start(ctx context.Context, accountID string, chatID int64, _ []string) string {
	if err := c.chats.SetChatID(ctx, accountID, chatID); err != nil {
		c.log.Error("failed to register chat", zap.String("account_id", accountID), zap.Error(err))
		return "Could not register this chat, please try again."
	}
	return fmt.Sprintf("Welcome, %s! Play with /play <%s>, see prizes with /odds.",
		accountID, strings.Join(c.engine.Odds().Levels(), "|"))
}

func (c *Commands) balance(ctx context.Context, accountID string, _ int64, _ []string) string {
	bal, err := c.engine.Balance(ctx, accountID)
	if err != nil {
		c.log.Error("failed to read balance", zap.String("account_id", accountID), zap.Error(err))
		return errorText(err, c.engine.Odds())
	}
	return balanceText(bal)
}

func (c *Commands) play(ctx context.Context, accountID string, _ int64, args []string) string {
	if len(args) == 0 {
		return "Usage: /play <" + strings.Join(c.engine.Odds().Levels(), "|") + ">"
	}

	if c.limiter != nil && c.playLimit > 0 {
		allowed, err := c.limiter.CheckRateLimit(ctx, accountID, "play", c.playLimit, c.playWindow)
		if err != nil {
			c.log.Warn("rate limit check failed", zap.String("account_id", accountID), zap.Error(err))
		} else if !allowed {
			return errorText(services.ErrRateLimited, c.engine.Odds())
		}
	}

	result, err := c.engine.Play(ctx, accountID, strings.ToLower(args[0]))
	if err != nil {
		return errorText(err, c.engine.Odds())
	}
	return playText(result)
}

func (c *Commands) odds(context.Context, string, int64, []string) string {
	return oddsText(c.engine.Odds())
}
