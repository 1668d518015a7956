// Package notifier provides the outbound alert transports: the Telegram
// chat client and the message bus publisher.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram sends alerts to a chat, rotating through a set of bot tokens
// so one bot's rate limit does not throttle the whole alert stream.
type Telegram struct {
	bots   []*tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger

	mu     sync.Mutex
	cursor int
}

// NewTelegram creates a chat client from one or more bot tokens. Tokens
// are used round-robin, one bot per alert.
func NewTelegram(tokens []string, chatID int64, logger *slog.Logger) (*Telegram, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("at least one bot token is required")
	}

	bots := make([]*tgbotapi.BotAPI, 0, len(tokens))
	for i, token := range tokens {
		bot, err := tgbotapi.NewBotAPI(token)
		if err != nil {
			return nil, fmt.Errorf("initializing bot %d: %w", i, err)
		}
		bots = append(bots, bot)
	}

	logger.Info("Telegram notifier initialized",
		slog.Int("bots", len(bots)),
		slog.Int64("chat_id", chatID),
	)

	return &Telegram{bots: bots, chatID: chatID, logger: logger}, nil
}

// Send delivers one alert. When imagePath points at a cached preview the
// alert goes out as a photo with the text as caption, otherwise as a
// plain message.
func (t *Telegram) Send(ctx context.Context, text, imagePath string) error {
	bot := t.nextBot()

	var msg tgbotapi.Chattable
	if imagePath != "" {
		photo := tgbotapi.NewPhoto(t.chatID, tgbotapi.FilePath(imagePath))
		photo.Caption = text
		msg = photo
	} else {
		msg = tgbotapi.NewMessage(t.chatID, text)
	}

	if err := t.send(ctx, bot, msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func (t *Telegram) nextBot() *tgbotapi.BotAPI {
	t.mu.Lock()
	defer t.mu.Unlock()
	bot := t.bots[t.cursor]
	t.cursor = (t.cursor + 1) % len(t.bots)
	return bot
}

// send runs the blocking API call in a goroutine so the context deadline
// is honored even though the client library takes no context.
func (t *Telegram) send(ctx context.Context, bot *tgbotapi.BotAPI, msg tgbotapi.Chattable) error {
	done := make(chan error, 1)
	go func() {
		_, err := bot.Send(msg)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
