// Package notifier delivers announcements and operator alerts.
package notifier

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"allsidestg/internal/apperr"
	"allsidestg/internal/config"
	"allsidestg/internal/logger"
	"allsidestg/pkg/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MaxMessageRunes is Telegram's limit for one text message.
const MaxMessageRunes = 4096

// Notifier publishes announcements to the channel and alerts to the admin.
type Notifier interface {
	Publish(ctx context.Context, body string) error
	NotifyAdmin(ctx context.Context, message string) error
}

// Telegram sends messages through the Bot API in HTML parse mode.
type Telegram struct {
	bot     *tgbotapi.BotAPI
	channel string
	admin   string
}

// NewTelegram authenticates the bot token against the API.
func NewTelegram(cfg config.TelegramConfig) (*Telegram, error) {
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Secret, endpoint, &http.Client{Timeout: 30 * time.Second})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, "telegram getMe", err)
	}

	return &Telegram{
		bot:     bot,
		channel: cfg.Channel,
		admin:   cfg.Admin,
	}, nil
}

// Publish posts body to the channel.
func (t *Telegram) Publish(ctx context.Context, body string) error {
	return t.send(ctx, t.channel, body, tgbotapi.ModeHTML)
}

// NotifyAdmin sends message as plain text, truncated to fit. It is a no-op
// when no admin is configured.
func (t *Telegram) NotifyAdmin(ctx context.Context, message string) error {
	if t.admin == "" {
		return nil
	}

	return t.send(ctx, t.admin, utils.TruncateString(message, MaxMessageRunes), "")
}

func (t *Telegram) send(ctx context.Context, target, text, parseMode string) error {
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.KindNetwork, "telegram send", err)
	}

	msg := newMessage(target, text)
	msg.ParseMode = parseMode

	if _, err := t.bot.Send(msg); err != nil {
		return apperr.Wrap(apperr.KindNetwork, "telegram send to "+target, err)
	}

	return nil
}

// newMessage addresses numeric chat ids directly and anything else as a @username.
func newMessage(target, text string) tgbotapi.MessageConfig {
	if id, err := strconv.ParseInt(target, 10, 64); err == nil {
		return tgbotapi.NewMessage(id, text)
	}

	return tgbotapi.NewMessageToChannel(target, text)
}

// Log is a Notifier that only writes to the log, for dry runs.
type Log struct {
	log *logger.Logger
}

// NewLog creates a logging notifier.
func NewLog(log *logger.Logger) *Log {
	return &Log{log: log}
}

// Publish implements Notifier.
func (l *Log) Publish(_ context.Context, body string) error {
	l.log.Info("dry run: would publish", "body", body)

	return nil
}

// NotifyAdmin implements Notifier.
func (l *Log) NotifyAdmin(_ context.Context, message string) error {
	l.log.Warn("dry run: would notify admin", "message", message)

	return nil
}

// String describes the targets, for startup logs.
func (t *Telegram) String() string {
	return fmt.Sprintf("telegram(bot=%s channel=%s admin=%s)", t.bot.Self.UserName, t.channel, t.admin)
}
