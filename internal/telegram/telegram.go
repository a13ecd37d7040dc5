// Library repository: https://github.com/tucnak/telebot

package telegram

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	config "github.com/plugfox/foxy-ban-server/internal/config"
	log "github.com/plugfox/foxy-ban-server/internal/log"
	"github.com/plugfox/foxy-ban-server/internal/model"
	"github.com/plugfox/foxy-ban-server/internal/notify"
	tele "gopkg.in/telebot.v3"
	mw "gopkg.in/telebot.v3/middleware"
)

// BanIssuer creates bans on behalf of chat admins.
type BanIssuer interface {
	IssueBan(ctx context.Context, req model.BanRequest) (*model.BanRecord, error)
}

// BanHistory lists the bans of an account.
type BanHistory interface {
	BansByAccount(ctx context.Context, accountID model.AccountID) ([]model.BanRecord, error)
}

// Telegram posts ban events to a chat and, when polling, serves admin commands.
type Telegram struct {
	bot     *tele.Bot
	chat    *tele.Chat
	poll    bool
	issuer  BanIssuer
	history BanHistory
	logger  *slog.Logger
}

func New(config *config.TelegramConfig, client *http.Client, issuer BanIssuer, history BanHistory, logger *slog.Logger) (*Telegram, error) {
	pref := tele.Settings{
		URL:   config.API,
		Token: config.Token,
		Poller: &tele.LongPoller{
			Timeout: config.Timeout,
		},
		Client:  client,
		Offline: !config.Poll, // Send only, skip getMe
		OnError: func(err error, _ tele.Context) {
			logger.Error("telegram error", slog.String("error", err.Error()))
		},
	}

	bot, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}

	telegram := &Telegram{
		bot:     bot,
		chat:    &tele.Chat{ID: config.ChatID},
		poll:    config.Poll,
		issuer:  issuer,
		history: history,
		logger:  logger,
	}

	// Global-scoped middleware:
	bot.Use(mw.Recover())
	bot.Use(mw.AutoRespond())
	bot.Use(mw.Logger(log.NewLogAdapter(logger)))
	bot.Use(allowedChatsMiddleware(config.ChatID))

	// Group-scoped middleware:
	if len(config.Admins) > 0 {
		adminOnly := bot.Group()
		adminOnly.Use(mw.Whitelist(config.Admins...))
		adminOnly.Handle("/ban", telegram.onBan)
		adminOnly.Handle("/bans", telegram.onBans)
	}

	return telegram, nil
}

func (t *Telegram) Name() string {
	return "telegram"
}

// Send posts the event to the configured chat.
func (t *Telegram) Send(_ context.Context, event model.BanEvent) error {
	if t.chat.ID == 0 {
		return nil
	}

	_, err := t.bot.Send(t.chat, formatEvent(event), &tele.SendOptions{DisableWebPagePreview: true})

	return err
}

// Start polls for updates until Stop, it does nothing when polling is disabled.
func (t *Telegram) Start() {
	if !t.poll {
		return
	}

	t.bot.Start()
}

func (t *Telegram) Stop() {
	if !t.poll {
		return
	}

	t.bot.Stop()
}

func formatEvent(event model.BanEvent) string {
	var builder strings.Builder

	builder.WriteString(notify.Title(event.Kind))
	builder.WriteString("\n")
	builder.WriteString(notify.Describe(event))

	for _, field := range notify.Fields(event) {
		builder.WriteString("\n")
		builder.WriteString(field.Name)
		builder.WriteString(": ")
		builder.WriteString(field.Value)
	}

	return builder.String()
}
