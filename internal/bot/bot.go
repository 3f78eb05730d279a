// Package bot is the Telegram front end: command dispatch, the train/note
// state machine and the photo train/predict flows.
package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/kozaktomas/facebot/internal/botstate"
	"github.com/kozaktomas/facebot/internal/config"
	"github.com/kozaktomas/facebot/internal/database"
	"github.com/kozaktomas/facebot/internal/encoder"
	"github.com/kozaktomas/facebot/internal/service"
)

const pollTimeoutSeconds = 30

// api is the subset of tgbotapi.BotAPI the handlers talk to.
type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Bot wires Telegram updates to the recognition service.
type Bot struct {
	bot      *tgbotapi.BotAPI // nil in tests
	api      api
	username string // bot username, without @
	svc      *service.Service
	states   botstate.Store
	users    database.UserStore
	public   bool

	// fetch downloads a Telegram file by ID.
	fetch func(ctx context.Context, fileID string) ([]byte, error)
}

// New connects to Telegram and validates the token.
func New(cfg *config.TelegramConfig, svc *service.Service, states botstate.Store, users database.UserStore) (*Bot, error) {
	tg, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}

	b := &Bot{
		bot:      tg,
		api:      tg,
		username: tg.Self.UserName,
		svc:      svc,
		states:   states,
		users:    users,
		public:   cfg.PublicUser,
	}
	b.fetch = b.downloadFile
	log.Info().Str("username", b.username).Msg("connected to telegram")
	return b, nil
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	updates := b.bot.GetUpdatesChan(u)
	log.Info().Msg("polling started")

	for {
		select {
		case <-ctx.Done():
			b.bot.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

// handleUpdate dispatches one update. Senders without a resolvable role are
// ignored silently.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("update handler panicked")
		}
	}()

	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	role := b.roleFor(ctx, msg.From)
	switch {
	case msg.IsCommand():
		b.handleCommand(ctx, role, msg)
	case len(msg.Photo) > 0:
		b.handlePhoto(ctx, role, msg)
	case msg.Text != "" && b.mentioned(msg.Text):
		b.handleMention(ctx, role, msg)
	}
}

// stateKey identifies a user in the command-state store.
func stateKey(from *tgbotapi.User) string {
	return strconv.FormatInt(from.ID, 10)
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	if _, err := b.api.Send(out); err != nil {
		log.Warn().Err(err).Int64("chat", msg.Chat.ID).Msg("failed to send reply")
	}
}

func (b *Bot) sendPhoto(chatID int64, name string, data []byte, caption string) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	photo.Caption = caption
	if _, err := b.api.Send(photo); err != nil {
		log.Warn().Err(err).Int64("chat", chatID).Msg("failed to send photo")
	}
}

// sendAction shows "typing..." or "sending photo..." while a handler works.
func (b *Bot) sendAction(chatID int64, action string) {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, action)); err != nil {
		log.Debug().Err(err).Msg("failed to send chat action")
	}
}

// downloadFile fetches the photo bytes, capped at the encoder's size limit.
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, encoder.MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(data) > encoder.MaxImageBytes {
		return nil, encoder.ErrImageTooLarge
	}
	return data, nil
}
