// Package bot implements the Telegram bot command surface.
//
// Updates arrive through the authenticated webhook, not polling: the HTTP
// layer decodes the update and calls HandleUpdate. Tenant association is
// derived from the sender's Telegram id; senders without a dashboard user
// get onboarding instructions and no data.
package bot

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/google/uuid"

	"tgmon/entity"
	"tgmon/internal/database"
	"tgmon/lib/sl"
)

// Database defines the storage operations the bot depends on.
// Implemented by internal/database.
type Database interface {
	GetUserByTelegramId(telegramId int64) (*entity.User, error)
	InsertBotCommand(cmd *entity.BotCommand) error
	ListGroups(tenantId string, includeInactive bool) ([]*entity.Group, error)
	ListWatchUsers(tenantId string, includeInactive bool) ([]*entity.WatchUser, error)
	ListMessages(tenantId string, f database.MessageFilter) ([]*entity.MessageLog, error)
	GetStats(tenantId string) (*entity.Stats, error)
}

type TgBot struct {
	log *slog.Logger
	api *tgbotapi.Bot
	db  Database
}

func NewTgBot(apiKey string, db Database, log *slog.Logger) (*TgBot, error) {
	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	return &TgBot{
		log: log.With(sl.Module("tgbot")),
		api: api,
		db:  db,
	}, nil
}

// Api exposes the Bot API client for the forwarder and connectivity tests.
func (t *TgBot) Api() *tgbotapi.Bot {
	return t.api
}

// HandleUpdate routes one webhook update. Group messages are not handled
// here; the webhook handler feeds those to the filter pipeline.
func (t *TgBot) HandleUpdate(update *tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		t.handleCallback(update.CallbackQuery)
	case update.Message != nil && strings.HasPrefix(update.Message.GetText(), "/"):
		t.handleCommand(update.Message)
	}
}

// resolveTenant maps the sender to a tenant via the dashboard user record.
func (t *TgBot) resolveTenant(telegramId int64) *entity.User {
	user, err := t.db.GetUserByTelegramId(telegramId)
	if err != nil || !user.IsActive {
		return nil
	}
	return user
}

// audit records the command for the tenant (empty for unknown senders).
func (t *TgBot) audit(user *entity.User, msg *tgbotapi.Message, command, args string) {
	row := &entity.BotCommand{
		Id:             uuid.New().String(),
		TelegramUserId: msg.From.Id,
		ChatId:         fmt.Sprintf("%d", msg.Chat.Id),
		Username:       msg.From.Username,
		Command:        command,
		Args:           args,
		Timestamp:      time.Now().UTC(),
	}
	if user != nil {
		row.TenantId = user.TenantId
	}
	if err := t.db.InsertBotCommand(row); err != nil {
		t.log.Warn("recording bot command", sl.Err(err))
	}
}
