package core

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"tgmon/entity"
	"tgmon/lib/sl"
)

// HandleTelegramUpdate dispatches one webhook update. Commands and callback
// queries go to the bot surface; plain group messages go through the filter
// pipeline for every tenant monitoring the chat. The webhook handler calls
// this on a background goroutine after acknowledging Telegram.
func (c *Core) HandleTelegramUpdate(update *tgbotapi.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			c.log.Error("panic in update handler", slog.Any("panic", rec))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		if c.bot != nil {
			c.bot.HandleUpdate(update)
		}
	case update.Message != nil:
		msg := update.Message
		if strings.HasPrefix(msg.GetText(), "/") || msg.Chat.Type == "private" {
			if c.bot != nil {
				c.bot.HandleUpdate(update)
			}
			return
		}
		c.ingestGroupMessage(msg)
	case update.ChannelPost != nil:
		c.ingestGroupMessage(update.ChannelPost)
	}
}

// ingestGroupMessage routes one group message to every tenant that actively
// monitors the chat. Tenants never see each other's matches; the pipeline
// runs once per tenant with its own watchlist.
func (c *Core) ingestGroupMessage(msg *tgbotapi.Message) {
	if c.pipe == nil {
		return
	}
	if msg.From == nil && msg.Chat.Type != "channel" {
		return
	}

	chatId := strconv.FormatInt(msg.Chat.Id, 10)
	groups, err := c.db.ListActiveGroupsByChatId(chatId)
	if err != nil {
		c.log.Warn("looking up monitored groups", sl.Err(err))
		return
	}
	if len(groups) == 0 {
		return
	}

	messageType, mediaInfo := classifyBotMessage(msg)
	text := msg.GetText()

	var username, fullName, userId string
	if msg.From != nil {
		username = entity.NormalizeUsername(msg.From.Username)
		fullName = strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
		userId = strconv.FormatInt(msg.From.Id, 10)
	}

	for _, group := range groups {
		inbound := entity.InboundMessage{
			TenantId:    group.TenantId,
			GroupId:     chatId,
			UserId:      userId,
			Username:    username,
			FullName:    fullName,
			MessageId:   fmt.Sprintf("%d", msg.MessageId),
			Text:        text,
			MessageType: messageType,
			MediaInfo:   mediaInfo,
			Timestamp:   time.Unix(msg.Date, 0).UTC(),
			IngestedVia: entity.IngestWebhook,
		}
		if err = c.pipe.Process(&inbound); err != nil {
			c.log.With(
				slog.String("tenant", group.TenantId),
				slog.String("chat", chatId),
			).Warn("processing webhook message", sl.Err(err))
		}
	}
}

func classifyBotMessage(msg *tgbotapi.Message) (entity.MessageType, map[string]interface{}) {
	switch {
	case len(msg.Photo) > 0:
		largest := msg.Photo[len(msg.Photo)-1]
		return entity.MessagePhoto, map[string]interface{}{
			"file_id": largest.FileId,
			"width":   largest.Width,
			"height":  largest.Height,
		}
	case msg.Video != nil:
		return entity.MessageVideo, map[string]interface{}{
			"file_id":  msg.Video.FileId,
			"duration": msg.Video.Duration,
		}
	case msg.Document != nil:
		return entity.MessageDocument, map[string]interface{}{
			"file_id":   msg.Document.FileId,
			"file_name": msg.Document.FileName,
			"mime_type": msg.Document.MimeType,
		}
	case msg.Audio != nil:
		return entity.MessageAudio, map[string]interface{}{
			"file_id":  msg.Audio.FileId,
			"duration": msg.Audio.Duration,
		}
	case msg.Voice != nil:
		return entity.MessageVoice, map[string]interface{}{
			"file_id":  msg.Voice.FileId,
			"duration": msg.Voice.Duration,
		}
	case msg.Sticker != nil:
		return entity.MessageSticker, map[string]interface{}{
			"file_id": msg.Sticker.FileId,
			"emoji":   msg.Sticker.Emoji,
		}
	case msg.Text != "":
		return entity.MessageText, nil
	default:
		return entity.MessageOther, nil
	}
}
