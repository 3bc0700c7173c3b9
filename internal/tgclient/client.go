// Package tgclient wraps a gotd user-account client around one uploaded
// session artifact. The supervisor owns the lifecycle; this package only
// turns raw updates into InboundMessage values.
package tgclient

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"

	"tgmon/entity"
	"tgmon/lib/sl"
)

// Handler receives every group message the account observes. Filtering by
// assignment happens upstream in the supervisor.
type Handler = func(msg entity.InboundMessage)

type Client struct {
	appId       int
	appHash     string
	sessionPath string
	tenantId    string
	accountId   string
	log         *slog.Logger
}

func New(appId int, appHash, sessionPath, tenantId, accountId string, log *slog.Logger) *Client {
	return &Client{
		appId:       appId,
		appHash:     appHash,
		sessionPath: sessionPath,
		tenantId:    tenantId,
		accountId:   accountId,
		log:         log.With(sl.Module("tgclient"), slog.String("account", accountId)),
	}
}

// Run connects with the persisted session and streams updates until the
// context is cancelled. A session that is not authorized is a catastrophic
// artifact error and is reported as ErrArtifactInvalid; the supervisor must
// not retry it.
func (c *Client) Run(ctx context.Context, handler Handler) error {
	dispatcher := tg.NewUpdateDispatcher()
	dispatcher.OnNewMessage(func(_ context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
		c.handleMessage(e, u.Message, handler)
		return nil
	})
	dispatcher.OnNewChannelMessage(func(_ context.Context, e tg.Entities, u *tg.UpdateNewChannelMessage) error {
		c.handleMessage(e, u.Message, handler)
		return nil
	})

	client := telegram.NewClient(c.appId, c.appHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: c.sessionPath},
		UpdateHandler:  dispatcher,
	})

	return client.Run(ctx, func(ctx context.Context) error {
		status, err := client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("auth status: %w", err)
		}
		if !status.Authorized {
			return fmt.Errorf("session not authorized: %w", entity.ErrArtifactInvalid)
		}
		c.log.Info("receiver connected")
		<-ctx.Done()
		return ctx.Err()
	})
}

func (c *Client) handleMessage(e tg.Entities, msg tg.MessageClass, handler Handler) {
	m, ok := msg.(*tg.Message)
	if !ok || m.Out {
		return
	}

	chatId := peerChatId(m.PeerID)
	if chatId == "" {
		return
	}

	inbound := entity.InboundMessage{
		TenantId:    c.tenantId,
		AccountId:   c.accountId,
		GroupId:     chatId,
		MessageId:   strconv.Itoa(m.ID),
		Text:        m.Message,
		Timestamp:   time.Unix(int64(m.Date), 0).UTC(),
		IngestedVia: entity.IngestSession,
	}

	if from, ok := m.FromID.(*tg.PeerUser); ok {
		inbound.UserId = strconv.FormatInt(from.UserID, 10)
		if user, found := e.Users[from.UserID]; found {
			inbound.Username = user.Username
			inbound.FullName = fullName(user)
		}
	}

	inbound.MessageType, inbound.MediaInfo = classifyMedia(m.Media)
	handler(inbound)
}

// peerChatId renders the external chat identifier the way the Bot API does:
// plain negative id for basic groups, -100 prefix for channels and
// supergroups. Direct messages are not monitored.
func peerChatId(peer tg.PeerClass) string {
	switch p := peer.(type) {
	case *tg.PeerChat:
		return strconv.FormatInt(-p.ChatID, 10)
	case *tg.PeerChannel:
		return fmt.Sprintf("-100%d", p.ChannelID)
	}
	return ""
}

func fullName(user *tg.User) string {
	if user.LastName == "" {
		return user.FirstName
	}
	return user.FirstName + " " + user.LastName
}

// classifyMedia maps gotd media to the closed message type variants and
// extracts opaque media info without touching content.
func classifyMedia(media tg.MessageMediaClass) (entity.MessageType, map[string]interface{}) {
	switch m := media.(type) {
	case nil:
		return entity.MessageText, nil
	case *tg.MessageMediaPhoto:
		info := map[string]interface{}{}
		if photo, ok := m.Photo.(*tg.Photo); ok {
			info["file_id"] = strconv.FormatInt(photo.ID, 10)
		}
		return entity.MessagePhoto, info
	case *tg.MessageMediaDocument:
		doc, ok := m.Document.(*tg.Document)
		if !ok {
			return entity.MessageOther, nil
		}
		info := map[string]interface{}{
			"file_id":   strconv.FormatInt(doc.ID, 10),
			"file_size": doc.Size,
			"mime_type": doc.MimeType,
		}
		kind := entity.MessageDocument
		for _, attr := range doc.Attributes {
			switch a := attr.(type) {
			case *tg.DocumentAttributeAudio:
				info["duration"] = a.Duration
				if a.Voice {
					kind = entity.MessageVoice
				} else {
					kind = entity.MessageAudio
				}
			case *tg.DocumentAttributeVideo:
				info["duration"] = a.Duration
				kind = entity.MessageVideo
			case *tg.DocumentAttributeSticker:
				info["emoji"] = a.Alt
				kind = entity.MessageSticker
			case *tg.DocumentAttributeFilename:
				info["file_name"] = a.FileName
			}
		}
		return kind, info
	default:
		return entity.MessageOther, nil
	}
}
