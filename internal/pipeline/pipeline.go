// Package pipeline turns raw inbound messages into archive rows and forward
// requests. One call per message; per-account ordering is preserved because
// each receiver worker processes its queue sequentially.
package pipeline

import (
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"tgmon/entity"
	"tgmon/lib/sl"
)

// Database is the tenant-scoped store surface the pipeline reads and writes.
// Implemented by internal/database.
type Database interface {
	GetActiveGroupByChatId(tenantId, chatId string) (*entity.Group, error)
	FindActiveWatchUsers(tenantId, username, userId string) ([]*entity.WatchUser, error)
	InsertMessageIfAbsent(msg *entity.MessageLog) (bool, error)
	GetDestination(tenantId, id string) (*entity.Destination, error)
	InsertForwarded(row *entity.ForwardedMessage) error
}

// Forwarder accepts forward requests for active destinations.
type Forwarder interface {
	Enqueue(req entity.ForwardRequest)
}

type Pipeline struct {
	db  Database
	fwd Forwarder
	log *slog.Logger
}

func New(db Database, fwd Forwarder, log *slog.Logger) *Pipeline {
	return &Pipeline{
		db:  db,
		fwd: fwd,
		log: log.With(sl.Module("pipeline")),
	}
}

// Process filters one message against the tenant's watch criteria, archives
// it, and emits forward requests for every matched watcher's destinations.
// Unmatched messages are dropped without an archive row. The archive write
// is idempotent; a duplicate receive emits no forwards.
func (p *Pipeline) Process(msg *entity.InboundMessage) error {
	group, err := p.db.GetActiveGroupByChatId(msg.TenantId, msg.GroupId)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil
		}
		return err
	}

	watchers, err := p.db.FindActiveWatchUsers(msg.TenantId, msg.Username, msg.UserId)
	if err != nil {
		return err
	}

	var matched []*entity.WatchUser
	keywordSet := map[string]bool{}
	for _, w := range watchers {
		if len(w.GroupIds) > 0 && !contains(w.GroupIds, group.Id) {
			continue
		}
		if len(w.Keywords) > 0 {
			hits := MatchKeywords(msg.Text, w.Keywords)
			if len(hits) == 0 {
				continue
			}
			for _, k := range hits {
				keywordSet[k] = true
			}
		}
		matched = append(matched, w)
	}
	if len(matched) == 0 {
		return nil
	}

	matchedKeywords := make([]string, 0, len(keywordSet))
	for k := range keywordSet {
		matchedKeywords = append(matchedKeywords, k)
	}

	row := &entity.MessageLog{
		Id:              uuid.New().String(),
		TenantId:        msg.TenantId,
		GroupId:         msg.GroupId,
		GroupName:       group.GroupName,
		UserId:          msg.UserId,
		Username:        entity.NormalizeUsername(msg.Username),
		UserFullName:    msg.FullName,
		MessageId:       msg.MessageId,
		MessageText:     msg.Text,
		MessageType:     msg.MessageType,
		MediaInfo:       msg.MediaInfo,
		MatchedKeywords: matchedKeywords,
		Timestamp:       msg.Timestamp,
		IngestedVia:     msg.IngestedVia,
	}
	inserted, err := p.db.InsertMessageIfAbsent(row)
	if err != nil {
		// No forward leaves this method until the archive write succeeds;
		// the same (group, message_id) will be retried on redelivery.
		return err
	}
	if !inserted {
		return nil
	}

	p.log.With(
		slog.String("tenant", msg.TenantId),
		slog.String("group", group.GroupName),
		slog.String("username", row.Username),
	).Info("archived matched message")

	for _, w := range matched {
		for _, destId := range w.DestinationIds {
			p.emit(row, destId)
		}
	}
	return nil
}

// emit queues one delivery, or records a failed ledger row when the
// destination cannot be resolved or is inactive at emit time.
func (p *Pipeline) emit(row *entity.MessageLog, destId string) {
	dest, err := p.db.GetDestination(row.TenantId, destId)
	if err != nil {
		p.log.With(slog.String("destination", destId)).Warn("resolving destination", sl.Err(err))
		p.recordFailed(row, destId, entity.ReasonDestinationUnavailable)
		return
	}
	if !dest.IsActive {
		p.recordFailed(row, destId, entity.ReasonDestinationInactive)
		return
	}

	p.fwd.Enqueue(entity.ForwardRequest{
		TenantId:      row.TenantId,
		SourceRef:     row.Id,
		Username:      row.Username,
		GroupName:     row.GroupName,
		DestinationId: dest.Id,
		ChatId:        dest.DestinationId,
		Text:          row.MessageText,
		MessageType:   row.MessageType,
		Timestamp:     row.Timestamp,
	})
}

func (p *Pipeline) recordFailed(row *entity.MessageLog, destId, reason string) {
	ledger := &entity.ForwardedMessage{
		Id:            uuid.New().String(),
		TenantId:      row.TenantId,
		SourceRef:     row.Id,
		Username:      row.Username,
		GroupName:     row.GroupName,
		DestinationId: destId,
		ForwardedAt:   time.Now().UTC(),
		Outcome:       entity.ForwardFailed,
		FailureReason: reason,
	}
	if err := p.db.InsertForwarded(ledger); err != nil {
		p.log.Error("recording failed forward", sl.Err(err))
	}
}

// MatchKeywords tries each keyword as a case-insensitive regex and falls
// back to substring matching when the pattern does not compile.
func MatchKeywords(text string, keywords []string) []string {
	if text == "" || len(keywords) == 0 {
		return nil
	}
	var matched []string
	lower := strings.ToLower(text)
	for _, keyword := range keywords {
		re, err := regexp.Compile("(?i)" + keyword)
		if err == nil {
			if re.MatchString(text) {
				matched = append(matched, keyword)
			}
			continue
		}
		if strings.Contains(lower, strings.ToLower(keyword)) {
			matched = append(matched, keyword)
		}
	}
	return matched
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
