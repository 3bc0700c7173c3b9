// Package forwarder delivers matched messages to destinations through the
// Bot API. One queue and one delivery goroutine per destination, each with
// its own token bucket, so ordering is FIFO within a destination and
// destinations never starve each other.
package forwarder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"tgmon/entity"
	"tgmon/lib/sl"
)

// Sender is the Bot API delivery call. Satisfied by *gotgbot.Bot.
type Sender interface {
	SendMessage(chatId int64, text string, opts *tgbotapi.SendMessageOpts) (*tgbotapi.Message, error)
}

// Database records delivery outcomes. Implemented by internal/database.
type Database interface {
	InsertForwarded(row *entity.ForwardedMessage) error
	MarkDestinationDelivered(tenantId, id string, at time.Time) error
	SetDestinationError(tenantId, id, message string) error
}

type Config struct {
	RateCount  int           // deliveries per window per destination
	RateWindow time.Duration // token bucket refill window
	MaxRetries int           // transient retry attempts before a failed row
	QueueSize  int           // per-destination queue capacity
}

type Engine struct {
	log    *slog.Logger
	db     Database
	sender Sender
	cfg    Config

	mu     sync.Mutex
	queues map[string]*destQueue
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type destQueue struct {
	ch      chan entity.ForwardRequest
	limiter *rate.Limiter
}

func New(db Database, sender Sender, cfg Config, log *slog.Logger) *Engine {
	if cfg.RateCount <= 0 {
		cfg.RateCount = 20
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		log:    log.With(sl.Module("forwarder")),
		db:     db,
		sender: sender,
		cfg:    cfg,
		queues: make(map[string]*destQueue),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Enqueue hands one delivery to the destination's queue, creating the queue
// and its delivery goroutine on first use. A full queue drops the request
// with a failed ledger row instead of blocking the pipeline.
func (e *Engine) Enqueue(req entity.ForwardRequest) {
	q := e.queue(req.TenantId, req.DestinationId)
	select {
	case q.ch <- req:
	default:
		e.log.With(
			slog.String("destination", req.DestinationId),
		).Warn("destination queue full, dropping delivery")
		e.record(req, entity.ForwardFailed, "queue overflow")
	}
}

// Stop closes the engine and waits for in-flight deliveries up to the grace
// period. Queued but unstarted deliveries are abandoned.
func (e *Engine) Stop(grace time.Duration) {
	e.cancel()
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		e.log.Warn("forwarder stopped before all deliveries drained")
	}
}

func (e *Engine) queue(tenantId, destinationId string) *destQueue {
	key := tenantId + "/" + destinationId
	e.mu.Lock()
	defer e.mu.Unlock()
	if q, ok := e.queues[key]; ok {
		return q
	}
	q := &destQueue{
		ch: make(chan entity.ForwardRequest, e.cfg.QueueSize),
		limiter: rate.NewLimiter(
			rate.Limit(float64(e.cfg.RateCount)/e.cfg.RateWindow.Seconds()),
			e.cfg.RateCount,
		),
	}
	e.queues[key] = q
	e.wg.Add(1)
	go e.drain(q)
	return q
}

func (e *Engine) drain(q *destQueue) {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case req := <-q.ch:
			if err := q.limiter.Wait(e.ctx); err != nil {
				return
			}
			e.deliver(req)
		}
	}
}

// deliver runs the retry chain for one request and writes exactly one
// terminal ledger row.
func (e *Engine) deliver(req entity.ForwardRequest) {
	logger := e.log.With(
		slog.String("tenant", req.TenantId),
		slog.String("destination", req.DestinationId),
		slog.String("source", req.SourceRef),
	)

	chatId, err := strconv.ParseInt(req.ChatId, 10, 64)
	if err != nil {
		logger.Error("invalid destination chat id", sl.Err(err))
		e.record(req, entity.ForwardFailed, "invalid chat id")
		return
	}

	text := FormatDelivery(req)

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 0

	for attempt := 0; ; attempt++ {
		_, sendErr := e.sender.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
			ParseMode: "MarkdownV2",
		})
		if sendErr == nil {
			e.record(req, entity.ForwardDelivered, "")
			if dbErr := e.db.MarkDestinationDelivered(req.TenantId, req.DestinationId, time.Now().UTC()); dbErr != nil {
				logger.Error("updating destination counters", sl.Err(dbErr))
			}
			logger.Debug("delivered")
			return
		}

		transient, retryAfter := classify(sendErr)
		if !transient || attempt >= e.cfg.MaxRetries {
			logger.Warn("delivery failed", sl.Err(sendErr))
			e.record(req, entity.ForwardFailed, sendErr.Error())
			if dbErr := e.db.SetDestinationError(req.TenantId, req.DestinationId, sendErr.Error()); dbErr != nil {
				logger.Error("recording destination error", sl.Err(dbErr))
			}
			return
		}

		// A retry_after hint raises the floor of the next wait; it does not
		// add a second sleep on top of the backoff interval.
		wait := policy.NextBackOff()
		if retryAfter > wait {
			wait = retryAfter
		}
		select {
		case <-e.ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (e *Engine) record(req entity.ForwardRequest, outcome entity.ForwardOutcome, reason string) {
	row := &entity.ForwardedMessage{
		Id:            uuid.New().String(),
		TenantId:      req.TenantId,
		SourceRef:     req.SourceRef,
		Username:      req.Username,
		GroupName:     req.GroupName,
		DestinationId: req.DestinationId,
		ForwardedAt:   time.Now().UTC(),
		Outcome:       outcome,
		FailureReason: reason,
	}
	if err := e.db.InsertForwarded(row); err != nil {
		e.log.Error("writing ledger row", sl.Err(err))
	}
}

// classify splits Bot API errors into transient (retry with backoff,
// honoring retry_after) and permanent (immediate failed row). Unknown
// errors, like network failures, count as transient.
func classify(err error) (transient bool, retryAfter time.Duration) {
	var tgErr *tgbotapi.TelegramError
	if errors.As(err, &tgErr) {
		switch {
		case tgErr.Code == 429:
			if tgErr.ResponseParams != nil && tgErr.ResponseParams.RetryAfter > 0 {
				return true, time.Duration(tgErr.ResponseParams.RetryAfter) * time.Second
			}
			return true, 0
		case tgErr.Code >= 500:
			return true, 0
		default:
			// 400 unknown chat, 403 bot kicked and the like.
			return false, 0
		}
	}
	return true, 0
}

// FormatDelivery renders the MarkdownV2 delivery body: source attribution
// header, the message text or a media placeholder, and a routing footer.
func FormatDelivery(req entity.ForwardRequest) string {
	header := fmt.Sprintf("*@%s* in *%s* at %s",
		Escape(req.Username),
		Escape(req.GroupName),
		Escape(req.Timestamp.UTC().Format("2006-01-02 15:04 UTC")),
	)
	body := Escape(req.Text)
	if req.MessageType != entity.MessageText && body == "" {
		body = Escape(fmt.Sprintf("[%s message]", req.MessageType))
	}
	footer := fmt.Sprintf("_ref: %s_", Escape(shortRef(req.TenantId)))
	return header + "\n\n" + body + "\n\n" + footer
}

// Escape escapes MarkdownV2 reserved characters.
func Escape(input string) string {
	reservedChars := "\\_{}#+-.!|()[]=*~`>"
	escaped := make([]rune, 0, len(input))
	for _, char := range input {
		for _, reserved := range reservedChars {
			if char == reserved {
				escaped = append(escaped, '\\')
				break
			}
		}
		escaped = append(escaped, char)
	}
	return string(escaped)
}

func shortRef(tenantId string) string {
	if len(tenantId) > 8 {
		return tenantId[:8]
	}
	return tenantId
}
