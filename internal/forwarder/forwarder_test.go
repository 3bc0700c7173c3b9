package forwarder

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgmon/entity"
)

type fakeSender struct {
	mu    sync.Mutex
	sent  []string // delivered texts in order
	chats []int64
	fail  func(attempt int) error
	calls int
}

func (f *fakeSender) SendMessage(chatId int64, text string, _ *tgbotapi.SendMessageOpts) (*tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail != nil {
		if err := f.fail(f.calls); err != nil {
			return nil, err
		}
	}
	f.sent = append(f.sent, text)
	f.chats = append(f.chats, chatId)
	return &tgbotapi.Message{MessageId: int64(len(f.sent))}, nil
}

func (f *fakeSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeLedger struct {
	mu        sync.Mutex
	rows      []*entity.ForwardedMessage
	delivered int
	lastError string
}

func (f *fakeLedger) InsertForwarded(row *entity.ForwardedMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeLedger) MarkDestinationDelivered(_, _ string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered++
	return nil
}

func (f *fakeLedger) SetDestinationError(_, _, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastError = message
	return nil
}

func (f *fakeLedger) outcomes() []entity.ForwardOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entity.ForwardOutcome, len(f.rows))
	for i, row := range f.rows {
		out[i] = row.Outcome
	}
	return out
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func request(ref string) entity.ForwardRequest {
	return entity.ForwardRequest{
		TenantId:      "t1",
		SourceRef:     ref,
		Username:      "alice",
		GroupName:     "trading",
		DestinationId: "d1",
		ChatId:        "-200600",
		Text:          "hello",
		MessageType:   entity.MessageText,
		Timestamp:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestDeliverOrder(t *testing.T) {
	sender := &fakeSender{}
	ledger := &fakeLedger{}
	engine := New(ledger, sender, Config{RateCount: 100, RateWindow: time.Second}, discard())
	defer engine.Stop(time.Second)

	for _, ref := range []string{"m1", "m2", "m3"} {
		req := request(ref)
		req.Text = ref
		engine.Enqueue(req)
	}

	waitFor(t, func() bool { return sender.sentCount() == 3 })

	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	require.Len(t, ledger.rows, 3)
	assert.Equal(t, "m1", ledger.rows[0].SourceRef)
	assert.Equal(t, "m2", ledger.rows[1].SourceRef)
	assert.Equal(t, "m3", ledger.rows[2].SourceRef)
	for _, row := range ledger.rows {
		assert.Equal(t, entity.ForwardDelivered, row.Outcome)
	}
	assert.Equal(t, 3, ledger.delivered)
	assert.Equal(t, int64(-200600), sender.chats[0])
}

func TestTransientRetry(t *testing.T) {
	sender := &fakeSender{
		fail: func(attempt int) error {
			if attempt <= 2 {
				return &tgbotapi.TelegramError{Code: 500, Description: "internal"}
			}
			return nil
		},
	}
	ledger := &fakeLedger{}
	engine := New(ledger, sender, Config{RateCount: 100, RateWindow: time.Second, MaxRetries: 5}, discard())
	defer engine.Stop(time.Second)

	engine.Enqueue(request("m1"))

	waitFor(t, func() bool { return sender.sentCount() == 1 })
	assert.Equal(t, []entity.ForwardOutcome{entity.ForwardDelivered}, ledger.outcomes())
}

func TestRetryAfterHintDelaysNextAttempt(t *testing.T) {
	sender := &fakeSender{
		fail: func(attempt int) error {
			if attempt == 1 {
				return &tgbotapi.TelegramError{
					Code:           429,
					Description:    "Too Many Requests",
					ResponseParams: &tgbotapi.ResponseParameters{RetryAfter: 1},
				}
			}
			return nil
		},
	}
	ledger := &fakeLedger{}
	engine := New(ledger, sender, Config{RateCount: 100, RateWindow: time.Second, MaxRetries: 5}, discard())
	defer engine.Stop(2 * time.Second)

	start := time.Now()
	engine.Enqueue(request("m1"))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && sender.sentCount() == 0 {
		time.Sleep(20 * time.Millisecond)
	}
	require.Equal(t, 1, sender.sentCount())
	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond,
		"second attempt must respect the server's retry_after")
	assert.Equal(t, []entity.ForwardOutcome{entity.ForwardDelivered}, ledger.outcomes())
}

func TestPermanentErrorNoRetry(t *testing.T) {
	sender := &fakeSender{
		fail: func(int) error {
			return &tgbotapi.TelegramError{Code: 403, Description: "bot was kicked"}
		},
	}
	ledger := &fakeLedger{}
	engine := New(ledger, sender, Config{RateCount: 100, RateWindow: time.Second, MaxRetries: 5}, discard())
	defer engine.Stop(time.Second)

	engine.Enqueue(request("m1"))

	waitFor(t, func() bool { return len(ledger.outcomes()) == 1 })
	assert.Equal(t, 1, sender.callCount(), "permanent errors must not be retried")
	assert.Equal(t, []entity.ForwardOutcome{entity.ForwardFailed}, ledger.outcomes())

	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	assert.Contains(t, ledger.lastError, "kicked")
}

func TestInvalidChatId(t *testing.T) {
	sender := &fakeSender{}
	ledger := &fakeLedger{}
	engine := New(ledger, sender, Config{RateCount: 100, RateWindow: time.Second}, discard())
	defer engine.Stop(time.Second)

	req := request("m1")
	req.ChatId = "@channelname"
	engine.Enqueue(req)

	waitFor(t, func() bool { return len(ledger.outcomes()) == 1 })
	assert.Equal(t, 0, sender.sentCount())
	assert.Equal(t, []entity.ForwardOutcome{entity.ForwardFailed}, ledger.outcomes())
}

func TestRatePacing(t *testing.T) {
	sender := &fakeSender{}
	ledger := &fakeLedger{}
	// burst of 2, then one token every 100ms
	engine := New(ledger, sender, Config{RateCount: 2, RateWindow: 200 * time.Millisecond}, discard())
	defer engine.Stop(time.Second)

	start := time.Now()
	for i := 0; i < 4; i++ {
		engine.Enqueue(request("m"))
	}
	waitFor(t, func() bool { return sender.sentCount() == 4 })

	// 2 sends burst immediately, the last two wait for refill
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestFormatDelivery(t *testing.T) {
	text := FormatDelivery(request("m1"))
	assert.Contains(t, text, "*@alice* in *trading*")
	assert.Contains(t, text, "hello")
	assert.Contains(t, text, "_ref: t1_")

	media := request("m2")
	media.Text = ""
	media.MessageType = entity.MessagePhoto
	assert.Contains(t, FormatDelivery(media), "photo message")
}

func TestEscape(t *testing.T) {
	assert.Equal(t, `a\.b`, Escape("a.b"))
	assert.Equal(t, `\*bold\*`, Escape("*bold*"))
	assert.Equal(t, "plain", Escape("plain"))
	assert.Equal(t, `\\`, Escape(`\`))
}
