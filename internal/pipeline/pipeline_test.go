package pipeline

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgmon/entity"
)

type fakeStore struct {
	groups       map[string]*entity.Group // chat id → group
	watchers     []*entity.WatchUser
	destinations map[string]*entity.Destination
	archived     []*entity.MessageLog
	ledger       []*entity.ForwardedMessage
	seen         map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		groups:       map[string]*entity.Group{},
		destinations: map[string]*entity.Destination{},
		seen:         map[string]bool{},
	}
}

func (f *fakeStore) GetActiveGroupByChatId(_, chatId string) (*entity.Group, error) {
	group, ok := f.groups[chatId]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return group, nil
}

func (f *fakeStore) FindActiveWatchUsers(_, username, userId string) ([]*entity.WatchUser, error) {
	var found []*entity.WatchUser
	for _, w := range f.watchers {
		if w.Username == entity.NormalizeUsername(username) || (w.UserId != "" && w.UserId == userId) {
			found = append(found, w)
		}
	}
	return found, nil
}

func (f *fakeStore) InsertMessageIfAbsent(msg *entity.MessageLog) (bool, error) {
	key := msg.TenantId + "/" + msg.GroupId + "/" + msg.MessageId
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	f.archived = append(f.archived, msg)
	return true, nil
}

func (f *fakeStore) GetDestination(_, id string) (*entity.Destination, error) {
	dest, ok := f.destinations[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return dest, nil
}

func (f *fakeStore) InsertForwarded(row *entity.ForwardedMessage) error {
	f.ledger = append(f.ledger, row)
	return nil
}

type fakeForwarder struct {
	requests []entity.ForwardRequest
}

func (f *fakeForwarder) Enqueue(req entity.ForwardRequest) {
	f.requests = append(f.requests, req)
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func fixture() (*fakeStore, *fakeForwarder, *Pipeline) {
	store := newFakeStore()
	store.groups["-100500"] = &entity.Group{
		Id:        "g1",
		TenantId:  "t1",
		GroupId:   "-100500",
		GroupName: "trading",
		IsActive:  true,
	}
	store.destinations["d1"] = &entity.Destination{
		Id:            "d1",
		TenantId:      "t1",
		DestinationId: "-200600",
		IsActive:      true,
	}
	store.watchers = []*entity.WatchUser{{
		Id:             "w1",
		TenantId:       "t1",
		Username:       "alice",
		GroupIds:       []string{"g1"},
		Keywords:       []string{"btc", "eth"},
		DestinationIds: []string{"d1"},
		IsActive:       true,
	}}
	fwd := &fakeForwarder{}
	return store, fwd, New(store, fwd, discard())
}

func inbound(username, text, messageId string) *entity.InboundMessage {
	return &entity.InboundMessage{
		TenantId:    "t1",
		GroupId:     "-100500",
		Username:    username,
		UserId:      "9",
		MessageId:   messageId,
		Text:        text,
		MessageType: entity.MessageText,
		Timestamp:   time.Now().UTC(),
		IngestedVia: entity.IngestSession,
	}
}

func TestProcessMatch(t *testing.T) {
	store, fwd, pipe := fixture()

	require.NoError(t, pipe.Process(inbound("alice", "buy BTC now", "m1")))

	require.Len(t, store.archived, 1)
	row := store.archived[0]
	assert.Equal(t, "alice", row.Username)
	assert.Equal(t, "trading", row.GroupName)
	assert.Equal(t, []string{"btc"}, row.MatchedKeywords)

	require.Len(t, fwd.requests, 1)
	assert.Equal(t, "d1", fwd.requests[0].DestinationId)
	assert.Equal(t, "-200600", fwd.requests[0].ChatId)
	assert.Equal(t, row.Id, fwd.requests[0].SourceRef)
}

func TestProcessNoKeywordHit(t *testing.T) {
	store, fwd, pipe := fixture()

	require.NoError(t, pipe.Process(inbound("alice", "good morning", "m1")))

	assert.Empty(t, store.archived)
	assert.Empty(t, fwd.requests)
}

func TestProcessUnwatchedUser(t *testing.T) {
	store, fwd, pipe := fixture()

	require.NoError(t, pipe.Process(inbound("bob", "btc to the moon", "m1")))

	assert.Empty(t, store.archived)
	assert.Empty(t, fwd.requests)
}

func TestProcessGroupScope(t *testing.T) {
	store, fwd, pipe := fixture()
	store.groups["-100999"] = &entity.Group{
		Id:        "g2",
		TenantId:  "t1",
		GroupId:   "-100999",
		GroupName: "offtopic",
		IsActive:  true,
	}

	msg := inbound("alice", "btc talk", "m1")
	msg.GroupId = "-100999"
	require.NoError(t, pipe.Process(msg))

	assert.Empty(t, store.archived, "watcher is scoped to g1 only")
	assert.Empty(t, fwd.requests)
}

func TestProcessUnmonitoredGroupDropped(t *testing.T) {
	store, fwd, pipe := fixture()

	msg := inbound("alice", "btc", "m1")
	msg.GroupId = "-100777"
	require.NoError(t, pipe.Process(msg))

	assert.Empty(t, store.archived)
	assert.Empty(t, fwd.requests)
}

func TestProcessDuplicateEmitsNoForwards(t *testing.T) {
	store, fwd, pipe := fixture()

	require.NoError(t, pipe.Process(inbound("alice", "eth dip", "m1")))
	require.NoError(t, pipe.Process(inbound("alice", "eth dip", "m1")))

	assert.Len(t, store.archived, 1)
	assert.Len(t, fwd.requests, 1)
}

func TestProcessInactiveDestination(t *testing.T) {
	store, fwd, pipe := fixture()
	store.destinations["d1"].IsActive = false

	require.NoError(t, pipe.Process(inbound("alice", "btc alert", "m1")))

	assert.Empty(t, fwd.requests)
	require.Len(t, store.ledger, 1)
	assert.Equal(t, entity.ForwardFailed, store.ledger[0].Outcome)
	assert.Equal(t, entity.ReasonDestinationInactive, store.ledger[0].FailureReason)
	assert.Equal(t, "d1", store.ledger[0].DestinationId)
}

func TestProcessUnknownDestination(t *testing.T) {
	store, fwd, pipe := fixture()
	store.watchers[0].DestinationIds = []string{"gone"}

	require.NoError(t, pipe.Process(inbound("alice", "btc alert", "m1")))

	assert.Empty(t, fwd.requests)
	require.Len(t, store.ledger, 1)
	assert.Equal(t, entity.ForwardFailed, store.ledger[0].Outcome)
	assert.Equal(t, entity.ReasonDestinationUnavailable, store.ledger[0].FailureReason,
		"lookup failure is not the same as a deactivated destination")
	assert.Equal(t, "gone", store.ledger[0].DestinationId)
}

func TestProcessEmptyKeywordsMatchesAnyText(t *testing.T) {
	store, fwd, pipe := fixture()
	store.watchers[0].Keywords = nil

	require.NoError(t, pipe.Process(inbound("alice", "anything at all", "m1")))

	assert.Len(t, store.archived, 1)
	assert.Len(t, fwd.requests, 1)
	assert.Empty(t, store.archived[0].MatchedKeywords)
}

func TestMatchKeywords(t *testing.T) {
	assert.Equal(t, []string{"btc"}, MatchKeywords("Buy BTC today", []string{"btc", "eth"}))
	assert.Nil(t, MatchKeywords("", []string{"btc"}))
	assert.Nil(t, MatchKeywords("hello", nil))

	// regex keywords match as patterns
	assert.Equal(t, []string{"b.c"}, MatchKeywords("bxc", []string{"b.c"}))

	// invalid regex falls back to substring
	assert.Equal(t, []string{"c++("}, MatchKeywords("learning C++( now", []string{"c++("}))
}
