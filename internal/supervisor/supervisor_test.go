package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgmon/entity"
)

type fakeStore struct {
	mu          sync.Mutex
	active      []*entity.Account
	groups      []*entity.Group
	statuses    map[string]entity.AccountStatus
	lastErrors  map[string]string
	assignments map[string][]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		statuses:    map[string]entity.AccountStatus{},
		lastErrors:  map[string]string{},
		assignments: map[string][]string{},
	}
}

func (f *fakeStore) ListAccountsByStatus(_ entity.AccountStatus) ([]*entity.Account, error) {
	return f.active, nil
}

func (f *fakeStore) ListAccounts(_ string) ([]*entity.Account, error) {
	return f.active, nil
}

func (f *fakeStore) ListGroups(_ string, _ bool) ([]*entity.Group, error) {
	return f.groups, nil
}

func (f *fakeStore) SetAccountStatus(_, id string, status entity.AccountStatus, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = status
	f.lastErrors[id] = lastError
	return nil
}

func (f *fakeStore) SetAccountAssignments(_, id string, groupIds []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assignments[id] = groupIds
	return nil
}

func (f *fakeStore) SetAccountActivity(_, _ string, _ time.Time) error { return nil }

func (f *fakeStore) status(id string) entity.AccountStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[id]
}

type fakePipeline struct {
	mu   sync.Mutex
	msgs []entity.InboundMessage
}

func (f *fakePipeline) Process(msg *entity.InboundMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, *msg)
	return nil
}

func (f *fakePipeline) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

// fakeReceiver runs until cancelled, emitting the configured messages once
// after the delay, or fails immediately with err.
type fakeReceiver struct {
	err   error
	emit  []entity.InboundMessage
	delay time.Duration
}

func (f *fakeReceiver) Run(ctx context.Context, handler func(msg entity.InboundMessage)) error {
	if f.err != nil {
		return f.err
	}
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.delay):
		}
	}
	for _, msg := range f.emit {
		handler(msg)
	}
	<-ctx.Done()
	return ctx.Err()
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func account(id string) *entity.Account {
	return &entity.Account{Id: id, TenantId: "t1", Status: entity.AccountActive}
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

func TestAssignFairness(t *testing.T) {
	groups := []string{"g1", "g2", "g3", "g4", "g5"}
	accounts := []string{"a2", "a1"}

	assignment := Assign(groups, accounts)
	require.Len(t, assignment, 2)

	total := 0
	for _, assigned := range assignment {
		total += len(assigned)
	}
	assert.Equal(t, len(groups), total, "every group assigned exactly once")
	assert.LessOrEqual(t,
		abs(len(assignment["a1"])-len(assignment["a2"])), 1,
		"counts differ by at most one")

	// deterministic: lower account id gets the extra group
	assert.Len(t, assignment["a1"], 3)
	assert.Len(t, assignment["a2"], 2)

	again := Assign([]string{"g5", "g4", "g3", "g2", "g1"}, []string{"a1", "a2"})
	assert.Equal(t, assignment, again, "order of inputs does not matter")
}

func TestAssignNoAccounts(t *testing.T) {
	assert.Empty(t, Assign([]string{"g1"}, nil))
}

func TestRebalanceFiltersByAssignment(t *testing.T) {
	store := newFakeStore()
	store.groups = []*entity.Group{
		{Id: "g1", TenantId: "t1", GroupId: "-100500", IsActive: true},
	}
	pipe := &fakePipeline{}

	assigned := entity.InboundMessage{TenantId: "t1", GroupId: "-100500", MessageId: "m1"}
	unassigned := entity.InboundMessage{TenantId: "t1", GroupId: "-100999", MessageId: "m2"}

	sup := New(store, pipe, func(_ *entity.Account) Receiver {
		return &fakeReceiver{emit: []entity.InboundMessage{assigned, unassigned}, delay: 200 * time.Millisecond}
	}, 5, discard())
	defer sup.Stop(time.Second)

	sup.StartAccount(account("a1"))
	require.NoError(t, sup.Rebalance("t1"))

	waitFor(t, func() bool { return pipe.count() == 1 })
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, pipe.count(), "message outside the assigned set is dropped")
	pipe.mu.Lock()
	assert.Equal(t, "m1", pipe.msgs[0].MessageId)
	pipe.mu.Unlock()

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, []string{"g1"}, store.assignments["a1"])
}

func TestRestartKeepsAssignments(t *testing.T) {
	store := newFakeStore()
	store.groups = []*entity.Group{
		{Id: "g1", TenantId: "t1", GroupId: "-100500", IsActive: true},
	}
	pipe := &fakePipeline{}

	msg := entity.InboundMessage{TenantId: "t1", GroupId: "-100500", MessageId: "m1"}
	sup := New(store, pipe, func(_ *entity.Account) Receiver {
		return &fakeReceiver{emit: []entity.InboundMessage{msg}, delay: 200 * time.Millisecond}
	}, 5, discard())
	defer sup.Stop(time.Second)

	sup.StartAccount(account("a1"))
	require.NoError(t, sup.Rebalance("t1"))
	waitFor(t, func() bool { return pipe.count() == 1 })

	// a health-triggered restart must not leave the new runner unassigned
	sup.Restart("a1")
	waitFor(t, func() bool { return pipe.count() == 2 })
}

func TestArtifactErrorEscalatesImmediately(t *testing.T) {
	store := newFakeStore()
	pipe := &fakePipeline{}

	sup := New(store, pipe, func(_ *entity.Account) Receiver {
		return &fakeReceiver{err: fmt.Errorf("session not authorized: %w", entity.ErrArtifactInvalid)}
	}, 5, discard())
	defer sup.Stop(time.Second)

	sup.StartAccount(account("a1"))

	waitFor(t, func() bool { return store.status("a1") == entity.AccountError })
	assert.Empty(t, sup.allRunners(), "escalated account is stopped")
}

func TestRepeatedFailuresEscalate(t *testing.T) {
	store := newFakeStore()
	pipe := &fakePipeline{}

	sup := New(store, pipe, func(_ *entity.Account) Receiver {
		return &fakeReceiver{err: errors.New("connection reset")}
	}, 1, discard())
	defer sup.Stop(time.Second)

	sup.StartAccount(account("a1"))

	// maxReconnects=1: first failure backs off ~1s, second escalates
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if store.status("a1") == entity.AccountError {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	assert.Equal(t, entity.AccountError, store.status("a1"))
}

func TestStopAccount(t *testing.T) {
	store := newFakeStore()
	pipe := &fakePipeline{}

	sup := New(store, pipe, func(_ *entity.Account) Receiver {
		return &fakeReceiver{}
	}, 5, discard())
	defer sup.Stop(time.Second)

	sup.StartAccount(account("a1"))
	assert.Len(t, sup.allRunners(), 1)

	sup.StopAccount("a1")
	assert.Empty(t, sup.allRunners())
}

func TestClassifyHealth(t *testing.T) {
	now := time.Now()

	assert.Equal(t, entity.HealthHealthy, classifyHealth(true, now, 0, 0, now))
	assert.Equal(t, entity.HealthDegraded, classifyHealth(false, now, 0, 0, now))
	assert.Equal(t, entity.HealthFailed, classifyHealth(false, now, failThreshold, 0, now))
	assert.Equal(t, entity.HealthDegraded, classifyHealth(true, now.Add(-10*time.Minute), 0, 0, now))
	assert.Equal(t, entity.HealthDegraded, classifyHealth(true, now, 0, queueHighWater, now))
	assert.Equal(t, entity.HealthHealthy, classifyHealth(true, time.Time{}, 0, 0, now), "no events yet is not stale")
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
