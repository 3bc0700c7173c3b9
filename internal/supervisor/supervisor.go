// Package supervisor owns one long-lived session receiver per active
// account: start/stop, bounded reconnect, error escalation, group
// assignments and health probing.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"tgmon/entity"
	"tgmon/lib/sl"
)

// A run that survives this long resets the consecutive failure counter.
const stableRunAge = time.Minute

// Pipeline consumes messages received by session clients.
type Pipeline interface {
	Process(msg *entity.InboundMessage) error
}

// Database is the store surface the supervisor needs.
// Implemented by internal/database.
type Database interface {
	ListAccountsByStatus(status entity.AccountStatus) ([]*entity.Account, error)
	ListAccounts(tenantId string) ([]*entity.Account, error)
	ListGroups(tenantId string, includeInactive bool) ([]*entity.Group, error)
	SetAccountStatus(tenantId, id string, status entity.AccountStatus, lastError string) error
	SetAccountAssignments(tenantId, id string, groupIds []string) error
	SetAccountActivity(tenantId, id string, at time.Time) error
}

// Receiver streams messages for one account session until cancelled.
// Implemented by tgclient.Client; replaced by fakes in tests.
type Receiver interface {
	Run(ctx context.Context, handler func(msg entity.InboundMessage)) error
}

// Factory builds a receiver for an account.
type Factory func(account *entity.Account) Receiver

type Supervisor struct {
	log           *slog.Logger
	db            Database
	pipe          Pipeline
	factory       Factory
	maxReconnects int

	mu      sync.Mutex
	runners map[string]*runner // account id → runner
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// runner is the mutable runtime state of one receiver task. The assigned
// set holds external chat ids; mutations go through the runner mutex.
type runner struct {
	account *entity.Account
	cancel  context.CancelFunc
	queue   chan entity.InboundMessage

	mu         sync.Mutex
	assigned   map[string]bool
	connected  bool
	lastEvent  time.Time
	reconnects int
}

func New(db Database, pipe Pipeline, factory Factory, maxReconnects int, log *slog.Logger) *Supervisor {
	if maxReconnects <= 0 {
		maxReconnects = 5
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		log:           log.With(sl.Module("supervisor")),
		db:            db,
		pipe:          pipe,
		factory:       factory,
		maxReconnects: maxReconnects,
		runners:       make(map[string]*runner),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start launches receivers for every account that was active before the
// restart, then rebuilds each tenant's assignment table.
func (s *Supervisor) Start() error {
	accounts, err := s.db.ListAccountsByStatus(entity.AccountActive)
	if err != nil {
		return fmt.Errorf("loading active accounts: %w", err)
	}
	tenants := map[string]bool{}
	for _, account := range accounts {
		s.StartAccount(account)
		tenants[account.TenantId] = true
	}
	for tenantId := range tenants {
		if err = s.Rebalance(tenantId); err != nil {
			s.log.With(slog.String("tenant", tenantId)).Error("rebalance", sl.Err(err))
		}
	}
	s.log.With(slog.Int("accounts", len(accounts))).Info("supervisor started")
	return nil
}

// StartAccount spawns the receiver loop for one account. Connection errors
// surface asynchronously through the state machine, not here.
func (s *Supervisor) StartAccount(account *entity.Account) {
	s.mu.Lock()
	if _, exists := s.runners[account.Id]; exists {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(s.ctx)
	r := &runner{
		account:  account,
		cancel:   cancel,
		queue:    make(chan entity.InboundMessage, 128),
		assigned: make(map[string]bool),
	}
	s.runners[account.Id] = r
	s.mu.Unlock()

	s.wg.Add(2)
	go s.runReceiver(ctx, r)
	go s.drainQueue(ctx, r)
}

// StopAccount cancels the account's receiver and drops its runtime state.
func (s *Supervisor) StopAccount(accountId string) {
	s.mu.Lock()
	r, ok := s.runners[accountId]
	if ok {
		delete(s.runners, accountId)
	}
	s.mu.Unlock()
	if ok {
		r.cancel()
	}
}

// Restart stops and relaunches the receiver with a fresh backoff chain.
// Used by the health monitor on failed accounts. The new runner starts with
// an empty assignment filter, so the tenant is rebalanced right away;
// without that, every message would be dropped until the next group or
// account change.
func (s *Supervisor) Restart(accountId string) {
	s.mu.Lock()
	r, ok := s.runners[accountId]
	s.mu.Unlock()
	if !ok {
		return
	}
	account := r.account
	s.StopAccount(accountId)
	s.StartAccount(account)
	if err := s.Rebalance(account.TenantId); err != nil {
		s.log.With(
			slog.String("tenant", account.TenantId),
			slog.String("account", accountId),
		).Error("rebalance after restart", sl.Err(err))
	}
}

// Stop drains every receiver within the grace period.
func (s *Supervisor) Stop(grace time.Duration) {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		s.log.Warn("supervisor stopped before receivers drained")
	}
}

// runReceiver is the reconnect loop. Transient failures back off
// exponentially; too many consecutive failures, or a catastrophic artifact
// error, escalate the account to error state and stop the loop.
func (s *Supervisor) runReceiver(ctx context.Context, r *runner) {
	defer s.wg.Done()
	logger := s.log.With(
		slog.String("tenant", r.account.TenantId),
		slog.String("account", r.account.Id),
	)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = time.Minute
	policy.MaxElapsedTime = 0

	consecutive := 0
	for {
		receiver := s.factory(r.account)
		started := time.Now()
		r.setConnected(true)
		err := receiver.Run(ctx, r.enqueue)
		r.setConnected(false)

		if ctx.Err() != nil {
			return
		}

		if errors.Is(err, entity.ErrArtifactInvalid) {
			logger.Error("session artifact rejected", sl.Err(err))
			s.escalate(r, err)
			return
		}

		if time.Since(started) > stableRunAge {
			consecutive = 0
			policy.Reset()
		}
		consecutive++
		r.bumpReconnects()

		if consecutive > s.maxReconnects {
			logger.Error("receiver failed repeatedly", sl.Err(err))
			s.escalate(r, err)
			return
		}

		wait := policy.NextBackOff()
		logger.With(
			slog.Int("attempt", consecutive),
			slog.Float64("wait", wait.Seconds()),
		).Warn("receiver disconnected, reconnecting", sl.Err(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (s *Supervisor) escalate(r *runner, cause error) {
	message := "receiver failed"
	if cause != nil {
		message = cause.Error()
	}
	if err := s.db.SetAccountStatus(r.account.TenantId, r.account.Id, entity.AccountError, message); err != nil {
		s.log.Error("escalating account", sl.Err(err))
	}
	s.StopAccount(r.account.Id)
}

// drainQueue feeds the pipeline sequentially so archive writes keep the
// receive order of this account.
func (s *Supervisor) drainQueue(ctx context.Context, r *runner) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-r.queue:
			if !r.isAssigned(msg.GroupId) {
				continue
			}
			if err := s.pipe.Process(&msg); err != nil {
				s.log.With(
					slog.String("account", r.account.Id),
				).Error("processing message", sl.Err(err))
			}
			if err := s.db.SetAccountActivity(r.account.TenantId, r.account.Id, time.Now().UTC()); err != nil {
				s.log.Debug("recording account activity", sl.Err(err))
			}
		}
	}
}

func (r *runner) enqueue(msg entity.InboundMessage) {
	r.mu.Lock()
	r.lastEvent = time.Now()
	r.mu.Unlock()
	select {
	case r.queue <- msg:
	default:
		// Upstream drives pace; shed load rather than block the receiver.
	}
}

func (r *runner) setConnected(connected bool) {
	r.mu.Lock()
	r.connected = connected
	r.mu.Unlock()
}

func (r *runner) bumpReconnects() {
	r.mu.Lock()
	r.reconnects++
	r.mu.Unlock()
}

func (r *runner) isAssigned(chatId string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.assigned[chatId]
}

func (r *runner) setAssigned(chatIds []string) {
	assigned := make(map[string]bool, len(chatIds))
	for _, id := range chatIds {
		assigned[id] = true
	}
	r.mu.Lock()
	r.assigned = assigned
	r.mu.Unlock()
}

// stats is the health probe snapshot of one runner.
func (r *runner) stats() (connected bool, lastEvent time.Time, reconnects, queueDepth int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected, r.lastEvent, r.reconnects, len(r.queue)
}

// resetReconnects closes a probe window.
func (r *runner) resetReconnects() {
	r.mu.Lock()
	r.reconnects = 0
	r.mu.Unlock()
}

func (s *Supervisor) tenantRunners(tenantId string) []*runner {
	s.mu.Lock()
	defer s.mu.Unlock()
	var runners []*runner
	for _, r := range s.runners {
		if r.account.TenantId == tenantId {
			runners = append(runners, r)
		}
	}
	return runners
}

func (s *Supervisor) allRunners() []*runner {
	s.mu.Lock()
	defer s.mu.Unlock()
	runners := make([]*runner, 0, len(s.runners))
	for _, r := range s.runners {
		runners = append(runners, r)
	}
	return runners
}
