// Package game wires one session's store handle, replication client,
// analytics, difficulty controller and rule engine into a Runtime. Each
// Runtime owns a single dispatcher goroutine draining an ordered task queue;
// remote change events, local gameplay mutations and scheduled evaluation
// passes all run to completion on that goroutine, never concurrently. Many
// runtimes can coexist in one process.
package game

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/korpimaa/nightexpress/internal/analytics"
	"github.com/korpimaa/nightexpress/internal/casefile"
	"github.com/korpimaa/nightexpress/internal/difficulty"
	"github.com/korpimaa/nightexpress/internal/errors"
	"github.com/korpimaa/nightexpress/internal/models"
	"github.com/korpimaa/nightexpress/internal/replication"
	"github.com/korpimaa/nightexpress/internal/rules"
)

// ErrStopped is returned by operations submitted after Close.
var ErrStopped = errors.NewSentinel("session runtime stopped")

// Hooks are optional callbacks fired from the dispatcher goroutine. They must
// not block; hand off to a channel if delivery can stall.
type Hooks struct {
	// OnUnlock fires once per evaluation pass that awarded something.
	OnUnlock func(rules.Result)
}

// Runtime is the per-session context object. Construct one per active
// session, bind its client (create or join), then Start it.
type Runtime struct {
	client *replication.Client
	bundle *casefile.Bundle
	logger *slog.Logger
	hooks  Hooks

	aggregator *analytics.Aggregator
	controller *difficulty.Controller
	engine     *rules.Engine

	mu      sync.Mutex
	queue   []func()
	stopped bool
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}

	handle *replication.SubscriptionHandle

	// Dispatcher-goroutine state, never touched elsewhere.
	evalPending bool
}

// NewRuntime builds an unstarted runtime. The clock is injectable for the
// difficulty cooldown; pass nil for wall time.
func NewRuntime(client *replication.Client, bundle *casefile.Bundle, logger *slog.Logger, now func() time.Time, hooks Hooks) *Runtime {
	r := &Runtime{
		client: client,
		bundle: bundle,
		logger: logger,
		hooks:  hooks,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	totals := analytics.Totals{
		Vocabulary: bundle.TotalVocabulary(),
		Clues:      bundle.TotalClues(),
	}
	r.aggregator = analytics.NewAggregator(totals, r.scheduleEvaluation)
	r.controller = difficulty.NewController(r, logger, now)
	r.engine = rules.NewEngine(r, logger, now)
	return r
}

// Client exposes the underlying replication client for session setup and
// stream reads.
func (r *Runtime) Client() *replication.Client {
	return r.client
}

// Start subscribes to the bound session's change feed and launches the
// dispatcher. The client must be bound to a session first.
func (r *Runtime) Start(ctx context.Context) error {
	session, bound := r.client.Session()
	if !bound {
		return errors.Wrap(replication.ErrNoSession, "start runtime")
	}
	r.controller.AdoptRemote(session.Difficulty)

	handle, err := r.client.Subscribe(r.onSessionChange, r.onJournalInsert, r.onChatInsert)
	if err != nil {
		return errors.Wrap(err, "subscribe runtime")
	}
	r.handle = handle

	go r.dispatch(ctx)
	return nil
}

// Close stops the dispatcher and releases the change listeners. Queued tasks
// that have not started are dropped. Idempotent.
func (r *Runtime) Close() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	close(r.stop)
	r.mu.Unlock()

	if r.handle != nil {
		r.handle.Close()
	}
	<-r.done
}

func (r *Runtime) dispatch(ctx context.Context) {
	defer close(r.done)
	for {
		task := r.pop()
		if task != nil {
			task()
			continue
		}
		select {
		case <-r.wake:
		case <-r.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *Runtime) pop() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 {
		return nil
	}
	task := r.queue[0]
	r.queue = r.queue[1:]
	return task
}

// enqueue appends a task. Safe from any goroutine, including the dispatcher
// itself, which is how evaluation passes are scheduled without re-entrancy.
func (r *Runtime) enqueue(task func()) bool {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return false
	}
	r.queue = append(r.queue, task)
	r.mu.Unlock()
	select {
	case r.wake <- struct{}{}:
	default:
	}
	return true
}

// run submits a task and waits for it to complete. Must not be called from
// the dispatcher goroutine.
func (r *Runtime) run(ctx context.Context, task func(context.Context) error) error {
	result := make(chan error, 1)
	ok := r.enqueue(func() {
		result <- task(ctx)
	})
	if !ok {
		return errors.Wrap(ErrStopped, "submit task")
	}
	select {
	case err := <-result:
		return err
	case <-r.stop:
		return errors.Wrap(ErrStopped, "await task")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// scheduleEvaluation queues one evaluation pass. Called by the aggregator
// after every recompute, always on the dispatcher goroutine; consecutive
// recomputes inside one task coalesce into a single pass.
func (r *Runtime) scheduleEvaluation() {
	if r.evalPending {
		return
	}
	r.evalPending = true
	r.enqueue(func() {
		r.evalPending = false
		r.evaluationPass()
	})
}

func (r *Runtime) evaluationPass() {
	ctx := context.Background()
	snapshot := r.aggregator.Snapshot()
	counters := r.aggregator.Counters()

	if err := r.controller.Evaluate(ctx, snapshot); err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "difficulty evaluation failed", errors.SlogError(err))
	}
	result, err := r.engine.Evaluate(ctx, snapshot, counters)
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "rule evaluation failed", errors.SlogError(err))
	}
	if r.hooks.OnUnlock != nil && (len(result.Achievements) > 0 || len(result.Checkpoints) > 0) {
		r.hooks.OnUnlock(result)
	}
}

// Change-feed callbacks. They run on the subscription goroutine and only
// enqueue; all state mutation happens on the dispatcher.

func (r *Runtime) onSessionChange(session models.Session) {
	r.enqueue(func() {
		r.controller.AdoptRemote(session.Difficulty)
	})
}

// onJournalInsert counts detective-authored entries toward engagement. Both
// replicas see the same inserts, so counting here keeps their analytics
// converging regardless of which side wrote the entry.
func (r *Runtime) onJournalInsert(entry models.JournalEntry) {
	if entry.Actor == models.ActorSystem || entry.Actor == rules.ActorConductor {
		return
	}
	r.enqueue(func() {
		r.aggregator.RecordJournalEntry()
	})
}

func (r *Runtime) onChatInsert(message models.ChatMessage) {
	session, bound := r.client.Session()
	if !bound {
		return
	}
	teacherBroadcast := message.Sender == session.TeacherID
	r.enqueue(func() {
		r.aggregator.RecordChatMessage(teacherBroadcast)
	})
}
