// Package completion implements the completion connector (spec component
// C8): a single cooperative poller that drains a per-work completion set
// and dispatches exit codes to in-process waiters. It is the one
// synchronization point between async waiters and the store — per the
// concurrency model, it never blocks indefinitely because every sleep is
// bounded and cancellable.
package completion

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// DefaultPollInterval is the sleep between empty polls of the completion
// set.
const DefaultPollInterval = 1000 * time.Millisecond

// KVClient is the subset of the key-value connector the completion loop
// needs, declared here so tests can supply an in-memory fake.
type KVClient interface {
	SRandMember(ctx context.Context, key string) (string, error)
	SAdd(ctx context.Context, key string, member string) error
	SRem(ctx context.Context, key string, member string) error
}

// Logger is the minimal logging surface the loop needs: every error is
// logged and the loop continues (it must never die silently).
type Logger interface {
	Errorw(msg string, keysAndValues ...interface{})
}

type noopLogger struct{}

func (noopLogger) Errorw(string, ...interface{}) {}

// Result carries a task's outcome back to a waiter.
type Result struct {
	Code int
	Err  error
}

// Connector polls one work's completion set and signals in-process
// waiters. A connector is scoped to a single WorkId, matching the
// completion-set key's own scoping; a client constructs one connector per
// work it is actively waiting on.
type Connector struct {
	kv           KVClient
	log          Logger
	workID       string
	setKey       string
	pollInterval time.Duration

	mu        sync.Mutex
	resolvers map[string]func(Result)
	running   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// Config configures a completion connector.
type Config struct {
	WorkID       string
	PollInterval time.Duration
	Logger       Logger
}

// New creates a completion connector for one work. The poll loop does not
// start until Start is called.
func New(kv KVClient, cfg Config) *Connector {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Connector{
		kv:           kv,
		log:          logger,
		workID:       cfg.WorkID,
		setKey:       fmt.Sprintf("wf:%s:tasksPendingCompletionHandling", cfg.WorkID),
		pollInterval: interval,
		resolvers:    make(map[string]func(Result)),
	}
}

// Start launches the poll loop if it is not already running. Idempotent.
func (c *Connector) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.mu.Unlock()

	go c.loop(ctx)
}

// Stop flips the running flag and cancels the in-flight sleep, then waits
// for the loop goroutine to exit.
func (c *Connector) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	stopCh := c.stopCh
	doneCh := c.doneCh
	c.mu.Unlock()

	close(stopCh)
	<-doneCh
}

func (c *Connector) loop(ctx context.Context) {
	defer close(c.doneCh)

	for {
		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		taskID, err := c.kv.SRandMember(ctx, c.setKey)
		if err != nil {
			c.log.Errorw("completion: poll completion set failed", "workId", c.workID, "error", err)
			if c.sleep() {
				return
			}
			continue
		}
		if taskID == "" {
			if c.sleep() {
				return
			}
			continue
		}

		select {
		case <-c.stopCh:
			return
		default:
		}

		codeStr, err := c.kv.SRandMember(ctx, taskID)
		if err != nil {
			c.log.Errorw("completion: read exit code failed", "taskId", taskID, "error", err)
			continue
		}

		cb, ok := c.takeResolver(taskID)
		if !ok {
			// Late or unobserved completion — drain it so the set doesn't
			// grow unbounded, but nobody is waiting to be told.
			if err := c.kv.SRem(ctx, c.setKey, taskID); err != nil {
				c.log.Errorw("completion: drain unresolved task failed", "taskId", taskID, "error", err)
			}
			continue
		}

		if err := c.kv.SRem(ctx, c.setKey, taskID); err != nil {
			c.log.Errorw("completion: drain completion set failed", "taskId", taskID, "error", err)
		}

		code, convErr := strconv.Atoi(codeStr)
		if convErr != nil {
			cb(Result{Err: fmt.Errorf("completion: non-integer exit code %q for %s", codeStr, taskID)})
			continue
		}
		cb(Result{Code: code})
	}
}

// sleep waits pollInterval or until stop is requested, returning true if
// stop fired.
func (c *Connector) sleep() bool {
	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()
	select {
	case <-c.stopCh:
		return true
	case <-timer.C:
		return false
	}
}

// WaitForTask installs a resolver for taskID and returns a channel that
// receives exactly one Result. Returns an error if a waiter is already
// registered for this taskID.
func (c *Connector) WaitForTask(taskID string) (<-chan Result, error) {
	ch := make(chan Result, 1)

	c.mu.Lock()
	if _, exists := c.resolvers[taskID]; exists {
		c.mu.Unlock()
		return nil, fmt.Errorf("completion: waiter already registered for %s", taskID)
	}
	c.resolvers[taskID] = func(r Result) { ch <- r }
	c.mu.Unlock()

	return ch, nil
}

func (c *Connector) takeResolver(taskID string) (func(Result), bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cb, ok := c.resolvers[taskID]
	if ok {
		delete(c.resolvers, taskID)
	}
	return cb, ok
}

// CancelWait drops the resolver for taskID, if any, reporting whether one
// was removed.
func (c *Connector) CancelWait(taskID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.resolvers[taskID]; ok {
		delete(c.resolvers, taskID)
		return true
	}
	return false
}

// NotifyTaskCompletion writes code as the exit-code member for taskID and
// adds taskID to the completion set. Workers perform these two writes
// themselves; this exists for tests and simulation.
func (c *Connector) NotifyTaskCompletion(ctx context.Context, taskID string, code int) error {
	if err := c.kv.SAdd(ctx, taskID, strconv.Itoa(code)); err != nil {
		return err
	}
	return c.kv.SAdd(ctx, c.setKey, taskID)
}

// PeekExitCode performs a non-destructive read of taskID's exit-code set.
func (c *Connector) PeekExitCode(ctx context.Context, taskID string) (code int, ok bool, err error) {
	val, err := c.kv.SRandMember(ctx, taskID)
	if err != nil {
		return 0, false, err
	}
	if val == "" {
		return 0, false, nil
	}
	code, convErr := strconv.Atoi(val)
	if convErr != nil {
		return 0, false, fmt.Errorf("completion: non-integer exit code %q for %s", val, taskID)
	}
	return code, true, nil
}
