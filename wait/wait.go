// Package wait implements the wait/watch engine (spec component C10):
// single-task wait, many-task wait with optional fail-fast, and whole-work
// watch with timeout and idle-deadline semantics, all built atop the
// completion connector.
package wait

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/scicore-run/forge/completion"
)

// State is the terminal (or, for watchWork, current) outcome of a wait.
type State string

const (
	StateDone    State = "DONE"
	StateTimeout State = "TIMEOUT"
	StateFailed  State = "FAILED"
	StateIdle    State = "IDLE"
)

// KVClient is the subset of the key-value connector the engine needs
// beyond what the completion connector already wraps.
type KVClient interface {
	MultiSRandMember(ctx context.Context, keys []string) ([]string, error)
	SCard(ctx context.Context, key string) (int64, error)
	SMembers(ctx context.Context, key string) ([]string, error)
}

// TaskResult is one task's observed outcome.
type TaskResult struct {
	TaskID string
	Code   int
}

// Result is returned by WaitForTask.
type Result struct {
	State  State
	TaskID string
	Code   int
}

// ManyResult is returned by WaitForMany.
type ManyResult struct {
	State   State
	Done    []TaskResult
	Pending []string
}

// Event is emitted by WatchWork's onEvent callback as tasks complete.
type Event struct {
	Type   string // "task:done" or "progress"
	TaskID string
	Code   int
	Done   int
	Total  int
}

// WatchResult is returned by WatchWork.
type WatchResult struct {
	State   State
	Total   int
	Results []TaskResult
}

// Engine owns one completion connector per work it has been asked to wait
// on, created lazily via factory.
type Engine struct {
	kv      KVClient
	factory func(workID string) *completion.Connector

	mu         sync.Mutex
	connectors map[string]*completion.Connector
}

// New creates a wait/watch engine. factory builds a completion connector
// scoped to one workID; the engine caches and reuses one per workID.
func New(kv KVClient, factory func(workID string) *completion.Connector) *Engine {
	return &Engine{kv: kv, factory: factory, connectors: make(map[string]*completion.Connector)}
}

func (e *Engine) connectorFor(workID string) *completion.Connector {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.connectors[workID]; ok {
		return c
	}
	c := e.factory(workID)
	e.connectors[workID] = c
	return c
}

// WaitForTaskOptions configures WaitForTask.
type WaitForTaskOptions struct {
	TimeoutSec float64
}

// WaitForTask waits for a single task's completion, short-circuiting via a
// fast peek before starting the completion connector's poll loop or
// registering a waiter.
func (e *Engine) WaitForTask(ctx context.Context, workID, taskID string, opts WaitForTaskOptions) (Result, error) {
	conn := e.connectorFor(workID)

	if code, ok, err := conn.PeekExitCode(ctx, taskID); err != nil {
		return Result{}, err
	} else if ok {
		return Result{State: StateDone, TaskID: taskID, Code: code}, nil
	}

	conn.Start(ctx)
	ch, err := conn.WaitForTask(taskID)
	if err != nil {
		return Result{}, err
	}

	var timeoutCh <-chan time.Time
	if opts.TimeoutSec > 0 {
		timer := time.NewTimer(time.Duration(opts.TimeoutSec * float64(time.Second)))
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case res := <-ch:
		if res.Err != nil {
			return Result{}, res.Err
		}
		return Result{State: StateDone, TaskID: taskID, Code: res.Code}, nil
	case <-timeoutCh:
		conn.CancelWait(taskID)
		// Last fast-peek before declaring TIMEOUT: the exit code may have
		// landed between the timer firing and this line.
		if code, ok, err := conn.PeekExitCode(ctx, taskID); err != nil {
			return Result{}, err
		} else if ok {
			return Result{State: StateDone, TaskID: taskID, Code: code}, nil
		}
		return Result{State: StateTimeout, TaskID: taskID}, nil
	case <-ctx.Done():
		conn.CancelWait(taskID)
		return Result{}, ctx.Err()
	}
}

// WaitForManyOptions configures WaitForMany.
type WaitForManyOptions struct {
	TimeoutSec float64
	FailFast   bool
}

// WaitForMany waits for a set of tasks, pipelining a fast-peek over all of
// them up front.
func (e *Engine) WaitForMany(ctx context.Context, workID string, taskIDs []string, opts WaitForManyOptions) (ManyResult, error) {
	codes, err := e.kv.MultiSRandMember(ctx, taskIDs)
	if err != nil {
		return ManyResult{}, err
	}

	var done []TaskResult
	var pendingIDs []string
	for i, taskID := range taskIDs {
		if codes[i] != "" {
			if code, convErr := strconv.Atoi(codes[i]); convErr == nil {
				done = append(done, TaskResult{TaskID: taskID, Code: code})
				continue
			}
		}
		pendingIDs = append(pendingIDs, taskID)
	}

	if len(pendingIDs) == 0 {
		return ManyResult{State: StateDone, Done: done, Pending: nil}, nil
	}

	if opts.FailFast {
		for _, d := range done {
			if d.Code != 0 {
				return ManyResult{State: StateFailed, Done: done, Pending: pendingIDs}, nil
			}
		}
	}

	conn := e.connectorFor(workID)
	conn.Start(ctx)

	type event struct {
		taskID string
		res    completion.Result
	}
	events := make(chan event, len(pendingIDs))
	pending := make(map[string]bool, len(pendingIDs))
	// giveUp is closed by cancelRemaining so every still-blocked per-id
	// goroutine below has somewhere else to go: without it, a goroutine
	// whose resolver was dropped by CancelWait would block on <-ch forever,
	// since nothing closes or writes to ch once the resolver is gone.
	giveUp := make(chan struct{})
	for _, id := range pendingIDs {
		ch, err := conn.WaitForTask(id)
		if err != nil {
			return ManyResult{}, err
		}
		pending[id] = true
		go func(id string, ch <-chan completion.Result) {
			select {
			case res := <-ch:
				events <- event{taskID: id, res: res}
			case <-giveUp:
			}
		}(id, ch)
	}

	cancelRemaining := func() []string {
		remaining := make([]string, 0, len(pending))
		for id := range pending {
			conn.CancelWait(id)
			remaining = append(remaining, id)
		}
		close(giveUp)
		return remaining
	}

	var timeoutCh <-chan time.Time
	if opts.TimeoutSec > 0 {
		timer := time.NewTimer(time.Duration(opts.TimeoutSec * float64(time.Second)))
		defer timer.Stop()
		timeoutCh = timer.C
	}

	for len(pending) > 0 {
		select {
		case ev := <-events:
			delete(pending, ev.taskID)
			if ev.res.Err != nil {
				continue
			}
			done = append(done, TaskResult{TaskID: ev.taskID, Code: ev.res.Code})
			if opts.FailFast && ev.res.Code != 0 {
				return ManyResult{State: StateFailed, Done: done, Pending: cancelRemaining()}, nil
			}
		case <-timeoutCh:
			return ManyResult{State: StateTimeout, Done: done, Pending: cancelRemaining()}, nil
		case <-ctx.Done():
			cancelRemaining()
			return ManyResult{}, ctx.Err()
		}
	}

	return ManyResult{State: StateDone, Done: done, Pending: nil}, nil
}

// WatchOptions configures WatchWork.
type WatchOptions struct {
	TimeoutSec float64
	IdleSec    float64
	PollMs     int
	Expected   int
	OnEvent    func(Event)
}

// WatchWork watches an entire work's task set until all expected tasks
// complete, a timeout elapses, or no new completion is observed for
// IdleSec.
func (e *Engine) WatchWork(ctx context.Context, workID string, opts WatchOptions) (WatchResult, error) {
	worksetKey := fmt.Sprintf("work:%s:tasks", workID)

	expected := opts.Expected
	if expected == 0 {
		n, err := e.kv.SCard(ctx, worksetKey)
		if err != nil {
			return WatchResult{}, err
		}
		expected = int(n)
	}

	members, err := e.kv.SMembers(ctx, worksetKey)
	if err != nil {
		return WatchResult{}, err
	}
	if len(members) > expected {
		// The set may grow concurrently with the snapshot read; the
		// snapshot taken here is authoritative for this call.
		members = members[:expected]
	}

	codes, err := e.kv.MultiSRandMember(ctx, members)
	if err != nil {
		return WatchResult{}, err
	}

	var results []TaskResult
	emit := func(taskID string, code int) {
		results = append(results, TaskResult{TaskID: taskID, Code: code})
		if opts.OnEvent != nil {
			opts.OnEvent(Event{Type: "task:done", TaskID: taskID, Code: code, Done: len(results), Total: expected})
			opts.OnEvent(Event{Type: "progress", Done: len(results), Total: expected})
		}
	}

	var waitingIDs []string
	for i, taskID := range members {
		if codes[i] != "" {
			if code, convErr := strconv.Atoi(codes[i]); convErr == nil {
				emit(taskID, code)
				continue
			}
		}
		waitingIDs = append(waitingIDs, taskID)
	}

	if len(results) >= expected {
		return WatchResult{State: StateDone, Total: expected, Results: results}, nil
	}

	conn := e.connectorFor(workID)
	conn.Start(ctx)

	waiters := make(map[string]<-chan completion.Result, len(waitingIDs))
	for _, id := range waitingIDs {
		ch, err := conn.WaitForTask(id)
		if err != nil {
			return WatchResult{}, err
		}
		waiters[id] = ch
	}

	cancelRemaining := func() {
		for id := range waiters {
			conn.CancelWait(id)
		}
	}

	pollInterval := time.Duration(opts.PollMs) * time.Millisecond
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	start := time.Now()
	lastNew := time.Now()

	for len(waiters) > 0 {
		for id, ch := range waiters {
			select {
			case res := <-ch:
				delete(waiters, id)
				if res.Err == nil {
					emit(id, res.Code)
					lastNew = time.Now()
				}
			default:
			}
		}

		if len(results) >= expected {
			return WatchResult{State: StateDone, Total: expected, Results: results}, nil
		}

		if opts.TimeoutSec > 0 && time.Since(start).Seconds() > opts.TimeoutSec {
			cancelRemaining()
			return WatchResult{State: StateTimeout, Total: expected, Results: results}, nil
		}
		if opts.IdleSec > 0 && time.Since(lastNew).Seconds() > opts.IdleSec {
			cancelRemaining()
			return WatchResult{State: StateIdle, Total: expected, Results: results}, nil
		}

		select {
		case <-time.After(pollInterval):
		case <-ctx.Done():
			cancelRemaining()
			return WatchResult{}, ctx.Err()
		}
	}

	return WatchResult{State: StateDone, Total: expected, Results: results}, nil
}
