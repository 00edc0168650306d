// Package submission implements the submission engine (spec component C9):
// it orchestrates the batch planner, descriptor builder, and the queue and
// key-value connectors, with rate limiting and crash-safe rollback on
// publish failure.
package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/scicore-run/forge/descriptor"
	"github.com/scicore-run/forge/ids"
	"github.com/scicore-run/forge/manifest"
	"github.com/scicore-run/forge/planner"
)

// KVClient is the subset of the key-value connector the engine needs.
type KVClient interface {
	LPush(ctx context.Context, key string, value string) error
	Del(ctx context.Context, key string) error
	SAdd(ctx context.Context, key string, member string) error
	SRem(ctx context.Context, key string, member string) error
}

// QueueClient is the subset of the queue connector the engine needs.
type QueueClient interface {
	CheckQueueOrThrow(ctx context.Context, name string) error
	Publish(ctx context.Context, name string, payload string) error
	PublishBurst(ctx context.Context, name string, payload string) error
}

// Engine wires the planner, descriptor builder, and connectors together.
type Engine struct {
	kv            KVClient
	queue         QueueClient
	lister        planner.Lister
	defaultWorkID string
}

// New creates a submission engine. defaultWorkID is used when a manifest
// doesn't carry its own metadata.workId.
func New(kv KVClient, queue QueueClient, lister planner.Lister, defaultWorkID string) *Engine {
	return &Engine{kv: kv, queue: queue, lister: lister, defaultWorkID: defaultWorkID}
}

// SingleResult is returned by CreateSingle.
type SingleResult struct {
	TaskID string
}

// TaskResult is one batch entry; Error is set when that task's submission
// failed and was rolled back.
type TaskResult struct {
	TaskID string
	Source planner.Source
	Error  error
}

// BatchResult is returned by CreateBatch.
type BatchResult struct {
	WorkID string
	Tasks  []TaskResult
}

// BatchOptions configures CreateBatch.
type BatchOptions struct {
	// RatePerSec caps publications per second. Zero/negative disables the
	// limiter (pure burst-plus-drain).
	RatePerSec float64
	// StopOnError re-raises the first per-task error after rollback,
	// instead of continuing to the remaining plan items.
	StopOnError bool
}

func resolveWorkID(manifestWorkID, defaultWorkID string) string {
	if manifestWorkID != "" {
		return ids.NewWorkID(manifestWorkID)
	}
	return ids.NewWorkID(defaultWorkID)
}

// CreateSingle submits one task directly from the manifest, without
// consulting the batch planner.
func (e *Engine) CreateSingle(ctx context.Context, man manifest.Manifest) (SingleResult, error) {
	workID := resolveWorkID(man.Metadata.WorkID, e.defaultWorkID)
	taskID := ids.NewTaskID(workID)

	item := planner.SingleItem(man.Spec)
	desc := descriptor.Build(man.Spec, item, taskID)

	payload, err := json.Marshal(desc)
	if err != nil {
		return SingleResult{}, fmt.Errorf("submission: marshal descriptor: %w", err)
	}

	queueName := man.Spec.TaskType
	if err := e.queue.CheckQueueOrThrow(ctx, queueName); err != nil {
		return SingleResult{}, err
	}

	msgKey := taskID + "_msg"
	if err := e.kv.LPush(ctx, msgKey, string(payload)); err != nil {
		return SingleResult{}, err
	}

	worksetKey := fmt.Sprintf("work:%s:tasks", workID)
	if err := e.kv.SAdd(ctx, worksetKey, taskID); err != nil {
		return SingleResult{}, err
	}

	if err := e.queue.Publish(ctx, queueName, taskID); err != nil {
		rollback(ctx, e.kv, msgKey, worksetKey, taskID)
		return SingleResult{}, err
	}

	return SingleResult{TaskID: taskID}, nil
}

// CreateBatch expands the manifest via the batch planner and submits one
// task per plan item, applying opts.RatePerSec and rolling back any task
// whose publish fails.
func (e *Engine) CreateBatch(ctx context.Context, man manifest.Manifest, opts BatchOptions) (BatchResult, error) {
	workID := resolveWorkID(man.Metadata.WorkID, e.defaultWorkID)
	queueName := man.Spec.TaskType

	if err := e.queue.CheckQueueOrThrow(ctx, queueName); err != nil {
		return BatchResult{}, err
	}

	worksetKey := fmt.Sprintf("work:%s:tasks", workID)
	limiter := newRateLimiter(opts.RatePerSec)

	var results []TaskResult
	planErr := planner.Plan(ctx, e.lister, man.Spec, func(item planner.PlanItem) error {
		taskID := ids.NewTaskID(workID)
		desc := descriptor.Build(man.Spec, item, taskID)

		payload, err := json.Marshal(desc)
		if err != nil {
			return fmt.Errorf("submission: marshal descriptor for %s: %w", taskID, err)
		}

		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		msgKey := taskID + "_msg"
		if err := e.kv.LPush(ctx, msgKey, string(payload)); err != nil {
			results = append(results, TaskResult{TaskID: taskID, Source: item.Source, Error: err})
			if opts.StopOnError {
				return err
			}
			return nil
		}

		if err := e.kv.SAdd(ctx, worksetKey, taskID); err != nil {
			results = append(results, TaskResult{TaskID: taskID, Source: item.Source, Error: err})
			if opts.StopOnError {
				return err
			}
			return nil
		}

		if err := e.queue.PublishBurst(ctx, queueName, taskID); err != nil {
			rollback(ctx, e.kv, msgKey, worksetKey, taskID)
			results = append(results, TaskResult{TaskID: taskID, Source: item.Source, Error: err})
			if opts.StopOnError {
				return err
			}
			return nil
		}

		results = append(results, TaskResult{TaskID: taskID, Source: item.Source})
		return nil
	})

	return BatchResult{WorkID: workID, Tasks: results}, planErr
}

// rollback attempts to undo a failed publish's descriptor and membership
// writes. Both are attempted even if the first fails (best-effort).
func rollback(ctx context.Context, kv KVClient, msgKey, worksetKey, taskID string) {
	_ = kv.Del(ctx, msgKey)
	_ = kv.SRem(ctx, worksetKey, taskID)
}

// rateLimiter is a windowed token bucket with a 1-second window.
type rateLimiter struct {
	ratePerSec float64

	mu          sync.Mutex
	tokens      float64
	windowStart time.Time
}

func newRateLimiter(ratePerSec float64) *rateLimiter {
	return &rateLimiter{ratePerSec: ratePerSec}
}

// Wait blocks, if necessary, so that no more than ratePerSec permits are
// consumed in any 1-second window. A non-positive rate disables the
// limiter entirely.
func (r *rateLimiter) Wait(ctx context.Context) error {
	if r.ratePerSec <= 0 {
		return nil
	}

	r.mu.Lock()
	now := time.Now()
	if r.windowStart.IsZero() || now.Sub(r.windowStart) >= time.Second {
		r.tokens = r.ratePerSec
		r.windowStart = now
	}

	if r.tokens <= 0 {
		remaining := time.Second - now.Sub(r.windowStart)
		r.mu.Unlock()

		if remaining > 0 {
			timer := time.NewTimer(remaining)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		r.mu.Lock()
		r.tokens = r.ratePerSec
		r.windowStart = time.Now()
	}

	r.tokens--
	r.mu.Unlock()
	return nil
}
