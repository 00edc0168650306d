package wait

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/scicore-run/forge/completion"
)

// fakeKV is a minimal in-memory set store shared between the wait engine
// and the completion connectors it creates, matching the real deployment
// where both sit atop the same key-value connector.
type fakeKV struct {
	mu   sync.Mutex
	sets map[string]map[string]struct{}
}

func newFakeKV() *fakeKV {
	return &fakeKV{sets: make(map[string]map[string]struct{})}
}

func (f *fakeKV) SRandMember(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for member := range f.sets[key] {
		return member, nil
	}
	return "", nil
}

func (f *fakeKV) SAdd(ctx context.Context, key string, member string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sets[key] == nil {
		f.sets[key] = make(map[string]struct{})
	}
	f.sets[key][member] = struct{}{}
	return nil
}

func (f *fakeKV) SRem(ctx context.Context, key string, member string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sets[key], member)
	return nil
}

func (f *fakeKV) MultiSRandMember(ctx context.Context, keys []string) ([]string, error) {
	out := make([]string, len(keys))
	for i, k := range keys {
		v, _ := f.SRandMember(ctx, k)
		out[i] = v
	}
	return out, nil
}

func (f *fakeKV) SCard(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.sets[key])), nil
}

func (f *fakeKV) SMembers(ctx context.Context, key string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sets[key]))
	for m := range f.sets[key] {
		out = append(out, m)
	}
	return out, nil
}

func newTestEngine(kv *fakeKV) *Engine {
	return New(kv, func(workID string) *completion.Connector {
		return completion.New(kv, completion.Config{WorkID: workID, PollInterval: 10 * time.Millisecond})
	})
}

func TestWaitForTask_FastPeek(t *testing.T) {
	kv := newFakeKV()
	kv.SAdd(context.Background(), "t1", "0")
	e := newTestEngine(kv)

	res, err := e.WaitForTask(context.Background(), "w1", "t1", WaitForTaskOptions{})
	if err != nil {
		t.Fatalf("WaitForTask: %v", err)
	}
	if res.State != StateDone || res.Code != 0 {
		t.Fatalf("Result = %+v, want DONE/0", res)
	}
}

func TestWaitForTask_ResolvesViaConnector(t *testing.T) {
	kv := newFakeKV()
	e := newTestEngine(kv)
	ctx := context.Background()

	done := make(chan Result, 1)
	go func() {
		res, err := e.WaitForTask(ctx, "w1", "t1", WaitForTaskOptions{})
		if err != nil {
			t.Errorf("WaitForTask: %v", err)
		}
		done <- res
	}()

	time.Sleep(30 * time.Millisecond)
	kv.SAdd(ctx, "t1", "5")
	kv.SAdd(ctx, "wf:w1:tasksPendingCompletionHandling", "t1")

	select {
	case res := <-done:
		if res.State != StateDone || res.Code != 5 {
			t.Fatalf("Result = %+v, want DONE/5", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForTask never resolved")
	}
}

func TestWaitForTask_Timeout(t *testing.T) {
	kv := newFakeKV()
	e := newTestEngine(kv)

	res, err := e.WaitForTask(context.Background(), "w1", "never", WaitForTaskOptions{TimeoutSec: 0.05})
	if err != nil {
		t.Fatalf("WaitForTask: %v", err)
	}
	if res.State != StateTimeout {
		t.Fatalf("State = %v, want TIMEOUT", res.State)
	}
}

func TestWaitForMany_FailFastCancelsRemaining(t *testing.T) {
	kv := newFakeKV()
	e := newTestEngine(kv)
	ctx := context.Background()

	kv.SAdd(ctx, "t1", "1") // already failed
	// t2, t3 never complete in this test.

	res, err := e.WaitForMany(ctx, "w1", []string{"t1", "t2", "t3"}, WaitForManyOptions{FailFast: true, TimeoutSec: 2})
	if err != nil {
		t.Fatalf("WaitForMany: %v", err)
	}
	if res.State != StateFailed {
		t.Fatalf("State = %v, want FAILED", res.State)
	}
	if len(res.Pending) != 2 {
		t.Fatalf("Pending = %v, want 2 remaining", res.Pending)
	}
}

func TestWaitForMany_AllDoneFromFastPeek(t *testing.T) {
	kv := newFakeKV()
	e := newTestEngine(kv)
	ctx := context.Background()

	kv.SAdd(ctx, "t1", "0")
	kv.SAdd(ctx, "t2", "0")

	res, err := e.WaitForMany(ctx, "w1", []string{"t1", "t2"}, WaitForManyOptions{})
	if err != nil {
		t.Fatalf("WaitForMany: %v", err)
	}
	if res.State != StateDone || len(res.Done) != 2 || len(res.Pending) != 0 {
		t.Fatalf("Result = %+v, want DONE with 2 done, 0 pending", res)
	}
}

func TestWatchWork_DoneWhenAllComplete(t *testing.T) {
	kv := newFakeKV()
	e := newTestEngine(kv)
	ctx := context.Background()

	kv.SAdd(ctx, "work:w1:tasks", "t1")
	kv.SAdd(ctx, "work:w1:tasks", "t2")
	kv.SAdd(ctx, "t1", "0")
	kv.SAdd(ctx, "t2", "0")

	res, err := e.WatchWork(ctx, "w1", WatchOptions{})
	if err != nil {
		t.Fatalf("WatchWork: %v", err)
	}
	if res.State != StateDone || res.Total != 2 || len(res.Results) != 2 {
		t.Fatalf("Result = %+v, want DONE total=2 results=2", res)
	}
}

func TestWatchWork_Idle(t *testing.T) {
	kv := newFakeKV()
	e := newTestEngine(kv)
	ctx := context.Background()

	kv.SAdd(ctx, "work:w1:tasks", "t1")
	kv.SAdd(ctx, "work:w1:tasks", "t2")
	kv.SAdd(ctx, "t1", "0")
	// t2 never completes.

	res, err := e.WatchWork(ctx, "w1", WatchOptions{IdleSec: 0.05, PollMs: 10})
	if err != nil {
		t.Fatalf("WatchWork: %v", err)
	}
	if res.State != StateIdle {
		t.Fatalf("State = %v, want IDLE", res.State)
	}
	if len(res.Results) != 1 {
		t.Fatalf("Results = %v, want 1 completed task", res.Results)
	}
}

func TestWatchWork_EmitsEvents(t *testing.T) {
	kv := newFakeKV()
	e := newTestEngine(kv)
	ctx := context.Background()

	kv.SAdd(ctx, "work:w1:tasks", "t1")
	kv.SAdd(ctx, "t1", "0")

	var events []Event
	_, err := e.WatchWork(ctx, "w1", WatchOptions{OnEvent: func(ev Event) { events = append(events, ev) }})
	if err != nil {
		t.Fatalf("WatchWork: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2 (task:done + progress)", len(events))
	}
	if events[0].Type != "task:done" || events[1].Type != "progress" {
		t.Fatalf("events = %+v", events)
	}
}
