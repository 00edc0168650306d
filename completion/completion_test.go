package completion

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeKV is an in-memory stand-in for the key-value connector, modeling
// just enough set semantics (sAdd/sRem/sRandMember) for the poll loop.
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

func TestWaitForTask_ResolvesOnNotify(t *testing.T) {
	kv := newFakeKV()
	c := New(kv, Config{WorkID: "w1", PollInterval: 10 * time.Millisecond})
	ctx := context.Background()
	c.Start(ctx)
	defer c.Stop()

	ch, err := c.WaitForTask("wf:w1:task:1")
	if err != nil {
		t.Fatalf("WaitForTask: %v", err)
	}

	if err := c.NotifyTaskCompletion(ctx, "wf:w1:task:1", 0); err != nil {
		t.Fatalf("NotifyTaskCompletion: %v", err)
	}

	select {
	case res := <-ch:
		if res.Err != nil || res.Code != 0 {
			t.Fatalf("Result = %+v, want code 0, no error", res)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter never resolved")
	}
}

func TestWaitForTask_DuplicateRegistrationRejected(t *testing.T) {
	kv := newFakeKV()
	c := New(kv, Config{WorkID: "w1"})

	if _, err := c.WaitForTask("t1"); err != nil {
		t.Fatalf("first WaitForTask: %v", err)
	}
	if _, err := c.WaitForTask("t1"); err == nil {
		t.Fatal("expected error registering a second waiter for the same task")
	}
}

func TestCancelWait_RemovesResolver(t *testing.T) {
	kv := newFakeKV()
	c := New(kv, Config{WorkID: "w1"})

	if _, err := c.WaitForTask("t1"); err != nil {
		t.Fatalf("WaitForTask: %v", err)
	}
	if !c.CancelWait("t1") {
		t.Fatal("CancelWait should report true for a registered waiter")
	}
	if c.CancelWait("t1") {
		t.Fatal("CancelWait should report false once already removed")
	}
}

func TestPeekExitCode_NonDestructive(t *testing.T) {
	kv := newFakeKV()
	c := New(kv, Config{WorkID: "w1"})
	ctx := context.Background()

	if err := kv.SAdd(ctx, "t1", "7"); err != nil {
		t.Fatalf("SAdd: %v", err)
	}

	code, ok, err := c.PeekExitCode(ctx, "t1")
	if err != nil || !ok || code != 7 {
		t.Fatalf("PeekExitCode = %d, %v, %v, want 7, true, nil", code, ok, err)
	}

	// Non-destructive: a second peek sees the same value.
	code, ok, err = c.PeekExitCode(ctx, "t1")
	if err != nil || !ok || code != 7 {
		t.Fatalf("second PeekExitCode = %d, %v, %v, want 7, true, nil", code, ok, err)
	}
}

func TestPeekExitCode_NotYetComplete(t *testing.T) {
	kv := newFakeKV()
	c := New(kv, Config{WorkID: "w1"})

	_, ok, err := c.PeekExitCode(context.Background(), "never-completes")
	if err != nil {
		t.Fatalf("PeekExitCode: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for a task with no exit code yet")
	}
}

func TestLoop_UnresolvedCompletionDrainsSet(t *testing.T) {
	kv := newFakeKV()
	c := New(kv, Config{WorkID: "w1", PollInterval: 5 * time.Millisecond})
	ctx := context.Background()
	c.Start(ctx)
	defer c.Stop()

	// Simulate a worker completion with no registered waiter.
	if err := c.NotifyTaskCompletion(ctx, "orphan-task", 1); err != nil {
		t.Fatalf("NotifyTaskCompletion: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		kv.mu.Lock()
		_, stillPending := kv.sets[c.setKey]["orphan-task"]
		kv.mu.Unlock()
		if !stillPending {
			return
		}
		select {
		case <-deadline:
			t.Fatal("orphan task was never drained from the completion set")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestStop_IsIdempotentAndStopsLoop(t *testing.T) {
	kv := newFakeKV()
	c := New(kv, Config{WorkID: "w1", PollInterval: 5 * time.Millisecond})
	c.Start(context.Background())
	c.Stop()
	c.Stop() // must not block or panic
}
