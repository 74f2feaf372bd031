package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ncobase/docport/config"
)

func TestInlineDispatcherRunsSynchronously(t *testing.T) {
	var ran []string
	d := NewInline(func(ctx context.Context, jobID string) error {
		ran = append(ran, jobID)
		return nil
	})

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := d.Dispatch(ctx, "job-1"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(ran) != 1 || ran[0] != "job-1" {
		t.Fatalf("expected synchronous run, got %v", ran)
	}

	wantErr := errors.New("boom")
	d = NewInline(func(ctx context.Context, jobID string) error { return wantErr })
	if err := d.Dispatch(ctx, "job-2"); !errors.Is(err, wantErr) {
		t.Fatalf("expected runner error, got %v", err)
	}
}

func TestPoolDispatcherRunsJobs(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string]bool)

	d := NewPool(&config.Queue{Workers: 2, QueueSize: 8}, func(ctx context.Context, jobID string) error {
		mu.Lock()
		seen[jobID] = true
		mu.Unlock()
		return nil
	})

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	for _, id := range []string{"a", "b", "c"} {
		if err := d.Dispatch(ctx, id); err != nil {
			t.Fatalf("dispatch %s: %v", id, err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected 3 jobs run, got %d", n)
		}
		time.Sleep(10 * time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	d.Stop(stopCtx)
}

func TestNewSelectsDriver(t *testing.T) {
	run := func(ctx context.Context, jobID string) error { return nil }

	d, err := New(&config.Queue{Driver: "inline"}, run)
	if err != nil {
		t.Fatalf("inline: %v", err)
	}
	if _, ok := d.(*InlineDispatcher); !ok {
		t.Fatalf("expected inline dispatcher, got %T", d)
	}

	d, err = New(&config.Queue{Driver: ""}, run)
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if _, ok := d.(*PoolDispatcher); !ok {
		t.Fatalf("expected pool dispatcher, got %T", d)
	}

	if _, err := New(&config.Queue{Driver: "carrier-pigeon"}, run); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
