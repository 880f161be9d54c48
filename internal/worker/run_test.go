package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"mediabridge/internal/pkg/logger"
	"mediabridge/internal/worker/processor"
	"mediabridge/internal/worker/queue"
)

type statusUpdate struct {
	id     string
	status queue.Status
	out    *processor.JobResult
}

// fakeQueue serves pops from a script and cancels once it runs dry.
type fakeQueue struct {
	mu      sync.Mutex
	pops    []any // *processor.JobRequest, error or nil
	cancel  context.CancelFunc
	updates []statusUpdate
}

func (f *fakeQueue) Pop(ctx context.Context, _ time.Duration) (*processor.JobRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pops) == 0 {
		f.cancel()
		return nil, ctx.Err()
	}
	next := f.pops[0]
	f.pops = f.pops[1:]
	switch v := next.(type) {
	case *processor.JobRequest:
		return v, nil
	case error:
		return nil, v
	}
	return nil, nil
}

func (f *fakeQueue) SetStatus(_ context.Context, id string, status queue.Status, out *processor.JobResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, statusUpdate{id: id, status: status, out: out})
	return nil
}

type handlerFunc func(ctx context.Context, job processor.JobRequest) processor.JobResult

func (h handlerFunc) Handle(ctx context.Context, job processor.JobRequest) processor.JobResult {
	return h(ctx, job)
}

func TestRunProcessesJobsAndStoresResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := &fakeQueue{
		cancel: cancel,
		pops: []any{
			&processor.JobRequest{ID: "ok", Input: processor.JobInput{URL: "u"}},
			nil,
			fmt.Errorf("connection reset"),
			&processor.JobRequest{ID: "bad"},
		},
	}

	var handled []string
	h := handlerFunc(func(_ context.Context, job processor.JobRequest) processor.JobResult {
		handled = append(handled, job.ID)
		if job.ID == "bad" {
			return processor.JobResult{Status: processor.StatusError, Message: "boom"}
		}
		return processor.JobResult{Status: processor.StatusSuccess, Message: "AAAA"}
	})

	err := Run(ctx, Deps{Queue: q, Handler: h, Log: logger.Discard(), RetryDelay: time.Millisecond})
	if err != context.Canceled {
		t.Fatalf("Run() = %v, expected context.Canceled", err)
	}

	if len(handled) != 2 || handled[0] != "ok" || handled[1] != "bad" {
		t.Fatalf("handled = %v", handled)
	}

	want := []struct {
		id     string
		status queue.Status
	}{
		{"ok", queue.StatusInProgress},
		{"ok", queue.StatusCompleted},
		{"bad", queue.StatusInProgress},
		{"bad", queue.StatusFailed},
	}
	if len(q.updates) != len(want) {
		t.Fatalf("updates = %+v", q.updates)
	}
	for i, w := range want {
		if q.updates[i].id != w.id || q.updates[i].status != w.status {
			t.Errorf("update %d = %+v, expected %s %s", i, q.updates[i], w.id, w.status)
		}
	}
	if out := q.updates[3].out; out == nil || out.Message != "boom" {
		t.Errorf("expected the failure to be stored, got %+v", out)
	}
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	q := &fakeQueue{cancel: cancel}
	err := Run(ctx, Deps{Queue: q, Handler: handlerFunc(nil), Log: logger.Discard()})
	if err != context.Canceled {
		t.Errorf("Run() = %v", err)
	}
}

func TestRunFailsUndecodableJobsWithoutRetryDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := &fakeQueue{
		cancel: cancel,
		pops: []any{
			&queue.DecodeError{ID: "j-9", Err: fmt.Errorf("invalid job envelope")},
			&queue.DecodeError{Err: fmt.Errorf("empty queue payload")},
		},
	}
	h := handlerFunc(func(_ context.Context, job processor.JobRequest) processor.JobResult {
		t.Errorf("handler called for %s", job.ID)
		return processor.JobResult{}
	})

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Deps{Queue: q, Handler: h, Log: logger.Discard(), RetryDelay: time.Hour})
	}()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Run() = %v, expected context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		cancel()
		t.Fatal("Run waited out the retry delay after an undecodable payload")
	}

	if len(q.updates) != 1 {
		t.Fatalf("updates = %+v", q.updates)
	}
	u := q.updates[0]
	if u.id != "j-9" || u.status != queue.StatusFailed {
		t.Errorf("update = %+v, expected j-9 FAILED", u)
	}
	if u.out == nil || u.out.Status != processor.StatusError || u.out.Message != "undecodable job payload j-9: invalid job envelope" {
		t.Errorf("stored output = %+v", u.out)
	}
}
