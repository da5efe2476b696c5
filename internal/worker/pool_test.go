package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

// mockJob implements Job
type mockJob struct {
	id        string
	duration  time.Duration
	shouldErr bool
	executed  *int32
}

func (j *mockJob) Key() string { return j.id }

func (j *mockJob) Execute(ctx context.Context) error {
	if j.executed != nil {
		atomic.AddInt32(j.executed, 1)
	}
	if j.duration > 0 {
		select {
		case <-time.After(j.duration):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if j.shouldErr {
		return errors.New("job error")
	}
	return nil
}

func TestNewPool(t *testing.T) {
	p1 := NewPool(context.Background(), 5)
	if p1.workers != 5 {
		t.Errorf("expected 5 workers, got %d", p1.workers)
	}

	p2 := NewPool(context.Background(), 0)
	if p2.workers != 1 {
		t.Errorf("expected default 1 worker for 0 input, got %d", p2.workers)
	}
}

func TestPool_ExecutesAll(t *testing.T) {
	pool := NewPool(context.Background(), 3)
	pool.Start()

	var executed int32
	go func() {
		for i := 0; i < 10; i++ {
			pool.Submit(&mockJob{id: fmt.Sprintf("post-%d", i), executed: &executed, shouldErr: i%5 == 0})
		}
		pool.Close()
	}()

	count, failures := 0, 0
	for r := range pool.Results() {
		count++
		if r.Error != nil {
			failures++
		}
	}

	if count != 10 {
		t.Errorf("expected 10 results, got %d", count)
	}
	if failures != 2 {
		t.Errorf("expected 2 failures, got %d", failures)
	}
	if atomic.LoadInt32(&executed) != 10 {
		t.Errorf("expected 10 executions, got %d", executed)
	}
}

func TestPool_Shutdown(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()

	pool.Submit(&mockJob{id: "slow", duration: time.Second})

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("shutdown did not cancel in-flight job")
	}

	if pool.Submit(&mockJob{id: "late"}) {
		t.Error("expected submit to fail after shutdown")
	}
}
