package systems

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestNewJobSystemValidates(t *testing.T) {
	if _, err := NewJobSystem(0, 1); !errors.Is(err, ErrNoWorkers) {
		t.Errorf("expected ErrNoWorkers, got %v", err)
	}
	if _, err := NewJobSystem(1, -1); !errors.Is(err, ErrNegativeChannelSize) {
		t.Errorf("expected ErrNegativeChannelSize, got %v", err)
	}
}

func TestRunAllWaitsForEveryTask(t *testing.T) {
	js, err := NewJobSystem(3, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer js.Shutdown()

	var ran, completed atomic.Int32
	tasks := make([]JobTask, 10)
	for i := range tasks {
		tasks[i] = JobTask{
			Name:       "count",
			Run:        func() error { ran.Add(1); return nil },
			OnComplete: func() { completed.Add(1) },
		}
	}
	if err := js.RunAll(tasks); err != nil {
		t.Fatal(err)
	}
	if ran.Load() != 10 || completed.Load() != 10 {
		t.Errorf("ran %d, completed %d", ran.Load(), completed.Load())
	}
}

func TestRunAllJoinsFailures(t *testing.T) {
	js, err := NewJobSystem(2, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer js.Shutdown()

	boom := errors.New("boom")
	var failures atomic.Int32
	tasks := []JobTask{
		{Name: "ok", Run: func() error { return nil }},
		{Name: "bad", Run: func() error { return boom }, OnFailure: func(error) { failures.Add(1) }},
	}
	err = js.RunAll(tasks)
	if !errors.Is(err, boom) {
		t.Fatalf("expected the task error, got %v", err)
	}
	if failures.Load() != 1 {
		t.Errorf("failure callback ran %d times", failures.Load())
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	js, err := NewJobSystem(1, 0)
	if err != nil {
		t.Fatal(err)
	}
	js.Shutdown()
	js.Shutdown()
}
