package scheduler_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"weft/internal/scheduler"
)

func TestSubmitRunsTask(t *testing.T) {
	s := scheduler.New(4)
	s.Start()

	var ran atomic.Int32
	s.Submit(scheduler.Task{Name: "count", Run: func() error {
		ran.Add(1)
		return nil
	}})
	s.Stop()

	if got := ran.Load(); got != 1 {
		t.Errorf("task ran %d times, want 1", got)
	}
}

func TestStopDrainsQueue(t *testing.T) {
	s := scheduler.New(8)
	s.Start()

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		s.Submit(scheduler.Task{Name: "drain", Run: func() error {
			time.Sleep(time.Millisecond)
			ran.Add(1)
			return nil
		}})
	}
	s.Stop()

	if got := ran.Load(); got != 5 {
		t.Errorf("drained %d tasks, want 5", got)
	}
}

func TestEveryRepeats(t *testing.T) {
	s := scheduler.New(4)
	s.Start()

	var ran atomic.Int32
	s.Every(10*time.Millisecond, scheduler.Task{Name: "tick", Run: func() error {
		ran.Add(1)
		return nil
	}})

	deadline := time.Now().Add(2 * time.Second)
	for ran.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()

	if got := ran.Load(); got < 3 {
		t.Errorf("periodic task ran %d times, want at least 3", got)
	}
}

func TestTaskErrorDoesNotStopWorker(t *testing.T) {
	s := scheduler.New(4)
	s.Start()

	var ran atomic.Int32
	s.Submit(scheduler.Task{Name: "boom", Run: func() error {
		return errors.New("boom")
	}})
	s.Submit(scheduler.Task{Name: "after", Run: func() error {
		ran.Add(1)
		return nil
	}})
	s.Stop()

	if got := ran.Load(); got != 1 {
		t.Errorf("task after failure ran %d times, want 1", got)
	}
}
