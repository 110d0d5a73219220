// Package scheduler runs the daemon's background chores: periodic rescans
// of the workspace and sweeps of idle editing sessions, plus one-shot jobs
// submitted by command handlers.
package scheduler

import (
	"sync"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("weft.scheduler")

// Task is a named unit of background work.
type Task struct {
	Name string
	Run  func() error
}

// Scheduler executes tasks one at a time from a bounded queue.
type Scheduler struct {
	tasks  chan Task
	stopCh chan struct{}
	doneCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a scheduler with the given queue capacity.
func New(queueSize int) *Scheduler {
	return &Scheduler{
		tasks:  make(chan Task, queueSize),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the worker loop.
func (s *Scheduler) Start() {
	go s.loop()
}

func (s *Scheduler) loop() {
	defer close(s.doneCh)
	for {
		select {
		case task := <-s.tasks:
			s.execute(task)
		case <-s.stopCh:
			return
		}
	}
}

func (s *Scheduler) execute(task Task) {
	defer s.wg.Done()
	log.Debugf("running task %s", task.Name)
	if err := task.Run(); err != nil {
		log.Errorf("task %s failed: %v", task.Name, err)
	}
}

// Submit queues a task to run as soon as possible. Once Stop has begun the
// task is dropped.
func (s *Scheduler) Submit(task Task) {
	s.wg.Add(1)
	select {
	case s.tasks <- task:
	case <-s.stopCh:
		s.wg.Done()
	}
}

// trySubmit queues a task unless the queue is full.
func (s *Scheduler) trySubmit(task Task) bool {
	s.wg.Add(1)
	select {
	case s.tasks <- task:
		return true
	default:
		s.wg.Done()
		return false
	}
}

// Every runs task once right away and then at the given interval until the
// scheduler stops. An interval is skipped when the queue is full.
func (s *Scheduler) Every(interval time.Duration, task Task) {
	s.Submit(task)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if !s.trySubmit(task) {
					log.Debugf("skipped %s, queue full", task.Name)
				}
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Stop halts periodic scheduling, finishes the queued tasks, and waits for
// them. Callers must not submit once Stop has begun.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	<-s.doneCh
	for {
		select {
		case task := <-s.tasks:
			s.execute(task)
		default:
			s.wg.Wait()
			return
		}
	}
}
