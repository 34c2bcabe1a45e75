package mcc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// TaskStatus describes one supervised loop for monitoring.
type TaskStatus struct {
	Name      string `json:"name"`
	Running   bool   `json:"running"`
	LastError string `json:"last_error,omitempty"`
}

// Supervisor runs the two EA loops as named background tasks with
// one-for-all failure semantics: when either loop returns an error, the
// sibling is cancelled so the container never runs half a coevolution.
type Supervisor struct {
	onFailure func(name string, err error)

	mu    sync.Mutex
	tasks map[string]*supervisedTask
}

type supervisedTask struct {
	cancel  context.CancelFunc
	done    chan struct{}
	lastErr error
}

func NewSupervisor(onFailure func(name string, err error)) *Supervisor {
	return &Supervisor{
		onFailure: onFailure,
		tasks:     make(map[string]*supervisedTask),
	}
}

// Start launches run on its own goroutine under a fresh cancellation
// context. A task name can be reused once the previous run finished.
func (s *Supervisor) Start(name string, run func(ctx context.Context) error) error {
	if name == "" {
		return errors.New("task name is required")
	}
	if run == nil {
		return errors.New("task runner is required")
	}

	s.mu.Lock()
	if prev, exists := s.tasks[name]; exists {
		select {
		case <-prev.done:
		default:
			s.mu.Unlock()
			return fmt.Errorf("task already running: %s", name)
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	task := &supervisedTask{cancel: cancel, done: make(chan struct{})}
	s.tasks[name] = task
	s.mu.Unlock()

	go func() {
		err := run(ctx)
		s.mu.Lock()
		task.lastErr = err
		s.mu.Unlock()
		close(task.done)
		if err != nil && !errors.Is(err, context.Canceled) {
			if s.onFailure != nil {
				s.onFailure(name, err)
			}
			s.stopSiblings(name)
		}
	}()
	return nil
}

func (s *Supervisor) stopSiblings(excluded string) {
	s.mu.Lock()
	others := make([]*supervisedTask, 0, len(s.tasks))
	for name, task := range s.tasks {
		if name == excluded {
			continue
		}
		others = append(others, task)
	}
	s.mu.Unlock()

	for _, task := range others {
		task.cancel()
	}
	for _, task := range others {
		<-task.done
	}
}

// Wait blocks until every task has finished and returns the first error
// any of them reported.
func (s *Supervisor) Wait() error {
	s.mu.Lock()
	tasks := make([]*supervisedTask, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, task)
	}
	s.mu.Unlock()

	var firstErr error
	for _, task := range tasks {
		<-task.done
		s.mu.Lock()
		err := task.lastErr
		s.mu.Unlock()
		if err != nil && !errors.Is(err, context.Canceled) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// StopAll cancels every task and waits for them to finish.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	tasks := make([]*supervisedTask, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, task)
	}
	s.mu.Unlock()

	for _, task := range tasks {
		task.cancel()
	}
	for _, task := range tasks {
		<-task.done
	}
}

// Tasks reports the status of every known task, sorted by name.
func (s *Supervisor) Tasks() []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]TaskStatus, 0, len(names))
	for _, name := range names {
		task := s.tasks[name]
		running := true
		select {
		case <-task.done:
			running = false
		default:
		}
		status := TaskStatus{Name: name, Running: running}
		if task.lastErr != nil && !errors.Is(task.lastErr, context.Canceled) {
			status.LastError = task.lastErr.Error()
		}
		out = append(out, status)
	}
	return out
}
