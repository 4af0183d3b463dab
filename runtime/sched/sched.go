// Package sched is the cooperative scheduler that generated programs
// link against. Compiled async functions lower into Spawn/Wait pairs
// on an explicit *Scheduler handle; the handle is threaded through
// generated code rather than held in a package global so programs can
// run isolated scheduler instances, tests included.
package sched

import (
	"fmt"
	"sync"
	"time"
)

// Scheduler tracks the tasks spawned during one program run. Each
// task gets its own goroutine and the Go runtime multiplexes them
// over the machine's cores, so a task that waits on another only
// parks its own goroutine: nested spawn/wait chains of any depth make
// progress.
type Scheduler struct {
	tasks sync.WaitGroup
}

// New returns an empty scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// Shutdown blocks until every spawned task has finished, including
// fire-and-forget tasks nobody waited on. Safe to call more than
// once.
func (s *Scheduler) Shutdown() {
	s.tasks.Wait()
}

// Sleep suspends the calling task for the given number of seconds,
// matching the source-level sleep builtin.
func (s *Scheduler) Sleep(seconds float64) {
	time.Sleep(time.Duration(seconds * float64(time.Second)))
}

// ----- Tasks -----

type taskStatus int

const (
	taskPending taskStatus = iota
	taskResolved
	taskFailed
)

// Task is the handle for one spawned computation. Wait blocks until
// the task resolves or fails; resolution happens at most once.
type Task[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	status taskStatus
	result T
	err    error
}

// NewTask returns a pending task, resolved later via Resolve or Fail.
func NewTask[T any]() *Task[T] {
	t := &Task[T]{}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// Resolve completes the task with a value. Resolving a completed
// task is a no-op.
func (t *Task[T]) Resolve(v T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != taskPending {
		return
	}
	t.result = v
	t.status = taskResolved
	t.cond.Broadcast()
}

// Fail completes the task with an error. Failing a completed task is
// a no-op.
func (t *Task[T]) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != taskPending {
		return
	}
	t.err = err
	t.status = taskFailed
	t.cond.Broadcast()
}

// Wait blocks until the task completes, then returns its result or
// error. Multiple waiters all observe the same outcome.
func (t *Task[T]) Wait() (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.status == taskPending {
		t.cond.Wait()
	}
	return t.result, t.err
}

// Done reports completion without blocking.
func (t *Task[T]) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status != taskPending
}

// Spawn starts fn on its own goroutine and returns its task handle.
// A panic inside fn is recovered into the task error rather than
// taking the program down.
func Spawn[T any](s *Scheduler, fn func() (T, error)) *Task[T] {
	t := NewTask[T]()
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		defer func() {
			if r := recover(); r != nil {
				t.Fail(fmt.Errorf("task panic: %v", r))
			}
		}()
		v, err := fn()
		if err != nil {
			t.Fail(err)
			return
		}
		t.Resolve(v)
	}()
	return t
}

// Gather spawns every fn in argument order, waits for all of them,
// and returns their results in the same order. When tasks fail, all
// tasks still run to completion and the first failure in argument
// order is reported.
func Gather[T any](s *Scheduler, fns ...func() (T, error)) ([]T, error) {
	tasks := make([]*Task[T], len(fns))
	for i, fn := range fns {
		tasks[i] = Spawn(s, fn)
	}
	results := make([]T, len(fns))
	var firstErr error
	for i, t := range tasks {
		v, err := t.Wait()
		if err != nil && firstErr == nil {
			firstErr = err
		}
		results[i] = v
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// Run is the program entry point for compiled async main functions:
// it creates a scheduler, runs fn on it, and tears the scheduler down
// once fn returns.
func Run[T any](fn func(s *Scheduler) (T, error)) (T, error) {
	s := New()
	defer s.Shutdown()
	return fn(s)
}
