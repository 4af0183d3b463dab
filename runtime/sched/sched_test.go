package sched

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestSpawnWait(t *testing.T) {
	s := New()
	defer s.Shutdown()

	task := Spawn(s, func() (int, error) { return 42, nil })
	v, err := task.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if v != 42 {
		t.Errorf("result = %d, want 42", v)
	}
	if !task.Done() {
		t.Error("task not done after Wait")
	}
}

func TestWaitHappensAfterTaskBody(t *testing.T) {
	s := New()
	defer s.Shutdown()

	// Writes made inside the task body must be visible to the waiter.
	var side int
	task := Spawn(s, func() (struct{}, error) {
		side = 7
		return struct{}{}, nil
	})
	if _, err := task.Wait(); err != nil {
		t.Fatal(err)
	}
	if side != 7 {
		t.Errorf("side = %d, want 7", side)
	}
}

func TestSpawnError(t *testing.T) {
	s := New()
	defer s.Shutdown()

	boom := errors.New("boom")
	task := Spawn(s, func() (int, error) { return 0, boom })
	if _, err := task.Wait(); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestSpawnPanicBecomesError(t *testing.T) {
	s := New()
	defer s.Shutdown()

	task := Spawn(s, func() (int, error) { panic("ouch") })
	if _, err := task.Wait(); err == nil {
		t.Fatal("panicking task reported no error")
	}

	// The scheduler must survive to run later tasks.
	after := Spawn(s, func() (int, error) { return 1, nil })
	if v, err := after.Wait(); err != nil || v != 1 {
		t.Errorf("scheduler dead after panic: v=%d err=%v", v, err)
	}
}

func TestSpawnNestedWait(t *testing.T) {
	s := New()
	defer s.Shutdown()

	// Tasks that spawn and wait on further tasks must keep making
	// progress however deep the chain goes.
	var nest func(depth int) (int, error)
	nest = func(depth int) (int, error) {
		if depth == 0 {
			return 0, nil
		}
		inner := Spawn(s, func() (int, error) { return nest(depth - 1) })
		v, err := inner.Wait()
		return v + 1, err
	}

	done := make(chan struct{})
	var v int
	var err error
	outer := Spawn(s, func() (int, error) { return nest(64) })
	go func() {
		v, err = outer.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("nested spawn+wait chain never completed")
	}
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if v != 64 {
		t.Errorf("depth = %d, want 64", v)
	}
}

func TestResolveOnce(t *testing.T) {
	task := NewTask[int]()
	task.Resolve(1)
	task.Resolve(2)
	task.Fail(errors.New("late"))

	v, err := task.Wait()
	if err != nil {
		t.Fatalf("first resolution not sticky: %v", err)
	}
	if v != 1 {
		t.Errorf("result = %d, want 1", v)
	}
}

func TestMultipleWaiters(t *testing.T) {
	task := NewTask[string]()
	results := make(chan string, 3)
	for i := 0; i < 3; i++ {
		go func() {
			v, _ := task.Wait()
			results <- v
		}()
	}
	task.Resolve("done")
	for i := 0; i < 3; i++ {
		if v := <-results; v != "done" {
			t.Errorf("waiter saw %q", v)
		}
	}
}

func TestGatherOrder(t *testing.T) {
	s := New()
	defer s.Shutdown()

	fns := make([]func() (int, error), 8)
	for i := range fns {
		i := i
		fns[i] = func() (int, error) {
			// Later entries finish first; order must still hold.
			time.Sleep(time.Duration(len(fns)-i) * time.Millisecond)
			return i, nil
		}
	}
	results, err := Gather(s, fns...)
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for i, v := range results {
		if v != i {
			t.Errorf("results[%d] = %d", i, v)
		}
	}
}

func TestGatherFirstFailureAfterAllComplete(t *testing.T) {
	s := New()
	defer s.Shutdown()

	var completed atomic.Int32
	errA := errors.New("a failed")
	fns := []func() (int, error){
		func() (int, error) { completed.Add(1); return 0, errA },
		func() (int, error) { completed.Add(1); return 0, fmt.Errorf("b failed") },
		func() (int, error) {
			time.Sleep(10 * time.Millisecond)
			completed.Add(1)
			return 3, nil
		},
	}
	_, err := Gather(s, fns...)
	if !errors.Is(err, errA) {
		t.Errorf("err = %v, want first failure in argument order", err)
	}
	if n := completed.Load(); n != 3 {
		t.Errorf("completed = %d, want all 3 despite failure", n)
	}
}

func TestRun(t *testing.T) {
	v, err := Run(func(s *Scheduler) (int, error) {
		results, err := Gather(s,
			func() (int, error) { return 1, nil },
			func() (int, error) { return 2, nil },
		)
		if err != nil {
			return 0, err
		}
		return results[0] + results[1], nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v != 3 {
		t.Errorf("v = %d, want 3", v)
	}
}

func TestSleep(t *testing.T) {
	s := New()
	defer s.Shutdown()

	start := time.Now()
	s.Sleep(0.02)
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("slept %v, want at least 20ms", elapsed)
	}
}

func TestShutdownIdempotent(t *testing.T) {
	s := New()
	s.Shutdown()
	s.Shutdown()
}
