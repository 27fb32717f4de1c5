package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runLoop runs l on its own goroutine until the test ends.
func runLoop(t *testing.T, l *Loop) {
	t.Helper()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Run(context.Background())
	}()
	t.Cleanup(func() {
		l.Stop()
		<-done
	})
}

func TestLoop_FIFO(t *testing.T) {
	l := NewLoop(discardLogger())

	var got []int
	for i := range 100 {
		l.Execute(func() { got = append(got, i) })
	}
	l.Stop()

	if err := l.Run(t.Context()); !errors.Is(err, ErrLoopStopped) {
		t.Fatalf("expected ErrLoopStopped, got %v", err)
	}

	if len(got) != 100 {
		t.Fatalf("expected 100 tasks to run, got %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("task %d ran out of order: got %d", i, v)
		}
	}
}

func TestLoop_OneAtATime(t *testing.T) {
	l := NewLoop(discardLogger())
	runLoop(t, l)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		running int
		overlap bool
	)

	for range 50 {
		wg.Add(1)
		go l.Execute(func() {
			defer wg.Done()

			mu.Lock()
			running++
			if running > 1 {
				overlap = true
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
		})
	}
	wg.Wait()

	if overlap {
		t.Error("two tasks ran concurrently on the loop")
	}
}

func TestLoop_RecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	var mu sync.Mutex
	logger := slog.New(slog.NewTextHandler(&lockedWriter{w: &buf, mu: &mu}, nil))

	l := NewLoop(logger)
	runLoop(t, l)

	after := make(chan struct{})
	l.Execute(func() { panic("listener bug") })
	l.Execute(func() { close(after) })

	select {
	case <-after:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not survive a panicking task")
	}

	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(buf.String(), "callback panicked") {
		t.Errorf("expected panic to be logged, got %q", buf.String())
	}
}

func TestLoop_ContextCancel(t *testing.T) {
	l := NewLoop(discardLogger())

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if err := l.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestLoop_ExecuteAfterStop(t *testing.T) {
	l := NewLoop(discardLogger())
	l.Stop()
	l.Stop()

	ran := false
	l.Execute(func() { ran = true })
	_ = l.Run(t.Context())

	if ran {
		t.Error("task submitted after stop should be dropped")
	}
}

func TestLoop_StopWhileExecuting(t *testing.T) {
	for range 100 {
		l := NewLoop(discardLogger())

		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = l.Run(context.Background())
		}()

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			accepted int
			ran      int
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok := l.tryExecute(func() {
					mu.Lock()
					ran++
					mu.Unlock()
				})
				if ok {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			}()
		}

		l.Stop()
		wg.Wait()
		<-done

		mu.Lock()
		if accepted != ran {
			t.Fatalf("accepted %d tasks but ran %d", accepted, ran)
		}
		mu.Unlock()
	}
}

type lockedWriter struct {
	w  io.Writer
	mu *sync.Mutex
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

func TestDispatch(t *testing.T) {
	errBoom := errors.New("boom")

	testCases := []struct {
		name    string
		outcome Outcome
		exp     []string
	}{
		{
			name:    "success",
			outcome: Succeeded("body"),
			exp:     []string{"done:body", "always:true"},
		},
		{
			name:    "empty body is still success",
			outcome: Succeeded(""),
			exp:     []string{"done:", "always:true"},
		},
		{
			name:    "failure",
			outcome: Failed(errBoom),
			exp:     []string{"fail:boom", "always:false"},
		},
		{
			name:    "nil failure",
			outcome: Failed(nil),
			exp:     []string{"fail:" + ErrTransport.Error(), "always:false"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var units []func()
			exec := ExecutorFunc(func(fn func()) { units = append(units, fn) })

			var got []string
			l := Funcs{
				OnDone:   func(body string) { got = append(got, "done:"+body) },
				OnFail:   func(err error) { got = append(got, "fail:"+err.Error()) },
				OnAlways: func(ok bool) { got = append(got, "always:"+map[bool]string{true: "true", false: "false"}[ok]) },
			}

			dispatch(exec, tc.outcome, l, discardLogger())

			if len(units) != 1 {
				t.Fatalf("expected exactly one unit of work, got %d", len(units))
			}
			if len(got) != 0 {
				t.Fatalf("listener ran before the executor: %v", got)
			}

			units[0]()
			if diff := cmp.Diff(tc.exp, got); diff != "" {
				t.Errorf("callbacks mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDispatch_PanickingDone(t *testing.T) {
	var unit func()
	exec := ExecutorFunc(func(fn func()) { unit = fn })

	var always []bool
	l := Funcs{
		OnDone:   func(string) { panic("listener bug") },
		OnAlways: func(ok bool) { always = append(always, ok) },
	}

	dispatch(exec, Succeeded("body"), l, discardLogger())

	func() {
		defer func() {
			if r := recover(); r != "listener bug" {
				t.Errorf("expected panic to continue, got %v", r)
			}
		}()
		unit()
	}()

	if diff := cmp.Diff([]bool{false}, always); diff != "" {
		t.Errorf("always mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatch_NilListener(t *testing.T) {
	ran := false
	exec := ExecutorFunc(func(fn func()) {
		fn()
		ran = true
	})

	dispatch(exec, Succeeded("x"), nil, discardLogger())

	if !ran {
		t.Error("expected the unit of work to run")
	}
}
