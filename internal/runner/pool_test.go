package runner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoReturnsJobResult(t *testing.T) {
	t.Parallel()

	p := NewPool(2, nil)
	got, err := Do(context.Background(), p, func(context.Context) (int64, error) {
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Fatalf("unexpected result: %d %v", got, err)
	}

	wantErr := errors.New("boom")
	if _, err := Do(context.Background(), p, func(context.Context) (int, error) { return 0, wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("expected job error, got %v", err)
	}
}

func TestDoBoundsConcurrency(t *testing.T) {
	t.Parallel()

	p := NewPool(2, nil)
	var running, peak atomic.Int32
	done := make(chan struct{})

	for i := 0; i < 6; i++ {
		go func() {
			_, _ = Do(context.Background(), p, func(context.Context) (struct{}, error) {
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				running.Add(-1)
				return struct{}{}, nil
			})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 6; i++ {
		<-done
	}
	if peak.Load() > 2 {
		t.Fatalf("pool exceeded its size: peak %d", peak.Load())
	}
}

func TestAbandonedJobIsNotCanceled(t *testing.T) {
	t.Parallel()

	p := NewPool(1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	var jobCtxErr atomic.Value

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Do(ctx, p, func(jobCtx context.Context) (int, error) {
		<-release
		if jobCtx.Err() != nil {
			jobCtxErr.Store(jobCtx.Err())
		}
		return 1, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected caller cancellation, got %v", err)
	}

	close(release)
	p.Wait()
	if v := jobCtxErr.Load(); v != nil {
		t.Fatalf("job context must not be canceled, got %v", v)
	}
}

func TestDoRecoversPanics(t *testing.T) {
	t.Parallel()

	p := NewPool(1, nil)
	_, err := Do(context.Background(), p, func(context.Context) (int, error) {
		panic("bad job")
	})
	if err == nil {
		t.Fatalf("expected error from panicking job")
	}
}
