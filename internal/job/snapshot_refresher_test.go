package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

func TestSnapshotRefresherStartRefreshesImmediately(t *testing.T) {
	stub := &stubSnapshotService{n: 2}
	refresher := NewSnapshotRefresher(trace.NewNoopTracerProvider().Tracer("test"), stub, []string{"BTC-EUR"}, 60)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		refresher.Start(ctx)
		close(done)
	}()

	waitFor(t, func() bool { return stub.callCount() > 0 })
	cancel()
	<-done

	if got := stub.lastSymbols(); len(got) != 1 || got[0] != "BTC-EUR" {
		t.Fatalf("unexpected symbols: %v", got)
	}
}

func TestSnapshotRefresherBoundsEachRefresh(t *testing.T) {
	stub := &stubSnapshotService{err: errors.New("db down")}
	refresher := NewSnapshotRefresher(trace.NewNoopTracerProvider().Tracer("test"), stub, nil, 0)
	if refresher.interval != time.Minute {
		t.Fatalf("expected default 60s interval, got %s", refresher.interval)
	}

	refresher.refreshOnce(context.Background())
	if !stub.hadDeadline {
		t.Fatal("expected refresh context to carry a deadline")
	}
	if stub.remaining > refreshTimeout {
		t.Fatalf("expected deadline within %s, got %s", refreshTimeout, stub.remaining)
	}
}

func TestSnapshotRefresherDisabledWithoutService(t *testing.T) {
	refresher := NewSnapshotRefresher(trace.NewNoopTracerProvider().Tracer("test"), nil, nil, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		refresher.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected disabled refresher to return on cancel")
	}
}

type stubSnapshotService struct {
	mu          sync.Mutex
	calls       int
	symbols     []string
	n           int
	err         error
	hadDeadline bool
	remaining   time.Duration
}

func (s *stubSnapshotService) RefreshSnapshots(ctx context.Context, symbols []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.symbols = symbols
	if deadline, ok := ctx.Deadline(); ok {
		s.hadDeadline = true
		s.remaining = time.Until(deadline)
	}
	return s.n, s.err
}

func (s *stubSnapshotService) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubSnapshotService) lastSymbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.symbols
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
