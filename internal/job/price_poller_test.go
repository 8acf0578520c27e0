package job

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"solfolio/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

func TestNewPricePollerInterval(t *testing.T) {
	poller := NewPricePoller(testTracer, nil, &stubPrices{}, nil, nil, 2)
	if poller.pollInterval != 2*time.Second {
		t.Fatalf("expected 2s interval, got %v", poller.pollInterval)
	}
}

func TestPricePollerStart(t *testing.T) {
	t.Parallel()

	prices := &stubPrices{}
	flows := &stubFlows{}
	poller := NewPricePoller(testTracer, nil, prices, flows, []string{domain.SOLMint}, 1)
	poller.flowDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Start(ctx)

	eventually(t, func() bool { return prices.calls.Load() > 0 && len(flows.seen()) > 0 })
}

func TestPricePollerRefreshErrorKeepsRunning(t *testing.T) {
	t.Parallel()

	prices := &stubPrices{err: errors.New("rate limited")}
	poller := NewPricePoller(testTracer, nil, prices, nil, nil, 1)
	poller.pollInterval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Start(ctx)

	eventually(t, func() bool { return prices.calls.Load() >= 2 })
}

func TestAnalyzeBatchRoundRobin(t *testing.T) {
	flows := &stubFlows{}
	mints := []string{"a", "b", "c"}
	poller := NewPricePoller(testTracer, nil, &stubPrices{}, flows, mints, 1)

	idx := 0
	poller.analyzeBatch(context.Background(), &idx, 2)
	poller.analyzeBatch(context.Background(), &idx, 2)

	got := flows.seen()
	want := []string{"a", "b", "c", "a"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestAnalyzeBatchCapsAtMintCount(t *testing.T) {
	flows := &stubFlows{err: errors.New("bitquery down")}
	poller := NewPricePoller(testTracer, nil, &stubPrices{}, flows, []string{"only"}, 1)

	idx := 0
	poller.analyzeBatch(context.Background(), &idx, 5)
	if len(flows.seen()) != 1 {
		t.Fatalf("expected a single analysis, got %v", flows.seen())
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}

type stubPrices struct {
	calls atomic.Int32
	err   error
}

func (s *stubPrices) RefreshPrices(ctx context.Context) error {
	s.calls.Add(1)
	return s.err
}

type stubFlows struct {
	mu    sync.Mutex
	mints []string
	err   error
}

func (s *stubFlows) TokenFlows(ctx context.Context, mint, window, bucket string) (domain.FlowAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mints = append(s.mints, mint)
	return domain.FlowAnalysis{TokenMint: mint, Window: window, Bucket: bucket}, s.err
}

func (s *stubFlows) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.mints...)
}
