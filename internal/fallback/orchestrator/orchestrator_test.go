package orchestrator

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/fetcher/internal/core/domain"
	"github.com/vietddude/fetcher/internal/fallback/backoff"
	"github.com/vietddude/fetcher/internal/fallback/breaker"
	"github.com/vietddude/fetcher/internal/fallback/registry"
	"github.com/vietddude/fetcher/internal/infra/cache"
)

// fakeFetcher scripts per-source behavior and records the call order.
type fakeFetcher struct {
	mu    sync.Mutex
	calls []string
	// failures remaining per source; -1 means always fail.
	fail map[string]int
}

func (f *fakeFetcher) Fetch(ctx context.Context, source string, params map[string]any) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, source)
	remaining := f.fail[source]
	if remaining == -1 {
		return nil, errors.New(source + ": service unavailable")
	}
	if remaining > 0 {
		f.fail[source] = remaining - 1
		return nil, errors.New(source + ": transient error")
	}
	return map[string]any{"from": source, "rate": 151.2}, nil
}

func (f *fakeFetcher) callOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func forexSources() map[string][]domain.SourceDescriptor {
	return map[string][]domain.SourceDescriptor{
		"forex": {
			{Name: "alpha_vantage", Priority: 1, Capabilities: []string{"realtime"}},
			{Name: "iex_cloud", Priority: 2, Capabilities: []string{"backup"}},
			{Name: "cached_data", Priority: 3, Capabilities: []string{"fallback", "offline"}},
		},
	}
}

func fastPolicy() *backoff.Policy {
	p := backoff.NewPolicy()
	p.InitialDelay = time.Millisecond
	p.MaxDelay = 2 * time.Millisecond
	return p
}

func newTestOrchestrator(t *testing.T, fetcher SourceFetcher) (*Orchestrator, *cache.TieredCache, *breaker.CircuitBreaker) {
	t.Helper()
	c, err := cache.New(t.TempDir(), time.Minute, nil)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	b := breaker.New(3, 5*time.Minute)
	o := New(registry.New(forexSources()), c, b, fastPolicy(), fetcher, nil)
	return o, c, b
}

var forexParams = map[string]any{"pair": "USD/JPY"}

func TestFetch_FirstSourceWins(t *testing.T) {
	fetcher := &fakeFetcher{fail: map[string]int{}}
	o, _, _ := newTestOrchestrator(t, fetcher)

	resp, err := o.Fetch(context.Background(), "forex", forexParams, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Meta.Source != "alpha_vantage" {
		t.Errorf("expected alpha_vantage, got %s", resp.Meta.Source)
	}
	if resp.Meta.Cached || resp.Meta.Stale {
		t.Errorf("expected a fresh response, got %+v", resp.Meta)
	}
	if resp.Meta.Freshness != domain.FreshnessFresh {
		t.Errorf("expected freshness fresh, got %s", resp.Meta.Freshness)
	}
	if resp.Meta.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0, got %f", resp.Meta.Confidence)
	}
	if calls := fetcher.callOrder(); len(calls) != 1 || calls[0] != "alpha_vantage" {
		t.Errorf("expected exactly one hook call to alpha_vantage, got %v", calls)
	}
}

func TestFetch_FailoverRecordsOneFailurePerSource(t *testing.T) {
	// alpha_vantage fails all retries, iex_cloud succeeds on its 2nd.
	fetcher := &fakeFetcher{fail: map[string]int{"alpha_vantage": -1, "iex_cloud": 1}}
	o, _, b := newTestOrchestrator(t, fetcher)

	resp, err := o.Fetch(context.Background(), "forex", forexParams, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Meta.Source != "iex_cloud" {
		t.Errorf("expected failover to iex_cloud, got %s", resp.Meta.Source)
	}

	calls := fetcher.callOrder()
	want := []string{"alpha_vantage", "alpha_vantage", "alpha_vantage", "iex_cloud", "iex_cloud"}
	if len(calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("expected calls %v, got %v", want, calls)
		}
	}

	// One breaker increment per exhausted source per Fetch, not per retry.
	if got := b.FailureCount("alpha_vantage"); got != 1 {
		t.Errorf("expected alpha_vantage failure count 1, got %d", got)
	}
	// Success resets only that source's breaker.
	if got := b.FailureCount("iex_cloud"); got != 0 {
		t.Errorf("expected iex_cloud failure count 0, got %d", got)
	}
	if got := b.FailureCount("alpha_vantage"); got != 1 {
		t.Errorf("iex_cloud success must not clear alpha_vantage history, got %d", got)
	}
}

func TestFetch_SecondCallServedFromCacheWithoutHook(t *testing.T) {
	fetcher := &fakeFetcher{fail: map[string]int{}}
	o, _, _ := newTestOrchestrator(t, fetcher)

	if _, err := o.Fetch(context.Background(), "forex", forexParams, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	callsAfterFirst := len(fetcher.callOrder())

	resp, err := o.Fetch(context.Background(), "forex", forexParams, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Meta.Cached || resp.Meta.Stale {
		t.Errorf("expected cached non-stale response, got %+v", resp.Meta)
	}
	if resp.Meta.Freshness != domain.FreshnessCached {
		t.Errorf("expected freshness cached, got %s", resp.Meta.Freshness)
	}
	if resp.Meta.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0, got %f", resp.Meta.Confidence)
	}
	if got := len(fetcher.callOrder()); got != callsAfterFirst {
		t.Errorf("expected zero hook invocations on cache hit, got %d extra", got-callsAfterFirst)
	}
}

func TestFetch_StalePassDiscountsConfidence(t *testing.T) {
	fetcher := &fakeFetcher{fail: map[string]int{"alpha_vantage": -1, "iex_cloud": -1}}
	o, c, b := newTestOrchestrator(t, fetcher)

	// Previously stored data, now expired.
	if err := c.Store("iex_cloud", forexParams, "old rate", 10*time.Millisecond, 0.9); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	// Both circuits open from prior failures.
	for i := 0; i < 3; i++ {
		b.RecordFailure("alpha_vantage")
		b.RecordFailure("iex_cloud")
	}

	resp, err := o.Fetch(context.Background(), "forex", forexParams, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Meta.Stale {
		t.Fatalf("expected stale response, got %+v", resp.Meta)
	}
	if resp.Meta.Freshness != domain.FreshnessStale {
		t.Errorf("expected freshness stale, got %s", resp.Meta.Freshness)
	}
	if math.Abs(resp.Meta.Confidence-0.9*StaleConfidenceDiscount) > 1e-9 {
		t.Errorf("expected confidence %f, got %f", 0.9*StaleConfidenceDiscount, resp.Meta.Confidence)
	}
	if resp.Data != "old rate" {
		t.Errorf("expected stored payload, got %v", resp.Data)
	}
	// Open circuits mean no hook calls at all.
	if calls := fetcher.callOrder(); len(calls) != 0 {
		t.Errorf("expected no hook calls with circuits open, got %v", calls)
	}
}

func TestFetch_AttemptsHigherPriorityBeforeStaleResult(t *testing.T) {
	fetcher := &fakeFetcher{fail: map[string]int{"alpha_vantage": -1, "iex_cloud": -1}}
	o, c, _ := newTestOrchestrator(t, fetcher)

	// Stale data present only for the lower-priority source.
	if err := c.Store("iex_cloud", forexParams, "backup rate", 10*time.Millisecond, 1.0); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	resp, err := o.Fetch(context.Background(), "forex", forexParams, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Meta.Source != "iex_cloud" || !resp.Meta.Stale {
		t.Errorf("expected iex_cloud stale result, got %+v", resp.Meta)
	}

	// alpha_vantage must have been attempted first.
	calls := fetcher.callOrder()
	if len(calls) == 0 || calls[0] != "alpha_vantage" {
		t.Errorf("expected alpha_vantage attempted first, calls: %v", calls)
	}
}

func TestFetch_ExhaustionNamesDataType(t *testing.T) {
	fetcher := &fakeFetcher{fail: map[string]int{"alpha_vantage": -1, "iex_cloud": -1}}
	o, _, _ := newTestOrchestrator(t, fetcher)

	_, err := o.Fetch(context.Background(), "forex", forexParams, "")
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	var exhausted *domain.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %T: %v", err, err)
	}
	if exhausted.DataType != "forex" {
		t.Errorf("expected error to name forex, got %q", exhausted.DataType)
	}
}

func TestFetch_CacheAliasNeverCallsHook(t *testing.T) {
	fetcher := &fakeFetcher{fail: map[string]int{"alpha_vantage": -1, "iex_cloud": -1}}
	o, _, _ := newTestOrchestrator(t, fetcher)

	_, _ = o.Fetch(context.Background(), "forex", forexParams, "")
	for _, call := range fetcher.callOrder() {
		if call == "cached_data" {
			t.Error("cached_data pseudo-source must never reach the hook")
		}
	}
}

func TestFetch_OpenCircuitSkipsSource(t *testing.T) {
	fetcher := &fakeFetcher{fail: map[string]int{}}
	o, _, b := newTestOrchestrator(t, fetcher)

	for i := 0; i < 3; i++ {
		b.RecordFailure("alpha_vantage")
	}

	resp, err := o.Fetch(context.Background(), "forex", forexParams, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Meta.Source != "iex_cloud" {
		t.Errorf("expected iex_cloud while alpha_vantage is open, got %s", resp.Meta.Source)
	}
	for _, call := range fetcher.callOrder() {
		if call == "alpha_vantage" {
			t.Error("expected alpha_vantage skipped while its circuit is open")
		}
	}
}

func TestFetch_CapabilityFilter(t *testing.T) {
	fetcher := &fakeFetcher{fail: map[string]int{}}
	o, _, _ := newTestOrchestrator(t, fetcher)

	resp, err := o.Fetch(context.Background(), "forex", forexParams, "backup")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Meta.Source != "iex_cloud" {
		t.Errorf("expected the only backup-capable source, got %s", resp.Meta.Source)
	}
}

func TestFetch_UnknownDataTypeExhausts(t *testing.T) {
	fetcher := &fakeFetcher{fail: map[string]int{}}
	o, _, _ := newTestOrchestrator(t, fetcher)

	_, err := o.Fetch(context.Background(), "crypto", forexParams, "")
	var exhausted *domain.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError for unknown data type, got %v", err)
	}
	if exhausted.DataType != "crypto" {
		t.Errorf("expected error to name crypto, got %q", exhausted.DataType)
	}
}

func TestFetch_ContextCancellation(t *testing.T) {
	fetcher := &fakeFetcher{fail: map[string]int{"alpha_vantage": -1, "iex_cloud": -1}}
	o, _, _ := newTestOrchestrator(t, fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Fetch(ctx, "forex", forexParams, "")
	if err == nil {
		t.Fatal("expected an error from a cancelled fetch")
	}
}

func TestServiceStatus(t *testing.T) {
	fetcher := &fakeFetcher{fail: map[string]int{"alpha_vantage": -1, "iex_cloud": 0}}
	o, _, b := newTestOrchestrator(t, fetcher)

	for i := 0; i < 3; i++ {
		b.RecordFailure("alpha_vantage")
	}

	status := o.ServiceStatus()
	forex, ok := status["forex"]
	if !ok {
		t.Fatal("expected forex in service status")
	}
	av := forex["alpha_vantage"]
	if av.Available {
		t.Error("expected alpha_vantage unavailable with open circuit")
	}
	if av.FailureCount != 3 {
		t.Errorf("expected failure count 3, got %d", av.FailureCount)
	}
	if av.Priority != 1 {
		t.Errorf("expected priority 1, got %d", av.Priority)
	}
	iex := forex["iex_cloud"]
	if !iex.Available || iex.FailureCount != 0 {
		t.Errorf("expected healthy iex_cloud, got %+v", iex)
	}
}
