// Package orchestrator composes the registry, tiered cache, circuit
// breaker, and backoff policy into a single Fetch operation. Sources
// are tried in strict priority order, first success wins; per-source
// failures are swallowed and converted into "advance to the next
// source". When every primary source fails, a second pass serves stale
// cache data at a discounted confidence. Only total exhaustion reaches
// the caller.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/fetcher/internal/core/domain"
	"github.com/vietddude/fetcher/internal/fallback/backoff"
	"github.com/vietddude/fetcher/internal/fallback/breaker"
	"github.com/vietddude/fetcher/internal/fallback/metrics"
	"github.com/vietddude/fetcher/internal/fallback/registry"
	"github.com/vietddude/fetcher/internal/infra/cache"
)

// StaleConfidenceDiscount is applied to the stored confidence of every
// stale-fallback response, signalling degraded trust to the caller.
const StaleConfidenceDiscount = 0.7

// SourceFetcher is the single hook through which the orchestrator talks
// to the outside world: given a source name and request params, return
// the raw JSON-serializable payload or an error. Connectors implement
// this; tests supply fakes.
type SourceFetcher interface {
	Fetch(ctx context.Context, source string, params map[string]any) (any, error)
}

// FetchFunc adapts a plain function to the SourceFetcher interface.
type FetchFunc func(ctx context.Context, source string, params map[string]any) (any, error)

func (f FetchFunc) Fetch(ctx context.Context, source string, params map[string]any) (any, error) {
	return f(ctx, source, params)
}

// Orchestrator runs prioritized fallback fetches.
type Orchestrator struct {
	registry *registry.Registry
	cache    *cache.TieredCache
	breaker  *breaker.CircuitBreaker
	policy   *backoff.Policy
	fetcher  SourceFetcher
	log      *slog.Logger
}

// New wires an orchestrator from its collaborators.
func New(
	reg *registry.Registry,
	c *cache.TieredCache,
	b *breaker.CircuitBreaker,
	policy *backoff.Policy,
	fetcher SourceFetcher,
	log *slog.Logger,
) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		registry: reg,
		cache:    c,
		breaker:  b,
		policy:   policy,
		fetcher:  fetcher,
		log:      log,
	}
}

// Fetch resolves one request through the fallback chain for dataType.
// An empty capability disables capability filtering. The returned
// response is fresh, cached, or stale; the only errors are context
// cancellation and total exhaustion.
func (o *Orchestrator) Fetch(
	ctx context.Context,
	dataType string,
	params map[string]any,
	capability string,
) (*domain.FallbackResponse, error) {
	reqID := uuid.NewString()
	log := o.log.With("request_id", reqID, "data_type", dataType)

	sources := o.registry.Sources(dataType, capability)

	for _, src := range sources {
		if o.breaker.IsOpen(src.Name) {
			metrics.BreakerSkipsTotal.WithLabelValues(src.Name).Inc()
			log.Debug("Skipping source, circuit open", "source", src.Name)
			continue
		}

		// Fallback-capability sources never short-circuit through the
		// fresh cache; everything else does.
		if !src.HasCapability(domain.CapabilityFallback) {
			if entry := o.cache.Get(src.Name, params); entry != nil {
				log.Debug("Serving fresh cache hit", "source", src.Name, "age", entry.Age())
				metrics.FetchesTotal.WithLabelValues(dataType, "cached").Inc()
				return &domain.FallbackResponse{
					Data: entry.Data,
					Meta: domain.ResponseMeta{
						Source:     entry.Source,
						Cached:     true,
						Confidence: entry.Confidence,
						Timestamp:  entry.Timestamp,
						Freshness:  domain.FreshnessCached,
						RequestID:  reqID,
					},
				}, nil
			}
		}

		// Pure cache aliases (cached_*) have no upstream to call.
		if src.IsCacheAlias() {
			continue
		}

		start := time.Now()
		data, err := o.policy.Do(ctx, func(ctx context.Context) (any, error) {
			return o.fetcher.Fetch(ctx, src.Name, params)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// One recorded failure per exhausted source per Fetch call,
			// regardless of how many retries it took.
			metrics.SourceCallsTotal.WithLabelValues(src.Name, "failure").Inc()
			o.breaker.RecordFailure(src.Name)
			log.Warn("Source exhausted, trying next", "source", src.Name, "error", err)
			continue
		}

		metrics.SourceCallsTotal.WithLabelValues(src.Name, "success").Inc()
		metrics.SourceLatency.WithLabelValues(src.Name).Observe(time.Since(start).Seconds())
		o.breaker.Reset(src.Name)
		if storeErr := o.cache.Store(src.Name, params, data, 0, 1.0); storeErr != nil {
			log.Warn("Failed to persist fetched payload", "source", src.Name, "error", storeErr)
		}

		metrics.FetchesTotal.WithLabelValues(dataType, "fresh").Inc()
		return &domain.FallbackResponse{
			Data: data,
			Meta: domain.ResponseMeta{
				Source:     src.Name,
				Confidence: 1.0,
				Timestamp:  time.Now(),
				Freshness:  domain.FreshnessFresh,
				RequestID:  reqID,
			},
		}, nil
	}

	// Second pass: stale cache, same priority order, first hit wins.
	for _, src := range sources {
		if src.HasCapability(domain.CapabilityFallback) {
			continue
		}
		entry := o.cache.GetStale(src.Name, params)
		if entry == nil {
			continue
		}

		log.Warn("Serving stale data", "source", src.Name, "age", entry.Age())
		metrics.StaleServesTotal.WithLabelValues(dataType, src.Name).Inc()
		metrics.FetchesTotal.WithLabelValues(dataType, "stale").Inc()
		return &domain.FallbackResponse{
			Data: entry.Data,
			Meta: domain.ResponseMeta{
				Source:     entry.Source,
				Cached:     true,
				Stale:      true,
				Confidence: entry.Confidence * StaleConfidenceDiscount,
				Timestamp:  entry.Timestamp,
				Freshness:  domain.FreshnessStale,
				RequestID:  reqID,
			},
		}, nil
	}

	metrics.FetchesTotal.WithLabelValues(dataType, "exhausted").Inc()
	log.Error("All sources exhausted")
	return nil, &domain.ExhaustedError{DataType: dataType}
}
