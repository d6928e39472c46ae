// Package control wires the fetcher service together and manages its
// lifecycle: registry and cache construction, the orchestrator, the
// health server, and the periodic cache sweep.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vietddude/fetcher/internal/core/config"
	"github.com/vietddude/fetcher/internal/core/domain"
	"github.com/vietddude/fetcher/internal/fallback/backoff"
	"github.com/vietddude/fetcher/internal/fallback/breaker"
	"github.com/vietddude/fetcher/internal/fallback/health"
	"github.com/vietddude/fetcher/internal/fallback/orchestrator"
	"github.com/vietddude/fetcher/internal/fallback/registry"
	"github.com/vietddude/fetcher/internal/infra/cache"
	"github.com/vietddude/fetcher/internal/infra/source"
)

// Service is the assembled fetcher application.
type Service struct {
	cfg    *config.AppConfig
	orch   *orchestrator.Orchestrator
	cache  *cache.TieredCache
	health *health.Server
	log    *slog.Logger

	sweepInterval time.Duration
	sweepCancel   context.CancelFunc
	sweepDone     chan struct{}
}

// NewService builds a service from configuration. A nil fetcher selects
// the HTTP connector configured from the per-source URLs; tests inject
// fakes here.
func NewService(cfg *config.AppConfig, fetcher orchestrator.SourceFetcher) (*Service, error) {
	log := slog.Default()

	if fetcher == nil {
		endpoints := make(map[string]source.Endpoint)
		for _, dt := range cfg.DataTypes {
			for _, src := range dt.Sources {
				if src.URL != "" {
					endpoints[src.Name] = source.Endpoint{URL: src.URL, Headers: src.Headers}
				}
			}
		}
		fetcher = source.NewHTTPFetcher(endpoints, time.Duration(cfg.HTTP.TimeoutSeconds)*time.Second)
	}

	sources := make(map[string][]domain.SourceDescriptor)
	for _, dt := range cfg.DataTypes {
		for _, src := range dt.Sources {
			sources[dt.Name] = append(sources[dt.Name], domain.SourceDescriptor{
				Name:         src.Name,
				Priority:     src.Priority,
				Capabilities: src.Capabilities,
			})
		}
	}

	c, err := cache.New(
		cfg.Cache.Dir,
		time.Duration(cfg.Cache.DefaultTTLSeconds)*time.Second,
		log.With("component", "cache"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to init cache: %w", err)
	}

	b := breaker.New(cfg.Breaker.FailureThreshold, time.Duration(cfg.Breaker.CooldownSeconds)*time.Second)

	policy := backoff.NewPolicy()
	policy.InitialDelay = time.Duration(cfg.Retry.InitialDelaySeconds * float64(time.Second))
	policy.Multiplier = cfg.Retry.Multiplier
	policy.MaxDelay = time.Duration(cfg.Retry.MaxDelaySeconds * float64(time.Second))
	policy.MaxRetries = cfg.Retry.MaxRetries
	if cfg.Retry.Jitter != nil {
		policy.Jitter = *cfg.Retry.Jitter
	}

	orch := orchestrator.New(
		registry.New(sources),
		c, b, policy, fetcher,
		log.With("component", "orchestrator"),
	)

	return &Service{
		cfg:           cfg,
		orch:          orch,
		cache:         c,
		health:        health.NewServer(orch.ServiceStatus, cfg.Server.Port),
		log:           log,
		sweepInterval: time.Duration(cfg.Cache.SweepIntervalSeconds) * time.Second,
	}, nil
}

// Orchestrator exposes the fetch entry point.
func (s *Service) Orchestrator() *orchestrator.Orchestrator {
	return s.orch
}

// Cache exposes the tiered cache for maintenance commands.
func (s *Service) Cache() *cache.TieredCache {
	return s.cache
}

// Start launches the health server and the periodic cache sweep.
func (s *Service) Start(ctx context.Context) error {
	go func() {
		if err := s.health.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Health server failed", "error", err)
		}
	}()
	s.log.Info("Health server listening", "port", s.cfg.Server.Port)

	sweepCtx, cancel := context.WithCancel(context.Background())
	s.sweepCancel = cancel
	s.sweepDone = make(chan struct{})
	go s.sweepLoop(sweepCtx)

	return nil
}

// Stop shuts the service down gracefully.
func (s *Service) Stop(ctx context.Context) error {
	if s.sweepCancel != nil {
		s.sweepCancel()
		<-s.sweepDone
	}
	return s.health.Stop(ctx)
}

func (s *Service) sweepLoop(ctx context.Context) {
	defer close(s.sweepDone)

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.cache.CleanupExpired(); removed > 0 {
				s.log.Debug("Cache sweep", "removed", removed)
			}
		}
	}
}
