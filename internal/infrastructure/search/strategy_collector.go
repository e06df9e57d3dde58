package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"NewsCurator/internal/collector"
	"NewsCurator/internal/domain"
	"NewsCurator/internal/metrics"
	"NewsCurator/internal/ports"
)

// StrategyCollector implements ports.SearchCollector via a registered provider.
type StrategyCollector struct {
	provider collector.Provider
	logger   *slog.Logger
}

var _ ports.SearchCollector = (*StrategyCollector)(nil)

// NewStrategyCollector resolves the configured provider; an unknown name is a configuration error.
func NewStrategyCollector(reg *collector.Registry, providerName string, log *slog.Logger) (*StrategyCollector, error) {
	if reg == nil {
		return nil, fmt.Errorf("provider registry is not configured")
	}
	provider, err := reg.Resolve(providerName)
	if err != nil {
		return nil, err
	}
	return &StrategyCollector{provider: provider, logger: log}, nil
}

// Search runs the provider and tidies its hits: URLs are trimmed, a missing source filled in
// and the limit enforced. Repeated URLs are passed on so curation counts them as duplicates.
func (s *StrategyCollector) Search(ctx context.Context, req ports.SearchRequest) ([]domain.Candidate, error) {
	s.debug("search", "provider", s.provider.Name(), "interest", req.Interest, "freshness", req.Freshness, "limit", req.Limit)

	results, err := s.provider.Search(ctx, req)
	if err != nil {
		metrics.SearchFailures.WithLabelValues(s.provider.Name()).Inc()
		return nil, fmt.Errorf("%s search %q: %w", s.provider.Name(), req.Interest, err)
	}

	candidates := make([]domain.Candidate, 0, len(results))
	for _, candidate := range results {
		candidate.URL = strings.TrimSpace(candidate.URL)
		if candidate.Source == "" {
			candidate.Source = s.provider.Name()
		}
		candidate.Interest = req.Interest
		candidates = append(candidates, candidate)
		if req.Limit > 0 && len(candidates) >= req.Limit {
			break
		}
	}

	s.debug("provider produced candidates", "provider", s.provider.Name(), "interest", req.Interest, "raw", len(results), "kept", len(candidates))
	return candidates, nil
}

func (s *StrategyCollector) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
