package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsflashAnalyzer/internal/config"
	"NewsflashAnalyzer/internal/domain"
	"NewsflashAnalyzer/internal/ports"
	"NewsflashAnalyzer/internal/scanner"
)

// StrategySource implements FlashSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sites    []config.SiteConfig
	logger   *slog.Logger
}

var _ ports.FlashSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with config-defined sites.
func NewStrategySource(reg *scanner.Registry, sites []config.SiteConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sites:    sites,
		logger:   log,
	}
}

// FetchBatch iterates over configured sites and executes their scanners.
func (s *StrategySource) FetchBatch(ctx context.Context, now time.Time) ([]domain.FlashCandidate, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("fetch batch", "sites", len(s.sites), "now", now.UTC().Format(time.RFC3339))

	var aggregated []domain.FlashCandidate
	for _, site := range s.sites {
		strategy, err := s.registry.Resolve(site.Scanner)
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", site.Name, err)
		}

		req := scanner.Request{
			Now:           now,
			SiteName:      site.Name,
			URL:           site.URL,
			WindowMinutes: site.WindowMinutes,
		}

		results, err := strategy.Scan(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("scan site %s: %w", site.Name, err)
		}

		s.debug("site produced candidates", "site", site.Name, "count", len(results))
		aggregated = append(aggregated, results...)
	}

	s.debug("strategy source done", "total_candidates", len(aggregated))
	return aggregated, nil
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
