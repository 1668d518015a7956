// Package service implements the watch cycle that ties the proxy pool,
// the scraper and the observation pipeline together.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/medios/pricewatch/internal/model"
	"github.com/medios/pricewatch/internal/normalize"
	"github.com/medios/pricewatch/internal/proxy"
)

// PageSource renders the basket page and returns raw observations.
type PageSource interface {
	Scrape(ctx context.Context, proxyAddr string) ([]model.Observation, error)
}

// ProxyRotator hands out healthy proxies and retires dead ones.
type ProxyRotator interface {
	Next() (string, error)
	Evict(addr string)
	Size() int
}

// ObservationSink processes one scraped page.
type ObservationSink interface {
	ProcessPage(ctx context.Context, observations []model.Observation) int
}

// ImagePreloader warms the preview image cache.
type ImagePreloader interface {
	Preload(ctx context.Context, links []string)
}

// WatchService runs one scrape cycle end to end.
type WatchService struct {
	source   PageSource
	proxies  ProxyRotator
	pipeline ObservationSink
	images   ImagePreloader
	baseURL  string
	logger   *slog.Logger
}

// NewWatchService creates the watch service. images may be nil to skip
// preview caching.
func NewWatchService(
	source PageSource,
	proxies ProxyRotator,
	pipeline ObservationSink,
	images ImagePreloader,
	baseURL string,
	logger *slog.Logger,
) *WatchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WatchService{
		source:   source,
		proxies:  proxies,
		pipeline: pipeline,
		images:   images,
		baseURL:  baseURL,
		logger:   logger,
	}
}

// RunCycle performs one cycle: pick a proxy, scrape the basket, feed the
// pipeline and warm the image cache. A scrape failure evicts the proxy
// it used; the next cycle tries the next one. Returns how many
// observations were processed successfully.
func (s *WatchService) RunCycle(ctx context.Context) (int, error) {
	proxyAddr, err := s.proxies.Next()
	if err != nil {
		if !errors.Is(err, proxy.ErrNoProxyAvailable) {
			return 0, fmt.Errorf("selecting proxy: %w", err)
		}
		// An exhausted pool degrades to a direct connection rather than
		// stopping the watch entirely.
		s.logger.Warn("proxy pool exhausted, scraping directly")
		proxyAddr = ""
	}

	observations, err := s.source.Scrape(ctx, proxyAddr)
	if err != nil {
		if proxyAddr != "" {
			s.proxies.Evict(proxyAddr)
			s.logger.Warn("proxy evicted after scrape failure",
				slog.String("proxy", proxyAddr),
				slog.Int("remaining", s.proxies.Size()),
			)
		}
		return 0, fmt.Errorf("scraping basket: %w", err)
	}

	processed := s.pipeline.ProcessPage(ctx, observations)

	if s.images != nil {
		links := make([]string, 0, len(observations))
		for _, obs := range observations {
			links = append(links, normalize.CanonicalLink(s.baseURL, obs.ProductLink))
		}
		s.images.Preload(ctx, links)
	}

	s.logger.Info("watch cycle completed",
		slog.Int("observations", len(observations)),
		slog.Int("processed", processed),
		slog.String("proxy", proxyAddr),
	)
	return processed, nil
}
