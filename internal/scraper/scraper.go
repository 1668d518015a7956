// Package scraper renders the storefront basket page in a headless
// browser and extracts raw product observations from it.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/medios/pricewatch/internal/model"
)

// Config holds scrape-cycle settings.
type Config struct {
	// BasketURL is the storefront page carrying the watched basket.
	BasketURL string
	// PageTimeout bounds a single page render.
	PageTimeout time.Duration
	// Headless runs the browser without a display (default: true).
	Headless bool
}

// DefaultConfig returns the default scraper configuration
func DefaultConfig() Config {
	return Config{
		PageTimeout: 60 * time.Second,
		Headless:    true,
	}
}

// Scraper drives a headless browser through the basket page. Each call
// to Scrape launches a fresh browser so the egress proxy can change
// between cycles; the storefront blocks addresses that linger.
type Scraper struct {
	config Config
	logger *slog.Logger
}

// New creates a scraper.
func New(cfg Config, logger *slog.Logger) *Scraper {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = DefaultConfig().PageTimeout
	}
	return &Scraper{config: cfg, logger: logger}
}

// Scrape renders the basket page through the given proxy (empty for a
// direct connection) and returns the raw observations on it.
func (s *Scraper) Scrape(ctx context.Context, proxyAddr string) ([]model.Observation, error) {
	browser, cleanup, err := s.launch(proxyAddr)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	page, err := s.openPage(browser)
	if err != nil {
		return nil, err
	}
	defer func() { _ = page.Close() }()

	page = page.Context(ctx).Timeout(s.config.PageTimeout)

	if err := page.Navigate(s.config.BasketURL); err != nil {
		return nil, fmt.Errorf("navigating to basket: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("waiting for page load: %w", err)
	}

	// The basket is rendered client-side; wait for it rather than for
	// network idle, which the storefront's trackers never reach.
	if _, err := page.Element(sellerBasketSelector); err != nil {
		return nil, fmt.Errorf("waiting for basket: %w", err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("reading page html: %w", err)
	}

	observations, err := ParseBasket(html, time.Now())
	if err != nil {
		return nil, err
	}

	s.logger.Debug("basket scraped",
		slog.Int("observations", len(observations)),
		slog.String("proxy", proxyAddr),
	)
	return observations, nil
}

func (s *Scraper) launch(proxyAddr string) (*rod.Browser, func(), error) {
	l := launcher.New().
		Headless(s.config.Headless).
		Set("disable-gpu").
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("disable-setuid-sandbox")

	if proxyAddr != "" {
		l = l.Proxy(proxyAddr)
	}

	url, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, nil, fmt.Errorf("connecting to browser: %w", err)
	}

	cleanup := func() {
		if err := browser.Close(); err != nil {
			s.logger.Warn("browser close failed", slog.String("error", err.Error()))
		}
		l.Cleanup()
	}
	return browser, cleanup, nil
}

func (s *Scraper) openPage(browser *rod.Browser) (*rod.Page, error) {
	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("creating page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  1920,
		Height: 1080,
	}); err != nil {
		return nil, fmt.Errorf("setting viewport: %w", err)
	}

	// Basic anti-detection; the storefront serves a captcha wall to
	// pages that advertise webdriver.
	_, err = page.Eval(`() => {
		Object.defineProperty(navigator, 'webdriver', {
			get: () => undefined
		});
		Object.defineProperty(navigator, 'languages', {
			get: () => ['tr-TR', 'tr', 'en-US', 'en']
		});
	}`)
	if err != nil {
		s.logger.Warn("Failed to apply stealth mode", slog.String("error", err.Error()))
	}

	return page, nil
}
