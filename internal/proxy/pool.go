// Package proxy manages the health-checked rotation of outbound proxy
// endpoints the scraper routes through.
package proxy

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"golang.org/x/sync/errgroup"
)

// ErrNoProxyAvailable signals an empty working set. Callers proceed
// without a proxy; this is never fatal.
var ErrNoProxyAvailable = errors.New("no proxy available")

// ProbeFunc reports whether a proxy host answers a liveness probe.
type ProbeFunc func(ctx context.Context, host string) bool

// Config holds pool configuration.
type Config struct {
	// ProbeTimeout bounds a single liveness probe.
	ProbeTimeout time.Duration
	// ProbeConcurrency bounds how many candidates are probed at once.
	ProbeConcurrency int
	// Probe overrides the default ICMP probe (used by tests).
	Probe ProbeFunc
}

// DefaultConfig returns the default pool configuration
func DefaultConfig() Config {
	return Config{
		ProbeTimeout:     5 * time.Second,
		ProbeConcurrency: 8,
	}
}

// Pool rotates over the working set of proxy endpoints. Endpoints that
// fail the admission probe never enter the set; endpoints evicted at
// runtime never re-enter it.
type Pool struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	working []string
	cursor  int
}

// New creates an empty pool; call Initialize to admit candidates.
func New(cfg Config, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultConfig().ProbeTimeout
	}
	if cfg.ProbeConcurrency <= 0 {
		cfg.ProbeConcurrency = DefaultConfig().ProbeConcurrency
	}
	if cfg.Probe == nil {
		cfg.Probe = icmpProbe(cfg.ProbeTimeout)
	}
	return &Pool{cfg: cfg, logger: logger}
}

// Initialize probes every candidate with bounded concurrency and admits
// the responders, preserving candidate order for deterministic rotation.
func (p *Pool) Initialize(ctx context.Context, candidates []string) {
	admitted := make([]bool, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.ProbeConcurrency)
	for i, candidate := range candidates {
		i, candidate := i, candidate
		g.Go(func() error {
			host := proxyHost(candidate)
			if host == "" {
				p.logger.Warn("unparseable proxy candidate", slog.String("proxy", candidate))
				return nil
			}
			if p.cfg.Probe(ctx, host) {
				admitted[i] = true
			} else {
				p.logger.Warn("proxy failed liveness probe", slog.String("proxy", candidate))
			}
			return nil
		})
	}
	_ = g.Wait() // probes never return errors

	var working []string
	for i, ok := range admitted {
		if ok {
			working = append(working, candidates[i])
		}
	}

	p.mu.Lock()
	p.working = working
	p.cursor = 0
	p.mu.Unlock()

	p.logger.Info("proxy pool initialized",
		slog.Int("candidates", len(candidates)),
		slog.Int("working", len(working)),
	)
}

// Next returns the next endpoint in round-robin order, wrapping
// indefinitely, or ErrNoProxyAvailable when the working set is empty.
func (p *Pool) Next() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.working) == 0 {
		return "", ErrNoProxyAvailable
	}

	endpoint := p.working[p.cursor%len(p.working)]
	p.cursor++
	return endpoint, nil
}

// Evict removes an endpoint from the working set and resets the rotation
// cursor. Evicted endpoints are not re-admitted.
func (p *Pool) Evict(bad string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, endpoint := range p.working {
		if endpoint == bad {
			p.working = append(p.working[:i], p.working[i+1:]...)
			p.cursor = 0
			p.logger.Info("proxy evicted", slog.String("proxy", bad))
			return
		}
	}
}

// Size returns the current working-set size.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.working)
}

// icmpProbe returns the default packet round-trip liveness check.
func icmpProbe(timeout time.Duration) ProbeFunc {
	return func(ctx context.Context, host string) bool {
		pinger, err := probing.NewPinger(host)
		if err != nil {
			return false
		}
		pinger.Count = 1
		pinger.Timeout = timeout
		if err := pinger.RunWithContext(ctx); err != nil {
			return false
		}
		return pinger.Statistics().PacketsRecv > 0
	}
}

// proxyHost extracts the hostname from a proxy endpoint which may or may
// not carry a scheme or credentials.
func proxyHost(endpoint string) string {
	candidate := endpoint
	if !strings.Contains(candidate, "://") {
		candidate = "http://" + candidate
	}
	parsed, err := url.Parse(candidate)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
