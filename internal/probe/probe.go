package probe

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/metrics"
)

type Options struct {
	Path    string
	Timeout time.Duration

	// CacheTTL <= 0 re-probes on every call.
	CacheTTL time.Duration

	// Breaker, when set, answers false without a request while open.
	Breaker *BreakerOptions

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

type BreakerOptions struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before a trial probe.
	OpenTimeout time.Duration
}

// Prober answers whether the primary backend is reachable.
type Prober struct {
	probe   clients.HealthProbe
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	cb      *gobreaker.CircuitBreaker[clients.HealthResult]
	now     func() time.Time

	group singleflight.Group

	mu     sync.Mutex
	last   clients.HealthResult
	lastAt time.Time
}

var errUnhealthy = errors.New("primary unhealthy")

func New(c *clients.Client, opts Options) *Prober {
	if opts.Path == "" {
		opts.Path = "/health"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	p := &Prober{
		probe:   clients.HealthProbe{Name: c.Name, Client: c, Path: opts.Path, Timeout: opts.Timeout},
		ttl:     opts.CacheTTL,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		now:     time.Now,
	}

	if b := opts.Breaker; b != nil {
		failures := b.ConsecutiveFailures
		if failures == 0 {
			failures = 3
		}
		p.cb = gobreaker.NewCircuitBreaker[clients.HealthResult](gobreaker.Settings{
			Name:        c.Name + "-probe",
			MaxRequests: 1,
			Timeout:     b.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				p.logger.Info("probe breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			},
		})
	}
	return p
}

// Available never fails. Errors, timeouts and non-2xx answers all mean false.
func (p *Prober) Available(ctx context.Context) bool {
	return p.Check(ctx).OK
}

// Check returns the latest probe result, probing unless a cached result is still fresh.
func (p *Prober) Check(ctx context.Context) clients.HealthResult {
	if r, ok := p.cached(); ok {
		return r
	}

	// Concurrent callers share one probe. The probe must not die with the first caller's context.
	v, _, _ := p.group.Do("probe", func() (any, error) {
		r := p.run(context.WithoutCancel(ctx))
		p.store(r)
		return r, nil
	})
	return v.(clients.HealthResult)
}

func (p *Prober) run(ctx context.Context) clients.HealthResult {
	if p.cb == nil {
		r := clients.CheckHealth(ctx, p.probe)
		p.record(r)
		return r
	}

	r, err := p.cb.Execute(func() (clients.HealthResult, error) {
		r := clients.CheckHealth(ctx, p.probe)
		if !r.OK {
			return r, errUnhealthy
		}
		return r, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		p.metrics.ProbeShortCircuit()
		return clients.HealthResult{Name: p.probe.Name, OK: false, Error: err.Error()}
	}
	p.record(r)
	return r
}

func (p *Prober) record(r clients.HealthResult) {
	p.metrics.Probe(r.OK)
	if !r.OK {
		p.logger.Debug("primary backend unavailable", "status", r.StatusCode, "error", r.Error)
	}
}

func (p *Prober) cached() (clients.HealthResult, bool) {
	if p.ttl <= 0 {
		return clients.HealthResult{}, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastAt.IsZero() || p.now().Sub(p.lastAt) >= p.ttl {
		return clients.HealthResult{}, false
	}
	return p.last, true
}

func (p *Prober) store(r clients.HealthResult) {
	if p.ttl <= 0 {
		return
	}
	p.mu.Lock()
	p.last, p.lastAt = r, p.now()
	p.mu.Unlock()
}
