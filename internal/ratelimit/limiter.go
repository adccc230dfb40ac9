// Package ratelimit implements per-client rate limiting with separate
// tiers for anonymous and authenticated clients. The token bucket
// itself comes from golang.org/x/time/rate; this package adds the
// per-client map, tier selection and idle-bucket eviction around it.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Token costs per endpoint class.
const (
	CostStandard = 1
	CostDownload = 2
	CostUpload   = 5
)

type Config struct {
	AnonRate     float64 // tokens per second
	AnonCapacity float64
	AuthRate     float64
	AuthCapacity float64
	// SweepInterval bounds memory: buckets idle for more than twice
	// this interval are evicted by the next sweep.
	SweepInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		AnonRate:      30,
		AnonCapacity:  50,
		AuthRate:      60,
		AuthCapacity:  100,
		SweepInterval: 5 * time.Minute,
	}
}

// Decision is the outcome of one admission check, carrying the values
// the transport layer exposes as X-RateLimit-* headers.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration
}

type client struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one rate.Limiter per client identifier. The map is
// guarded by a mutex; the buckets themselves are internally
// synchronized, so admissions for different clients do not contend.
type Limiter struct {
	cfg Config

	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time

	now func() time.Time
}

// New builds a limiter, replacing non-positive rates, capacities and
// intervals with the defaults so a zero value cannot divide by zero or
// block every request.
func New(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.AnonRate <= 0 {
		cfg.AnonRate = def.AnonRate
	}
	if cfg.AnonCapacity <= 0 {
		cfg.AnonCapacity = def.AnonCapacity
	}
	if cfg.AuthRate <= 0 {
		cfg.AuthRate = def.AuthRate
	}
	if cfg.AuthCapacity <= 0 {
		cfg.AuthCapacity = def.AuthCapacity
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	return &Limiter{
		cfg:       cfg,
		clients:   make(map[string]*client),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Admit checks whether a request costing cost tokens may proceed and
// spends the tokens if so. A rejected admission reports how long the
// client must wait for the cost to become affordable.
func (l *Limiter) Admit(clientID string, cost int, authenticated bool) Decision {
	now := l.now()
	c := l.clientFor(clientID, authenticated, now)

	d := Decision{Limit: c.lim.Burst()}

	res := c.lim.ReserveN(now, cost)
	if !res.OK() {
		// Cost exceeds the bucket capacity; no amount of waiting helps.
		d.Remaining = int(c.lim.TokensAt(now))
		d.Reset = now
		return d
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		d.Remaining = int(c.lim.TokensAt(now))
		d.RetryAfter = delay
		d.Reset = now.Add(delay)
		return d
	}

	d.Allowed = true
	tokens := c.lim.TokensAt(now)
	d.Remaining = int(tokens)
	d.Reset = now.Add(timeToFull(c.lim, tokens))
	return d
}

// timeToFull reports how long until the bucket refills to capacity.
func timeToFull(lim *rate.Limiter, tokens float64) time.Duration {
	deficit := float64(lim.Burst()) - tokens
	if deficit <= 0 {
		return 0
	}
	return time.Duration(deficit / float64(lim.Limit()) * float64(time.Second))
}

func (l *Limiter) clientFor(clientID string, authenticated bool, now time.Time) *client {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.cfg.SweepInterval {
		l.sweepLocked(now)
		l.lastSweep = now
	}

	if c, ok := l.clients[clientID]; ok {
		c.lastSeen = now
		return c
	}

	r, burst := l.cfg.AnonRate, int(l.cfg.AnonCapacity)
	if authenticated {
		r, burst = l.cfg.AuthRate, int(l.cfg.AuthCapacity)
	}
	c := &client{lim: rate.NewLimiter(rate.Limit(r), burst), lastSeen: now}
	l.clients[clientID] = c
	return c
}

// Sweep evicts buckets that have been idle long enough to be full
// again anyway. It runs lazily from Admit and from the housekeeping
// scheduler.
func (l *Limiter) Sweep() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweepLocked(now)
	l.lastSweep = now
}

// sweepLocked evicts idle buckets. Callers hold l.mu.
func (l *Limiter) sweepLocked(now time.Time) {
	stale := now.Add(-2 * l.cfg.SweepInterval)
	for id, c := range l.clients {
		if c.lastSeen.Before(stale) {
			delete(l.clients, id)
		}
	}
}

// Size reports the number of tracked client buckets.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
