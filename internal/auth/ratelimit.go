package auth

import (
	"sync"
	"time"
)

// RateLimitConfig tunes the failed-token lockout. Zero fields take the
// defaults.
type RateLimitConfig struct {
	MaxAttempts     int           // failures allowed inside one window (default 5)
	WindowDuration  time.Duration // default 15m
	LockoutDuration time.Duration // default 30m
	CleanupInterval time.Duration // default 5m
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxAttempts:     5,
		WindowDuration:  15 * time.Minute,
		LockoutDuration: 30 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

func (c RateLimitConfig) withDefaults() RateLimitConfig {
	d := DefaultRateLimitConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.WindowDuration <= 0 {
		c.WindowDuration = d.WindowDuration
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = d.LockoutDuration
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	return c
}

// failureWindow counts one client's bad tokens since start.
type failureWindow struct {
	start       time.Time
	failures    int
	lockedUntil time.Time
}

func (w *failureWindow) lockedAt(now time.Time) bool {
	return now.Before(w.lockedUntil)
}

// RateLimiter locks out client IPs that keep presenting invalid tokens.
// Failures are counted in fixed windows; reaching MaxAttempts inside one
// window locks the IP for LockoutDuration.
type RateLimiter struct {
	cfg RateLimitConfig
	now func() time.Time

	mu      sync.Mutex
	clients map[string]*failureWindow

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter starts a limiter with a background sweep of stale
// entries. Call Stop to end the sweep.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		clients: make(map[string]*failureWindow),
		stop:    make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Allow reports whether ip may try a token now and, if not, how long it
// has to wait.
func (rl *RateLimiter) Allow(ip string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.clients[ip]
	if !ok || !w.lockedAt(now) {
		return true, 0
	}
	return false, w.lockedUntil.Sub(now)
}

// RecordFailure counts a bad token and reports whether it locked ip out.
func (rl *RateLimiter) RecordFailure(ip string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.clients[ip]
	if !ok || (!w.lockedAt(now) && now.Sub(w.start) > rl.cfg.WindowDuration) {
		w = &failureWindow{start: now}
		rl.clients[ip] = w
	}

	w.failures++
	if w.failures < rl.cfg.MaxAttempts {
		return false, 0
	}
	w.lockedUntil = now.Add(rl.cfg.LockoutDuration)
	return true, rl.cfg.LockoutDuration
}

// RecordSuccess forgets the failures of ip.
func (rl *RateLimiter) RecordSuccess(ip string) {
	rl.mu.Lock()
	delete(rl.clients, ip)
	rl.mu.Unlock()
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

// sweep drops clients whose window has ended and who are not locked out.
func (rl *RateLimiter) sweep() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, w := range rl.clients {
		if !w.lockedAt(now) && now.Sub(w.start) > rl.cfg.WindowDuration {
			delete(rl.clients, ip)
		}
	}
}
