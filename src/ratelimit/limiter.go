package ratelimit

import (
	"math"
	"sync"
	"time"

	"github.com/modelmux/modelmux/src/models"
)

const (
	burstWindow     = 10 * time.Second
	sustainedWindow = 60 * time.Second
	cleanupInterval = 60 * time.Second
)

type window struct {
	count     int
	resetTime time.Time
}

// WindowUsage is a read-only view of one admission window.
type WindowUsage struct {
	Count     int       `json:"count"`
	Limit     int       `json:"limit"`
	ResetTime time.Time `json:"reset_time"`
	Remaining int       `json:"remaining"`
}

// Usage snapshots both windows for one identifier.
type Usage struct {
	Burst     WindowUsage `json:"burst"`
	Sustained WindowUsage `json:"sustained"`
}

// Limiter enforces per-identifier sliding-window admission control: a
// short burst window against spikes and a sustained window against
// steady-state overload. The two counters are independent state.
type Limiter struct {
	mu             sync.Mutex
	burst          map[string]*window
	sustained      map[string]*window
	burstLimit     int
	sustainedLimit int

	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

// New creates a limiter. burstLimit defaults to 10 and sustainedLimit to
// 50 when non-positive.
func New(burstLimit, sustainedLimit int) *Limiter {
	if burstLimit <= 0 {
		burstLimit = 10
	}
	if sustainedLimit <= 0 {
		sustainedLimit = 50
	}
	return &Limiter{
		burst:          make(map[string]*window),
		sustained:      make(map[string]*window),
		burstLimit:     burstLimit,
		sustainedLimit: sustainedLimit,
		now:            time.Now,
		stop:           make(chan struct{}),
	}
}

// Check admits or rejects one request for the identifier. The burst window
// is checked first, then the sustained window; the Nth request within a
// window where N equals the limit is admitted, the (N+1)th rejected.
func (l *Limiter) Check(identifier string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if err := l.check(l.burst, identifier, l.burstLimit, burstWindow, now, models.ScopeBurst); err != nil {
		return err
	}
	return l.check(l.sustained, identifier, l.sustainedLimit, sustainedWindow, now, models.ScopeSustained)
}

func (l *Limiter) check(windows map[string]*window, id string, limit int, length time.Duration, now time.Time, scope models.RateLimitScope) error {
	w, ok := windows[id]
	if !ok {
		w = &window{resetTime: now.Add(length)}
		windows[id] = w
	}

	if now.After(w.resetTime) {
		w.count = 0
		w.resetTime = now.Add(length)
	}

	if w.count >= limit {
		err := &models.RateLimitError{
			Scope:      scope,
			Limit:      limit,
			RetryAfter: retryAfterSeconds(w.resetTime, now),
		}
		if scope == models.ScopeSustained {
			err.Code = models.CodeRateLimitExceeded
		}
		return err
	}

	w.count++
	return nil
}

func retryAfterSeconds(resetTime, now time.Time) int {
	return int(math.Ceil(resetTime.Sub(now).Seconds()))
}

// GetUsage reports both windows for an identifier without mutating state.
// Never-seen identifiers report zero usage against the configured limits;
// no window entry is created as a side effect.
func (l *Limiter) GetUsage(identifier string) Usage {
	l.mu.Lock()
	defer l.mu.Unlock()

	return Usage{
		Burst:     snapshot(l.burst[identifier], l.burstLimit),
		Sustained: snapshot(l.sustained[identifier], l.sustainedLimit),
	}
}

func snapshot(w *window, limit int) WindowUsage {
	u := WindowUsage{Limit: limit, Remaining: limit}
	if w == nil {
		return u
	}
	u.Count = w.count
	u.ResetTime = w.resetTime
	u.Remaining = limit - w.count
	if u.Remaining < 0 {
		u.Remaining = 0
	}
	return u
}

// ResetUsage clears both windows for an identifier.
func (l *Limiter) ResetUsage(identifier string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.burst, identifier)
	delete(l.sustained, identifier)
}

// GetAllUsage enumerates usage for every identifier seen in the sustained
// window. Burst-only tracking state is deliberately excluded from the
// enumeration.
func (l *Limiter) GetAllUsage() map[string]Usage {
	l.mu.Lock()
	defer l.mu.Unlock()

	all := make(map[string]Usage, len(l.sustained))
	for id, w := range l.sustained {
		all[id] = Usage{
			Burst:     snapshot(l.burst[id], l.burstLimit),
			Sustained: snapshot(w, l.sustainedLimit),
		}
	}
	return all
}

// Start launches the periodic cleanup loop. Stop cancels it; both are safe
// to call once each on short-lived instances in tests.
func (l *Limiter) Start() {
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Cleanup()
			case <-l.stop:
				return
			}
		}
	}()
}

func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// Cleanup drops windows that closed long enough ago that an identifier
// reappearing behaves identically to a brand-new one. Pure memory hygiene.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, w := range l.sustained {
		if now.Sub(w.resetTime) > sustainedWindow {
			delete(l.sustained, id)
		}
	}
	for id, w := range l.burst {
		if now.Sub(w.resetTime) > burstWindow {
			delete(l.burst, id)
		}
	}
}
