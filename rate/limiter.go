// Package rate keeps one token bucket per client.
package rate

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Limiter struct {
	burst  int
	limit  rate.Limit
	expiry time.Duration

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewLimiter allows each client limitRPS requests per second with the
// given burst. Clients idle for longer than expiry are forgotten by a
// janitor that runs until ctx is done.
func NewLimiter(ctx context.Context, burst int, expiry time.Duration, limitRPS float64) *Limiter {
	l := &Limiter{
		burst:   burst,
		limit:   rate.Limit(limitRPS),
		expiry:  expiry,
		clients: make(map[string]*clientLimiter),
	}

	go l.janitor(ctx)
	return l
}

// Check consumes a token for id and reports whether the request may go on.
func (l *Limiter) Check(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cl, ok := l.clients[id]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[id] = cl
	}
	cl.lastAccess = time.Now()

	return cl.limiter.Allow()
}

// Len is the number of clients currently tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *Limiter) janitor(ctx context.Context) {
	every := l.expiry / 2
	if every <= 0 || every > time.Minute {
		every = time.Minute
	}

	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			l.evict(now)
		}
	}
}

func (l *Limiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, cl := range l.clients {
		if now.Sub(cl.lastAccess) > l.expiry {
			delete(l.clients, id)
		}
	}
}

// Every converts a minimum interval between requests to a rate.
func Every(interval time.Duration) float64 {
	return float64(rate.Every(interval))
}
