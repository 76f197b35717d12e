package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-manzano/internal/resilience"
)

var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady flips the process readiness flag. It is cleared on shutdown so load
// balancers stop routing before the server drains.
func SetReady(v bool) { ready.Store(v) }

// Check is a named dependency probe. Optional checks are reported but never
// fail readiness.
type Check struct {
	Name     string
	Probe    func(ctx context.Context) error
	Optional bool
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checks  []Check
	Timeout time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready runs every check concurrently and reports 503 when a required one fails.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	status := make(map[string]string, len(h.Checks)+1)
	healthy := ready.Load()
	if !healthy {
		status["server"] = "shutting down"
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout())
	defer cancel()

	results := make([]error, len(h.Checks))
	var wg sync.WaitGroup
	for i, c := range h.Checks {
		wg.Add(1)
		go func(i int, c Check) {
			defer wg.Done()
			if c.Probe == nil {
				return
			}
			results[i] = c.Probe(ctx)
		}(i, c)
	}
	wg.Wait()

	for i, c := range h.Checks {
		if err := results[i]; err != nil {
			status[c.Name] = err.Error()
			if !c.Optional {
				healthy = false
			}
			continue
		}
		status[c.Name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func (h Handler) timeout() time.Duration {
	if h.Timeout <= 0 {
		return 500 * time.Millisecond
	}
	return h.Timeout
}

// PingRedis probes a Redis client.
func PingRedis(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if client == nil {
			return errors.New("redis not configured")
		}
		return client.Ping(ctx).Err()
	}
}

// BreakerClosed fails while the breaker is not closed.
func BreakerClosed(b *resilience.Breaker) func(context.Context) error {
	return func(context.Context) error {
		if b == nil {
			return nil
		}
		if state := b.State(); state != resilience.Closed {
			return errors.New("circuit " + state.String())
		}
		return nil
	}
}
