package stock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/domain"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"
)

const defaultCallTimeout = 5 * time.Second

type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before letting a trial call through.
	OpenTimeout time.Duration
	// CallTimeout bounds one shared call to the wrapped lookup.
	CallTimeout time.Duration
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		CallTimeout:         defaultCallTimeout,
	}
}

// GuardedLookup shares identical in-flight requests and stops calling a failing
// lookup until the breaker half-opens. A caller giving up only
// abandons its own wait; the shared call runs on without it.
type GuardedLookup struct {
	next        Lookup
	breaker     *gobreaker.CircuitBreaker[map[string]domain.StockInfo]
	sfg         singleflight.Group
	callTimeout time.Duration
}

func NewGuardedLookup(next Lookup, settings BreakerSettings, log *slog.Logger) *GuardedLookup {
	cb := gobreaker.NewCircuitBreaker[map[string]domain.StockInfo](gobreaker.Settings{
		Name:        "stock-lookup",
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			// a cancelled call is not a lookup failure
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	callTimeout := settings.CallTimeout
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}

	return &GuardedLookup{
		next:        next,
		breaker:     cb,
		callTimeout: callTimeout,
	}
}

func (g *GuardedLookup) GetStock(ctx context.Context, productIDs []string) (map[string]domain.StockInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := g.sfg.DoChan(requestKey(productIDs), func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.callTimeout)
		defer cancel()
		return g.breaker.Execute(func() (map[string]domain.StockInfo, error) {
			return g.next.GetStock(callCtx, productIDs)
		})
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if res.Err != nil {
		if errors.Is(res.Err, gobreaker.ErrOpenState) || errors.Is(res.Err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrLookupUnavailable, res.Err)
		}
		return nil, res.Err
	}

	// callers sharing a result must not see each other's writes
	shared := res.Val.(map[string]domain.StockInfo)
	out := make(map[string]domain.StockInfo, len(shared))
	for k, s := range shared {
		out[k] = s
	}
	return out, nil
}

func (g *GuardedLookup) State() gobreaker.State {
	return g.breaker.State()
}

func requestKey(productIDs []string) string {
	ids := slices.Clone(productIDs)
	slices.Sort(ids)
	return strings.Join(ids, "\x00")
}
