package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/persist"
)

// SweepInterval is how often idle sessions are looked for. Shorter idle
// timeouts sweep at their own pace.
const SweepInterval = time.Minute

var ErrSessionNotFound = errors.New("session not found")

type entry struct {
	session  *Session
	lastSeen atomic.Int64
}

func (e *entry) touch(now time.Time) {
	e.lastSeen.Store(now.UnixNano())
}

// Registry holds the live sessions of this process by session id and closes
// the ones left idle for longer than Options.IdleTimeout.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	deps Deps
	opts Options
	log  *slog.Logger
	now  func() time.Time

	sweepInterval time.Duration
	stopSweep     chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

func NewRegistry(deps Deps, opts Options, log *slog.Logger) *Registry {
	r := &Registry{
		sessions: make(map[string]*entry),
		deps:     deps,
		opts:     opts,
		log:      log.With("component", "session_registry"),
		now:      time.Now,
	}

	if opts.IdleTimeout > 0 {
		r.sweepInterval = min(SweepInterval, opts.IdleTimeout)
		r.stopSweep = make(chan struct{})
		r.wg.Add(1)
		go r.sweepLoop()
	}
	return r
}

func (r *Registry) sweepLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.sweepInterval)
			r.EvictIdle(ctx)
			cancel()
		case <-r.stopSweep:
			return
		}
	}
}

// Get returns the live session for sessionID and marks it as used.
func (r *Registry) Get(sessionID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sessionID]
	if !ok {
		return nil, false
	}
	e.touch(r.now())
	return e.session, true
}

// GuestNamespaceFor keeps each session's guest slots apart from every other
// session's.
func GuestNamespaceFor(sessionID string) string {
	return persist.GuestNamespace + "-" + sessionID
}

// Open returns the live session for sessionID, creating a guest session when
// there is none. Slots are loaded outside the registry lock.
func (r *Registry) Open(ctx context.Context, sessionID string) *Session {
	if s, ok := r.Get(sessionID); ok {
		return s
	}

	opts := r.opts
	opts.GuestNamespace = GuestNamespaceFor(sessionID)
	s := New(ctx, r.deps, "", opts, r.log.With("session_id", sessionID))

	r.mu.Lock()
	if e, ok := r.sessions[sessionID]; ok {
		e.touch(r.now())
		r.mu.Unlock()
		// lost the race; this copy never took a write
		_ = s.Close(ctx)
		return e.session
	}
	e := &entry{session: s}
	e.touch(r.now())
	r.sessions[sessionID] = e
	r.mu.Unlock()

	r.log.Debug("session opened", "session_id", sessionID)
	return s
}

func (r *Registry) Close(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	e, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	return e.session.Close(ctx)
}

// EvictIdle closes every session unused for longer than the idle timeout and
// returns how many were closed. Closing flushes, so nothing is lost; the next
// request for an evicted id reloads its slots.
func (r *Registry) EvictIdle(ctx context.Context) int {
	if r.opts.IdleTimeout <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.opts.IdleTimeout).UnixNano()

	idle := make(map[string]*Session)
	r.mu.Lock()
	for id, e := range r.sessions {
		if e.lastSeen.Load() < cutoff {
			idle[id] = e.session
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for id, s := range idle {
		if err := s.Close(ctx); err != nil {
			r.log.Warn("idle session close failed", "session_id", id, "error", err)
		}
	}
	if len(idle) > 0 {
		r.log.Info("idle sessions evicted", "count", len(idle))
	}
	return len(idle)
}

// CloseAll stops the idle sweep and closes every live session, flushing each
// one.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.stopOnce.Do(func() {
		if r.stopSweep != nil {
			close(r.stopSweep)
		}
	})
	r.wg.Wait()

	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*entry)
	r.mu.Unlock()

	var errs []error
	for id, e := range sessions {
		if err := e.session.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ClearCartsFor empties the cart of userID in every live session signed in as
// that identity, and the persisted slot when no live session holds it.
func (r *Registry) ClearCartsFor(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrInvalidIdentity
	}

	r.mu.RLock()
	var live []*Session
	for _, e := range r.sessions {
		if e.session.UserID() == userID {
			live = append(live, e.session)
		}
	}
	r.mu.RUnlock()

	cleared := 0
	for _, s := range live {
		// identity is checked again under the session lock
		ok, err := s.CompleteCheckoutFor(ctx, userID)
		if err != nil && !errors.Is(err, ErrSessionClosed) {
			return cleared, err
		}
		if ok {
			cleared++
		}
	}
	if cleared > 0 {
		return cleared, nil
	}

	if err := r.deps.Cart.Save(persist.Namespace(userID), nil); err != nil {
		return 0, fmt.Errorf("clear persisted cart: %w", err)
	}
	if err := r.deps.Cart.Flush(ctx); err != nil {
		return 0, fmt.Errorf("flush cleared cart: %w", err)
	}
	return 0, nil
}
