package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/persist"
	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/poller"
	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/service"
	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/stock"
)

var (
	ErrInvalidIdentity = errors.New("identity id is required")
	ErrSessionClosed   = errors.New("session closed")
)

// Deps are the shared collaborators every session is built from.
type Deps struct {
	Cart       service.CartStore
	Favourites service.FavouritesStore
	Lookup     stock.Lookup
}

type Options struct {
	// MergeGuestOnSignIn folds guest cart lines and favourites into the
	// signed-in identity and empties the guest slots.
	MergeGuestOnSignIn bool
	RefreshInterval    time.Duration
	RefreshJitter      time.Duration
	// GuestNamespace defaults to persist.GuestNamespace.
	GuestNamespace string
	// IdleTimeout lets a Registry close sessions unused for this long.
	// Zero keeps them until shutdown.
	IdleTimeout time.Duration
}

// Session is one browsing context: a cart, a favourites list and the stock
// refresh loop for those favourites, all bound to a single identity.
type Session struct {
	mu     sync.Mutex
	userID string
	closed bool

	cart       *service.CartService
	favourites *service.FavouritesService
	refresh    *poller.Handle

	deps Deps
	opts Options
	log  *slog.Logger
}

// New loads both aggregates for userID (empty means guest) and starts the
// stock refresher. The refresher outlives ctx; Close stops it.
func New(ctx context.Context, deps Deps, userID string, opts Options, log *slog.Logger) *Session {
	if opts.GuestNamespace == "" {
		opts.GuestNamespace = persist.GuestNamespace
	}
	ns := namespaceFor(opts, userID)
	s := &Session{
		userID:     userID,
		cart:       service.NewCartService(ctx, deps.Cart, ns, log),
		favourites: service.NewFavouritesService(ctx, deps.Favourites, deps.Lookup, ns, log),
		deps:       deps,
		opts:       opts,
		log:        log,
	}

	refresher := poller.NewStockRefresher(s.favourites, opts.RefreshInterval, opts.RefreshJitter, log)
	s.refresh = refresher.Start(context.WithoutCancel(ctx))
	return s
}

func (s *Session) Cart() *service.CartService {
	return s.cart
}

func (s *Session) Favourites() *service.FavouritesService {
	return s.favourites
}

// UserID is empty for guests.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// SignIn persists everything pending for the current identity and then
// switches both aggregates to userID's slots.
func (s *Session) SignIn(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrInvalidIdentity
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.userID == userID {
		return nil
	}

	if err := s.flushLocked(ctx); err != nil {
		return err
	}

	fromGuest := s.userID == ""
	guestLines := s.cart.Lines()
	guestFavourites := s.favourites.Items()

	ns := namespaceFor(s.opts, userID)
	s.cart.Reload(ctx, ns)
	s.favourites.Reload(ctx, ns)
	s.userID = userID

	if !fromGuest || (len(guestLines) == 0 && len(guestFavourites) == 0) {
		return nil
	}

	if !s.opts.MergeGuestOnSignIn {
		s.log.Warn("guest data left in guest slots after sign-in",
			"user_id", userID,
			"cart_lines", len(guestLines),
			"favourites", len(guestFavourites))
		return nil
	}

	if _, err := s.cart.MergeLines(guestLines); err != nil {
		return fmt.Errorf("merge guest cart: %w", err)
	}
	if _, err := s.favourites.MergeItems(guestFavourites); err != nil {
		return fmt.Errorf("merge guest favourites: %w", err)
	}
	if err := s.deps.Cart.Save(s.opts.GuestNamespace, nil); err != nil {
		return fmt.Errorf("clear guest cart: %w", err)
	}
	if err := s.deps.Favourites.Save(s.opts.GuestNamespace, nil); err != nil {
		return fmt.Errorf("clear guest favourites: %w", err)
	}
	s.log.Info("guest data merged on sign-in",
		"user_id", userID,
		"cart_lines", len(guestLines),
		"favourites", len(guestFavourites))
	return s.flushLocked(ctx)
}

// SignOut returns the session to the guest slots.
func (s *Session) SignOut(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.userID == "" {
		return nil
	}

	if err := s.flushLocked(ctx); err != nil {
		return err
	}
	s.cart.Reload(ctx, s.opts.GuestNamespace)
	s.favourites.Reload(ctx, s.opts.GuestNamespace)
	s.userID = ""
	return nil
}

// CompleteCheckout empties the cart and returns once the empty cart is durable.
func (s *Session) CompleteCheckout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.completeCheckoutLocked(ctx)
}

// CompleteCheckoutFor is CompleteCheckout for a session still signed in as
// userID. It reports false and leaves the cart alone when the identity has
// changed.
func (s *Session) CompleteCheckoutFor(ctx context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrSessionClosed
	}
	if userID == "" || s.userID != userID {
		return false, nil
	}
	if err := s.completeCheckoutLocked(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Session) completeCheckoutLocked(ctx context.Context) error {
	if err := s.cart.Flush(ctx); err != nil {
		return fmt.Errorf("flush before checkout: %w", err)
	}
	if err := s.cart.ClearCart(); err != nil {
		return err
	}
	if err := s.cart.Flush(ctx); err != nil {
		return fmt.Errorf("flush after checkout: %w", err)
	}
	return nil
}

// Close stops the refresher and flushes pending writes. Later calls are no-ops.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.refresh.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

func namespaceFor(opts Options, userID string) string {
	if userID == "" {
		return opts.GuestNamespace
	}
	return persist.Namespace(userID)
}

func (s *Session) flushLocked(ctx context.Context) error {
	if err := s.cart.Flush(ctx); err != nil {
		return fmt.Errorf("flush cart: %w", err)
	}
	if err := s.favourites.Flush(ctx); err != nil {
		return fmt.Errorf("flush favourites: %w", err)
	}
	return nil
}
