package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/domain"
	"github.com/shopspring/decimal"
)

// CartStore is what the cart needs from persistence.
// Consumers define this interface, not the storage implementation.
type CartStore interface {
	Load(ctx context.Context, namespace string) []domain.CartLine
	Save(namespace string, lines []domain.CartLine) error
	Flush(ctx context.Context) error
}

// CartService is the in-memory owner of one session's cart. Mutations apply
// immediately and are persisted in the background.
type CartService struct {
	mu        sync.RWMutex
	namespace string
	lines     []domain.CartLine
	discount  domain.Discount

	store    CartStore
	log      *slog.Logger
	newID    func() string
	notifier notifier
}

func NewCartService(ctx context.Context, store CartStore, namespace string, log *slog.Logger) *CartService {
	s := &CartService{
		namespace: namespace,
		store:     store,
		log:       log.With("aggregate", "cart"),
		newID:     uuid.NewString,
	}
	s.lines = store.Load(ctx, namespace)
	return s
}

// AddToCart merges into the existing line for the product or appends a new
// snapshot line.
func (s *CartService) AddToCart(product domain.Product, quantity int) (domain.CartLine, error) {
	if product.ID == "" {
		return domain.CartLine{}, ErrInvalidProduct
	}
	if quantity <= 0 {
		return domain.CartLine{}, ErrInvalidQuantity
	}

	s.mu.Lock()
	var line domain.CartLine
	if i := s.indexByProduct(product.ID); i >= 0 {
		s.lines[i].Quantity += quantity
		line = s.lines[i]
	} else {
		line = domain.CartLine{
			ID:            s.newID(),
			ProductID:     product.ID,
			Name:          product.Name,
			Price:         product.Price,
			OriginalPrice: product.OriginalPrice,
			Quantity:      quantity,
			SKU:           product.SKU,
			ImageURL:      product.ImageURL,
		}
		s.lines = append(s.lines, line)
	}
	err := s.persistLocked()
	s.mu.Unlock()

	s.notifier.notify()
	return line, err
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
// Upper bounds belong to the caller.
func (s *CartService) UpdateQuantity(lineID string, quantity int) error {
	s.mu.Lock()
	i := s.indexByID(lineID)
	if i < 0 {
		s.mu.Unlock()
		return ErrLineNotFound
	}
	if quantity <= 0 {
		s.lines = slices.Delete(s.lines, i, i+1)
	} else {
		s.lines[i].Quantity = quantity
	}
	err := s.persistLocked()
	s.mu.Unlock()

	s.notifier.notify()
	return err
}

// RemoveLine is a no-op for unknown ids.
func (s *CartService) RemoveLine(lineID string) error {
	s.mu.Lock()
	i := s.indexByID(lineID)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	s.lines = slices.Delete(s.lines, i, i+1)
	err := s.persistLocked()
	s.mu.Unlock()

	s.notifier.notify()
	return err
}

// ClearCart drops every line and any applied discount.
func (s *CartService) ClearCart() error {
	s.mu.Lock()
	s.lines = []domain.CartLine{}
	s.discount = domain.Discount{}
	err := s.persistLocked()
	s.mu.Unlock()

	s.notifier.notify()
	return err
}

// MergeLines folds lines from another cart into this one, summing quantities
// for products already present. It reports how many lines were appended.
func (s *CartService) MergeLines(lines []domain.CartLine) (int, error) {
	if len(lines) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	appended := 0
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity <= 0 {
			continue
		}
		if i := s.indexByProduct(l.ProductID); i >= 0 {
			s.lines[i].Quantity += l.Quantity
			continue
		}
		if l.ID == "" || s.indexByID(l.ID) >= 0 {
			l.ID = s.newID()
		}
		s.lines = append(s.lines, l)
		appended++
	}
	err := s.persistLocked()
	s.mu.Unlock()

	s.notifier.notify()
	return appended, err
}

// ApplyLoyaltyDiscount records redeemed points and their value on the cart.
func (s *CartService) ApplyLoyaltyDiscount(pointsUsed int, discount decimal.Decimal) error {
	if pointsUsed < 0 || discount.IsNegative() {
		return fmt.Errorf("%w: loyalty points and discount must not be negative", ErrInvalidDiscount)
	}

	s.mu.Lock()
	s.discount.LoyaltyPointsUsed = pointsUsed
	s.discount.LoyaltyDiscount = discount
	s.mu.Unlock()

	s.notifier.notify()
	return nil
}

func (s *CartService) ApplyPromoCode(code string, kind domain.PromoKind, value decimal.Decimal) error {
	if code == "" {
		return fmt.Errorf("%w: promo code is required", ErrInvalidDiscount)
	}
	switch kind {
	case domain.PromoPercentage:
		if value.IsNegative() || value.GreaterThan(decimal.NewFromInt(100)) {
			return fmt.Errorf("%w: percentage must be 0-100", ErrInvalidDiscount)
		}
	case domain.PromoFixed:
		if value.IsNegative() {
			return fmt.Errorf("%w: fixed discount cannot be negative", ErrInvalidDiscount)
		}
	default:
		return fmt.Errorf("%w: unknown promo kind %q", ErrInvalidDiscount, kind)
	}

	s.mu.Lock()
	s.discount.PromoCode = code
	s.discount.PromoKind = kind
	s.discount.PromoValue = value
	s.mu.Unlock()

	s.notifier.notify()
	return nil
}

func (s *CartService) ClearDiscount() {
	s.mu.Lock()
	s.discount = domain.Discount{}
	s.mu.Unlock()

	s.notifier.notify()
}

// Lines returns a copy of the lines in insertion order.
func (s *CartService) Lines() []domain.CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.lines)
}

func (s *CartService) Line(lineID string) (domain.CartLine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexByID(lineID); i >= 0 {
		return s.lines[i], true
	}
	return domain.CartLine{}, false
}

func (s *CartService) Discount() domain.Discount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.discount
}

// Totals recomputes subtotal, discount and total from the current lines.
func (s *CartService) Totals() domain.CartTotals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.ComputeTotals(s.lines, s.discount)
}

func (s *CartService) Namespace() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.namespace
}

// Reload switches the cart to namespace and replaces its state with what is
// persisted there. Discounts do not carry across namespaces.
func (s *CartService) Reload(ctx context.Context, namespace string) {
	lines := s.store.Load(ctx, namespace)

	s.mu.Lock()
	s.namespace = namespace
	s.lines = lines
	s.discount = domain.Discount{}
	s.mu.Unlock()

	s.notifier.notify()
}

// Flush waits until queued cart writes have reached the store.
func (s *CartService) Flush(ctx context.Context) error {
	return s.store.Flush(ctx)
}

// Subscribe registers fn to run after every change. The returned func unsubscribes.
func (s *CartService) Subscribe(fn func()) func() {
	return s.notifier.subscribe(fn)
}

func (s *CartService) persistLocked() error {
	if err := s.store.Save(s.namespace, slices.Clone(s.lines)); err != nil {
		s.log.Error("cart persistence failed", "namespace", s.namespace, "error", err)
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

func (s *CartService) indexByProduct(productID string) int {
	return slices.IndexFunc(s.lines, func(l domain.CartLine) bool { return l.ProductID == productID })
}

func (s *CartService) indexByID(lineID string) int {
	return slices.IndexFunc(s.lines, func(l domain.CartLine) bool { return l.ID == lineID })
}
