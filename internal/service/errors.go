package service

import "errors"

var (
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	ErrLineNotFound    = errors.New("cart line not found")
	ErrInvalidDiscount = errors.New("invalid discount")
	ErrInvalidProduct  = errors.New("product id is required")
	// ErrPersist wraps failures to hand state to persistence. The in-memory change is kept.
	ErrPersist = errors.New("failed to persist state")
)
