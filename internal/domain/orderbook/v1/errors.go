package orderbookv1

import "errors"

var (
	// ErrNilOrder is returned when a nil order is submitted.
	ErrNilOrder = errors.New("order cannot be nil")
	// ErrInvalidOrder is returned when an order has a non-positive price or quantity.
	ErrInvalidOrder = errors.New("order price and quantity must be positive")
	// ErrDuplicateOrderID is returned when an order id is already resting in the book.
	ErrDuplicateOrderID = errors.New("order id already exists")
	// ErrOrderNotFound is returned when a cancel targets an id that is not resting.
	ErrOrderNotFound = errors.New("order not found")
)
