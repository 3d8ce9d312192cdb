package services

import (
	"fmt"

	"order_manager/internal/errs"
)

var (
	ErrCustomerNotFound      = errs.New(errs.NotFound, "customer not found")
	ErrProductNotFound       = errs.New(errs.NotFound, "product not found")
	ErrOrderNotFound         = errs.New(errs.NotFound, "order not found")
	ErrAlreadyCancelled      = errs.New(errs.ValidationConflict, "order is already cancelled")
	ErrCannotCancelDelivered = errs.New(errs.ValidationConflict, "cannot cancel a delivered order")
	ErrInsufficientStock     = errs.New(errs.ValidationConflict, "insufficient stock")
	ErrInvalidStatus         = errs.New(errs.ValidationConflict, "invalid order status")
	ErrEmptyOrder            = errs.New(errs.ValidationConflict, "order must contain at least one item")
	ErrInvalidQuantity       = errs.New(errs.ValidationConflict, "item quantity must be at least 1")
	ErrNegativeAmount        = errs.New(errs.ValidationConflict, "amounts must not be negative")
	ErrDuplicateEmail        = errs.New(errs.UniquenessConflict, "customer with this email already exists")
	ErrDuplicateDocument     = errs.New(errs.UniquenessConflict, "customer with this document number already exists")
	ErrDuplicateProductName  = errs.New(errs.UniquenessConflict, "product with this name already exists")
)

// StockError reports a shortfall for one product. It matches
// ErrInsufficientStock under errors.Is.
type StockError struct {
	ProductID   uint
	ProductName string
	Available   int
	Requested   int
}

func (e *StockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = fmt.Sprintf("#%d", e.ProductID)
	}
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d", name, e.Available, e.Requested)
}

func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

func (e *StockError) ErrorKind() errs.Kind {
	return errs.ValidationConflict
}

func storeErr(msg string, err error) error {
	return errs.Wrap(errs.StoreFailure, msg, err)
}
