package domain

import (
	"errors"
	"fmt"
)

var (
	ErrConfig           = errors.New("invalid rule configuration")
	ErrRange            = errors.New("value out of range")
	ErrValidation       = errors.New("validation failed")
	ErrDuplicate        = errors.New("invoice already exists")
	ErrInvoiceNotFound  = errors.New("invoice not found")
	ErrInsufficientData = errors.New("not enough training samples")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTemporary        = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
