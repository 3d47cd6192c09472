package repository

import (
	"errors"
	"fmt"
)

// ErrEntityNotFound is the root of every not-found error so callers can
// match the whole family with errors.Is.
var ErrEntityNotFound = errors.New("entity does not exist")

var (
	ErrMailoutNotFound   = fmt.Errorf("mailout: %w", ErrEntityNotFound)
	ErrCustomerNotFound  = fmt.Errorf("customer: %w", ErrEntityNotFound)
	ErrMessageNotFound   = fmt.Errorf("message: %w", ErrEntityNotFound)
	ErrTagNotFound       = fmt.Errorf("tag: %w", ErrEntityNotFound)
	ErrPhoneCodeNotFound = fmt.Errorf("phone code: %w", ErrEntityNotFound)
	ErrTimezoneNotFound  = fmt.Errorf("timezone: %w", ErrEntityNotFound)
)

var ErrInvalidStatus = errors.New("invalid message status")
