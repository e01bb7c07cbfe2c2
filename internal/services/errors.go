package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/invoice-tracker/validation"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when an agency, client, product or invoice
	// reference does not exist.
	ErrNotFound = errors.New("not_found")
	// ErrValidation marks input rejected before any write. Use errors.As with
	// *ValidationError to get field details.
	ErrValidation = errors.New("validation_failed")
	// ErrConflict is returned when a write hits the invoice number unique
	// constraint. Callers may retry with a fresh number.
	ErrConflict = errors.New("conflict")
	// ErrTransaction wraps any other failure inside a write transaction.
	// Nothing has been persisted when it is returned.
	ErrTransaction = errors.New("transaction_failed")
)

// ValidationError carries field-level violations.
type ValidationError struct {
	Fields validation.Violations
}

func (e *ValidationError) Error() string { return e.Fields.Error() }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func newValidationError(v validation.Violations) error {
	if v.Empty() {
		return nil
	}
	return &ValidationError{Fields: v}
}

func notFound(entity string, id uint) error {
	return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
}

// isDuplicateKey detects unique constraint violations from either driver.
// gorm translates them when TranslateError is on; the string checks cover
// connections opened without it.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "sqlstate 23505")
}
