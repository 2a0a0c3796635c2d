package errors

import (
	"errors"
	"fmt"
)

// Domain error types for business logic

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates insufficient permissions
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrUnavailable indicates a backing service is unavailable
	ErrUnavailable = errors.New("service unavailable")
)

// Ingestion-specific errors

var (
	// ErrBadTrade indicates a raw trade record that cannot be normalized.
	// Callers skip such records instead of failing the pipeline.
	ErrBadTrade = errors.New("malformed trade record")

	// ErrMissingWallet indicates a trade without a wallet address
	ErrMissingWallet = errors.New("trade has no wallet address")

	// ErrMissingMarket indicates a trade without a market identifier
	ErrMissingMarket = errors.New("trade has no market identifier")

	// ErrNoNotional indicates price/size could not be resolved to a notional
	ErrNoNotional = errors.New("trade notional cannot be resolved")

	// ErrInvalidTimestamp indicates a timestamp without UTC epoch semantics
	ErrInvalidTimestamp = errors.New("invalid trade timestamp")
)

// Storage-specific errors

var (
	// ErrStorage indicates a window or state upsert failed; the trade must
	// not be reported as processed
	ErrStorage = errors.New("storage operation failed")

	// ErrConfigInvalid indicates a missing or out-of-range threshold value
	ErrConfigInvalid = errors.New("invalid configuration")
)

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
