package blockchain

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateKey is returned when a create targets a key already in the world state.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrUnknownKey is returned when an update targets a key missing from the world state.
	ErrUnknownKey = errors.New("unknown key")
	// ErrChainIntegrity is returned when a stored block fails verification.
	ErrChainIntegrity = errors.New("chain integrity violation")
	// ErrInvalidPreviousHash is returned when a block does not link to its predecessor.
	// It matches ErrChainIntegrity under errors.Is.
	ErrInvalidPreviousHash = fmt.Errorf("%w: invalid previous hash", ErrChainIntegrity)
	// ErrMiningExhausted is returned when the nonce search hits its iteration guard.
	ErrMiningExhausted = errors.New("mining exhausted")
	// ErrInvalidDifficulty is returned for a difficulty no hash can satisfy.
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	// ErrInvalidHashFormat is returned for a hash that is not 64 hex characters.
	ErrInvalidHashFormat = errors.New("invalid hash format")
)

// ErrorType classifies ledger errors for callers that map them to other representations.
type ErrorType string

const (
	ErrorTypeDuplicateKey    ErrorType = "DUPLICATE_KEY"
	ErrorTypeUnknownKey      ErrorType = "UNKNOWN_KEY"
	ErrorTypeIntegrity       ErrorType = "CHAIN_INTEGRITY_VIOLATION"
	ErrorTypeMining          ErrorType = "MINING_EXHAUSTED"
	ErrorTypeInvalidArgument ErrorType = "INVALID_ARGUMENT"
)

// LedgerError carries the type of a ledger failure plus the key or block it concerns.
type LedgerError struct {
	Type       ErrorType `json:"errorType"`
	Message    string    `json:"message"`
	Key        string    `json:"key,omitempty"`
	BlockIndex *uint64   `json:"blockIndex,omitempty"`
	err        error
}

// Error implements the error interface.
func (e *LedgerError) Error() string {
	switch {
	case e.Key != "":
		return fmt.Sprintf("[%s] (key: %s) %s", e.Type, e.Key, e.Message)
	case e.BlockIndex != nil:
		return fmt.Sprintf("[%s] (block: %d) %s", e.Type, *e.BlockIndex, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error, for errors.Is/As.
func (e *LedgerError) Unwrap() error {
	return e.err
}

// NewError creates a new LedgerError.
func NewError(errorType ErrorType, message string) *LedgerError {
	return &LedgerError{Type: errorType, Message: message}
}

func NewErrorf(errorType ErrorType, format string, args ...any) *LedgerError {
	return &LedgerError{Type: errorType, Message: fmt.Sprintf(format, args...)}
}

func (e *LedgerError) WithKey(key string) *LedgerError {
	e.Key = key
	return e
}

func (e *LedgerError) WithBlock(index uint64) *LedgerError {
	e.BlockIndex = &index
	return e
}

func (e *LedgerError) Wrap(err error) *LedgerError {
	e.err = err
	return e
}

// TypeOf returns the ErrorType of err, or "" when err is not a LedgerError.
func TypeOf(err error) ErrorType {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Type
	}
	return ""
}
