package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProductNotFound is returned when a request references an unknown product
	ErrProductNotFound = errors.New("product not found")
	// ErrInvalidHorizon is returned when the forecast horizon is out of range
	ErrInvalidHorizon = errors.New("invalid forecast horizon")
	// ErrInsufficientData signals that a model cannot be trained on the given history
	ErrInsufficientData = errors.New("insufficient data")
)

// ProductNotFound wraps ErrProductNotFound with the offending id
func ProductNotFound(id int64) error {
	return fmt.Errorf("%w: id=%d", ErrProductNotFound, id)
}

// BatchError records the failure of one item inside a batch operation
type BatchError struct {
	ProductID int64  `json:"product_id"`
	Error     string `json:"error"`
}

// BatchResult collects successes and per-item failures of a batch operation
type BatchResult[T any] struct {
	Results []T          `json:"results"`
	Errors  []BatchError `json:"errors"`
}
