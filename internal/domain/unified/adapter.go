package unified

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrMissingField indicates a raw record is missing a field the adapter
	// cannot default. The record is skipped and reported, never fatal.
	ErrMissingField = errors.New("unified: raw record missing required field")
	// ErrPlatformDegraded indicates a platform's raw relations could not be
	// read; its contribution to the unified relations is empty.
	ErrPlatformDegraded = errors.New("unified: platform data unavailable")
)

// Adapter maps one platform's raw order and line item shapes into the
// canonical unified representation. Implementations are pure transforms over
// the raw layer: they never mutate source data.
type Adapter interface {
	// Platform returns the platform tag this adapter handles.
	Platform() Platform

	// Extract reads the platform's landed raw relations and converts them.
	// Records that cannot be adapted are skipped and counted in the returned
	// Extract; only a failure to read the raw relations themselves returns an
	// error.
	Extract(ctx context.Context) (*Extract, error)
}

// Extract is one platform's contribution to the unified relations, along with
// the per-platform data-quality outcome of the conversion.
type Extract struct {
	Orders  []Order
	Items   []OrderItem
	Quality DataQuality
}

// DataQuality records degraded-input conditions encountered while adapting a
// platform's raw data. It is surfaced on the rebuild result, never swallowed.
type DataQuality struct {
	Platform      Platform `json:"platform"`
	SkippedOrders int      `json:"skipped_orders"`
	SkippedItems  int      `json:"skipped_items"`
	Degraded      bool     `json:"degraded"`
	Reasons       []string `json:"reasons,omitempty"`
}

// SkipOrder records one unconvertible raw order.
func (q *DataQuality) SkipOrder(reason string) {
	q.SkippedOrders++
	q.addReason(reason)
}

// SkipItem records one unconvertible raw line item.
func (q *DataQuality) SkipItem(reason string) {
	q.SkippedItems++
	q.addReason(reason)
}

// maxReasons caps the retained reason samples per platform.
const maxReasons = 10

func (q *DataQuality) addReason(reason string) {
	if len(q.Reasons) < maxReasons {
		q.Reasons = append(q.Reasons, reason)
	}
}

// Clean reports whether the platform contributed without any degradation.
func (q *DataQuality) Clean() bool {
	return !q.Degraded && q.SkippedOrders == 0 && q.SkippedItems == 0
}

// MissingFieldError builds the standard skip reason for an absent raw field.
func MissingFieldError(record, field string) error {
	return fmt.Errorf("%w: %s.%s", ErrMissingField, record, field)
}
