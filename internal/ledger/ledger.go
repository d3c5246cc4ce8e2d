// SPDX-License-Identifier: MPL-2.0

package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ErrInvalidKey is the sentinel error wrapped by InvalidKeyError.
var ErrInvalidKey = errors.New("invalid ledger key")

type (
	// Key identifies a provision record.
	Key struct {
		App       string
		Commodity string
	}

	// InvalidKeyError is returned when a Key has an empty application or commodity.
	InvalidKeyError struct {
		Value Key
	}

	// Record is a persisted provisioning outcome.
	Record struct {
		Key
		Provisioned bool
		UpdatedAt   time.Time
	}

	// Ledger is the read-before-decide, write-after-attempt contract used by
	// the orchestrator.
	Ledger interface {
		// Get returns the recorded outcome for key. found is false when no
		// attempt was ever recorded.
		Get(ctx context.Context, key Key) (provisioned bool, found bool, err error)
		// Set records the outcome of the latest attempt for key.
		Set(ctx context.Context, key Key, provisioned bool) error
	}

	// Store is a Ledger that can also be listed, pruned and closed.
	// The operator commands (status, reset) work against a Store.
	Store interface {
		Ledger
		List(ctx context.Context) ([]Record, error)
		Delete(ctx context.Context, key Key) error
		Close() error
	}
)

// NewKey builds a Key.
func NewKey(app, commodity string) Key {
	return Key{App: app, Commodity: commodity}
}

// String returns "app/commodity".
func (k Key) String() string {
	return k.App + "/" + k.Commodity
}

// Validate returns an error if either part of the key is empty or whitespace-only.
func (k Key) Validate() error {
	if strings.TrimSpace(k.App) == "" || strings.TrimSpace(k.Commodity) == "" {
		return &InvalidKeyError{Value: k}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("invalid ledger key %q: application and commodity must be non-empty", e.Value.String())
}

// Unwrap returns ErrInvalidKey for errors.Is() compatibility.
func (e *InvalidKeyError) Unwrap() error { return ErrInvalidKey }

// sortRecords orders records by application, then commodity.
func sortRecords(records []Record) {
	slices.SortFunc(records, func(a, b Record) int {
		if c := strings.Compare(a.App, b.App); c != 0 {
			return c
		}
		return strings.Compare(a.Commodity, b.Commodity)
	})
}
