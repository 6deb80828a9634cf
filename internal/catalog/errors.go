package catalog

import (
	"errors"
	"fmt"
)

// ErrNoAPIKey means the catalog credential is missing from configuration.
// Operations that need the catalog fail with it; the process keeps running.
var ErrNoAPIKey = errors.New("catalog API key not configured")

// NotFoundError means the SKU is unknown to the catalog. Callers treat it
// as a warning for that item, not as a batch failure.
type NotFoundError struct {
	SKU string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("catalog: sku %s not found", e.SKU)
}

// StatusError is a non-2xx catalog response other than not-found.
type StatusError struct {
	SKU  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog: sku %s: unexpected status %d", e.SKU, e.Code)
}
