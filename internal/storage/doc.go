// Package storage owns the durable documents of the tracker:
//   - the configuration document (API key, webhook, tracked SKUs, policy)
//   - last-known state per SKU
//   - bounded price/availability history per SKU
//
// Two drivers implement the same Store contract: "file" (three JSON
// documents) and "sqlite" (single database file).
package storage
