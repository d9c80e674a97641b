// Package store provides the SQLite-backed dispatch ledger.
//
// The store implements an append-only log of notification records:
//   - One row per dispatch attempt that reached the transport
//   - Rows are never updated or deleted (enforced by triggers)
//   - At most one "sent" row per card (partial UNIQUE index)
//
// # Ordering
//
// Rows are ordered by seq, an INTEGER PRIMARY KEY AUTOINCREMENT column.
// created_at is informational only and never used for ordering.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - One open connection: the ledger has a single writer
package store
