// Package model provides the shared record types for racesms.
//
// This package contains type definitions and small pure helpers only. All
// other internal packages import model; model imports nothing internal.
//
// Key design constraints:
//   - Card is the primary key of the dispatch ledger; the zero Card means
//     "no card known"
//   - Names are compared in NFC form (see NormalizeName)
//   - Records are immutable once appended to a ledger
package model
