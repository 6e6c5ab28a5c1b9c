// Package ledger records organize and run invocations in a SQLite database.
//
// The ledger is history only: matching never reads it. Each run stores its
// counts and one row per selection with the outcome of materializing it.
package ledger
