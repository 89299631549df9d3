// Package ledger persists render history in SQLite: one row per render
// session and one row per provider job issued during it. The history and
// status CLI commands read from it; rendering works fine with the ledger
// disabled.
package ledger
