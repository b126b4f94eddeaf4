// Package finance is the ledger consistency engine of a personal finance
// tracker.
//
// A Book holds the accounts, transactions and budgets of one user's book in
// memory and keeps every account balance equal to its initial balance plus the
// effects of the transactions referencing it:
//   - Balance reconciliation: adding, editing or deleting a transaction applies
//     or reverses its effects on every account involved, including both sides
//     of a transfer. Deleting an account cascades to its transactions.
//   - Budget progress: spending of a category over an explicit period, compared
//     with the budgeted amount.
//   - Tag index: labels written directly to the gateway, flagged as unsynced
//     when a write fails.
//
// Committed mutations are handed to a Sink as a gateway.Change, typically a
// durable outbox that replays them on the remote document store. The
// in-memory state is authoritative: a persistence failure never undoes a
// mutation.
package finance
