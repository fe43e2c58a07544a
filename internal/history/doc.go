// Package history keeps an append-only ledger of terminal job outcomes in
// SQLite. The ledger is purely observational: the queue's directory state is
// authoritative and the engine treats every ledger write as best effort.
package history
