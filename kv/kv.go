// Package kv defines the transactional key-value contract the ledger
// core is built on: named tables, ordered cursors, and the read/write
// transaction split described in spec.md §4.1 and §5. Two backends
// implement it — kv/mdbx (durable, erigontech/mdbx-go) and kv/memdb
// (in-memory, github.com/google/btree) — and everything above this
// package (core/rawdb, core/ledger, ...) is written against the
// interfaces here, never against a concrete backend.
package kv

import "context"

// Cursor iterates a single table in strict lexicographic key-byte order.
// Iteration never compares values — see the historical ordering bug
// documented in spec.md §4.1, which this contract exists to rule out.
type Cursor interface {
	First() (k, v []byte, err error)
	Seek(key []byte) (k, v []byte, err error)
	Next() (k, v []byte, err error)
	Last() (k, v []byte, err error)
	Prev() (k, v []byte, err error)
	Close()
}

// RwCursor is a Cursor opened on a write transaction; it may also
// mutate the row at its current position.
type RwCursor interface {
	Cursor
	Put(k, v []byte) error
	Delete(k []byte) error
}

// Tx is a read-only, snapshot-consistent transaction. Many Tx instances
// may be open concurrently with each other and with the single RwTx.
type Tx interface {
	GetOne(table string, key []byte) ([]byte, error)
	Has(table string, key []byte) (bool, error)
	Count(table string) (uint64, error)
	Cursor(table string) (Cursor, error)
	// ForEach calls walker for every (k, v) pair in table in key order,
	// stopping early if walker returns false.
	ForEach(table string, walker func(k, v []byte) (bool, error)) error
	Rollback()
}

// RwTx is the single write transaction in flight at any moment (spec.md
// §5: "Exactly one write transaction may be open at a time across the
// entire store"). Arbitration across competing writers is the write
// queue's job (core/ledger/writequeue), not this package's.
type RwTx interface {
	Tx
	Put(table string, key, value []byte) error
	Delete(table string, key []byte) error
	RwCursor(table string) (RwCursor, error)
	Commit() error
}

// RoDB opens read transactions.
type RoDB interface {
	BeginRo(ctx context.Context) (Tx, error)
}

// RwDB opens both read and write transactions against a durable or
// in-memory store.
type RwDB interface {
	RoDB
	BeginRw(ctx context.Context) (RwTx, error)
	Close() error
}

// DupSortTable marks tables that hold multiple values per key (e.g.
// Unchecked, keyed by the missing dependency hash). Backends that
// distinguish dup-sort tables at creation time (kv/mdbx) consult this
// set; kv/memdb ignores it and holds one value per key in every table,
// so core/rawdb gives Unchecked a composite dependency||block_hash key.
var DupSortTable = map[string]bool{
	Unchecked: true,
}
