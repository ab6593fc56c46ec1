// Package memdb is an in-memory kv.RwDB used by tests and by any caller
// that does not need durability. Each table is a github.com/google/btree
// ordered tree keyed purely on byte comparison — the same structure and
// the same AscendGreaterOrEqual-style traversal the teacher sketches
// (commented out) in core/state/history_reader_v3.go for ordered
// storage iteration — so that iteration order is provably independent of
// value bytes, closing the historical ordering bug spec.md §4.1 warns
// about.
package memdb

import (
	"bytes"
	"context"
	"sync"

	"github.com/google/btree"

	"github.com/btcnew-node/ledger/kv"
)

const treeDegree = 32

type kvItem struct {
	key, value []byte
}

func (a kvItem) Less(than btree.Item) bool {
	return bytes.Compare(a.key, than.(kvItem).key) < 0
}

// DB is a kv.RwDB backed entirely by in-process btrees. It enforces the
// same single-writer discipline as the durable backend: BeginRw blocks
// until any prior write transaction has committed or rolled back.
type DB struct {
	mu     sync.RWMutex
	tables map[string]*btree.BTree
	wmu    sync.Mutex
}

// New creates an empty store with every table in kv.AllTables present.
func New() *DB {
	db := &DB{tables: make(map[string]*btree.BTree, len(kv.AllTables))}
	for _, t := range kv.AllTables {
		db.tables[t] = btree.New(treeDegree)
	}
	return db
}

func (db *DB) Close() error { return nil }

// BeginRo returns a snapshot transaction: an O(1) copy-on-write clone of
// every table, per google/btree's Clone semantics, so later writers never
// perturb it.
func (db *DB) BeginRo(_ context.Context) (kv.Tx, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	clones := make(map[string]*btree.BTree, len(db.tables))
	for name, t := range db.tables {
		clones[name] = t.Clone()
	}
	return &tx{trees: clones}, nil
}

// BeginRw acquires the single write slot. Callers are expected to come
// through core/ledger/writequeue for arbitration across priority lanes;
// this mutex is the backend-level backstop enforcing "one write
// transaction in flight" regardless of caller discipline.
func (db *DB) BeginRw(_ context.Context) (kv.RwTx, error) {
	db.wmu.Lock()
	db.mu.RLock()
	clones := make(map[string]*btree.BTree, len(db.tables))
	for name, t := range db.tables {
		clones[name] = t.Clone()
	}
	db.mu.RUnlock()
	return &rwTx{tx: tx{trees: clones}, db: db}, nil
}

type tx struct {
	trees map[string]*btree.BTree
}

func (t *tx) tree(table string) (*btree.BTree, error) {
	tr, ok := t.trees[table]
	if !ok {
		return nil, kv.ErrUnknownTable(table)
	}
	return tr, nil
}

func (t *tx) GetOne(table string, key []byte) ([]byte, error) {
	tr, err := t.tree(table)
	if err != nil {
		return nil, err
	}
	item := tr.Get(kvItem{key: key})
	if item == nil {
		return nil, nil
	}
	return item.(kvItem).value, nil
}

func (t *tx) Has(table string, key []byte) (bool, error) {
	v, err := t.GetOne(table, key)
	return v != nil, err
}

func (t *tx) Count(table string) (uint64, error) {
	tr, err := t.tree(table)
	if err != nil {
		return 0, err
	}
	return uint64(tr.Len()), nil
}

func (t *tx) Cursor(table string) (kv.Cursor, error) {
	tr, err := t.tree(table)
	if err != nil {
		return nil, err
	}
	return newCursor(tr), nil
}

func (t *tx) ForEach(table string, walker func(k, v []byte) (bool, error)) error {
	tr, err := t.tree(table)
	if err != nil {
		return err
	}
	var walkErr error
	tr.Ascend(func(i btree.Item) bool {
		it := i.(kvItem)
		cont, err := walker(it.key, it.value)
		if err != nil {
			walkErr = err
			return false
		}
		return cont
	})
	return walkErr
}

func (t *tx) Rollback() {}

type rwTx struct {
	tx
	db        *DB
	committed bool
}

func (t *rwTx) Put(table string, key, value []byte) error {
	tr, err := t.tree(table)
	if err != nil {
		return err
	}
	v := make([]byte, len(value))
	copy(v, value)
	k := make([]byte, len(key))
	copy(k, key)
	tr.ReplaceOrInsert(kvItem{key: k, value: v})
	return nil
}

func (t *rwTx) Delete(table string, key []byte) error {
	tr, err := t.tree(table)
	if err != nil {
		return err
	}
	tr.Delete(kvItem{key: key})
	return nil
}

func (t *rwTx) RwCursor(table string) (kv.RwCursor, error) {
	tr, err := t.tree(table)
	if err != nil {
		return nil, err
	}
	return newRwCursor(tr), nil
}

// Commit publishes this transaction's (already-cloned) trees as the
// database's new tables, then releases the write slot.
func (t *rwTx) Commit() error {
	if t.committed {
		return nil
	}
	t.db.mu.Lock()
	for name, tr := range t.trees {
		t.db.tables[name] = tr
	}
	t.db.mu.Unlock()
	t.committed = true
	t.db.wmu.Unlock()
	return nil
}

func (t *rwTx) Rollback() {
	if t.committed {
		return
	}
	t.committed = true
	t.db.wmu.Unlock()
}
