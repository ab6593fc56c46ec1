// Package repweight is the in-memory tally of voting weight held by each
// representative, kept current by the ledger processor and rollback
// engine (which both see it only through ledger.WeightSink) and rebuilt
// at startup from the live account set. The bootstrap weight blob is
// held separately, in Bootstrap, and never copied into a Cache.
package repweight

import (
	"sync"

	"github.com/btcnew-node/ledger/common"
)

// Cache holds the current delegated weight per representative account.
// It implements ledger.WeightSink without importing core/ledger, so the
// processor/rollback package and this one don't form an import cycle.
type Cache struct {
	mu      sync.RWMutex
	weights map[common.Account]common.Amount
}

func New() *Cache {
	return &Cache{weights: make(map[common.Account]common.Amount)}
}

// Add credits amount to rep's weight. A zero account (no representative
// set, e.g. an unopened epoch placeholder) is a documented no-op: the
// burn/zero account never accrues voting weight.
func (c *Cache) Add(rep common.Account, amount common.Amount) error {
	if rep.IsZero() || amount.IsZero() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	sum, err := c.weights[rep].Add(amount)
	if err != nil {
		return err
	}
	c.weights[rep] = sum
	return nil
}

// Sub debits amount from rep's weight.
func (c *Cache) Sub(rep common.Account, amount common.Amount) error {
	if rep.IsZero() || amount.IsZero() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	diff, err := c.weights[rep].Sub(amount)
	if err != nil {
		return err
	}
	if diff.IsZero() {
		delete(c.weights, rep)
		return nil
	}
	c.weights[rep] = diff
	return nil
}

// Weight returns rep's current tallied weight.
func (c *Cache) Weight(rep common.Account) common.Amount {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.weights[rep]
}

// Snapshot returns a copy of the full weight table, for the bootstrap
// blob writer and for serving RPC weight queries.
func (c *Cache) Snapshot() map[common.Account]common.Amount {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[common.Account]common.Amount, len(c.weights))
	for k, v := range c.weights {
		out[k] = v
	}
	return out
}

// Load replaces the table wholesale with a copy of weights.
func (c *Cache) Load(weights map[common.Account]common.Amount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.weights = make(map[common.Account]common.Amount, len(weights))
	for k, v := range weights {
		c.weights[k] = v
	}
}
