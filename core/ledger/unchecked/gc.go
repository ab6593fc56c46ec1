package unchecked

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/btcnew-node/ledger/core/rawdb"
	"github.com/btcnew-node/ledger/kv"
)

// GC deletes unchecked entries older than a configurable cutoff, a
// bounded number per cycle so a large backlog never holds the write
// transaction open for an unbounded time (spec.md §4.6).
type GC struct {
	now Clock
}

func NewGC(now Clock) *GC { return &GC{now: now} }

// Sweep removes up to maxEntries rows whose arrival time is older than
// now-maxAge, and reports whether the table may still hold more expired
// rows beyond that batch (so the caller knows whether to run again
// immediately or back off).
func (g *GC) Sweep(tx kv.RwTx, maxAge uint64, maxEntries int) (removed int, more bool, err error) {
	cutoff := g.now()
	var floor uint64
	if maxAge < cutoff {
		floor = cutoff - maxAge
	}

	cur, err := rawdb.UncheckedBegin(tx)
	if err != nil {
		return 0, false, err
	}
	defer cur.Close()

	var victims [][2][32]byte
	row, err := cur.First()
	for row != nil && err == nil {
		if row.Info.ArrivalTime < floor {
			victims = append(victims, [2][32]byte{row.Dependency, row.BlockHash})
			if len(victims) >= maxEntries {
				more = true
				break
			}
		}
		row, err = cur.Next()
	}
	if err != nil {
		return 0, false, err
	}
	cur.Close()

	for _, v := range victims {
		if err := rawdb.UncheckedDel(tx, v[0], v[1]); err != nil {
			return removed, more, err
		}
		removed++
	}
	return removed, more, nil
}

// Scheduler paces repeated GC cycles: immediate retry while a sweep
// reports more work pending, exponential backoff once a sweep drains
// the backlog, so an idle chain doesn't spend cycles polling an empty
// table.
type Scheduler struct {
	idle *backoff.ExponentialBackOff
}

func NewScheduler() *Scheduler {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 5 * time.Minute
	b.MaxElapsedTime = 0 // never stop giving out intervals
	b.RandomizationFactor = 0 // intervals never shrink between idle cycles
	return &Scheduler{idle: b}
}

// Next returns how long to wait before the next sweep, given whether
// the last one reported more work pending.
func (s *Scheduler) Next(more bool) time.Duration {
	if more {
		s.idle.Reset()
		return 0
	}
	return s.idle.NextBackOff()
}
