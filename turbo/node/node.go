// Package node wires the block store, ledger processor, rollback
// engine, representative-weight cache, confirmation-height store, and
// unchecked buffer into the single external surface spec.md §6
// describes: Open a store, Process/Rollback blocks through it, observe
// confirmation height, Close it down. Named and placed the way the
// teacher's own turbo/ hosts top-level node wiring above its
// individually-testable subsystems.
package node

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/btcnew-node/ledger/common"
	"github.com/btcnew-node/ledger/core/epoch"
	"github.com/btcnew-node/ledger/core/ledger"
	"github.com/btcnew-node/ledger/core/ledger/confirmheight"
	"github.com/btcnew-node/ledger/core/ledger/repweight"
	"github.com/btcnew-node/ledger/core/ledger/unchecked"
	"github.com/btcnew-node/ledger/core/ledger/writequeue"
	"github.com/btcnew-node/ledger/core/rawdb"
	"github.com/btcnew-node/ledger/core/state"
	"github.com/btcnew-node/ledger/core/types"
	"github.com/btcnew-node/ledger/kv"
	"github.com/btcnew-node/ledger/kv/mdbx"
	"github.com/btcnew-node/ledger/kv/memdb"
)

// Options configures Open. It is the seam an external config loader
// would populate (spec.md's CLI/config-file loading is a Non-goal, so
// nothing here parses flags or files).
type Options struct {
	// DataPath names the durable store location. Empty selects an
	// in-memory store (kv/memdb), the shape tests use.
	DataPath string
	MapSize  uint64

	BackupBeforeUpgrade bool

	// BootstrapWeights, if non-nil, is read once at Open per the
	// bootstrap-weight override blob (spec.md §4.4, §6).
	BootstrapWeights io.Reader

	Epochs          []epoch.Authority
	VoteCacheSize   int
	SidebandVersion types.SidebandVersion

	Logger *zap.Logger
	Clock  ledger.Clock
}

func nonZeroInt(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func defaultClock() uint64 { return uint64(time.Now().Unix()) }

// Store is the assembled ledger core: one write queue arbitrating one
// kv.RwDB, with the processor, rollback engine, rep-weight cache, vote
// cache, confirmation-height store and unchecked buffer all bound to
// the same underlying account reader/writer.
type Store struct {
	db     kv.RwDB
	writer *state.AccountWriter
	queue  *writequeue.Queue

	weights   *repweight.Cache
	bootstrap *repweight.Bootstrap
	votes     *repweight.VoteCache

	epochs  *epoch.Registry
	proc    *ledger.Processor
	rb      *ledger.Rollback
	confirm *confirmheight.Processor

	unchecked *unchecked.Store
	gc        *unchecked.GC
	sched     *unchecked.Scheduler

	now ledger.Clock
	log *zap.Logger
}

// Open creates or opens the store at opts.DataPath (or an in-memory
// store when DataPath is empty), runs schema migrations, rebuilds the
// representative-weight cache from the persisted account set, and
// loads the bootstrap-weight override blob if one was supplied.
func Open(ctx context.Context, opts Options) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Clock
	if now == nil {
		now = defaultClock
	}

	db, err := openDB(opts)
	if err != nil {
		return nil, err
	}
	if err := rawdb.EnsureSchema(ctx, db, rawdb.SchemaOptions{
		BackupBeforeUpgrade: opts.BackupBeforeUpgrade,
		DataPath:            opts.DataPath,
	}); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ensure schema")
	}

	writer := state.NewAccountWriter(opts.SidebandVersion)

	weights := repweight.New()
	if err := rebuildWeights(ctx, db, weights); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "rebuild representative weights")
	}

	var bootstrap *repweight.Bootstrap
	if opts.BootstrapWeights != nil {
		bootstrap, err = repweight.Load(opts.BootstrapWeights)
		if err != nil {
			db.Close()
			return nil, errors.Wrap(err, "load bootstrap weights")
		}
	}

	votes, err := repweight.NewVoteCache(nonZeroInt(opts.VoteCacheSize, 4096))
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create vote cache")
	}
	if err := withReadTx(ctx, db, votes.Warm); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "warm vote cache")
	}

	epochs := epoch.NewRegistry(opts.Epochs)

	s := &Store{
		db:        db,
		writer:    writer,
		queue:     writequeue.New(),
		weights:   weights,
		bootstrap: bootstrap,
		votes:     votes,
		epochs:    epochs,
		proc:      ledger.NewProcessor(writer, epochs, weights, now, log),
		rb:        ledger.NewRollback(writer, weights, epochs, now, log),
		confirm:   confirmheight.NewProcessor(writer),
		unchecked: unchecked.New(now),
		gc:        unchecked.NewGC(now),
		sched:     unchecked.NewScheduler(),
		now:       now,
		log:       log,
	}
	return s, nil
}

func openDB(opts Options) (kv.RwDB, error) {
	if opts.DataPath == "" {
		return memdb.New(), nil
	}
	return mdbx.Open(mdbx.Options{Path: opts.DataPath, MapSize: opts.MapSize})
}

func withReadTx(ctx context.Context, db kv.RoDB, fn func(tx kv.Tx) error) error {
	tx, err := db.BeginRo(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	return fn(tx)
}

// rebuildWeights sums every account's balance onto its representative,
// the in-memory aggregate's source of truth after a restart (spec.md
// §4.4: "derived entirely from the live account set, with no separate
// on-disk persistence of its own").
func rebuildWeights(ctx context.Context, db kv.RoDB, weights *repweight.Cache) error {
	return withReadTx(ctx, db, func(tx kv.Tx) error {
		cur, err := rawdb.LatestBegin(tx)
		if err != nil {
			return err
		}
		defer cur.Close()
		for account, info, err := cur.First(); ; account, info, err = cur.Next() {
			if err != nil {
				return err
			}
			if info == nil {
				return nil
			}
			if err := weights.Add(info.Representative, info.Balance); err != nil {
				return err
			}
			_ = account
		}
	})
}

// Close releases the underlying store. In-flight Process/Rollback
// calls must have returned first; Close does not cancel them.
func (s *Store) Close() error {
	return s.db.Close()
}

// Process submits a block at the given write-queue priority, buffering
// it in the unchecked store on a gap result and waking any orphans
// that were blocked on it when it commits.
func (s *Store) Process(ctx context.Context, b types.Block, verification ledger.Verification, priority writequeue.Priority) (ledger.Result, error) {
	release, err := s.queue.Acquire(ctx, priority)
	if err != nil {
		return 0, err
	}
	defer release()

	tx, err := s.db.BeginRw(ctx)
	if err != nil {
		return 0, err
	}
	s.writer.SetRwTx(tx)

	hash := types.Hash(b)
	result, procErr := s.proc.Process(b, verification)
	if procErr != nil {
		tx.Rollback()
		return result, procErr
	}
	if !result.IsProgress() {
		if dep := gapDependency(b, result); !dep.IsZero() {
			if err := s.unchecked.Buffer(tx, dep, hash, b); err != nil {
				tx.Rollback()
				return result, err
			}
		}
		if err := tx.Commit(); err != nil {
			return result, err
		}
		return result, nil
	}

	if err := s.unchecked.Wake(tx, hash, s.resubmit); err != nil {
		tx.Rollback()
		return result, err
	}
	if err := tx.Commit(); err != nil {
		return result, err
	}
	return result, nil
}

// resubmit adapts Processor.Process into unchecked.Resubmit's shape for
// Wake's re-submission loop. It runs against the same write transaction
// Wake is already holding, via s.writer's currently-bound RwTx.
func (s *Store) resubmit(b types.Block) (bool, common.Hash, error) {
	result, err := s.proc.Process(b, ledger.VerificationUnknown)
	if err != nil {
		return false, common.ZeroHash, err
	}
	if result.IsProgress() {
		return true, common.ZeroHash, nil
	}
	return false, gapDependency(b, result), nil
}

func gapDependency(b types.Block, result ledger.Result) common.Hash {
	switch result {
	case ledger.ResultGapPrevious:
		return b.Root()
	case ledger.ResultGapSource:
		switch t := b.(type) {
		case *types.OpenBlock:
			return t.Source
		case *types.ReceiveBlock:
			return t.Source
		case *types.StateBlock:
			return t.Link
		}
	}
	return common.ZeroHash
}

// Rollback undoes target and everything after it, at the given
// write-queue priority.
func (s *Store) Rollback(ctx context.Context, target common.Hash, priority writequeue.Priority) ([]ledger.RolledBlock, error) {
	release, err := s.queue.Acquire(ctx, priority)
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := s.db.BeginRw(ctx)
	if err != nil {
		return nil, err
	}
	s.writer.SetRwTx(tx)

	rolled, err := s.rb.Rollback(target)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rolled, nil
}

// ConfirmHeight submits hash to the confirmation-height processor at
// PriorityConfirmationHeight, per spec.md §5's lane ordering.
func (s *Store) ConfirmHeight(ctx context.Context, hash common.Hash) error {
	release, err := s.queue.Acquire(ctx, writequeue.PriorityConfirmationHeight)
	if err != nil {
		return err
	}
	defer release()

	tx, err := s.db.BeginRw(ctx)
	if err != nil {
		return err
	}
	s.writer.SetRwTx(tx)

	if err := s.confirm.Submit(hash); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// SweepUnchecked runs one bounded GC pass over the unchecked table at
// PriorityBulk and reports how long the caller's scheduler should wait
// before the next pass.
func (s *Store) SweepUnchecked(ctx context.Context, maxAge uint64, maxEntries int) (removed int, next time.Duration, err error) {
	release, acquireErr := s.queue.Acquire(ctx, writequeue.PriorityBulk)
	if acquireErr != nil {
		return 0, 0, acquireErr
	}
	defer release()

	tx, err := s.db.BeginRw(ctx)
	if err != nil {
		return 0, 0, err
	}
	s.writer.SetRwTx(tx)

	removed, more, err := s.gc.Sweep(tx, maxAge, maxEntries)
	if err != nil {
		tx.Rollback()
		return 0, 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return removed, s.sched.Next(more), nil
}

// Weight returns representative's current delegated weight. While the
// bootstrap override is active its entry is served instead; the
// override latches off once the ledger's total block count reaches the
// blob's max block count.
func (s *Store) Weight(representative common.Account) common.Amount {
	if s.bootstrap != nil {
		_ = withReadTx(context.Background(), s.db, func(tx kv.Tx) error {
			total, _, err := rawdb.BlockCount(tx)
			if err == nil {
				s.bootstrap.Check(total)
			}
			return err
		})
		if w, ok := s.bootstrap.Weight(representative); ok {
			return w
		}
	}
	return s.weights.Weight(representative)
}
