package rawdb

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/btcnew-node/ledger/kv"
)

var versionKey = []byte("version")

// VersionGet returns the schema version recorded in tx, or 0 if the
// store has never been initialized (a brand new, empty database).
func VersionGet(tx kv.Tx) (uint64, error) {
	raw, err := tx.GetOne(kv.DatabaseVersion, versionKey)
	if err != nil || raw == nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, ErrCorrupted("version row wrong length")
	}
	return binary.BigEndian.Uint64(raw), nil
}

func VersionPut(tx kv.RwTx, version uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], version)
	return tx.Put(kv.DatabaseVersion, versionKey, buf[:])
}

// ErrSchemaTooNew is returned by EnsureSchema when the store's on-disk
// version is newer than this binary understands (spec.md §4.1 "greater
// than current: refuses to open in read-write mode").
var ErrSchemaTooNew = errors.New("database schema version newer than supported")

// upgradeStep is one version bump, applied within its own write
// transaction (spec.md §4.1: "the whole version bump commits or none
// of it does").
type upgradeStep struct {
	from, to uint64
	apply    func(tx kv.RwTx) error
}

// upgradePath lists every migration this binary knows, in order. Steps
// earlier than the oldest version this module can still open (v11) are
// recorded only as history in kv.CurrentDBVersion's doc comment; a
// store that old must be upgraded by an older binary first, matching
// the original project's own upgrade chain.
var upgradePath = []upgradeStep{
	{11, 15, upgradeTo15},
	{12, 15, upgradeTo15},
	{13, 15, upgradeTo15},
	{14, 15, upgradeTo15},
	{15, 16, upgradeNoop},
	{16, 17, upgradeNoop},
	{17, 18, upgradeNoop},
}

func upgradeNoop(tx kv.RwTx) error { return nil }

// upgradeTo15 is the step from each of v11-v14 to v15. It changes no
// rows: confirmation heights are not moved out of account info, and
// block tables and sidebands are not rewritten; only the version row
// that applyStep writes afterwards changes.
func upgradeTo15(tx kv.RwTx) error {
	return nil
}

// EnsureSchema opens (or initializes) the schema version row and
// applies every pending migration in order, each in its own write
// transaction. db must support BeginRw; on a store that cannot open a
// write transaction, initialization or an upgrade fails with the error
// BeginRw returns.
func EnsureSchema(ctx context.Context, db kv.RwDB, opts SchemaOptions) error {
	current, err := readVersion(ctx, db)
	if err != nil {
		return err
	}
	if current == 0 {
		return initializeSchema(ctx, db)
	}
	if current > kv.CurrentDBVersion {
		return errors.Wrapf(ErrSchemaTooNew, "on-disk version %d > supported %d", current, kv.CurrentDBVersion)
	}
	if current == kv.CurrentDBVersion {
		return nil
	}
	if opts.BackupBeforeUpgrade {
		if err := backupBeforeUpgrade(opts); err != nil {
			return errors.Wrap(err, "backup before upgrade")
		}
	}
	for _, step := range upgradePath {
		if step.from != current {
			continue
		}
		if err := applyStep(ctx, db, step); err != nil {
			return errors.Wrapf(err, "upgrade %d->%d", step.from, step.to)
		}
		current = step.to
	}
	if current != kv.CurrentDBVersion {
		return errors.Errorf("upgrade path incomplete: landed on %d, want %d", current, kv.CurrentDBVersion)
	}
	return nil
}

func readVersion(ctx context.Context, db kv.RwDB) (uint64, error) {
	tx, err := db.BeginRo(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	return VersionGet(tx)
}

func initializeSchema(ctx context.Context, db kv.RwDB) error {
	tx, err := db.BeginRw(ctx)
	if err != nil {
		return err
	}
	if err := VersionPut(tx, kv.CurrentDBVersion); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func applyStep(ctx context.Context, db kv.RwDB, step upgradeStep) error {
	tx, err := db.BeginRw(ctx)
	if err != nil {
		return err
	}
	if err := step.apply(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := VersionPut(tx, step.to); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// SchemaOptions configures EnsureSchema's upgrade behavior.
type SchemaOptions struct {
	// BackupBeforeUpgrade, when set, copies DataPath to a timestamped
	// sibling before the first upgrade write (spec.md §4.1).
	BackupBeforeUpgrade bool
	DataPath            string
	Fs                  afero.Fs
}

// backupBeforeUpgrade takes an advisory file lock on DataPath (guarding
// against a second process racing the same copy) and writes a
// timestamped sibling copy via the afero filesystem abstraction, the
// same pairing the teacher's own backup tooling uses for
// copy-before-mutate safety.
func backupBeforeUpgrade(opts SchemaOptions) error {
	lock := flock.New(opts.DataPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return err
	}
	if !locked {
		return errors.New("another process holds the data file lock")
	}
	defer lock.Unlock()

	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	data, err := afero.ReadFile(fs, opts.DataPath)
	if err != nil {
		return err
	}
	dest := fmt.Sprintf("%s.bak-%d", opts.DataPath, backupTimestamp())
	return afero.WriteFile(fs, dest, data, 0o600)
}

// backupTimestamp is isolated behind a var so tests can stub it; the
// workflow never calls time.Now() directly for migration bookkeeping.
var backupTimestamp = func() int64 { return time.Now().Unix() }
