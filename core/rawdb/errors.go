package rawdb

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/btcnew-node/ledger/common"
)

// Store error taxonomy (spec.md §7 "Store errors"): corrupted table,
// missing key where required, and write-to-read-transaction are the
// three cases the store itself detects and wraps with a call-site
// trace via github.com/pkg/errors, matching the teacher's own use of
// pkg/errors for I/O-adjacent failures throughout erigon-lib.

// ErrCorrupted wraps a decode/layout failure with a stack trace.
func ErrCorrupted(reason string) error {
	return errors.WithStack(fmt.Errorf("rawdb: corrupted: %s", reason))
}

// ErrNotFound reports a missing row where the caller required one to
// exist (e.g. rewriting a successor pointer on an absent block).
func ErrNotFound(what string, key common.Hash) error {
	return errors.WithStack(fmt.Errorf("rawdb: %s not found: %s", what, key))
}
