// Package ledger implements the block processor and rollback engine
// that sit on top of core/rawdb: the visitor-per-block-kind validation
// and commit logic, mirrored by an inverse visitor for rollback.
package ledger

// Result is the closed set of outcomes process() can return for a
// single block (spec.md §4.2). Only Progress performs any mutation;
// every other value leaves the write transaction's effect on that
// block as if it had never been attempted.
type Result int

const (
	ResultProgress Result = iota
	ResultOld
	ResultGapPrevious
	ResultGapSource
	ResultBadSignature
	ResultNegativeSpend
	ResultUnreceivable
	ResultFork
	ResultOpenedBurnAccount
	ResultBalanceMismatch
	ResultRepresentativeMismatch
	ResultBlockPosition
)

func (r Result) String() string {
	switch r {
	case ResultProgress:
		return "progress"
	case ResultOld:
		return "old"
	case ResultGapPrevious:
		return "gap_previous"
	case ResultGapSource:
		return "gap_source"
	case ResultBadSignature:
		return "bad_signature"
	case ResultNegativeSpend:
		return "negative_spend"
	case ResultUnreceivable:
		return "unreceivable"
	case ResultFork:
		return "fork"
	case ResultOpenedBurnAccount:
		return "opened_burn_account"
	case ResultBalanceMismatch:
		return "balance_mismatch"
	case ResultRepresentativeMismatch:
		return "representative_mismatch"
	case ResultBlockPosition:
		return "block_position"
	default:
		return "unknown"
	}
}

// IsProgress reports whether the block committed.
func (r Result) IsProgress() bool { return r == ResultProgress }

// Verification is the caller's pre-verification hint (spec.md §4.2
// "Signature verification"): a caller that has already checked a
// signature out-of-band can skip the processor's own crypto check.
type Verification int

const (
	VerificationUnknown Verification = iota
	VerificationValid
	VerificationValidEpoch
	VerificationInvalid
)
