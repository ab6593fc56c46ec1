package kv

// DBSchemaVersion versions list (spec.md §6 "Schema versions"):
//
//	 2 -> 3  introduce pending table; migrate legacy pending records.
//	 3 -> 4  convert account-info layout (v5 representation).
//	 4 -> 5  add successor field to blocks; rewrite sidebands.
//	 5 -> 6  add block-count to account info.
//	 6 -> 7  drop unchecked (previous format incompatible).
//	 7 -> 8  unchecked switches to non-dup table.
//	 8 -> 9  upgrade vote table from per-block sequence to whole-vote storage.
//	11 -> 15 introduce "full sideband" with height for every block; split
//	         epoch_1 blocks into dedicated tables; introduce
//	         confirmation-height table; delete legacy representation table.
//	13 -> 14 add confirmation-height column to account info.
//	14 -> 15 split confirmation-height into its own table; collapse
//	         epoch-versioned block tables into a single state-block
//	         table with epoch stored in sideband.
//	15 -> 16 add allow-local-peers / signature-checker-threads /
//	         vote-minimum config fields (config-only).
//	16 -> 17, 17 -> 18 config-only; no on-disk migration beyond version bump.
const CurrentDBVersion = 18

// Block tables. Each block kind's row is keyed by hash and stores
// encode(block) || encode(sideband) concatenated; block_get (accessors
// in core/rawdb) is table-agnostic and probes each of these in turn,
// the same way the teacher's rawdb probes Headers/BlockBody by number
// then hash.
const (
	// key: hash(32) -> value: open block (types.Encode) || sideband
	BlockOpen = "BlockOpen"
	// key: hash(32) -> value: send block || sideband
	BlockSend = "BlockSend"
	// key: hash(32) -> value: receive block || sideband
	BlockReceive = "BlockReceive"
	// key: hash(32) -> value: change block || sideband
	BlockChange = "BlockChange"
	// key: hash(32) -> value: state block || sideband (epoch stored in
	// sideband since schema v15 — see changelog above)
	BlockState = "BlockState"
)

// BlockTables lists every block table, in probe order used by
// block_get/block_del/block_exists. State is probed first since, post
// schema-v15, it is the common case for any chain that has published at
// least one state block.
var BlockTables = []string{BlockState, BlockOpen, BlockSend, BlockReceive, BlockChange}

const (
	// AccountInfo: account(32) -> head(32) || representative(32) ||
	// open_block(32) || balance(16) || modified(8) || block_count(8) || epoch(1)
	AccountInfo = "AccountInfo"

	// Pending (receivable): (destination_account(32) || send_hash(32))
	// -> source_account(32) || amount(16) || epoch(1). Iteration order
	// is lexicographic over the composite key bytes only — see the
	// historical ordering bug in spec.md §4.1.
	Pending = "Pending"

	// Frontier: head_block_hash(32) -> account(32). Present only for
	// legacy (pre-state) chain heads.
	Frontier = "Frontier"

	// ConfirmationHeight: account(32) -> height(8, big-endian).
	ConfirmationHeight = "ConfirmationHeight"

	// Unchecked: dependency_hash(32) || block_hash(32) ->
	// arrival_time(8) || verified(1) || block_type(1) || encoded block.
	// Marked dup-sort: a single dependency may be blocking several
	// orphan blocks at once.
	Unchecked = "Unchecked"

	// Peers: node endpoint bytes -> last-seen timestamp(8).
	Peers = "Peers"

	// OnlineWeightSamples: sample_time(8, big-endian) -> total online
	// weight at that sample (16).
	OnlineWeightSamples = "OnlineWeightSamples"

	// VoteCache: representative_account(32) -> voted_hash(32) ||
	// sequence(8). The "cached vote" write-through table referenced in
	// spec.md §9; see core/ledger/repweight/votecache.go for the bump
	// rule.
	VoteCache = "VoteCache"

	// DatabaseVersion: single row, key "version" -> uint64 big-endian
	// schema version.
	DatabaseVersion = "DatabaseVersion"
)

// AllTables lists every table the store creates at open time. A backend
// that needs to pre-declare tables (kv/mdbx, which opens one MDBX DBI
// per table) ranges over this slice.
var AllTables = append(append([]string{}, BlockTables...),
	AccountInfo, Pending, Frontier, ConfirmationHeight, Unchecked,
	Peers, OnlineWeightSamples, VoteCache, DatabaseVersion,
)
