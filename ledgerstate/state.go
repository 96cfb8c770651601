// Package ledgerstate ties the lower layers (dust, replay, merkletree)
// together into the ledger's composite root state, and implements the
// transaction-level state-transition function: well-formedness
// checking, segment-by-segment application, post-block bookkeeping, and
// the privileged system transactions that don't flow through the
// regular user-transaction pipeline.
//
// Grounded on the teacher's domain/consensus package: a single
// "virtual state" composite struct mutated by an ordered sequence of
// rule checks (blockdag's checkBlockSanity-style validators), and on
// original_source/ledger/src/semantics.rs for the exact check ordering
// and apply-dispatch semantics.
package ledgerstate

import (
	"github.com/duskchain/ledgercore/dust"
	"github.com/duskchain/ledgercore/merkletree"
	"github.com/duskchain/ledgercore/replay"
	"github.com/duskchain/ledgercore/units"
)

// ShieldedPool is the zswap-facing half of the composite state: a
// commitment tree and nullifier set for shielded coins, structurally
// identical to dust.UtxoState since both are "append commitment, record
// nullifier" resource models.
type ShieldedPool struct {
	Commitments         *merkletree.Tree
	CommitmentsFirstFree uint64
	Nullifiers           map[[32]byte]bool
	RootHistory          *merkletree.TimeFilterMap[merkletree.Hash]
}

func lessHash32(a, b [32]byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// NewShieldedPool returns an empty depth-32 shielded pool.
func NewShieldedPool() *ShieldedPool {
	return &ShieldedPool{
		Commitments: merkletree.New(32),
		Nullifiers:  make(map[[32]byte]bool),
		RootHistory: merkletree.NewTimeFilterMap[merkletree.Hash](lessHash32),
	}
}

// FeePrices holds the current per-unit fee rates the PI controller
// adjusts at every block boundary, one per token this ledger charges
// fees in (Dust being the only fee-payment token today).
type FeePrices struct {
	DustPerUnit units.U128
}

// Parameters bundles every tunable the state-transition function reads.
type Parameters struct {
	Dust dust.DustParameters

	// GlobalTTL bounds both intent replay-protection windows and how
	// long historic Merkle roots remain acceptable.
	GlobalTTL merkletree.Timestamp

	// BlockFullnessLimit caps the normalized [0,1] fullness figure
	// post_block_update will accept before failing the block outright.
	BlockFullnessLimit float64

	// FeeControllerMinRatio and FeeControllerGainA parametrize the
	// PI-style fee-price update: prices move by at most GainA per block
	// and never drop below MinRatio of the previous price.
	FeeControllerMinRatio float64
	FeeControllerGainA    float64
}

// DefaultParameters are the protocol's genesis defaults.
var DefaultParameters = Parameters{
	Dust:                  dust.InitialDustParameters,
	GlobalTTL:             merkletree.Timestamp(86400),
	BlockFullnessLimit:    1.0,
	FeeControllerMinRatio: 0.5,
	FeeControllerGainA:    0.1,
}

// State is the ledger's composite root: every resource model a
// transaction can touch, plus the replay-protection and fee-price
// bookkeeping that spans all of them.
type State struct {
	Dust     *dust.State
	Shielded *ShieldedPool
	Replay   *replay.State
	Params   Parameters
	Fees     FeePrices

	// TBlock is the logical time of the last applied block, used to
	// bound registration/offer time arguments and as the reference
	// point for TTL expiry.
	TBlock merkletree.Timestamp

	// NightBalances is the unshielded Night ledger: a plain
	// address-keyed balance map, the simplest possible representation
	// for the one thing ClaimRewards transactions and system
	// transactions actually need to move value into (everything else in
	// this package models shielded/Dust resources as Merkle-tree UTXOs,
	// but Night's own unshielded movement is out of C7's described
	// scope beyond "a new UTXO of value X owned by addr").
	NightBalances map[[32]byte]units.U128
}

// New returns a fresh, empty ledger state under the given parameters.
func New(params Parameters) *State {
	return &State{
		Dust:          dust.NewState(params.Dust),
		Shielded:      NewShieldedPool(),
		Replay:        replay.New(params.GlobalTTL),
		Params:        params,
		Fees:          FeePrices{DustPerUnit: units.FromUint64(1)},
		NightBalances: make(map[[32]byte]units.U128),
	}
}

// Apply mutates State in place rather than threading immutable
// snapshots through at the top level, matching dust.State's own
// ApplySpend/ApplyRegistration/ApplyNightOffer shape (each mutates its
// receiver and returns an event). Per segment, though, ApplyTransaction
// does not mutate s directly at all: it runs the segment against a
// dust.State/replay.State clone (see dust.State.Clone, replay.State.Clone)
// and only assigns the clone back onto s once every step in that
// segment has succeeded. A failing segment therefore never leaves a
// partial mutation visible on s — callers see either (s unchanged,
// Failure) for that segment, or (s mutated, Success), never a state
// that reflects only some of a failed segment's steps.
