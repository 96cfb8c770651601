// Package events defines the ledger's event log: the append-only
// record of every state mutation, and the replay machinery wallets and
// other local-state holders use to deterministically reconstruct their
// view of the chain from that log alone.
//
// Grounded on the teacher's notification/event dispatch idiom
// (domain/consensus emits typed notifications per state change) and on
// the Merkle-insertion-ordering invariant carried over from dust.rs's
// replay_events.
package events

import (
	"github.com/pkg/errors"

	"github.com/duskchain/ledgercore/dust"
	"github.com/duskchain/ledgercore/merkletree"
	"github.com/duskchain/ledgercore/units"
)

// Source identifies where an event came from: which transaction, and
// which logical/physical segment of it.
type Source struct {
	TransactionHash [32]byte
	LogicalSegment  uint16
	PhysicalSegment uint16
}

// Kind enumerates the event variants. New variants may be added over
// time; unrecognized kinds are skipped during replay rather than
// rejected, so older wallets keep working against newer chains.
type Kind int

const (
	KindUnknown Kind = iota
	KindZswapInput
	KindZswapOutput
	KindContractDeploy
	KindContractLog
	KindDustSpendProcessed
	KindDustInitialUtxo
	KindDustGenerationDtimeUpdate
	KindParamChange
)

// Event is one entry in the ledger's event log.
type Event struct {
	Source    Source
	Kind      Kind
	BlockTime merkletree.Timestamp

	// Payloads: exactly one is populated, selected by Kind. Unknown
	// events carry no payload and are preserved only for bookkeeping
	// during a heterogeneous replay.
	ZswapInput                *ZswapInputPayload
	ZswapOutput               *ZswapOutputPayload
	ContractDeploy            *ContractDeployPayload
	ContractLog               *ContractLogPayload
	DustSpendProcessed        *dust.SpendEvent
	DustInitialUtxo           *DustInitialUtxoPayload
	DustGenerationDtimeUpdate *dust.DtimeUpdateEvent
	ParamChange               *ParamChangePayload
}

// ZswapInputPayload records a shielded input's nullifier.
type ZswapInputPayload struct {
	Nullifier [32]byte
}

// ZswapOutputPayload records a shielded output's commitment and its
// Merkle index.
type ZswapOutputPayload struct {
	Commitment [32]byte
	MTIndex    uint64
}

// ContractDeployPayload records a new contract's address and state
// commitment.
type ContractDeployPayload struct {
	Address [32]byte
	State   [32]byte
}

// ContractLogPayload records one opaque log entry emitted by a
// contract call.
type ContractLogPayload struct {
	Address [32]byte
	Data    []byte
}

// DustInitialUtxoPayload records a freshly minted generation-tree entry
// (from ApplyNightOffer's zero-value mint or a registration's
// proportional mint) — the generation lineage a spendable Dust UTXO is
// later derived from, not yet a spendable commitment itself.
type DustInitialUtxoPayload struct {
	Value   units.U128
	OwnerPK dust.DustPublicKey
	Nonce   dust.InitialNonce
	Index   uint64
}

// ParamChangePayload records a system-transaction parameter overwrite.
type ParamChangePayload struct {
	Field    string
	OldValue []byte
	NewValue []byte
}

// NonLinearInsertionError is returned during replay when a Merkle
// insertion event's index does not match the tree's expected next free
// slot.
type NonLinearInsertionError struct {
	TreeName string
	Expected uint64
	Received uint64
}

func (e *NonLinearInsertionError) Error() string {
	return errors.Errorf("events: non-linear insertion into %s: expected %d, received %d",
		e.TreeName, e.Expected, e.Received).Error()
}

// ErrNonMonotoneTime is returned during replay when an event's
// BlockTime is older than the replayer's already-synced time.
var ErrNonMonotoneTime = errors.New("events: block time is not monotone with synced state")

// ReplayState is the local, replay-reconstructed view of the ledger a
// wallet or other light client rebuilds purely from the event stream:
// the free-slot counters for every Merkle tree it tracks insertions
// into, plus the generation-lineage index map, mirroring
// DustLocalState's (generating_tree, commitment_tree, night_indices)
// reconstruction target.
type ReplayState struct {
	SyncedTime                   merkletree.Timestamp
	ShieldedCommitmentsFirstFree uint64
	DustCommitmentsFirstFree     uint64
	DustGenerationFirstFree      uint64
	NightIndices                 map[dust.InitialNonce]uint64
}

// NewReplayState returns an empty ReplayState, ready to replay an event
// stream from the beginning of time.
func NewReplayState() *ReplayState {
	return &ReplayState{NightIndices: make(map[dust.InitialNonce]uint64)}
}

// ReplayEvents folds evts into s in order, reconstructing s's indices
// exactly as the ledger-side Apply that produced them would have
// advanced its own trees. It enforces the two replay invariants:
// Merkle tree insertions must be linear (the event's index must equal
// the tracked tree's next free slot, else a *NonLinearInsertionError),
// and event times must be monotone non-decreasing (else
// ErrNonMonotoneTime). Events of a kind ReplayState does not recognize
// are skipped rather than rejected, so a wallet built against an older
// event taxonomy keeps working against a chain that has since added
// new event kinds.
func ReplayEvents(s *ReplayState, evts []Event) error {
	for _, e := range evts {
		if e.BlockTime < s.SyncedTime {
			return ErrNonMonotoneTime
		}

		switch e.Kind {
		case KindZswapOutput:
			if e.ZswapOutput == nil {
				break
			}
			if e.ZswapOutput.MTIndex != s.ShieldedCommitmentsFirstFree {
				return &NonLinearInsertionError{
					TreeName: "shielded-commitments",
					Expected: s.ShieldedCommitmentsFirstFree,
					Received: e.ZswapOutput.MTIndex,
				}
			}
			s.ShieldedCommitmentsFirstFree++

		case KindDustSpendProcessed:
			if e.DustSpendProcessed == nil {
				break
			}
			if e.DustSpendProcessed.CommitmentIndex != s.DustCommitmentsFirstFree {
				return &NonLinearInsertionError{
					TreeName: "dust-commitments",
					Expected: s.DustCommitmentsFirstFree,
					Received: e.DustSpendProcessed.CommitmentIndex,
				}
			}
			s.DustCommitmentsFirstFree++

		case KindDustInitialUtxo:
			if e.DustInitialUtxo == nil {
				break
			}
			if e.DustInitialUtxo.Index != s.DustGenerationFirstFree {
				return &NonLinearInsertionError{
					TreeName: "dust-generation",
					Expected: s.DustGenerationFirstFree,
					Received: e.DustInitialUtxo.Index,
				}
			}
			s.DustGenerationFirstFree++
			s.NightIndices[e.DustInitialUtxo.Nonce] = e.DustInitialUtxo.Index

		case KindZswapInput, KindContractDeploy, KindContractLog, KindDustGenerationDtimeUpdate, KindParamChange:
			// No tree-insertion ordering to enforce for these kinds.

		default:
			// Unknown kind: skip entirely.
		}

		s.SyncedTime = e.BlockTime
	}
	return nil
}
