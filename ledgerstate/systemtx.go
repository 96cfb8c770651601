package ledgerstate

import (
	"github.com/pkg/errors"

	"github.com/duskchain/ledgercore/dust"
	"github.com/duskchain/ledgercore/events"
	"github.com/duskchain/ledgercore/merkletree"
	"github.com/duskchain/ledgercore/units"
)

// SystemTransactionKind enumerates the privileged, non-user-originated
// transactions a block producer may include, each with its own
// pool-accounting invariant rather than the balancing check that
// governs Standard transactions.
type SystemTransactionKind int

const (
	SysRewardDistribution SystemTransactionKind = iota
	SysCardanoBridge
	SysTreasuryPayout
	SysParameterOverwrite
	SysNightGeneratesDustUpdate
	SysReservePoolDistribution
)

// ErrBasisPointsOutOfRange is returned when a parameter overwrite
// declares a basis-points value above 10,000 (100%).
var ErrBasisPointsOutOfRange = errors.New("ledgerstate: basis points must be <= 10000")

// ErrPoolExhausted is returned when a system transaction would draw
// more value from a fixed pool than it has remaining.
var ErrPoolExhausted = errors.New("ledgerstate: system transaction exceeds remaining pool balance")

// RewardPool tracks the four fixed-supply pools system transactions draw
// against: block rewards, the Cardano bridge's locked balance, the
// treasury, and the reserve. Each
// debit is checked against the remaining balance so total issuance
// never exceeds what the pool was seeded with (the Night-supply
// invariant system transactions must preserve).
type RewardPool struct {
	RewardRemaining       units.U128
	CardanoBridgeRemaining units.U128
	TreasuryRemaining      units.U128
	ReserveRemaining       units.U128
}

// SystemTransaction is the privileged counterpart to txn.Transaction:
// it carries no intents, signatures, or proofs, only the kind and a
// kind-specific payload, since it originates from the block producer's
// own protocol logic rather than from a user submission.
type SystemTransaction struct {
	Kind SystemTransactionKind

	RewardTo    [32]byte
	RewardValue units.U128

	BridgeTo    [32]byte
	BridgeValue units.U128

	TreasuryTo    [32]byte
	TreasuryValue units.U128

	ParamField string
	BasisPoints uint32

	NightGenerationUpdates []NightOutputValue

	ReserveTo    [32]byte
	ReserveValue units.U128
}

// NightOutputValue names one Night output a bulk "Night generates
// Dust" update applies to, paired with the value used to recompute its
// generation-tree entry (e.g. after a protocol-wide ratio change).
type NightOutputValue struct {
	Nonce dust.InitialNonce
	Value units.U128
}

// ApplySystemTransaction applies one privileged system transaction to
// s, returning the events it produced. Each kind enforces its own
// pool-accounting invariant before mutating anything: a system
// transaction that would overdraw its pool is rejected outright, never
// partially applied.
func ApplySystemTransaction(s *State, pool *RewardPool, tx SystemTransaction, blockTime merkletree.Timestamp) ([]events.Event, error) {
	switch tx.Kind {
	case SysRewardDistribution:
		if pool.RewardRemaining.LessThan(tx.RewardValue) {
			return nil, ErrPoolExhausted
		}
		pool.RewardRemaining = pool.RewardRemaining.Sub(tx.RewardValue)
		return nil, nil

	case SysCardanoBridge:
		if pool.CardanoBridgeRemaining.LessThan(tx.BridgeValue) {
			return nil, ErrPoolExhausted
		}
		pool.CardanoBridgeRemaining = pool.CardanoBridgeRemaining.Sub(tx.BridgeValue)
		return nil, nil

	case SysTreasuryPayout:
		if pool.TreasuryRemaining.LessThan(tx.TreasuryValue) {
			return nil, ErrPoolExhausted
		}
		pool.TreasuryRemaining = pool.TreasuryRemaining.Sub(tx.TreasuryValue)
		return nil, nil

	case SysParameterOverwrite:
		if tx.BasisPoints > 10_000 {
			return nil, ErrBasisPointsOutOfRange
		}
		old, err := applyParamOverwrite(s, tx.ParamField, tx.BasisPoints)
		if err != nil {
			return nil, err
		}
		return []events.Event{{
			Kind:      events.KindParamChange,
			BlockTime: blockTime,
			ParamChange: &events.ParamChangePayload{
				Field:    tx.ParamField,
				OldValue: []byte{byte(old), byte(old >> 8)},
				NewValue: []byte{byte(tx.BasisPoints), byte(tx.BasisPoints >> 8)},
			},
		}}, nil

	case SysNightGeneratesDustUpdate:
		for _, u := range tx.NightGenerationUpdates {
			if err := s.Dust.UpdateGenerationValue(u.Nonce, u.Value); err != nil {
				return nil, errors.Wrap(err, "ledgerstate: night-generates-dust update")
			}
		}
		return nil, nil

	case SysReservePoolDistribution:
		if pool.ReserveRemaining.LessThan(tx.ReserveValue) {
			return nil, ErrPoolExhausted
		}
		pool.ReserveRemaining = pool.ReserveRemaining.Sub(tx.ReserveValue)
		return nil, nil

	default:
		return nil, errors.Errorf("ledgerstate: unknown system transaction kind %d", tx.Kind)
	}
}

// applyParamOverwrite dispatches a basis-points parameter change by
// field name, returning the previous value for the emitted ParamChange
// event. Only the fields this ledger actually carries as basis-points
// knobs are settable; anything else is a no-op returning an error,
// matching the teacher's pattern of an explicit switch over a small,
// closed set of mutable consensus parameters.
func applyParamOverwrite(s *State, field string, basisPoints uint32) (uint32, error) {
	switch field {
	case "fee_controller_min_ratio_bps":
		old := uint32(s.Params.FeeControllerMinRatio * 10_000)
		s.Params.FeeControllerMinRatio = float64(basisPoints) / 10_000
		return old, nil
	case "fee_controller_gain_a_bps":
		old := uint32(s.Params.FeeControllerGainA * 10_000)
		s.Params.FeeControllerGainA = float64(basisPoints) / 10_000
		return old, nil
	default:
		return 0, errors.Errorf("ledgerstate: unknown parameter overwrite field %q", field)
	}
}
