package ledgerstate

import (
	"github.com/pkg/errors"

	"github.com/duskchain/ledgercore/txn"
	"github.com/duskchain/ledgercore/units"
)

// ErrInsufficientClaimable is returned when a ClaimRewards transaction
// requests more than its pool has remaining for the claiming owner.
type ErrInsufficientClaimable struct {
	Requested units.U128
	Claimable units.U128
}

func (e *ErrInsufficientClaimable) Error() string {
	return errors.Errorf("ledgerstate: insufficient claimable: requested %s, claimable %s",
		e.Requested.String(), e.Claimable.String()).Error()
}

// ClaimableBalances tracks the per-owner claimable amount for each
// claim kind a ClaimRewards transaction can draw against: unclaimed
// block rewards, and bridge_receiving for Cardano-bridge claims.
type ClaimableBalances struct {
	UnclaimedRewards map[[32]byte]units.U128
	BridgeReceiving  map[[32]byte]units.U128
}

// NewClaimableBalances returns an empty tracker.
func NewClaimableBalances() *ClaimableBalances {
	return &ClaimableBalances{
		UnclaimedRewards: make(map[[32]byte]units.U128),
		BridgeReceiving:  make(map[[32]byte]units.U128),
	}
}

// ApplyClaimRewards applies a KindClaimRewards transaction: it fails
// with ErrInsufficientClaimable if tx.ClaimValue exceeds what the
// claiming owner has available in the matching pool, otherwise debits
// the pool and credits a fresh Night balance to tx.ClaimOwner.
func ApplyClaimRewards(s *State, claims *ClaimableBalances, tx *txn.Transaction) error {
	if tx.Kind != txn.KindClaimRewards {
		return errors.New("ledgerstate: ApplyClaimRewards requires a ClaimRewards transaction")
	}

	var pool map[[32]byte]units.U128
	switch tx.Claim {
	case txn.ClaimReward:
		pool = claims.UnclaimedRewards
	case txn.ClaimCardanoBridge:
		pool = claims.BridgeReceiving
	default:
		return errors.Errorf("ledgerstate: unknown claim kind %d", tx.Claim)
	}

	requested := units.FromUint64(tx.ClaimValue)
	available := pool[tx.ClaimOwner]
	if available.LessThan(requested) {
		return &ErrInsufficientClaimable{Requested: requested, Claimable: available}
	}

	pool[tx.ClaimOwner] = available.Sub(requested)
	s.NightBalances[tx.ClaimOwner] = s.NightBalances[tx.ClaimOwner].Add(requested)
	return nil
}
