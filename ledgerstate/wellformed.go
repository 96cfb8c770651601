package ledgerstate

import (
	"github.com/pkg/errors"

	"github.com/duskchain/ledgercore/merkletree"
	"github.com/duskchain/ledgercore/txn"
)

// Strictness independently toggles each class of expensive or
// context-dependent check, mirroring the teacher's habit of gating
// costly validation behind a flags struct passed down from the caller
// (e.g. domain/consensus's BlockValidator flags).
type Strictness struct {
	EnforceBalancing      bool
	VerifyNativeProofs    bool
	VerifyContractProofs  bool
	EnforceLimits         bool
	VerifySignatures      bool
}

// StrictAll is the default: every check enabled.
var StrictAll = Strictness{
	EnforceBalancing:     true,
	VerifyNativeProofs:   true,
	VerifyContractProofs: true,
	EnforceLimits:        true,
	VerifySignatures:     true,
}

// Errors named after the specific well-formedness failure they signal,
// so callers can distinguish them with errors.Is without parsing
// strings.
var (
	ErrReservedSegmentUsed              = errors.New("ledgerstate: intent present at reserved segment 0")
	ErrBindingCommitmentMismatch        = errors.New("ledgerstate: binding commitment inconsistent across components")
	ErrInvalidShieldedOffer             = errors.New("ledgerstate: shielded offer internally invalid")
	ErrIntentNotWellFormed              = errors.New("ledgerstate: intent not well-formed")
	ErrGuaranteedInFallibleContext      = errors.New("ledgerstate: guaranteed-context claim found in a fallible transcript")
	ErrFallibleInGuaranteedContext      = errors.New("ledgerstate: fallible-context claim found in the guaranteed transcript")
	ErrRealCallsSubsetCheckFailed       = errors.New("ledgerstate: real contract calls do not equal the set declared by claims")
	ErrUnbalanced                       = errors.New("ledgerstate: segment does not balance to zero")
	ErrInsufficientFeePrice             = errors.New("ledgerstate: fee computation failed under current fee prices")
	ErrDustActionOutsideGracePeriod     = errors.New("ledgerstate: dust action's declared time is outside the grace-period window")
)

// ShieldedOfferChecker validates a ShieldedOffer's internal
// zero-knowledge structure (input/output proofs, range proofs,
// commitment-consistency) without touching ledger state. The VM/proof
// layer it wraps is out of this package's scope; callers inject the
// real checker (or a permissive stub in tests).
type ShieldedOfferChecker interface {
	CheckOffer(offer *txn.ShieldedOffer, verifyProofs bool) error
}

// ContractEffectsChecker validates sequencing and effects rules (checks
// 5 and 6) against the real calls a contract VM run actually produced.
// Like ShieldedOfferChecker, the VM itself is out of scope; this is the
// seam a real execution engine plugs into.
type ContractEffectsChecker interface {
	// CheckSequencing verifies every guaranteed-context claim appears in
	// a guaranteed transcript and every fallible claim in a fallible one.
	CheckSequencing(intent *txn.Intent, segment txn.SegmentID) error
	// CheckEffects verifies the real contract calls made by intent's
	// actions exactly equal the set its claim opcodes declared.
	CheckEffects(intent *txn.Intent, segment txn.SegmentID) error
}

// BalanceChecker verifies per-segment token conservation (check 7):
// sum(inputs)+rewards-sum(outputs)-fees == 0 for every token type, with
// segment 0 folding in every other segment's fees.
type BalanceChecker interface {
	CheckBalance(tx *txn.Transaction, fees FeePrices) error
}

// Checkers bundles the pluggable validators WellFormed needs beyond
// what this package implements directly.
type Checkers struct {
	Shielded ShieldedOfferChecker
	Effects  ContractEffectsChecker
	Balance  BalanceChecker
}

// WellFormed runs the ordered sequence of well-formedness checks
// against tx, using refState as the reference point for replay
// protection and dust availability, and ctx for the out-of-band Dust
// spend data (declared times) the wire transaction doesn't carry
// directly. It returns the first failing check's error, or nil if tx
// passes all of them.
func WellFormed(tx *txn.Transaction, refState *State, strictness Strictness, tblock int64, checkers Checkers, ctx ApplyContext) error {
	if tx.Kind != txn.KindStandard {
		// System/claim transactions have their own validation path
		// (see ApplySystemTransaction); WellFormed only governs
		// standard user transactions.
		return nil
	}

	// (1) segment-id well-formation: no intent at the reserved segment.
	if _, reserved := tx.Intents[txn.ReservedSegment]; reserved {
		return ErrReservedSegmentUsed
	}

	// (2) binding commitment consistency.
	if tx.Binding == txn.Binding {
		var zero [32]byte
		if tx.BindingRandomness == zero {
			return ErrBindingCommitmentMismatch
		}
	}

	// (3) Zswap offer internal validity.
	if checkers.Shielded != nil {
		if tx.GuaranteedCoins != nil {
			if err := checkers.Shielded.CheckOffer(tx.GuaranteedCoins, strictness.VerifyNativeProofs); err != nil {
				return errors.Wrap(ErrInvalidShieldedOffer, err.Error())
			}
		}
		for seg, offer := range tx.FallibleCoins {
			offer := offer
			if err := checkers.Shielded.CheckOffer(&offer, strictness.VerifyNativeProofs); err != nil {
				return errors.Wrapf(ErrInvalidShieldedOffer, "segment %d: %s", seg, err)
			}
		}
	}

	for seg, intent := range tx.Intents {
		// (4) per-intent well-formedness: signatures, actions, dust
		// actions, TTL window.
		if strictness.VerifySignatures && tx.Signature == txn.Signed && len(intent.Signature) == 0 {
			return errors.Wrapf(ErrIntentNotWellFormed, "segment %d: missing signature", seg)
		}
		if intent.TTL < tblock {
			return errors.Wrapf(ErrIntentNotWellFormed, "segment %d: ttl already expired", seg)
		}
		seenRegistration := make(map[[32]byte]bool, len(intent.DustRegistrations))
		for _, r := range intent.DustRegistrations {
			if seenRegistration[r.NightAddress] {
				return errors.Wrapf(ErrIntentNotWellFormed, "segment %d: duplicate dust registration", seg)
			}
			seenRegistration[r.NightAddress] = true
		}

		// Every Dust action's declared time must fall within the
		// grace-period window ending at the current block:
		// tblock - dust_grace_period <= ctime <= tblock.
		gracePeriod := refState.Params.Dust.DustGracePeriod
		blockTime := merkletree.Timestamp(tblock)
		for _, req := range ctx.DustSpends[seg] {
			if req.DeclaredTime > blockTime || req.DeclaredTime < blockTime-gracePeriod {
				return errors.Wrapf(ErrDustActionOutsideGracePeriod, "segment %d: ctime %d outside [%d,%d]",
					seg, req.DeclaredTime, blockTime-gracePeriod, blockTime)
			}
		}

		// (5) sequencing and (6) effects, delegated to the injected
		// contract-effects checker.
		if checkers.Effects != nil {
			intentCopy := intent
			if err := checkers.Effects.CheckSequencing(&intentCopy, seg); err != nil {
				return err
			}
			if err := checkers.Effects.CheckEffects(&intentCopy, seg); err != nil {
				return errors.Wrapf(ErrRealCallsSubsetCheckFailed, "segment %d: %s", seg, err)
			}
		}
	}

	// (7) balancing.
	if strictness.EnforceBalancing && checkers.Balance != nil {
		if err := checkers.Balance.CheckBalance(tx, refState.Fees); err != nil {
			return errors.Wrap(ErrUnbalanced, err.Error())
		}
	}

	// (8) fee computation under current fee prices is folded into
	// balancing above: a BalanceChecker implementation is expected to
	// price fees at refState.Fees itself, since the two checks share
	// the same per-segment totals.

	return nil
}
