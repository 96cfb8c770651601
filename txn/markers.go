// Package txn implements the ledger's transaction structure: a
// Transaction is tagged along three independent axes — signature
// state, proof state, and binding state — and only certain
// combinations are well-typed. Go has no sum types to enforce this
// statically the way the original type system does, so Transaction
// carries its markers as plain fields and every constructor/transition
// validates the combination at the boundary instead.
//
// Grounded on the teacher's externalapi.DomainTransaction for the
// struct-with-Clone()-method shape, generalized to the marker algebra
// and intent/offer structure this ledger needs.
package txn

import "github.com/pkg/errors"

// SignatureState is the signature axis of a Transaction.
type SignatureState int

const (
	// Signed transactions carry real signatures over their intents.
	Signed SignatureState = iota
	// SignatureErased transactions have had their signatures projected
	// away (a lossy, idempotent operation).
	SignatureErased
)

// ProofState is the proof axis of a Transaction.
type ProofState int

const (
	// Unproven transactions have proof preimages but no proofs yet.
	Unproven ProofState = iota
	// Proven transactions carry real zero-knowledge proofs.
	Proven
	// ProofErased transactions have had their proofs projected away.
	ProofErased
)

// BindingState is the binding axis of a Transaction.
type BindingState int

const (
	// PreBinding transactions have not yet committed their binding
	// Pedersen generator.
	PreBinding BindingState = iota
	// Binding transactions have a committed binding generator and a
	// computable transaction_hash.
	Binding
	// NoBinding transactions never had one (only reachable once proofs
	// are erased, since a proof-erased transaction can no longer be
	// bound to anything meaningful).
	NoBinding
)

// ErrIllTypedMarkers is returned when a marker combination is not one
// of the allowed rows.
var ErrIllTypedMarkers = errors.New("txn: ill-typed marker combination")

// validateMarkers rejects any (signature, proof, binding) combination
// outside the allowed table:
//
//	Signatures     Proofs       Binding
//	S or SE        Unproven     PreBinding or Binding
//	S or SE        Proven       PreBinding or Binding
//	S or SE        ProofErased  NoBinding
func validateMarkers(p ProofState, b BindingState) error {
	switch p {
	case Unproven, Proven:
		if b == NoBinding {
			return ErrIllTypedMarkers
		}
	case ProofErased:
		if b != NoBinding {
			return ErrIllTypedMarkers
		}
	default:
		return ErrIllTypedMarkers
	}
	return nil
}
