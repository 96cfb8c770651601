package txn

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/duskchain/ledgercore/cryptoprim"
	"github.com/duskchain/ledgercore/dust"
)

// NetworkID distinguishes mainnet from the various test networks, the
// way the teacher's wire protocol tags every message with a network
// magic.
type NetworkID uint8

// SegmentID identifies one of a transaction's parallel intents.
// Segment 0 is reserved for replay-protection and fee settlement and
// may never carry a user intent.
type SegmentID uint16

// ReservedSegment is the segment id well-formedness forbids placing a
// user intent at.
const ReservedSegment SegmentID = 0

// Signature is an opaque signature blob; SignatureErased transactions
// carry none.
type Signature []byte

// Proof is an opaque zero-knowledge proof blob.
type Proof []byte

// ShieldedOffer is an opaque zswap offer; its internal structure is out
// of this package's scope (see the zswap-facing packages this ledger
// would otherwise carry).
type ShieldedOffer struct {
	Payload []byte
}

// Intent is one segment's worth of a transaction: its declared TTL,
// dust actions, unshielded offer, contract actions, and (once present)
// signature and proofs. Fields beyond what txn's own operations need
// are represented as opaque payloads.
type Intent struct {
	TTL              int64
	DustSpends       []dust.DustNullifier
	DustRegistrations []DustRegistration
	UnshieldedOffer  []byte
	ContractActions  []byte
	Signature        Signature
	Proofs           []Proof
}

// DustRegistration is one signed registration action within an intent.
type DustRegistration struct {
	NightAddress    [32]byte
	DustPK          *dust.DustPublicKey
	AllowFeePayment uint64
	Sig             Signature
}

// Clone returns a deep copy of the intent.
func (i Intent) Clone() Intent {
	out := i
	out.DustSpends = append([]dust.DustNullifier(nil), i.DustSpends...)
	out.DustRegistrations = append([]DustRegistration(nil), i.DustRegistrations...)
	out.UnshieldedOffer = append([]byte(nil), i.UnshieldedOffer...)
	out.ContractActions = append([]byte(nil), i.ContractActions...)
	out.Signature = append(Signature(nil), i.Signature...)
	out.Proofs = make([]Proof, len(i.Proofs))
	for idx, p := range i.Proofs {
		out.Proofs[idx] = append(Proof(nil), p...)
	}
	return out
}

// TransactionKind distinguishes the two transaction shapes.
type TransactionKind int

const (
	// KindStandard is a user-submitted transaction with intents and
	// zswap offers.
	KindStandard TransactionKind = iota
	// KindClaimRewards is a privileged claim against the reward or
	// Cardano bridge pool.
	KindClaimRewards
)

// ClaimKind distinguishes reward claims from bridge claims.
type ClaimKind int

const (
	// ClaimReward draws from the block reward pool.
	ClaimReward ClaimKind = iota
	// ClaimCardanoBridge draws from the Cardano bridge pool.
	ClaimCardanoBridge
)

// Transaction is the top-level envelope, marker-tagged along the
// signature/proof/binding axes. Only one of the Standard-shaped or
// ClaimRewards-shaped field groups is populated, selected by Kind.
type Transaction struct {
	Kind      TransactionKind
	Signature SignatureState
	ProofM    ProofState
	Binding   BindingState

	// Standard fields.
	NetworkID        NetworkID
	Intents          map[SegmentID]Intent
	GuaranteedCoins   *ShieldedOffer
	FallibleCoins     map[SegmentID]ShieldedOffer
	BindingRandomness cryptoprim.TransientHash

	// ClaimRewards fields.
	ClaimValue     uint64
	ClaimOwner     [32]byte
	ClaimNonce     [32]byte
	ClaimSignature Signature
	Claim          ClaimKind
}

// NewStandard constructs an Unproven/Signed/PreBinding Standard
// transaction, the entry point every builder starts from before
// proving and sealing it.
func NewStandard(networkID NetworkID, intents map[SegmentID]Intent, guaranteed *ShieldedOffer, fallible map[SegmentID]ShieldedOffer) (*Transaction, error) {
	if err := validateMarkers(Unproven, PreBinding); err != nil {
		return nil, err
	}
	return &Transaction{
		Kind:            KindStandard,
		Signature:       Signed,
		ProofM:          Unproven,
		Binding:         PreBinding,
		NetworkID:       networkID,
		Intents:         intents,
		GuaranteedCoins: guaranteed,
		FallibleCoins:   fallible,
	}, nil
}

// ProvingProvider abstracts over the (possibly remote, possibly
// parallel) proof-generation backend: one call per proof preimage.
type ProvingProvider interface {
	Prove(preimage []byte, costModel []byte) (Proof, error)
}

// Prove transitions an Unproven/PreBinding-or-Binding transaction to
// Proven, invoking provider once per intent's declared proof preimages
// (here represented directly as the Proofs slots pending generation).
func (t *Transaction) Prove(provider ProvingProvider, costModel []byte) (*Transaction, error) {
	if t.ProofM != Unproven {
		return nil, errors.New("txn: Prove requires an Unproven transaction")
	}
	out := t.cloneShallow()
	for seg, intent := range out.Intents {
		proved := make([]Proof, len(intent.Proofs))
		for i, preimage := range intent.Proofs {
			p, err := provider.Prove(preimage, costModel)
			if err != nil {
				return nil, errors.Wrapf(err, "txn: prove segment %d proof %d", seg, i)
			}
			proved[i] = p
		}
		intent.Proofs = proved
		out.Intents[seg] = intent
	}
	out.ProofM = Proven
	return out, nil
}

// MockProve is Prove's test-only counterpart: it produces fixed stub
// proofs and additionally advances the transaction directly to Binding,
// skipping the separate Seal step (matching the spec's "same shape but
// produces stub proofs and advances to Binding").
func (t *Transaction) MockProve() (*Transaction, error) {
	if t.ProofM != Unproven {
		return nil, errors.New("txn: MockProve requires an Unproven transaction")
	}
	out := t.cloneShallow()
	for seg, intent := range out.Intents {
		stub := make([]Proof, len(intent.Proofs))
		for i := range intent.Proofs {
			stub[i] = Proof([]byte("mock-proof"))
		}
		intent.Proofs = stub
		out.Intents[seg] = intent
	}
	out.ProofM = Proven
	out.Binding = Binding
	return out, nil
}

// RandSource supplies randomness for Seal's binding generator.
type RandSource func(n int) ([]byte, error)

// Seal commits the binding Pedersen generator, transitioning
// PreBinding to Binding. It is a no-op error for anything already
// bound or proof-erased.
func (t *Transaction) Seal(rng RandSource) (*Transaction, error) {
	if t.Binding != PreBinding {
		return nil, errors.New("txn: Seal requires a PreBinding transaction")
	}
	randomness, err := rng(32)
	if err != nil {
		return nil, errors.Wrap(err, "txn: seal")
	}
	out := t.cloneShallow()
	copy(out.BindingRandomness[:], randomness)
	out.Binding = Binding
	return out, nil
}

// EraseProofs is a lossy, idempotent projection dropping all proofs
// and moving to NoBinding (a proof-erased transaction can no longer be
// meaningfully bound).
func (t *Transaction) EraseProofs() *Transaction {
	out := t.cloneShallow()
	for seg, intent := range out.Intents {
		intent.Proofs = nil
		out.Intents[seg] = intent
	}
	out.ProofM = ProofErased
	out.Binding = NoBinding
	return out
}

// EraseSignatures is a lossy, idempotent projection dropping all
// signatures.
func (t *Transaction) EraseSignatures() *Transaction {
	out := t.cloneShallow()
	for seg, intent := range out.Intents {
		intent.Signature = nil
		for i := range intent.DustRegistrations {
			intent.DustRegistrations[i].Sig = nil
		}
		out.Intents[seg] = intent
	}
	out.Signature = SignatureErased
	out.ClaimSignature = nil
	return out
}

// Merge combines t with other, only defined for identically-marked
// Standard transactions with disjoint segment ids and no duplicate
// intents.
func (t *Transaction) Merge(other *Transaction) (*Transaction, error) {
	if t.Kind != KindStandard || other.Kind != KindStandard {
		return nil, errors.New("txn: merge only defined for Standard transactions")
	}
	if t.Signature != other.Signature || t.ProofM != other.ProofM || t.Binding != other.Binding {
		return nil, errors.New("txn: merge requires identically-marked transactions")
	}
	if t.NetworkID != other.NetworkID {
		return nil, errors.New("txn: merge requires matching network id")
	}
	for seg := range other.Intents {
		if _, collide := t.Intents[seg]; collide {
			return nil, errors.Errorf("txn: merge: segment %d present in both transactions", seg)
		}
	}

	out := t.cloneShallow()
	for seg, intent := range other.Intents {
		out.Intents[seg] = intent.Clone()
	}
	if out.GuaranteedCoins == nil {
		out.GuaranteedCoins = other.GuaranteedCoins
	} else if other.GuaranteedCoins != nil {
		return nil, errors.New("txn: merge: guaranteed coins present in both transactions")
	}
	for seg, offer := range other.FallibleCoins {
		if _, collide := out.FallibleCoins[seg]; collide {
			return nil, errors.Errorf("txn: merge: fallible offer at segment %d present in both transactions", seg)
		}
		out.FallibleCoins[seg] = offer
	}
	return out, nil
}

// TransactionHash returns the canonical hash of t, defined only once
// the transaction is fully proven, signed, and bound.
func (t *Transaction) TransactionHash() (cryptoprim.PersistentHash, error) {
	if t.Signature != Signed || t.ProofM != Proven || t.Binding != Binding {
		return cryptoprim.PersistentHash{}, errors.New("txn: transaction_hash requires Signed/Proven/Binding")
	}
	segments := make([]int, 0, len(t.Intents))
	for seg := range t.Intents {
		segments = append(segments, int(seg))
	}
	sort.Ints(segments)

	parts := [][]byte{{byte(t.NetworkID)}, t.BindingRandomness[:]}
	for _, seg := range segments {
		intent := t.Intents[SegmentID(seg)]
		parts = append(parts, []byte{byte(seg), byte(seg >> 8)}, intent.UnshieldedOffer, intent.ContractActions, intent.Signature)
		for _, p := range intent.Proofs {
			parts = append(parts, p)
		}
	}
	return cryptoprim.HashPersistent("transaction", parts...), nil
}

func (t *Transaction) cloneShallow() *Transaction {
	out := *t
	out.Intents = make(map[SegmentID]Intent, len(t.Intents))
	for seg, intent := range t.Intents {
		out.Intents[seg] = intent.Clone()
	}
	out.FallibleCoins = make(map[SegmentID]ShieldedOffer, len(t.FallibleCoins))
	for seg, offer := range t.FallibleCoins {
		out.FallibleCoins[seg] = offer
	}
	return &out
}
