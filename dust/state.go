package dust

import (
	"github.com/pkg/errors"

	"github.com/duskchain/ledgercore/cryptoprim"
	"github.com/duskchain/ledgercore/merkletree"
	"github.com/duskchain/ledgercore/units"
)

// DustSpendError enumerates the ways applying a Dust spend can fail.
type DustSpendError struct {
	Kind string
}

func (e *DustSpendError) Error() string { return "dust: spend rejected: " + e.Kind }

var (
	// ErrNullifierAlreadySpent is returned when a spend reuses an
	// already-consumed nullifier.
	ErrNullifierAlreadySpent = &DustSpendError{Kind: "NullifierAlreadySpent"}
	// ErrNightAddressNotRegistered is returned deregistering an address
	// that has no current delegation.
	ErrNightAddressNotRegistered = &DustSpendError{Kind: "NightAddressNotRegistered"}
	// ErrDuplicateRegistration is returned when an intent registers the
	// same Night key twice.
	ErrDuplicateRegistration = &DustSpendError{Kind: "DuplicateRegistration"}
)

// UtxoState is the spend-side half of the Dust engine: the commitment
// tree, its free-slot counter, the nullifier set, and historic roots.
type UtxoState struct {
	Commitments            *merkletree.Tree
	CommitmentsFirstFree    uint64
	Nullifiers              map[DustNullifier]bool
	RootHistory             *merkletree.TimeFilterMap[merkletree.Hash]
}

// NewUtxoState returns an empty UtxoState with a depth-32 commitment
// tree, matching the protocol-fixed Merkle depth.
func NewUtxoState() *UtxoState {
	return &UtxoState{
		Commitments: merkletree.New(32),
		Nullifiers:  make(map[DustNullifier]bool),
		RootHistory: merkletree.NewTimeFilterMap[merkletree.Hash](lessHash),
	}
}

// Clone returns an independent copy of u: mutating the clone's
// nullifier set or commitment tree never affects u. RootHistory is
// shared by reference since it is only ever mutated by
// ledgerstate's State.PostBlockUpdate, never by the spend path Clone exists to
// buffer.
func (u *UtxoState) Clone() *UtxoState {
	nullifiers := make(map[DustNullifier]bool, len(u.Nullifiers))
	for k, v := range u.Nullifiers {
		nullifiers[k] = v
	}
	return &UtxoState{
		Commitments:          u.Commitments.Clone(),
		CommitmentsFirstFree: u.CommitmentsFirstFree,
		Nullifiers:           nullifiers,
		RootHistory:          u.RootHistory,
	}
}

func lessHash(a, b merkletree.Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// GenerationState is the generation-side half of the Dust engine.
type GenerationState struct {
	AddressDelegation        map[NightAddress]DustPublicKey
	GeneratingTree           *merkletree.Tree
	GeneratingTreeFirstFree  uint64
	GeneratingSet            map[DustGenerationUniquenessInfo]bool
	NightIndices             map[InitialNonce]uint64
	RootHistory              *merkletree.TimeFilterMap[merkletree.Hash]
}

// NewGenerationState returns an empty GenerationState with a depth-32
// generation tree.
func NewGenerationState() *GenerationState {
	return &GenerationState{
		AddressDelegation: make(map[NightAddress]DustPublicKey),
		GeneratingTree:    merkletree.New(32),
		GeneratingSet:     make(map[DustGenerationUniquenessInfo]bool),
		NightIndices:      make(map[InitialNonce]uint64),
		RootHistory:       merkletree.NewTimeFilterMap[merkletree.Hash](lessHash),
	}
}

// Clone returns an independent copy of g: mutating the clone's
// delegation/generation-set/index maps or generating tree never affects
// g. RootHistory is shared by reference for the same reason as
// UtxoState.Clone.
func (g *GenerationState) Clone() *GenerationState {
	addressDelegation := make(map[NightAddress]DustPublicKey, len(g.AddressDelegation))
	for k, v := range g.AddressDelegation {
		addressDelegation[k] = v
	}
	generatingSet := make(map[DustGenerationUniquenessInfo]bool, len(g.GeneratingSet))
	for k, v := range g.GeneratingSet {
		generatingSet[k] = v
	}
	nightIndices := make(map[InitialNonce]uint64, len(g.NightIndices))
	for k, v := range g.NightIndices {
		nightIndices[k] = v
	}
	return &GenerationState{
		AddressDelegation:       addressDelegation,
		GeneratingTree:          g.GeneratingTree.Clone(),
		GeneratingTreeFirstFree: g.GeneratingTreeFirstFree,
		GeneratingSet:           generatingSet,
		NightIndices:            nightIndices,
		RootHistory:             g.RootHistory,
	}
}

// State is the complete on-chain Dust engine state.
type State struct {
	Utxo       *UtxoState
	Generation *GenerationState
	Params     DustParameters
}

// NewState returns a fresh Dust engine state under the given parameters.
func NewState(params DustParameters) *State {
	return &State{Utxo: NewUtxoState(), Generation: NewGenerationState(), Params: params}
}

// Clone returns an independent copy of s, used by ledgerstate.ApplyTransaction
// to buffer a segment's effects: the segment runs against the clone,
// and is only folded back into the real state once every step in the
// segment has succeeded.
func (s *State) Clone() *State {
	return &State{
		Utxo:       s.Utxo.Clone(),
		Generation: s.Generation.Clone(),
		Params:     s.Params,
	}
}

// SpendEvent mirrors DustSpendProcessed, the event emitted by ApplySpend.
type SpendEvent struct {
	Commitment      DustCommitment
	CommitmentIndex uint64
	Nullifier       DustNullifier
	VFee            units.U128
	DeclaredTime    merkletree.Timestamp
	BlockTime       merkletree.Timestamp
}

// ApplySpend consumes oldNullifier and appends newCommitment to the
// commitment tree, returning the mt_index assigned to the spend and the
// event to emit. It fails if oldNullifier has already been spent.
func (s *State) ApplySpend(oldNullifier DustNullifier, newCommitment DustCommitment, vFee units.U128, declaredTime, blockTime merkletree.Timestamp) (SpendEvent, error) {
	if s.Utxo.Nullifiers[oldNullifier] {
		return SpendEvent{}, ErrNullifierAlreadySpent
	}
	s.Utxo.Nullifiers[oldNullifier] = true

	index := s.Utxo.CommitmentsFirstFree
	h := commitmentLeafHash(newCommitment)
	if err := s.Utxo.Commitments.UpdateHash(index, h, newCommitment[:]); err != nil {
		return SpendEvent{}, errors.Wrap(err, "dust: apply spend")
	}
	s.Utxo.CommitmentsFirstFree++

	return SpendEvent{
		Commitment:      newCommitment,
		CommitmentIndex: index,
		Nullifier:       oldNullifier,
		VFee:            vFee,
		DeclaredTime:    declaredTime,
		BlockTime:       blockTime,
	}, nil
}

func commitmentLeafHash(c DustCommitment) merkletree.Hash {
	return merkletree.Hash(c)
}

// RegistrationUpdate is the outcome of ApplyRegistration: the fees it
// authorized spending against and the fresh Dust it minted for the
// registered address's existing Night.
type RegistrationUpdate struct {
	FeesPaid units.U128
	Minted   []MintedGenerationEntry
}

// MintedGenerationEntry pairs a freshly minted generation-tree leaf
// with the index it was inserted at, so callers that emit a replayable
// event for the mint can preserve the linear-insertion check a wallet's
// own replay needs to reconstruct the same tree.
type MintedGenerationEntry struct {
	Info  DustGenerationInfo
	Index uint64
}

// NightOutputValue describes one Night output owned by a registering
// address, used to compute the proportional fresh-Dust mint.
type NightOutputValue struct {
	Nonce InitialNonce
	Value units.U128
}

// ApplyRegistration (re-)binds or removes the Dust delegation for a
// Night address. dustPK == nil deregisters (failing if nothing was
// registered). Otherwise it binds dustPK, caps the fees it may draw
// against at min(feesRemaining, allowFeePayment, dustIn), and mints
// fresh Dust for every currently-owned Night output, proportional to
// that output's share of the address's total Night, at 1/10000
// resolution (matching the protocol's fixed quantization).
func (s *State) ApplyRegistration(
	addr NightAddress,
	dustPK *DustPublicKey,
	allowFeePayment units.U128,
	feesRemaining units.U128,
	dustIn units.U128,
	ownedNight []NightOutputValue,
	now merkletree.Timestamp,
) (RegistrationUpdate, error) {
	if dustPK == nil {
		if _, ok := s.Generation.AddressDelegation[addr]; !ok {
			return RegistrationUpdate{}, ErrNightAddressNotRegistered
		}
		delete(s.Generation.AddressDelegation, addr)
		return RegistrationUpdate{}, nil
	}

	s.Generation.AddressDelegation[addr] = *dustPK

	feesPaid := allowFeePayment
	if feesRemaining.LessThan(feesPaid) {
		feesPaid = feesRemaining
	}
	if dustIn.LessThan(feesPaid) {
		feesPaid = dustIn
	}

	var sumValues units.U128
	for _, o := range ownedNight {
		sumValues = sumValues.Add(o.Value)
	}

	minted := make([]MintedGenerationEntry, 0, len(ownedNight))
	if !sumValues.IsZero() {
		for _, o := range ownedNight {
			if s.Generation.GeneratingSet[DustGenerationUniquenessInfo{Nonce: o.Nonce}] {
				continue
			}
			share := o.Value.Mul(units.FromUint64(10_000))
			share = proportionalShare(share, sumValues)
			info := DustGenerationInfo{Value: share, OwnerPK: *dustPK, Nonce: o.Nonce, Dtime: DtimeUnspent}
			index := s.insertGenerationInfo(info, now)
			minted = append(minted, MintedGenerationEntry{Info: info, Index: index})
		}
	}

	return RegistrationUpdate{FeesPaid: feesPaid, Minted: minted}, nil
}

// proportionalShare computes numerator/sumValues as full 128-bit
// division (value·10_000/sum_values), matching the protocol's fixed
// 1/10000 quantization exactly even when either operand exceeds 64
// bits.
func proportionalShare(numerator, sumValues units.U128) units.U128 {
	return numerator.Div(sumValues)
}

func (s *State) insertGenerationInfo(info DustGenerationInfo, now merkletree.Timestamp) uint64 {
	index := s.Generation.GeneratingTreeFirstFree
	h := generationLeafHash(info)
	payload := encodeGenerationInfo(info)
	_ = s.Generation.GeneratingTree.UpdateHash(index, h, payload)
	s.Generation.GeneratingTreeFirstFree++
	s.Generation.GeneratingSet[DustGenerationUniquenessInfo{Nonce: info.Nonce}] = true
	s.Generation.NightIndices[info.Nonce] = index
	return index
}

func generationLeafHash(info DustGenerationInfo) merkletree.Hash {
	valBytes := info.Value.Bytes()
	var dtimeBytes [8]byte
	putInt64LE(dtimeBytes[:], int64(info.Dtime))
	return cryptoprim.HashTransient("dust:generation-info", valBytes[:], info.OwnerPK[:], info.Nonce[:], dtimeBytes[:])
}

// encodeGenerationInfo serializes a DustGenerationInfo as the Merkle
// leaf's opaque payload: value (16) || owner pk (32) || nonce (32) ||
// dtime (8), so ApplyNightOffer can recover and mutate it later without
// a separate side store.
func encodeGenerationInfo(info DustGenerationInfo) []byte {
	out := make([]byte, 0, 16+32+32+8)
	valBytes := info.Value.Bytes()
	out = append(out, valBytes[:]...)
	out = append(out, info.OwnerPK[:]...)
	out = append(out, info.Nonce[:]...)
	var dtimeBytes [8]byte
	putInt64LE(dtimeBytes[:], int64(info.Dtime))
	out = append(out, dtimeBytes[:]...)
	return out
}

// DtimeUpdateEvent mirrors DustGenerationDtimeUpdate.
type DtimeUpdateEvent struct {
	Index     uint64
	NewDtime  merkletree.Timestamp
}

// UpdateGenerationValue overwrites the tracked Night value backing
// nonce's generation lineage, for protocol-level bulk updates (e.g. a
// Night-dust-ratio parameter change recomputing every outstanding
// lineage's backing value). It is a no-op if nonce is not tracked.
func (s *State) UpdateGenerationValue(nonce InitialNonce, newValue units.U128) error {
	index, ok := s.Generation.NightIndices[nonce]
	if !ok {
		return nil
	}
	leaf, present := s.Generation.GeneratingTree.Leaf(index)
	if !present {
		return nil
	}
	info := decodeGenerationInfo(leaf)
	info.Value = newValue
	h := generationLeafHash(info)
	if err := s.Generation.GeneratingTree.UpdateHash(index, h, encodeGenerationInfo(info)); err != nil {
		return errors.Wrap(err, "dust: update generation value")
	}
	return nil
}

// ApplyNightOffer processes one intent's unshielded offer against the
// generation state: NIGHT inputs whose initial_nonce is tracked stop
// generating Dust as of blockTime, and NIGHT outputs to a delegated
// address mint a fresh zero-value Dust UTXO, unless alreadyMinted
// reports that output as already handled by a registration in the same
// intent's segment 0.
func (s *State) ApplyNightOffer(
	nightInputs []InitialNonce,
	nightOutputs []NightOutputTarget,
	alreadyMinted func(InitialNonce) bool,
	blockTime merkletree.Timestamp,
) ([]DtimeUpdateEvent, error) {
	var events []DtimeUpdateEvent
	for _, nonce := range nightInputs {
		index, ok := s.Generation.NightIndices[nonce]
		if !ok {
			continue
		}
		leaf, present := s.Generation.GeneratingTree.Leaf(index)
		if !present {
			continue
		}
		info := decodeGenerationInfo(leaf)
		info.Dtime = blockTime
		h := generationLeafHash(info)
		if err := s.Generation.GeneratingTree.UpdateHash(index, h, encodeGenerationInfo(info)); err != nil {
			return nil, errors.Wrap(err, "dust: apply night offer dtime update")
		}
		events = append(events, DtimeUpdateEvent{Index: index, NewDtime: blockTime})
	}

	for _, out := range nightOutputs {
		if alreadyMinted(out.Nonce) {
			continue
		}
		pk, delegated := s.Generation.AddressDelegation[out.Address]
		if !delegated {
			continue
		}
		if s.Generation.GeneratingSet[DustGenerationUniquenessInfo{Nonce: out.Nonce}] {
			continue
		}
		info := DustGenerationInfo{Value: units.Zero, OwnerPK: pk, Nonce: out.Nonce, Dtime: DtimeUnspent}
		s.insertGenerationInfo(info, blockTime)
	}

	return events, nil
}

// NightOutputTarget is one NIGHT output of an unshielded offer, as seen
// by ApplyNightOffer.
type NightOutputTarget struct {
	Address NightAddress
	Nonce   InitialNonce
}

func decodeGenerationInfo(leaf []byte) DustGenerationInfo {
	var info DustGenerationInfo
	var valBytes [16]byte
	copy(valBytes[:], leaf[0:16])
	info.Value = units.FromBytes(valBytes)
	copy(info.OwnerPK[:], leaf[16:48])
	copy(info.Nonce[:], leaf[48:80])
	info.Dtime = merkletree.Timestamp(readInt64LE(leaf[80:88]))
	return info
}

func readInt64LE(b []byte) int64 {
	var u uint64
	for i := 0; i < 8; i++ {
		u |= uint64(b[i]) << (8 * i)
	}
	return int64(u)
}
