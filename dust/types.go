// Package dust implements the Dust resource-accounting engine: the
// passive Night-to-Dust value accrual and decay model, the generation
// and commitment Merkle trees backing it, spend/registration/night-offer
// application, and the wallet-side local state that replays the event
// log to reconstruct a holder's view of their own Dust UTXOs.
//
// Grounded on original_source/ledger/src/dust.rs for the exact value
// formula and state-machine shape, the teacher's
// domain/consensus/datastructures/utxodiffstore package for the
// apply-style store mutation idiom, and merkletree/mpt for the
// underlying structures.
package dust

import (
	"github.com/duskchain/ledgercore/cryptoprim"
	"github.com/duskchain/ledgercore/merkletree"
	"github.com/duskchain/ledgercore/units"
)

// NightAddress identifies a Night-holding address that may delegate
// Dust generation to a DustPublicKey.
type NightAddress [32]byte

// DustPublicKey is the public half of a Dust spending key.
type DustPublicKey [32]byte

// DustSecretKey is the secret half of a Dust spending key.
type DustSecretKey [32]byte

// InitialNonce binds a Dust generation lineage to the Night output that
// begot it: persistent_commit(output_no, intent_hash).
type InitialNonce cryptoprim.PersistentHash

// ComputeInitialNonce derives the InitialNonce for a Night output.
func ComputeInitialNonce(outputNo uint32, intentHash [32]byte) InitialNonce {
	var buf [4]byte
	buf[0] = byte(outputNo)
	buf[1] = byte(outputNo >> 8)
	buf[2] = byte(outputNo >> 16)
	buf[3] = byte(outputNo >> 24)
	return InitialNonce(cryptoprim.HashPersistent("dust:initial-nonce", buf[:], intentHash[:]))
}

// DustCommitment commits to a Dust UTXO's public fields.
type DustCommitment cryptoprim.TransientHash

// DustNullifier is the spend marker for a Dust UTXO.
type DustNullifier cryptoprim.TransientHash

// DustParameters configures the generation/decay model.
type DustParameters struct {
	NightDustRatio       uint64 // Dust cap (specks) per unit of Night
	GenerationDecayRate  uint32 // specks/sec per unit of Night
	DustGracePeriod      merkletree.Timestamp
}

// InitialDustParameters are the protocol's genesis defaults.
var InitialDustParameters = DustParameters{
	NightDustRatio:      5_000_000_000,
	GenerationDecayRate: 115_740, // ~1 Dust/day per Night at ratio above
	DustGracePeriod:     merkletree.Timestamp(3600),
}

// DustOutput is the public shape of a Dust UTXO as it appears in a
// transaction.
type DustOutput struct {
	InitialValue units.U128
	OwnerPK      DustPublicKey
	Nonce        cryptoprim.TransientHash
	Seq          uint32
	Ctime        merkletree.Timestamp
}

// QualifiedDustOutput is a DustOutput the wallet or state engine has
// located within the generation/commitment trees.
type QualifiedDustOutput struct {
	DustOutput
	BackingNight InitialNonce
	MTIndex      uint64
}

// DustGenerationInfo is the generation-tree leaf payload: how much
// Night backs a Dust lineage, who owns it, and when (if ever) that
// Night was spent.
type DustGenerationInfo struct {
	Value units.U128
	OwnerPK DustPublicKey
	Nonce   InitialNonce
	Dtime   merkletree.Timestamp // merkletree.Timestamp max while unspent
}

// DtimeUnspent is the sentinel Dtime value meaning "Night not yet spent".
const DtimeUnspent = merkletree.Timestamp(1<<63 - 1)

// DustGenerationUniquenessInfo is the key used to prevent the same
// Night output from seeding more than one generation-tree entry.
type DustGenerationUniquenessInfo struct {
	Nonce InitialNonce
}

// Commit computes the DustCommitment for a fully qualified Dust UTXO.
func Commit(value units.U128, pk DustPublicKey, nonce cryptoprim.TransientHash, ctime merkletree.Timestamp) DustCommitment {
	return DustCommitment(fieldwiseTransient("dust:cm", value, pk[:], nonce, ctime))
}

// Nullify computes the DustNullifier for a spend.
func Nullify(value units.U128, sk DustSecretKey, nonce cryptoprim.TransientHash, ctime merkletree.Timestamp) DustNullifier {
	return DustNullifier(fieldwiseTransient("dust:nul", value, sk[:], nonce, ctime))
}

func fieldwiseTransient(domain string, value units.U128, keyMaterial []byte, nonce cryptoprim.TransientHash, ctime merkletree.Timestamp) cryptoprim.TransientHash {
	valBytes := value.Bytes()
	var ctimeBytes [8]byte
	putInt64LE(ctimeBytes[:], int64(ctime))
	return cryptoprim.HashTransient(domain, valBytes[:], keyMaterial, nonce[:], ctimeBytes[:])
}

func putInt64LE(b []byte, v int64) {
	u := uint64(v)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
}

// DeriveNonce computes a UTXO's nonce: the first output (seq==0) is
// derivable from public data (the owner's public key), while later
// outputs in the same lineage require the secret key, giving a wallet
// unlinkability across its own later receives while still letting
// anyone recognize the first one.
func DeriveNonce(backingNight InitialNonce, seq uint32, pkOrSk []byte) cryptoprim.TransientHash {
	var seqBytes [4]byte
	seqBytes[0] = byte(seq)
	seqBytes[1] = byte(seq >> 8)
	seqBytes[2] = byte(seq >> 16)
	seqBytes[3] = byte(seq >> 24)
	return cryptoprim.HashTransient("dust:nonce", backingNight[:], seqBytes[:], pkOrSk)
}
