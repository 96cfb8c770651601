// Package replay implements anti-replay protection for intents: a
// TimeFilterMap of intent hashes keyed by TTL, normalized so the same
// intent cannot be replayed under a different segment id.
//
// Grounded on merkletree.TimeFilterMap (C3) and the segment-0
// normalization rule described for intent hashing; the surrounding
// error taxonomy follows the teacher's pattern of typed sentinel errors
// per validation failure (see domain/consensus/validator).
package replay

import (
	"github.com/pkg/errors"

	"github.com/duskchain/ledgercore/cryptoprim"
	"github.com/duskchain/ledgercore/merkletree"
)

// IntentHash is the normalized hash of an intent, computed with segment
// id forced to zero so the same intent content is rejected as a replay
// regardless of which segment it is later resubmitted under.
type IntentHash [32]byte

// NormalizedIntentHash hashes an intent's canonical encoding with
// segmentID forced to zero, so the same intent content always produces
// the same hash no matter which segment it is actually carried in. This
// closes a replay-across-segments malleability: encodeWithSegment must
// be the caller's canonical per-segment intent encoder.
func NormalizedIntentHash(encodeWithSegment func(segmentID uint16) []byte) IntentHash {
	return IntentHash(cryptoprim.HashPersistent("intent", encodeWithSegment(0)))
}

// ErrAlreadySeen is returned when the intent's normalized hash is
// already present in the map.
var ErrAlreadySeen = errors.New("replay: intent already seen")

// ErrExpired is returned when the intent's TTL has already passed.
var ErrExpired = errors.New("replay: intent ttl has already passed")

// ErrTooFarInFuture is returned when the intent's TTL exceeds the
// configured global horizon.
var ErrTooFarInFuture = errors.New("replay: intent ttl too far in the future")

// State tracks every not-yet-expired intent hash, keyed by its TTL.
type State struct {
	seen     *merkletree.TimeFilterMap[IntentHash]
	globalTTL merkletree.Timestamp
}

func lessIntentHash(a, b IntentHash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// New returns an empty replay-protection state. globalTTL bounds how
// far into the future an intent's own TTL may be declared, relative to
// the block it is submitted in.
func New(globalTTL merkletree.Timestamp) *State {
	return &State{
		seen:      merkletree.NewTimeFilterMap[IntentHash](lessIntentHash),
		globalTTL: globalTTL,
	}
}

// Insert records a new intent's hash, failing if it has already been
// seen, has already expired, or declares a TTL further out than
// globalTTL allows.
func (s *State) Insert(hash IntentHash, ttl merkletree.Timestamp, tblock merkletree.Timestamp) error {
	if s.seen.Contains(hash) {
		return ErrAlreadySeen
	}
	if ttl < tblock {
		return ErrExpired
	}
	if ttl > tblock+s.globalTTL {
		return ErrTooFarInFuture
	}
	s.seen.UpsertOne(ttl, hash)
	return nil
}

// Clone returns an independent copy of s, used by
// ledgerstate.ApplyTransaction to buffer a segment's replay-protection
// inserts until the whole segment succeeds.
func (s *State) Clone() *State {
	return &State{seen: s.seen.Clone(), globalTTL: s.globalTTL}
}

// Contains reports whether hash is currently tracked (not yet expired).
func (s *State) Contains(hash IntentHash) bool { return s.seen.Contains(hash) }

// PostBlockUpdate drops every intent hash whose TTL has passed as of
// tblock.
func (s *State) PostBlockUpdate(tblock merkletree.Timestamp) {
	s.seen.Filter(tblock)
}

// Len reports how many intent hashes are currently tracked.
func (s *State) Len() int { return s.seen.Len() }
