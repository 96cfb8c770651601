package ledgerstate

import (
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/duskchain/ledgercore/merkletree"
	"github.com/duskchain/ledgercore/units"
)

// ErrBlockLimitExceeded is returned when a block's normalized fullness
// exceeds the configured limit.
var ErrBlockLimitExceeded = errors.New("ledgerstate: block fullness exceeds configured limit")

// PostBlockUpdate runs the end-of-block bookkeeping: validates the
// block's normalized fullness, adjusts fee prices by a PI-style
// controller, rehashes every Merkle tree, records the new roots into
// their root-history TimeFilterMaps keyed by tblock, and expires every
// TimeFilterMap entry older than tblock-globalTTL.
func (s *State) PostBlockUpdate(tblock merkletree.Timestamp, blockFullness float64) error {
	if blockFullness < 0 || blockFullness > s.Params.BlockFullnessLimit {
		return ErrBlockLimitExceeded
	}

	s.Fees.DustPerUnit = updateFromFullness(s.Fees.DustPerUnit, blockFullness, s.Params.FeeControllerMinRatio, s.Params.FeeControllerGainA)

	// The three trees are separate in-memory structures, so rehashing them
	// is safe to fan out rather than serialize.
	var g errgroup.Group
	g.Go(func() error { s.Dust.Utxo.Commitments.Rehash(); return nil })
	g.Go(func() error { s.Dust.Generation.GeneratingTree.Rehash(); return nil })
	g.Go(func() error { s.Shielded.Commitments.Rehash(); return nil })
	_ = g.Wait()

	if root, err := s.Dust.Utxo.Commitments.Root(); err == nil {
		s.Dust.Utxo.RootHistory.UpsertOne(tblock, root)
	}
	if root, err := s.Dust.Generation.GeneratingTree.Root(); err == nil {
		s.Dust.Generation.RootHistory.UpsertOne(tblock, root)
	}
	if root, err := s.Shielded.Commitments.Root(); err == nil {
		s.Shielded.RootHistory.UpsertOne(tblock, root)
	}

	cutoff := tblock - s.Params.GlobalTTL
	s.Dust.Utxo.RootHistory.Filter(cutoff)
	s.Dust.Generation.RootHistory.Filter(cutoff)
	s.Shielded.RootHistory.Filter(cutoff)
	s.Replay.PostBlockUpdate(tblock)

	s.TBlock = tblock
	return nil
}

// updateFromFullness is the PI-style fee-price controller: fullness
// above 0.5 pushes the price up, below 0.5 pushes it down, the step
// size scaled by gainA and clamped so the price never moves below
// minRatio of its previous value in a single block (a floor on how
// fast fees can crash, matching the spec's "min_ratio" knob).
func updateFromFullness(price units.U128, fullness, minRatio, gainA float64) units.U128 {
	if price.IsZero() {
		price = units.FromUint64(1)
	}
	errTerm := fullness - 0.5
	factor := 1.0 + gainA*errTerm*2
	if factor < minRatio {
		factor = minRatio
	}
	p := price.Uint64()
	adjusted := uint64(float64(p) * factor)
	if adjusted == 0 {
		adjusted = 1
	}
	return units.FromUint64(adjusted)
}
