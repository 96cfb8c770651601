package dust

import (
	"github.com/duskchain/ledgercore/merkletree"
	"github.com/duskchain/ledgercore/units"
)

// UpdatedValue computes the present value of a Dust UTXO backed by
// Night of the given value, as of now. While the Night is unspent
// (dtime == DtimeUnspent) the value grows from initialValue at rate
// nightValue*params.GenerationDecayRate, capped at
// nightValue*params.NightDustRatio; once the Night is spent at dtime,
// the value instead decays at the same rate down to zero. All
// arithmetic saturates on u128, and negative clamped durations are
// floored to zero, matching the in-circuit evaluator bit-for-bit.
func UpdatedValue(nightValue units.U128, dtime merkletree.Timestamp, ctime merkletree.Timestamp, initialValue units.U128, now merkletree.Timestamp, params DustParameters) units.U128 {
	vFull := nightValue.Mul(units.FromUint64(params.NightDustRatio))
	rate := nightValue.Mul(units.FromUint64(uint64(params.GenerationDecayRate)))

	t2 := dtime
	if now < t2 {
		t2 = now
	}
	growthSeconds := clampNonNegative(t2, ctime)
	grown := initialValue.Add(units.FromUint64(uint64(growthSeconds)).Mul(rate))
	if grown.Cmp(vFull) > 0 {
		grown = vFull
	}

	decaySeconds := clampNonNegative(now, dtime)
	decayAmount := units.FromUint64(uint64(decaySeconds)).Mul(rate)
	return grown.Sub(decayAmount)
}

// clampNonNegative returns max(a-b, 0) as a non-negative second count.
func clampNonNegative(a, b merkletree.Timestamp) int64 {
	d := int64(a) - int64(b)
	if d < 0 {
		return 0
	}
	return d
}
