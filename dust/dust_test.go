package dust_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duskchain/ledgercore/dust"
	"github.com/duskchain/ledgercore/merkletree"
	"github.com/duskchain/ledgercore/units"
)

func testParams() dust.DustParameters {
	return dust.DustParameters{
		NightDustRatio:      1000,
		GenerationDecayRate: 1,
		DustGracePeriod:     merkletree.Timestamp(60),
	}
}

func TestUpdatedValueGrowsWhileUnspent(t *testing.T) {
	params := testParams()
	night := units.FromUint64(100)

	v0 := dust.UpdatedValue(night, dust.DtimeUnspent, 0, units.Zero, 0, params)
	require.True(t, v0.IsZero())

	v10 := dust.UpdatedValue(night, dust.DtimeUnspent, 0, units.Zero, 10, params)
	require.Equal(t, uint64(10*100*1), v10.Uint64())
}

func TestUpdatedValueCapsAtVFull(t *testing.T) {
	params := testParams()
	night := units.FromUint64(1)
	vFull := uint64(params.NightDustRatio)

	v := dust.UpdatedValue(night, dust.DtimeUnspent, 0, units.Zero, merkletree.Timestamp(vFull*10), params)
	require.Equal(t, vFull, v.Uint64())
}

func TestUpdatedValueDecaysAfterSpend(t *testing.T) {
	params := testParams()
	night := units.FromUint64(10)
	dtime := merkletree.Timestamp(100)

	grownAtSpend := dust.UpdatedValue(night, dtime, 0, units.Zero, dtime, params)
	require.Equal(t, uint64(100*10*1), grownAtSpend.Uint64())

	decayed := dust.UpdatedValue(night, dtime, 0, units.Zero, dtime+50, params)
	require.Equal(t, grownAtSpend.Uint64()-50*10*1, decayed.Uint64())
}

func TestUpdatedValueNeverGoesNegative(t *testing.T) {
	params := testParams()
	night := units.FromUint64(10)
	dtime := merkletree.Timestamp(10)

	decayed := dust.UpdatedValue(night, dtime, 0, units.Zero, dtime+1000, params)
	require.True(t, decayed.IsZero())
}

func TestApplySpendRejectsReusedNullifier(t *testing.T) {
	st := dust.NewState(testParams())
	nullifier := dust.DustNullifier{0x01}
	commitment := dust.DustCommitment{0x02}

	_, err := st.ApplySpend(nullifier, commitment, units.FromUint64(5), 0, 0)
	require.NoError(t, err)

	_, err = st.ApplySpend(nullifier, commitment, units.FromUint64(5), 0, 0)
	require.ErrorIs(t, err, dust.ErrNullifierAlreadySpent)
}

func TestApplySpendAssignsSequentialMTIndex(t *testing.T) {
	st := dust.NewState(testParams())
	ev1, err := st.ApplySpend(dust.DustNullifier{0x01}, dust.DustCommitment{0x02}, units.Zero, 0, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(0), ev1.CommitmentIndex)

	ev2, err := st.ApplySpend(dust.DustNullifier{0x03}, dust.DustCommitment{0x04}, units.Zero, 0, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(1), ev2.CommitmentIndex)
}

func TestApplyRegistrationDeregisterFailsWhenUnregistered(t *testing.T) {
	st := dust.NewState(testParams())
	_, err := st.ApplyRegistration(dust.NightAddress{0x01}, nil, units.Zero, units.Zero, units.Zero, nil, 0)
	require.ErrorIs(t, err, dust.ErrNightAddressNotRegistered)
}

func TestApplyRegistrationCapsFeesAtMinimum(t *testing.T) {
	st := dust.NewState(testParams())
	pk := dust.DustPublicKey{0xAA}

	update, err := st.ApplyRegistration(
		dust.NightAddress{0x01}, &pk,
		units.FromUint64(100), // allowFeePayment
		units.FromUint64(50),  // feesRemaining
		units.FromUint64(20),  // dustIn
		nil, 0,
	)
	require.NoError(t, err)
	require.Equal(t, uint64(20), update.FeesPaid.Uint64())
}

func TestApplyNightOfferSetsDtimeOnTrackedInput(t *testing.T) {
	st := dust.NewState(testParams())
	pk := dust.DustPublicKey{0xAA}
	nonce := dust.InitialNonce{0x05}

	_, err := st.ApplyRegistration(dust.NightAddress{0x01}, &pk, units.Zero, units.Zero, units.Zero,
		[]dust.NightOutputValue{{Nonce: nonce, Value: units.FromUint64(10)}}, 0)
	require.NoError(t, err)

	events, err := st.ApplyNightOffer([]dust.InitialNonce{nonce}, nil, func(dust.InitialNonce) bool { return false }, 42)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, merkletree.Timestamp(42), events[0].NewDtime)
}

func TestApplyRegistrationMintsProportionalToShare(t *testing.T) {
	st := dust.NewState(testParams())
	pk := dust.DustPublicKey{0xAA}

	owned := []dust.NightOutputValue{
		{Nonce: dust.InitialNonce{0x01}, Value: units.FromUint64(30)},
		{Nonce: dust.InitialNonce{0x02}, Value: units.FromUint64(70)},
	}
	update, err := st.ApplyRegistration(dust.NightAddress{0x01}, &pk, units.Zero, units.Zero, units.Zero, owned, 0)
	require.NoError(t, err)
	require.Len(t, update.Minted, 2)
	require.Equal(t, uint64(3000), update.Minted[0].Info.Value.Uint64())
	require.Equal(t, uint64(7000), update.Minted[1].Info.Value.Uint64())
	require.Equal(t, uint64(0), update.Minted[0].Index)
	require.Equal(t, uint64(1), update.Minted[1].Index)
}
