package ledgerstate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duskchain/ledgercore/dust"
	"github.com/duskchain/ledgercore/ledgerstate"
	"github.com/duskchain/ledgercore/merkletree"
	"github.com/duskchain/ledgercore/txn"
	"github.com/duskchain/ledgercore/units"
)

func fixedRand(n int) ([]byte, error) {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i + 1)
	}
	return b, nil
}

func mustBoundTx(t *testing.T, intents map[txn.SegmentID]txn.Intent) *txn.Transaction {
	t.Helper()
	tx, err := txn.NewStandard(1, intents, nil, nil)
	require.NoError(t, err)
	mocked, err := tx.MockProve()
	require.NoError(t, err)
	return mocked
}

func TestWellFormedRejectsReservedSegmentIntent(t *testing.T) {
	s := ledgerstate.New(ledgerstate.DefaultParameters)
	tx := mustBoundTx(t, map[txn.SegmentID]txn.Intent{0: {TTL: 100}})

	err := ledgerstate.WellFormed(tx, s, ledgerstate.StrictAll, 0, ledgerstate.Checkers{}, ledgerstate.ApplyContext{})
	require.ErrorIs(t, err, ledgerstate.ErrReservedSegmentUsed)
}

func TestWellFormedRejectsDustActionOutsideGracePeriod(t *testing.T) {
	s := ledgerstate.New(ledgerstate.DefaultParameters)
	tblock := int64(s.Params.Dust.DustGracePeriod) + 1000
	tx, err := txn.NewStandard(1, map[txn.SegmentID]txn.Intent{
		1: {TTL: tblock, Signature: txn.Signature("sig")},
	}, nil, nil)
	require.NoError(t, err)

	var nullifier dust.DustNullifier
	nullifier[0] = 0xCC
	ctx := ledgerstate.ApplyContext{
		DustSpends: map[txn.SegmentID][]ledgerstate.DustSpendRequest{
			1: {{OldNullifier: nullifier, DeclaredTime: 0}},
		},
	}

	err = ledgerstate.WellFormed(tx, s, ledgerstate.StrictAll, tblock, ledgerstate.Checkers{}, ctx)
	require.ErrorIs(t, err, ledgerstate.ErrDustActionOutsideGracePeriod)
}

func TestApplyTransactionSegmentZeroDustSpend(t *testing.T) {
	s := ledgerstate.New(ledgerstate.DefaultParameters)
	tx := mustBoundTx(t, map[txn.SegmentID]txn.Intent{0: {TTL: 100}})

	var nullifier dust.DustNullifier
	nullifier[0] = 0xAA
	var commitment dust.DustCommitment
	commitment[0] = 0xBB

	ctx := ledgerstate.ApplyContext{
		DustSpends: map[txn.SegmentID][]ledgerstate.DustSpendRequest{
			0: {{OldNullifier: nullifier, NewCommitment: commitment, VFee: units.FromUint64(20), DeclaredTime: 10}},
		},
		BlockTime: 10,
	}

	result, evts, err := ledgerstate.ApplyTransaction(s, tx, ctx)
	require.NoError(t, err)
	require.True(t, result.IsSuccess())
	require.False(t, result.IsFailure())
	require.Len(t, evts, 1)
	require.Equal(t, uint64(1), s.Dust.Utxo.CommitmentsFirstFree)
	require.True(t, s.Dust.Utxo.Nullifiers[nullifier])
}

func TestApplyTransactionRejectsReplay(t *testing.T) {
	s := ledgerstate.New(ledgerstate.DefaultParameters)
	tx := mustBoundTx(t, map[txn.SegmentID]txn.Intent{0: {TTL: 100}})

	_, _, err := ledgerstate.ApplyTransaction(s, tx, ledgerstate.ApplyContext{BlockTime: 10})
	require.NoError(t, err)

	result, _, err := ledgerstate.ApplyTransaction(s, tx, ledgerstate.ApplyContext{BlockTime: 10})
	require.NoError(t, err)
	require.True(t, result.IsFailure())
}

func TestApplyTransactionPartialSuccessOnFallibleSegmentFailure(t *testing.T) {
	s := ledgerstate.New(ledgerstate.DefaultParameters)
	tx := mustBoundTx(t, map[txn.SegmentID]txn.Intent{
		0: {TTL: 100},
		1: {TTL: 100},
	})

	var spentNullifier dust.DustNullifier
	spentNullifier[0] = 0x01
	s.Dust.Utxo.Nullifiers[spentNullifier] = true

	var goodNullifier dust.DustNullifier
	goodNullifier[0] = 0x02
	var commitment dust.DustCommitment

	ctx := ledgerstate.ApplyContext{
		DustSpends: map[txn.SegmentID][]ledgerstate.DustSpendRequest{
			0: {{OldNullifier: goodNullifier, NewCommitment: commitment, VFee: units.FromUint64(1), DeclaredTime: 5}},
			1: {{OldNullifier: spentNullifier, NewCommitment: commitment, VFee: units.FromUint64(1), DeclaredTime: 5}},
		},
		BlockTime: 5,
	}

	result, evts, err := ledgerstate.ApplyTransaction(s, tx, ctx)
	require.NoError(t, err)
	require.False(t, result.IsSuccess())
	require.False(t, result.IsFailure())
	require.True(t, result.Segments[0].OK)
	require.False(t, result.Segments[1].OK)
	require.Len(t, evts, 1)
}

func TestPostBlockUpdateRejectsExcessFullness(t *testing.T) {
	s := ledgerstate.New(ledgerstate.DefaultParameters)
	err := s.PostBlockUpdate(10, 1.5)
	require.ErrorIs(t, err, ledgerstate.ErrBlockLimitExceeded)
}

func TestPostBlockUpdateAdjustsFeePriceAndSetsTBlock(t *testing.T) {
	s := ledgerstate.New(ledgerstate.DefaultParameters)
	s.Fees.DustPerUnit = units.FromUint64(100)
	before := s.Fees.DustPerUnit

	require.NoError(t, s.PostBlockUpdate(10, 0.9))
	require.True(t, before.LessThan(s.Fees.DustPerUnit))

	require.Equal(t, merkletree.Timestamp(10), s.TBlock)
}

func TestApplyClaimRewardsSimpleBridgeClaim(t *testing.T) {
	s := ledgerstate.New(ledgerstate.DefaultParameters)
	claims := ledgerstate.NewClaimableBalances()
	var addr [32]byte
	addr[0] = 0x01
	claims.BridgeReceiving[addr] = units.FromUint64(1_000_000)

	tx := &txn.Transaction{
		Kind:       txn.KindClaimRewards,
		ClaimOwner: addr,
		ClaimValue: 1_000_000,
		Claim:      txn.ClaimCardanoBridge,
	}

	err := ledgerstate.ApplyClaimRewards(s, claims, tx)
	require.NoError(t, err)
	require.True(t, claims.BridgeReceiving[addr].IsZero())
	require.Equal(t, units.FromUint64(1_000_000), s.NightBalances[addr])
}

func TestApplyClaimRewardsOverclaimFails(t *testing.T) {
	s := ledgerstate.New(ledgerstate.DefaultParameters)
	claims := ledgerstate.NewClaimableBalances()
	var addr [32]byte
	addr[0] = 0x02
	claims.UnclaimedRewards[addr] = units.FromUint64(200_000)

	tx := &txn.Transaction{
		Kind:       txn.KindClaimRewards,
		ClaimOwner: addr,
		ClaimValue: 1_000_001,
		Claim:      txn.ClaimReward,
	}

	err := ledgerstate.ApplyClaimRewards(s, claims, tx)
	var insufficient *ledgerstate.ErrInsufficientClaimable
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, units.FromUint64(200_000), insufficient.Claimable)
}
