package events_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duskchain/ledgercore/dust"
	"github.com/duskchain/ledgercore/events"
	"github.com/duskchain/ledgercore/merkletree"
)

func TestReplayEventsAcceptsLinearInsertions(t *testing.T) {
	s := events.NewReplayState()
	evts := []events.Event{
		{Kind: events.KindZswapOutput, BlockTime: 10, ZswapOutput: &events.ZswapOutputPayload{MTIndex: 0}},
		{Kind: events.KindZswapOutput, BlockTime: 11, ZswapOutput: &events.ZswapOutputPayload{MTIndex: 1}},
		{Kind: events.KindDustSpendProcessed, BlockTime: 12, DustSpendProcessed: &dust.SpendEvent{CommitmentIndex: 0}},
		{Kind: events.KindDustInitialUtxo, BlockTime: 13, DustInitialUtxo: &events.DustInitialUtxoPayload{Index: 0, Nonce: dust.InitialNonce{0x01}}},
	}

	err := events.ReplayEvents(s, evts)
	require.NoError(t, err)
	require.Equal(t, uint64(2), s.ShieldedCommitmentsFirstFree)
	require.Equal(t, uint64(1), s.DustCommitmentsFirstFree)
	require.Equal(t, uint64(1), s.DustGenerationFirstFree)
	require.Equal(t, uint64(0), s.NightIndices[dust.InitialNonce{0x01}])
}

func TestReplayEventsRejectsNonLinearInsertion(t *testing.T) {
	s := events.NewReplayState()
	evts := []events.Event{
		{Kind: events.KindZswapOutput, BlockTime: 10, ZswapOutput: &events.ZswapOutputPayload{MTIndex: 0}},
		{Kind: events.KindZswapOutput, BlockTime: 11, ZswapOutput: &events.ZswapOutputPayload{MTIndex: 5}},
	}

	err := events.ReplayEvents(s, evts)
	var nlErr *events.NonLinearInsertionError
	require.ErrorAs(t, err, &nlErr)
	require.Equal(t, "shielded-commitments", nlErr.TreeName)
	require.Equal(t, uint64(1), nlErr.Expected)
	require.Equal(t, uint64(5), nlErr.Received)
}

func TestReplayEventsRejectsNonMonotoneTime(t *testing.T) {
	s := events.NewReplayState()
	evts := []events.Event{
		{Kind: events.KindParamChange, BlockTime: 20},
		{Kind: events.KindParamChange, BlockTime: 19},
	}

	err := events.ReplayEvents(s, evts)
	require.ErrorIs(t, err, events.ErrNonMonotoneTime)
}

func TestReplayEventsSkipsUnknownKinds(t *testing.T) {
	s := events.NewReplayState()
	evts := []events.Event{
		{Kind: events.KindUnknown, BlockTime: 5},
		{Kind: events.Kind(999), BlockTime: 6},
	}

	err := events.ReplayEvents(s, evts)
	require.NoError(t, err)
	require.Equal(t, merkletree.Timestamp(6), s.SyncedTime)
}
