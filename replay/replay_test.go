package replay_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duskchain/ledgercore/replay"
)

func TestInsertRejectsReplay(t *testing.T) {
	s := replay.New(100)
	h := replay.IntentHash{0x01}

	require.NoError(t, s.Insert(h, 50, 10))
	require.ErrorIs(t, s.Insert(h, 50, 10), replay.ErrAlreadySeen)
}

func TestInsertRejectsExpiredTTL(t *testing.T) {
	s := replay.New(100)
	err := s.Insert(replay.IntentHash{0x01}, 5, 10)
	require.ErrorIs(t, err, replay.ErrExpired)
}

func TestInsertRejectsTooFarFuture(t *testing.T) {
	s := replay.New(100)
	err := s.Insert(replay.IntentHash{0x01}, 10+101, 10)
	require.ErrorIs(t, err, replay.ErrTooFarInFuture)
}

func TestPostBlockUpdateDropsExpired(t *testing.T) {
	s := replay.New(1000)
	h := replay.IntentHash{0x01}
	require.NoError(t, s.Insert(h, 50, 10))

	s.PostBlockUpdate(50)
	require.True(t, s.Contains(h))

	s.PostBlockUpdate(51)
	require.False(t, s.Contains(h))
}

func TestNormalizedIntentHashIgnoresSegment(t *testing.T) {
	encode := func(segmentID uint16) []byte {
		return []byte{byte(segmentID), 0xAA, 0xBB}
	}
	h1 := replay.NormalizedIntentHash(encode)
	h2 := replay.NormalizedIntentHash(encode)
	require.Equal(t, h1, h2)
}
