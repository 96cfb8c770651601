package txn_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duskchain/ledgercore/txn"
)

type stubProvider struct{}

func (stubProvider) Prove(preimage []byte, costModel []byte) (txn.Proof, error) {
	return txn.Proof(append([]byte("proved:"), preimage...)), nil
}

func fixedRand(n int) ([]byte, error) {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b, nil
}

func TestNewStandardStartsUnprovenPreBinding(t *testing.T) {
	tx, err := txn.NewStandard(1, map[txn.SegmentID]txn.Intent{
		1: {TTL: 100, Proofs: []txn.Proof{[]byte("pre")}},
	}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, txn.Unproven, tx.ProofM)
	require.Equal(t, txn.PreBinding, tx.Binding)
}

func TestProveThenSealReachesBinding(t *testing.T) {
	tx, err := txn.NewStandard(1, map[txn.SegmentID]txn.Intent{
		1: {Proofs: []txn.Proof{[]byte("pre")}},
	}, nil, nil)
	require.NoError(t, err)

	proved, err := tx.Prove(stubProvider{}, nil)
	require.NoError(t, err)
	require.Equal(t, txn.Proven, proved.ProofM)
	require.Equal(t, txn.PreBinding, proved.Binding)

	sealed, err := proved.Seal(fixedRand)
	require.NoError(t, err)
	require.Equal(t, txn.Binding, sealed.Binding)

	_, err = sealed.TransactionHash()
	require.NoError(t, err)
}

func TestMockProveReachesBindingDirectly(t *testing.T) {
	tx, err := txn.NewStandard(1, map[txn.SegmentID]txn.Intent{
		1: {Proofs: []txn.Proof{[]byte("pre")}},
	}, nil, nil)
	require.NoError(t, err)

	mocked, err := tx.MockProve()
	require.NoError(t, err)
	require.Equal(t, txn.Proven, mocked.ProofM)
	require.Equal(t, txn.Binding, mocked.Binding)
}

func TestEraseProofsMovesToNoBinding(t *testing.T) {
	tx, err := txn.NewStandard(1, map[txn.SegmentID]txn.Intent{
		1: {Proofs: []txn.Proof{[]byte("pre")}},
	}, nil, nil)
	require.NoError(t, err)

	proved, err := tx.Prove(stubProvider{}, nil)
	require.NoError(t, err)
	sealed, err := proved.Seal(fixedRand)
	require.NoError(t, err)

	erased := sealed.EraseProofs()
	require.Equal(t, txn.ProofErased, erased.ProofM)
	require.Equal(t, txn.NoBinding, erased.Binding)
}

func TestTransactionHashRequiresFullyFinalized(t *testing.T) {
	tx, err := txn.NewStandard(1, map[txn.SegmentID]txn.Intent{
		1: {Proofs: []txn.Proof{[]byte("pre")}},
	}, nil, nil)
	require.NoError(t, err)

	_, err = tx.TransactionHash()
	require.Error(t, err)
}

func TestMergeRejectsColldingSegments(t *testing.T) {
	a, err := txn.NewStandard(1, map[txn.SegmentID]txn.Intent{1: {}}, nil, nil)
	require.NoError(t, err)
	b, err := txn.NewStandard(1, map[txn.SegmentID]txn.Intent{1: {}}, nil, nil)
	require.NoError(t, err)

	_, err = a.Merge(b)
	require.Error(t, err)
}

func TestMergeCombinesDisjointSegments(t *testing.T) {
	a, err := txn.NewStandard(1, map[txn.SegmentID]txn.Intent{1: {}}, nil, nil)
	require.NoError(t, err)
	b, err := txn.NewStandard(1, map[txn.SegmentID]txn.Intent{2: {}}, nil, nil)
	require.NoError(t, err)

	merged, err := a.Merge(b)
	require.NoError(t, err)
	require.Len(t, merged.Intents, 2)
}

func TestMergeRejectsMismatchedMarkers(t *testing.T) {
	a, err := txn.NewStandard(1, map[txn.SegmentID]txn.Intent{1: {}}, nil, nil)
	require.NoError(t, err)
	b, err := txn.NewStandard(1, map[txn.SegmentID]txn.Intent{2: {}}, nil, nil)
	require.NoError(t, err)
	b = b.EraseSignatures()

	_, err = a.Merge(b)
	require.Error(t, err)
}
