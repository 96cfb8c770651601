package costmodel_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duskchain/ledgercore/costmodel"
)

func TestFitRecoversExactLinearRelationship(t *testing.T) {
	samples := []costmodel.Sample{
		{Features: []float64{0}, CostNs: 100},
		{Features: []float64{1}, CostNs: 150},
		{Features: []float64{2}, CostNs: 200},
		{Features: []float64{3}, CostNs: 250},
	}
	model, err := costmodel.Fit(samples)
	require.NoError(t, err)
	require.InDelta(t, 100, model.Intercept, 1e-6)
	require.InDelta(t, 50, model.Coefficients[0], 1e-6)

	predicted, err := model.Predict([]float64{10})
	require.NoError(t, err)
	require.InDelta(t, 600, predicted, 1e-6)
}

func TestFitRejectsUnderdeterminedSystem(t *testing.T) {
	samples := []costmodel.Sample{
		{Features: []float64{0, 0}, CostNs: 1},
	}
	_, err := costmodel.Fit(samples)
	require.Error(t, err)
}

func TestFitRejectsMismatchedFeatureCounts(t *testing.T) {
	samples := []costmodel.Sample{
		{Features: []float64{0}, CostNs: 1},
		{Features: []float64{0, 1}, CostNs: 2},
		{Features: []float64{0}, CostNs: 1},
	}
	_, err := costmodel.Fit(samples)
	require.Error(t, err)
}
