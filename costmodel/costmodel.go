// Package costmodel fits a linear regression to benchmark
// measurements of VM operation timings, producing the per-operation
// cost coefficients the ledger's fee computation charges against.
//
// This is the one package in the module that reaches for the standard
// library's math instead of a pack dependency: ordinary least squares
// over a handful of named features is a dozen lines of matrix-free
// arithmetic, and no example repo in the retrieval pack imports a
// numerics library (gonum or otherwise) for anything — pulling one in
// for this single offline-tool computation would be the only use of
// such a dependency in the whole module. See DESIGN.md for the full
// justification.
package costmodel

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sample is one benchmark observation: a VM operation's feature vector
// (e.g. input size, proof complexity, number of sub-calls) and its
// measured wall-clock cost in nanoseconds.
type Sample struct {
	Features []float64
	CostNs   float64
}

// Model is a fitted linear cost function: CostNs ≈ Intercept +
// sum(Coefficients[i] * Features[i]).
type Model struct {
	Coefficients []float64
	Intercept    float64
}

// Predict estimates the cost of an operation with the given features.
func (m Model) Predict(features []float64) (float64, error) {
	if len(features) != len(m.Coefficients) {
		return 0, errors.Errorf("costmodel: expected %d features, got %d", len(m.Coefficients), len(features))
	}
	cost := m.Intercept
	for i, f := range features {
		cost += m.Coefficients[i] * f
	}
	return cost, nil
}

// Fit computes the ordinary-least-squares linear regression of
// samples' CostNs against their Features, via the normal equations
// solved by Gaussian elimination. All samples must share the same
// feature count, and must outnumber it (an underdetermined system has
// no unique least-squares solution).
func Fit(samples []Sample) (Model, error) {
	if len(samples) == 0 {
		return Model{}, errors.New("costmodel: no samples")
	}
	numFeatures := len(samples[0].Features)
	for i, s := range samples {
		if len(s.Features) != numFeatures {
			return Model{}, errors.Errorf("costmodel: sample %d has %d features, want %d", i, len(s.Features), numFeatures)
		}
	}
	if len(samples) <= numFeatures {
		return Model{}, errors.Errorf("costmodel: need more than %d samples to fit %d features, got %d", numFeatures, numFeatures, len(samples))
	}

	// Design matrix X has an implicit leading all-ones column for the
	// intercept: dimension is numFeatures+1.
	n := numFeatures + 1
	xtx := make([][]float64, n)
	xty := make([]float64, n)
	for i := range xtx {
		xtx[i] = make([]float64, n)
	}

	row := make([]float64, n)
	for _, s := range samples {
		row[0] = 1
		copy(row[1:], s.Features)
		for i := 0; i < n; i++ {
			xty[i] += row[i] * s.CostNs
			for j := 0; j < n; j++ {
				xtx[i][j] += row[i] * row[j]
			}
		}
	}

	coeffs, err := solve(xtx, xty)
	if err != nil {
		return Model{}, errors.Wrap(err, "costmodel: fit")
	}

	return Model{Intercept: coeffs[0], Coefficients: coeffs[1:]}, nil
}

// solve solves the linear system a*x = b via Gaussian elimination with
// partial pivoting. a is square and modified in place; b is modified
// in place as the augmented column.
func solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if abs(a[r][col]) > abs(a[pivot][col]) {
				pivot = r
			}
		}
		if abs(a[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("singular normal-equations matrix at column %d", col)
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < n; r++ {
			factor := a[r][col] / a[col][col]
			for c := col; c < n; c++ {
				a[r][c] -= factor * a[col][c]
			}
			b[r] -= factor * b[col]
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := b[i]
		for j := i + 1; j < n; j++ {
			sum -= a[i][j] * x[j]
		}
		x[i] = sum / a[i][i]
	}
	return x, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
