package loss

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/diff/fd"
)

func TestGaussianNLLStandardNormalAtZero(t *testing.T) {
	z := []float64{0}
	zero := []float64{0}
	// -log N(0 | 0, 1) = 0.5*ln(2*pi)
	assert.InDelta(t, 0.5*math.Log(2*math.Pi), GaussianNLL(z, zero, zero), 1e-12)
}

func TestGaussianNLLGradMatchesFiniteDifference(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := 6
	mean := make([]float64, n)
	lnVar := make([]float64, n)
	z := make([]float64, n)
	for i := 0; i < n; i++ {
		mean[i] = rng.NormFloat64()
		lnVar[i] = rng.NormFloat64() * 0.5
		z[i] = rng.NormFloat64()
	}

	want := make([]float64, n)
	fd.Gradient(want, func(x []float64) float64 {
		return GaussianNLL(x, mean, lnVar)
	}, z, nil)

	got := make([]float64, n)
	GaussianNLLGradZ(z, mean, lnVar, 1, got)
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-6)
	}
}

func TestGaussianKLZeroAtPrior(t *testing.T) {
	zero := make([]float64, 4)
	assert.Zero(t, GaussianKL(zero, zero))
	assert.Greater(t, GaussianKL([]float64{1, 0, 0, 0}, zero), 0.0)
}
