// Package loss provides the Gaussian likelihood terms of the flow
// training objective and their analytic gradients.
package loss

import "math"

const ln2pi = 1.8378770664093453

// GaussianNLL returns the summed negative log density of z under the
// diagonal Gaussian N(mean, exp(lnVar)).
func GaussianNLL(z, mean, lnVar []float64) float64 {
	var sum float64
	for i, zi := range z {
		d := zi - mean[i]
		sum += ln2pi + lnVar[i] + d*d*math.Exp(-lnVar[i])
	}
	return 0.5 * sum
}

// GaussianNLLGradZ accumulates scale * dNLL/dz into dst.
func GaussianNLLGradZ(z, mean, lnVar []float64, scale float64, dst []float64) {
	for i, zi := range z {
		dst[i] += scale * (zi - mean[i]) * math.Exp(-lnVar[i])
	}
}

// GaussianKL returns the summed KL divergence from N(mean, exp(lnVar))
// to the standard normal.
func GaussianKL(mean, lnVar []float64) float64 {
	var sum float64
	for i, m := range mean {
		sum += m*m + math.Exp(lnVar[i]) - lnVar[i] - 1
	}
	return 0.5 * sum
}
