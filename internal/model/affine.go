package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"flowforge/internal/hyperparams"
	"flowforge/internal/optimizer"
)

const initEps = 1e-6

// AffineEncoder is a channelwise affine transform with a standard-normal
// prior: z_c = exp(logScale_c) * (x_c + bias_c). It is an exactly
// invertible stand-in for a full flow stack, small enough to carry
// analytic gradients, and uses the same data-dependent actnorm
// initialization a real flow would.
type AffineEncoder struct {
	c, h, w int

	logScale *optimizer.Parameter
	bias     *optimizer.Parameter

	initialized bool
}

// NewAffineEncoder builds the encoder for the image geometry in hp.
func NewAffineEncoder(hp *hyperparams.Hyperparameters) *AffineEncoder {
	return &AffineEncoder{
		c:        hp.NumChannels,
		h:        hp.ImageHeight,
		w:        hp.ImageWidth,
		logScale: optimizer.NewParameter("actnorm.log_scale", hp.NumChannels),
		bias:     optimizer.NewParameter("actnorm.bias", hp.NumChannels),
	}
}

// NeedInit reports whether actnorm weights still need a data batch.
func (e *AffineEncoder) NeedInit() bool {
	return !e.initialized
}

// MarkInit records that the weights were restored from a snapshot.
func (e *AffineEncoder) MarkInit() {
	e.initialized = true
}

// InitActnorm sets bias to the negative per-channel mean and logScale to
// the negative per-channel log standard deviation, so the first batch maps
// to roughly zero mean and unit variance.
func (e *AffineEncoder) InitActnorm(x Batch) {
	hw := e.h * e.w
	vals := make([]float64, x.N*hw)
	for c := 0; c < e.c; c++ {
		i := 0
		for n := 0; n < x.N; n++ {
			base := (n*e.c + c) * hw
			for p := 0; p < hw; p++ {
				vals[i] = x.Data[base+p]
				i++
			}
		}
		mean, std := stat.MeanStdDev(vals[:i], nil)
		e.bias.Data[c] = -mean
		e.logScale.Data[c] = -math.Log(std + initEps)
	}
	e.initialized = true
}

// ForwardStep encodes x into a single latent level under the standard
// normal prior.
func (e *AffineEncoder) ForwardStep(x Batch) (*Forward, error) {
	if x.C != e.c || x.H != e.h || x.W != e.w {
		return nil, fmt.Errorf("model: batch shape %dx%dx%d does not match encoder %dx%dx%d",
			x.C, x.H, x.W, e.c, e.h, e.w)
	}
	hw := e.h * e.w
	z := make([]float64, len(x.Data))
	for n := 0; n < x.N; n++ {
		for c := 0; c < e.c; c++ {
			s := math.Exp(e.logScale.Data[c])
			b := e.bias.Data[c]
			base := (n*e.c + c) * hw
			for p := 0; p < hw; p++ {
				z[base+p] = s * (x.Data[base+p] + b)
			}
		}
	}

	var logDet float64
	for c := 0; c < e.c; c++ {
		logDet += e.logScale.Data[c]
	}
	logDet *= float64(hw)

	return &Forward{
		Factorized: []ZDistribution{{
			Z:     z,
			Mean:  make([]float64, len(z)),
			LnVar: make([]float64, len(z)),
		}},
		LogDet: logDet,
	}, nil
}

// Backward accumulates gradients for logScale and bias.
func (e *AffineEncoder) Backward(x Batch, f *Forward, zGrads [][]float64, logDetGrad float64) error {
	if len(f.Factorized) != 1 || len(zGrads) != 1 {
		return errors.New("model: affine encoder expects a single factor level")
	}
	z := f.Factorized[0].Z
	grad := zGrads[0]
	if len(grad) != len(z) {
		return fmt.Errorf("model: z gradient length %d, want %d", len(grad), len(z))
	}

	hw := e.h * e.w
	for c := 0; c < e.c; c++ {
		s := math.Exp(e.logScale.Data[c])
		var dLogScale, dBias float64
		for n := 0; n < x.N; n++ {
			base := (n*e.c + c) * hw
			for p := 0; p < hw; p++ {
				g := grad[base+p]
				// dz/dlogScale = z, dz/dbias = exp(logScale).
				dLogScale += g * z[base+p]
				dBias += g * s
			}
		}
		dLogScale += logDetGrad * float64(hw)
		e.logScale.Grad[c] += dLogScale
		e.bias.Grad[c] += dBias
	}
	return nil
}

// ReverseStep inverts the affine transform.
func (e *AffineEncoder) ReverseStep(zs [][]float64) (Batch, error) {
	if len(zs) != 1 {
		return Batch{}, errors.New("model: affine encoder expects a single factor level")
	}
	z := zs[0]
	size := e.c * e.h * e.w
	if len(z) == 0 || len(z)%size != 0 {
		return Batch{}, fmt.Errorf("model: latent length %d is not a multiple of image size %d", len(z), size)
	}
	n := len(z) / size
	x := NewBatch(n, e.c, e.h, e.w)
	hw := e.h * e.w
	for i := 0; i < n; i++ {
		for c := 0; c < e.c; c++ {
			s := math.Exp(e.logScale.Data[c])
			b := e.bias.Data[c]
			base := (i*e.c + c) * hw
			for p := 0; p < hw; p++ {
				x.Data[base+p] = z[base+p]/s - b
			}
		}
	}
	return x, nil
}

// Parameters exposes the actnorm weights.
func (e *AffineEncoder) Parameters() []*optimizer.Parameter {
	return []*optimizer.Parameter{e.logScale, e.bias}
}
