package model

import "flowforge/internal/optimizer"

// Batch is a minibatch of images in NCHW layout.
type Batch struct {
	Data []float64
	N    int
	C    int
	H    int
	W    int
}

// NewBatch allocates a zeroed batch.
func NewBatch(n, c, h, w int) Batch {
	return Batch{Data: make([]float64, n*c*h*w), N: n, C: c, H: h, W: w}
}

// ImageSize returns the per-image element count.
func (b Batch) ImageSize() int {
	return b.C * b.H * b.W
}

// ZDistribution is one factorized latent level: the latent values and the
// diagonal Gaussian they are scored against.
type ZDistribution struct {
	Z     []float64
	Mean  []float64
	LnVar []float64
}

// Forward is the result of one encoding pass.
type Forward struct {
	// Factorized holds the latent levels in factorization order.
	Factorized []ZDistribution
	// LogDet is the per-sample mean log-determinant of the transform's
	// Jacobian.
	LogDet float64
}

// Encoder is the boundary to the invertible flow model. Gradient
// computation inside the transform belongs to the encoder; the trainer
// supplies the loss gradients at the latent boundary.
type Encoder interface {
	// NeedInit reports whether data-dependent initialization is pending.
	NeedInit() bool
	// InitActnorm initializes normalization weights from the first batch.
	InitActnorm(x Batch)
	// MarkInit suppresses data-dependent initialization, used after
	// restoring weights from a snapshot.
	MarkInit()
	// ForwardStep encodes x into factorized latents.
	ForwardStep(x Batch) (*Forward, error)
	// Backward accumulates parameter gradients. zGrads holds the loss
	// gradient w.r.t. each factorized level's Z, logDetGrad the gradient
	// w.r.t. the mean log-determinant.
	Backward(x Batch, f *Forward, zGrads [][]float64, logDetGrad float64) error
	// ReverseStep maps factorized latents back to image space.
	ReverseStep(zs [][]float64) (Batch, error)
	// Parameters exposes the trainable weights.
	Parameters() []*optimizer.Parameter
}
