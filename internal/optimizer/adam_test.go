package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestAdamMinimizesQuadratic(t *testing.T) {
	p := &Parameter{Name: "w", Data: []float64{2, -3, 1.5}, Grad: make([]float64, 3)}
	opt := New([]*Parameter{p}, Config{
		Beta1:    0.9,
		Beta2:    0.99,
		Eps:      1e-8,
		Schedule: Schedule{PeakLR: 0.05, FloorLR: 0.05, Period: 100},
	})

	for step := 0; step < 2000; step++ {
		opt.ZeroGrad()
		for i, w := range p.Data {
			p.Grad[i] = 2 * w
		}
		opt.Update(step)
	}
	assert.InDelta(t, 0, floats.Norm(p.Data, 2), 1e-2)
}

func TestAdamGradientClipping(t *testing.T) {
	p := &Parameter{Name: "w", Data: make([]float64, 4), Grad: []float64{3, 4, 0, 0}}
	opt := New([]*Parameter{p}, Config{ClipNorm: 1, Schedule: DefaultSchedule()})

	opt.clip()
	require.InDelta(t, 1, floats.Norm(p.Grad, 2), 1e-12)
	// Direction is preserved.
	assert.InDelta(t, 3.0/5.0, p.Grad[0], 1e-12)
	assert.InDelta(t, 4.0/5.0, p.Grad[1], 1e-12)
}

func TestAdamClipNoopBelowThreshold(t *testing.T) {
	p := &Parameter{Name: "w", Data: make([]float64, 2), Grad: []float64{0.1, 0.1}}
	opt := New([]*Parameter{p}, Config{ClipNorm: 10, Schedule: DefaultSchedule()})
	opt.clip()
	assert.Equal(t, []float64{0.1, 0.1}, p.Grad)
}
