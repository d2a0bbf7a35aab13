package optimizer

import "math"

// Parameter is a named block of weights with its gradient accumulator.
type Parameter struct {
	Name string
	Data []float64
	Grad []float64
}

// NewParameter allocates a zeroed parameter of the given size.
func NewParameter(name string, size int) *Parameter {
	return &Parameter{
		Name: name,
		Data: make([]float64, size),
		Grad: make([]float64, size),
	}
}

// ZeroGrad clears the gradient accumulator.
func (p *Parameter) ZeroGrad() {
	for i := range p.Grad {
		p.Grad[i] = 0
	}
}

// Config holds the Adam hyperparameters and the annealing schedule.
type Config struct {
	Beta1    float64
	Beta2    float64
	Eps      float64
	ClipNorm float64 // 0 disables gradient clipping
	Schedule Schedule
}

// DefaultConfig matches the settings used for flow training.
func DefaultConfig() Config {
	return Config{
		Beta1:    0.9,
		Beta2:    0.99,
		Eps:      1e-8,
		ClipNorm: 0,
		Schedule: DefaultSchedule(),
	}
}

// Adam applies bias-corrected Adam updates with a cyclical learning rate
// and optional global L2 gradient clipping.
type Adam struct {
	cfg    Config
	params []*Parameter
	m      [][]float64
	v      [][]float64
	t      int
	lastLR float64
}

// New builds an Adam optimizer over the given parameters.
func New(params []*Parameter, cfg Config) *Adam {
	if cfg.Beta1 <= 0 {
		cfg.Beta1 = 0.9
	}
	if cfg.Beta2 <= 0 {
		cfg.Beta2 = 0.99
	}
	if cfg.Eps <= 0 {
		cfg.Eps = 1e-8
	}
	a := &Adam{
		cfg:    cfg,
		params: params,
		m:      make([][]float64, len(params)),
		v:      make([][]float64, len(params)),
		lastLR: cfg.Schedule.LearningRate(0),
	}
	for i, p := range params {
		a.m[i] = make([]float64, len(p.Data))
		a.v[i] = make([]float64, len(p.Data))
	}
	return a
}

// LearningRate returns the rate applied by the most recent update.
func (a *Adam) LearningRate() float64 {
	return a.lastLR
}

// ZeroGrad clears every parameter gradient.
func (a *Adam) ZeroGrad() {
	for _, p := range a.params {
		p.ZeroGrad()
	}
}

// Update applies one optimization step using the schedule's rate for the
// given training step.
func (a *Adam) Update(step int) {
	a.clip()
	a.t++
	lr := a.cfg.Schedule.LearningRate(step)
	a.lastLR = lr

	c1 := 1 - math.Pow(a.cfg.Beta1, float64(a.t))
	c2 := 1 - math.Pow(a.cfg.Beta2, float64(a.t))

	for i, p := range a.params {
		m := a.m[i]
		v := a.v[i]
		for j, g := range p.Grad {
			m[j] = a.cfg.Beta1*m[j] + (1-a.cfg.Beta1)*g
			v[j] = a.cfg.Beta2*v[j] + (1-a.cfg.Beta2)*g*g
			mHat := m[j] / c1
			vHat := v[j] / c2
			p.Data[j] -= lr * mHat / (math.Sqrt(vHat) + a.cfg.Eps)
		}
	}
}

// clip rescales all gradients when their global L2 norm exceeds ClipNorm.
func (a *Adam) clip() {
	if a.cfg.ClipNorm <= 0 {
		return
	}
	var sq float64
	for _, p := range a.params {
		for _, g := range p.Grad {
			sq += g * g
		}
	}
	norm := math.Sqrt(sq)
	if norm <= a.cfg.ClipNorm {
		return
	}
	rate := a.cfg.ClipNorm / norm
	for _, p := range a.params {
		for j := range p.Grad {
			p.Grad[j] *= rate
		}
	}
}
