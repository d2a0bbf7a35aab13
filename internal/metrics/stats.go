package metrics

import "time"

// StepStats holds the loss terms of one training step, already
// normalized per sample and per dimension where applicable.
type StepStats struct {
	Loss   float64
	NLL    float64
	KLD    float64
	LogDet float64
}

// Window accumulates timing stats across multiple steps.
type Window struct {
	samples int
	data    time.Duration
	compute time.Duration
	steps   int
	last    StepStats
}

// Record adds a new measurement to the window.
func (w *Window) Record(batchSize int, dataTime, computeTime time.Duration, step StepStats) {
	w.samples += batchSize
	w.data += dataTime
	w.compute += computeTime
	w.steps++
	w.last = step
}

// Snapshot returns aggregated metrics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{Last: w.last}
	total := w.data + w.compute
	if total > 0 {
		snap.ImagesPerSec = float64(w.samples) / total.Seconds()
	}
	if w.steps > 0 {
		snap.AvgDataMS = (w.data.Seconds() * 1000) / float64(w.steps)
		snap.AvgComputeMS = (w.compute.Seconds() * 1000) / float64(w.steps)
	}

	w.samples = 0
	w.data = 0
	w.compute = 0
	w.steps = 0
	return snap
}

// Snapshot represents loggable metrics.
type Snapshot struct {
	ImagesPerSec float64
	AvgDataMS    float64
	AvgComputeMS float64
	Last         StepStats
}

// Epoch accumulates loss terms across one pass over the dataset.
type Epoch struct {
	start   time.Time
	batches int
	loss    float64
	nll     float64
	kld     float64
}

// StartEpoch begins a new epoch accumulation.
func StartEpoch() Epoch {
	return Epoch{start: time.Now()}
}

// Record adds one batch's stats.
func (e *Epoch) Record(step StepStats) {
	e.batches++
	e.loss += step.Loss
	e.nll += step.NLL
	e.kld += step.KLD
}

// Summary returns the epoch means and elapsed wall time.
func (e *Epoch) Summary() EpochSummary {
	s := EpochSummary{Elapsed: time.Since(e.start)}
	if e.batches > 0 {
		n := float64(e.batches)
		s.MeanLoss = e.loss / n
		s.MeanLogLikelihood = -e.nll / n
		s.MeanKLD = e.kld / n
	}
	return s
}

// EpochSummary is the end-of-epoch log line payload.
type EpochSummary struct {
	MeanLoss          float64
	MeanLogLikelihood float64
	MeanKLD           float64
	Elapsed           time.Duration
}
