package trainer

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"

	"flowforge/internal/checkpoint"
	"flowforge/internal/dataset"
	"flowforge/internal/hyperparams"
	"flowforge/internal/loss"
	"flowforge/internal/metrics"
	"flowforge/internal/model"
	"flowforge/internal/optimizer"
)

// RunConfig captures the knobs required by the training loop.
type RunConfig struct {
	Dataset     *dataset.Dataset
	Encoder     model.Encoder
	Hyperparams *hyperparams.Hyperparameters

	SnapshotPath    string
	Epochs          int
	BatchSize       int
	RegularizeZ     bool
	Seed            int64
	LogEvery        int
	CheckpointEvery int

	// StartStep continues the schedule of a resumed run.
	StartStep int
	RunID     string

	Optimizer optimizer.Config
}

// Run executes the training workload.
func Run(ctx context.Context, cfg RunConfig) error {
	if cfg.Dataset == nil || cfg.Dataset.Len() == 0 {
		return errors.New("trainer: dataset is empty")
	}
	if cfg.Encoder == nil {
		return errors.New("trainer: encoder is required")
	}
	if cfg.Hyperparams == nil {
		return errors.New("trainer: hyperparameters are required")
	}
	if cfg.Epochs <= 0 {
		return errors.New("trainer: epochs must be > 0")
	}
	if cfg.BatchSize <= 0 {
		return errors.New("trainer: batch size must be > 0")
	}
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = 1
	}
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = 100
	}
	if cfg.RunID == "" {
		cfg.RunID = checkpoint.NewRunID()
	}

	enc := cfg.Encoder
	rng := rand.New(rand.NewSource(cfg.Seed))
	it := dataset.NewIterator(cfg.Dataset.Len(), cfg.BatchSize, cfg.Seed)
	opt := optimizer.New(enc.Parameters(), cfg.Optimizer)

	numBins := float64(cfg.Hyperparams.NumBins())
	numPixels := float64(cfg.Hyperparams.NumPixels())
	denom := math.Ln2 * numPixels
	// Discretization correction for the change from densities to
	// bin probabilities.
	correction := math.Log(numBins) * numPixels

	// Data dependent initialization
	if enc.NeedInit() {
		indices, ok := it.Next()
		if !ok {
			return errors.New("trainer: no batch available for actnorm init")
		}
		enc.InitActnorm(cfg.Dataset.Batch(indices))
		it.Reset()
	}

	logger := log.WithFields(log.Fields{"run_id": cfg.RunID})
	logger.WithFields(log.Fields{
		"images":  cfg.Dataset.Len(),
		"batches": it.Len(),
		"epochs":  cfg.Epochs,
	}).Info("training started")

	step := cfg.StartStep
	var window metrics.Window

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		it.Reset()
		epochStats := metrics.StartEpoch()

		batchIndex := 0
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			indices, ok := it.Next()
			if !ok {
				break
			}
			batchIndex++

			startData := time.Now()
			x := cfg.Dataset.Batch(indices)
			for i := range x.Data {
				x.Data[i] += rng.Float64() / numBins
			}
			dataTime := time.Since(startData)

			startCompute := time.Now()
			stats, err := trainStep(enc, opt, x, step, cfg.RegularizeZ, denom, correction)
			if err != nil {
				return err
			}
			computeTime := time.Since(startCompute)
			step++

			window.Record(x.N, dataTime, computeTime, stats)
			epochStats.Record(stats)

			if batchIndex%cfg.LogEvery == 0 {
				snap := window.Snapshot()
				logger.WithFields(log.Fields{
					"epoch":          epoch,
					"batch":          batchIndex,
					"batches":        it.Len(),
					"loss":           snap.Last.Loss,
					"nll":            snap.Last.NLL,
					"kld":            snap.Last.KLD,
					"log_det":        snap.Last.LogDet,
					"lr":             opt.LearningRate(),
					"images_per_sec": snap.ImagesPerSec,
					"data_ms":        snap.AvgDataMS,
					"compute_ms":     snap.AvgComputeMS,
				}).Info("train step")
			}

			if batchIndex%cfg.CheckpointEvery == 0 {
				if err := saveSnapshot(cfg, enc, step); err != nil {
					return err
				}
			}
		}

		summary := epochStats.Summary()
		logger.WithFields(log.Fields{
			"epoch":          epoch,
			"loss":           summary.MeanLoss,
			"log_likelihood": summary.MeanLogLikelihood,
			"kld":            summary.MeanKLD,
			"elapsed_min":    summary.Elapsed.Minutes(),
		}).Info("epoch finished")

		if err := saveSnapshot(cfg, enc, step); err != nil {
			return err
		}
	}

	return nil
}

// trainStep runs forward, loss, backward, and one optimizer update for a
// single minibatch, returning normalized loss terms.
func trainStep(enc model.Encoder, opt *optimizer.Adam, x model.Batch, step int,
	regularizeZ bool, denom, correction float64) (metrics.StepStats, error) {

	f, err := enc.ForwardStep(x)
	if err != nil {
		return metrics.StepStats{}, err
	}
	logDet := f.LogDet - correction

	var nll, kld float64
	for _, zd := range f.Factorized {
		nll += loss.GaussianNLL(zd.Z, zd.Mean, zd.LnVar)
		if regularizeZ {
			kld += loss.GaussianKL(zd.Mean, zd.LnVar)
		}
	}

	b := float64(x.N)
	lossVal := ((nll+kld)/b - logDet) / denom

	opt.ZeroGrad()
	zGrads := make([][]float64, len(f.Factorized))
	gradScale := 1 / (b * denom)
	for i, zd := range f.Factorized {
		zGrads[i] = make([]float64, len(zd.Z))
		loss.GaussianNLLGradZ(zd.Z, zd.Mean, zd.LnVar, gradScale, zGrads[i])
	}
	if err := enc.Backward(x, f, zGrads, -1/denom); err != nil {
		return metrics.StepStats{}, err
	}
	opt.Update(step)

	return metrics.StepStats{
		Loss:   lossVal,
		NLL:    nll / b / denom,
		KLD:    kld / b,
		LogDet: logDet / denom,
	}, nil
}

func saveSnapshot(cfg RunConfig, enc model.Encoder, step int) error {
	if cfg.SnapshotPath == "" {
		return nil
	}
	return checkpoint.Save(cfg.SnapshotPath, enc, checkpoint.Meta{
		RunID:   cfg.RunID,
		Step:    step,
		SavedAt: time.Now(),
	})
}
