package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"flowforge/internal/checkpoint"
	"flowforge/internal/config"
	"flowforge/internal/dataset"
	"flowforge/internal/hyperparams"
	"flowforge/internal/model"
	"flowforge/internal/optimizer"
	"flowforge/internal/trainer"
)

func trainCmd() *cobra.Command {
	var o config.Overrides

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a flow encoder on an image dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			cfg.ApplyOverrides(o)
			if err := cfg.Validate(); err != nil {
				return err
			}
			if logLevel == "" && logFormat == "" {
				if err := setupLogger(cfg.Logger.Level, cfg.Logger.Format); err != nil {
					return err
				}
			}
			return runTraining(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&o.DatasetPath, "dataset-path", "", "directory holding the training images")
	cmd.Flags().StringVar(&o.DatasetFormat, "dataset-format", "", "dataset file format: png or npy")
	cmd.Flags().StringVar(&o.SnapshotPath, "snapshot-path", "", "directory for checkpoints")
	cmd.Flags().IntVarP(&o.BatchSize, "batch-size", "b", 0, "minibatch size")
	cmd.Flags().IntVar(&o.Epochs, "epochs", 0, "number of passes over the dataset")
	cmd.Flags().IntVar(&o.Levels, "levels", 0, "number of flow levels")
	cmd.Flags().IntVar(&o.DepthPerLevel, "depth-per-level", 0, "flow steps per level")
	cmd.Flags().IntVar(&o.HiddenChannels, "nn-hidden-channels", 0, "coupling network hidden channels")
	cmd.Flags().IntVar(&o.NumBitsX, "num-bits-x", 0, "input bit depth (1-8)")
	cmd.Flags().IntVar(&o.SqueezeFactor, "squeeze-factor", 0, "spatial squeeze factor")
	cmd.Flags().BoolVar(&o.LUDecomposition, "lu-decomposition", false, "use LU-decomposed invertible convolutions")
	cmd.Flags().BoolVar(&o.RegularizeZ, "regularize-z", false, "add KL regularization on the latent prior")
	cmd.Flags().Int64Var(&o.Seed, "seed", 0, "PRNG seed")
	cmd.Flags().IntVar(&o.LogEvery, "log-every", 0, "log every N batches")
	cmd.Flags().IntVar(&o.CheckpointEvery, "checkpoint-every", 0, "checkpoint every N batches")

	return cmd
}

func runTraining(parent context.Context, cfg *config.Config) error {
	paths, err := dataset.Discover(cfg.DatasetPath, cfg.DatasetFormat)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no %s files found under %s", cfg.DatasetFormat, cfg.DatasetPath)
	}

	ds, err := dataset.Load(paths, cfg.DatasetFormat, cfg.NumBitsX)
	if err != nil {
		return err
	}
	mean, variance := ds.Stats()
	log.WithFields(log.Fields{
		"files":  len(paths),
		"images": ds.Len(),
		"mean":   mean,
		"var":    variance,
	}).Info("dataset loaded")

	resume := checkpoint.Exists(cfg.SnapshotPath)

	var hp *hyperparams.Hyperparameters
	if resume {
		hp, err = hyperparams.Load(cfg.SnapshotPath)
		if err != nil {
			return err
		}
		if hp.NumChannels != ds.Channels() || hp.ImageHeight != ds.Height() || hp.ImageWidth != ds.Width() {
			return fmt.Errorf("snapshot was trained on %dx%dx%d images, dataset is %dx%dx%d",
				hp.NumChannels, hp.ImageHeight, hp.ImageWidth,
				ds.Channels(), ds.Height(), ds.Width())
		}
	} else {
		hp = &hyperparams.Hyperparameters{
			Levels:          cfg.Levels,
			DepthPerLevel:   cfg.DepthPerLevel,
			HiddenChannels:  cfg.HiddenChannels,
			NumChannels:     ds.Channels(),
			ImageHeight:     ds.Height(),
			ImageWidth:      ds.Width(),
			NumBitsX:        cfg.NumBitsX,
			SqueezeFactor:   cfg.SqueezeFactor,
			LUDecomposition: cfg.LUDecomposition,
		}
		if err := os.MkdirAll(cfg.SnapshotPath, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
		if err := hp.Save(cfg.SnapshotPath); err != nil {
			return err
		}
	}
	fmt.Print(hp.Table())

	enc := model.NewAffineEncoder(hp)

	var startStep int
	var runID string
	if resume {
		meta, err := checkpoint.Load(cfg.SnapshotPath, enc)
		if err != nil {
			return err
		}
		startStep = meta.Step
		runID = meta.RunID
		log.WithFields(log.Fields{"run_id": runID, "step": startStep}).Info("resuming from snapshot")
	}

	optCfg := optimizer.DefaultConfig()
	optCfg.ClipNorm = cfg.ClipNorm
	optCfg.Schedule = optimizer.Schedule{
		PeakLR:  cfg.PeakLR,
		FloorLR: cfg.FloorLR,
		Period:  cfg.CyclePeriod,
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return trainer.Run(ctx, trainer.RunConfig{
		Dataset:         ds,
		Encoder:         enc,
		Hyperparams:     hp,
		SnapshotPath:    cfg.SnapshotPath,
		Epochs:          cfg.Epochs,
		BatchSize:       cfg.BatchSize,
		RegularizeZ:     cfg.RegularizeZ,
		Seed:            cfg.Seed,
		LogEvery:        cfg.LogEvery,
		CheckpointEvery: cfg.CheckpointEvery,
		StartStep:       startStep,
		RunID:           runID,
		Optimizer:       optCfg,
	})
}
