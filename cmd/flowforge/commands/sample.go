package commands

import (
	"fmt"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"flowforge/internal/checkpoint"
	"flowforge/internal/dataset"
	"flowforge/internal/hyperparams"
	"flowforge/internal/model"
)

func sampleCmd() *cobra.Command {
	var (
		snapshotPath string
		outDir       string
		count        int
		temperature  float64
		seed         int64
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Draw images from a trained snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			hp, err := hyperparams.Load(snapshotPath)
			if err != nil {
				return err
			}
			enc := model.NewAffineEncoder(hp)
			meta, err := checkpoint.Load(snapshotPath, enc)
			if err != nil {
				return err
			}
			log.WithFields(log.Fields{
				"run_id": meta.RunID,
				"step":   meta.Step,
			}).Info("snapshot loaded")

			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			rng := rand.New(rand.NewSource(seed))

			z := make([]float64, count*hp.NumPixels())
			for i := range z {
				z[i] = rng.NormFloat64() * temperature
			}
			x, err := enc.ReverseStep([][]float64{z})
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			size := x.ImageSize()
			for i := 0; i < x.N; i++ {
				img, err := dataset.ToUint8(x.Data[i*size:(i+1)*size], x.C, x.H, x.W, hp.NumBitsX)
				if err != nil {
					return err
				}
				path := filepath.Join(outDir, fmt.Sprintf("sample-%03d.png", i))
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				if err := png.Encode(f, img); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
			}
			log.WithFields(log.Fields{"count": x.N, "dir": outDir}).Info("samples written")
			return nil
		},
	}

	cmd.Flags().StringVar(&snapshotPath, "snapshot-path", "snapshot", "directory holding the trained snapshot")
	cmd.Flags().StringVar(&outDir, "out", "samples", "output directory for PNG samples")
	cmd.Flags().IntVarP(&count, "count", "n", 16, "number of images to draw")
	cmd.Flags().Float64VarP(&temperature, "temperature", "t", 0.7, "sampling temperature")
	cmd.Flags().Int64Var(&seed, "seed", 0, "PRNG seed (0 picks one from the clock)")

	return cmd
}
