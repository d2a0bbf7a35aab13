// Package hyperparams holds the persistent hyperparameter record stored
// alongside model snapshots.
package hyperparams

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
)

const fileName = "hyperparams.json"

// Hyperparameters describes the encoder architecture and the input
// quantization. The record is written once when a run starts and consumed
// by the encoder on resume.
type Hyperparameters struct {
	Levels          int  `json:"levels"`
	DepthPerLevel   int  `json:"depth_per_level"`
	HiddenChannels  int  `json:"nn_hidden_channels"`
	NumChannels     int  `json:"num_channels"`
	ImageHeight     int  `json:"image_height"`
	ImageWidth      int  `json:"image_width"`
	NumBitsX        int  `json:"num_bits_x"`
	SqueezeFactor   int  `json:"squeeze_factor"`
	LUDecomposition bool `json:"lu_decomposition"`
}

// NumBins returns the number of quantization bins per pixel.
func (h *Hyperparameters) NumBins() int {
	return 1 << h.NumBitsX
}

// NumPixels returns the per-image element count.
func (h *Hyperparameters) NumPixels() int {
	return h.NumChannels * h.ImageHeight * h.ImageWidth
}

// Save writes the record into dir.
func (h *Hyperparameters) Save(dir string) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("hyperparams: marshal: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, fileName), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("hyperparams: write: %w", err)
	}
	return nil
}

// Load reads the record from dir.
func Load(dir string) (*Hyperparameters, error) {
	data, err := os.ReadFile(filepath.Join(dir, fileName))
	if err != nil {
		return nil, fmt.Errorf("hyperparams: read: %w", err)
	}
	h := &Hyperparameters{}
	if err := json.Unmarshal(data, h); err != nil {
		return nil, fmt.Errorf("hyperparams: parse: %w", err)
	}
	return h, nil
}

// Table renders the record as an aligned two-column table for logs.
func (h *Hyperparameters) Table() string {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "levels\t%d\n", h.Levels)
	fmt.Fprintf(tw, "depth_per_level\t%d\n", h.DepthPerLevel)
	fmt.Fprintf(tw, "nn_hidden_channels\t%d\n", h.HiddenChannels)
	fmt.Fprintf(tw, "image_size\t%dx%dx%d\n", h.NumChannels, h.ImageHeight, h.ImageWidth)
	fmt.Fprintf(tw, "num_bits_x\t%d\n", h.NumBitsX)
	fmt.Fprintf(tw, "squeeze_factor\t%d\n", h.SqueezeFactor)
	fmt.Fprintf(tw, "lu_decomposition\t%v\n", h.LUDecomposition)
	tw.Flush()
	return b.String()
}
