// Package checkpoint persists encoder weights and run metadata in a
// snapshot directory.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"flowforge/internal/model"
	"flowforge/internal/npy"
)

const (
	weightsDir = "weights"
	runFile    = "run.json"
)

// Meta records the identity and progress of a training run.
type Meta struct {
	RunID   string    `json:"run_id"`
	Step    int       `json:"step"`
	SavedAt time.Time `json:"saved_at"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Exists reports whether dir contains saved weights.
func Exists(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, weightsDir))
	return err == nil && info.IsDir()
}

// Save writes every encoder parameter as a .npy file plus run metadata.
func Save(dir string, enc model.Encoder, meta Meta) error {
	wdir := filepath.Join(dir, weightsDir)
	if err := os.MkdirAll(wdir, 0o755); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	for _, p := range enc.Parameters() {
		arr := &npy.Array{Shape: []int{len(p.Data)}, Data: p.Data}
		if err := npy.WriteFile(filepath.Join(wdir, paramFile(p.Name)), arr); err != nil {
			return fmt.Errorf("checkpoint: save %s: %w", p.Name, err)
		}
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: marshal meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, runFile), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("checkpoint: write meta: %w", err)
	}
	return nil
}

// Load restores encoder weights from dir and marks the encoder
// initialized. It returns the saved metadata; a missing run file yields a
// zero Meta.
func Load(dir string, enc model.Encoder) (Meta, error) {
	wdir := filepath.Join(dir, weightsDir)
	for _, p := range enc.Parameters() {
		arr, err := npy.ReadFile(filepath.Join(wdir, paramFile(p.Name)))
		if err != nil {
			return Meta{}, fmt.Errorf("checkpoint: load %s: %w", p.Name, err)
		}
		if len(arr.Data) != len(p.Data) {
			return Meta{}, fmt.Errorf("checkpoint: %s has %d weights, want %d",
				p.Name, len(arr.Data), len(p.Data))
		}
		copy(p.Data, arr.Data)
	}
	enc.MarkInit()
	return ReadMeta(dir)
}

// ReadMeta returns the run metadata stored in dir; a missing run file
// yields a zero Meta.
func ReadMeta(dir string) (Meta, error) {
	var meta Meta
	data, err := os.ReadFile(filepath.Join(dir, runFile))
	if os.IsNotExist(err) {
		return meta, nil
	}
	if err != nil {
		return Meta{}, fmt.Errorf("checkpoint: read meta: %w", err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, fmt.Errorf("checkpoint: parse meta: %w", err)
	}
	return meta, nil
}

// paramFile maps a parameter name to its weight file name.
func paramFile(name string) string {
	return strings.ReplaceAll(name, "/", "_") + ".npy"
}
