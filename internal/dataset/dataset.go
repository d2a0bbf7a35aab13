// Package dataset loads image corpora from PNG or NPY files into
// normalized in-memory tensors and serves shuffled minibatches.
package dataset

import (
	"errors"
	"fmt"
	"image/png"
	"os"

	"gonum.org/v1/gonum/stat"

	"flowforge/internal/model"
	"flowforge/internal/npy"
)

// Dataset holds preprocessed images, all with the same geometry.
type Dataset struct {
	images [][]float64
	c      int
	h      int
	w      int
}

// Load reads every file in paths, preprocesses to bits of depth, and
// returns the assembled dataset. NPY files may hold a single HWC image or
// a NHWC batch of them.
func Load(paths []string, format string, bits int) (*Dataset, error) {
	if len(paths) == 0 {
		return nil, errors.New("dataset: no input files")
	}
	if bits < 1 || bits > 8 {
		return nil, fmt.Errorf("dataset: bits per pixel must be in [1, 8], got %d", bits)
	}

	d := &Dataset{}
	for _, path := range paths {
		switch format {
		case FormatPNG:
			if err := d.appendPNG(path, bits); err != nil {
				return nil, err
			}
		case FormatNPY:
			if err := d.appendNPY(path, bits); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("dataset: unsupported format %q", format)
		}
	}
	return d, nil
}

func (d *Dataset) appendPNG(path string, bits int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("dataset: %w", err)
	}
	img, err := png.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("dataset: decode %s: %w", path, err)
	}
	data, c, h, w := decodeImage(img)
	Preprocess(data, bits)
	return d.append(path, data, c, h, w)
}

func (d *Dataset) appendNPY(path string, bits int) error {
	arr, err := npy.ReadFile(path)
	if err != nil {
		return fmt.Errorf("dataset: %s: %w", path, err)
	}
	switch len(arr.Shape) {
	case 3:
		h, w, c := arr.Shape[0], arr.Shape[1], arr.Shape[2]
		data := toCHW(arr.Data, c, h, w)
		Preprocess(data, bits)
		return d.append(path, data, c, h, w)
	case 4:
		n, h, w, c := arr.Shape[0], arr.Shape[1], arr.Shape[2], arr.Shape[3]
		size := h * w * c
		for i := 0; i < n; i++ {
			data := toCHW(arr.Data[i*size:(i+1)*size], c, h, w)
			Preprocess(data, bits)
			if err := d.append(path, data, c, h, w); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("dataset: %s: expected HWC or NHWC array, got shape %v", path, arr.Shape)
	}
}

func (d *Dataset) append(path string, data []float64, c, h, w int) error {
	if len(d.images) == 0 {
		d.c, d.h, d.w = c, h, w
	} else if c != d.c || h != d.h || w != d.w {
		return fmt.Errorf("dataset: %s has shape %dx%dx%d, want %dx%dx%d",
			path, c, h, w, d.c, d.h, d.w)
	}
	d.images = append(d.images, data)
	return nil
}

// toCHW transposes an HWC pixel block into CHW layout.
func toCHW(src []float64, c, h, w int) []float64 {
	dst := make([]float64, len(src))
	hw := h * w
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for ch := 0; ch < c; ch++ {
				dst[ch*hw+y*w+x] = src[(y*w+x)*c+ch]
			}
		}
	}
	return dst
}

// Len returns the number of images.
func (d *Dataset) Len() int { return len(d.images) }

// Channels returns the channel count.
func (d *Dataset) Channels() int { return d.c }

// Height returns the image height.
func (d *Dataset) Height() int { return d.h }

// Width returns the image width.
func (d *Dataset) Width() int { return d.w }

// Stats returns the mean and variance over every pixel of the corpus.
func (d *Dataset) Stats() (mean, variance float64) {
	all := make([]float64, 0, d.Len()*d.c*d.h*d.w)
	for _, img := range d.images {
		all = append(all, img...)
	}
	if len(all) == 0 {
		return 0, 0
	}
	return stat.MeanVariance(all, nil)
}

// Batch assembles the images at indices into an NCHW minibatch.
func (d *Dataset) Batch(indices []int) model.Batch {
	b := model.NewBatch(len(indices), d.c, d.h, d.w)
	size := b.ImageSize()
	for i, idx := range indices {
		copy(b.Data[i*size:(i+1)*size], d.images[idx])
	}
	return b
}
