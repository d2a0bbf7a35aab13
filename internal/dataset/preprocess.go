package dataset

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// Preprocess quantizes raw pixel values in [0, 255] to bits of depth and
// rescales them into [-0.5, 0.5). The slice is modified in place.
func Preprocess(raw []float64, bits int) {
	bins := float64(int(1) << bits)
	shift := float64(int(1) << (8 - bits))
	for i, v := range raw {
		if bits < 8 {
			v = math.Floor(v / shift)
		}
		raw[i] = v/bins - 0.5
	}
}

// ToUint8 maps one preprocessed CHW image back to an 8-bit image,
// snapping values to quantization bin centers. Single-channel data
// renders as grayscale.
func ToUint8(data []float64, c, h, w, bits int) (image.Image, error) {
	if len(data) != c*h*w {
		return nil, fmt.Errorf("dataset: %d values for %dx%dx%d image", len(data), c, h, w)
	}
	bins := float64(int(1) << bits)
	scale := 255 / bins
	px := func(v float64) uint8 {
		u := math.Floor((v+0.5)*bins) * scale
		return uint8(math.Max(0, math.Min(255, u)))
	}

	switch c {
	case 1:
		img := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.SetGray(x, y, color.Gray{Y: px(data[y*w+x])})
			}
		}
		return img, nil
	case 3:
		img := image.NewNRGBA(image.Rect(0, 0, w, h))
		hw := h * w
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				p := y*w + x
				img.SetNRGBA(x, y, color.NRGBA{
					R: px(data[p]),
					G: px(data[hw+p]),
					B: px(data[2*hw+p]),
					A: 255,
				})
			}
		}
		return img, nil
	default:
		return nil, fmt.Errorf("dataset: cannot render %d-channel image", c)
	}
}

// decodeImage converts a decoded image into CHW float64 data with raw
// 8-bit values. Grayscale sources yield one channel, everything else
// three.
func decodeImage(img image.Image) ([]float64, int, int, int) {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	if gray, ok := img.(*image.Gray); ok {
		data := make([]float64, h*w)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				data[y*w+x] = float64(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			}
		}
		return data, 1, h, w
	}

	hw := h * w
	data := make([]float64, 3*hw)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			p := y*w + x
			data[p] = float64(r >> 8)
			data[hw+p] = float64(g >> 8)
			data[2*hw+p] = float64(b >> 8)
		}
	}
	return data, 3, h, w
}
