package dataset

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowforge/internal/npy"
)

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 37 % 256),
				G: uint8(y * 53 % 256),
				B: uint8((x + y) * 11 % 256),
				A: 255,
			})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestDiscoverSortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "b.png"), 4, 4)
	writeTestPNG(t, filepath.Join(dir, "a.png"), 4, 4)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	paths, err := Discover(dir, FormatPNG)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, "a.png", filepath.Base(paths[0]))
	assert.Equal(t, "b.png", filepath.Base(paths[1]))
}

func TestDiscoverRejectsUnknownFormat(t *testing.T) {
	_, err := Discover(t.TempDir(), "gif")
	assert.Error(t, err)
}

func TestPreprocessRange(t *testing.T) {
	raw := []float64{0, 127, 255}
	Preprocess(raw, 8)
	assert.InDelta(t, -0.5, raw[0], 1e-12)
	for _, v := range raw {
		assert.GreaterOrEqual(t, v, -0.5)
		assert.Less(t, v, 0.5)
	}
}

func TestPreprocessBitReduction(t *testing.T) {
	// With 5 bits, values collapse to 32 bins of width 8.
	a := []float64{16}
	b := []float64{23}
	Preprocess(a, 5)
	Preprocess(b, 5)
	assert.Equal(t, a[0], b[0])

	c := []float64{24}
	Preprocess(c, 5)
	assert.NotEqual(t, a[0], c[0])
}

func TestToUint8InvertsPreprocess(t *testing.T) {
	raw := []float64{0, 8, 96, 248}
	pre := append([]float64{}, raw...)
	Preprocess(pre, 5)
	img, err := ToUint8(pre, 1, 2, 2, 5)
	require.NoError(t, err)
	gray := img.(*image.Gray)
	// Bin floors scaled back to [0, 255].
	assert.Equal(t, uint8(0), gray.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(7), gray.GrayAt(1, 0).Y)
	assert.Equal(t, uint8(95), gray.GrayAt(0, 1).Y)
	assert.Equal(t, uint8(247), gray.GrayAt(1, 1).Y)
}

func TestLoadPNGDataset(t *testing.T) {
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "a.png"), 6, 5)
	writeTestPNG(t, filepath.Join(dir, "b.png"), 6, 5)

	paths, err := Discover(dir, FormatPNG)
	require.NoError(t, err)
	ds, err := Load(paths, FormatPNG, 8)
	require.NoError(t, err)

	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, 3, ds.Channels())
	assert.Equal(t, 5, ds.Height())
	assert.Equal(t, 6, ds.Width())

	mean, variance := ds.Stats()
	assert.GreaterOrEqual(t, mean, -0.5)
	assert.Less(t, mean, 0.5)
	assert.Greater(t, variance, 0.0)
}

func TestLoadRejectsMixedShapes(t *testing.T) {
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "a.png"), 4, 4)
	writeTestPNG(t, filepath.Join(dir, "b.png"), 5, 4)

	paths, err := Discover(dir, FormatPNG)
	require.NoError(t, err)
	_, err = Load(paths, FormatPNG, 8)
	assert.Error(t, err)
}

func TestLoadNPYBatchedArray(t *testing.T) {
	dir := t.TempDir()
	// NHWC batch of 3 single-channel 2x2 images.
	arr := &npy.Array{Shape: []int{3, 2, 2, 1}, Data: make([]float64, 12)}
	for i := range arr.Data {
		arr.Data[i] = float64(i * 20 % 256)
	}
	require.NoError(t, npy.WriteFile(filepath.Join(dir, "batch.npy"), arr))

	paths, err := Discover(dir, FormatNPY)
	require.NoError(t, err)
	ds, err := Load(paths, FormatNPY, 8)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, 1, ds.Channels())
	assert.Equal(t, 2, ds.Height())
	assert.Equal(t, 2, ds.Width())
}

func TestBatchAssemblesNCHW(t *testing.T) {
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "a.png"), 3, 3)
	paths, err := Discover(dir, FormatPNG)
	require.NoError(t, err)
	ds, err := Load(paths, FormatPNG, 8)
	require.NoError(t, err)

	b := ds.Batch([]int{0, 0})
	assert.Equal(t, 2, b.N)
	assert.Equal(t, b.ImageSize()*2, len(b.Data))
	assert.Equal(t, b.Data[:b.ImageSize()], b.Data[b.ImageSize():])
}

func TestIteratorCoversEverySampleOnce(t *testing.T) {
	it := NewIterator(10, 3, 1)
	assert.Equal(t, 4, it.Len())

	seen := map[int]int{}
	batches := 0
	for {
		batch, ok := it.Next()
		if !ok {
			break
		}
		batches++
		for _, idx := range batch {
			seen[idx]++
		}
	}
	assert.Equal(t, 4, batches)
	require.Len(t, seen, 10)
	for idx, count := range seen {
		assert.Equalf(t, 1, count, "index %d", idx)
	}

	it.Reset()
	_, ok := it.Next()
	assert.True(t, ok)
}
