package hyperparams

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	h := &Hyperparameters{
		Levels:          5,
		DepthPerLevel:   32,
		HiddenChannels:  512,
		NumChannels:     3,
		ImageHeight:     64,
		ImageWidth:      64,
		NumBitsX:        5,
		SqueezeFactor:   2,
		LUDecomposition: true,
	}
	require.NoError(t, h.Save(dir))

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestDerivedQuantities(t *testing.T) {
	h := &Hyperparameters{NumChannels: 3, ImageHeight: 32, ImageWidth: 32, NumBitsX: 8}
	assert.Equal(t, 256, h.NumBins())
	assert.Equal(t, 3*32*32, h.NumPixels())
}

func TestTableListsEveryField(t *testing.T) {
	h := &Hyperparameters{Levels: 5, NumBitsX: 8, SqueezeFactor: 2}
	table := h.Table()
	for _, key := range []string{"levels", "depth_per_level", "nn_hidden_channels",
		"image_size", "num_bits_x", "squeeze_factor", "lu_decomposition"} {
		assert.Contains(t, table, key)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}
