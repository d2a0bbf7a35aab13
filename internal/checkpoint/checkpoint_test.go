package checkpoint

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowforge/internal/hyperparams"
	"flowforge/internal/model"
)

func testEncoder() *model.AffineEncoder {
	return model.NewAffineEncoder(&hyperparams.Hyperparameters{
		NumChannels: 2, ImageHeight: 4, ImageWidth: 4, NumBitsX: 8,
	})
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rng := rand.New(rand.NewSource(5))

	enc := testEncoder()
	for _, p := range enc.Parameters() {
		for i := range p.Data {
			p.Data[i] = rng.NormFloat64()
		}
	}
	enc.MarkInit()

	meta := Meta{RunID: NewRunID(), Step: 1234}
	require.NoError(t, Save(dir, enc, meta))
	assert.True(t, Exists(dir))

	restored := testEncoder()
	require.True(t, restored.NeedInit())
	got, err := Load(dir, restored)
	require.NoError(t, err)

	assert.False(t, restored.NeedInit())
	assert.Equal(t, meta.RunID, got.RunID)
	assert.Equal(t, meta.Step, got.Step)
	for i, p := range enc.Parameters() {
		assert.Equal(t, p.Data, restored.Parameters()[i].Data)
	}
}

func TestLoadMissingWeights(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, Exists(dir))
	_, err := Load(dir, testEncoder())
	assert.Error(t, err)
}
