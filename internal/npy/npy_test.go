package npy

import (
	"bytes"
	"encoding/binary"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	a := &Array{
		Shape: []int{2, 3},
		Data:  []float64{1, -2.5, 3.25, 0, 1e-9, 42},
	}
	path := filepath.Join(t.TempDir(), "a.npy")
	require.NoError(t, WriteFile(path, a))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, a.Shape, got.Shape)
	assert.Equal(t, a.Data, got.Data)
}

func TestReadFloat32Array(t *testing.T) {
	header := "{'descr': '<f4', 'fortran_order': False, 'shape': (3,), }"
	pad := (len(header) + 11) % 16
	if pad != 0 {
		for i := 0; i < 16-pad; i++ {
			header += " "
		}
	}
	header += "\n"

	buf := &bytes.Buffer{}
	buf.WriteString("\x93NUMPY")
	buf.WriteByte(1)
	buf.WriteByte(0)
	binary.Write(buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	for _, v := range []float32{0.5, -1, 2} {
		binary.Write(buf, binary.LittleEndian, math.Float32bits(v))
	}

	a, err := Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, a.Shape)
	assert.Equal(t, []float64{0.5, -1, 2}, a.Data)
}

func TestReadRejectsFortranOrder(t *testing.T) {
	header := "{'descr': '<f8', 'fortran_order': True, 'shape': (1,), }\n"
	buf := &bytes.Buffer{}
	buf.WriteString("\x93NUMPY")
	buf.WriteByte(1)
	buf.WriteByte(0)
	binary.Write(buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)

	_, err := Read(buf)
	assert.ErrorContains(t, err, "fortran")
}

func TestReadRejectsBadMagic(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("notnumpy")))
	assert.Error(t, err)
}

func TestWriteScalarShapeMismatch(t *testing.T) {
	a := &Array{Shape: []int{4}, Data: []float64{1}}
	err := Write(&bytes.Buffer{}, a)
	assert.Error(t, err)
}
