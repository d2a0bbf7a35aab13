// Package npy reads and writes NumPy .npy files (format version 1.0,
// C-ordered float32/float64 arrays only).
package npy

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var magic = []byte("\x93NUMPY")

var (
	descrRegexp   = regexp.MustCompile(`'descr':\s*'([^']+)'`)
	fortranRegexp = regexp.MustCompile(`'fortran_order':\s*(True|False)`)
	shapeRegexp   = regexp.MustCompile(`'shape':\s*\(([^)]*)\)`)
)

// Array is an n-dimensional array decoded to float64.
type Array struct {
	Shape []int
	Data  []float64
}

// Len returns the element count implied by the shape.
func (a *Array) Len() int {
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

// Read decodes a single .npy array from r.
func Read(r io.Reader) (*Array, error) {
	br := bufio.NewReader(r)

	head := make([]byte, 8)
	if _, err := io.ReadFull(br, head); err != nil {
		return nil, fmt.Errorf("npy: read magic: %w", err)
	}
	if !bytes.Equal(head[:6], magic) {
		return nil, fmt.Errorf("npy: bad magic %q", head[:6])
	}
	if head[6] != 1 {
		return nil, fmt.Errorf("npy: unsupported format version %d.%d", head[6], head[7])
	}

	var headerLen uint16
	if err := binary.Read(br, binary.LittleEndian, &headerLen); err != nil {
		return nil, fmt.Errorf("npy: read header length: %w", err)
	}
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("npy: read header: %w", err)
	}

	descr, shape, err := parseHeader(string(header))
	if err != nil {
		return nil, err
	}

	a := &Array{Shape: shape}
	a.Data = make([]float64, a.Len())
	switch descr {
	case "<f8":
		buf := make([]byte, 8)
		for i := range a.Data {
			if _, err := io.ReadFull(br, buf); err != nil {
				return nil, fmt.Errorf("npy: read payload: %w", err)
			}
			a.Data[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf))
		}
	case "<f4":
		buf := make([]byte, 4)
		for i := range a.Data {
			if _, err := io.ReadFull(br, buf); err != nil {
				return nil, fmt.Errorf("npy: read payload: %w", err)
			}
			a.Data[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf)))
		}
	default:
		return nil, fmt.Errorf("npy: unsupported dtype %q", descr)
	}
	return a, nil
}

// Write encodes a as a version 1.0 .npy file with dtype <f8.
func Write(w io.Writer, a *Array) error {
	if a.Len() != len(a.Data) {
		return fmt.Errorf("npy: shape %v does not match %d elements", a.Shape, len(a.Data))
	}
	dims := make([]string, len(a.Shape))
	for i, d := range a.Shape {
		dims[i] = strconv.Itoa(d)
	}
	shape := strings.Join(dims, ", ")
	if len(a.Shape) == 1 {
		shape += ","
	}
	header := fmt.Sprintf("{'descr': '<f8', 'fortran_order': False, 'shape': (%s), }", shape)
	// Total header size (magic + version + length + dict + newline) must be
	// a multiple of 64.
	total := len(magic) + 2 + 2 + len(header) + 1
	if pad := total % 64; pad != 0 {
		header += strings.Repeat(" ", 64-pad)
	}
	header += "\n"

	bw := bufio.NewWriter(w)
	bw.Write(magic)
	bw.WriteByte(1)
	bw.WriteByte(0)
	if err := binary.Write(bw, binary.LittleEndian, uint16(len(header))); err != nil {
		return fmt.Errorf("npy: write header length: %w", err)
	}
	if _, err := bw.WriteString(header); err != nil {
		return fmt.Errorf("npy: write header: %w", err)
	}
	buf := make([]byte, 8)
	for _, v := range a.Data {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("npy: write payload: %w", err)
		}
	}
	return bw.Flush()
}

// ReadFile decodes the .npy file at path.
func ReadFile(path string) (*Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("npy: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// WriteFile encodes a to the file at path.
func WriteFile(path string, a *Array) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("npy: %w", err)
	}
	if err := Write(f, a); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func parseHeader(header string) (descr string, shape []int, err error) {
	m := descrRegexp.FindStringSubmatch(header)
	if m == nil {
		return "", nil, fmt.Errorf("npy: header missing descr: %q", header)
	}
	descr = m[1]

	m = fortranRegexp.FindStringSubmatch(header)
	if m == nil {
		return "", nil, fmt.Errorf("npy: header missing fortran_order: %q", header)
	}
	if m[1] == "True" {
		return "", nil, fmt.Errorf("npy: fortran-ordered arrays are not supported")
	}

	m = shapeRegexp.FindStringSubmatch(header)
	if m == nil {
		return "", nil, fmt.Errorf("npy: header missing shape: %q", header)
	}
	for _, field := range strings.Split(m[1], ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		d, err := strconv.Atoi(field)
		if err != nil {
			return "", nil, fmt.Errorf("npy: bad shape dimension %q: %w", field, err)
		}
		if d < 0 {
			return "", nil, fmt.Errorf("npy: negative shape dimension %d", d)
		}
		shape = append(shape, d)
	}
	return descr, shape, nil
}
