package dataset

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Formats accepted for dataset files.
const (
	FormatPNG = "png"
	FormatNPY = "npy"
)

// ValidFormat reports whether format names a supported dataset encoding.
func ValidFormat(format string) bool {
	return format == FormatPNG || format == FormatNPY
}

// Discover returns sorted paths to dataset files of the given format
// beneath root.
func Discover(root, format string) ([]string, error) {
	if !ValidFormat(format) {
		return nil, fmt.Errorf("dataset: unsupported format %q", format)
	}
	suffix := "." + format
	entries := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(d.Name()), suffix) {
			entries = append(entries, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dataset: discover: %w", err)
	}
	sort.Strings(entries)
	return entries, nil
}
