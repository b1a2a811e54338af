package dataset

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Options controls how input files are read.
type Options struct {
	// Delimiter for CSV. If 0, picked from the extension (.tsv is tab, else comma).
	Delimiter rune
	// SheetName selects an XLSX sheet by name; SheetIndex (1-based) is used otherwise.
	SheetName  string
	SheetIndex int
	// MaxRows truncates the table after loading; 0 means unlimited.
	MaxRows int
}

// Loader reads one file format into a Table.
type Loader interface {
	CanLoad(filename string) bool
	Load(path string, opt Options) (*Table, error)
}

// ErrUnsupported indicates no registered loader accepts the file.
var ErrUnsupported = errors.New("unsupported input format")

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

// Load selects a loader based on filename and returns the parsed table.
func Load(path string, opt Options) (*Table, error) {
	for _, l := range registry {
		if !l.CanLoad(path) {
			continue
		}
		t, err := l.Load(path, opt)
		if err != nil {
			return nil, err
		}
		if opt.MaxRows > 0 && len(t.Rows) > opt.MaxRows {
			t.Rows = t.Rows[:opt.MaxRows]
		}
		return t, nil
	}
	return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupported)
}

type csvLoader struct{}

func (csvLoader) CanLoad(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".csv" || ext == ".tsv" || ext == ".txt"
}

func (csvLoader) Load(path string, opt Options) (*Table, error) { return ReadCSV(path, opt) }

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

func (xlsxLoader) Load(path string, opt Options) (*Table, error) {
	return ReadXLSX(path, opt.SheetName, opt.SheetIndex)
}

func init() {
	Register(csvLoader{})
	Register(xlsxLoader{})
}
