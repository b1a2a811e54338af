package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/shopseg-cli/internal/utils"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ReadCSV loads a delimited file. Every cell is kept as raw text so that
// numeric coercion happens in one place downstream.
func ReadCSV(path string, opt Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	return ParseCSV(f, filepath.Base(path), delim)
}

// ParseCSV reads delimited text with a header row from r. A zero delimiter
// means comma. Rows may be shorter or longer than the header; New pads or
// truncates them. Header-only input yields a table with no rows.
func ParseCSV(r io.Reader, name string, delim rune) (*Table, error) {
	if delim == 0 {
		delim = ','
	}
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return New(name, nil, nil), nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = append([]string(nil), header...)
	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, rec)
	}
	return New(name, header, rows), nil
}

// WriteCSV writes the table as comma-separated text with a header row.
func WriteCSV(t *Table, path string) error {
	if t.Len() == 0 {
		return fmt.Errorf("write csv %s: %w", filepath.Base(path), ErrNoRows)
	}
	types := make(map[string]series.Type, len(t.Columns))
	for _, c := range t.Columns {
		types[c] = series.String
	}
	df := dataframe.LoadRecords(t.Records(),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(types),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return fmt.Errorf("build csv: %w", df.Err)
	}
	var buf bytes.Buffer
	if err := df.WriteCSV(&buf); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

func sniffDelimiter(path string) rune {
	name := strings.ToLower(path)
	if strings.HasSuffix(name, ".tsv") {
		return '\t'
	}
	return ','
}
