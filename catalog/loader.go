package catalog

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/giygas/mfds-matcher/logging"
	"golang.org/x/text/encoding/korean"
)

// ErrUnsupportedFormat is returned for file extensions the loader cannot read.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Table is a parsed tabular file: cleaned headers in file order and one Row per data line.
type Table struct {
	Name    string
	Headers []string
	Rows    []Row
}

// LoadFile reads a .csv, .tsv, .txt or .json file into a Table.
func LoadFile(path string) (*Table, error) {
	cleanPath := filepath.Clean(path)
	content, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", cleanPath, err)
	}

	table, err := Parse(filepath.Base(cleanPath), bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", cleanPath, err)
	}
	return table, nil
}

// Parse reads a table from r, choosing the format from the extension of name.
func Parse(name string, r io.Reader) (*Table, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	reader, err := decodeText(content)
	if err != nil {
		return nil, err
	}

	var table *Table
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		table, err = parseDelimited(reader, ',')
	case ".tsv", ".txt":
		table, err = parseDelimited(reader, '\t')
	case ".json":
		table, err = parseJSON(reader)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
	if err != nil {
		return nil, err
	}

	table.Name = name
	return table, nil
}

// decodeText strips a UTF-8 byte order mark. Files that are not valid UTF-8 are assumed to be
// EUC-KR, the encoding of MFDS exports.
func decodeText(content []byte) (io.Reader, error) {
	if utf8.Valid(content) {
		return bytes.NewReader(bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))), nil
	}

	decoded, err := io.ReadAll(korean.EUCKR.NewDecoder().Reader(bytes.NewReader(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode EUC-KR input: %w", err)
	}
	logging.Debug("Input decoded from EUC-KR", "bytes", len(content))
	return bytes.NewReader(decoded), nil
}

func parseDelimited(r io.Reader, comma rune) (*Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	headers := make([]string, len(header))
	for i, h := range header {
		headers[i] = cleanHeader(h)
	}

	table := &Table{Headers: headers}
	lineCount := 0
	skippedBlank := 0
	shortLines := 0

	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", lineCount+2, err)
		}
		lineCount++

		if isBlank(fields) {
			skippedBlank++
			continue
		}
		if len(fields) < len(headers) {
			shortLines++
		}

		row := make(Row, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(fields) {
				row[h] = fields[i]
			} else {
				row[h] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}

	if skippedBlank > 0 || shortLines > 0 {
		logging.Info("Delimited file skip statistics",
			"blank_lines", skippedBlank,
			"short_lines", shortLines,
			"total_lines", lineCount,
			"rows_parsed", len(table.Rows))
	}

	return table, nil
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// parseJSON reads an array of flat objects. Headers are the union of all keys, sorted.
func parseJSON(r io.Reader) (*Table, error) {
	var objects []map[string]any
	if err := json.NewDecoder(r).Decode(&objects); err != nil {
		if err == io.EOF {
			return &Table{}, nil
		}
		return nil, fmt.Errorf("failed to decode JSON array: %w", err)
	}

	seen := make(map[string]struct{})
	table := &Table{Rows: make([]Row, 0, len(objects))}
	for _, obj := range objects {
		row := make(Row, len(obj))
		for k, v := range obj {
			h := cleanHeader(k)
			row[h] = v
			seen[h] = struct{}{}
		}
		table.Rows = append(table.Rows, row)
	}
	table.Headers = slices.Sorted(maps.Keys(seen))
	return table, nil
}

// FileLoader loads the reference catalog from a file on disk.
type FileLoader struct {
	Path string
}

// NewFileLoader returns a loader reading the catalog at path.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{Path: path}
}

// LoadCatalog reads, resolves columns and ingests the catalog file.
func (l *FileLoader) LoadCatalog() ([]ReferenceRecord, error) {
	table, err := LoadFile(l.Path)
	if err != nil {
		return nil, err
	}
	rows, err := CatalogRows(table)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", table.Name, err)
	}
	records := Ingest(rows)
	logging.Info("Catalog loaded", "path", l.Path, "records", len(records))
	return records, nil
}

// LoadSources reads a source list file.
func LoadSources(path string) ([]SourceRecord, error) {
	table, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	rows, err := SourceRows(table)
	if err != nil {
		return nil, fmt.Errorf("source list %s: %w", table.Name, err)
	}
	return SourcesFromRows(rows), nil
}

// LoadMappings reads a manual mapping file.
func LoadMappings(path string) ([]MappingEntry, error) {
	table, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseMappingRows(table), nil
}
