package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Julian1897/smart-data-qa/internal/model/dataset"
	"github.com/Julian1897/smart-data-qa/internal/model/qa"
)

// allowedExtensions 列出允许上传的表格格式。
var allowedExtensions = map[string]bool{
	".csv": true,
	".tsv": true,
	".txt": true,
}

// SupportedFile reports whether the file name carries an allow-listed tabular
// extension.
func SupportedFile(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}

// Parse reads CSV/TSV content into a dataset.Table. Input is normalized to
// UTF-8 first (BOM stripped, legacy encodings decoded), column names are
// sanitized into valid SQLite identifiers, duplicates are deduplicated and
// ragged rows are padded or truncated to the header width.
func Parse(r io.Reader, fileName string) (*dataset.Table, error) {
	content, err := decodeToUTF8(r)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(content))
	if strings.EqualFold(filepath.Ext(fileName), ".tsv") {
		reader.Comma = '\t'
	}
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, qa.ErrInvalidDataset
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	names := sanitizeHeader(header)
	if len(names) == 0 {
		return nil, qa.ErrInvalidDataset
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// 无法解析的行直接跳过，不中断整个导入。
			if _, ok := err.(*csv.ParseError); ok {
				continue
			}
			return nil, fmt.Errorf("read row: %w", err)
		}
		rows = append(rows, fitRow(record, len(names)))
	}

	columns := make([]dataset.Column, len(names))
	for i, name := range names {
		columns[i] = dataset.Column{Name: name, Type: inferType(rows, i)}
	}

	return &dataset.Table{
		SourceName: fileName,
		Columns:    columns,
		Rows:       rows,
	}, nil
}

// sanitizeHeader cleans raw header cells into unique SQLite-safe identifiers.
func sanitizeHeader(header []string) []string {
	names := make([]string, 0, len(header))
	seen := make(map[string]int, len(header))

	for i, raw := range header {
		name := cleanColumnName(raw, i)
		if count, dup := seen[name]; dup {
			seen[name] = count + 1
			name = fmt.Sprintf("%s_%d", name, count+1)
		}
		seen[name] = 0
		names = append(names, name)
	}
	return names
}

func cleanColumnName(raw string, index int) string {
	name := strings.TrimSpace(raw)
	name = strings.ReplaceAll(name, "\x00", "")
	name = strings.ReplaceAll(name, "\n", "_")
	name = strings.ReplaceAll(name, "\r", "_")
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")
	name = strings.ReplaceAll(name, ".", "_")

	if name == "" {
		return fmt.Sprintf("col_%d", index)
	}
	if name[0] >= '0' && name[0] <= '9' {
		return "col_" + name
	}
	return name
}

func fitRow(record []string, width int) []string {
	row := make([]string, width)
	for i := 0; i < width; i++ {
		if i < len(record) {
			row[i] = strings.TrimSpace(record[i])
		}
	}
	return row
}

// inferType marks a column as numeric when every non-empty cell parses as a
// float. Empty columns stay textual.
func inferType(rows [][]string, col int) dataset.ColumnType {
	sawValue := false
	for _, row := range rows {
		cell := row[col]
		if cell == "" {
			continue
		}
		sawValue = true
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return dataset.Text
		}
	}
	if !sawValue {
		return dataset.Text
	}
	return dataset.Number
}
