// Package xlsx serializes the first worksheet of a workbook as CSV.
package xlsx

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/markdave123-py/Dossier/internal/core"
)

var _ core.Backend = (*Extractor)(nil)

// Extractor reads only the first sheet in workbook order, regardless of
// which sheet was active when the file was saved.
type Extractor struct{}

// New creates a spreadsheet backend.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the backend name.
func (e *Extractor) Name() string {
	return "xlsx"
}

// Extract returns the first sheet as comma-separated rows.
func (e *Extractor) Extract(_ context.Context, src core.Source) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(src.Content))
	if err != nil {
		return "", core.UnsupportedVariant("xlsx", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", core.UnsupportedVariant("xlsx", errors.New("workbook has no sheets"))
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", core.UnsupportedVariant("xlsx sheet "+sheets[0], err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return "", core.ExtractionFailed("write csv", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
