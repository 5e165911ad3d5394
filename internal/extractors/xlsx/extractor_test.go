package xlsx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/markdave123-py/Dossier/internal/core"
)

func workbook(t *testing.T, build func(f *excelize.File)) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	build(f)
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestName(t *testing.T) {
	assert.Equal(t, "xlsx", New().Name())
}

func TestExtract_FirstSheetAsCSV(t *testing.T) {
	data := workbook(t, func(f *excelize.File) {
		require.NoError(t, f.SetCellValue("Sheet1", "A1", "Metric"))
		require.NoError(t, f.SetCellValue("Sheet1", "B1", "Value"))
		require.NoError(t, f.SetCellValue("Sheet1", "A2", "ARR"))
		require.NoError(t, f.SetCellValue("Sheet1", "B2", 1200000))
		require.NoError(t, f.SetCellValue("Sheet1", "A3", "Burn, monthly"))
		require.NoError(t, f.SetCellValue("Sheet1", "B3", 85000))

		idx, err := f.NewSheet("Hidden")
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue("Hidden", "A1", "secret"))
		f.SetActiveSheet(idx)
	})

	text, err := New().Extract(context.Background(), core.Source{Content: data})
	require.NoError(t, err)
	assert.Equal(t, "Metric,Value\nARR,1200000\n\"Burn, monthly\",85000", text)
	assert.NotContains(t, text, "secret")
}

func TestExtract_EmptySheet(t *testing.T) {
	data := workbook(t, func(*excelize.File) {})

	text, err := New().Extract(context.Background(), core.Source{Content: data})
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtract_Corrupt(t *testing.T) {
	_, err := New().Extract(context.Background(), core.Source{Content: []byte("PK\x03\x04garbage")})
	assert.ErrorIs(t, err, core.ErrUnsupportedVariant)
}
