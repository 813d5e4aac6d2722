package universe

import (
	"os"
	"path/filepath"
	"testing"

	"market-screener/src/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestLoadTickersCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stock_tickers.csv")
	body := "Ticker,Name\nAAPL,Apple Inc.\nbrk.b,Berkshire Hathaway\n\nAAPL,Apple Inc.\nMSFT,Microsoft\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	symbols, err := LoadTickers(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "BRK.B", "MSFT"}, symbols)
}

func TestLoadTickersWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.xlsx")

	f := excelize.NewFile()
	_, err := f.NewSheet("Constituents")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Notes"}))
	require.NoError(t, f.SetSheetRow("Constituents", "A1", &[]interface{}{"Name", "Symbol"}))
	require.NoError(t, f.SetSheetRow("Constituents", "A2", &[]interface{}{"NVIDIA", "nvda"}))
	require.NoError(t, f.SetSheetRow("Constituents", "A3", &[]interface{}{"AMD", "AMD"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	symbols, err := LoadTickers(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"NVDA", "AMD"}, symbols)
}

func TestLoadTickersRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadTickers(filepath.Join(dir, "universe.json"))
	assert.True(t, helpers.IsInvalidInput(err))

	noHeader := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(noHeader, []byte("Name,Sector\nApple,Tech\n"), 0o644))
	_, err = LoadTickers(noHeader)
	assert.True(t, helpers.IsInvalidInput(err))

	_, err = LoadTickers(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}
