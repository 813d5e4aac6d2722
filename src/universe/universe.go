package universe

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"market-screener/src/helpers"
	"market-screener/src/utils"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// Header names recognised as the symbol column, matched case-insensitively.
var symbolColumns = []string{"ticker", "symbol"}

// -----------------------------------------------------------------------------

// LoadTickers reads a ticker universe from a .csv or .xlsx file. The first
// row is a header; the symbol column is the one named Ticker or Symbol.
// Symbols come back normalized and de-duplicated in file order.
func LoadTickers(path string) ([]string, error) {
	var (
		rows [][]string
		err  error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		rows, err = readCSV(path)
	case ".xlsx", ".xlsm":
		rows, err = readWorkbook(path)
	default:
		return nil, helpers.NewValidationError("unsupported universe file: " + path)
	}
	if err != nil {
		return nil, err
	}

	symbols, err := extractColumn(rows)
	if err != nil {
		return nil, errors.Wrapf(err, "universe %s", path)
	}
	return utils.NormalizeSymbols(symbols), nil
}

// -----------------------------------------------------------------------------

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open universe file")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parse universe csv")
	}
	return rows, nil
}

// -----------------------------------------------------------------------------

// readWorkbook returns the rows of the first sheet that has a symbol header.
func readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "open universe workbook")
	}
	defer f.Close()

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil || len(rows) == 0 {
			continue
		}
		if symbolIndex(rows[0]) >= 0 {
			return rows, nil
		}
	}
	return nil, helpers.NewValidationError("no sheet with a Ticker or Symbol column in " + path)
}

// -----------------------------------------------------------------------------

func extractColumn(rows [][]string) ([]string, error) {
	if len(rows) == 0 {
		return nil, helpers.NewValidationError("empty universe file")
	}
	col := symbolIndex(rows[0])
	if col < 0 {
		return nil, helpers.NewValidationError("missing Ticker or Symbol column")
	}

	out := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if col < len(row) {
			out = append(out, row[col])
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func symbolIndex(header []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for _, want := range symbolColumns {
			if h == want {
				return i
			}
		}
	}
	return -1
}
