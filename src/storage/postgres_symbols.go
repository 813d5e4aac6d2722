package storage

import (
	"fmt"
	"regexp"
)

// Symbol universes can reference a column holding tickers: schema.table.field.
var pgSymbolRegex = regexp.MustCompile(`^(\w+)\.(\w+)\.(\w+)$`)

// SymbolRef points at a table column that lists symbols.
type SymbolRef struct {
	Schema string
	Table  string
	Field  string
}

// -----------------------------------------------------------------------------

// ParseSymbolRef recognises schema.table.field entries. Share-class tickers
// such as BRK.B have two parts and are not refs.
func ParseSymbolRef(sym string) (SymbolRef, bool) {
	matches := pgSymbolRegex.FindStringSubmatch(sym)
	if len(matches) != 4 {
		return SymbolRef{}, false
	}
	return SymbolRef{Schema: matches[1], Table: matches[2], Field: matches[3]}, true
}

// -----------------------------------------------------------------------------

// ExpandSymbols replaces every table reference with the symbols it lists.
// Plain tickers are kept as they are.
func (d *PostgresBarStore) ExpandSymbols(rawSymbols []string) ([]string, error) {
	var symbols []string

	for _, sym := range rawSymbols {
		ref, ok := ParseSymbolRef(sym)
		if !ok {
			symbols = append(symbols, sym)
			continue
		}

		loaded, err := d.GetSymbolsFromTable(ref.Schema, ref.Table, ref.Field)
		if err != nil {
			return symbols, fmt.Errorf("failed to load symbols from %s: %w", sym, err)
		}
		d.Logger.Info("Loaded %d symbols from %s", len(loaded), sym)
		symbols = append(symbols, loaded...)
	}

	return symbols, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresBarStore) GetSymbolsFromTable(schema, table, field string) ([]string, error) {
	// Identifiers are \w+ from the regex and quoted below.
	query := fmt.Sprintf(`SELECT "%s" FROM "%s"."%s"`, field, schema, table)

	rows, err := d.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		if s != "" {
			symbols = append(symbols, s)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return symbols, nil
}
