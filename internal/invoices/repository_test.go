package invoices

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var createTableRe = regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS (\w+) \((.*?)\n\);`)

func parseCreateTables(ddl string) map[string]map[string]bool {
	tables := make(map[string]map[string]bool)
	for _, m := range createTableRe.FindAllStringSubmatch(ddl, -1) {
		cols := make(map[string]bool)
		for _, line := range strings.Split(m[2], "\n") {
			fields := strings.Fields(strings.TrimSpace(line))
			if len(fields) < 2 {
				continue
			}
			// Constraint lines (UNIQUE, CHECK, FOREIGN KEY) start with a keyword.
			if fields[0] == strings.ToUpper(fields[0]) {
				continue
			}
			cols[fields[0]] = true
		}
		tables[m[1]] = cols
	}
	return tables
}

// The unit suite runs against in-memory stores, so nothing else would catch a
// column drifting between the DDL and the SQL this package issues.
func TestSchemaMatchesRepositoryColumns(t *testing.T) {
	ddl, err := os.ReadFile("../../scripts/schema.sql")
	require.NoError(t, err)

	tables := parseCreateTables(string(ddl))
	require.Contains(t, tables, "sales_invoices")
	require.Contains(t, tables, "invoice_line_items")

	for _, col := range strings.Split(invoiceColumns, ",") {
		col = strings.TrimSpace(col)
		require.Contains(t, tables["sales_invoices"], col, "sales_invoices.%s missing from schema", col)
	}

	lineColumns := []string{
		"id", "invoice_id", "item_type", "label", "item_count", "weight",
		"unit_price", "subtotal", "source_kind", "source_id", "position",
	}
	for _, col := range lineColumns {
		require.Contains(t, tables["invoice_line_items"], col, "invoice_line_items.%s missing from schema", col)
	}
}
