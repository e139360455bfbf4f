package format

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// Row is one table row keyed by column name. Column names use snake_case and
// are title-cased for display.
type Row = map[string]any

// TableFormatter renders rows as a borderless aligned table.
type TableFormatter struct {
	colors bool
}

func (f *TableFormatter) Format(w io.Writer, data any) error {
	switch v := data.(type) {
	case nil:
		fmt.Fprintln(w, "No data to display")
		return nil
	case []Row:
		return f.rows(w, v)
	case Row:
		return f.properties(w, v)
	case string:
		fmt.Fprintln(w, v)
		return nil
	default:
		fmt.Fprintf(w, "%v\n", v)
		return nil
	}
}

func (f *TableFormatter) rows(w io.Writer, rows []Row) error {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No data to display")
		return nil
	}

	keys := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	headers := make([]string, len(keys))
	for i, k := range keys {
		headers[i] = titleCase(k)
	}

	table := f.newTable(w, headers)
	for _, row := range rows {
		values := make([]string, len(keys))
		for i, k := range keys {
			values[i] = cell(row[k])
		}
		table.Append(values)
	}
	table.Render()
	return nil
}

func (f *TableFormatter) properties(w io.Writer, row Row) error {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := f.newTable(w, []string{"Property", "Value"})
	for _, k := range keys {
		table.Append([]string{titleCase(k), cell(row[k])})
	}
	table.Render()
	return nil
}

func (f *TableFormatter) newTable(w io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	if f.colors {
		table.SetHeaderColor(tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiBlueColor})
	}
	return table
}

func cell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "yes"
		}
		return "no"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func titleCase(key string) string {
	words := strings.Split(key, "_")
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		}
	}
	return strings.Join(words, " ")
}
