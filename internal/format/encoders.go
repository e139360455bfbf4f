package format

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// JSONFormatter renders the result as JSON, indented unless compact.
type JSONFormatter struct {
	pretty bool
}

func (f *JSONFormatter) Format(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	if f.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// YAMLFormatter renders the result as YAML.
type YAMLFormatter struct{}

func (f *YAMLFormatter) Format(w io.Writer, data any) error {
	out, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	_, err = w.Write(out)
	return err
}

// TextFormatter renders "Key: value" lines for simple results.
type TextFormatter struct{}

func (f *TextFormatter) Format(w io.Writer, data any) error {
	switch v := data.(type) {
	case nil:
		fmt.Fprintln(w, "No data")
		return nil
	case string:
		fmt.Fprintln(w, v)
		return nil
	case Row:
		return textRow(w, v, "")
	case []Row:
		for i, row := range v {
			if i > 0 {
				fmt.Fprintln(w)
			}
			if err := textRow(w, row, ""); err != nil {
				return err
			}
		}
		return nil
	default:
		fmt.Fprintf(w, "%v\n", v)
		return nil
	}
}

func textRow(w io.Writer, row Row, indent string) error {
	for _, k := range sortedKeys(row) {
		fmt.Fprintf(w, "%s%s: %s\n", indent, titleCase(k), cell(row[k]))
	}
	return nil
}

func sortedKeys(row Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
