// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package table

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/els-search/pkg/types"
)

// Format selects an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSL  Format = "csl"
)

// Formats lists the accepted formats in help order.
var Formats = []Format{FormatText, FormatCSV, FormatJSON, FormatYAML, FormatCSL}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (want one of %v)", s, Formats)
}

// textColumns are the columns shown by the text format, in order, when the
// table carries them. Without any of them every column is shown.
var textColumns = []string{"dc:identifier", "dc:title", "dc:creator", "prism:publicationName", "prism:coverDate", "citedby-count"}

const textCellWidth = 48

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// Write encodes t in format f. The CSL format needs the raw entries
// because it reads nested fields the table flattens away.
func Write(w io.Writer, f Format, t *types.Table, entries []types.Entry) error {
	switch f {
	case FormatText, "":
		return WriteText(w, t)
	case FormatCSV:
		return WriteCSV(w, t)
	case FormatJSON:
		return WriteJSON(w, t)
	case FormatYAML:
		return WriteYAML(w, t)
	case FormatCSL:
		return WriteCSL(w, entries)
	default:
		return fmt.Errorf("unknown output format %q", f)
	}
}

// WriteText renders a bordered terminal table of the most useful columns.
func WriteText(w io.Writer, t *types.Table) error {
	if t.Len() == 0 {
		_, err := fmt.Fprintln(w, "No results found.")
		return err
	}

	var idx []int
	var headers []string
	for _, c := range textColumns {
		if i := t.Column(c); i >= 0 {
			idx = append(idx, i)
			headers = append(headers, c)
		}
	}
	if len(idx) == 0 {
		for i, c := range t.Columns {
			idx = append(idx, i)
			headers = append(headers, c)
		}
	}

	rows := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		cells := make([]string, len(idx))
		for j, i := range idx {
			cells[j] = truncate(cellString(row[i]), textCellWidth)
		}
		rows[r] = cells
	}

	tbl := lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == lgtable.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)

	_, err := fmt.Fprintf(w, "%s\n%d results\n", tbl.Render(), t.Len())
	return err
}

// WriteCSV writes a header row followed by one record per table row.
func WriteCSV(w io.Writer, t *types.Table) error {
	cw := csv.NewWriter(w)
	if t == nil {
		t = &types.Table{}
	}
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for i, row := range t.Rows {
		rec := make([]string, len(row))
		for j, v := range row {
			rec[j] = cellString(v)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the rows as an indented array of column-keyed objects.
func WriteJSON(w io.Writer, t *types.Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records(t))
}

// WriteYAML writes the rows as a YAML list of column-keyed mappings.
func WriteYAML(w io.Writer, t *types.Table) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(records(t))
}

// records turns rows into maps, leaving out nil cells.
func records(t *types.Table) []map[string]any {
	out := make([]map[string]any, t.Len())
	if t == nil {
		return out
	}
	for i, row := range t.Rows {
		m := make(map[string]any, len(row))
		for j, v := range row {
			if v == nil {
				continue
			}
			if tv, ok := v.(time.Time); ok {
				v = tv.Format(coverDateFmt)
			}
			m[t.Columns[j]] = v
		}
		out[i] = m
	}
	return out
}

func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return val.Format(coverDateFmt)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
