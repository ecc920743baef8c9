// Package report renders run summaries as markdown.
package report

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// AlignTables rewrites every markdown table in content so that its columns
// line up by display width. Titles in CJK scripts take two cells per rune.
func AlignTables(content string) string {
	lines := strings.Split(content, "\n")

	var formatted []string

	var table []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "|") && strings.HasSuffix(trimmed, "|") {
			table = append(table, line)

			continue
		}

		if len(table) > 0 {
			formatted = append(formatted, alignTable(table)...)
			table = nil
		}

		formatted = append(formatted, line)
	}

	if len(table) > 0 {
		formatted = append(formatted, alignTable(table)...)
	}

	return strings.Join(formatted, "\n")
}

// Table renders headers and rows as an aligned markdown table.
func Table(headers []string, rows [][]string) string {
	lines := make([]string, 0, len(rows)+2)
	lines = append(lines, "| "+strings.Join(escapeCells(headers), " | ")+" |")

	separator := make([]string, len(headers))
	for i := range separator {
		separator[i] = "---"
	}

	lines = append(lines, "| "+strings.Join(separator, " | ")+" |")

	for _, row := range rows {
		lines = append(lines, "| "+strings.Join(escapeCells(row), " | ")+" |")
	}

	return strings.Join(alignTable(lines), "\n")
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		c = strings.ReplaceAll(c, "\n", " ")
		out[i] = strings.ReplaceAll(c, "|", `\|`)
	}

	return out
}

func splitRow(row string) []string {
	row = strings.TrimSpace(row)
	row = strings.TrimPrefix(row, "|")
	row = strings.TrimSuffix(row, "|")

	var cells []string

	var sb strings.Builder

	escaped := false

	for _, r := range row {
		switch {
		case escaped:
			sb.WriteRune(r)

			escaped = false
		case r == '\\':
			sb.WriteRune(r)

			escaped = true
		case r == '|':
			cells = append(cells, strings.TrimSpace(sb.String()))
			sb.Reset()
		default:
			sb.WriteRune(r)
		}
	}

	return append(cells, strings.TrimSpace(sb.String()))
}

func isSeparator(cells []string) bool {
	for _, cell := range cells {
		if strings.Trim(cell, "-: ") != "" {
			return false
		}
	}

	return true
}

func alignTable(rows []string) []string {
	// A header needs its separator line.
	if len(rows) < 2 {
		return rows
	}

	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		table = append(table, splitRow(row))
	}

	colCount := 0
	for _, row := range table {
		colCount = max(colCount, len(row))
	}

	separatorIdx := -1
	if isSeparator(table[1]) {
		separatorIdx = 1
	}

	widths := make([]int, colCount)

	for i, row := range table {
		if i == separatorIdx {
			continue
		}

		for j, cell := range row {
			widths[j] = max(widths[j], runewidth.StringWidth(cell))
		}
	}

	for i := range widths {
		widths[i] = max(widths[i], 3)
	}

	result := make([]string, 0, len(table))

	for i, row := range table {
		var sb strings.Builder

		sb.WriteString("|")

		for j := range colCount {
			sb.WriteString(" ")

			if i == separatorIdx {
				sb.WriteString(strings.Repeat("-", widths[j]))
				sb.WriteString(" |")

				continue
			}

			cell := ""
			if j < len(row) {
				cell = row[j]
			}

			sb.WriteString(runewidth.FillRight(cell, widths[j]))
			sb.WriteString(" |")
		}

		result = append(result, sb.String())
	}

	return result
}
