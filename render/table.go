// Package render formats store contents for terminals and files.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/odvcencio/furry-keys/state"
)

const columnGap = "  "

// Table writes headers and rows as aligned columns. Widths are measured in
// terminal cells. When maxWidth is positive the last column is truncated to fit.
func Table(w io.Writer, headers []string, rows [][]string, maxWidth int) error {
	cols := len(headers)
	if cols == 0 {
		return nil
	}
	widths := make([]int, cols)
	for _, row := range append([][]string{headers}, rows...) {
		for i := 0; i < cols && i < len(row); i++ {
			widths[i] = max(widths[i], runewidth.StringWidth(row[i]))
		}
	}

	last := -1
	if maxWidth > 0 {
		used := 0
		for i := 0; i < cols-1; i++ {
			used += widths[i] + len(columnGap)
		}
		last = max(maxWidth-used, 1)
	}

	var b strings.Builder
	for _, row := range append([][]string{headers}, rows...) {
		b.Reset()
		for i := 0; i < cols; i++ {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			if i == cols-1 {
				if last > 0 {
					cell = truncateString(cell, last)
				}
				b.WriteString(cell)
				break
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
			b.WriteString(columnGap)
		}
		b.WriteByte('\n')
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

// StoreRows lists key, committed value and reader count for every key in
// first-write order.
func StoreRows(store *state.Store[string]) [][]string {
	keys := store.Keys()
	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		value, _ := store.Get(key)
		rows = append(rows, []string{key, FormatValue(value), strconv.Itoa(store.Subscribers(key))})
	}
	return rows
}

// FormatValue renders a value on one line. Composite values use compact JSON.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return v
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err == nil {
			return string(data)
		}
	}
	return fmt.Sprint(v)
}

// truncateString truncates a string to fit within maxWidth.
// Adds "..." if truncated.
func truncateString(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	return runewidth.Truncate(s, maxWidth, "...")
}
