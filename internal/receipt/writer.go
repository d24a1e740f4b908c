package receipt

import (
	"strings"
	"unicode/utf8"
)

type writer struct {
	cols  int
	lines []string
}

func newWriter(cols int) *writer {
	return &writer{cols: cols, lines: make([]string, 0, 40)}
}

func (w *writer) String() string {
	return strings.Join(w.lines, "\n") + "\n"
}

func (w *writer) line(s string) {
	w.lines = append(w.lines, strings.TrimRight(s, " "))
}

func (w *writer) rule(ch rune) {
	w.line(strings.Repeat(string(ch), w.cols))
}

func (w *writer) center(s string) {
	s = truncate(s, w.cols)
	pad := (w.cols - utf8.RuneCountInString(s)) / 2
	w.line(strings.Repeat(" ", pad) + s)
}

// pair puts label on the left and value flush right.
func (w *writer) pair(label string, value string) {
	label = truncate(label, w.cols-utf8.RuneCountInString(value)-1)
	gap := w.cols - utf8.RuneCountInString(label) - utf8.RuneCountInString(value)
	if gap < 1 {
		gap = 1
	}
	w.line(label + strings.Repeat(" ", gap) + value)
}

// item lays out qty | name | amount; long names are cut to fit.
func (w *writer) item(qty string, name string, amount string) {
	nameCols := w.cols - qtyColumn - amtColumn
	w.line(padRight(truncate(qty, qtyColumn-1), qtyColumn) +
		padRight(truncate(name, nameCols-1), nameCols) +
		padLeft(truncate(amount, amtColumn), amtColumn))
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func padRight(s string, n int) string {
	if gap := n - utf8.RuneCountInString(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

func padLeft(s string, n int) string {
	if gap := n - utf8.RuneCountInString(s); gap > 0 {
		return strings.Repeat(" ", gap) + s
	}
	return s
}
