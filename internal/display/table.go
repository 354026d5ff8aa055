package display

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// Alignment selects how cell content is padded
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

// TableFormatter renders rows as an ASCII table sized to the terminal
type TableFormatter struct {
	headers    []string
	rows       [][]string
	alignments map[int]Alignment

	colorSystem ColorSystem
	padding     int
	maxWidth    int
}

// NewTableFormatter creates a table formatter. The width ceiling comes
// from the terminal, or 80 columns when there is none.
func NewTableFormatter(colorSystem ColorSystem) *TableFormatter {
	return &TableFormatter{
		alignments:  make(map[int]Alignment),
		colorSystem: colorSystem,
		padding:     1,
		maxWidth:    terminalWidth(),
	}
}

// SetHeaders sets the header row
func (tf *TableFormatter) SetHeaders(headers ...string) {
	tf.headers = headers
}

// AddRow appends one data row
func (tf *TableFormatter) AddRow(cells ...string) {
	tf.rows = append(tf.rows, cells)
}

// SetColumnAlignment sets the alignment of one column
func (tf *TableFormatter) SetColumnAlignment(column int, alignment Alignment) {
	tf.alignments[column] = alignment
}

// SetMaxWidth overrides the detected width ceiling
func (tf *TableFormatter) SetMaxWidth(width int) {
	tf.maxWidth = width
}

// Render returns the formatted table
func (tf *TableFormatter) Render() string {
	if len(tf.headers) == 0 && len(tf.rows) == 0 {
		return ""
	}

	widths := tf.columnWidths()

	var out strings.Builder
	out.WriteString(tf.border(widths))
	out.WriteString("\n")
	if len(tf.headers) > 0 {
		out.WriteString(tf.renderRow(tf.headers, widths, true))
		out.WriteString("\n")
		out.WriteString(tf.border(widths))
		out.WriteString("\n")
	}
	for _, row := range tf.rows {
		out.WriteString(tf.renderRow(row, widths, false))
		out.WriteString("\n")
	}
	out.WriteString(tf.border(widths))
	out.WriteString("\n")

	return out.String()
}

// RenderTo writes the formatted table to w
func (tf *TableFormatter) RenderTo(w io.Writer) {
	fmt.Fprint(w, tf.Render())
}

func (tf *TableFormatter) columnCount() int {
	count := len(tf.headers)
	for _, row := range tf.rows {
		if len(row) > count {
			count = len(row)
		}
	}
	return count
}

func (tf *TableFormatter) columnWidths() []int {
	widths := make([]int, tf.columnCount())
	for i, header := range tf.headers {
		widths[i] = utf8.RuneCountInString(header)
	}
	for _, row := range tf.rows {
		for i, cell := range row {
			if w := utf8.RuneCountInString(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		widths[i] += tf.padding * 2
	}
	return tf.shrinkToFit(widths)
}

// shrinkToFit reduces column widths proportionally when the table would
// overflow the terminal
func (tf *TableFormatter) shrinkToFit(widths []int) []int {
	if tf.maxWidth <= 0 {
		return widths
	}

	total := len(widths) + 1
	for _, w := range widths {
		total += w
	}
	if total <= tf.maxWidth {
		return widths
	}

	reduction := (total - tf.maxWidth + len(widths) - 1) / len(widths)
	minimum := tf.padding*2 + 3
	for i := range widths {
		widths[i] -= reduction
		if widths[i] < minimum {
			widths[i] = minimum
		}
	}
	return widths
}

func (tf *TableFormatter) border(widths []int) string {
	var out strings.Builder
	out.WriteString("+")
	for _, w := range widths {
		out.WriteString(strings.Repeat("-", w))
		out.WriteString("+")
	}
	return out.String()
}

func (tf *TableFormatter) renderRow(row []string, widths []int, isHeader bool) string {
	var out strings.Builder
	out.WriteString("|")
	for i, width := range widths {
		var cell string
		if i < len(row) {
			cell = row[i]
		}
		out.WriteString(tf.formatCell(cell, width, tf.alignments[i], isHeader))
		out.WriteString("|")
	}
	return out.String()
}

// formatCell truncates, pads and colors one cell. Coloring happens after
// padding so escape sequences never skew the width math.
func (tf *TableFormatter) formatCell(content string, width int, alignment Alignment, isHeader bool) string {
	contentWidth := width - tf.padding*2
	if contentWidth < 0 {
		contentWidth = 0
	}

	if utf8.RuneCountInString(content) > contentWidth {
		runes := []rune(content)
		if contentWidth > 3 {
			content = string(runes[:contentWidth-3]) + "..."
		} else {
			content = string(runes[:contentWidth])
		}
	}

	gap := contentWidth - utf8.RuneCountInString(content)
	var leftPad, rightPad int
	switch alignment {
	case AlignCenter:
		leftPad = gap / 2
		rightPad = gap - leftPad
	case AlignRight:
		leftPad = gap
	default:
		rightPad = gap
	}
	leftPad += tf.padding
	rightPad += tf.padding

	cell := strings.Repeat(" ", leftPad) + content + strings.Repeat(" ", rightPad)
	if isHeader && tf.colorSystem != nil {
		cell = tf.colorSystem.Colorize(cell, tf.colorSystem.Theme().Primary)
	}
	return cell
}

// terminalWidth returns the current terminal width, or 80 when stdout is
// not a terminal
func terminalWidth() int {
	width, _, err := term.GetSize(0)
	if err != nil || width <= 0 {
		return 80
	}
	return width
}
