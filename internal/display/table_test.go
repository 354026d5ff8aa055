package display

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plainTable() *TableFormatter {
	tf := NewTableFormatter(NewColorSystemWithSupport(DefaultColorTheme(), false))
	tf.SetMaxWidth(80)
	return tf
}

func TestTableFormatter_Render(t *testing.T) {
	tf := plainTable()
	tf.SetHeaders("NAME", "SIZE")
	tf.SetColumnAlignment(1, AlignRight)
	tf.AddRow("globals.tar.gz", "1.2 KB")

	want := strings.Join([]string{
		"+----------------+--------+",
		"| NAME           |   SIZE |",
		"+----------------+--------+",
		"| globals.tar.gz | 1.2 KB |",
		"+----------------+--------+",
		"",
	}, "\n")

	assert.Equal(t, want, tf.Render())
}

func TestTableFormatter_AlignmentVariants(t *testing.T) {
	tf := plainTable()
	tf.SetHeaders("L", "CCC", "RRR")
	tf.SetColumnAlignment(1, AlignCenter)
	tf.SetColumnAlignment(2, AlignRight)
	tf.AddRow("a", "b", "c")

	lines := strings.Split(tf.Render(), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "| a |  b  |   c |", lines[3])
}

func TestTableFormatter_EmptyRendersNothing(t *testing.T) {
	assert.Empty(t, plainTable().Render())
}

func TestTableFormatter_ShrinksToTerminalWidth(t *testing.T) {
	tf := plainTable()
	tf.SetMaxWidth(24)
	tf.SetHeaders("NAME")
	tf.AddRow("a-very-long-archive-name.tar.zst")

	for _, line := range strings.Split(tf.Render(), "\n") {
		assert.LessOrEqual(t, len(line), 24)
	}
	assert.Contains(t, tf.Render(), "...", "overflowing cells are truncated")
}

func TestTableFormatter_RaggedRows(t *testing.T) {
	tf := plainTable()
	tf.SetHeaders("NAME", "SIZE")
	tf.AddRow("manifest.yaml")

	out := tf.Render()
	assert.Contains(t, out, "manifest.yaml")
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		assert.Equal(t, len(strings.Split(out, "\n")[0]), len(line), "all lines share the same width")
	}
}

func TestTableFormatter_ColorsHeaderOnly(t *testing.T) {
	tf := NewTableFormatter(NewColorSystemWithSupport(DefaultColorTheme(), true))
	tf.SetMaxWidth(80)
	tf.SetHeaders("NAME")
	tf.AddRow("globals.tar.gz")

	lines := strings.Split(tf.Render(), "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Contains(t, lines[1], "\x1b[", "header row is colored")
	assert.NotContains(t, lines[3], "\x1b[", "data rows stay plain")
}
