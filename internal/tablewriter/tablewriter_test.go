package tablewriter

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NotNil(t, w)
	require.Equal(t, &buf, w.out)
	require.Empty(t, w.headers)
	require.Empty(t, w.rows)
	require.Empty(t, w.widths)
}

func TestEmptyTable(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Render()
	require.Empty(t, buf.String())
}

func TestTableWithHeaders(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.SetHeader([]string{"Type", "Pos", "Text"})
	w.Render()

	expected := `+------+-----+------+
| Type | Pos | Text |
+------+-----+------+
+------+-----+------+
`
	require.Equal(t, expected, buf.String())
}

func TestTableWithHeadersAndRows(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.SetHeader([]string{"Type", "Pos", "Text"})
	w.Append([]string{"insert", "0", "Hello"})
	w.Append([]string{"delete", "12", ""})
	w.Render()

	expected := `+--------+-----+-------+
| Type   | Pos | Text  |
+--------+-----+-------+
| insert | 0   | Hello |
| delete | 12  |       |
+--------+-----+-------+
`
	require.Equal(t, expected, buf.String())
}

func TestTableWithoutHeaders(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Append([]string{"insert", "0", "Hello"})
	w.Append([]string{"delete", "12", "x"})
	w.Render()

	expected := `+--------+----+-------+
| insert | 0  | Hello |
| delete | 12 | x     |
+--------+----+-------+
`
	require.Equal(t, expected, buf.String())
}

func TestTableWithVaryingColumnCounts(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.SetHeader([]string{"Col1", "Col2", "Col3", "Col4"})
	w.Append([]string{"A", "B"})                // Only 2 columns
	w.Append([]string{"C", "D", "E", "F", "G"}) // 5 columns (extra ignored)
	w.Render()

	expected := `+------+------+------+------+
| Col1 | Col2 | Col3 | Col4 |
+------+------+------+------+
| A    | B    |      |      |
| C    | D    | E    | F    |
+------+------+------+------+
`
	require.Equal(t, expected, buf.String())
}

func TestTableWithWideRunes(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.SetHeader([]string{"User", "Cursor"})
	w.Append([]string{"日本語", "12"})
	w.Render()

	expected := `+--------+--------+
| User   | Cursor |
+--------+--------+
| 日本語 | 12     |
+--------+--------+
`
	require.Equal(t, expected, buf.String())
}

func TestTableWithANSIColors(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	w.SetHeader([]string{"Status", "Session", "Documents"})
	w.Append([]string{
		"\033[32malive\033[0m",
		"\033[34m1756100000000-a1b2c3d4e\033[0m",
		"2",
	})
	w.Append([]string{
		"\033[31mclosed\033[0m",
		"\033[33m1756100000001-f5g6h7i8j\033[0m",
		"0",
	})
	w.Render()

	output := buf.String()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	require.Len(t, lines, 6) // borders + header + 2 rows

	require.Contains(t, output, "\033[32m")
	require.Contains(t, output, "\033[31m")

	// Borders must align even though cells carry color escapes
	borderLines := []string{lines[0], lines[2], lines[5]}
	firstBorderLen := len(testStripANSI(borderLines[0]))
	for _, border := range borderLines {
		require.Equal(t, firstBorderLen, len(testStripANSI(border)))
	}
}

func testStripANSI(s string) string {
	re := regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)
	return re.ReplaceAllString(s, "")
}
