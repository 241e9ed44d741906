package formatter

import (
	"strconv"
	"strings"

	"allsidestg/internal/models"
	"allsidestg/pkg/utils"

	"github.com/mattn/go-runewidth"
)

// TeaserRow is one line of the teaser listing.
type TeaserRow struct {
	Teaser    models.Teaser
	Published bool
}

// TeaserTable renders rows as a pipe table aligned by display width,
// so titles with wide runes or emoji still line up in a terminal.
// Titles are collapsed onto one line.
func TeaserTable(rows []TeaserRow) string {
	table := [][]string{{"#", "Title", "Published", "URL"}, nil}

	for i, r := range rows {
		published := "no"
		if r.Published {
			published = "yes"
		}

		table = append(table, []string{strconv.Itoa(i + 1), utils.NormalizeWhitespace(r.Teaser.Title), published, r.Teaser.URL})
	}

	return strings.Join(alignTable(table, 1), "\n") + "\n"
}

// alignTable pads every cell to its column's display width. The row at
// separatorRowIdx is rendered as dashes.
func alignTable(table [][]string, separatorRowIdx int) []string {
	colCount := 0
	for _, row := range table {
		if len(row) > colCount {
			colCount = len(row)
		}
	}

	colWidths := make([]int, colCount)

	for rIdx, row := range table {
		if rIdx == separatorRowIdx {
			continue
		}

		for i := 0; i < len(row) && i < colCount; i++ {
			width := runewidth.StringWidth(row[i])
			if width > colWidths[i] {
				colWidths[i] = width
			}
		}
	}

	// Ensure min width for separator
	for i := range colWidths {
		if colWidths[i] < 3 {
			colWidths[i] = 3
		}
	}

	result := make([]string, 0, len(table))

	for i, row := range table {
		var sb strings.Builder

		sb.WriteString("|")

		for j := 0; j < colCount; j++ {
			sb.WriteString(" ")

			if i == separatorRowIdx {
				sb.WriteString(strings.Repeat("-", colWidths[j]))
			} else {
				content := ""
				if j < len(row) {
					content = row[j]
				}

				sb.WriteString(runewidth.FillRight(content, colWidths[j]))
			}

			sb.WriteString(" |")
		}

		result = append(result, sb.String())
	}

	return result
}
