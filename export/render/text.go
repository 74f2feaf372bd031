package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ncobase/docport/export/structs"
)

// TextRenderer produces a human-readable plain-text summary.
type TextRenderer struct{}

func (r *TextRenderer) Format() string { return structs.FormatTxt }

func (r *TextRenderer) Render(req *structs.ExportRequest, scratchDir string) (string, error) {
	outputPath := filepath.Join(scratchDir, "report.txt")
	lines := r.buildLines(req)
	if err := os.WriteFile(outputPath, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return "", fmt.Errorf("render txt: %w", err)
	}
	return outputPath, nil
}

func (r *TextRenderer) buildLines(req *structs.ExportRequest) []string {
	var lines []string

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Export"
	}
	lines = append(lines, title, strings.Repeat("=", len(title)), "")

	if req.Summary != "" {
		lines = append(lines, "Summary:", strings.TrimSpace(req.Summary), "")
	}

	if len(req.Sections) > 0 {
		lines = append(lines, "Sections:")
		for _, section := range req.Sections {
			lines = append(lines, "- "+strings.TrimSpace(section.Heading), strings.TrimSpace(section.Body), "")
		}
	}

	if len(req.Tables) > 0 {
		lines = append(lines, "Tables:")
		for _, table := range req.Tables {
			lines = append(lines, "- "+table.Name)
			columns := table.EffectiveColumns()
			if len(columns) > 0 {
				lines = append(lines, "  | "+strings.Join(columns, " | ")+" |")
			}
			for _, row := range table.Rows {
				values := row.Values()
				cells := make([]string, len(columns))
				for i, col := range columns {
					cells[i] = stringify(values[col])
				}
				lines = append(lines, "  | "+strings.Join(cells, " | ")+" |")
			}
			lines = append(lines, "")
		}
	}

	return lines
}
