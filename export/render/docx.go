package render

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ncobase/docport/export/structs"
)

// Template identifiers understood by the document renderer.
const (
	TemplateSummary    = "summary"
	TemplateFullReport = "full_report"
)

// DocumentRenderer produces the primary Word artifact. The template id
// selects the layout: full_report renders every table in full, any other id
// keeps tables to a one-line digest. Which template ids are accepted at all
// is decided at submission against the configured allow-list, not here.
type DocumentRenderer struct{}

func (r *DocumentRenderer) Format() string { return structs.FormatDocx }

func (r *DocumentRenderer) Render(req *structs.ExportRequest, scratchDir string) (string, error) {
	outputPath := filepath.Join(scratchDir, "report.docx")
	parts := []ooxmlPart{
		{Name: "[Content_Types].xml", Content: docxContentTypes},
		{Name: "_rels/.rels", Content: docxRels},
		{Name: "word/document.xml", Content: r.documentXML(req)},
	}
	if err := writeOOXML(outputPath, parts); err != nil {
		return "", fmt.Errorf("render docx: %w", err)
	}
	return outputPath, nil
}

func (r *DocumentRenderer) documentXML(req *structs.ExportRequest) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)

	writeHeading(&b, req.Title, 32)
	if req.Summary != "" {
		writeParagraph(&b, req.Summary)
	}

	for _, section := range req.Sections {
		writeHeading(&b, section.Heading, 26)
		if section.Body != "" {
			writeParagraph(&b, section.Body)
		}
	}

	for _, table := range req.Tables {
		writeHeading(&b, table.Name, 24)
		if req.Options.Template == TemplateFullReport {
			writeTable(&b, &table)
		} else {
			writeParagraph(&b, fmt.Sprintf("%d rows, %d columns", len(table.Rows), len(table.EffectiveColumns())))
		}
	}

	b.WriteString(sectionProperties(req.Options.PageOrientation))
	b.WriteString(`</w:body></w:document>`)
	return b.String()
}

func writeHeading(b *strings.Builder, text string, halfPoints int) {
	fmt.Fprintf(b,
		`<w:p><w:pPr><w:rPr><w:b/><w:sz w:val="%d"/></w:rPr></w:pPr><w:r><w:rPr><w:b/><w:sz w:val="%d"/></w:rPr><w:t xml:space="preserve">%s</w:t></w:r></w:p>`,
		halfPoints, halfPoints, xmlEscape(text))
}

func writeParagraph(b *strings.Builder, text string) {
	fmt.Fprintf(b, `<w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, xmlEscape(text))
}

func writeTable(b *strings.Builder, table *structs.Table) {
	columns := table.EffectiveColumns()

	b.WriteString(`<w:tbl><w:tblPr><w:tblW w:w="0" w:type="auto"/></w:tblPr>`)

	b.WriteString(`<w:tr>`)
	for _, col := range columns {
		fmt.Fprintf(b,
			`<w:tc><w:p><w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">%s</w:t></w:r></w:p></w:tc>`,
			xmlEscape(col))
	}
	b.WriteString(`</w:tr>`)

	for _, row := range table.Rows {
		values := row.Values()
		b.WriteString(`<w:tr>`)
		for _, col := range columns {
			fmt.Fprintf(b,
				`<w:tc><w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p></w:tc>`,
				xmlEscape(stringify(values[col])))
		}
		b.WriteString(`</w:tr>`)
	}

	b.WriteString(`</w:tbl>`)
}

// sectionProperties emits page size for the requested orientation (A4).
func sectionProperties(orientation string) string {
	if orientation == "landscape" {
		return `<w:sectPr><w:pgSz w:w="16838" w:h="11906" w:orient="landscape"/></w:sectPr>`
	}
	return `<w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr>`
}

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const docxRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`
