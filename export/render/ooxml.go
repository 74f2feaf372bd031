package render

import (
	"archive/zip"
	"os"
	"strings"
)

// ooxmlPart is one file inside an OOXML package.
type ooxmlPart struct {
	Name    string
	Content string
}

// writeOOXML writes the parts into a zip package at path. OOXML packages are
// plain zip archives; part order follows the slice so [Content_Types].xml
// stays first.
func writeOOXML(path string, parts []ooxmlPart) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for _, part := range parts {
		entry, err := w.Create(part.Name)
		if err != nil {
			w.Close()
			return err
		}
		if _, err := entry.Write([]byte(part.Content)); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func xmlEscape(s string) string {
	return xmlEscaper.Replace(s)
}
