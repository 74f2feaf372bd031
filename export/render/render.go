// Package render produces export artifacts from a validated export request.
//
// Each renderer is a pure function over the request: it writes exactly one
// file into the given scratch directory and returns its path. A renderer
// returning an empty path with a nil error means the format does not apply
// to this request and is skipped, not failed.
package render

import (
	"fmt"

	"github.com/ncobase/docport/export/structs"
)

// Renderer produces one artifact format.
type Renderer interface {
	Format() string
	Render(req *structs.ExportRequest, scratchDir string) (string, error)
}

// Set bundles the renderers the pipeline dispatches to.
type Set struct {
	Document     Renderer
	Text         Renderer
	Spreadsheet  Renderer
	Presentation Renderer
}

// NewSet builds the default renderer set.
func NewSet() *Set {
	return &Set{
		Document:     &DocumentRenderer{},
		Text:         &TextRenderer{},
		Spreadsheet:  &SpreadsheetRenderer{},
		Presentation: &PresentationRenderer{},
	}
}

// stringify renders a scalar cell value for textual output. Nil becomes the
// empty string.
func stringify(value any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%v", value)
}
