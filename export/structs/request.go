// Package structs defines the export request and job domain models.
package structs

import (
	"encoding/json"
	"fmt"
	"slices"
)

// MaxTableRows caps how many rows a single table may carry.
const MaxTableRows = 100000

// Section is one heading/body block of the exported document.
type Section struct {
	Heading string `json:"heading" binding:"required,min=1,max=256"`
	Body    string `json:"body" binding:"max=5000"`
}

// Row is the canonical table row representation: column name to scalar value.
type Row map[string]any

// TableRow accepts a row either as a mapping or as a positional list. It is
// normalized against the table's declared columns before any renderer sees it.
type TableRow struct {
	mapped     Row
	positional []any
	isList     bool
}

// UnmarshalJSON decodes either {"col": value, ...} or [value, ...].
func (r *TableRow) UnmarshalJSON(data []byte) error {
	var m Row
	if err := json.Unmarshal(data, &m); err == nil {
		r.mapped = m
		r.isList = false
		return nil
	}
	var list []any
	if err := json.Unmarshal(data, &list); err == nil {
		r.positional = list
		r.isList = true
		return nil
	}
	return fmt.Errorf("table row must be an object or an array")
}

// MarshalJSON always emits the canonical mapping form.
func (r TableRow) MarshalJSON() ([]byte, error) {
	if r.isList {
		return nil, fmt.Errorf("table row not normalized")
	}
	if r.mapped == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.mapped)
}

// Values returns the canonical mapping. Nil until normalized for list rows.
func (r TableRow) Values() Row {
	return r.mapped
}

// normalize converts the row into the canonical mapping keyed by the declared
// columns. Positional rows are zipped against the column list: missing
// trailing values become nil, extra values get synthetic keys column_N.
func (r *TableRow) normalize(columns []string) {
	if !r.isList {
		if r.mapped == nil {
			r.mapped = Row{}
		}
		return
	}

	row := make(Row, len(columns))
	for i, col := range columns {
		if i < len(r.positional) {
			row[col] = r.positional[i]
		} else {
			row[col] = nil
		}
	}
	for i := len(columns); i < len(r.positional); i++ {
		row[fmt.Sprintf("column_%d", i+1)] = r.positional[i]
	}

	r.mapped = row
	r.positional = nil
	r.isList = false
}

// Table is a named table with ordered columns.
type Table struct {
	Name    string     `json:"name" binding:"required,min=1"`
	Columns []string   `json:"columns"`
	Rows    []TableRow `json:"rows"`
}

// EffectiveColumns returns the declared columns followed by any synthetic
// columns introduced by row normalization, in a stable order.
func (t *Table) EffectiveColumns() []string {
	columns := slices.Clone(t.Columns)
	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		seen[col] = true
	}

	var extras []string
	for _, row := range t.Rows {
		for key := range row.Values() {
			if !seen[key] {
				seen[key] = true
				extras = append(extras, key)
			}
		}
	}
	slices.Sort(extras)
	return append(columns, extras...)
}

// Options controls which artifacts are produced and how.
type Options struct {
	Template        string `json:"template,omitempty"`
	IncludePDF      bool   `json:"include_pdf"`
	IncludePPTX     bool   `json:"include_pptx"`
	IncludeXLSX     *bool  `json:"include_xlsx,omitempty"`
	IncludeTXT      bool   `json:"include_txt"`
	ZipAll          *bool  `json:"zip_all,omitempty"`
	Locale          string `json:"locale,omitempty"`
	PageOrientation string `json:"page_orientation,omitempty"`
	PrimaryFormat   string `json:"primary_format,omitempty"`
}

// XLSXEnabled reports the spreadsheet toggle, defaulting to true when unset.
func (o *Options) XLSXEnabled() bool {
	return o.IncludeXLSX == nil || *o.IncludeXLSX
}

// Bundled reports the zip-all toggle, defaulting to true when unset.
func (o *Options) Bundled() bool {
	return o.ZipAll == nil || *o.ZipAll
}

// ExportRequest is the validated, immutable export payload.
type ExportRequest struct {
	Title     string    `json:"title" binding:"required"`
	Summary   string    `json:"summary"`
	SessionID string    `json:"session_id" binding:"required"`
	UserID    string    `json:"user_id,omitempty"`
	Sections  []Section `json:"sections"`
	Tables    []Table   `json:"tables"`
	Options   Options   `json:"options"`
}

// Normalize applies defaults and canonicalizes every table row. It must run
// before validation and before the payload is persisted.
func (r *ExportRequest) Normalize(defaultTemplate string) {
	if r.Options.Template == "" {
		r.Options.Template = defaultTemplate
	}
	if r.Options.Locale == "" {
		r.Options.Locale = "en-US"
	}
	if r.Options.PageOrientation == "" {
		r.Options.PageOrientation = "portrait"
	}
	for ti := range r.Tables {
		for ri := range r.Tables[ti].Rows {
			r.Tables[ti].Rows[ri].normalize(r.Tables[ti].Columns)
		}
	}
}

// Validate enforces payload invariants that go beyond field-level binding.
func (r *ExportRequest) Validate(allowedTemplates []string) error {
	if len(allowedTemplates) > 0 && !slices.Contains(allowedTemplates, r.Options.Template) {
		return fmt.Errorf("template %q is not allowed", r.Options.Template)
	}
	for _, table := range r.Tables {
		if len(table.Rows) > MaxTableRows {
			return fmt.Errorf("table %q row limit exceeded", table.Name)
		}
	}
	return nil
}
