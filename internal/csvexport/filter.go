package csvexport

import (
	"fmt"
	"io"
	"strings"
)

// Filter collects one row at a time and writes it with every field quoted.
// Values for columns the template does not list are dropped.
type Filter struct {
	w    io.Writer
	tmpl Template
	row  map[string]string
}

// NewFilter creates a Filter writing to w.
func NewFilter(w io.Writer, tmpl Template) *Filter {
	return &Filter{w: w, tmpl: tmpl, row: make(map[string]string)}
}

// WriteHeader writes the header row.
func (f *Filter) WriteHeader() error {
	return f.writeLine(f.tmpl.Headers())
}

// SetColumn stores value for the next WriteRow if value is non-empty and
// name is an active column.
func (f *Filter) SetColumn(name, value string) {
	if value == "" || !f.tmpl.Has(name) {
		return
	}
	f.row[name] = value
}

// IsColumnActive reports whether the template lists name.
func (f *Filter) IsColumnActive(name string) bool {
	return f.tmpl.Has(name)
}

// Reset drops the row being built.
func (f *Filter) Reset() {
	f.row = make(map[string]string)
}

// WriteRow writes the prepared row and starts a new one.
func (f *Filter) WriteRow() error {
	fields := make([]string, len(f.tmpl.Columns))
	for i, c := range f.tmpl.Columns {
		fields[i] = f.row[c.Name]
	}
	f.Reset()
	return f.writeLine(fields)
}

func (f *Filter) writeLine(fields []string) error {
	var b strings.Builder
	for i, field := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(field, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteString("\r\n")
	if _, err := io.WriteString(f.w, b.String()); err != nil {
		return fmt.Errorf("write csv line: %w", err)
	}
	return nil
}
