// Package csvexport writes the activities CSV. Which columns appear, their
// order and their header text all come from a template.
package csvexport

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sstent/garminexport/internal/properties"
)

//go:embed default_template.properties
var defaultTemplate string

// Column maps an internal field name to its CSV header.
type Column struct {
	Name   string
	Header string
}

// Template is the ordered set of active CSV columns.
type Template struct {
	Columns []Column
	headers map[string]string
}

// ParseTemplate reads "name=Header" lines. Lines starting with '#' are ignored,
// so commenting a line out drops the column.
func ParseTemplate(r io.Reader) (Template, error) {
	props, err := properties.Parse(r)
	if err != nil {
		return Template{}, err
	}
	t := Template{headers: make(map[string]string, len(props.Keys))}
	for _, key := range props.Keys {
		header := props.Values[key]
		t.Columns = append(t.Columns, Column{Name: key, Header: header})
		t.headers[key] = header
	}
	if len(t.Columns) == 0 {
		return Template{}, fmt.Errorf("csv template defines no columns")
	}
	return t, nil
}

// LoadTemplate reads a template file; an empty path selects the built-in one.
func LoadTemplate(path string) (Template, error) {
	if path == "" {
		return DefaultTemplate(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Template{}, fmt.Errorf("failed to open csv template: %w", err)
	}
	defer f.Close()

	t, err := ParseTemplate(f)
	if err != nil {
		return Template{}, fmt.Errorf("failed to parse csv template %s: %w", path, err)
	}
	return t, nil
}

// DefaultTemplate returns the built-in template listing every known column.
func DefaultTemplate() Template {
	t, err := ParseTemplate(strings.NewReader(defaultTemplate))
	if err != nil {
		panic(fmt.Sprintf("built-in csv template: %v", err))
	}
	return t
}

// Has reports whether name is an active column.
func (t Template) Has(name string) bool {
	_, ok := t.headers[name]
	return ok
}

// Headers returns the header row in column order.
func (t Template) Headers() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Header
	}
	return out
}
