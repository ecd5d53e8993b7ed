// Package properties reads Java-style "key=value" property text, the format
// Garmin publishes its activity and event type names in.
package properties

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Properties is an ordered key/value list.
type Properties struct {
	Keys   []string
	Values map[string]string
}

// Get returns the value for key and whether it was defined.
func (p Properties) Get(key string) (string, bool) {
	v, ok := p.Values[key]
	return v, ok
}

// ValueOrKey returns the value for key, or key itself when it is undefined.
func (p Properties) ValueOrKey(key string) string {
	if v, ok := p.Values[key]; ok {
		return v
	}
	return key
}

// Parse reads properties from r. Blank lines and lines starting with '#' are
// skipped; values are trimmed and stripped of surrounding double quotes. A key
// defined twice keeps its first position and its last value.
func Parse(r io.Reader) (Properties, error) {
	p := Properties{Values: make(map[string]string)}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, _ := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"`)
		if _, seen := p.Values[key]; !seen {
			p.Keys = append(p.Keys, key)
		}
		p.Values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return Properties{}, fmt.Errorf("read properties: %w", err)
	}
	return p, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (Properties, error) {
	return Parse(strings.NewReader(s))
}
