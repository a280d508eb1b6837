// Package lookup loads the small "key;value" tables that map duty codes to
// titles and station codes to timezones.
package lookup

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Separator is the field delimiter of table files.
const Separator = ";"

// Table is an immutable exact-match string mapping.
type Table struct {
	m map[string]string
}

// New builds a Table from an existing map. The map is copied.
func New(entries map[string]string) Table {
	m := make(map[string]string, len(entries))
	for k, v := range entries {
		m[k] = v
	}
	return Table{m: m}
}

// Load reads a table file. On any error the returned Table is empty but
// usable, so callers can log the error and continue.
func Load(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return Table{}, err
	}
	return t, nil
}

// Parse reads "key;value[;...]" lines. Keys and values are trimmed, extra
// fields are dropped. Lines with fewer than two fields or an empty key or
// value are ignored. A later duplicate key overrides an earlier one.
func Parse(r io.Reader) (Table, error) {
	m := make(map[string]string)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		parts := strings.Split(sc.Text(), Separator)
		if len(parts) < 2 {
			continue
		}
		key, value := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		m[key] = value
	}
	if err := sc.Err(); err != nil {
		return Table{}, err
	}
	return Table{m: m}, nil
}

// Get returns the value for key, or def if the key is absent.
func (t Table) Get(key, def string) string {
	if v, ok := t.m[key]; ok {
		return v
	}
	return def
}

// Len returns the number of entries.
func (t Table) Len() int {
	return len(t.m)
}
