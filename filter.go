package tarcat

import (
	"bufio"
	"fmt"
	"io"
)

// Filter selects entries by exact name match.
//
// Absence of selection is permissive: a nil *Filter admits every name,
// and so does a filter built from no names. Matching is byte-exact
// against the name stored in the source archive; there is no globbing
// and no path normalization.
type Filter struct {
	names map[string]struct{}
}

// NewFilter builds a filter admitting exactly the given names.
func NewFilter(names ...string) *Filter {
	f := &Filter{names: make(map[string]struct{}, len(names))}
	for _, name := range names {
		f.names[name] = struct{}{}
	}
	return f
}

// ParseFilter reads a newline-separated name list from r.
//
// Both LF and CRLF terminators are accepted. Blank lines are ignored.
func ParseFilter(r io.Reader) (*Filter, error) {
	f := &Filter{names: make(map[string]struct{})}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if name := scanner.Text(); name != "" {
			f.names[name] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read filter list: %w", err)
	}
	return f, nil
}

// Admits reports whether name passes the filter.
func (f *Filter) Admits(name string) bool {
	if f.Len() == 0 {
		return true
	}
	_, ok := f.names[name]
	return ok
}

// Len returns the number of selected names. Zero means the filter
// admits everything.
func (f *Filter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.names)
}
