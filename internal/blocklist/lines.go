package blocklist

import (
	"sort"
	"strings"
)

// Separator is inserted into the result set before and after the lines of
// every source. It is an ordinary line for dedup and sort purposes.
const Separator = "********************--************************"

// ParseLines splits body on '\n', trims every line and drops empty
// lines and comments starting with '#'.
func ParseLines(body string) []string {
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		// TrimSpace also removes '\r' from CRLF documents.
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// ResultSet is the deduplicated union of lines of one build.
//
// ResultSet is not safe for concurrent use; the builder owns it and
// adds results one at a time.
type ResultSet struct {
	lines      map[string]struct{}
	duplicates map[string]struct{}
}

// NewResultSet constructs an empty ResultSet.
func NewResultSet() *ResultSet {
	return &ResultSet{
		lines:      make(map[string]struct{}),
		duplicates: make(map[string]struct{}),
	}
}

func (rs *ResultSet) add(line string) {
	if _, ok := rs.lines[line]; ok {
		if line != Separator {
			rs.duplicates[line] = struct{}{}
		}
		return
	}
	rs.lines[line] = struct{}{}
}

// AddSource adds the lines of one source enclosed by Separator.
func (rs *ResultSet) AddSource(lines []string) {
	rs.add(Separator)
	for _, line := range lines {
		rs.add(line)
	}
	rs.add(Separator)
}

// Len returns the number of unique lines.
func (rs *ResultSet) Len() int {
	return len(rs.lines)
}

// Sorted returns unique lines in ascending byte order.
func (rs *ResultSet) Sorted() []string {
	return sortedKeys(rs.lines)
}

// Duplicates returns lines that were added more than once, sorted.
// Separator is never reported.
func (rs *ResultSet) Duplicates() []string {
	return sortedKeys(rs.duplicates)
}

// Content returns the sorted lines joined by '\n' without a trailing newline.
func (rs *ResultSet) Content() string {
	return strings.Join(rs.Sorted(), "\n")
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
