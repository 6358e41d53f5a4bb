package scan

import "strings"

// Hit is one matched annotation: the 1-based line number and its label.
type Hit struct {
	Line  int
	Label Label
}

// ScanContent applies ParseLine to every line of a file's text and returns
// the ordered hits. It is a pure function: identical content always yields
// identical output.
func ScanContent(content string) []Hit {
	var hits []Hit
	for i, line := range strings.Split(content, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if label, ok := ParseLine(line); ok {
			hits = append(hits, Hit{Line: i + 1, Label: label})
		}
	}
	return hits
}
