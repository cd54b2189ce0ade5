// Package diff renders line-level diffs for snippet review.
package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	LineContext = "context"
	LineAdded   = "added"
	LineRemoved = "removed"
)

type Line struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	OldLine int    `json:"old_line,omitempty"`
	NewLine int    `json:"new_line,omitempty"`
}

type Stats struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

// Lines computes a line-level diff between before and after.
func Lines(before, after string) []Line {
	dmp := diffmatchpatch.New()
	beforeChars, afterChars, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(beforeChars, afterChars, false), lineArray)

	var lines []Line
	oldLine, newLine := 1, 1
	for _, d := range diffs {
		for _, text := range splitDiffLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				lines = append(lines, Line{Type: LineContext, Text: text, OldLine: oldLine, NewLine: newLine})
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				lines = append(lines, Line{Type: LineRemoved, Text: text, OldLine: oldLine})
				oldLine++
			case diffmatchpatch.DiffInsert:
				lines = append(lines, Line{Type: LineAdded, Text: text, NewLine: newLine})
				newLine++
			}
		}
	}
	return lines
}

// Count tallies added and removed lines.
func Count(lines []Line) Stats {
	var s Stats
	for _, line := range lines {
		switch line.Type {
		case LineAdded:
			s.Added++
		case LineRemoved:
			s.Removed++
		}
	}
	return s
}

func splitDiffLines(chunk string) []string {
	lines := strings.Split(chunk, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
