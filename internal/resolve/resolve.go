// Package resolve converts edit targets (editor selections or
// locator-returned snippets) into offsets within a document snapshot.
//
// Offsets are byte offsets into the snapshot; selection columns are counted
// in runes, matching what editor widgets report.
package resolve

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Selection is a range reported by an external editor widget, 1-based
// line/column, end column exclusive. Text is advisory: the snapshot text at
// the resolved offsets is authoritative.
type Selection struct {
	Text        string `json:"text,omitempty"`
	StartLine   int    `json:"start_line"`
	StartColumn int    `json:"start_column"`
	EndLine     int    `json:"end_line"`
	EndColumn   int    `json:"end_column"`
}

// Location pins a snippet inside one specific snapshot.
type Location struct {
	Snippet     string `json:"snippet"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
}

// ErrInvalidSelection reports line/column indices outside the snapshot.
var ErrInvalidSelection = errors.New("resolve: selection out of document bounds")

// FromSelection converts a 1-based line/column selection into byte offsets
// within snapshot.
func FromSelection(snapshot string, sel Selection) (Location, error) {
	if sel.StartLine < 1 || sel.EndLine < sel.StartLine || sel.StartColumn < 1 || sel.EndColumn < 1 {
		return Location{}, fmt.Errorf("%w: lines %d-%d columns %d-%d", ErrInvalidSelection, sel.StartLine, sel.EndLine, sel.StartColumn, sel.EndColumn)
	}
	if sel.StartLine == sel.EndLine && sel.EndColumn < sel.StartColumn {
		return Location{}, fmt.Errorf("%w: end column %d before start column %d", ErrInvalidSelection, sel.EndColumn, sel.StartColumn)
	}
	lines := strings.Split(snapshot, "\n")
	if sel.EndLine > len(lines) {
		return Location{}, fmt.Errorf("%w: line %d of %d", ErrInvalidSelection, sel.EndLine, len(lines))
	}
	start, err := lineColumnOffset(lines, sel.StartLine, sel.StartColumn)
	if err != nil {
		return Location{}, err
	}
	end, err := lineColumnOffset(lines, sel.EndLine, sel.EndColumn)
	if err != nil {
		return Location{}, err
	}
	if end < start {
		return Location{}, fmt.Errorf("%w: end before start", ErrInvalidSelection)
	}
	return Location{Snippet: snapshot[start:end], StartOffset: start, EndOffset: end}, nil
}

func lineColumnOffset(lines []string, line, column int) (int, error) {
	offset := 0
	for i := 0; i < line-1; i++ {
		offset += len(lines[i]) + 1
	}
	text := lines[line-1]
	rest := text
	for col := 1; col < column; col++ {
		if rest == "" {
			return 0, fmt.Errorf("%w: column %d past end of line %d", ErrInvalidSelection, column, line)
		}
		_, size := utf8.DecodeRuneInString(rest)
		offset += size
		rest = rest[size:]
	}
	return offset, nil
}

// FindSnippet searches snapshot for the candidate snippet. It tries an exact
// match first, then a whitespace-lenient match (runs of whitespace collapse
// to a single space on both sides, case-sensitive). The first occurrence in
// document order wins.
func FindSnippet(snapshot, candidate string) (Location, bool) {
	if candidate == "" {
		return Location{}, false
	}
	if idx := strings.Index(snapshot, candidate); idx >= 0 {
		return Location{Snippet: candidate, StartOffset: idx, EndOffset: idx + len(candidate)}, true
	}
	return findLenient(snapshot, candidate)
}

func findLenient(snapshot, candidate string) (Location, bool) {
	needle := normalizeNeedle(candidate)
	if needle == "" {
		return Location{}, false
	}
	norm, starts, ends := normalizeDocument(snapshot)
	pos := strings.Index(norm, needle)
	if pos < 0 {
		return Location{}, false
	}
	start := starts[pos]
	end := ends[pos+len(needle)-1]
	return Location{Snippet: snapshot[start:end], StartOffset: start, EndOffset: end}, true
}

// normalizeDocument collapses whitespace runs into single spaces and keeps a
// per-byte map back to the original byte ranges, so a match in the
// normalized text can be translated into snapshot offsets.
func normalizeDocument(s string) (string, []int, []int) {
	var b strings.Builder
	starts := make([]int, 0, len(s))
	ends := make([]int, 0, len(s))
	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if unicode.IsSpace(r) {
			runStart := i
			i += size
			for i < len(s) {
				r2, size2 := utf8.DecodeRuneInString(s[i:])
				if !unicode.IsSpace(r2) {
					break
				}
				i += size2
			}
			b.WriteByte(' ')
			starts = append(starts, runStart)
			ends = append(ends, i)
			continue
		}
		b.WriteString(s[i : i+size])
		for k := 0; k < size; k++ {
			starts = append(starts, i)
			ends = append(ends, i+size)
		}
		i += size
	}
	return b.String(), starts, ends
}

func normalizeNeedle(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}
