package diff

import "testing"

func TestLinesSingleLineChange(t *testing.T) {
	lines := Lines("line one\nline two\nline three\n", "line one\nline 2\nline three\n")
	var added, removed, context int
	for _, line := range lines {
		switch line.Type {
		case LineAdded:
			added++
			if line.Text != "line 2" {
				t.Fatalf("added line = %q", line.Text)
			}
		case LineRemoved:
			removed++
			if line.Text != "line two" {
				t.Fatalf("removed line = %q", line.Text)
			}
		case LineContext:
			context++
		}
	}
	if added != 1 || removed != 1 || context != 2 {
		t.Fatalf("added=%d removed=%d context=%d", added, removed, context)
	}
}

func TestLinesIdentical(t *testing.T) {
	lines := Lines("same\ntext\n", "same\ntext\n")
	stats := Count(lines)
	if stats.Added != 0 || stats.Removed != 0 {
		t.Fatalf("identical inputs produced stats %+v", stats)
	}
	for _, line := range lines {
		if line.Type != LineContext {
			t.Fatalf("identical inputs produced %s line %q", line.Type, line.Text)
		}
	}
}

func TestLinesNumbering(t *testing.T) {
	lines := Lines("a\nb\nc\n", "a\nx\nc\n")
	for _, line := range lines {
		switch {
		case line.Type == LineContext && line.Text == "a":
			if line.OldLine != 1 || line.NewLine != 1 {
				t.Fatalf("context a numbering: %+v", line)
			}
		case line.Type == LineRemoved:
			if line.OldLine != 2 || line.NewLine != 0 {
				t.Fatalf("removed numbering: %+v", line)
			}
		case line.Type == LineAdded:
			if line.NewLine != 2 || line.OldLine != 0 {
				t.Fatalf("added numbering: %+v", line)
			}
		case line.Type == LineContext && line.Text == "c":
			if line.OldLine != 3 || line.NewLine != 3 {
				t.Fatalf("context c numbering: %+v", line)
			}
		}
	}
}

func TestLinesPureInsertion(t *testing.T) {
	lines := Lines("", "brand new\n")
	stats := Count(lines)
	if stats.Added != 1 || stats.Removed != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestCount(t *testing.T) {
	stats := Count([]Line{
		{Type: LineAdded}, {Type: LineAdded}, {Type: LineRemoved}, {Type: LineContext},
	})
	if stats.Added != 2 || stats.Removed != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}
