package lsp

import "testing"

func ranged(startLine, startChar, endLine, endChar int, text string) textDocumentContentChangeEvent {
	return textDocumentContentChangeEvent{
		Range: &lspRange{
			Start: position{Line: startLine, Character: startChar},
			End:   position{Line: endLine, Character: endChar},
		},
		Text: text,
	}
}

func TestApplyChangesSequentialRanges(t *testing.T) {
	text := "my $x = 1;\nprint $x;\n"
	// The second change addresses the text the first one produced.
	got := applyChanges(text, []textDocumentContentChangeEvent{
		ranged(0, 3, 0, 5, "$count"),
		ranged(1, 6, 1, 8, "$count"),
	})
	want := "my $count = 1;\nprint $count;\n"
	if got != want {
		t.Fatalf("applyChanges = %q, want %q", got, want)
	}
}

func TestApplyChangesFullReplacement(t *testing.T) {
	got := applyChanges("old text", []textDocumentContentChangeEvent{
		{Text: "fresh"},
		ranged(0, 5, 0, 5, "!"),
	})
	if got != "fresh!" {
		t.Fatalf("applyChanges = %q, want %q", got, "fresh!")
	}
}

func TestApplyChangesCountsSurrogatePairs(t *testing.T) {
	// The emoji occupies bytes 9..13 and two UTF-16 units (9..11).
	text := "my $s = \"\U0001F600\";\nprint;\n"
	got := applyChanges(text, []textDocumentContentChangeEvent{
		ranged(0, 11, 0, 11, "x"),
	})
	want := "my $s = \"\U0001F600x\";\nprint;\n"
	if got != want {
		t.Fatalf("applyChanges = %q, want %q", got, want)
	}
}

func TestApplyChangesClampsOutOfRange(t *testing.T) {
	got := applyChanges("one\n", []textDocumentContentChangeEvent{
		ranged(9, 0, 9, 50, " two"),
	})
	if got != "one\n two" {
		t.Fatalf("applyChanges = %q, want %q", got, "one\n two")
	}
}
