package lsp

// applyChanges folds a didChange batch into the document text. Each
// ranged change addresses the content produced by the changes before it,
// so the newline index is rebuilt between steps.
func applyChanges(text string, changes []textDocumentContentChangeEvent) string {
	for _, change := range changes {
		if change.Range == nil {
			text = change.Text
			continue
		}
		content := []byte(text)
		lineIdx := newlineOffsets(text)
		start := clampedOffset(content, lineIdx, change.Range.Start)
		end := clampedOffset(content, lineIdx, change.Range.End)
		if end < start {
			end = start
		}
		text = text[:start] + change.Text + text[end:]
	}
	return text
}

func newlineOffsets(text string) []uint32 {
	var idx []uint32
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			idx = append(idx, uint32(i))
		}
	}
	return idx
}
