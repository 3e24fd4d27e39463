package lsp

import (
	"unicode/utf8"

	"fortio.org/safecast"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
)

const maxUint32 = ^uint32(0)

func safeUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return maxUint32
	}
	return v
}

// offsetForPositionInFile maps a 0-based line and UTF-16 character to a
// byte offset. Characters past the end of the line clamp to line end;
// lines past EOF clamp to the end of content.
func offsetForPositionInFile(file *source.File, pos position) uint32 {
	if file == nil {
		return 0
	}
	return clampedOffset(file.Content, file.LineIdx, pos)
}

// clampedOffset is the clamping counterpart of source.File.UTF16ToByte,
// usable on content that has no File yet. lineIdx holds the '\n' byte
// offsets of content, as in source.File.LineIdx.
func clampedOffset(content []byte, lineIdx []uint32, pos position) uint32 {
	if pos.Line < 0 || pos.Character < 0 || len(content) == 0 {
		return 0
	}
	lineCount := len(lineIdx) + 1
	contentLen := safeUint32(len(content))
	if pos.Line >= lineCount {
		return contentLen
	}
	var lineStart uint32
	if pos.Line > 0 {
		lineStart = lineIdx[pos.Line-1] + 1
	}
	lineEnd := contentLen
	if pos.Line < len(lineIdx) {
		lineEnd = lineIdx[pos.Line]
	}
	if lineStart > lineEnd {
		return lineEnd
	}
	units := 0
	off := lineStart
	for off < lineEnd {
		r, size := utf8.DecodeRune(content[off:lineEnd])
		need := 1
		if r > 0xFFFF {
			need = 2
		}
		if units+need > pos.Character {
			break
		}
		units += need
		off += safeUint32(size)
		if units == pos.Character {
			break
		}
	}
	return off
}

// positionForOffsetInFile maps a byte offset to a 0-based line and UTF-16
// character. Offsets past EOF or inside a UTF-8 sequence are snapped to
// the nearest rune boundary before the strict mapper runs.
func positionForOffsetInFile(file *source.File, offset uint32) position {
	if file == nil {
		return position{}
	}
	contentLen := safeUint32(len(file.Content))
	if offset > contentLen {
		offset = contentLen
	}
	for offset > 0 && offset < contentLen && file.Content[offset]&0xC0 == 0x80 {
		offset--
	}
	lc, err := file.ByteToUTF16(offset)
	if err != nil {
		return position{}
	}
	return position{Line: int(lc.Line), Character: int(lc.Col)}
}

func rangeForSpan(file *source.File, span source.Span) lspRange {
	if file == nil {
		return lspRange{}
	}
	return lspRange{
		Start: positionForOffsetInFile(file, span.Start),
		End:   positionForOffsetInFile(file, span.End),
	}
}
