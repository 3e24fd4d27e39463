package source

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"fortio.org/safecast"
)

// ErrPositionNotFound reports a byte offset or editor position that does not
// exist in the document. Callers must treat it as a hard miss; the mapper
// never clamps out-of-range input.
var ErrPositionNotFound = errors.New("position not found")

// ByteToUTF16 converts a byte offset into an editor position with a 0-based
// line and a 0-based UTF-16 code-unit column. Offsets pointing into the
// middle of a UTF-8 sequence or past the end of the file are rejected.
// The offset equal to len(Content) is valid and maps just past the last
// character.
func (f *File) ByteToUTF16(off uint32) (LineCol16, error) {
	contentLen, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		return LineCol16{}, fmt.Errorf("content length overflow: %w", err)
	}
	if off > contentLen {
		return LineCol16{}, fmt.Errorf("byte offset %d beyond %d: %w", off, contentLen, ErrPositionNotFound)
	}
	if off < contentLen && isUTF8Continuation(f.Content[off]) {
		return LineCol16{}, fmt.Errorf("byte offset %d inside a UTF-8 sequence: %w", off, ErrPositionNotFound)
	}

	line := lineForOffset(f.LineIdx, off)
	start := lineStart(f.LineIdx, line)

	units := uint32(0)
	for i := start; i < off; {
		r, size := utf8.DecodeRune(f.Content[i:])
		if r == utf8.RuneError && size == 1 {
			size = 1
		}
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
		i += uint32(size)
	}
	return LineCol16{Line: line, Col: units}, nil
}

// UTF16ToByte is the inverse of ByteToUTF16. Positions on nonexistent lines,
// past a line's end, or splitting a surrogate pair are rejected. A column
// equal to the line's UTF-16 width is valid and maps to the line terminator
// (or end of file on the last line).
func (f *File) UTF16ToByte(pos LineCol16) (uint32, error) {
	contentLen, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		return 0, fmt.Errorf("content length overflow: %w", err)
	}
	lineCount, err := safecast.Conv[uint32](len(f.LineIdx) + 1)
	if err != nil {
		return 0, fmt.Errorf("line count overflow: %w", err)
	}
	if pos.Line >= lineCount {
		return 0, fmt.Errorf("line %d beyond %d lines: %w", pos.Line, lineCount, ErrPositionNotFound)
	}

	start := lineStart(f.LineIdx, pos.Line)
	end := contentLen
	if int(pos.Line) < len(f.LineIdx) {
		end = f.LineIdx[pos.Line]
	}

	units := uint32(0)
	off := start
	for off < end {
		if units == pos.Col {
			return off, nil
		}
		r, size := utf8.DecodeRune(f.Content[off:end])
		if r == utf8.RuneError && size == 1 {
			size = 1
		}
		need := uint32(1)
		if r > 0xFFFF {
			need = 2
		}
		if units+need > pos.Col {
			return 0, fmt.Errorf("column %d splits a surrogate pair on line %d: %w", pos.Col, pos.Line, ErrPositionNotFound)
		}
		units += need
		off += uint32(size)
	}
	if units == pos.Col {
		return off, nil
	}
	return 0, fmt.Errorf("column %d beyond line %d width %d: %w", pos.Col, pos.Line, units, ErrPositionNotFound)
}

// ResolveUTF16 converts a span into a start/end editor position pair.
func (f *File) ResolveUTF16(span Span) (start, end LineCol16, err error) {
	start, err = f.ByteToUTF16(span.Start)
	if err != nil {
		return LineCol16{}, LineCol16{}, err
	}
	end, err = f.ByteToUTF16(span.End)
	if err != nil {
		return LineCol16{}, LineCol16{}, err
	}
	return start, end, nil
}

// lineForOffset returns the 0-based line containing off. A \n byte belongs
// to the line it terminates.
func lineForOffset(lineIdx []uint32, off uint32) uint32 {
	lo, hi := 0, len(lineIdx)
	for lo < hi {
		mid := (lo + hi) >> 1
		if lineIdx[mid] < off {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return uint32(lo)
}

// lineStart returns the byte offset where the 0-based line begins.
func lineStart(lineIdx []uint32, line uint32) uint32 {
	if line == 0 {
		return 0
	}
	return lineIdx[line-1] + 1
}

func isUTF8Continuation(b byte) bool {
	return b&0xC0 == 0x80
}
