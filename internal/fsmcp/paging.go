package fsmcp

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	defaultLineLimit = 1000
	maxReadBytes     = 50 * 1024
)

// pagedRead applies the paged-snippet policy to the raw content returned
// by a bridge read that asked for one extra line (requestedLimit+1) so it
// could detect whether more lines remain. It returns the text to hand back
// to the model (with the tagged continuation line appended when needed)
// and the structured meta object, or nil when nothing was truncated.
func pagedRead(raw string, startLine, requestedLimit int) (string, *readMeta) {
	lines := strings.Split(raw, "\n")

	truncatedByLineLimit := len(lines) > requestedLimit
	if truncatedByLineLimit {
		lines = lines[:requestedLimit]
	}

	body := strings.Join(lines, "\n")
	truncatedByBytes := false
	if len(body) > maxReadBytes {
		body = truncateUTF8(body, maxReadBytes)
		truncatedByBytes = true
		lines = strings.Split(body, "\n")
	}

	endLine := startLine + len(lines) - 1
	if len(lines) == 0 {
		endLine = startLine
	}
	additionalLinesAvailable := truncatedByLineLimit || truncatedByBytes

	if !additionalLinesAvailable {
		return body, nil
	}

	nextLine := endLine + 1
	maxBytes := maxReadBytes
	meta := &readMeta{
		StartLine:                startLine,
		EndLine:                  endLine,
		LinesReturned:            len(lines),
		LineLimit:                requestedLimit,
		BytesReturned:            len(body),
		Truncated:                true,
		TruncatedByLineLimit:     truncatedByLineLimit,
		TruncatedByBytes:         truncatedByBytes,
		AdditionalLinesAvailable: additionalLinesAvailable,
		NextLine:                 &nextLine,
		MaxBytes:                 &maxBytes,
	}

	tag := fmt.Sprintf("<file-read-info>Read lines %d-%d (truncated). Continue with line=%d limit=%d.</file-read-info>",
		startLine, endLine, nextLine, requestedLimit)
	return body + "\n" + tag, meta
}

// truncateUTF8 trims s to at most n bytes without splitting a multi-byte
// rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
