package fsmcp

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/pmezard/go-difflib/difflib"
)

// unifiedDiff renders a "--- path / +++ path / @@ hunks" diff between base
// and updated, the exact shape spec'd for edit_text_file's reply text.
func unifiedDiff(path, base, updated string) (string, error) {
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(base),
		B:        difflib.SplitLines(updated),
		FromFile: path,
		ToFile:   path,
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(ud)
}

// hunkHeader matches one unified-diff hunk header, e.g. "@@ -12,5 +12,7 @@".
var hunkHeader = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// parseDiffRanges extracts the old/new line ranges from every "@@" hunk
// header in diff, for the "_meta.codex_fs_diff" object.
func parseDiffRanges(diff string) diffMeta {
	var meta diffMeta
	for _, line := range difflib.SplitLines(diff) {
		m := hunkHeader.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		oldStart := atoiOr(m[1], 0)
		oldLen := atoiOr(m[2], 1)
		newStart := atoiOr(m[3], 0)
		newLen := atoiOr(m[4], 1)

		meta.OldRanges = append(meta.OldRanges, rangeFrom(oldStart, oldLen))
		meta.NewRanges = append(meta.NewRanges, rangeFrom(newStart, newLen))
	}
	return meta
}

func rangeFrom(start, length int) diffRange {
	if length == 0 {
		return diffRange{Start: start, End: start}
	}
	return diffRange{Start: start, End: start + length - 1}
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func completionLine(path string) string {
	return fmt.Sprintf("Applied edits to %s.", path)
}
