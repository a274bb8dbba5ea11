// Package reasoning implements the reasoning aggregator (component C2):
// it collates a backend's streaming reasoning deltas into sections and
// decides what to show the client as a single "thought" chunk, suppressing
// duplicate output when a backend emits both deltas and an overlapping
// final reasoning block.
package reasoning

import "strings"

// Aggregator holds one prompt's worth of reasoning text: a list of
// completed sections plus one in-progress buffer. Deltas are append-only;
// TakeText empties the aggregator.
//
// Not safe for concurrent use; callers confine one Aggregator to one
// session's single-threaded prompt loop.
type Aggregator struct {
	sections []string
	current  strings.Builder
}

// New returns an empty aggregator.
func New() *Aggregator {
	return &Aggregator{}
}

// Reset clears all state, ready for the next prompt.
func (a *Aggregator) Reset() {
	a.sections = a.sections[:0]
	a.current.Reset()
}

// AppendDelta extends the in-progress buffer.
func (a *Aggregator) AppendDelta(delta string) {
	a.current.WriteString(delta)
}

// SectionBreak closes the in-progress buffer into a new section, if
// non-empty, and clears it.
func (a *Aggregator) SectionBreak() {
	if a.current.Len() == 0 {
		return
	}
	a.sections = append(a.sections, a.current.String())
	a.current.Reset()
}

// TakeText concatenates non-empty sections (and any still-open buffer)
// with a blank line between them, trims each section's trailing
// whitespace, and drains all state. Returns "", false if there was
// nothing to report.
func (a *Aggregator) TakeText() (string, bool) {
	var combined strings.Builder
	first := true

	for _, section := range a.sections {
		if strings.TrimSpace(section) == "" {
			continue
		}
		if !first {
			combined.WriteString("\n\n")
		}
		combined.WriteString(trimTrailingSpace(section))
		first = false
	}
	a.sections = a.sections[:0]

	if cur := a.current.String(); strings.TrimSpace(cur) != "" {
		if !first {
			combined.WriteString("\n\n")
		}
		combined.WriteString(trimTrailingSpace(cur))
	}
	a.current.Reset()

	if combined.Len() == 0 {
		return "", false
	}
	return combined.String(), true
}

// ChooseFinalText drains the aggregator via TakeText and, if a final text
// is also supplied, keeps whichever of the two is strictly longer after
// trimming (preferring the aggregated text on a tie or when final is
// empty), since some backends repeat the aggregated content verbatim in
// the terminal event.
func (a *Aggregator) ChooseFinalText(final string, haveFinal bool) (string, bool) {
	agg, haveAgg := a.TakeText()

	switch {
	case haveAgg && haveFinal:
		if len(strings.TrimSpace(final)) > len(strings.TrimSpace(agg)) {
			return final, true
		}
		return agg, true
	case haveAgg:
		return agg, true
	case haveFinal:
		return final, true
	default:
		return "", false
	}
}

func trimTrailingSpace(s string) string {
	return strings.TrimRight(s, " \t\r\n")
}
