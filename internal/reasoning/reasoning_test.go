package reasoning

import "testing"

func TestAppendDeltaAndSectionBreak(t *testing.T) {
	a := New()
	a.AppendDelta("hello ")
	a.AppendDelta("world")
	a.SectionBreak()
	a.AppendDelta("second section")

	text, ok := a.TakeText()
	if !ok {
		t.Fatal("expected text")
	}
	want := "hello world\n\nsecond section"
	if text != want {
		t.Errorf("TakeText() = %q, want %q", text, want)
	}
}

func TestTakeText_Idempotence(t *testing.T) {
	a := New()
	a.AppendDelta("abc")
	a.SectionBreak()

	if _, ok := a.TakeText(); !ok {
		t.Fatal("expected text on first TakeText")
	}
	if _, ok := a.TakeText(); ok {
		t.Error("second TakeText should return false (P1)")
	}
}

func TestTakeText_EmptySectionsSkipped(t *testing.T) {
	a := New()
	a.AppendDelta("   ")
	a.SectionBreak()
	a.AppendDelta("real content")
	a.SectionBreak()

	text, ok := a.TakeText()
	if !ok {
		t.Fatal("expected text")
	}
	if text != "real content" {
		t.Errorf("TakeText() = %q, want %q", text, "real content")
	}
}

func TestTakeText_TrailingWhitespaceTrimmedPerSection(t *testing.T) {
	a := New()
	a.AppendDelta("first  \n")
	a.SectionBreak()
	a.AppendDelta("second")

	text, _ := a.TakeText()
	want := "first\n\nsecond"
	if text != want {
		t.Errorf("TakeText() = %q, want %q", text, want)
	}
}

func TestTakeText_NoContent(t *testing.T) {
	a := New()
	if _, ok := a.TakeText(); ok {
		t.Error("expected false for an empty aggregator")
	}
}

func TestChooseFinalText_PrefersLongerFinal(t *testing.T) {
	a := New()
	a.AppendDelta("short")
	got, ok := a.ChooseFinalText("a much longer final answer", true)
	if !ok {
		t.Fatal("expected a result")
	}
	if got != "a much longer final answer" {
		t.Errorf("ChooseFinalText() = %q, want the final text", got)
	}
}

func TestChooseFinalText_PrefersAggregatedWhenLongerOrEqual(t *testing.T) {
	a := New()
	a.AppendDelta("a longer aggregated answer")
	got, ok := a.ChooseFinalText("short", true)
	if !ok {
		t.Fatal("expected a result")
	}
	if got != "a longer aggregated answer" {
		t.Errorf("ChooseFinalText() = %q, want the aggregated text", got)
	}
}

func TestChooseFinalText_NoFinal(t *testing.T) {
	a := New()
	a.AppendDelta("aggregated only")
	got, ok := a.ChooseFinalText("", false)
	if !ok || got != "aggregated only" {
		t.Errorf("ChooseFinalText() = (%q, %v), want (%q, true)", got, ok, "aggregated only")
	}
}

func TestChooseFinalText_NoAggregatedUsesFinal(t *testing.T) {
	a := New()
	got, ok := a.ChooseFinalText("final only", true)
	if !ok || got != "final only" {
		t.Errorf("ChooseFinalText() = (%q, %v), want (%q, true)", got, ok, "final only")
	}
}

func TestChooseFinalText_Empty(t *testing.T) {
	a := New()
	if _, ok := a.ChooseFinalText("", false); ok {
		t.Error("expected false when neither aggregated nor final text is present")
	}
}

func TestReset(t *testing.T) {
	a := New()
	a.AppendDelta("leftover")
	a.SectionBreak()
	a.Reset()

	if _, ok := a.TakeText(); ok {
		t.Error("Reset should clear all sections and the in-progress buffer")
	}
}
