package fsbridge

import "testing"

func TestResolvePath_Absolute(t *testing.T) {
	got, err := resolvePath("/work", "/etc/passwd")
	if err != nil {
		t.Fatalf("resolvePath: %v", err)
	}
	if got != "/etc/passwd" {
		t.Errorf("got %q", got)
	}
}

func TestResolvePath_Relative(t *testing.T) {
	got, err := resolvePath("/work", "src/main.go")
	if err != nil {
		t.Fatalf("resolvePath: %v", err)
	}
	if got != "/work/src/main.go" {
		t.Errorf("got %q", got)
	}
}

func TestResolvePath_DotComponentsIgnored(t *testing.T) {
	got, err := resolvePath("/work", "./src/./main.go")
	if err != nil {
		t.Fatalf("resolvePath: %v", err)
	}
	if got != "/work/src/main.go" {
		t.Errorf("got %q", got)
	}
}

func TestResolvePath_DotDotPopsWithinRoot(t *testing.T) {
	got, err := resolvePath("/work", "src/../main.go")
	if err != nil {
		t.Fatalf("resolvePath: %v", err)
	}
	if got != "/work/main.go" {
		t.Errorf("got %q", got)
	}
}

func TestResolvePath_DotDotAboveRootFails(t *testing.T) {
	_, err := resolvePath("/work", "../escape.go")
	if err == nil || err.Error() != "path escapes workspace root" {
		t.Fatalf("err = %v, want escape error", err)
	}
}

func TestResolvePath_DotDotAboveRootAfterPopsFails(t *testing.T) {
	_, err := resolvePath("/work", "a/../../escape.go")
	if err == nil || err.Error() != "path escapes workspace root" {
		t.Fatalf("err = %v, want escape error", err)
	}
}
