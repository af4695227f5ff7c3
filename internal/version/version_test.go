package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGetDefaultsGoVersion(t *testing.T) {
	old := GoVersion
	t.Cleanup(func() { GoVersion = old })

	GoVersion = ""
	if got := Get().GoVersion; got != runtime.Version() {
		t.Fatalf("GoVersion = %q, want %q", got, runtime.Version())
	}
	GoVersion = "go1.99"
	if got := Get().GoVersion; got != "go1.99" {
		t.Fatalf("GoVersion = %q, want injected value", got)
	}
}

func TestStrings(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })
	Version = "v1.2.3"

	if got := String(); got != "restodir v1.2.3" {
		t.Fatalf("String() = %q", got)
	}
	if v := Verbose(); !strings.HasPrefix(v, "restodir v1.2.3 (commit: ") || !strings.Contains(v, "go: ") {
		t.Fatalf("Verbose() = %q", v)
	}
}
