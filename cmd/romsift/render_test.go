package main

import (
	"strings"
	"testing"
)

func TestDisplayLabel(t *testing.T) {
	tests := map[string]string{
		"already_present": "Already Present",
		"copied":          "Copied",
		"":                "-",
	}
	for in, want := range tests {
		if got := displayLabel(in); got != want {
			t.Errorf("displayLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderTableIncludesHeadersAndRows(t *testing.T) {
	out := renderTable([]string{"ID", "Game"}, [][]string{{"1", "Super Mario 64"}}, []columnAlignment{alignRight})
	for _, want := range []string{"ID", "Game", "Super Mario 64"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
}

func TestOrDash(t *testing.T) {
	if orDash("  ") != "-" || orDash("x") != "x" {
		t.Fatal("orDash should replace blank values only")
	}
}

func TestRenderStatusLine(t *testing.T) {
	line := renderStatusLine("Matched", statusOK, "3", false)
	if !strings.Contains(line, "Matched:") || !strings.Contains(line, "] 3") {
		t.Fatalf("unexpected status line %q", line)
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("plain output must not carry color codes: %q", line)
	}
	colored := renderStatusLine("Failed", statusError, "1", true)
	if !strings.Contains(colored, ansiRed) {
		t.Fatalf("expected red output for errors: %q", colored)
	}
}
