package ui

import (
	"strings"
	"testing"
	"time"
)

func TestFormatTable_Alignment(t *testing.T) {
	got := FormatTable(
		[]string{"ID", "TITLE"},
		[][]string{
			{"1", "Buy milk"},
			{"42", "Walk"},
		},
	)

	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), got)
	}
	if !strings.HasPrefix(lines[1], "1   Buy milk") {
		t.Errorf("row misaligned: %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "42  Walk") {
		t.Errorf("row misaligned: %q", lines[2])
	}
}

func TestFormatTable_IgnoresANSIWidth(t *testing.T) {
	styled := "\x1b[31m1\x1b[0m"
	got := FormatTable([]string{"ID", "T"}, [][]string{{styled, "x"}})
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if !strings.HasSuffix(lines[1], "x") {
		t.Fatalf("unexpected row: %q", lines[1])
	}
	// The escape codes must not widen the column.
	if strings.Contains(lines[1], "     x") {
		t.Errorf("ANSI sequence counted toward width: %q", lines[1])
	}
}

func TestTruncateTableCell(t *testing.T) {
	long := strings.Repeat("a", 80)
	got := TruncateTableCell(long)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected ellipsis suffix, got %q", got)
	}
	if len(got) != tableCellMaxWidth {
		t.Errorf("len = %d, want %d", len(got), tableCellMaxWidth)
	}

	if got := TruncateTableCell("short"); got != "short" {
		t.Errorf("short value modified: %q", got)
	}
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "-"},
		{"2026-03-01", "2026-03-01"},
		{"2026-03-01T09:30:00Z", "2026-03-01"},
		{"not a date", "not a date"},
	}
	for _, tt := range tests {
		if got := FormatDate(tt.input); got != tt.want {
			t.Errorf("FormatDate(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFormatDurationShort(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-time.Second, "0s"},
		{30 * time.Second, "30s"},
		{5 * time.Minute, "5m"},
		{3 * time.Hour, "3h"},
		{48 * time.Hour, "2d"},
	}
	for _, tt := range tests {
		if got := FormatDurationShort(tt.d); got != tt.want {
			t.Errorf("FormatDurationShort(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
