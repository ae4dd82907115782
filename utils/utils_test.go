package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseSize(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"4096", 4096},
		{"512B", 512},
		{"4K", 4 * 1024},
		{"64kb", 64 * 1024},
		{"16M", 16 * 1024 * 1024},
		{"2MB", 2 * 1024 * 1024},
		{"1G", 1024 * 1024 * 1024},
		{" 8 M ", 8 * 1024 * 1024},
	}
	for _, c := range cases {
		got, err := ParseSize(c.in)
		if err != nil {
			t.Errorf("%q: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("%q: expected %d, got %d", c.in, c.want, got)
		}
	}

	for _, bad := range []string{"", "M", "12X", "-4K", "17179869185G", "9223372036854775807K"} {
		if _, err := ParseSize(bad); err == nil {
			t.Errorf("%q: expected an error", bad)
		}
	}
}

func TestFormatSize(t *testing.T) {
	cases := map[int64]string{
		12:                     "12B",
		2048:                   "2.00KB",
		32440320:               "30.94MB",
		3 * 1024 * 1024 * 1024: "3.00GB",
	}
	for in, want := range cases {
		if got := FormatSize(in); got != want {
			t.Errorf("%d: expected %s, got %s", in, want, got)
		}
	}
}

func TestFormatCount(t *testing.T) {
	if got := FormatCount(999); got != "999" {
		t.Errorf("got %s", got)
	}
	if got := FormatCount(2_500_000); got != "2.50M" {
		t.Errorf("got %s", got)
	}
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x8c100000")
	if err != nil || addr != 0x8c100000 {
		t.Errorf("got %#x %v", addr, err)
	}
	if _, err := ParseAddress("nowhere"); err == nil {
		t.Error("expected an error")
	}
}

func TestLogMessage(t *testing.T) {
	old := LogFile
	LogFile = filepath.Join(t.TempDir(), "memtest.log")
	defer func() { LogFile = old }()

	LogMessage("first", true)
	LogMessage("second", true)

	data, err := os.ReadFile(LogFile)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two entries, got %q", lines)
	}
	if !strings.HasPrefix(lines[0], "Log file created at:") {
		t.Errorf("missing header: %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "| first") || !strings.HasSuffix(lines[2], "| second") {
		t.Errorf("unexpected entries: %q", lines[1:])
	}
}
