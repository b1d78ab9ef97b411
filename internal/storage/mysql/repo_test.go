package mysql

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"goa", 10, "goa"},
		{"goa", 3, "goa"},
		{"goa", 2, "go"},
		{"héllo", 2, "h"}, // é is two bytes; cutting at 2 would split it
		{"héllo", 3, "hé"},
		{"€", 2, ""},
	}
	for _, c := range cases {
		if got := truncate(c.in, c.n); got != c.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", c.in, c.n, got, c.want)
		}
	}

	long := strings.Repeat("ü", maxReason) // 2*maxReason bytes
	got := truncate("x"+long, maxReason)
	if len(got) > maxReason || !utf8.ValidString(got) {
		t.Fatalf("reason not cut to a valid prefix: len=%d valid=%v", len(got), utf8.ValidString(got))
	}
	got = truncate(strings.Repeat("中", 200), maxDestination)
	if len(got) > maxDestination || !utf8.ValidString(got) {
		t.Fatalf("destination not cut to a valid prefix: len=%d", len(got))
	}
}

func TestParseDSN_ForcesParseTime(t *testing.T) {
	cfg, err := parseDSN("root:pw@tcp(127.0.0.1:3306)/hotels")
	if err != nil {
		t.Fatalf("parseDSN: %v", err)
	}
	if !cfg.ParseTime {
		t.Fatalf("parseTime must be on")
	}
	if cfg.DBName != "hotels" || cfg.Loc != time.UTC {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	cfg, err = parseDSN("root:pw@tcp(127.0.0.1:3306)/hotels?parseTime=false")
	if err != nil || !cfg.ParseTime {
		t.Fatalf("explicit parseTime=false must be overridden: %+v %v", cfg, err)
	}

	if _, err := parseDSN("not a dsn"); err == nil {
		t.Fatalf("expected error for malformed DSN")
	}
}
