package timeparse

import (
	"errors"
	"testing"
	"time"

	contractx "github.com/witchaya/calbot/agent/contract"
)

func fixedNow() time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
}

func TestNormalizeHumanFormats(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		tz   string
		want string
	}{
		{
			name: "day month year",
			text: "20 March 2025 7pm",
			tz:   "Asia/Singapore",
			want: "2025-03-20T11:00:00.000Z",
		},
		{
			name: "month day year with space before meridian",
			text: "March 20 2025 7 pm",
			tz:   "Asia/Singapore",
			want: "2025-03-20T11:00:00.000Z",
		},
		{
			name: "slash format",
			text: "20/3/2025 7pm",
			tz:   "Asia/Singapore",
			want: "2025-03-20T11:00:00.000Z",
		},
		{
			name: "iso date with meridian time",
			text: "2025-03-20 7pm",
			tz:   "Asia/Singapore",
			want: "2025-03-20T11:00:00.000Z",
		},
		{
			name: "ordinal suffix stripped",
			text: "20th March 2025 7pm",
			tz:   "Asia/Singapore",
			want: "2025-03-20T11:00:00.000Z",
		},
		{
			name: "timezone alias resolved",
			text: "20 March 2025 7pm",
			tz:   "singapore time",
			want: "2025-03-20T11:00:00.000Z",
		},
		{
			name: "est alias in winter",
			text: "20 January 2026 7pm",
			tz:   "EST",
			want: "2026-01-21T00:00:00.000Z",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := Normalize(tc.text, tc.tz, fixedNow())
			if err != nil {
				t.Fatalf("Normalize(%q, %q) error = %v", tc.text, tc.tz, err)
			}
			if got != tc.want {
				t.Fatalf("Normalize(%q, %q) = %q, want %q", tc.text, tc.tz, got, tc.want)
			}
		})
	}
}

func TestNormalizeCanonicalPassthrough(t *testing.T) {
	t.Parallel()

	in := "2025-03-20T11:00:00Z"
	got, err := Normalize(in, "Asia/Singapore", fixedNow())
	if err != nil {
		t.Fatalf("Normalize(%q) error = %v", in, err)
	}
	if got != in {
		t.Fatalf("Normalize(%q) = %q, want passthrough", in, got)
	}
}

func TestNormalizePastTime(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err := Normalize("20 March 2025 7pm", "Asia/Singapore", now)
	if !errors.Is(err, contractx.ErrPastTime) {
		t.Fatalf("expected ErrPastTime, got %v", err)
	}
}

func TestNormalizeUnparseable(t *testing.T) {
	t.Parallel()

	_, err := Normalize("sometime next week maybe", "Asia/Singapore", fixedNow())
	if !errors.Is(err, contractx.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestNormalizeUnknownZone(t *testing.T) {
	t.Parallel()

	_, err := Normalize("20 March 2025 7pm", "Mars/Olympus_Mons", fixedNow())
	if !errors.Is(err, contractx.ErrParse) {
		t.Fatalf("expected ErrParse for unknown zone, got %v", err)
	}
}

func TestResolveZone(t *testing.T) {
	t.Parallel()

	cases := []struct {
		alias string
		want  string
	}{
		{"Singapore", "Asia/Singapore"},
		{"singapore time", "Asia/Singapore"},
		{"GMT+8", "Asia/Singapore"},
		{"gmt +8", "Asia/Singapore"},
		{"Gmt+8", "Asia/Singapore"},
		{"EST", "America/New_York"},
		{"pst", "America/Los_Angeles"},
		{"Europe/London", "Europe/London"},
	}
	for _, tc := range cases {
		if got := ResolveZone(tc.alias); got != tc.want {
			t.Fatalf("ResolveZone(%q) = %q, want %q", tc.alias, got, tc.want)
		}
	}
}

func TestLooksCanonical(t *testing.T) {
	t.Parallel()

	if !LooksCanonical("2025-03-20T11:00:00.000Z") {
		t.Fatal("canonical string not recognized")
	}
	if LooksCanonical("20 March 2025 7pm") {
		t.Fatal("human phrase recognized as canonical")
	}
}
