// Package timeparse turns human date/time phrases plus a timezone alias
// into the canonical UTC form the scheduling provider expects
// (YYYY-MM-DDTHH:MM:SS.000Z).
package timeparse

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	contractx "github.com/witchaya/calbot/agent/contract"
)

// CanonicalLayout is the provider wire format: millisecond precision,
// explicit Z suffix. The trailing Z is a literal, not a zone token.
const CanonicalLayout = "2006-01-02T15:04:05.000Z"

var (
	ordinalRe   = regexp.MustCompile(`(\d+)(st|nd|rd|th)`)
	canonicalRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z`)
)

// layouts is an ordered tie-break list: some formats are structurally
// ambiguous (day/month vs month/day) and the first match wins. Input is
// lowercased first; month-name matching in time.Parse ignores case but
// the am/pm token does not.
var layouts = []string{
	"2 January 2006 3pm",  // "20 march 2025 7pm"
	"2 January 2006 3 pm", // "20 march 2025 7 pm"
	"January 2 2006 3pm",  // "march 20 2025 7pm"
	"January 2 2006 3 pm", // "march 20 2025 7 pm"
	"2/1/2006 3pm",        // "20/3/2025 7pm"
	"2/1/2006 3 pm",       // "20/3/2025 7 pm"
	"2006-1-2 3pm",        // "2025-03-20 7pm"
	"2006-1-2 3 pm",       // "2025-03-20 7 pm"
}

// zoneAliases maps informal timezone spellings to canonical zone names.
// Matching is substring-based over a lowercased, space-stripped alias;
// order matters and mirrors the lookup table this service has always
// shipped with.
var zoneAliases = []struct {
	alias string
	zone  string
}{
	{"singapore", "Asia/Singapore"},
	{"gmt+8", "Asia/Singapore"},
	{"est", "America/New_York"},
	{"pst", "America/Los_Angeles"},
}

// ResolveZone maps a user-supplied timezone alias to a canonical zone
// name. Unmatched input passes through unchanged and is trusted to
// already be canonical.
func ResolveZone(alias string) string {
	normalized := strings.ReplaceAll(strings.ToLower(alias), " ", "")
	for _, m := range zoneAliases {
		if strings.Contains(normalized, m.alias) {
			return m.zone
		}
	}
	return alias
}

// LooksCanonical reports whether s already looks like a canonical
// absolute-time string (has the date/time separator and UTC marker).
// Call sites use this cheap check before paying for normalization.
func LooksCanonical(s string) bool {
	return strings.Contains(s, "T") && strings.HasSuffix(s, "Z")
}

// Normalize parses text against the layout list, localizes it in the
// resolved zone and returns the canonical UTC string. Text that is
// already canonical is returned unchanged. Fails with contract.ErrParse
// when nothing matches and with contract.ErrPastTime when the resolved
// instant is not strictly after now.
func Normalize(text string, tzAlias string, now time.Time) (string, error) {
	cleaned := ordinalRe.ReplaceAllString(strings.TrimSpace(text), "$1")
	lowered := strings.ToLower(cleaned)

	zone := ResolveZone(tzAlias)
	loc, zoneErr := time.LoadLocation(zone)

	var local time.Time
	matched := false
	for _, layout := range layouts {
		if zoneErr != nil {
			break
		}
		dt, err := time.ParseInLocation(layout, lowered, loc)
		if err != nil {
			continue
		}
		local = dt
		matched = true
		break
	}

	if !matched {
		if canonicalRe.MatchString(cleaned) {
			return cleaned, nil
		}
		if zoneErr != nil {
			return "", fmt.Errorf("%w: unknown timezone %q", contractx.ErrParse, zone)
		}
		return "", fmt.Errorf("%w: %q", contractx.ErrParse, text)
	}

	utc := local.UTC()
	if !utc.After(now.UTC()) {
		return "", fmt.Errorf("%w: %s", contractx.ErrPastTime, utc.Format(CanonicalLayout))
	}

	return utc.Format(CanonicalLayout), nil
}
