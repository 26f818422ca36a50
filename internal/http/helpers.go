package http

import (
	"fmt"
	"strings"
	"time"

	"feeledger/internal/core"
)

const dateLayout = "2006-01-02"

// parseDate parses a YYYY-MM-DD date. An empty string yields the zero time.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", core.ErrInvalidInput, s)
	}
	return t, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// attachmentName builds a download file name from its parts, e.g.
// ledger_STU-ABC.csv.
func attachmentName(kind string, parts ...string) string {
	name := kind
	for _, p := range parts {
		p = strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
				return r
			}
			return '_'
		}, p)
		if p != "" {
			name += "_" + p
		}
	}
	return name
}
