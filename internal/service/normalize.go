package service

import "strings"

// NormalizePlate is the single normalization point for plate text entering the
// system: uppercase, whitespace trimmed, anything outside A-Z, 0-9 and dash
// dropped. Session uniqueness is computed over this form, so every ingest path
// must go through here.
func NormalizePlate(raw string) string {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}
