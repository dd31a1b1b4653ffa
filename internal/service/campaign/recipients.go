package campaign

import "strings"

// ParseRecipients splits raw operator input on commas, semicolons, and
// newlines, trims each address, and drops blanks and exact duplicates.
// Order of first appearance is kept; comparison is case-sensitive.
func ParseRecipients(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '\r'
	})

	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		addr := strings.TrimSpace(f)
		if addr == "" {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}
