package auth

import "strings"

// DefaultEmailDomain is appended to bare identifiers entered without "@",
// so users can sign in with just a username.
const DefaultEmailDomain = "tesebook.com"

// NormalizeEmail trims, lower-cases, and completes an identifier into a
// full address: "Joao" becomes "joao@tesebook.com".
func NormalizeEmail(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}
	if !strings.Contains(trimmed, "@") {
		return trimmed + "@" + DefaultEmailDomain
	}
	return trimmed
}
