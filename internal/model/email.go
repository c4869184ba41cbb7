package model

import "strings"

// DefaultEmail is the placeholder assigned at account creation. Changing an
// e-mail *to* this value is always refused.
const DefaultEmail = "a@a.com"

// ValidEmail reports whether the address passes the account e-mail grammar:
// length 3..39, contains '@', does not end in '@' or '.', and after the last
// '@' there is no "@.", "..", control character, space or ';'.
func ValidEmail(email string) bool {
	if len(email) < 3 || len(email) > 39 {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	if at < 0 || email[len(email)-1] == '@' || email[len(email)-1] == '.' {
		return false
	}

	domain := email[at:]
	if strings.Contains(domain, "@.") || strings.Contains(domain, "..") {
		return false
	}
	for i := 0; i < len(domain); i++ {
		ch := domain[i]
		if ch < 32 || ch == ' ' || ch == ';' {
			return false
		}
	}
	return true
}
