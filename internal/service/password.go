package service

import "strings"

const passwordSpecials = "_*&%$#@"

// ValidPassword reports whether a password meets the platform rules:
// at least 8 characters with one uppercase letter, one lowercase
// letter, one digit and one of _*&%$#@. Written as explicit class
// checks because RE2 has no lookahead.
func ValidPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	return upper && lower && digit && special
}
