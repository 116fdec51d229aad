package model

import "strings"

// Principal is an authenticated caller with a verified email.
type Principal struct {
	Email string
	Name  string
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func SameEmail(a, b string) bool {
	a, b = NormalizeEmail(a), NormalizeEmail(b)
	return a != "" && a == b
}
