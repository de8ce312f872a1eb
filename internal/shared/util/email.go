package util

import "net/mail"

// ValidEmail reports whether s is a bare RFC 5322 address such as
// "ada@example.com". Display-name forms are rejected.
func ValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
