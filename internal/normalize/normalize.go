// Package normalize centralizes identifier normalization so profile fields
// and CRM search queries agree on one canonical form.
package normalize

import (
	"regexp"
	"strings"
)

var nonDigitRegex = regexp.MustCompile(`\D`)

// Email normalizes an email address by lowercasing and trimming whitespace
func Email(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Phone normalizes a phone number to E.164. Numbers without a country code
// are assumed Australian: a 10-digit mobile or landline written with its
// leading 0 ("0412 345 678") becomes +61412345678.
func Phone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}

	hasPlus := strings.HasPrefix(phone, "+")
	digits := nonDigitRegex.ReplaceAllString(phone, "")
	if digits == "" {
		return ""
	}

	if hasPlus {
		return "+" + digits
	}

	if len(digits) == 10 && digits[0] == '0' {
		return "+61" + digits[1:]
	}

	if len(digits) == 11 && strings.HasPrefix(digits, "61") {
		return "+" + digits
	}

	return "+" + digits
}
