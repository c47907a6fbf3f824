package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	accountNumberRegex = regexp.MustCompile(`^[0-9]{4,34}$`)
	routingCodeRegex   = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	controlCharsRegex  = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// NormalizeAccountNumber strips spaces and dashes people type into account numbers
func NormalizeAccountNumber(s string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(s))
}

// ValidateAccountNumber checks a bank account number is 4 to 34 digits
func ValidateAccountNumber(account string) error {
	if !accountNumberRegex.MatchString(NormalizeAccountNumber(account)) {
		return fmt.Errorf("invalid account number format")
	}
	return nil
}

// ValidateRoutingCode checks an IFSC-style branch code, e.g. HDFC0001234
func ValidateRoutingCode(code string) error {
	if !routingCodeRegex.MatchString(strings.ToUpper(strings.TrimSpace(code))) {
		return fmt.Errorf("invalid routing code: %s", code)
	}
	return nil
}

// SanitizeString removes control characters from free text
func SanitizeString(s string) string {
	return strings.TrimSpace(controlCharsRegex.ReplaceAllString(s, ""))
}
