package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// Panamanian cédula: province prefix (1-13, optionally AV or PI), or PE/E/N,
// then tomo and asiento.
var personIDRegex = regexp.MustCompile(`^(?:(?:[1-9]|1[0-3])(?:AV|PI)?|PE|E|N)-\d{1,4}-\d{1,6}$`)

var controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)

// ValidatePersonID validates a cédula number
func ValidatePersonID(id string) error {
	if !personIDRegex.MatchString(strings.ToUpper(id)) {
		return fmt.Errorf("invalid person id format: %q", id)
	}
	return nil
}

// SanitizeString trims and removes control characters, keeping tabs and newlines
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}
