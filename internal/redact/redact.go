// Package redact removes sensitive information from strings before they are
// logged or returned in error responses: platform API credentials, session
// tokens, verification codes, phone numbers, and file system details.
package redact

import (
	"regexp"
	"strings"
)

// Constants for redaction placeholders
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedPhonePlaceholder      = "[REDACTED_PHONE]"
	RedactedCodePlaceholder       = "[REDACTED_CODE]"
)

type rule struct {
	pattern     *regexp.Regexp
	placeholder string
}

// Rules are applied in order; earlier rules see the unmodified input.
var rules = []rule{
	// Session tokens
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), "[REDACTED_JWT]"},
	// Application api_hash values
	{regexp.MustCompile(`\b[a-fA-F0-9]{32}\b`), RedactedKeyPlaceholder},
	// key=value style secrets
	{regexp.MustCompile(`(?i)(api[_-]?hash|api[_-]?key|token|secret|password)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{4,}`), RedactedCredentialPlaceholder},
	// Verification codes
	{regexp.MustCompile(`(?i)\b(code)(['"\s:=]+)\d{4,6}\b`), RedactedCodePlaceholder},
	// Phone numbers
	{regexp.MustCompile(`\+?\d[\d\s().-]{6,}\d`), RedactedPhonePlaceholder},
	// Email addresses
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[REDACTED_EMAIL]"},
	// File paths
	{regexp.MustCompile(`(/[\w.-]+){2,}`), RedactedPathPlaceholder},
	{regexp.MustCompile(`[A-Za-z]:\\[^\\]+(\\[^\\]+)+`), RedactedPathPlaceholder},
	// Stack trace fragments
	{regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`), "[STACK_TRACE_REDACTED]"},
}

// String redacts sensitive information from the input string
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.placeholder)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output
func Error(err error) string {
	if err == nil {
		return ""
	}

	return String(err.Error())
}

// Phone masks a phone number for logging, keeping a leading plus sign and
// the last two digits.
func Phone(phone string) string {
	var digits []rune
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) == 0 {
		return ""
	}

	var b strings.Builder
	if strings.HasPrefix(strings.TrimSpace(phone), "+") {
		b.WriteByte('+')
	}
	keep := 2
	if len(digits) <= keep {
		keep = 0
	}
	b.WriteString(strings.Repeat("*", len(digits)-keep))
	b.WriteString(string(digits[len(digits)-keep:]))
	return b.String()
}
