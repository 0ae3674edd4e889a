// Safe logging: masks candidate PII (emails, phone numbers, invite
// tokens) in production logs.
package utils

import (
	"fmt"
	"log"
	"os"
	"regexp"
)

// IsProduction decides whether sensitive data gets masked.
var IsProduction = os.Getenv("GIN_MODE") == "release" ||
	os.Getenv("ENVIRONMENT") == "production" ||
	os.Getenv("ENV") == "production"

var (
	emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phoneRegex = regexp.MustCompile(`\+?\d[\d\s.-]{7,14}\d`)
	// URL-safe base64 invite tokens (32 bytes -> 43 chars unpadded)
	tokenRegex = regexp.MustCompile(`\b[A-Za-z0-9_-]{40,}\b`)
)

// MaskString masks candidate-identifying data in a string.
func MaskString(input string) string {
	if !IsProduction {
		return input
	}

	result := emailRegex.ReplaceAllString(input, "***@***.***")
	result = phoneRegex.ReplaceAllString(result, "***-***")
	result = tokenRegex.ReplaceAllStringFunc(result, func(tok string) string {
		if len(tok) > 8 {
			return tok[:8] + "..."
		}
		return "***"
	})
	return result
}

// MaskEmail masks a candidate email address.
func MaskEmail(email string) string {
	if !IsProduction {
		return email
	}
	return "***@***.***"
}

// MaskToken shortens an invite token for logging.
func MaskToken(token string) string {
	if !IsProduction {
		return token
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "..."
}

// SafeLog logs a message with sensitive data masked.
func SafeLog(format string, args ...interface{}) {
	log.Print(MaskString(fmt.Sprintf(format, args...)))
}
