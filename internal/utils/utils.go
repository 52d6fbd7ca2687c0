package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// --- 1. Error Reporting ---

// ShowError prints a formatted error box to Stderr without exiting.
// Die calls it before exiting with status 1.
func ShowError(context string, err error) {
	fmt.Fprintf(os.Stderr, "\n---------------------------------------------------------\n")
	fmt.Fprintf(os.Stderr, "🚨 STABLE ERROR: %s\n", context)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DETAILS: %v\n", err)
	}
	fmt.Fprintf(os.Stderr, "---------------------------------------------------------\n")
}

// Die is the unified exit strategy for fatal startup failures.
func Die(context string, err error) {
	ShowError(context, err)
	os.Exit(1)
}

// --- 2. Files & Identity ---

// fallbackName is used when a horse name has nothing usable for a file name.
const fallbackName = "horse"

// SafeFileName turns a horse name into a file base name that cannot escape
// its directory. Path separators, reserved characters and control characters
// become underscores; letters in any script are kept.
func SafeFileName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return '_'
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		default:
			return r
		}
	}, name)

	cleaned = strings.Trim(cleaned, " .")
	if cleaned == "" {
		return fallbackName
	}
	return cleaned
}

// GenerateImageID creates a deterministic content hash for encoded image bytes.
// Two saves of the same tuned photo share an ID.
func GenerateImageID(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ShortID trims a content ID for display.
func ShortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
