package observability

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// MaskAddress hides the middle of a customer address for logs and span attributes.
// The channel prefix and the last four digits stay readable.
func MaskAddress(address string) string {
	if address == "" {
		return ""
	}
	prefix := ""
	number := address
	if idx := strings.Index(address, ":"); idx >= 0 {
		prefix = address[:idx+1]
		number = address[idx+1:]
	}
	if len(number) <= 4 {
		return prefix + strings.Repeat("*", len(number))
	}
	lead := ""
	if strings.HasPrefix(number, "+") {
		lead = "+"
		number = number[1:]
	}
	if len(number) <= 4 {
		return prefix + lead + strings.Repeat("*", len(number))
	}
	return prefix + lead + strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}

// HashAddress returns a stable short fingerprint so log lines about the same customer can be correlated.
func HashAddress(address string) string {
	sum := sha256.Sum256([]byte(address))
	return hex.EncodeToString(sum[:])[:12]
}
