package planner

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const maxComponentLength = 200

var illegalChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
var repeatedUnderscore = regexp.MustCompile(`_{2,}`)

// reservedNames are Windows device names that are illegal as a path
// component regardless of extension; sanitizing a library that may end up
// on a Windows filesystem or be shared over SMB has to avoid them.
var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true,
}

// SanitizePathComponent normalizes s into a single safe path segment:
// Unicode NFC normalization, illegal character replacement, underscore
// collapsing, trimming of leading/trailing junk, a length cap, and a
// reserved-device-name guard.
func SanitizePathComponent(s string) string {
	s = norm.NFC.String(s)
	s = illegalChars.ReplaceAllString(s, "_")
	s = repeatedUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, " ._")
	if s == "" {
		s = "_"
	}
	if len(s) > maxComponentLength {
		s = strings.TrimRight(s[:maxComponentLength], " ._")
	}
	if reservedNames[strings.ToUpper(s)] {
		s = "_" + s
	}
	return s
}
