// Package util provides common file and naming helpers used across the converter.
package util

import (
	"path/filepath"
	"strings"
)

// unsafeFileChars are replaced when a mission name becomes part of a file name.
var unsafeFileChars = strings.NewReplacer(
	" ", "_",
	":", "_",
	"/", "_",
	`\`, "_",
	"*", "_",
	"?", "_",
	`"`, "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// MissionName derives a mission name from an uploaded or local file name:
// the base name without its extension.
func MissionName(filename string) string {
	base := filepath.Base(TrimQuotes(strings.TrimSpace(filename)))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// KMLPath returns the default output path for a mission file: the same path
// with its extension replaced by .kml.
func KMLPath(csvPath string) string {
	return strings.TrimSuffix(csvPath, filepath.Ext(csvPath)) + ".kml"
}

// SafeFileName replaces characters that are unsafe in file names with underscores.
func SafeFileName(s string) string {
	s = unsafeFileChars.Replace(strings.TrimSpace(s))
	if s == "" {
		return "mission"
	}
	return s
}
