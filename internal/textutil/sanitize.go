package textutil

import "strings"

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a name destined
// to become a path segment. Slashes, backslashes, colons, and asterisks
// become dashes; other unsafe characters are removed. Leading and trailing
// whitespace and dots are trimmed so the result can never escape its
// directory or hide on POSIX listings.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	cleaned := strings.TrimSpace(fileNameReplacer.Replace(name))
	cleaned = strings.Trim(cleaned, ".")
	return strings.TrimSpace(cleaned)
}
