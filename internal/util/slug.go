package util

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	diacritics    = regexp.MustCompile(`[\x{0300}-\x{036F}]`)
	innerUpper    = regexp.MustCompile(`([A-Z]*)([A-Z]{1})([a-z]+)`)
	trailingUpper = regexp.MustCompile(`([A-Z]+)$`)
	spaces        = regexp.MustCompile(`\s+`)
	nonWord       = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
	hyphens       = regexp.MustCompile(`--+`)
)

// GenerateSlug turns a field or column name into a lower-case, hyphenated
// token usable in element ids: "First Name" and "firstName" both become
// "first-name".
func GenerateSlug(name string) string {
	// strip accents: é -> e
	slug := diacritics.ReplaceAllString(norm.NFKD.String(name), "")

	// split camel case: XMLParser -> XML Parser, parseXML -> parse XML
	slug = innerUpper.ReplaceAllString(slug, " $1 $2$3")
	slug = trailingUpper.ReplaceAllString(slug, " $1")

	slug = strings.TrimSpace(strings.ToLower(slug))
	slug = spaces.ReplaceAllString(slug, "-")
	slug = nonWord.ReplaceAllString(slug, "")
	slug = strings.ReplaceAll(slug, "_", "-")
	slug = hyphens.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
