package usecase

import (
	"regexp"
	"strings"
)

// languagePrefixRegex matches taxonomy language markers such as "en:" or "fr:"
var languagePrefixRegex = regexp.MustCompile(`^[a-zA-Z]{2,3}:`)

// stripLanguagePrefix turns "en:palm-oil" into "palm-oil"
func stripLanguagePrefix(tag string) string {
	return languagePrefixRegex.ReplaceAllString(strings.TrimSpace(tag), "")
}

// additiveCode turns "en:e330" into "E330"
func additiveCode(id string) string {
	return strings.ToUpper(stripLanguagePrefix(id))
}
