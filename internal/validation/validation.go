package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// TagPattern defines the valid tag format: lowercase alphanumerics joined by
// hyphens, dots, pluses or hashes (go, c++, c#, asp.net-core).
var TagPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.+#-]*$`)

// ReasonCodePattern defines the valid close reason code format.
var ReasonCodePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// Input limits
const (
	MaxTagLength     = 35
	MaxTagsPerEdit   = 5
	MaxDetailsLength = 500
	MaxReasonLength  = 50
)

// NormalizeTag lowercases and trims a tag so lookups are case-insensitive.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// ValidateTag checks if a normalized tag matches the allowed pattern.
func ValidateTag(tag string) bool {
	if tag == "" || len(tag) > MaxTagLength {
		return false
	}
	return TagPattern.MatchString(tag)
}

// ParseTags splits a comma-separated tag list, normalizing each tag and
// dropping duplicates. It reports the first invalid tag.
func ParseTags(raw string) ([]string, string) {
	var tags []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		tag := NormalizeTag(part)
		if tag == "" || seen[tag] {
			continue
		}
		if !ValidateTag(tag) {
			return nil, "Invalid tag: " + tag
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return nil, "At least one tag is required"
	}
	if len(tags) > MaxTagsPerEdit {
		return nil, "Too many tags"
	}
	return tags, ""
}

// ValidateReasonCode checks a close reason code's format.
func ValidateReasonCode(code string) bool {
	if code == "" || len(code) > MaxReasonLength {
		return false
	}
	return ReasonCodePattern.MatchString(code)
}

// ValidateDetails checks free-text details attached to a vote.
func ValidateDetails(details string) (bool, string) {
	if utf8.RuneCountInString(strings.TrimSpace(details)) > MaxDetailsLength {
		return false, "Details must be at most 500 characters"
	}
	return true, ""
}
