package entity

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	// pathMarkerPattern matches a group path segment followed by the id, e.g. "/groups/123456/name".
	pathMarkerPattern = regexp.MustCompile(`(?i)/(?:groups?|communities)/(\d+)`)

	// queryKeyPattern matches a query parameter carrying the id, e.g. "?groupId=123456".
	queryKeyPattern = regexp.MustCompile(`(?i)[?&](?:groupid|group_id|gid|id)=(\d+)`)

	// digitRunPattern is the last-resort match for a bare numeric token.
	digitRunPattern = regexp.MustCompile(`\d{4,}`)
)

// ExtractGroupID parses free-form input into a canonical GroupID.
//
// Resolution order:
//  1. Purely numeric input is returned unchanged
//  2. A recognized path marker or query key followed by digits
//  3. The first purely numeric path segment of an absolute URL
//  4. The first run of 4 or more digits anywhere in the text
//
// Returns ErrGroupIDNotFound if none of the rules match.
//
// Example:
//
//	id, err := ExtractGroupID("https://www.roblox.com/groups/987654/Some-Group")
//	// Returns: "987654", nil
func ExtractGroupID(text string) (GroupID, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrGroupIDNotFound
	}

	if isDigits(text) {
		return GroupID(text), nil
	}

	if m := pathMarkerPattern.FindStringSubmatch(text); m != nil {
		return GroupID(m[1]), nil
	}
	if m := queryKeyPattern.FindStringSubmatch(text); m != nil {
		return GroupID(m[1]), nil
	}

	if u, err := url.Parse(text); err == nil && u.Host != "" {
		for _, seg := range strings.Split(u.Path, "/") {
			if isDigits(seg) {
				return GroupID(seg), nil
			}
		}
	}

	if m := digitRunPattern.FindString(text); m != "" {
		return GroupID(m), nil
	}

	return "", ErrGroupIDNotFound
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
