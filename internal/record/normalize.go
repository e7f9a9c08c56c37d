package record

import (
	"regexp"
	"strings"
)

// DefaultWorkspace is used when no workspace is given.
const DefaultWorkspace = "default"

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize trims, lowercases and collapses internal whitespace to single
// spaces. Workspaces and names are compared in this form.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// Workspace returns ws, or DefaultWorkspace when ws is blank.
func Workspace(ws string) string {
	if strings.TrimSpace(ws) == "" {
		return DefaultWorkspace
	}
	return ws
}
