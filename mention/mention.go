// Package mention extracts @username tokens from message content.
package mention

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
)

var pattern = regexp.MustCompile(`@([A-Za-z0-9_]+)`)

// Extract returns the mentioned usernames in order of first appearance.
// Repeated mentions of the same user, whatever the case, collapse to one.
func Extract(content string) []string {
	matches := pattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	return lo.UniqBy(
		lo.Map(matches, func(m []string, _ int) string { return m[1] }),
		strings.ToLower,
	)
}
