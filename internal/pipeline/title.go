package pipeline

import "strings"

const (
	titleWords    = 8
	titleMaxRunes = 50
)

// DeriveTitle takes the first eight words of the styled content. Titles
// longer than 50 characters are cut to 47 plus "...".
func DeriveTitle(styled string) string {
	words := strings.Fields(styled)
	if len(words) > titleWords {
		words = words[:titleWords]
	}
	title := strings.Join(words, " ")
	if r := []rune(title); len(r) > titleMaxRunes {
		title = string(r[:titleMaxRunes-3]) + "..."
	}
	return title
}
