package build

import "strings"

// StripPadding trims the blank padding the daemon wraps around build and
// run output: one leading blank-line group and one trailing whitespace run
// beginning at a newline. Interior blank lines are preserved, and the
// result is stable under repeated application.
func StripPadding(s string) string {
	// Leading group: the longest prefix of spaces and newlines that ends
	// at a newline.
	i := 0
	lastNewline := -1
	for i < len(s) && (s[i] == ' ' || s[i] == '\n') {
		if s[i] == '\n' {
			lastNewline = i
		}
		i++
	}
	if lastNewline >= 0 {
		s = s[lastNewline+1:]
	}

	// Trailing run: from the first newline inside the trailing blank
	// suffix through the end. Trailing spaces with no newline stay.
	j := len(s)
	for j > 0 && (s[j-1] == ' ' || s[j-1] == '\n') {
		j--
	}
	if nl := strings.IndexByte(s[j:], '\n'); nl >= 0 {
		s = s[:j+nl]
	}

	return s
}
