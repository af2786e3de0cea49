package audio

import "strings"

// CleanTitle strips surrounding quotes, then capitalises each word iff
// it is the first word or longer than 3 characters — every other word
// is lowercased instead, joined with single spaces.
func CleanTitle(raw string) string {
	trimmed := strings.Trim(raw, `"'`)
	words := strings.Fields(trimmed)
	for i, w := range words {
		if i == 0 || len(w) > 3 {
			words[i] = capitalise(w)
		} else {
			words[i] = strings.ToLower(w)
		}
	}
	return strings.Join(words, " ")
}

// capitalise upper-cases the first rune and lowercases the rest, the
// same as Python's str.capitalize().
func capitalise(w string) string {
	if w == "" {
		return w
	}
	runes := []rune(w)
	return strings.ToUpper(string(runes[0])) + strings.ToLower(string(runes[1:]))
}
