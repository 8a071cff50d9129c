package handlers

import "strings"

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// ParseConfirmation recognizes a yes/no answer from a fixed vocabulary.
// The second result is false when text is neither.
func ParseConfirmation(text string) (yes bool, ok bool) {
	switch normalize(text) {
	case "sim", "s", "y", "yes":
		return true, true
	case "não", "nao", "n", "no":
		return false, true
	}
	return false, false
}

// parseChoice recognizes the numbered yes/no reply used by interactive prompts.
func parseChoice(text string) (yes bool, ok bool) {
	switch normalize(text) {
	case "1", "sim":
		return true, true
	case "2", "não", "nao":
		return false, true
	}
	return false, false
}
