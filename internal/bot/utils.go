package bot

import "strings"

// splitText splits text into parts of at most limit runes, preferring to cut
// at line breaks.
func splitText(text string, limit int) []string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return []string{text}
	}

	var parts []string

	for len(runes) > limit {
		cut := limit

		if nl := strings.LastIndex(string(runes[:limit]), "\n"); nl > 0 {
			cut = len([]rune(string(runes[:limit])[:nl]))
		}

		parts = append(parts, string(runes[:cut]))
		runes = []rune(strings.TrimPrefix(string(runes[cut:]), "\n"))
	}

	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}

	return parts
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit]) + "…"
}
