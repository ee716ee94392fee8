package delivery

import "unicode"

// SplitText breaks text into chunks of at most limit UTF-16 code units, the
// measure the Bot API applies to message length. It prefers to split after a
// paragraph break, then after a line break, then after sentence punctuation
// or a space, and cuts mid-word only when a single run of text exceeds the
// limit. Concatenating the chunks yields the input text, so no content is
// lost across message boundaries.
func SplitText(text string, limit int) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if limit <= 0 || utf16Len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	for start := 0; start < len(runes); {
		end, units := start, 0
		for end < len(runes) && units+runeUnits(runes[end]) <= limit {
			units += runeUnits(runes[end])
			end++
		}
		if end == start {
			end++ // a single rune wider than the limit still has to go somewhere
		}
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		split := boundary(runes, start, end)
		chunks = append(chunks, string(runes[start:split]))
		start = split
	}
	return chunks
}

// runeUnits is the UTF-16 width of a rune: astral-plane runes take a
// surrogate pair.
func runeUnits(r rune) int {
	if r > 0xFFFF {
		return 2
	}
	return 1
}

// boundary picks the cut point in (start, end], scanning backwards for the
// best break available in the window.
func boundary(runes []rune, start, end int) int {
	// Paragraph break: cut after the blank line.
	for i := end; i > start+1; i-- {
		if runes[i-1] == '\n' && runes[i-2] == '\n' {
			return i
		}
	}
	for i := end; i > start; i-- {
		if runes[i-1] == '\n' {
			return i
		}
	}
	for i := end; i > start; i-- {
		if isSentenceEnd(runes[i-1]) {
			return i
		}
	}
	for i := end; i > start; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', ':', '׃': // sof pasuk ends a verse in Hebrew sources
		return true
	}
	return false
}
