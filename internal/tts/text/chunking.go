package text

import "strings"

// ChunkText packs words greedily into chunks of at most maxChars characters
// (counted in bytes, separators included). A single word longer than the
// limit becomes a chunk of its own. maxChars <= 0 disables chunking.
func ChunkText(text string, maxChars int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	if maxChars <= 0 {
		return []string{strings.Join(words, " ")}
	}

	var (
		chunks  []string
		current []string
		length  int
	)

	for _, word := range words {
		if len(current) == 0 {
			current = append(current, word)
			length = len(word)

			continue
		}

		if length+len(word)+1 <= maxChars {
			current = append(current, word)
			length += len(word) + 1

			continue
		}

		chunks = append(chunks, strings.Join(current, " "))
		current = []string{word}
		length = len(word)
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}
