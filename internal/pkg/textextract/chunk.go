package textextract

// CharsPerToken is the heuristic used to convert between characters and tokens
const CharsPerToken = 4

// EstimateTokens approximates the token count of text
func EstimateTokens(text string) int {
	return (len([]rune(text)) + CharsPerToken - 1) / CharsPerToken
}

// Chunk splits text into pieces of at most maxTokens (estimated) each, where
// consecutive pieces share overlapTokens of context. Boundaries fall on rune
// boundaries. Text that fits in one chunk is returned unchanged.
func Chunk(text string, maxTokens, overlapTokens int) []string {
	if text == "" {
		return nil
	}
	if maxTokens <= 0 {
		return []string{text}
	}
	if overlapTokens < 0 || overlapTokens >= maxTokens {
		overlapTokens = 0
	}

	runes := []rune(text)
	maxChars := maxTokens * CharsPerToken
	step := maxChars - overlapTokens*CharsPerToken

	if len(runes) <= maxChars {
		return []string{text}
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + maxChars
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
