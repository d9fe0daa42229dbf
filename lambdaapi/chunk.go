package lambdaapi

// DefaultMaxTokens is the default estimated size of one chunk.
const DefaultMaxTokens = 3000

// EstimateTokens estimates the token count of a text at about four bytes
// per token. Non-empty texts count at least one token.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	if tokens := len(text) / 4; tokens > 0 {
		return tokens
	}
	return 1
}

// ChunkByTokens groups texts, in order, into chunks whose estimated size
// stays within maxTokens. A text is never split; one larger than maxTokens
// gets a chunk of its own.
func ChunkByTokens(texts []string, maxTokens int) [][]string {
	if len(texts) == 0 {
		return nil
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var chunks [][]string
	var current []string
	size := 0
	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, current)
			current = nil
			size = 0
		}
	}

	for _, text := range texts {
		n := EstimateTokens(text)
		if n > maxTokens {
			flush()
			chunks = append(chunks, []string{text})
			continue
		}
		if size+n > maxTokens {
			flush()
		}
		current = append(current, text)
		size += n
	}
	flush()
	return chunks
}
