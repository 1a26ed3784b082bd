package rag

import "strings"

// ChunkText splits document text into chunks of at most maxChars bytes,
// keeping whole lines together where possible and carrying overlapChars
// of trailing context into the next chunk. Lines longer than maxChars
// are hard-split on rune boundaries.
func ChunkText(text string, maxChars, overlapChars int) []string {
	if maxChars <= 0 {
		maxChars = 1000
	}
	if overlapChars < 0 || overlapChars >= maxChars {
		overlapChars = maxChars / 5
	}

	lines := strings.Split(text, "\n")

	var chunks []string
	var current []string
	currentLen := 0

	flush := func() {
		chunkText := strings.Join(current, "\n")
		if strings.TrimSpace(chunkText) != "" {
			chunks = append(chunks, chunkText)
		}

		// Seed the next chunk with trailing lines up to the overlap budget
		var overlap []string
		overlapLen := 0
		for i := len(current) - 1; i >= 0; i-- {
			lineLen := len(current[i]) + 1
			if overlapLen+lineLen > overlapChars {
				break
			}
			overlap = append([]string{current[i]}, overlap...)
			overlapLen += lineLen
		}
		current = overlap
		currentLen = overlapLen
	}

	for _, line := range lines {
		if len(line) > maxChars {
			if len(current) > 0 {
				flush()
				current = nil
				currentLen = 0
			}
			for _, piece := range splitLongLine(line, maxChars) {
				chunks = append(chunks, piece)
			}
			continue
		}

		if currentLen+len(line)+1 > maxChars && len(current) > 0 {
			flush()
			// The seeded overlap plus this line can still exceed the
			// budget; drop the overlap rather than oversize the chunk
			if currentLen+len(line)+1 > maxChars {
				current = nil
				currentLen = 0
			}
		}

		current = append(current, line)
		currentLen += len(line) + 1
	}

	if len(current) > 0 {
		chunkText := strings.Join(current, "\n")
		if strings.TrimSpace(chunkText) != "" {
			chunks = append(chunks, chunkText)
		}
	}

	return chunks
}

func splitLongLine(line string, maxChars int) []string {
	var pieces []string
	runes := []rune(line)

	start := 0
	for start < len(runes) {
		end := start
		size := 0
		for end < len(runes) {
			runeLen := len(string(runes[end]))
			if size+runeLen > maxChars {
				break
			}
			size += runeLen
			end++
		}
		if end == start {
			end = start + 1 // a single rune wider than the budget
		}

		piece := string(runes[start:end])
		if strings.TrimSpace(piece) != "" {
			pieces = append(pieces, piece)
		}
		start = end
	}

	return pieces
}
