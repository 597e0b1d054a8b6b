package material

import "strings"

// MaxChunkLen is the chunk size used for course material.
const MaxChunkLen = 2000

// SplitText splits text into paragraph-aligned chunks of at most
// maxLen characters. Paragraphs are newline-delimited and never split:
// a paragraph longer than maxLen becomes its own oversized chunk.
// Joining the chunks with "\n" reconstructs the input exactly.
func SplitText(text string, maxLen int) []string {
	if text == "" {
		return nil
	}

	var chunks []string
	var b strings.Builder
	started := false

	for _, para := range strings.Split(text, "\n") {
		if started && b.Len()+1+len(para) > maxLen {
			chunks = append(chunks, b.String())
			b.Reset()
			started = false
		}
		if started {
			b.WriteByte('\n')
		}
		b.WriteString(para)
		started = true
	}
	if started {
		chunks = append(chunks, b.String())
	}

	return chunks
}
