package knowledge

import "strings"

// DefaultChunkSize is the largest chunk Chunk produces unless a single
// paragraph is longer.
const DefaultChunkSize = 1000

// Chunk splits text on blank lines and packs whole paragraphs into chunks
// of at most max bytes.
func Chunk(text string, max int) []string {
	if max <= 0 {
		max = DefaultChunkSize
	}
	var chunks []string
	var current strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		if current.Len() > 0 && current.Len()+len(para) > max {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
			current.WriteString(para)
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}
	return chunks
}
