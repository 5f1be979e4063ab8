package chunking

import "strings"

// defaultSeparators is the granularity ladder: paragraph, line, sentence,
// word, then fixed width as the last resort.
var defaultSeparators = []string{"\n\n", "\n", ". ", " "}

// Splitter breaks document text into overlapping chunks. Splitting is
// recursive: each separator level is tried greedily before falling back to
// the next finer one, so a paragraph is only cut mid-sentence when it cannot
// fit whole, and mid-word only when a single sentence is still too long.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 5
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

// Split returns ordered overlapping chunks, each at most ChunkSize runes.
// Every chunk after the first starts with the final Overlap runes of its
// predecessor. Empty input yields nil.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.merge(s.pieces(text, defaultSeparators))
}

// pieces cuts text into fragments no longer than ChunkSize-Overlap runes, so
// that merge can always prepend the overlap carry without exceeding ChunkSize.
func (s *Splitter) pieces(text string, separators []string) []string {
	limit := s.ChunkSize - s.Overlap
	if len([]rune(text)) <= limit {
		return []string{text}
	}
	if len(separators) == 0 {
		return cutFixedWidth(text, limit)
	}

	// SplitAfter keeps the separator attached, so concatenating the pieces
	// reconstructs the original text.
	parts := strings.SplitAfter(text, separators[0])
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		if len([]rune(part)) <= limit {
			out = append(out, part)
			continue
		}
		out = append(out, s.pieces(part, separators[1:])...)
	}
	return out
}

func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var current []rune
	carryLen := 0

	for _, piece := range pieces {
		runes := []rune(piece)
		if len(current)+len(runes) > s.ChunkSize && len(current) > carryLen {
			if chunk := string(current); strings.TrimSpace(chunk) != "" {
				chunks = append(chunks, chunk)
			}
			carry := current
			if len(carry) > s.Overlap {
				carry = carry[len(carry)-s.Overlap:]
			}
			current = append([]rune(nil), carry...)
			carryLen = len(current)
		}
		current = append(current, runes...)
	}

	if len(current) > carryLen {
		if chunk := string(current); strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

func cutFixedWidth(text string, width int) []string {
	runes := []rune(text)
	out := make([]string, 0, len(runes)/width+1)
	for start := 0; start < len(runes); start += width {
		end := start + width
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}
