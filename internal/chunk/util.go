package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// sentenceBoundary matches a sentence terminator followed by whitespace
// and then an uppercase letter, digit, opening quote or bracket, or the
// end of the text, which is a reasonable heuristic for grant-document
// prose (a terminator followed by a lowercase word, as in "e.g. the",
// is not split; it is not a full NLP sentence splitter, so an
// abbreviation before a capitalized word, as in "Mr. Smith", is split).
var sentenceBoundary = regexp.MustCompile(`([.!?])\s+(?:([A-Z0-9"'\x60(\[])|$)`)

// splitSentences splits text into sentences, keeping the terminator
// attached to the sentence it ends.
func splitSentences(text string) []string {
	var sentences []string
	last := 0
	locs := sentenceBoundary.FindAllStringSubmatchIndex(text, -1)
	for _, loc := range locs {
		// loc[2:4] is group 1 (the punctuation), ends right after it.
		end := loc[3]
		sentences = append(sentences, text[last:end])
		last = end
		for last < len(text) && (text[last] == ' ' || text[last] == '\n' || text[last] == '\t') {
			last++
		}
	}
	if last < len(text) {
		sentences = append(sentences, text[last:])
	}
	out := sentences[:0]
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// estimateTokens approximates a token count from character length.
func estimateTokens(s string) int {
	n := len(s) / TokensPerChar
	if n == 0 && len(s) > 0 {
		n = 1
	}
	return n
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func generateChunkID(documentID string, index int, text string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%s", documentID, index, text)))
	return hex.EncodeToString(h[:])[:16]
}

// FallbackChunk implements the deterministic character-window split
// used when the configured strategy fails: fixed-size character
// windows with a fixed overlap, no sentence or semantic awareness.
func FallbackChunk(documentID, text string) []*Chunk {
	return windowChunks(documentID, text, FallbackChunkSize, FallbackOverlapSize)
}

func windowChunks(documentID, text string, sizeChars, overlapChars int) []*Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if overlapChars >= sizeChars {
		overlapChars = sizeChars / 2
	}
	runes := []rune(text)
	var chunks []*Chunk
	start := 0
	index := 0
	for start < len(runes) {
		end := start + sizeChars
		if end > len(runes) {
			end = len(runes)
		}
		segment := string(runes[start:end])
		chunks = append(chunks, &Chunk{
			ID:          generateChunkID(documentID, index, segment),
			DocumentID:  documentID,
			Text:        segment,
			ChunkIndex:  index,
			CharCount:   len(segment),
			WordCount:   wordCount(segment),
			StartOffset: start,
			EndOffset:   end,
			Metadata:    map[string]string{"chunking_strategy": "fallback"},
		})
		index++
		if end == len(runes) {
			break
		}
		start = end - overlapChars
	}
	return chunks
}
