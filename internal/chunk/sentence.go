package chunk

import "context"

// SentenceChunker groups sentences into chunks up to a token budget,
// never splitting a sentence across chunk boundaries unless a single
// sentence alone exceeds the budget, in which case that sentence is
// hard-split by character window as a last resort.
type SentenceChunker struct {
	cfg Config
}

// NewSentenceChunker creates a sentence-aware chunker.
func NewSentenceChunker(cfg Config) *SentenceChunker {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.ChunkSize {
		cfg.Overlap = DefaultOverlap
	}
	return &SentenceChunker{cfg: cfg}
}

func (c *SentenceChunker) Chunk(_ context.Context, documentID, text string) ([]*Chunk, error) {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	var chunks []*Chunk
	var current []string
	currentTokens := 0
	index := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		body := joinSentences(current)
		chunks = append(chunks, newChunk(documentID, index, body))
		index++
	}

	for _, s := range sentences {
		st := estimateTokens(s)

		if st > c.cfg.ChunkSize {
			// A single oversized sentence: flush what's pending, then
			// hard-split this sentence on its own.
			flush()
			current = nil
			currentTokens = 0
			for _, sub := range windowChunks(documentID, s, c.cfg.ChunkSize*TokensPerChar, c.cfg.Overlap*TokensPerChar) {
				sub.ChunkIndex = index
				sub.ID = generateChunkID(documentID, index, sub.Text)
				sub.Metadata = map[string]string{"chunking_strategy": string(StrategySentence), "oversized_sentence": "true"}
				chunks = append(chunks, sub)
				index++
			}
			continue
		}

		if currentTokens+st > c.cfg.ChunkSize && len(current) > 0 {
			flush()
			current = overlapTail(current, c.cfg.Overlap)
			currentTokens = 0
			for _, s2 := range current {
				currentTokens += estimateTokens(s2)
			}
		}

		current = append(current, s)
		currentTokens += st
	}
	flush()

	return chunks, nil
}

// overlapTail returns the trailing sentences of prev whose combined
// token count is <= overlapTokens, carried into the next chunk so
// context isn't lost at the boundary. The last sentence is always
// carried, even when it alone exceeds overlapTokens.
func overlapTail(prev []string, overlapTokens int) []string {
	if overlapTokens <= 0 {
		return nil
	}
	var tail []string
	tokens := 0
	for i := len(prev) - 1; i >= 0; i-- {
		t := estimateTokens(prev[i])
		if tokens+t > overlapTokens && len(tail) > 0 {
			break
		}
		tail = append([]string{prev[i]}, tail...)
		tokens += t
	}
	return tail
}

func joinSentences(sentences []string) string {
	out := ""
	for i, s := range sentences {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}

func newChunk(documentID string, index int, text string) *Chunk {
	return &Chunk{
		ID:         generateChunkID(documentID, index, text),
		DocumentID: documentID,
		Text:       text,
		ChunkIndex: index,
		CharCount:  len(text),
		WordCount:  wordCount(text),
		Metadata:   map[string]string{"chunking_strategy": string(StrategySentence)},
	}
}
