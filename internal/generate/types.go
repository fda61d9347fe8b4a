// Package generate is the generation engine (C9): prompt assembly from
// retrieved sources, streaming/non-streaming LLM calls, and citation
// marker extraction/validation against the candidate set.
package generate

import (
	"time"

	"github.com/ZacharyN/org-archivist-sub001/internal/llm"
	"github.com/ZacharyN/org-archivist-sub001/internal/retrieval"
)

// Source is one retrieved passage offered to the model, numbered in
// the order it appears in the prompt; citation markers in the
// generated text refer back to this 1-based id.
type Source struct {
	ID       int
	Filename string
	DocType  string
	Year     int
	Text     string
}

// SourcesFromCandidates numbers retrieval candidates 1..n in order,
// the same order they're folded into the prompt.
func SourcesFromCandidates(candidates []retrieval.Candidate) []Source {
	sources := make([]Source, 0, len(candidates))
	for i, c := range candidates {
		sources = append(sources, Source{
			ID:       i + 1,
			Filename: c.Filename,
			DocType:  string(c.DocType),
			Year:     c.Year,
			Text:     c.Text,
		})
	}
	return sources
}

// Request is one generation turn's parameters.
type Request struct {
	Query              string
	Sources            []Source
	Audience           string
	Section            string
	Tone               string
	StyleDescription   string
	CustomInstructions string
	Stream             bool
	Model              string
}

// CitationReport is the advisory validation result of spec §4.9.
type CitationReport struct {
	CitedSources     []int `json:"cited_sources"`
	UncitedSources   []int `json:"uncited_sources"`
	InvalidCitations []int `json:"invalid_citations"`
	TotalCitations   int   `json:"total_citations"`
	Valid            bool  `json:"valid"`
}

// Response is the non-streaming result, or the streaming path's final
// completion payload.
type Response struct {
	Text           string
	Model          string
	Usage          llm.Usage
	GenerationTime time.Duration
	CitationReport CitationReport
}

// Delta is one incremental streaming event.
type Delta struct {
	Text string
	Done bool
}
