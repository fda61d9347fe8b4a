package generate

import (
	"context"
	"time"

	"github.com/ZacharyN/org-archivist-sub001/internal/llm"
)

// Engine assembles prompts and drives the LLM provider for a
// generation turn.
type Engine struct {
	provider llm.Provider
}

func NewEngine(provider llm.Provider) *Engine {
	return &Engine{provider: provider}
}

// Generate runs a non-streaming turn: assemble the prompt, call the
// provider, extract and validate citations.
func (e *Engine) Generate(ctx context.Context, req Request) (Response, error) {
	system := BuildSystemPrompt(req)
	user := BuildUserPrompt(req)

	started := time.Now()
	resp, err := e.provider.Generate(ctx, system, user, llm.Params{Model: req.Model})
	if err != nil {
		return Response{}, err
	}

	return Response{
		Text:           resp.Text,
		Model:          req.Model,
		Usage:          resp.Usage,
		GenerationTime: time.Since(started),
		CitationReport: ValidateCitations(resp.Text, req.Sources),
	}, nil
}

// StreamHandle is returned by StreamGenerate; callers pull deltas via
// Next/Delta until Next returns false, then call Result for the final
// completion payload (text, usage, citation report).
type StreamHandle struct {
	stream    llm.Stream
	sources   []Source
	model     string
	started   time.Time
	fullText  []byte
}

func (s *StreamHandle) Next() bool {
	return s.stream.Next()
}

func (s *StreamHandle) Delta() Delta {
	d := s.stream.Delta()
	s.fullText = append(s.fullText, d.Text...)
	return Delta{Text: d.Text}
}

func (s *StreamHandle) Err() error {
	return s.stream.Err()
}

// Result returns the completion event: full text, model, token usage,
// generation duration, and the final citation report (spec §4.9
// "Streaming").
func (s *StreamHandle) Result() Response {
	result := s.stream.Result()
	text := string(s.fullText)
	return Response{
		Text:           text,
		Model:          s.model,
		Usage:          result.Usage,
		GenerationTime: time.Since(s.started),
		CitationReport: ValidateCitations(text, s.sources),
	}
}

func (s *StreamHandle) Close() error {
	return s.stream.Close()
}

// StreamGenerate runs a streaming turn. The returned handle yields
// incremental text deltas; after exhaustion, Result carries the final
// citation report computed over the accumulated text.
func (e *Engine) StreamGenerate(ctx context.Context, req Request) (*StreamHandle, error) {
	system := BuildSystemPrompt(req)
	user := BuildUserPrompt(req)

	stream, err := e.provider.StreamGenerate(ctx, system, user, llm.Params{Model: req.Model})
	if err != nil {
		return nil, err
	}

	return &StreamHandle{
		stream:  stream,
		sources: req.Sources,
		model:   req.Model,
		started: time.Now(),
	}, nil
}
