package llm

import (
	"context"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/ssestream"

	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
)

// OpenAIProvider implements Provider over the Chat Completions API.
type OpenAIProvider struct {
	client  openai.Client
	model   string
	timeout time.Duration
	breaker *ragerr.CircuitBreaker
}

// NewOpenAIProvider builds a provider bound to apiKey and a default
// model. timeout bounds every non-streaming call (spec §5's per-call
// timeout); zero disables it.
func NewOpenAIProvider(apiKey, model string, timeout time.Duration) *OpenAIProvider {
	return &OpenAIProvider{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		timeout: timeout,
		breaker: ragerr.NewCircuitBreaker("llm-openai"),
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) modelOrDefault(m string) string {
	if m != "" {
		return m
	}
	return p.model
}

func (p *OpenAIProvider) params(system, user string, params Params) openai.ChatCompletionNewParams {
	cp := openai.ChatCompletionNewParams{
		Model: p.modelOrDefault(params.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(params.Temperature),
	}
	if params.MaxTokens > 0 {
		cp.MaxTokens = openai.Int(int64(params.MaxTokens))
	}
	return cp
}

func (p *OpenAIProvider) Generate(ctx context.Context, system, user string, params Params) (Response, error) {
	if !p.breaker.Allow() {
		return Response{}, ragerr.DependencyUnavailableError("openai circuit breaker open", nil)
	}

	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	comp, err := p.client.Chat.Completions.New(callCtx, p.params(system, user, params))
	if err != nil {
		p.breaker.RecordFailure()
		if callCtx.Err() != nil && ctx.Err() == nil {
			return Response{}, ragerr.TransientError("openai generation timed out", callCtx.Err())
		}
		return Response{}, ragerr.TransientError("openai generation failed", err)
	}
	if len(comp.Choices) == 0 {
		p.breaker.RecordFailure()
		return Response{}, ragerr.TransientError("openai returned no choices", nil)
	}
	p.breaker.RecordSuccess()

	return Response{
		Text: comp.Choices[0].Message.Content,
		Usage: Usage{
			InputTokens:  comp.Usage.PromptTokens,
			OutputTokens: comp.Usage.CompletionTokens,
		},
	}, nil
}

// StreamGenerate does not apply the per-call timeout used by Generate:
// a stream's lifetime is bounded by the caller's own context instead
// (spec §5, cooperative cancellation), not a fixed deadline. It still
// fails fast if the circuit is open.
func (p *OpenAIProvider) StreamGenerate(ctx context.Context, system, user string, params Params) (Stream, error) {
	if !p.breaker.Allow() {
		return nil, ragerr.DependencyUnavailableError("openai circuit breaker open", nil)
	}
	cp := p.params(system, user, params)
	cp.StreamOptions = openai.ChatCompletionStreamOptionsParam{IncludeUsage: openai.Bool(true)}
	stream := p.client.Chat.Completions.NewStreaming(ctx, cp)
	return &openAIStream{stream: stream, breaker: p.breaker}, nil
}

type openAIStream struct {
	stream  *ssestream.Stream[openai.ChatCompletionChunk]
	delta   Delta
	usage   Usage
	err     error
	breaker *ragerr.CircuitBreaker
}

func (s *openAIStream) Next() bool {
	if !s.stream.Next() {
		s.err = s.stream.Err()
		if s.err != nil {
			s.breaker.RecordFailure()
		} else {
			s.breaker.RecordSuccess()
		}
		return false
	}
	chunk := s.stream.Current()
	s.delta = Delta{}
	if chunk.Usage.TotalTokens > 0 {
		s.usage = Usage{
			InputTokens:  chunk.Usage.PromptTokens,
			OutputTokens: chunk.Usage.CompletionTokens,
		}
	}
	if len(chunk.Choices) > 0 {
		s.delta.Text = chunk.Choices[0].Delta.Content
	}
	return true
}

func (s *openAIStream) Delta() Delta         { return s.delta }
func (s *openAIStream) Err() error           { return s.err }
func (s *openAIStream) Result() StreamResult { return StreamResult{Usage: s.usage} }
func (s *openAIStream) Close() error         { return s.stream.Close() }
