package llm

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
)

// AnthropicProvider implements Provider over the Anthropic Messages API.
type AnthropicProvider struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
	breaker *ragerr.CircuitBreaker
}

// NewAnthropicProvider builds a provider bound to apiKey and a default
// model (overridden per-call by Params.Model when non-empty). timeout
// bounds every non-streaming call (spec §5's per-call timeout); zero
// disables it.
func NewAnthropicProvider(apiKey, model string, timeout time.Duration) *AnthropicProvider {
	return &AnthropicProvider{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		timeout: timeout,
		breaker: ragerr.NewCircuitBreaker("llm-anthropic"),
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) modelOrDefault(m string) string {
	if m != "" {
		return m
	}
	return p.model
}

func (p *AnthropicProvider) params(system, user string, params Params) anthropic.MessageNewParams {
	maxTokens := int64(params.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return anthropic.MessageNewParams{
		Model:       anthropic.Model(p.modelOrDefault(params.Model)),
		MaxTokens:   maxTokens,
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(user))},
		Temperature: param.NewOpt(params.Temperature),
	}
}

func (p *AnthropicProvider) Generate(ctx context.Context, system, user string, params Params) (Response, error) {
	if !p.breaker.Allow() {
		return Response{}, ragerr.DependencyUnavailableError("anthropic circuit breaker open", nil)
	}

	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	msg, err := p.client.Messages.New(callCtx, p.params(system, user, params))
	if err != nil {
		p.breaker.RecordFailure()
		if callCtx.Err() != nil && ctx.Err() == nil {
			return Response{}, ragerr.TransientError("anthropic generation timed out", callCtx.Err())
		}
		return Response{}, ragerr.TransientError("anthropic generation failed", err)
	}
	p.breaker.RecordSuccess()

	var text string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += tb.Text
		}
	}

	return Response{
		Text: text,
		Usage: Usage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}, nil
}

// StreamGenerate does not apply the per-call timeout used by Generate:
// a stream's lifetime is bounded by the caller's own context instead
// (spec §5, cooperative cancellation), not a fixed deadline. It still
// fails fast if the circuit is open.
func (p *AnthropicProvider) StreamGenerate(ctx context.Context, system, user string, params Params) (Stream, error) {
	if !p.breaker.Allow() {
		return nil, ragerr.DependencyUnavailableError("anthropic circuit breaker open", nil)
	}
	stream := p.client.Messages.NewStreaming(ctx, p.params(system, user, params))
	return &anthropicStream{stream: stream, breaker: p.breaker}, nil
}

type anthropicStream struct {
	stream  *ssestream.Stream[anthropic.MessageStreamEventUnion]
	delta   Delta
	usage   Usage
	err     error
	breaker *ragerr.CircuitBreaker
}

func (s *anthropicStream) Next() bool {
	if !s.stream.Next() {
		s.err = s.stream.Err()
		if s.err != nil {
			s.breaker.RecordFailure()
		} else {
			s.breaker.RecordSuccess()
		}
		return false
	}
	event := s.stream.Current()
	s.delta = Delta{}
	switch variant := event.AsAny().(type) {
	case anthropic.ContentBlockDeltaEvent:
		if td, ok := variant.Delta.AsAny().(anthropic.TextDelta); ok {
			s.delta.Text = td.Text
		}
	case anthropic.MessageDeltaEvent:
		s.usage.OutputTokens = variant.Usage.OutputTokens
	}
	return true
}

func (s *anthropicStream) Delta() Delta         { return s.delta }
func (s *anthropicStream) Err() error           { return s.err }
func (s *anthropicStream) Result() StreamResult { return StreamResult{Usage: s.usage} }
func (s *anthropicStream) Close() error         { return s.stream.Close() }
