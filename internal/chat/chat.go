// Package chat is the query/chat surface (C10): a thin orchestrator
// that loads a conversation's stored context, merges request-level
// overrides, calls the cache (C8) and retrieval engine (C7), calls the
// generation engine (C9), and persists the resulting message pair.
package chat

import (
	"context"
	"time"

	"github.com/ZacharyN/org-archivist-sub001/internal/cache"
	"github.com/ZacharyN/org-archivist-sub001/internal/generate"
	"github.com/ZacharyN/org-archivist-sub001/internal/metastore"
	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
	"github.com/ZacharyN/org-archivist-sub001/internal/retrieval"
	"github.com/ZacharyN/org-archivist-sub001/internal/telemetry"
	"github.com/ZacharyN/org-archivist-sub001/internal/vectorstore"
)

// DefaultTopK is used when a turn doesn't specify one.
const DefaultTopK = 8

// Overrides carries the request-level fields that take precedence over
// a conversation's stored context for this turn only; the conversation
// itself is never mutated by an override (spec §4.10 "merge ... with
// request-level overrides").
type Overrides struct {
	Audience        string
	Section         string
	Tone            string
	DocumentFilters []string
	TopK            int
	RecencyWeight   float64
	Model           string
	Stream          bool
}

// Turn is one query/chat exchange's result.
type Turn struct {
	MessageID string
	Response  generate.Response
	Sources   []generate.Source
}

// Orchestrator binds C8, C7, C9, and the conversation store together.
type Orchestrator struct {
	store      metastore.Store
	queryCache *cache.Cache
	retriever  retrieval.Engine
	generator  *generate.Engine
	telemetry  telemetry.Sink
}

// New builds an Orchestrator. queryCache may be nil to bypass C8 entirely.
func New(store metastore.Store, queryCache *cache.Cache, retriever retrieval.Engine, generator *generate.Engine) *Orchestrator {
	return &Orchestrator{store: store, queryCache: queryCache, retriever: retriever, generator: generator, telemetry: telemetry.Noop}
}

// SetTelemetry wires a telemetry sink into the orchestrator. Defaults
// to telemetry.Noop until called.
func (o *Orchestrator) SetTelemetry(sink telemetry.Sink) {
	if sink == nil {
		sink = telemetry.Noop
	}
	o.telemetry = sink
}

// RunTurn executes one non-streaming turn: it loads and merges context,
// retrieves sources, generates a response, and persists the resulting
// message pair. ctx cancellation aborts retrieval and generation alike
// and no message pair is persisted (spec §5 "partial work is discarded").
func (o *Orchestrator) RunTurn(ctx context.Context, conversationID, query string, ov Overrides) (Turn, error) {
	o.telemetry.IncRequest("chat")
	conv, err := o.store.GetConversation(ctx, conversationID)
	if err != nil {
		return Turn{}, err
	}

	merged := mergeContext(conv.Context, ov)
	filter := filterFromDocumentNames(merged.DocumentFilters)

	candidates, err := o.retrieve(ctx, query, ov, filter)
	if err != nil {
		return Turn{}, err
	}
	if len(candidates) == 0 {
		return Turn{}, noSourcesError(query)
	}

	var styleDescription string
	if merged.WritingStyleID != "" {
		if ws, err := o.store.GetWritingStyle(ctx, merged.WritingStyleID); err == nil {
			styleDescription = ws.Description
		}
	}

	sources := generate.SourcesFromCandidates(candidates)
	resp, err := o.generator.Generate(ctx, generate.Request{
		Query:            query,
		Sources:          sources,
		Audience:         merged.Audience,
		Section:          merged.Section,
		Tone:             merged.Tone,
		StyleDescription: styleDescription,
		Stream:           ov.Stream,
		Model:            ov.Model,
	})
	if err != nil {
		return Turn{}, err
	}

	if err := o.persistTurn(ctx, conversationID, query, resp); err != nil {
		return Turn{}, err
	}

	return Turn{Response: resp, Sources: sources}, nil
}

// StreamTurn is RunTurn's streaming counterpart: it runs retrieval
// up front (same as RunTurn), then hands the caller a generate.StreamHandle
// to drain. The caller must call Persist on the returned StreamingTurn
// once the stream completes, which appends the message pair using the
// handle's final accumulated text and citation report.
type StreamingTurn struct {
	Handle  *generate.StreamHandle
	Sources []generate.Source
	query   string
	convID  string
	store   metastore.Store
}

// Persist appends the user+assistant message pair for a completed
// stream. Call this only after draining Handle to completion.
func (t *StreamingTurn) Persist(ctx context.Context) error {
	resp := t.Handle.Result()
	if err := t.store.AppendMessage(ctx, metastore.Message{
		ConversationID: t.convID, Role: metastore.RoleUser, Text: t.query, CreatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}
	return t.store.AppendMessage(ctx, metastore.Message{
		ConversationID: t.convID, Role: metastore.RoleAssistant, Text: resp.Text,
		Citations: resp.CitationReport.CitedSources, CreatedAt: time.Now().UTC(),
	})
}

// StreamTurn loads and merges context, retrieves sources, and opens a
// streaming generation. It does not persist anything itself; call
// Persist on the result once the stream is drained.
func (o *Orchestrator) StreamTurn(ctx context.Context, conversationID, query string, ov Overrides) (*StreamingTurn, error) {
	o.telemetry.IncRequest("chat_stream")
	conv, err := o.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	merged := mergeContext(conv.Context, ov)
	filter := filterFromDocumentNames(merged.DocumentFilters)

	candidates, err := o.retrieve(ctx, query, ov, filter)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, noSourcesError(query)
	}

	var styleDescription string
	if merged.WritingStyleID != "" {
		if ws, err := o.store.GetWritingStyle(ctx, merged.WritingStyleID); err == nil {
			styleDescription = ws.Description
		}
	}

	sources := generate.SourcesFromCandidates(candidates)
	handle, err := o.generator.StreamGenerate(ctx, generate.Request{
		Query: query, Sources: sources, Audience: merged.Audience, Section: merged.Section,
		Tone: merged.Tone, StyleDescription: styleDescription, Model: ov.Model, Stream: true,
	})
	if err != nil {
		return nil, err
	}

	return &StreamingTurn{Handle: handle, Sources: sources, query: query, convID: conversationID, store: o.store}, nil
}

// noSourcesError builds the structured "no sources" error spec §8
// requires when retrieval comes back empty: generation is never
// attempted in that case.
func noSourcesError(query string) *ragerr.Error {
	return ragerr.NotFoundError("no sources found for query").
		WithField("query").
		WithDetail("query", query).
		WithSuggestion("broaden the query or relax document filters")
}

// retrieve checks the query cache before calling the retrieval engine,
// and populates it on a miss. A cancelled context never populates the
// cache (spec §5). topK/recencyWeight come from the request-level
// overrides when set, falling back to DefaultTopK/0 otherwise.
func (o *Orchestrator) retrieve(ctx context.Context, query string, ov Overrides, filter *vectorstore.Filter) ([]retrieval.Candidate, error) {
	topK := DefaultTopK
	if ov.TopK > 0 {
		topK = ov.TopK
	}
	recencyWeight := ov.RecencyWeight

	if o.queryCache != nil {
		if hit, ok := o.queryCache.Get(query, topK, recencyWeight, filter); ok {
			o.telemetry.IncCacheHit()
			return hit, nil
		}
		o.telemetry.IncCacheMiss()
	}

	candidates, err := o.retriever.Retrieve(ctx, retrieval.Request{
		Query: query, TopK: topK, Filter: filter, RecencyWeight: recencyWeight,
	})
	if err != nil {
		return nil, err
	}

	if o.queryCache != nil && ctx.Err() == nil {
		o.queryCache.Put(query, topK, recencyWeight, filter, candidates)
	}
	return candidates, nil
}

// persistTurn appends the user and assistant messages and bumps the
// conversation's updated_at (AppendMessage does both in one transaction).
func (o *Orchestrator) persistTurn(ctx context.Context, conversationID, query string, resp generate.Response) error {
	if err := o.store.AppendMessage(ctx, metastore.Message{
		ConversationID: conversationID,
		Role:           metastore.RoleUser,
		Text:           query,
		CreatedAt:      time.Now().UTC(),
	}); err != nil {
		return err
	}

	return o.store.AppendMessage(ctx, metastore.Message{
		ConversationID: conversationID,
		Role:           metastore.RoleAssistant,
		Text:           resp.Text,
		Citations:      resp.CitationReport.CitedSources,
		CreatedAt:      time.Now().UTC(),
	})
}

// mergeContext applies non-zero override fields on top of the stored
// conversation context; a zero-value override field leaves the stored
// value untouched.
func mergeContext(stored metastore.ConversationContext, ov Overrides) metastore.ConversationContext {
	merged := stored
	if ov.Audience != "" {
		merged.Audience = ov.Audience
	}
	if ov.Section != "" {
		merged.Section = ov.Section
	}
	if ov.Tone != "" {
		merged.Tone = ov.Tone
	}
	if len(ov.DocumentFilters) > 0 {
		merged.DocumentFilters = ov.DocumentFilters
	}
	return merged
}

// filterFromDocumentNames turns a conversation's document_filters
// (program names) into an in-set filter over the payload's programs
// field. An empty list means no filtering.
func filterFromDocumentNames(programs []string) *vectorstore.Filter {
	if len(programs) == 0 {
		return nil
	}
	values := make([]any, len(programs))
	for i, p := range programs {
		values[i] = p
	}
	f := vectorstore.InSet(vectorstore.PayloadPrograms, values...)
	return &f
}
