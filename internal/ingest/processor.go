// Package ingest is the document processor (C6): extract text, merge
// metadata, chunk, batch-embed, upsert to the vector index, write the
// metadata-store record, and schedule a BM25 rebuild plus cache
// invalidation. The whole operation is effectively atomic from a
// reader's perspective (spec §4.6) via best-effort compensation on
// partial failure.
package ingest

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ZacharyN/org-archivist-sub001/internal/bm25"
	"github.com/ZacharyN/org-archivist-sub001/internal/cache"
	"github.com/ZacharyN/org-archivist-sub001/internal/chunk"
	"github.com/ZacharyN/org-archivist-sub001/internal/embed"
	"github.com/ZacharyN/org-archivist-sub001/internal/extract"
	"github.com/ZacharyN/org-archivist-sub001/internal/metadata"
	"github.com/ZacharyN/org-archivist-sub001/internal/metastore"
	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
	"github.com/ZacharyN/org-archivist-sub001/internal/telemetry"
	"github.com/ZacharyN/org-archivist-sub001/internal/vectorstore"
)

// Request is one process_document call's input.
type Request struct {
	Data     []byte
	Filename string
	UserMeta metadata.UserInput
	DocID    string // optional; generated if empty
	IsSensitive bool
	CreatedBy   string
}

// Result is what the orchestrator reports back after a successful ingest.
type Result struct {
	DocID      string
	ChunkCount int
	Warnings   []string
}

// Processor wires C1 (extract), C2 (chunk), the embedding provider,
// C4 (vectors), the metadata store, C5 (bm25), and C8 (cache) together
// for the document ingest pipeline.
type Processor struct {
	extractors *extract.Registry
	chunker    chunk.Chunker
	embedder   embed.Embedder
	vectors    vectorstore.Adapter
	meta       metastore.Store
	keyword    *bm25.Index
	queryCache *cache.Cache
	logger     *slog.Logger
	telemetry  telemetry.Sink

	bm25BatchSize int
}

// SetTelemetry wires a telemetry sink into the processor. Defaults to
// telemetry.Noop until called, so a Processor built without an
// observability stack never nil-checks its sink at the call sites.
func (p *Processor) SetTelemetry(sink telemetry.Sink) {
	if sink == nil {
		sink = telemetry.Noop
	}
	p.telemetry = sink
}

// NewProcessor builds a Processor. keyword/queryCache may be nil, in
// which case steps 7's rebuild/invalidation are skipped.
func NewProcessor(extractors *extract.Registry, chunker chunk.Chunker, embedder embed.Embedder, vectors vectorstore.Adapter, meta metastore.Store, keyword *bm25.Index, queryCache *cache.Cache, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		extractors:    extractors,
		chunker:       chunker,
		embedder:      embedder,
		vectors:       vectors,
		meta:          meta,
		keyword:       keyword,
		queryCache:    queryCache,
		logger:        logger,
		telemetry:     telemetry.Noop,
		bm25BatchSize: 500,
	}
}

// ProcessDocument runs the full pipeline of spec §4.6 steps 1-7.
func (p *Processor) ProcessDocument(ctx context.Context, req Request) (result Result, err error) {
	p.telemetry.IncRequest("ingest")
	defer func() {
		if err != nil {
			p.telemetry.IncError(ragerr.KindOf(err))
		}
	}()

	if err := extract.Validate(req.Data); err != nil {
		return Result{}, err
	}

	ext := strings.TrimPrefix(filepath.Ext(req.Filename), ".")
	extractor, extErr := p.extractors.For(ext)
	if extErr != nil {
		return Result{}, extErr
	}

	extracted, extractErr := extractor.Extract(ctx, req.Data)
	if extractErr != nil {
		return Result{}, ragerr.Wrap(ragerr.Internal, extractErr)
	}

	validPrograms, progErr := p.meta.ActiveProgramNames(ctx)
	if progErr != nil {
		return Result{}, progErr
	}
	canonicalPrograms, invalid := canonicalizePrograms(req.UserMeta.Programs, validPrograms)
	if len(invalid) > 0 {
		return Result{}, ragerr.ValidationError("unknown or inactive program").
			WithField("programs").
			WithDetail("invalid_programs", invalid).
			WithDetail("valid_programs", validPrograms)
	}
	req.UserMeta.Programs = canonicalPrograms

	merged := metadata.Merge(req.UserMeta, req.Filename,
		metadata.FormatReported{PageCount: extracted.PageCount},
		metadata.Derived{WordCount: wordCount(extracted.Text), CharCount: len(extracted.Text), FileSizeBytes: len(req.Data)})

	docID := req.DocID
	if docID == "" {
		docID = uuid.NewString()
	}

	chunks, _ := chunk.SafeChunk(ctx, p.chunker, docID, extracted.Text)
	if len(chunks) == 0 {
		return Result{}, ragerr.ValidationError("document produced no chunks").WithField("text")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, embedErr := p.embedder.EmbedBatch(ctx, texts)
	if embedErr != nil {
		p.logger.Warn("batch embedding failed, upsert will reject null vectors", "error", embedErr, "doc_id", docID)
		vectors = nil
	}

	points := make([]vectorstore.Point, len(chunks))
	for i, c := range chunks {
		var vec []float32
		if i < len(vectors) {
			vec = vectors[i]
		}
		points[i] = vectorstore.Point{
			ChunkID: c.ID,
			Vector:  vec,
			Payload: map[string]any{
				vectorstore.PayloadDocID:      docID,
				vectorstore.PayloadText:       c.Text,
				vectorstore.PayloadChunkIndex: c.ChunkIndex,
				vectorstore.PayloadDocType:    string(merged.DocType),
				vectorstore.PayloadYear:       merged.Year,
				vectorstore.PayloadOutcome:    string(merged.Outcome),
				vectorstore.PayloadPrograms:   merged.Programs,
				vectorstore.PayloadFilename:   req.Filename,
			},
		}
	}

	if err := p.vectors.Upsert(ctx, points); err != nil {
		if delErr := p.vectors.DeleteByDocID(ctx, docID); delErr != nil {
			p.logger.Error("compensation delete_by_doc_id failed after upsert error", "doc_id", docID, "upsert_error", err, "delete_error", delErr)
		}
		return Result{}, ragerr.Wrap(ragerr.DependencyUnavailable, err)
	}

	doc := metastore.Document{
		DocID:                  docID,
		Filename:               req.Filename,
		DocType:                merged.DocType,
		Year:                   merged.Year,
		Programs:               merged.Programs,
		Tags:                   merged.Tags,
		Outcome:                merged.Outcome,
		SensitivityConfirmedAt: time.Now().UTC(),
		IsSensitive:            req.IsSensitive,
		CreatedBy:              req.CreatedBy,
		ChunkCount:             len(chunks),
	}
	if err := p.meta.InsertDocument(ctx, doc); err != nil {
		if delErr := p.vectors.DeleteByDocID(ctx, docID); delErr != nil {
			p.logger.Error("compensation delete_by_doc_id failed after metadata insert error", "doc_id", docID, "insert_error", err, "delete_error", delErr)
		}
		return Result{}, err
	}

	p.scheduleRebuildAndInvalidate(docID)
	p.telemetry.DocumentProcessed(docID, len(chunks))

	return Result{DocID: docID, ChunkCount: len(chunks), Warnings: append(extracted.Warnings, merged.Warnings...)}, nil
}

// DeleteDocument removes docID from the metadata store and then from
// the vector index, per spec §9's "delete is the reverse: metadata
// first, then vectors" compensation ordering. Removing the metadata
// record first means a reader that still sees the document in C4 for
// a brief window will never see it in the metadata store — the
// inverse of the invariant ProcessDocument upholds on insert.
func (p *Processor) DeleteDocument(ctx context.Context, docID string) (err error) {
	p.telemetry.IncRequest("delete")
	defer func() {
		if err != nil {
			p.telemetry.IncError(ragerr.KindOf(err))
		}
	}()

	if err := p.meta.DeleteDocument(ctx, docID); err != nil {
		return err
	}

	if err := p.vectors.DeleteByDocID(ctx, docID); err != nil {
		p.logger.Error("delete_by_doc_id failed after metadata delete succeeded, vectors may be orphaned", "doc_id", docID, "error", err)
		return ragerr.Wrap(ragerr.DependencyUnavailable, err)
	}

	p.scheduleRebuildAndInvalidate(docID)
	p.telemetry.DocumentDeleted(docID)
	return nil
}

// scheduleRebuildAndInvalidate runs C5's rebuild and C8's invalidation
// in the background, per spec §4.6 step 7 ("schedule, non-blocking").
func (p *Processor) scheduleRebuildAndInvalidate(docID string) {
	if p.keyword != nil {
		go func() {
			ctx := context.Background()
			if err := p.keyword.Rebuild(ctx, p.vectors, p.bm25BatchSize); err != nil {
				p.logger.Error("bm25 rebuild after ingest failed", "doc_id", docID, "error", err)
			}
		}()
	}
	if p.queryCache != nil {
		p.queryCache.InvalidateAll()
	}
}

// canonicalizePrograms matches each requested program against the
// active set case-insensitively, returning the active set's canonical
// spelling and the subset that matched nothing.
func canonicalizePrograms(requested, active []string) (canonical, invalid []string) {
	byLower := make(map[string]string, len(active))
	for _, a := range active {
		byLower[strings.ToLower(a)] = a
	}

	for _, r := range requested {
		if canon, ok := byLower[strings.ToLower(r)]; ok {
			canonical = append(canonical, canon)
		} else {
			invalid = append(invalid, r)
		}
	}
	return canonical, invalid
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
