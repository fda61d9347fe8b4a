package vectorstore

// Payload field names shared by every writer (C6 ingest) and reader (C5
// BM25 rebuild, C7 retrieval) of chunk payloads, so the filter algebra
// and the keyword index agree on field identity without a second read
// from the metadata store.
const (
	PayloadText       = "text"
	PayloadDocID      = "doc_id"
	PayloadChunkIndex = "chunk_index"
	PayloadDocType    = "doc_type"
	PayloadYear       = "year"
	PayloadOutcome    = "outcome"
	PayloadPrograms   = "programs"
	PayloadFilename   = "filename"
)
