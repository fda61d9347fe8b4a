// Package metastore is the relational metadata store (spec §6): document,
// program, conversation, message, output, and writing-style CRUD, backed
// by SQLite. It is the source of truth for everything the vector index
// and BM25 index don't carry themselves.
package metastore

import (
	"context"
	"time"

	"github.com/ZacharyN/org-archivist-sub001/internal/metadata"
)

// Document is the persisted record for one ingested document.
type Document struct {
	DocID                  string
	Filename               string
	DocType                metadata.DocType
	Year                   int
	Programs               []string
	Tags                   []string
	Outcome                metadata.Outcome
	SensitivityConfirmedAt time.Time
	IsSensitive            bool
	CreatedBy              string
	ChunkCount             int
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Program is one entry of the admin-maintained, dynamic enumeration of
// programs that documents are linked to by name.
type Program struct {
	ProgramID    int64
	Name         string
	Active       bool
	DisplayOrder int
}

// ConversationContext seeds retrieval for every turn of a conversation.
type ConversationContext struct {
	WritingStyleID  string   `json:"writing_style_id,omitempty"`
	Audience        string   `json:"audience,omitempty"`
	Section         string   `json:"section,omitempty"`
	Tone            string   `json:"tone,omitempty"`
	DocumentFilters []string `json:"document_filters,omitempty"`
}

// Conversation is an ordered sequence of messages belonging to one principal.
type Conversation struct {
	ConversationID string
	PrincipalID    string
	Context        ConversationContext
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MessageRole is either "user" or "assistant".
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one turn in a conversation. Citations is only populated on
// assistant messages.
type Message struct {
	MessageID      string
	ConversationID string
	Role           MessageRole
	Text           string
	Citations      []int
	CreatedAt      time.Time
}

// Output is a persisted artifact derived from one or more generation
// turns, carrying funder/amount/date fields for downstream success
// tracking. Not on the retrieval path.
type Output struct {
	OutputID       string
	ConversationID string
	Funder         string
	Amount         float64
	Date           time.Time
	Text           string
	CreatedAt      time.Time
}

// WritingStyle is a small admin-maintained style definition referenced
// by a conversation's context.
type WritingStyle struct {
	StyleID     string
	Name        string
	Description string
	OwnerID     string
}

// Store is the metadata store contract (spec §6): document CRUD, program
// CRUD, conversation/message CRUD, output CRUD, and writing-style CRUD.
type Store interface {
	InsertDocument(ctx context.Context, doc Document) error
	GetDocument(ctx context.Context, docID string) (Document, error)
	UpdateDocumentMetadata(ctx context.Context, docID string, update DocumentUpdate) error
	DeleteDocument(ctx context.Context, docID string) error
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]Document, error)

	ListPrograms(ctx context.Context) ([]Program, error)
	ActiveProgramNames(ctx context.Context) ([]string, error)
	CreateProgram(ctx context.Context, name string, displayOrder int) (Program, error)
	SetProgramActive(ctx context.Context, name string, active bool) error
	DeleteProgram(ctx context.Context, name string, force bool) error

	CreateConversation(ctx context.Context, principalID string, cctx ConversationContext) (Conversation, error)
	GetConversation(ctx context.Context, conversationID string) (Conversation, error)
	UpdateConversationContext(ctx context.Context, conversationID string, cctx ConversationContext) error
	AppendMessage(ctx context.Context, msg Message) error
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)

	CreateOutput(ctx context.Context, out Output) (Output, error)
	LinkGeneration(ctx context.Context, outputID, conversationID, messageID string) error
	GetOutput(ctx context.Context, outputID string) (Output, error)

	CreateWritingStyle(ctx context.Context, ws WritingStyle) (WritingStyle, error)
	GetWritingStyle(ctx context.Context, styleID string) (WritingStyle, error)
	ListWritingStyles(ctx context.Context) ([]WritingStyle, error)

	Close() error
}

// DocumentUpdate carries the mutable subset of a document's metadata.
// A nil field is left unchanged; a non-nil pointer replaces the stored
// value, so a pointer to an empty slice clears Programs or Tags.
type DocumentUpdate struct {
	DocType  *metadata.DocType
	Year     *int
	Programs *[]string
	Tags     *[]string
	Outcome  *metadata.Outcome
}

// DocumentFilter narrows ListDocuments.
type DocumentFilter struct {
	DocType *metadata.DocType
	Years   []int
	Program string
}
