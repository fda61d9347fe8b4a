package metastore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZacharyN/org-archivist-sub001/internal/metadata"
	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metastore.db")
	store, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCreateProgram_RejectsDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateProgram(ctx, "Youth Mentoring", 1)
	require.NoError(t, err)

	_, err = store.CreateProgram(ctx, "Youth Mentoring", 2)
	require.Error(t, err)
	assert.Equal(t, ragerr.Conflict, ragerr.KindOf(err))
}

func TestCreateProgram_RejectsEmptyName(t *testing.T) {
	store := newTestStore(t)
	_, err := store.CreateProgram(context.Background(), "   ", 1)
	require.Error(t, err)
	assert.Equal(t, ragerr.Validation, ragerr.KindOf(err))
}

func TestInsertDocument_RejectsUnconfirmedSensitivity(t *testing.T) {
	store := newTestStore(t)
	err := store.InsertDocument(context.Background(), Document{DocID: "doc1"})
	require.Error(t, err)
	assert.Equal(t, ragerr.Validation, ragerr.KindOf(err))
}

func TestInsertDocument_RejectsUnknownProgram(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.InsertDocument(ctx, Document{
		DocID:                  "doc1",
		Filename:               "doc1.pdf",
		DocType:                metadata.DocTypeGrantProposal,
		Programs:               []string{"nonexistent"},
		SensitivityConfirmedAt: time.Now(),
	})
	require.Error(t, err)
	assert.Equal(t, ragerr.Validation, ragerr.KindOf(err))

	_, getErr := store.GetDocument(ctx, "doc1")
	assert.Equal(t, ragerr.NotFound, ragerr.KindOf(getErr))
}

func TestInsertAndGetDocument_RoundTrips(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateProgram(ctx, "Community Health", 1)
	require.NoError(t, err)

	doc := Document{
		DocID:                  "doc1",
		Filename:               "proposal.pdf",
		DocType:                metadata.DocTypeGrantProposal,
		Year:                   2024,
		Programs:               []string{"Community Health"},
		Tags:                   []string{"urgent"},
		SensitivityConfirmedAt: time.Now(),
		ChunkCount:             12,
	}
	require.NoError(t, store.InsertDocument(ctx, doc))

	got, err := store.GetDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, doc.DocID, got.DocID)
	assert.Equal(t, doc.DocType, got.DocType)
	assert.Equal(t, doc.Year, got.Year)
	assert.Equal(t, doc.Programs, got.Programs)
	assert.Equal(t, doc.Tags, got.Tags)
	assert.Equal(t, doc.ChunkCount, got.ChunkCount)
}

func TestInsertDocument_DuplicateIDIsConflict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := Document{DocID: "doc1", Filename: "a.pdf", SensitivityConfirmedAt: time.Now()}
	require.NoError(t, store.InsertDocument(ctx, doc))

	err := store.InsertDocument(ctx, doc)
	require.Error(t, err)
	assert.Equal(t, ragerr.Conflict, ragerr.KindOf(err))
}

func TestDeleteProgram_ConflictsWhenReferenced(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateProgram(ctx, "Community Health", 1)
	require.NoError(t, err)
	require.NoError(t, store.InsertDocument(ctx, Document{
		DocID: "doc1", Filename: "a.pdf", Programs: []string{"Community Health"},
		SensitivityConfirmedAt: time.Now(),
	}))

	err = store.DeleteProgram(ctx, "Community Health", false)
	require.Error(t, err)
	assert.Equal(t, ragerr.Conflict, ragerr.KindOf(err))
}

func TestDeleteDocument_RemovesRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertDocument(ctx, Document{
		DocID: "doc1", Filename: "a.pdf", SensitivityConfirmedAt: time.Now(),
	}))
	require.NoError(t, store.DeleteDocument(ctx, "doc1"))

	_, err := store.GetDocument(ctx, "doc1")
	assert.Equal(t, ragerr.NotFound, ragerr.KindOf(err))
}

func TestListDocuments_FiltersByYear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertDocument(ctx, Document{
		DocID: "doc1", Filename: "a.pdf", Year: 2022, SensitivityConfirmedAt: time.Now(),
	}))
	require.NoError(t, store.InsertDocument(ctx, Document{
		DocID: "doc2", Filename: "b.pdf", Year: 2024, SensitivityConfirmedAt: time.Now(),
	}))

	docs, err := store.ListDocuments(ctx, DocumentFilter{Years: []int{2024}})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc2", docs[0].DocID)
}

func TestConversationAndMessageRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv, err := store.CreateConversation(ctx, "user-1", ConversationContext{Audience: "funder"})
	require.NoError(t, err)
	require.NotEmpty(t, conv.ConversationID)

	require.NoError(t, store.AppendMessage(ctx, Message{
		ConversationID: conv.ConversationID,
		Role:           RoleUser,
		Text:           "what grants did we win in 2023",
	}))
	require.NoError(t, store.AppendMessage(ctx, Message{
		ConversationID: conv.ConversationID,
		Role:           RoleAssistant,
		Text:           "we won two grants [1][2]",
		Citations:      []int{1, 2},
	}))

	messages, err := store.ListMessages(ctx, conv.ConversationID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, RoleUser, messages[0].Role)
	assert.Equal(t, RoleAssistant, messages[1].Role)
	assert.Equal(t, []int{1, 2}, messages[1].Citations)
}

func TestOutputAndGenerationLink(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv, err := store.CreateConversation(ctx, "user-1", ConversationContext{})
	require.NoError(t, err)
	require.NoError(t, store.AppendMessage(ctx, Message{
		ConversationID: conv.ConversationID, Role: RoleAssistant, Text: "draft",
	}))
	messages, err := store.ListMessages(ctx, conv.ConversationID)
	require.NoError(t, err)

	out, err := store.CreateOutput(ctx, Output{ConversationID: conv.ConversationID, Funder: "NSF", Amount: 50000, Text: "draft"})
	require.NoError(t, err)
	require.NotEmpty(t, out.OutputID)

	require.NoError(t, store.LinkGeneration(ctx, out.OutputID, conv.ConversationID, messages[0].MessageID))

	got, err := store.GetOutput(ctx, out.OutputID)
	require.NoError(t, err)
	assert.Equal(t, "NSF", got.Funder)
	assert.Equal(t, float64(50000), got.Amount)
}
