package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/council/internal/council"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "conversations.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := openTestStore(t)

	conv, err := s.Create()
	require.NoError(t, err)
	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, "New Conversation", conv.Title)
	assert.Empty(t, conv.Messages)

	got, err := s.Get(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)
}

func TestGetNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get("missing-id")
	assert.ErrorIs(t, err, council.ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)

	first, err := s.Create()
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := s.Create()
	require.NoError(t, err)

	metas, err := s.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, second.ID, metas[0].ID)
	assert.Equal(t, first.ID, metas[1].ID)
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)

	conv, err := s.Create()
	require.NoError(t, err)
	require.NoError(t, s.Delete(conv.ID))

	_, err = s.Get(conv.ID)
	assert.ErrorIs(t, err, council.ErrNotFound)

	assert.ErrorIs(t, s.Delete(conv.ID), council.ErrNotFound)
}

func TestAppendMessages(t *testing.T) {
	s := openTestStore(t)
	conv, err := s.Create()
	require.NoError(t, err)

	require.NoError(t, s.AppendUserMessage(conv.ID, "what is the answer?"))
	require.NoError(t, s.AppendAssistantMessage(conv.ID, council.Message{
		Status: council.StatusClarificationPending,
	}))

	got, err := s.Get(conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, council.RoleUser, got.Messages[0].Role)
	assert.Equal(t, "what is the answer?", got.Messages[0].Content)
	assert.Equal(t, council.RoleAssistant, got.Messages[1].Role)
	assert.False(t, got.Messages[1].CreatedAt.IsZero())

	metas, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, 2, metas[0].MessageCount)
}

func TestUpdatePendingAssistant(t *testing.T) {
	s := openTestStore(t)
	conv, err := s.Create()
	require.NoError(t, err)

	require.NoError(t, s.AppendUserMessage(conv.ID, "q"))
	require.NoError(t, s.AppendAssistantMessage(conv.ID, council.Message{
		Status: council.StatusClarificationPending,
	}))

	err = s.UpdatePendingAssistant(conv.ID, func(m *council.Message) error {
		m.Status = council.StatusClarificationSubmitted
		m.Stages = append(m.Stages, council.StageResult{
			Stage:  council.StageBrief,
			Status: council.StageComplete,
		})
		return nil
	})
	require.NoError(t, err)

	got, err := s.Get(conv.ID)
	require.NoError(t, err)
	msg := got.Messages[1]
	assert.Equal(t, council.StatusClarificationSubmitted, msg.Status)
	require.Len(t, msg.Stages, 1)
	assert.Equal(t, council.StageBrief, msg.Stages[0].Stage)

	// A submitted message is still updatable until it terminates.
	err = s.UpdatePendingAssistant(conv.ID, func(m *council.Message) error {
		m.Status = council.StatusComplete
		m.Content = "final artifact"
		return nil
	})
	require.NoError(t, err)

	// Once terminal, there is nothing pending to update.
	err = s.UpdatePendingAssistant(conv.ID, func(m *council.Message) error { return nil })
	assert.ErrorIs(t, err, council.ErrNoPendingMessage)
}

func TestUpdatePendingAssistantNoMessages(t *testing.T) {
	s := openTestStore(t)
	conv, err := s.Create()
	require.NoError(t, err)

	err = s.UpdatePendingAssistant(conv.ID, func(m *council.Message) error { return nil })
	assert.ErrorIs(t, err, council.ErrNoPendingMessage)
}

func TestSetTitle(t *testing.T) {
	s := openTestStore(t)
	conv, err := s.Create()
	require.NoError(t, err)

	require.NoError(t, s.SetTitle(conv.ID, "Quantum Gardening Basics"))
	got, err := s.Get(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Quantum Gardening Basics", got.Title)

	assert.ErrorIs(t, s.SetTitle("missing", "x"), council.ErrNotFound)
}

func TestStageResultsSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conversations.db")

	s, err := Open(path)
	require.NoError(t, err)

	conv, err := s.Create()
	require.NoError(t, err)
	require.NoError(t, s.AppendUserMessage(conv.ID, "q"))
	require.NoError(t, s.AppendAssistantMessage(conv.ID, council.Message{
		Status: council.StatusClarificationPending,
		Questions: []council.Question{
			{ID: "q1", Text: "Which scope?", Options: []string{"narrow", "broad"}},
		},
	}))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get(conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, council.StatusClarificationPending, got.Messages[1].Status)
	require.Len(t, got.Messages[1].Questions, 1)
	assert.Equal(t, "Which scope?", got.Messages[1].Questions[0].Text)
}
