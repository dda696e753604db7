// Package store persists conversations in a single bbolt database file.
// Conversations are JSON documents in one bucket keyed by id; every mutation
// runs inside one bolt write transaction, which gives the message-delta
// atomicity the sequencer's checkpointing depends on.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/dusk-indust/council/internal/council"
)

// Compile-time interface check.
var _ council.Store = (*Store)(nil)

var bucketConversations = []byte("conversations")

// Store is a bbolt-backed conversation store.
type Store struct {
	db *bolt.DB
}

// Open creates or opens the database at path, creating parent directories as
// needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: mkdir %s: %w", filepath.Dir(path), err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketConversations)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create makes a new empty conversation and returns it.
func (s *Store) Create() (*council.Conversation, error) {
	conv := &council.Conversation{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Title:     "New Conversation",
		Messages:  []council.Message{},
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return putConversation(tx, conv)
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// Get loads a full conversation. Returns council.ErrNotFound when absent.
func (s *Store) Get(id string) (*council.Conversation, error) {
	var conv *council.Conversation
	err := s.db.View(func(tx *bolt.Tx) error {
		c, err := getConversation(tx, id)
		if err != nil {
			return err
		}
		conv = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// List returns metadata for every conversation, newest first.
func (s *Store) List() ([]council.ConversationMeta, error) {
	var metas []council.ConversationMeta
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketConversations).ForEach(func(k, v []byte) error {
			var conv council.Conversation
			if err := json.Unmarshal(v, &conv); err != nil {
				// A malformed record should not hide the rest of the list.
				return nil
			}
			metas = append(metas, council.ConversationMeta{
				ID:           conv.ID,
				CreatedAt:    conv.CreatedAt,
				Title:        conv.Title,
				MessageCount: len(conv.Messages),
			})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("store: list conversations: %w", err)
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})
	return metas, nil
}

// Delete removes a conversation and all its persisted state irrevocably.
func (s *Store) Delete(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketConversations)
		if b.Get([]byte(id)) == nil {
			return council.ErrNotFound
		}
		return b.Delete([]byte(id))
	})
}

// AppendUserMessage appends a user turn in one transaction.
func (s *Store) AppendUserMessage(id, content string) error {
	return s.update(id, func(conv *council.Conversation) error {
		conv.Messages = append(conv.Messages, council.Message{
			Role:      council.RoleUser,
			Content:   content,
			CreatedAt: time.Now().UTC(),
		})
		return nil
	})
}

// AppendAssistantMessage appends an assistant message in one transaction.
func (s *Store) AppendAssistantMessage(id string, msg council.Message) error {
	return s.update(id, func(conv *council.Conversation) error {
		msg.Role = council.RoleAssistant
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now().UTC()
		}
		conv.Messages = append(conv.Messages, msg)
		return nil
	})
}

// UpdatePendingAssistant applies fn to the most recent assistant message in
// clarification_pending or clarification_submitted state. The read-modify-
// write happens inside a single bolt transaction.
func (s *Store) UpdatePendingAssistant(id string, fn func(*council.Message) error) error {
	return s.update(id, func(conv *council.Conversation) error {
		for i := len(conv.Messages) - 1; i >= 0; i-- {
			msg := &conv.Messages[i]
			if msg.Role != council.RoleAssistant {
				continue
			}
			switch msg.Status {
			case council.StatusClarificationPending, council.StatusClarificationSubmitted:
				return fn(msg)
			}
		}
		return council.ErrNoPendingMessage
	})
}

// SetTitle updates the conversation title.
func (s *Store) SetTitle(id, title string) error {
	return s.update(id, func(conv *council.Conversation) error {
		conv.Title = title
		return nil
	})
}

// update runs a read-modify-write cycle on one conversation inside a single
// write transaction.
func (s *Store) update(id string, fn func(*council.Conversation) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		conv, err := getConversation(tx, id)
		if err != nil {
			return err
		}
		if err := fn(conv); err != nil {
			return err
		}
		return putConversation(tx, conv)
	})
}

func getConversation(tx *bolt.Tx, id string) (*council.Conversation, error) {
	raw := tx.Bucket(bucketConversations).Get([]byte(id))
	if raw == nil {
		return nil, council.ErrNotFound
	}
	var conv council.Conversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		return nil, fmt.Errorf("store: decode conversation %s: %w", id, err)
	}
	return &conv, nil
}

func putConversation(tx *bolt.Tx, conv *council.Conversation) error {
	raw, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("store: encode conversation %s: %w", conv.ID, err)
	}
	return tx.Bucket(bucketConversations).Put([]byte(conv.ID), raw)
}
