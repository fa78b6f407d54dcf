package autosave

import (
	"context"
	"fmt"
	"sync"

	"resumeStudio/internal/document"
)

// Store 缓存已确认的文档记录。Invalidate 之后的下一次 Get 必须重新拉取。
type Store interface {
	Get(ctx context.Context, id string) (*document.Document, error)
	Invalidate(id string)
}

// SessionStore 是单个编辑会话内的缓存，生命周期跟随会话。
type SessionStore struct {
	client DocumentClient

	mu   sync.Mutex
	docs map[string]*document.Document
}

func NewSessionStore(client DocumentClient) *SessionStore {
	return &SessionStore{client: client, docs: make(map[string]*document.Document)}
}

func (s *SessionStore) Get(ctx context.Context, id string) (*document.Document, error) {
	s.mu.Lock()
	doc, ok := s.docs[id]
	s.mu.Unlock()
	if ok {
		return doc, nil
	}

	doc, err := s.client.GetDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch document %s: %w", id, err)
	}
	s.mu.Lock()
	s.docs[id] = doc
	s.mu.Unlock()
	return doc, nil
}

func (s *SessionStore) Invalidate(id string) {
	s.mu.Lock()
	delete(s.docs, id)
	s.mu.Unlock()
}
