// Package session tracks the lifecycle of crawl sessions and keeps their
// persisted state current after every mutation.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hirewire/jobcrawl/internal/domain"
)

// Store persists crawl sessions. The Postgres repository implements it; the
// memory store backs tests and single-process runs without a database.
type Store interface {
	Create(ctx context.Context, session *domain.CrawlSession) error
	Save(ctx context.Context, session *domain.CrawlSession) error
	GetBySessionID(ctx context.Context, sessionID string) (*domain.CrawlSession, error)
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.CrawlSession
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*domain.CrawlSession)}
}

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, session *domain.CrawlSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.SessionID]; exists {
		return fmt.Errorf("session already exists: %s", session.SessionID)
	}

	clone, err := cloneSession(session)
	if err != nil {
		return err
	}
	s.sessions[session.SessionID] = clone
	return nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, session *domain.CrawlSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.SessionID]; !exists {
		return fmt.Errorf("session not found: %s", session.SessionID)
	}

	clone, err := cloneSession(session)
	if err != nil {
		return err
	}
	s.sessions[session.SessionID] = clone
	return nil
}

// GetBySessionID implements Store.
func (s *MemoryStore) GetBySessionID(_ context.Context, sessionID string) (*domain.CrawlSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	return cloneSession(session)
}

// List returns all stored sessions in unspecified order.
func (s *MemoryStore) List(_ context.Context) ([]*domain.CrawlSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*domain.CrawlSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		clone, err := cloneSession(session)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, clone)
	}
	return sessions, nil
}

// cloneSession deep-copies a session so callers cannot alias stored state.
func cloneSession(session *domain.CrawlSession) (*domain.CrawlSession, error) {
	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to clone session: %w", err)
	}
	var clone domain.CrawlSession
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, fmt.Errorf("failed to clone session: %w", err)
	}
	return &clone, nil
}
