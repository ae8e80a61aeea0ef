package memory

import (
	"context"
	"sync"
	"time"

	domainauth "quickswap/internal/domain/auth"
	domainuser "quickswap/internal/domain/user"
)

// SessionStore keeps bearer sessions in memory.
type SessionStore struct {
	mu        sync.RWMutex
	tokens    map[domainauth.Token]*domainauth.Session
	userIndex map[domainuser.ID]map[domainauth.Token]struct{}
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		tokens:    make(map[domainauth.Token]*domainauth.Session),
		userIndex: make(map[domainuser.ID]map[domainauth.Token]struct{}),
	}
}

func (s *SessionStore) Save(ctx context.Context, session *domainauth.Session) error {
	if session == nil {
		return domainauth.ErrTokenRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.tokens[session.Token] = &copied
	if _, ok := s.userIndex[session.UserID]; !ok {
		s.userIndex[session.UserID] = make(map[domainauth.Token]struct{})
	}
	s.userIndex[session.UserID][session.Token] = struct{}{}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, token domainauth.Token) (*domainauth.Session, error) {
	s.mu.RLock()
	session, ok := s.tokens[token]
	s.mu.RUnlock()
	if !ok {
		return nil, domainauth.ErrSessionNotFound
	}
	if session.Expired(time.Now()) {
		_ = s.Delete(ctx, token)
		return nil, domainauth.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (s *SessionStore) Delete(ctx context.Context, token domainauth.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.tokens[token]
	if !ok {
		return nil
	}
	delete(s.tokens, token)
	if index, ok := s.userIndex[session.UserID]; ok {
		delete(index, token)
		if len(index) == 0 {
			delete(s.userIndex, session.UserID)
		}
	}
	return nil
}

func (s *SessionStore) DeleteByUser(ctx context.Context, userID domainuser.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	index, ok := s.userIndex[userID]
	if !ok {
		return nil
	}
	for token := range index {
		delete(s.tokens, token)
	}
	delete(s.userIndex, userID)
	return nil
}

var _ domainauth.SessionStore = (*SessionStore)(nil)
