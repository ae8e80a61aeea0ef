package auth

import (
	"context"
	"sync"

	"quickswap/internal/app/syncer"
)

// SessionBinding tracks one signed-in identity on top of the auth service and
// feeds session changes to an embedded synchronizer. Each synchronizer gets
// its own binding; the service itself stays multi-user.
type SessionBinding struct {
	service *Service

	mu       sync.Mutex
	current  syncer.Session
	handlers map[int]func(syncer.Session)
	nextID   int
}

func NewSessionBinding(service *Service) *SessionBinding {
	return &SessionBinding{
		service:  service,
		handlers: make(map[int]func(syncer.Session)),
	}
}

// Login authenticates and binds the resulting session.
func (b *SessionBinding) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	res, err := b.service.Login(ctx, params)
	if err != nil {
		return nil, err
	}
	b.set(syncer.Session{UserID: string(res.User.ID), Token: res.Token})
	return res, nil
}

// Register creates an account and binds its fresh session.
func (b *SessionBinding) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	res, err := b.service.Register(ctx, params)
	if err != nil {
		return nil, err
	}
	b.set(syncer.Session{UserID: string(res.User.ID), Token: res.Token})
	return res, nil
}

func (b *SessionBinding) Session(ctx context.Context) (syncer.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current, nil
}

func (b *SessionBinding) OnSessionChange(handler func(syncer.Session)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = handler
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, id)
	}
}

// SignOut invalidates the bound session server-side and announces the signed
// out state.
func (b *SessionBinding) SignOut(ctx context.Context) error {
	b.mu.Lock()
	token := b.current.Token
	b.mu.Unlock()
	if token != "" {
		if err := b.service.Logout(ctx, token); err != nil {
			return err
		}
	}
	b.set(syncer.Session{})
	return nil
}

func (b *SessionBinding) set(session syncer.Session) {
	b.mu.Lock()
	b.current = session
	handlers := make([]func(syncer.Session), 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()
	for _, h := range handlers {
		h(session)
	}
}

var _ syncer.SessionSource = (*SessionBinding)(nil)
