package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"memberhub.org/internal/ids"
)

// InMemoryProvider implements Provider with in-process concurrency safety.
type InMemoryProvider struct {
	mu       sync.RWMutex
	accounts map[string]*Account
	byEmail  map[string]string
}

var _ Provider = (*InMemoryProvider)(nil)

// NewInMemoryProvider creates an empty provider.
func NewInMemoryProvider() *InMemoryProvider {
	return &InMemoryProvider{
		accounts: make(map[string]*Account),
		byEmail:  make(map[string]string),
	}
}

func (p *InMemoryProvider) Create(ctx context.Context, acct NewAccount) (Account, error) {
	email := strings.TrimSpace(strings.ToLower(acct.Email))
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.byEmail[email]; ok {
		return Account{}, ErrEmailTaken
	}
	now := time.Now().UTC()
	rec := &Account{
		ID:           ids.New(),
		Email:        email,
		DisplayName:  acct.DisplayName,
		PasswordHash: acct.PasswordHash,
		RoleClaim:    acct.RoleClaim,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	p.accounts[rec.ID] = rec
	p.byEmail[email] = rec.ID
	return *rec, nil
}

func (p *InMemoryProvider) Get(ctx context.Context, id string) (Account, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rec, ok := p.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return *rec, nil
}

func (p *InMemoryProvider) FindByEmail(ctx context.Context, email string) (Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	p.mu.RLock()
	defer p.mu.RUnlock()
	id, ok := p.byEmail[email]
	if !ok {
		return Account{}, ErrNotFound
	}
	return *p.accounts[id], nil
}

func (p *InMemoryProvider) SetRoleClaim(ctx context.Context, id, role string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.accounts[id]
	if !ok {
		return ErrNotFound
	}
	rec.RoleClaim = role
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

// SetDisabled toggles the disabled flag; absent ids are ignored.
func (p *InMemoryProvider) SetDisabled(id string, disabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if rec, ok := p.accounts[id]; ok {
		rec.Disabled = disabled
		rec.UpdatedAt = time.Now().UTC()
	}
}

func (p *InMemoryProvider) Delete(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.accounts[id]
	if !ok {
		return ErrNotFound
	}
	delete(p.byEmail, rec.Email)
	delete(p.accounts, id)
	return nil
}

// InMemoryRefreshStore implements RefreshTokenStore for tests and dev mode.
type InMemoryRefreshStore struct {
	mu     sync.Mutex
	tokens map[string]*RefreshToken
}

var _ RefreshTokenStore = (*InMemoryRefreshStore)(nil)

// NewInMemoryRefreshStore creates an empty store.
func NewInMemoryRefreshStore() *InMemoryRefreshStore {
	return &InMemoryRefreshStore{tokens: make(map[string]*RefreshToken)}
}

func (s *InMemoryRefreshStore) Create(ctx context.Context, tok *RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tok
	s.tokens[tok.ID] = &cp
	return nil
}

func (s *InMemoryRefreshStore) Find(ctx context.Context, id string) (*RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *tok
	return &cp, nil
}

func (s *InMemoryRefreshStore) MarkRevoked(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[id]
	if !ok {
		return ErrNotFound
	}
	tok.Revoked = true
	return nil
}

func (s *InMemoryRefreshStore) MarkRevokedByUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tok := range s.tokens {
		if tok.UserID == userID {
			tok.Revoked = true
		}
	}
	return nil
}
