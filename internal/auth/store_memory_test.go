// Copyright (c) 2026 Amparo. All rights reserved.
// Author: backend@amparo.social

package auth_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/amparo-social/amparo-api/internal/auth"
	"github.com/amparo-social/amparo-api/internal/platform/apperr"
)

// In-memory repository fakes. They mirror the Postgres implementations'
// contracts (sentinels, apperr codes, conditional-update rotation) so the
// service tests exercise the same observable behavior.

// # User Repository Fake

type memoryUserRepository struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*auth.User
	tokens *memoryRefreshTokenRepository

	// down simulates a storage outage on every call.
	down bool
}

func newMemoryUserRepository(tokens *memoryRefreshTokenRepository) *memoryUserRepository {
	return &memoryUserRepository{users: make(map[int64]*auth.User), tokens: tokens}
}

func storageDown() error {
	return apperr.Unavailable(errors.New("storage down"))
}

func (r *memoryUserRepository) FindByID(_ context.Context, id int64) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return nil, storageDown()
	}
	user, ok := r.users[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	clone := *user
	return &clone, nil
}

func (r *memoryUserRepository) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return nil, storageDown()
	}
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (r *memoryUserRepository) CreateWithRefreshToken(ctx context.Context, user *auth.User, token *auth.RefreshToken) error {
	r.mu.Lock()
	if r.down {
		r.mu.Unlock()
		return storageDown()
	}
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			r.mu.Unlock()
			return apperr.Conflict("Email already exists")
		}
	}
	r.nextID++
	user.ID = r.nextID
	clone := *user
	r.users[user.ID] = &clone
	r.mu.Unlock()

	token.UserID = user.ID
	return r.tokens.Create(ctx, token)
}

func (r *memoryUserRepository) UpdateProfile(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return storageDown()
	}
	existing, ok := r.users[user.ID]
	if !ok {
		return apperr.NotFound("User")
	}
	existing.Name = user.Name
	existing.SocialName = user.SocialName
	existing.Pronoun = user.Pronoun
	existing.UpdatedAt = user.UpdatedAt
	return nil
}

func (r *memoryUserRepository) UpdatePassword(_ context.Context, userID int64, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return storageDown()
	}
	existing, ok := r.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	existing.PasswordHash = passwordHash
	return nil
}

func (r *memoryUserRepository) SetActive(_ context.Context, userID int64, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return storageDown()
	}
	existing, ok := r.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	existing.IsActive = active
	return nil
}

// # Refresh Token Repository Fake

type memoryRefreshTokenRepository struct {
	mu     sync.Mutex
	nextID int64
	tokens map[string]*auth.RefreshToken
	down   bool
}

func newMemoryRefreshTokenRepository() *memoryRefreshTokenRepository {
	return &memoryRefreshTokenRepository{tokens: make(map[string]*auth.RefreshToken)}
}

func (r *memoryRefreshTokenRepository) Create(_ context.Context, token *auth.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return storageDown()
	}
	r.nextID++
	token.ID = r.nextID
	clone := *token
	r.tokens[token.TokenHash] = &clone
	return nil
}

func (r *memoryRefreshTokenRepository) Rotate(_ context.Context, oldTokenHash string, next *auth.RefreshToken) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return 0, storageDown()
	}

	current, ok := r.tokens[oldTokenHash]
	if !ok {
		return 0, auth.ErrTokenNotFound
	}
	if current.IsRevoked {
		return 0, auth.ErrTokenRevoked
	}
	if !current.ExpiresAt.After(time.Now()) {
		return 0, auth.ErrTokenExpired
	}

	now := time.Now()
	current.IsRevoked = true
	current.RevokedAt = &now

	r.nextID++
	next.ID = r.nextID
	next.UserID = current.UserID
	clone := *next
	r.tokens[next.TokenHash] = &clone

	return current.UserID, nil
}

func (r *memoryRefreshTokenRepository) RevokeByHash(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return storageDown()
	}
	if token, ok := r.tokens[tokenHash]; ok && !token.IsRevoked {
		now := time.Now()
		token.IsRevoked = true
		token.RevokedAt = &now
	}
	return nil
}

func (r *memoryRefreshTokenRepository) RevokeOthers(_ context.Context, userID int64, exceptTokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return storageDown()
	}
	now := time.Now()
	for hash, token := range r.tokens {
		if token.UserID == userID && hash != exceptTokenHash && !token.IsRevoked {
			token.IsRevoked = true
			token.RevokedAt = &now
		}
	}
	return nil
}

func (r *memoryRefreshTokenRepository) RevokeAll(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return storageDown()
	}
	now := time.Now()
	for _, token := range r.tokens {
		if token.UserID == userID && !token.IsRevoked {
			token.IsRevoked = true
			token.RevokedAt = &now
		}
	}
	return nil
}

// activeCount reports live tokens for assertions.
func (r *memoryRefreshTokenRepository) activeCount(userID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, token := range r.tokens {
		if token.UserID == userID && !token.IsRevoked {
			count++
		}
	}
	return count
}

// # Session Repository Fake

// memoryChatRow stands in for a support.chat row so the fake can mirror
// the transactional re-keying the Postgres Promote performs.
type memoryChatRow struct {
	id        int64
	userID    *int64
	sessionID *string
}

type memorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*auth.AnonymousSession
	chats    []*memoryChatRow
	nextChat int64
	down     bool
}

func newMemorySessionRepository() *memorySessionRepository {
	return &memorySessionRepository{sessions: make(map[string]*auth.AnonymousSession)}
}

// addChat seeds a chat row owned by the session, returning its id.
func (r *memorySessionRepository) addChat(sessionID string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextChat++
	owner := sessionID
	r.chats = append(r.chats, &memoryChatRow{id: r.nextChat, sessionID: &owner})
	return r.nextChat
}

// chatOwner reports who owns the chat row for assertions.
func (r *memorySessionRepository) chatOwner(chatID int64) (*int64, *string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.chats {
		if row.id == chatID {
			return row.userID, row.sessionID
		}
	}
	return nil, nil
}

func (r *memorySessionRepository) Create(_ context.Context, session *auth.AnonymousSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return storageDown()
	}
	if _, ok := r.sessions[session.ID]; ok {
		return auth.ErrSessionExists
	}
	clone := *session
	r.sessions[session.ID] = &clone
	return nil
}

func (r *memorySessionRepository) FindByID(_ context.Context, id string) (*auth.AnonymousSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return nil, storageDown()
	}
	session, ok := r.sessions[id]
	if !ok || session.IsPromoted() {
		return nil, auth.ErrSessionNotFound
	}
	clone := *session
	return &clone, nil
}

func (r *memorySessionRepository) Promote(_ context.Context, sessionID string, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return storageDown()
	}
	session, ok := r.sessions[sessionID]
	if !ok || session.IsPromoted() {
		return auth.ErrSessionNotFound
	}
	now := time.Now()
	session.PromotedAt = &now
	session.PromotedUserID = &userID

	// Re-key everything the session owns, as the storage transaction does.
	for _, row := range r.chats {
		if row.sessionID != nil && *row.sessionID == sessionID {
			owner := userID
			row.userID = &owner
			row.sessionID = nil
		}
	}
	return nil
}

// # Reset Token Repository Fake

type resetEntry struct {
	userID    int64
	expiresAt time.Time
}

type memoryResetTokenRepository struct {
	mu      sync.Mutex
	entries map[string]resetEntry
}

func newMemoryResetTokenRepository() *memoryResetTokenRepository {
	return &memoryResetTokenRepository{entries: make(map[string]resetEntry)}
}

func (r *memoryResetTokenRepository) Set(_ context.Context, tokenHash string, userID int64, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[tokenHash] = resetEntry{userID: userID, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (r *memoryResetTokenRepository) Get(_ context.Context, tokenHash string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[tokenHash]
	if !ok || !entry.expiresAt.After(time.Now()) {
		return 0, auth.ErrResetTokenNotFound
	}
	return entry.userID, nil
}

func (r *memoryResetTokenRepository) Delete(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, tokenHash)
	return nil
}
