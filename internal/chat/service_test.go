// Copyright (c) 2026 Amparo. All rights reserved.
// Author: backend@amparo.social

package chat_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amparo-social/amparo-api/internal/auth"
	"github.com/amparo-social/amparo-api/internal/chat"
	"github.com/amparo-social/amparo-api/internal/platform/apperr"
	"github.com/amparo-social/amparo-api/internal/platform/sec"
	"github.com/amparo-social/amparo-api/pkg/pagination"
)

// # Repository Fake

type memoryChatRepository struct {
	mu       sync.Mutex
	nextID   int64
	chats    map[int64]*chat.Chat
	messages map[int64][]chat.Message
}

func newMemoryChatRepository() *memoryChatRepository {
	return &memoryChatRepository{
		chats:    make(map[int64]*chat.Chat),
		messages: make(map[int64][]chat.Message),
	}
}

func (r *memoryChatRepository) Create(_ context.Context, c *chat.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.SessionID != nil {
		for _, existing := range r.chats {
			if existing.SessionID != nil && *existing.SessionID == *c.SessionID {
				return apperr.Conflict("Session already has a chat")
			}
		}
	}
	r.nextID++
	c.ID = r.nextID
	clone := *c
	r.chats[c.ID] = &clone
	return nil
}

func (r *memoryChatRepository) FindByID(_ context.Context, id int64) (*chat.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[id]
	if !ok {
		return nil, apperr.NotFound("Chat")
	}
	clone := *c
	return &clone, nil
}

func (r *memoryChatRepository) ListByUser(_ context.Context, userID int64, params pagination.Params) ([]chat.Chat, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]chat.Chat, 0)
	for _, c := range r.chats {
		if c.UserID != nil && *c.UserID == userID {
			result = append(result, *c)
		}
	}
	return result, int64(len(result)), nil
}

func (r *memoryChatRepository) ListBySession(_ context.Context, sessionID string, params pagination.Params) ([]chat.Chat, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]chat.Chat, 0)
	for _, c := range r.chats {
		if c.SessionID != nil && *c.SessionID == sessionID {
			result = append(result, *c)
		}
	}
	return result, int64(len(result)), nil
}

func (r *memoryChatRepository) Update(_ context.Context, c *chat.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.chats[c.ID]; !ok {
		return apperr.NotFound("Chat")
	}
	clone := *c
	r.chats[c.ID] = &clone
	return nil
}

func (r *memoryChatRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.chats[id]; !ok {
		return apperr.NotFound("Chat")
	}
	delete(r.chats, id)
	delete(r.messages, id)
	return nil
}

func (r *memoryChatRepository) AddMessage(_ context.Context, message *chat.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[message.ChatID]
	if !ok {
		return apperr.NotFound("Chat")
	}
	r.nextID++
	message.ID = r.nextID
	r.messages[message.ChatID] = append(r.messages[message.ChatID], *message)
	c.UpdatedAt = time.Now()
	return nil
}

func (r *memoryChatRepository) ListMessages(_ context.Context, chatID int64, limit int) ([]chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.messages[chatID]
	if len(stored) > limit {
		stored = stored[:limit]
	}
	return append([]chat.Message(nil), stored...), nil
}

// # Identity helpers

func userIdentity(id int64, role sec.Role) auth.Identity {
	return auth.Identity{User: &auth.User{ID: id, Role: role, IsActive: true}}
}

func sessionIdentity(sessionID string) auth.Identity {
	return auth.Identity{Session: &auth.AnonymousSession{ID: sessionID}}
}

func newChatService() *chat.Service {
	return chat.NewService(newMemoryChatRepository())
}

// # Tests

/*
TestCreate_OwnerIsExclusive verifies the chat is keyed to exactly one
owner: the user when registered, the session when anonymous.
*/
func TestCreate_OwnerIsExclusive(t *testing.T) {
	service := newChatService()

	owned, err := service.Create(context.Background(), userIdentity(7, sec.RoleBeneficiary), "first chat")
	require.NoError(t, err)
	require.NotNil(t, owned.UserID)
	assert.Equal(t, int64(7), *owned.UserID)
	assert.Nil(t, owned.SessionID)
	assert.True(t, owned.IsActive)

	anon, err := service.Create(context.Background(), sessionIdentity("anon_a"), "")
	require.NoError(t, err)
	require.NotNil(t, anon.SessionID)
	assert.Equal(t, "anon_a", *anon.SessionID)
	assert.Nil(t, anon.UserID)
}

/*
TestCreate_RequiresAnIdentity verifies a caller with no credentials cannot
open a conversation.
*/
func TestCreate_RequiresAnIdentity(t *testing.T) {
	service := newChatService()

	_, err := service.Create(context.Background(), auth.Identity{}, "no one")
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeUnauthenticated))
}

/*
TestCreate_OneChatPerSession verifies the single-conversation rule for
anonymous sessions.
*/
func TestCreate_OneChatPerSession(t *testing.T) {
	service := newChatService()

	_, err := service.Create(context.Background(), sessionIdentity("anon_a"), "")
	require.NoError(t, err)

	_, err = service.Create(context.Background(), sessionIdentity("anon_a"), "again")
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeConflict))
}

/*
TestListOwn verifies each caller only sees their own conversations.
*/
func TestListOwn(t *testing.T) {
	service := newChatService()

	_, err := service.Create(context.Background(), userIdentity(1, sec.RoleBeneficiary), "mine")
	require.NoError(t, err)
	_, err = service.Create(context.Background(), userIdentity(2, sec.RoleBeneficiary), "theirs")
	require.NoError(t, err)
	_, err = service.Create(context.Background(), sessionIdentity("anon_a"), "anonymous")
	require.NoError(t, err)

	params := pagination.Params{Page: 1, Limit: 20}

	mine, total, err := service.ListOwn(context.Background(), userIdentity(1, sec.RoleBeneficiary), params)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, mine, 1)
	assert.Equal(t, "mine", mine[0].Title)

	anon, total, err := service.ListOwn(context.Background(), sessionIdentity("anon_a"), params)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, anon, 1)
	assert.Equal(t, "anonymous", anon[0].Title)

	_, _, err = service.ListOwn(context.Background(), auth.Identity{}, params)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeUnauthenticated))
}

/*
TestGet_Ownership verifies the access matrix on a user-owned chat: owner
and admin pass, strangers and sessions are refused.
*/
func TestGet_Ownership(t *testing.T) {
	service := newChatService()

	created, err := service.Create(context.Background(), userIdentity(7, sec.RoleBeneficiary), "private")
	require.NoError(t, err)

	_, _, err = service.Get(context.Background(), userIdentity(7, sec.RoleBeneficiary), created.ID)
	assert.NoError(t, err)

	_, _, err = service.Get(context.Background(), userIdentity(1, sec.RoleAdmin), created.ID)
	assert.NoError(t, err)

	_, _, err = service.Get(context.Background(), userIdentity(8, sec.RoleBeneficiary), created.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeForbidden))

	_, _, err = service.Get(context.Background(), userIdentity(2, sec.RoleAssistant), created.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeForbidden))

	_, _, err = service.Get(context.Background(), sessionIdentity("anon_a"), created.ID)
	require.Error(t, err)

	_, _, err = service.Get(context.Background(), userIdentity(7, sec.RoleBeneficiary), 999)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

/*
TestGet_SessionOwnership verifies a session-owned chat is reachable by its
session and by admins only.
*/
func TestGet_SessionOwnership(t *testing.T) {
	service := newChatService()

	created, err := service.Create(context.Background(), sessionIdentity("anon_a"), "")
	require.NoError(t, err)

	_, _, err = service.Get(context.Background(), sessionIdentity("anon_a"), created.ID)
	assert.NoError(t, err)

	_, _, err = service.Get(context.Background(), userIdentity(1, sec.RoleAdmin), created.ID)
	assert.NoError(t, err)

	_, _, err = service.Get(context.Background(), sessionIdentity("anon_b"), created.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeForbidden))

	_, _, err = service.Get(context.Background(), userIdentity(9, sec.RoleBeneficiary), created.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeForbidden))
}

/*
TestMessages verifies appending and listing history on an owned chat.
*/
func TestMessages(t *testing.T) {
	service := newChatService()
	identity := userIdentity(7, sec.RoleBeneficiary)

	created, err := service.Create(context.Background(), identity, "talk")
	require.NoError(t, err)

	first, err := service.AddMessage(context.Background(), identity, created.ID, chat.MessageRoleUser, "hello")
	require.NoError(t, err)
	assert.NotZero(t, first.ID)

	_, err = service.AddMessage(context.Background(), identity, created.ID, chat.MessageRoleAssistant, "hi, how can I help?")
	require.NoError(t, err)

	messages, err := service.ListMessages(context.Background(), identity, created.ID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "hello", messages[0].Content)
	assert.Equal(t, chat.MessageRoleAssistant, messages[1].Role)

	// A stranger cannot write into someone else's conversation.
	_, err = service.AddMessage(context.Background(), userIdentity(8, sec.RoleBeneficiary), created.ID, chat.MessageRoleUser, "intruding")
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeForbidden))
}

/*
TestRate verifies an evaluation is stamped and that re-rating overwrites
the previous one.
*/
func TestRate(t *testing.T) {
	service := newChatService()
	identity := sessionIdentity("anon_a")

	created, err := service.Create(context.Background(), identity, "")
	require.NoError(t, err)

	rated, err := service.Rate(context.Background(), identity, created.ID, chat.RatingInput{Rating: 4, Comment: "helped a lot"})
	require.NoError(t, err)
	require.NotNil(t, rated.Rating)
	assert.Equal(t, 4, *rated.Rating)
	assert.Equal(t, "helped a lot", rated.RatingComment)
	require.NotNil(t, rated.RatedAt)

	rerated, err := service.Rate(context.Background(), identity, created.ID, chat.RatingInput{Rating: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, *rerated.Rating)
	assert.Empty(t, rerated.RatingComment)
}

/*
TestUpdateAndDelete verifies partial updates and removal under ownership.
*/
func TestUpdateAndDelete(t *testing.T) {
	service := newChatService()
	identity := userIdentity(7, sec.RoleBeneficiary)

	created, err := service.Create(context.Background(), identity, "draft")
	require.NoError(t, err)

	title := "final title"
	inactive := false
	updated, err := service.Update(context.Background(), identity, created.ID, chat.UpdateInput{
		Title:    &title,
		IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "final title", updated.Title)
	assert.False(t, updated.IsActive)

	require.NoError(t, service.Delete(context.Background(), identity, created.ID))

	_, _, err = service.Get(context.Background(), identity, created.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}
