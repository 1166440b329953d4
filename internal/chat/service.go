// Copyright (c) 2026 Amparo. All rights reserved.
// Author: backend@amparo.social

package chat

import (
	"context"
	"strings"
	"time"

	"github.com/amparo-social/amparo-api/internal/auth"
	"github.com/amparo-social/amparo-api/internal/platform/apperr"
	"github.com/amparo-social/amparo-api/internal/platform/sec"
	"github.com/amparo-social/amparo-api/pkg/pagination"
)

// # Inputs

// UpdateInput carries partial chat changes; nil fields are untouched.
type UpdateInput struct {
	Title    *string
	Summary  *string
	IsActive *bool
}

// RatingInput carries one evaluation of a conversation.
type RatingInput struct {
	Rating  int
	Comment string
}

// # Service

// Service orchestrates support conversations for both registered users and
// anonymous sessions. Every operation takes the caller's resolved
// [auth.Identity] and enforces ownership before touching storage.
type Service struct {
	repository Repository
}

// NewService wires the chat service.
func NewService(repository Repository) *Service {
	return &Service{repository: repository}
}

/*
Create starts a new conversation owned by the caller.

Description: A registered caller owns the chat through their user id; an
anonymous caller through their session id. An anonymous session may only
hold one chat at a time.

Returns:
  - *Chat: The created conversation
  - error: apperr.Unauthenticated, apperr.Conflict, or a storage error
*/
func (service *Service) Create(ctx context.Context, identity auth.Identity, title string) (*Chat, error) {
	currentTime := time.Now()
	chat := &Chat{
		Title:     strings.TrimSpace(title),
		IsActive:  true,
		CreatedAt: currentTime,
		UpdatedAt: currentTime,
	}

	switch {
	case identity.User != nil:
		chat.UserID = &identity.User.ID
	case identity.Session != nil:
		chat.SessionID = &identity.Session.ID
	default:
		return nil, apperr.Unauthenticated("Authentication or a session is required")
	}

	if err := service.repository.Create(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

/*
ListOwn returns the caller's conversations, one page at a time.

Returns:
  - []Chat: One page, most recently active first
  - int64: Total chats owned by the caller
  - error: apperr.Unauthenticated, or a storage error
*/
func (service *Service) ListOwn(ctx context.Context, identity auth.Identity, params pagination.Params) ([]Chat, int64, error) {
	switch {
	case identity.User != nil:
		return service.repository.ListByUser(ctx, identity.User.ID, params)
	case identity.Session != nil:
		return service.repository.ListBySession(ctx, identity.Session.ID, params)
	default:
		return nil, 0, apperr.Unauthenticated("Authentication or a session is required")
	}
}

/*
Get retrieves one conversation with its message history.

Returns:
  - *Chat: The conversation
  - []Message: Chronological history
  - error: apperr.NotFound, apperr.Forbidden, or a storage error
*/
func (service *Service) Get(ctx context.Context, identity auth.Identity, chatID int64) (*Chat, []Message, error) {
	chat, err := service.authorizedChat(ctx, identity, chatID)
	if err != nil {
		return nil, nil, err
	}

	messages, err := service.repository.ListMessages(ctx, chatID, MaxMessagePageLimit)
	if err != nil {
		return nil, nil, err
	}

	return chat, messages, nil
}

/*
Update applies partial changes to a conversation the caller owns.
*/
func (service *Service) Update(ctx context.Context, identity auth.Identity, chatID int64, input UpdateInput) (*Chat, error) {
	chat, err := service.authorizedChat(ctx, identity, chatID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		chat.Title = strings.TrimSpace(*input.Title)
	}
	if input.Summary != nil {
		chat.Summary = strings.TrimSpace(*input.Summary)
	}
	if input.IsActive != nil {
		chat.IsActive = *input.IsActive
	}
	chat.UpdatedAt = time.Now()

	if err := service.repository.Update(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

/*
Delete removes a conversation the caller owns, messages included.
*/
func (service *Service) Delete(ctx context.Context, identity auth.Identity, chatID int64) error {
	if _, err := service.authorizedChat(ctx, identity, chatID); err != nil {
		return err
	}
	return service.repository.Delete(ctx, chatID)
}

/*
AddMessage appends an utterance to a conversation the caller owns.
*/
func (service *Service) AddMessage(ctx context.Context, identity auth.Identity, chatID int64, role, content string) (*Message, error) {
	if _, err := service.authorizedChat(ctx, identity, chatID); err != nil {
		return nil, err
	}

	message := &Message{
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := service.repository.AddMessage(ctx, message); err != nil {
		return nil, err
	}
	return message, nil
}

/*
ListMessages returns a conversation's history in chronological order.
*/
func (service *Service) ListMessages(ctx context.Context, identity auth.Identity, chatID int64, limit int) ([]Message, error) {
	if _, err := service.authorizedChat(ctx, identity, chatID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > MaxMessagePageLimit {
		limit = DefaultMessagePageLimit
	}
	return service.repository.ListMessages(ctx, chatID, limit)
}

/*
Rate records an evaluation of the conversation. Re-rating overwrites the
previous score and comment.
*/
func (service *Service) Rate(ctx context.Context, identity auth.Identity, chatID int64, input RatingInput) (*Chat, error) {
	chat, err := service.authorizedChat(ctx, identity, chatID)
	if err != nil {
		return nil, err
	}

	currentTime := time.Now()
	rating := input.Rating
	chat.Rating = &rating
	chat.RatingComment = strings.TrimSpace(input.Comment)
	chat.RatedAt = &currentTime
	chat.UpdatedAt = currentTime

	if err := service.repository.Update(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// authorizedChat loads the chat and verifies the caller may touch it.
func (service *Service) authorizedChat(ctx context.Context, identity auth.Identity, chatID int64) (*Chat, error) {
	chat, err := service.repository.FindByID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	switch {
	case chat.UserID != nil:
		err = auth.AuthorizeOwnership(identity, *chat.UserID)
	case chat.SessionID != nil:
		err = auth.AuthorizeSessionOwnership(identity, *chat.SessionID)
	default:
		// Owner-less rows cannot exist under the schema constraints; only
		// admins may look at one if it ever appears.
		err = auth.Authorize(identity, sec.RoleAdmin)
	}
	if err != nil {
		return nil, err
	}

	return chat, nil
}
