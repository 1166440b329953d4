// Copyright (c) 2026 Amparo. All rights reserved.
// Author: backend@amparo.social

package chat

import (
	"context"

	"github.com/amparo-social/amparo-api/pkg/pagination"
)

// # Repository Contract

// Repository defines the persistence contract for chats and their messages.
type Repository interface {
	// Create inserts a new chat. An anonymous session may only own one
	// chat at a time; a second insert for the same session surfaces as
	// apperr.Conflict.
	Create(ctx context.Context, chat *Chat) error

	// FindByID retrieves a chat by primary key.
	FindByID(ctx context.Context, id int64) (*Chat, error)

	// ListByUser returns the user's chats, most recently active first.
	ListByUser(ctx context.Context, userID int64, params pagination.Params) ([]Chat, int64, error)

	// ListBySession returns the anonymous session's chats.
	ListBySession(ctx context.Context, sessionID string, params pagination.Params) ([]Chat, int64, error)

	// Update persists title, summary, activity flag and rating changes.
	Update(ctx context.Context, chat *Chat) error

	// Delete removes a chat and all of its messages.
	Delete(ctx context.Context, id int64) error

	// AddMessage appends a message and bumps the chat's updatedat.
	AddMessage(ctx context.Context, message *Message) error

	// ListMessages returns the chat's messages in chronological order.
	ListMessages(ctx context.Context, chatID int64, limit int) ([]Message, error)
}
