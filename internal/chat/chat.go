// Copyright (c) 2026 Amparo. All rights reserved.
// Author: backend@amparo.social

/*
Package chat implements the support conversation domain.

A chat belongs to exactly one owner: a registered user OR an anonymous
session, never both. When a session is promoted its chat is re-owned by the
new account; the chat's history survives the transition untouched.
*/
package chat

import "time"

// # Domain Entities

// Chat represents one support conversation.
type Chat struct {
	ID int64 `json:"id"`

	// Exactly one of UserID and SessionID is set.
	UserID    *int64  `json:"user_id,omitempty"`
	SessionID *string `json:"session_id,omitempty"`

	Title    string `json:"title,omitempty"`
	Summary  string `json:"summary,omitempty"`
	IsActive bool   `json:"is_active"`

	// Rating is set once the conversation has been evaluated (0 to 5).
	// Re-rating overwrites the previous evaluation.
	Rating        *int       `json:"rating,omitempty"`
	RatingComment string     `json:"rating_comment,omitempty"`
	RatedAt       *time.Time `json:"rated_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message represents a single utterance inside a chat.
type Message struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// # Constraints

const (
	// MessageRoleUser marks messages written by the person seeking support.
	MessageRoleUser = "user"

	// MessageRoleAssistant marks messages written by the support side.
	MessageRoleAssistant = "assistant"

	// MaxMessageLength caps a single message's content.
	MaxMessageLength = 10000

	// MaxTitleLength caps the chat title.
	MaxTitleLength = 255

	// MinRating and MaxRating bound the evaluation scale.
	MinRating = 0
	MaxRating = 5

	// DefaultMessagePageLimit bounds message listing.
	DefaultMessagePageLimit = 100
	MaxMessagePageLimit     = 500
)

// # Field Identifiers

const (
	FieldTitle   = "title"
	FieldSummary = "summary"
	FieldContent = "content"
	FieldRole    = "role"
	FieldRating  = "rating"
	FieldComment = "comment"
	FieldChatID  = "chat_id"
)
