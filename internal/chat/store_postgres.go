// Copyright (c) 2026 Amparo. All rights reserved.
// Author: backend@amparo.social

package chat

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amparo-social/amparo-api/internal/platform/dberr"
	"github.com/amparo-social/amparo-api/pkg/pagination"
)

// # Chat Repository

// PostgresRepository implements the Repository interface using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL implementation of the chat Repository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const chatColumns = `
	id, userid, sessionid, title, summary, isactive,
	rating, ratingcomment, ratedat, createdat, updatedat`

// scanChat hydrates one chat row.
func scanChat(row pgx.Row) (*Chat, error) {
	chat := &Chat{}
	err := row.Scan(
		&chat.ID,
		&chat.UserID,
		&chat.SessionID,
		&chat.Title,
		&chat.Summary,
		&chat.IsActive,
		&chat.Rating,
		&chat.RatingComment,
		&chat.RatedAt,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

/*
Create persists a new chat record.

Description: The partial unique index on sessionid enforces the one-chat-
per-anonymous-session rule at the storage level; a violation surfaces as
apperr.Conflict.

Parameters:
  - context: context.Context
  - chat: *Chat (ID filled on success)

Returns:
  - error: apperr.Conflict or database errors
*/
func (repository *PostgresRepository) Create(context context.Context, chat *Chat) error {
	const query = `
		INSERT INTO support.chat (userid, sessionid, title, summary, isactive, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := repository.pool.QueryRow(context, query,
		chat.UserID,
		chat.SessionID,
		chat.Title,
		chat.Summary,
		chat.IsActive,
		chat.CreatedAt,
		chat.UpdatedAt,
	).Scan(&chat.ID)
	if err != nil {
		return dberr.Wrap(err, "Chat")
	}

	return nil
}

/*
FindByID retrieves a chat by primary key.
*/
func (repository *PostgresRepository) FindByID(context context.Context, id int64) (*Chat, error) {
	const query = `
		SELECT ` + chatColumns + `
		FROM support.chat
		WHERE id = $1`

	chat, err := scanChat(repository.pool.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "Chat")
	}

	return chat, nil
}

/*
ListByUser returns the user's chats, most recently active first.

Returns:
  - []Chat: One page of chats
  - int64: Total chat count for the user
  - error: Database errors
*/
func (repository *PostgresRepository) ListByUser(context context.Context, userID int64, params pagination.Params) ([]Chat, int64, error) {
	const countQuery = `SELECT count(*) FROM support.chat WHERE userid = $1`
	const listQuery = `
		SELECT ` + chatColumns + `
		FROM support.chat
		WHERE userid = $1
		ORDER BY updatedat DESC
		LIMIT $2 OFFSET $3`

	return repository.list(context, countQuery, listQuery, userID, params)
}

/*
ListBySession returns the anonymous session's chats.
*/
func (repository *PostgresRepository) ListBySession(context context.Context, sessionID string, params pagination.Params) ([]Chat, int64, error) {
	const countQuery = `SELECT count(*) FROM support.chat WHERE sessionid = $1`
	const listQuery = `
		SELECT ` + chatColumns + `
		FROM support.chat
		WHERE sessionid = $1
		ORDER BY updatedat DESC
		LIMIT $2 OFFSET $3`

	return repository.list(context, countQuery, listQuery, sessionID, params)
}

// list runs the shared count-then-page pattern for chat listings.
func (repository *PostgresRepository) list(context context.Context, countQuery, listQuery string, owner any, params pagination.Params) ([]Chat, int64, error) {
	var total int64
	if err := repository.pool.QueryRow(context, countQuery, owner).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "Chat")
	}

	rows, err := repository.pool.Query(context, listQuery, owner, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, dberr.Wrap(err, "Chat")
	}
	defer rows.Close()

	chats := make([]Chat, 0, params.Limit)
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, 0, dberr.Wrap(err, "Chat")
		}
		chats = append(chats, *chat)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, "Chat")
	}

	return chats, total, nil
}

/*
Update persists title, summary, activity flag and rating changes.
*/
func (repository *PostgresRepository) Update(context context.Context, chat *Chat) error {
	const query = `
		UPDATE support.chat
		SET title = $2, summary = $3, isactive = $4,
		    rating = $5, ratingcomment = $6, ratedat = $7, updatedat = $8
		WHERE id = $1`

	tag, err := repository.pool.Exec(context, query,
		chat.ID,
		chat.Title,
		chat.Summary,
		chat.IsActive,
		chat.Rating,
		chat.RatingComment,
		chat.RatedAt,
		chat.UpdatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "Chat")
	}
	if tag.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, "Chat")
	}

	return nil
}

/*
Delete removes a chat. Messages follow via ON DELETE CASCADE.
*/
func (repository *PostgresRepository) Delete(context context.Context, id int64) error {
	const query = `DELETE FROM support.chat WHERE id = $1`

	tag, err := repository.pool.Exec(context, query, id)
	if err != nil {
		return dberr.Wrap(err, "Chat")
	}
	if tag.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, "Chat")
	}

	return nil
}

/*
AddMessage appends a message and bumps the chat's updatedat, in one
transaction so the listing order stays consistent with the content.
*/
func (repository *PostgresRepository) AddMessage(context context.Context, message *Message) error {
	const insertMessage = `
		INSERT INTO support.chatmessage (chatid, role, content, createdat)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	const touchChat = `
		UPDATE support.chat SET updatedat = now() WHERE id = $1`

	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return dberr.Wrap(err, "Message")
	}
	defer func() { _ = transaction.Rollback(context) }()

	err = transaction.QueryRow(context, insertMessage,
		message.ChatID,
		message.Role,
		message.Content,
		message.CreatedAt,
	).Scan(&message.ID)
	if err != nil {
		return dberr.Wrap(err, "Message")
	}

	if _, err := transaction.Exec(context, touchChat, message.ChatID); err != nil {
		return dberr.Wrap(err, "Chat")
	}

	if err := transaction.Commit(context); err != nil {
		return dberr.Wrap(err, "Message")
	}

	return nil
}

/*
ListMessages returns the chat's messages in chronological order.
*/
func (repository *PostgresRepository) ListMessages(context context.Context, chatID int64, limit int) ([]Message, error) {
	const query = `
		SELECT id, chatid, role, content, createdat
		FROM support.chatmessage
		WHERE chatid = $1
		ORDER BY createdat ASC
		LIMIT $2`

	rows, err := repository.pool.Query(context, query, chatID, limit)
	if err != nil {
		return nil, dberr.Wrap(err, "Message")
	}
	defer rows.Close()

	messages := make([]Message, 0, limit)
	for rows.Next() {
		message := Message{}
		err := rows.Scan(
			&message.ID,
			&message.ChatID,
			&message.Role,
			&message.Content,
			&message.CreatedAt,
		)
		if err != nil {
			return nil, dberr.Wrap(err, "Message")
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "Message")
	}

	return messages, nil
}
