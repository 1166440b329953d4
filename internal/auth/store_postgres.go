// Copyright (c) 2026 Amparo. All rights reserved.
// Author: backend@amparo.social

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amparo-social/amparo-api/internal/platform/dberr"
)

// # User Repository

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

/*
FindByID retrieves a user record by primary key.

Parameters:
  - context: context.Context
  - id: int64

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id int64) (*User, error) {
	const query = `
		SELECT id, email, passwordhash, name, socialname, pronoun, role, isactive, createdat, updatedat
		FROM support.users
		WHERE id = $1`

	user := &User{}
	err := repository.pool.QueryRow(context, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.SocialName,
		&user.Pronoun,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "User")
	}

	return user, nil
}

/*
FindByEmail retrieves a user record by their unique email address.

Parameters:
  - context: context.Context
  - email: string (already normalized to lowercase)

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	const query = `
		SELECT id, email, passwordhash, name, socialname, pronoun, role, isactive, createdat, updatedat
		FROM support.users
		WHERE email = $1`

	user := &User{}
	err := repository.pool.QueryRow(context, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.SocialName,
		&user.Pronoun,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "User")
	}

	return user, nil
}

/*
CreateWithRefreshToken persists a new user and their first refresh token in
a single transaction.

Description: The user insert runs first so the generated primary key can be
stamped onto the token row. A duplicate email surfaces as apperr.Conflict
via the unique index; the transaction rolls back and neither row exists.

Parameters:
  - context: context.Context
  - user: *User (ID, CreatedAt filled on success)
  - token: *RefreshToken (ID, UserID filled on success)

Returns:
  - error: apperr.Conflict on duplicate email, or database errors
*/
func (repository *PostgresUserRepository) CreateWithRefreshToken(context context.Context, user *User, token *RefreshToken) error {
	const insertUser = `
		INSERT INTO support.users (email, passwordhash, name, socialname, pronoun, role, isactive, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	const insertToken = `
		INSERT INTO support.refreshtoken (userid, tokenhash, expiresat, isrevoked, createdat)
		VALUES ($1, $2, $3, FALSE, $4)
		RETURNING id`

	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return dberr.Wrap(err, "User")
	}
	defer func() { _ = transaction.Rollback(context) }()

	err = transaction.QueryRow(context, insertUser,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.SocialName,
		user.Pronoun,
		user.Role,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		return dberr.Wrap(err, "User")
	}

	token.UserID = user.ID
	err = transaction.QueryRow(context, insertToken,
		token.UserID,
		token.TokenHash,
		token.ExpiresAt,
		token.CreatedAt,
	).Scan(&token.ID)
	if err != nil {
		return dberr.Wrap(err, "RefreshToken")
	}

	if err := transaction.Commit(context); err != nil {
		return dberr.Wrap(err, "User")
	}

	return nil
}

/*
UpdateProfile persists name, social name and pronoun changes.
*/
func (repository *PostgresUserRepository) UpdateProfile(context context.Context, user *User) error {
	const query = `
		UPDATE support.users
		SET name = $2, socialname = $3, pronoun = $4, updatedat = $5
		WHERE id = $1`

	tag, err := repository.pool.Exec(context, query,
		user.ID,
		user.Name,
		user.SocialName,
		user.Pronoun,
		user.UpdatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "User")
	}
	if tag.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, "User")
	}

	return nil
}

/*
UpdatePassword replaces the stored password hash.
*/
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, userID int64, passwordHash string) error {
	const query = `
		UPDATE support.users
		SET passwordhash = $2, updatedat = now()
		WHERE id = $1`

	tag, err := repository.pool.Exec(context, query, userID, passwordHash)
	if err != nil {
		return dberr.Wrap(err, "User")
	}
	if tag.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, "User")
	}

	return nil
}

/*
SetActive flips the account's active flag.
*/
func (repository *PostgresUserRepository) SetActive(context context.Context, userID int64, active bool) error {
	const query = `
		UPDATE support.users
		SET isactive = $2, updatedat = now()
		WHERE id = $1`

	tag, err := repository.pool.Exec(context, query, userID, active)
	if err != nil {
		return dberr.Wrap(err, "User")
	}
	if tag.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, "User")
	}

	return nil
}

// # Refresh Token Repository

// PostgresRefreshTokenRepository implements the RefreshTokenRepository interface using pgx.
type PostgresRefreshTokenRepository struct {
	pool *pgxpool.Pool
}

// NewRefreshTokenRepository creates a new PostgreSQL implementation of the RefreshTokenRepository.
func NewRefreshTokenRepository(pool *pgxpool.Pool) *PostgresRefreshTokenRepository {
	return &PostgresRefreshTokenRepository{pool: pool}
}

/*
Create persists a new refresh token row.
*/
func (repository *PostgresRefreshTokenRepository) Create(context context.Context, token *RefreshToken) error {
	const query = `
		INSERT INTO support.refreshtoken (userid, tokenhash, expiresat, isrevoked, createdat)
		VALUES ($1, $2, $3, FALSE, $4)
		RETURNING id`

	err := repository.pool.QueryRow(context, query,
		token.UserID,
		token.TokenHash,
		token.ExpiresAt,
		token.CreatedAt,
	).Scan(&token.ID)
	if err != nil {
		return dberr.Wrap(err, "RefreshToken")
	}

	return nil
}

/*
Rotate atomically consumes the presented token and inserts its successor.

Description: The consume statement is a conditional update — it only fires
on a row that is currently valid. Under concurrent presentation of the same
token, row-level locking serializes the contenders: the winner flips the
row to revoked, every loser re-evaluates the predicate after the lock
releases, matches nothing, and is classified as ErrTokenRevoked. The
successor insert shares the transaction, so a crash between the two
statements rolls the consume back and the client's token still works.

Parameters:
  - context: context.Context
  - oldTokenHash: string (digest of the presented token)
  - next: *RefreshToken (successor; UserID and ID filled on success)

Returns:
  - int64: The owning user id
  - error: ErrTokenNotFound, ErrTokenRevoked, ErrTokenExpired, or database errors
*/
func (repository *PostgresRefreshTokenRepository) Rotate(context context.Context, oldTokenHash string, next *RefreshToken) (int64, error) {
	const consume = `
		UPDATE support.refreshtoken
		SET isrevoked = TRUE, revokedat = now()
		WHERE tokenhash = $1 AND isrevoked = FALSE AND expiresat > now()
		RETURNING userid`

	const insertNext = `
		INSERT INTO support.refreshtoken (userid, tokenhash, expiresat, isrevoked, createdat)
		VALUES ($1, $2, $3, FALSE, $4)
		RETURNING id`

	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return 0, dberr.Wrap(err, "RefreshToken")
	}
	defer func() { _ = transaction.Rollback(context) }()

	var userID int64
	err = transaction.QueryRow(context, consume, oldTokenHash).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, repository.classifyStaleToken(context, oldTokenHash)
		}
		return 0, dberr.Wrap(err, "RefreshToken")
	}

	next.UserID = userID
	err = transaction.QueryRow(context, insertNext,
		next.UserID,
		next.TokenHash,
		next.ExpiresAt,
		next.CreatedAt,
	).Scan(&next.ID)
	if err != nil {
		return 0, dberr.Wrap(err, "RefreshToken")
	}

	if err := transaction.Commit(context); err != nil {
		return 0, dberr.Wrap(err, "RefreshToken")
	}

	return userID, nil
}

// classifyStaleToken explains why the consume statement matched nothing.
// The answer only feeds logs and tests; the service collapses all three
// sentinels into the same client-facing error.
func (repository *PostgresRefreshTokenRepository) classifyStaleToken(context context.Context, tokenHash string) error {
	const query = `
		SELECT isrevoked, expiresat
		FROM support.refreshtoken
		WHERE tokenhash = $1`

	var isRevoked bool
	var expiresAt time.Time
	err := repository.pool.QueryRow(context, query, tokenHash).Scan(&isRevoked, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTokenNotFound
		}
		return dberr.Wrap(err, "RefreshToken")
	}

	if isRevoked {
		return ErrTokenRevoked
	}
	if !expiresAt.After(time.Now()) {
		return ErrTokenExpired
	}

	// The row was consumed by a concurrent rotation between our two
	// statements. From this caller's perspective the token is spent.
	return ErrTokenRevoked
}

/*
RevokeByHash revokes a single token. Idempotent: revoking an unknown or
already-revoked token affects zero rows and returns nil.
*/
func (repository *PostgresRefreshTokenRepository) RevokeByHash(context context.Context, tokenHash string) error {
	const query = `
		UPDATE support.refreshtoken
		SET isrevoked = TRUE, revokedat = now()
		WHERE tokenhash = $1 AND isrevoked = FALSE`

	if _, err := repository.pool.Exec(context, query, tokenHash); err != nil {
		return dberr.Wrap(err, "RefreshToken")
	}

	return nil
}

/*
RevokeOthers revokes every active token of the user except the named one.
*/
func (repository *PostgresRefreshTokenRepository) RevokeOthers(context context.Context, userID int64, exceptTokenHash string) error {
	const query = `
		UPDATE support.refreshtoken
		SET isrevoked = TRUE, revokedat = now()
		WHERE userid = $1 AND tokenhash <> $2 AND isrevoked = FALSE`

	if _, err := repository.pool.Exec(context, query, userID, exceptTokenHash); err != nil {
		return dberr.Wrap(err, "RefreshToken")
	}

	return nil
}

/*
RevokeAll revokes every active token of the user.
*/
func (repository *PostgresRefreshTokenRepository) RevokeAll(context context.Context, userID int64) error {
	const query = `
		UPDATE support.refreshtoken
		SET isrevoked = TRUE, revokedat = now()
		WHERE userid = $1 AND isrevoked = FALSE`

	if _, err := repository.pool.Exec(context, query, userID); err != nil {
		return dberr.Wrap(err, "RefreshToken")
	}

	return nil
}

// # Anonymous Session Repository

// PostgresSessionRepository implements the SessionRepository interface using pgx.
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new PostgreSQL implementation of the SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

/*
Create inserts a new anonymous session row.

Returns:
  - error: ErrSessionExists on id collision (live or tombstoned), or database errors
*/
func (repository *PostgresSessionRepository) Create(context context.Context, session *AnonymousSession) error {
	const query = `
		INSERT INTO support.anonsession (id, createdat)
		VALUES ($1, $2)`

	if _, err := repository.pool.Exec(context, query, session.ID, session.CreatedAt); err != nil {
		if dberr.IsUniqueViolation(err) {
			return ErrSessionExists
		}
		return dberr.Wrap(err, "Session")
	}

	return nil
}

/*
FindByID retrieves a live anonymous session.

Description: Promoted sessions are filtered out at the query level, so a
tombstoned id is indistinguishable from one that never existed.

Returns:
  - *AnonymousSession: The live session
  - error: ErrSessionNotFound, or database errors
*/
func (repository *PostgresSessionRepository) FindByID(context context.Context, id string) (*AnonymousSession, error) {
	const query = `
		SELECT id, createdat
		FROM support.anonsession
		WHERE id = $1 AND promotedat IS NULL`

	session := &AnonymousSession{}
	err := repository.pool.QueryRow(context, query, id).Scan(
		&session.ID,
		&session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, dberr.Wrap(err, "Session")
	}

	return session, nil
}

/*
Promote tombstones the session and re-owns its chats, in one transaction.

Description: The tombstone is a conditional update on promotedat IS NULL,
so concurrent promotions of the same session serialize on the row lock and
exactly one wins. The chat re-owning shares the transaction — either the
session is promoted AND its chats belong to the user, or neither happened.

Parameters:
  - context: context.Context
  - sessionID: string
  - userID: int64

Returns:
  - error: ErrSessionNotFound if absent or already promoted, or database errors
*/
func (repository *PostgresSessionRepository) Promote(context context.Context, sessionID string, userID int64) error {
	const tombstone = `
		UPDATE support.anonsession
		SET promotedat = now(), promoteduserid = $2
		WHERE id = $1 AND promotedat IS NULL`

	const adoptChats = `
		UPDATE support.chat
		SET userid = $2, sessionid = NULL, updatedat = now()
		WHERE sessionid = $1`

	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return dberr.Wrap(err, "Session")
	}
	defer func() { _ = transaction.Rollback(context) }()

	tag, err := transaction.Exec(context, tombstone, sessionID, userID)
	if err != nil {
		return dberr.Wrap(err, "Session")
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	if _, err := transaction.Exec(context, adoptChats, sessionID, userID); err != nil {
		return dberr.Wrap(err, "Chat")
	}

	if err := transaction.Commit(context); err != nil {
		return dberr.Wrap(err, "Session")
	}

	return nil
}
