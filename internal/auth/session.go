// Copyright (c) 2026 Amparo. All rights reserved.
// Author: backend@amparo.social

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amparo-social/amparo-api/internal/platform/sec"
)

// # Session Manager

// SessionService manages the lifecycle of anonymous support sessions.
//
// An anonymous session lets someone talk to the support chat without an
// account. The id is the only credential, so possession of it IS the
// identity. Sessions persist until promoted; there is no expiry sweep, a
// returning visitor can resume a months-old conversation.
type SessionService struct {
	sessionRepository SessionRepository
}

// NewSessionService creates the anonymous session manager.
func NewSessionService(sessionRepository SessionRepository) *SessionService {
	return &SessionService{sessionRepository: sessionRepository}
}

/*
CreateAnonymous returns an anonymous session for the caller.

If requestedID names an existing live session it is resumed, so a client
that retries the bootstrap call keeps its identity. Unknown, promoted, or
unusable ids fall through to minting a fresh session — a promoted id is
never resurrected.

Parameters:
  - ctx: Request context
  - requestedID: Optional client-supplied session id to resume ("" to mint)

Returns:
  - *AnonymousSession: The live session
  - error: Storage errors only; this operation has no client-fault outcomes
*/
func (service *SessionService) CreateAnonymous(ctx context.Context, requestedID string) (*AnonymousSession, error) {
	if requestedID != "" && len(requestedID) <= MaxSessionIDLength {

		// 1. Resume if the session is still live
		existing, err := service.sessionRepository.FindByID(ctx, requestedID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}

		// 2. Not found: adopt the client's id if it is still free
		session := &AnonymousSession{ID: requestedID, CreatedAt: time.Now()}
		err = service.sessionRepository.Create(ctx, session)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, ErrSessionExists) {
			return nil, err
		}

		// 3. The id collided. A concurrent bootstrap with the same id means
		//    a live row we can resume; a promoted tombstone means we must
		//    mint a fresh id instead.
		if existing, findErr := service.sessionRepository.FindByID(ctx, requestedID); findErr == nil {
			return existing, nil
		}
	}

	return service.mintSession(ctx)
}

/*
Resolve retrieves a live anonymous session by id.

Returns:
  - *AnonymousSession: The session
  - error: ErrSessionNotFound for unknown or promoted ids
*/
func (service *SessionService) Resolve(ctx context.Context, id string) (*AnonymousSession, error) {
	if id == "" || len(id) > MaxSessionIDLength {
		return nil, ErrSessionNotFound
	}
	return service.sessionRepository.FindByID(ctx, id)
}

/*
Promote transfers everything the anonymous session owns to a registered
user and tombstones the session.

The re-owning of chats and the tombstone commit in one transaction, so a
crash mid-promotion never strands a half-claimed conversation. Promotion
is idempotent-hostile on purpose: a second attempt on the same session
returns ErrSessionNotFound.

Parameters:
  - ctx: Request context
  - sessionID: The session being claimed
  - userID: The registered user claiming it

Returns:
  - error: ErrSessionNotFound, or a storage error
*/
func (service *SessionService) Promote(ctx context.Context, sessionID string, userID int64) error {
	if sessionID == "" {
		return ErrSessionNotFound
	}
	return service.sessionRepository.Promote(ctx, sessionID, userID)
}

// mintSession creates a session with a freshly generated id.
func (service *SessionService) mintSession(ctx context.Context) (*AnonymousSession, error) {
	raw, err := sec.GenerateSecureToken(SessionIDLength)
	if err != nil {
		return nil, fmt.Errorf("generate_session_id: %w", err)
	}

	session := &AnonymousSession{
		ID:        SessionIDPrefix + raw,
		CreatedAt: time.Now(),
	}
	if err := service.sessionRepository.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}
