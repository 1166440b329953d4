// Copyright (c) 2026 Amparo. All rights reserved.
// Author: backend@amparo.social

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amparo-social/amparo-api/internal/platform/apperr"
	"github.com/amparo-social/amparo-api/internal/platform/ctxutil"
	"github.com/amparo-social/amparo-api/internal/platform/sec"
)

// # Token Provider

// TokenProvider abstracts access-token issuance and verification so the
// service can be tested without real key material.
type TokenProvider interface {
	IssueAccessToken(userID int64, role sec.Role, timeToLive time.Duration) (string, error)
	ParseAccessToken(tokenString string) (*sec.AccessClaims, error)
}

// # Inputs & Outputs

// RegisterInput carries the data needed to create an account.
type RegisterInput struct {
	Email      string
	Password   string
	Name       string
	SocialName string
	Pronoun    string

	// SessionID optionally names an anonymous session to claim, so the
	// conversation started before registering follows the new account.
	SessionID string
}

// LoginInput carries the credentials for an existing account.
type LoginInput struct {
	Email     string
	Password  string
	SessionID string
}

// UpdateProfileInput carries partial profile changes; nil fields are untouched.
type UpdateProfileInput struct {
	Name       *string
	SocialName *string
	Pronoun    *string
}

// LoginSession is the result of a successful register, login, or refresh:
// a fresh token pair plus the account snapshot.
type LoginSession struct {
	AccessToken           string
	AccessTokenExpiresIn  int64 // Seconds until the access token expires.
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	User                  *User
}

// # Service

// Service orchestrates the authentication flows: registration, login,
// refresh rotation, logout, password recovery, and identity resolution.
type Service struct {
	userRepository    UserRepository
	refreshRepository RefreshTokenRepository
	resetRepository   ResetTokenRepository
	sessions          *SessionService
	tokens            TokenProvider
}

// NewService wires the authentication orchestrator.
func NewService(
	userRepository UserRepository,
	refreshRepository RefreshTokenRepository,
	resetRepository ResetTokenRepository,
	sessions *SessionService,
	tokens TokenProvider,
) *Service {
	return &Service{
		userRepository:    userRepository,
		refreshRepository: refreshRepository,
		resetRepository:   resetRepository,
		sessions:          sessions,
		tokens:            tokens,
	}
}

// # Registration

/*
Register creates a new account and logs it in, in one step.

The user row and the first refresh token are persisted in a single
transaction, so a registration that returns success always yields a working
login session. New accounts always start as beneficiaries; staff roles are
assigned out of band.

Parameters:
  - ctx: Request context
  - input: RegisterInput (validated for shape at the HTTP layer)

Returns:
  - *LoginSession: The token pair and the created user
  - error: apperr.EmailTaken, apperr.ValidationError (password policy), or a storage error
*/
func (service *Service) Register(ctx context.Context, input RegisterInput) (*LoginSession, error) {
	if err := checkPasswordPolicy(input.Password); err != nil {
		return nil, err
	}

	email := normalizeEmail(input.Email)

	// Pre-check for a friendlier error; the unique index remains the
	// authoritative guard against races.
	if _, err := service.userRepository.FindByEmail(ctx, email); err == nil {
		return nil, apperr.EmailTaken()
	} else if !apperr.IsCode(err, apperr.CodeNotFound) {
		return nil, err
	}

	passwordHash, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("hash_password: %w", err))
	}

	currentTime := time.Now()
	user := &User{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         strings.TrimSpace(input.Name),
		SocialName:   strings.TrimSpace(input.SocialName),
		Pronoun:      strings.TrimSpace(input.Pronoun),
		Role:         sec.RoleBeneficiary,
		IsActive:     true,
		CreatedAt:    currentTime,
		UpdatedAt:    currentTime,
	}

	rawRefreshToken, refreshToken, err := service.buildRefreshToken()
	if err != nil {
		return nil, apperr.Internal(err)
	}

	if err := service.userRepository.CreateWithRefreshToken(ctx, user, refreshToken); err != nil {
		// Two registrations raced past the pre-check; report the same
		// outcome the loser would have seen a moment earlier.
		if apperr.IsCode(err, apperr.CodeConflict) {
			return nil, apperr.EmailTaken()
		}
		return nil, err
	}

	session, err := service.buildLoginSession(user, rawRefreshToken, refreshToken)
	if err != nil {
		return nil, err
	}

	service.claimSession(ctx, input.SessionID, user.ID)
	return session, nil
}

// # Login

/*
Login verifies credentials and issues a fresh token pair.

Unknown email and wrong password produce the same collapsed error; a
storage outage never does.

Returns:
  - *LoginSession: The token pair and the account snapshot
  - error: apperr.InvalidCredentials, apperr.Forbidden (deactivated), or a storage error
*/
func (service *Service) Login(ctx context.Context, input LoginInput) (*LoginSession, error) {
	user, err := service.userRepository.FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			return nil, apperr.InvalidCredentials()
		}
		return nil, err
	}

	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, apperr.InvalidCredentials()
	}

	// Checked after the password so deactivation status is only revealed
	// to someone who holds the correct credentials.
	if !user.IsActive {
		return nil, apperr.Forbidden("Account is deactivated")
	}

	rawRefreshToken, refreshToken, err := service.buildRefreshToken()
	if err != nil {
		return nil, apperr.Internal(err)
	}
	refreshToken.UserID = user.ID

	if err := service.refreshRepository.Create(ctx, refreshToken); err != nil {
		return nil, err
	}

	session, err := service.buildLoginSession(user, rawRefreshToken, refreshToken)
	if err != nil {
		return nil, err
	}

	service.claimSession(ctx, input.SessionID, user.ID)
	return session, nil
}

// # Refresh Rotation

/*
RefreshSession exchanges a valid refresh token for a fresh token pair.

The presented token is consumed atomically: under concurrent use of the
same token exactly one caller receives the new pair, the rest get
INVALID_CREDENTIALS. Unknown, revoked, and expired tokens are collapsed
into that same error; storage failures are not.

Returns:
  - *LoginSession: The rotated token pair
  - error: apperr.InvalidCredentials, apperr.Forbidden (deactivated), or a storage error
*/
func (service *Service) RefreshSession(ctx context.Context, rawRefreshToken string) (*LoginSession, error) {
	if rawRefreshToken == "" {
		return nil, apperr.InvalidCredentials()
	}

	rawSuccessor, successor, err := service.buildRefreshToken()
	if err != nil {
		return nil, apperr.Internal(err)
	}

	userID, err := service.refreshRepository.Rotate(ctx, sec.HashToken(rawRefreshToken), successor)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenNotFound), errors.Is(err, ErrTokenRevoked), errors.Is(err, ErrTokenExpired):
			return nil, apperr.InvalidCredentials()
		default:
			return nil, err
		}
	}

	user, err := service.userRepository.FindByID(ctx, userID)
	if err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			return nil, apperr.InvalidCredentials()
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperr.Forbidden("Account is deactivated")
	}

	return service.buildLoginSession(user, rawSuccessor, successor)
}

// # Logout

/*
Logout revokes the presented refresh token.

Idempotent: logging out with an unknown or already-revoked token succeeds
silently, so a client retrying a logout never sees an error.
*/
func (service *Service) Logout(ctx context.Context, rawRefreshToken string) error {
	if rawRefreshToken == "" {
		return nil
	}
	return service.refreshRepository.RevokeByHash(ctx, sec.HashToken(rawRefreshToken))
}

// # Identity Resolution

/*
ResolveCurrent resolves the caller's identity from whatever credentials the
request carried.

Precedence: a presented access token always wins. A token that fails
verification aborts resolution — it never falls back to the anonymous
session, which would let an expired token silently downgrade the caller.

Parameters:
  - ctx: Request context
  - accessToken: Raw JWT from the Authorization header ("" if absent)
  - sessionID: Anonymous session id ("" if absent)

Returns:
  - Identity: Registered user or anonymous session
  - error: apperr.Unauthenticated, or a storage error
*/
func (service *Service) ResolveCurrent(ctx context.Context, accessToken, sessionID string) (Identity, error) {
	if accessToken != "" {
		claims, err := service.tokens.ParseAccessToken(accessToken)
		if err != nil {
			return Identity{}, apperr.Unauthenticated("Invalid or expired token")
		}

		user, err := service.userRepository.FindByID(ctx, claims.UserID)
		if err != nil {
			if apperr.IsCode(err, apperr.CodeNotFound) {
				return Identity{}, apperr.Unauthenticated("Account no longer exists")
			}
			return Identity{}, err
		}
		if !user.IsActive {
			return Identity{}, apperr.Unauthenticated("Account is deactivated")
		}
		return Identity{User: user}, nil
	}

	if sessionID != "" {
		session, err := service.sessions.Resolve(ctx, sessionID)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				return Identity{}, apperr.Unauthenticated("Unknown session")
			}
			return Identity{}, err
		}
		return Identity{Session: session}, nil
	}

	return Identity{}, apperr.Unauthenticated("Authentication required")
}

// # Profile

/*
GetProfile retrieves the account snapshot for the given user.
*/
func (service *Service) GetProfile(ctx context.Context, userID int64) (*User, error) {
	return service.userRepository.FindByID(ctx, userID)
}

/*
UpdateProfile applies partial profile changes and returns the updated snapshot.
*/
func (service *Service) UpdateProfile(ctx context.Context, userID int64, input UpdateProfileInput) (*User, error) {
	user, err := service.userRepository.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.SocialName != nil {
		user.SocialName = strings.TrimSpace(*input.SocialName)
	}
	if input.Pronoun != nil {
		user.Pronoun = strings.TrimSpace(*input.Pronoun)
	}
	user.UpdatedAt = time.Now()

	if err := service.userRepository.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// # Account Moderation

/*
SetUserActive flips the account's active flag.

Deactivation immediately revokes every refresh token, so the account cannot
renew its access even if it holds a live refresh credential. Access tokens
already in flight die at resolution, where the flag is re-checked.

Returns:
  - *User: The updated account snapshot
  - error: apperr.NotFound, or a storage error
*/
func (service *Service) SetUserActive(ctx context.Context, userID int64, active bool) (*User, error) {
	if err := service.userRepository.SetActive(ctx, userID, active); err != nil {
		return nil, err
	}

	if !active {
		if err := service.refreshRepository.RevokeAll(ctx, userID); err != nil {
			return nil, err
		}
	}

	return service.userRepository.FindByID(ctx, userID)
}

// # Password Management

/*
ChangePassword verifies the current password, stores the new one, and
revokes every other refresh token of the account.

The refresh token of the current device (if supplied) survives, so changing
a password does not log the user out of the session they did it from.

Returns:
  - error: apperr.InvalidCredentials (wrong current password),
    apperr.ValidationError (policy), or a storage error
*/
func (service *Service) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword, rawRefreshToken string) error {
	if err := checkPasswordPolicy(newPassword); err != nil {
		return err
	}

	user, err := service.userRepository.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !sec.CheckPasswordHash(currentPassword, user.PasswordHash) {
		return apperr.InvalidCredentials()
	}

	passwordHash, err := sec.HashPassword(newPassword)
	if err != nil {
		return apperr.Internal(fmt.Errorf("hash_password: %w", err))
	}
	if err := service.userRepository.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return err
	}

	if rawRefreshToken != "" {
		return service.refreshRepository.RevokeOthers(ctx, userID, sec.HashToken(rawRefreshToken))
	}
	return service.refreshRepository.RevokeAll(ctx, userID)
}

/*
RequestPasswordReset mints a short-lived reset token for the account.

Enumeration-safe: an unknown or deactivated email returns success with an
empty token, indistinguishable to the caller from the real thing. The raw
token is returned for delivery (email) and is never echoed in the API
response.

Returns:
  - string: The raw reset token, or "" when no token was minted
  - error: Storage errors only
*/
func (service *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := service.userRepository.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			return "", nil
		}
		return "", err
	}
	if !user.IsActive {
		return "", nil
	}

	rawToken, err := sec.GenerateSecureToken(ResetTokenLength)
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("generate_reset_token: %w", err))
	}

	if err := service.resetRepository.Set(ctx, sec.HashToken(rawToken), user.ID, ResetTokenTTL); err != nil {
		return "", err
	}
	return rawToken, nil
}

/*
ResetPassword consumes a reset token and replaces the account password.

Every refresh token of the account is revoked, so a reset kicks out anyone
holding a stolen session.

Returns:
  - error: apperr.ValidationError (unknown/expired token or weak password),
    or a storage error
*/
func (service *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if err := checkPasswordPolicy(newPassword); err != nil {
		return err
	}

	tokenHash := sec.HashToken(rawToken)
	userID, err := service.resetRepository.Get(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, ErrResetTokenNotFound) {
			return apperr.ValidationError("Invalid or expired reset token")
		}
		return err
	}

	passwordHash, err := sec.HashPassword(newPassword)
	if err != nil {
		return apperr.Internal(fmt.Errorf("hash_password: %w", err))
	}
	if err := service.userRepository.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return err
	}
	if err := service.refreshRepository.RevokeAll(ctx, userID); err != nil {
		return err
	}

	// Best effort; the TTL cleans up if the delete fails.
	if err := service.resetRepository.Delete(ctx, tokenHash); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "reset_token_delete_failed", slog.Any("error", err))
	}
	return nil
}

// # Internal Helpers

// buildRefreshToken generates a raw refresh token plus its persistable row.
// The caller fills UserID (or lets the store do it during registration).
func (service *Service) buildRefreshToken() (string, *RefreshToken, error) {
	rawToken, err := sec.GenerateSecureToken(RefreshTokenLength)
	if err != nil {
		return "", nil, fmt.Errorf("generate_refresh_token: %w", err)
	}

	currentTime := time.Now()
	return rawToken, &RefreshToken{
		TokenHash: sec.HashToken(rawToken),
		ExpiresAt: currentTime.Add(RefreshTokenTTL),
		CreatedAt: currentTime,
	}, nil
}

// buildLoginSession issues the access token and assembles the response pair.
func (service *Service) buildLoginSession(user *User, rawRefreshToken string, refreshToken *RefreshToken) (*LoginSession, error) {
	accessToken, err := service.tokens.IssueAccessToken(user.ID, user.Role, AccessTokenTTL)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("issue_access_token: %w", err))
	}

	return &LoginSession{
		AccessToken:           accessToken,
		AccessTokenExpiresIn:  int64(AccessTokenTTL.Seconds()),
		RefreshToken:          rawRefreshToken,
		RefreshTokenExpiresAt: refreshToken.ExpiresAt,
		User:                  user,
	}, nil
}

// claimSession promotes the anonymous session onto the freshly
// authenticated user. A failed promotion is logged but never fails the
// authentication that triggered it: the user is already logged in, and the
// session can be claimed again on the next login.
func (service *Service) claimSession(ctx context.Context, sessionID string, userID int64) {
	if sessionID == "" {
		return
	}
	if err := service.sessions.Promote(ctx, sessionID, userID); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "session_promotion_failed",
			slog.String("session_id", sessionID),
			slog.Int64("user_id", userID),
			slog.Any("error", err),
		)
	}
}

// checkPasswordPolicy enforces the minimum password requirements before any
// hashing work is done.
func checkPasswordPolicy(password string) error {
	if len(password) < MinPasswordLength {
		return apperr.ValidationError("Password does not meet the minimum requirements",
			apperr.FieldError{
				Field:   FieldPassword,
				Message: fmt.Sprintf("Must be at least %d characters", MinPasswordLength),
			},
		)
	}
	return nil
}

// normalizeEmail lowercases and trims so lookups are case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
