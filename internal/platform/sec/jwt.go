// Copyright (c) 2026 Amparo. All rights reserved.
// Author: backend@amparo.social

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (password hashing, JWT
// signing, opaque token generation) from the domain logic. It acts as an
// Infrastructure service injected into the Application layer via the
// [auth.TokenProvider] interface.
package sec

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// # Parse Failures

// Sentinel errors distinguishing why an access token was rejected. Callers
// that need a single outcome (e.g. the HTTP middleware) can treat them all
// as "unauthenticated"; tests and logs keep the distinction.
var (
	// ErrTokenMalformed indicates the claim set could not be decoded.
	ErrTokenMalformed = errors.New("sec: access token malformed")

	// ErrTokenSignature indicates the signature does not verify.
	ErrTokenSignature = errors.New("sec: access token signature invalid")

	// ErrTokenExpired indicates the token's expiry is in the past.
	ErrTokenExpired = errors.New("sec: access token expired")
)

// minSecretLength rejects symmetric keys too weak for HS256.
const minSecretLength = 32

// AccessClaims represents the payload embedded inside a JWT access token.
//
// # Why custom claims?
//
// By embedding the UserID and Role directly inside the JWT, the
// authentication middleware can reconstruct the caller's identity WITHOUT
// querying the database on every API request. Access-token validation is a
// pure computation over the signed claim set.
type AccessClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID int64  `json:"uid"`
	Role   string `json:"rol"`
}

// TokenCodec issues and verifies JWT access tokens using HS256.
//
// # Concurrency
//
// The signing key is loaded once at construction and never mutated, so a
// single codec is safe for concurrent use by every request handler.
type TokenCodec struct {
	secret []byte
	issuer string
}

// NewTokenCodec creates a TokenCodec from a symmetric signing secret.
func NewTokenCodec(secret, issuer string) (*TokenCodec, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("sec: signing secret must be at least %d bytes", minSecretLength)
	}
	return &TokenCodec{
		secret: []byte(secret),
		issuer: issuer,
	}, nil
}

// IssueAccessToken creates a signed access token for a registered user.
//
// # Parameters
//   - userID: The numeric ID of the account (subject).
//   - role: The account's role, embedded for stateless authorization.
//   - timeToLive: The duration before the token expires.
func (codec *TokenCodec) IssueAccessToken(userID int64, role Role, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    codec.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		UserID: userID,
		Role:   string(role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(codec.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// ParseAccessToken checks the signature and validity of a JWT string.
//
// # Returns
//   - *AccessClaims: The verified claim set.
//   - error: [ErrTokenExpired], [ErrTokenSignature] or [ErrTokenMalformed].
func (codec *TokenCodec) ParseAccessToken(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Reject any algorithm other than the symmetric HMAC family to
		// prevent algorithm-substitution attacks.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return codec.secret, nil
	}, jwt.WithIssuer(codec.issuer))

	if err != nil {
		return nil, classifyParseError(err)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// classifyParseError maps jwt/v5 validation errors onto the codec's sentinels.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	default:
		// Issuer mismatch, not-yet-valid and other claim failures all mean
		// the token cannot be trusted.
		return fmt.Errorf("%w: %s", ErrTokenMalformed, err.Error())
	}
}
