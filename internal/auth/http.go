// Copyright (c) 2026 Amparo. All rights reserved.
// Author: backend@amparo.social

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amparo-social/amparo-api/internal/platform/constants"
	"github.com/amparo-social/amparo-api/internal/platform/middleware"
	requestutil "github.com/amparo-social/amparo-api/internal/platform/request"
	"github.com/amparo-social/amparo-api/internal/platform/respond"
	"github.com/amparo-social/amparo-api/internal/platform/sec"
	"github.com/amparo-social/amparo-api/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements authentication-related HTTP endpoints.
//
// # Scope
//
// This handler manages the account lifecycle entry points (registration,
// login, token refresh, password recovery), the anonymous session bootstrap,
// and the current-identity profile surface.
//
// This layer is strictly responsible for transport concerns (status codes,
// headers, cookies, JSON).
type Handler struct {
	authService *Service
	sessions    *SessionService
}

// NewHandler constructs a new [Handler] with its service dependencies.
func NewHandler(service *Service, sessions *SessionService) *Handler {
	return &Handler{authService: service, sessions: sessions}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /register        : Creates a new account (optionally claiming a session).
//   - POST /login           : Authenticates and returns a token pair.
//   - POST /refresh         : Rotates the refresh token.
//   - POST /logout          : Revokes the presented refresh token.
//   - POST /session         : Creates or resumes an anonymous session.
//   - POST /forgot-password : Mints a password reset token.
//   - POST /reset-password  : Consumes a reset token.
//   - GET  /me              : Resolves the caller's identity.
//   - PUT  /me              : Updates the caller's profile.
//   - POST /change-password : Rotates the caller's password.
//   - POST /users/{userID}/deactivate : Deactivates an account (admin).
//   - POST /users/{userID}/activate   : Reactivates an account (admin).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)
	router.Post("/logout", handler.logout)
	router.Post("/session", handler.createSession)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Post("/reset-password", handler.resetPassword)

	// GET /me resolves both registered and anonymous identities, so it sits
	// outside the RequireAuth group.
	router.Get("/me", handler.me)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Put("/me", handler.updateProfile)
		r.Post("/change-password", handler.changePassword)
	})

	// Admin moderation
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(sec.RoleAdmin))
		r.Post("/users/{userID}/deactivate", handler.deactivateUser)
		r.Post("/users/{userID}/activate", handler.activateUser)
	})

	return router
}

// # Request Payloads

type registerRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	SocialName string `json:"social_name"`
	Pronoun    string `json:"pronoun"`
	SessionID  string `json:"session_id"`
}

type loginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	SessionID string `json:"session_id"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type updateProfileRequest struct {
	Name       *string `json:"name"`
	SocialName *string `json:"social_name"`
	Pronoun    *string `json:"pronoun"`
}

// # Handlers

/*
Register handles the creation of a new user account.

POST /api/v1/auth/register

Description: Validates input, creates the account together with its first
refresh token, and — if a session id was supplied — claims the anonymous
conversation for the new account.

Request:
  - Body: registerRequest (Email, Password, Name, SocialName, Pronoun, SessionID)

Response:
  - 201: Session: Access token and created user profile
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 409: EmailTaken: Email already registered
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, MinPasswordLength).
		Required(FieldName, input.Name).
		MaxLen(FieldName, input.Name, 255).
		MaxLen(FieldSocialName, input.SocialName, 255).
		MaxLen(FieldPronoun, input.Pronoun, 50)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Register(request.Context(), RegisterInput{
		Email:      input.Email,
		Password:   input.Password,
		Name:       input.Name,
		SocialName: input.SocialName,
		Pronoun:    input.Pronoun,
		SessionID:  firstNonEmpty(input.SessionID, requestutil.SessionID(request)),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, session)
	respond.Created(writer, loginSessionPayload(session))
}

/*
Login authenticates a user and establishes a session.

POST /api/v1/auth/login

Description: Verifies credentials, issues a token pair, and injects a
secure refresh token cookie into the response. A supplied session id is
claimed for the account after the login succeeds.

Request:
  - Body: loginRequest (Email, Password, SessionID)

Response:
  - 200: Session: Access token and user profile
  - 401: InvalidCredentials: Unknown email or wrong password
  - 403: Forbidden: Account deactivated
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email)
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), LoginInput{
		Email:     input.Email,
		Password:  input.Password,
		SessionID: firstNonEmpty(input.SessionID, requestutil.SessionID(request)),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, session)
	respond.OK(writer, loginSessionPayload(session))
}

/*
Refresh issues a new token pair using a valid refresh token.

POST /api/v1/auth/refresh

Description: Rotates the session. The refresh token is read from the
secure cookie first, with a JSON body fallback for non-browser clients.
The presented token is consumed; the response carries its successor.

Response:
  - 200: Session: New access token credentials
  - 401: InvalidCredentials: Missing, unknown, revoked or expired token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	rawToken := handler.refreshTokenFrom(request)
	if rawToken == "" {
		respond.Error(writer, request, validate.RequiredError(FieldRefreshToken, "Missing refresh token"))
		return
	}

	session, err := handler.authService.RefreshSession(request.Context(), rawToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, session)
	respond.OK(writer, map[string]any{
		FieldAccessToken:  session.AccessToken,
		FieldTokenType:    "Bearer",
		FieldExpiresIn:    session.AccessTokenExpiresIn,
		FieldRefreshToken: session.RefreshToken,
	})
}

/*
Logout terminates the current session.

POST /api/v1/auth/logout

Description: Revokes the presented refresh token (if any) and clears the
security cookie. Idempotent — logging out twice, or with a token that was
never issued, still returns 204.

Response:
  - 204: No Content: Session terminated
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	if rawToken := handler.refreshTokenFrom(request); rawToken != "" {
		if err := handler.authService.Logout(request.Context(), rawToken); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    "",
		Path:     constants.RefreshTokenCookiePath,
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	respond.NoContent(writer)
}

/*
CreateSession creates or resumes an anonymous support session.

POST /api/v1/auth/session

Description: Bootstraps the credential-less identity used by the support
chat. A known session id (body, header, or query) is resumed; anything
else yields a freshly minted id.

Request:
  - Body: sessionRequest (SessionID, optional)

Response:
  - 200: AnonymousSession: The live session id
*/
func (handler *Handler) createSession(writer http.ResponseWriter, request *http.Request) {
	var input sessionRequest
	// The body is optional; a bare POST mints a fresh session.
	_ = requestutil.DecodeJSON(request, &input)

	session, err := handler.sessions.CreateAnonymous(
		request.Context(),
		firstNonEmpty(input.SessionID, requestutil.SessionID(request)),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, session)
}

/*
Me resolves and returns the caller's current identity.

GET /api/v1/auth/me

Description: A valid access token resolves to the full user profile. With
no token, a valid session id resolves to the anonymous session. A promoted
session id no longer resolves.

Response:
  - 200: Identity: User profile or anonymous session
  - 401: Unauthenticated: No valid credentials presented
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	identity, err := handler.authService.ResolveCurrent(
		request.Context(),
		requestutil.BearerToken(request),
		requestutil.SessionID(request),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if identity.User != nil {
		respond.OK(writer, identity.User)
		return
	}
	respond.OK(writer, identity.Session)
}

/*
UpdateProfile applies partial profile changes for the authenticated user.

PUT /api/v1/auth/me

Request:
  - Body: updateProfileRequest (Name, SocialName, Pronoun — all optional)

Response:
  - 200: User: Updated profile
  - 401: Unauthenticated: Missing or invalid token
*/
func (handler *Handler) updateProfile(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateProfileRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	if input.Name != nil {
		validator.Required(FieldName, *input.Name).MaxLen(FieldName, *input.Name, 255)
	}
	if input.SocialName != nil {
		validator.MaxLen(FieldSocialName, *input.SocialName, 255)
	}
	if input.Pronoun != nil {
		validator.MaxLen(FieldPronoun, *input.Pronoun, 50)
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.UpdateProfile(request.Context(), userID, UpdateProfileInput{
		Name:       input.Name,
		SocialName: input.SocialName,
		Pronoun:    input.Pronoun,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
ChangePassword rotates the authenticated user's password.

POST /api/v1/auth/change-password

Description: Verifies the current password, stores the new one, and
revokes every refresh token except the one presented with this request.

Request:
  - Body: changePasswordRequest (CurrentPassword, NewPassword)

Response:
  - 204: No Content: Password changed
  - 401: InvalidCredentials: Wrong current password
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldCurrentPassword, input.CurrentPassword).
		Required(FieldNewPassword, input.NewPassword).
		MinLen(FieldNewPassword, input.NewPassword, MinPasswordLength)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.authService.ChangePassword(
		request.Context(),
		userID,
		input.CurrentPassword,
		input.NewPassword,
		handler.refreshTokenFrom(request),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
ForgotPassword mints a password reset token for the account.

POST /api/v1/auth/forgot-password

Description: Always answers with the same generic message, whether or not
the email exists — the response must not reveal which addresses have
accounts. The raw token is handed to the delivery pipeline, never echoed.

Request:
  - Body: forgotPasswordRequest (Email)

Response:
  - 200: Message: Generic acknowledgment
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// The token (when minted) goes to the email pipeline. Storage outages
	// still surface, an attacker learns nothing from a 503.
	if _, err := handler.authService.RequestPasswordReset(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "If that email is registered, a reset link is on its way",
	})
}

/*
ResetPassword consumes a reset token and replaces the account password.

POST /api/v1/auth/reset-password

Request:
  - Body: resetPasswordRequest (Token, Password)

Response:
  - 204: No Content: Password replaced, all sessions revoked
  - 400: ValidationError: Unknown or expired token, or weak password
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldToken, input.Token).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, MinPasswordLength)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ResetPassword(request.Context(), input.Token, input.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
DeactivateUser disables an account and revokes its refresh tokens.

POST /api/v1/auth/users/{userID}/deactivate

Description: Admin-only. The account is never deleted; it stops
authenticating until an admin reactivates it.

Response:
  - 200: User: Updated account snapshot
  - 403: Forbidden: Caller is not an admin
  - 404: NotFound: Unknown user id
*/
func (handler *Handler) deactivateUser(writer http.ResponseWriter, request *http.Request) {
	handler.setUserActive(writer, request, false)
}

/*
ActivateUser re-enables a previously deactivated account.

POST /api/v1/auth/users/{userID}/activate

Response:
  - 200: User: Updated account snapshot
  - 403: Forbidden: Caller is not an admin
  - 404: NotFound: Unknown user id
*/
func (handler *Handler) activateUser(writer http.ResponseWriter, request *http.Request) {
	handler.setUserActive(writer, request, true)
}

func (handler *Handler) setUserActive(writer http.ResponseWriter, request *http.Request, active bool) {
	userID, err := requestutil.NumericID(request, "userID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.SetUserActive(request.Context(), userID, active)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// # Transport Helpers

// setRefreshCookie injects the rotated refresh token as a secure cookie
// scoped to the auth endpoints.
func (handler *Handler) setRefreshCookie(writer http.ResponseWriter, session *LoginSession) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    session.RefreshToken,
		Path:     constants.RefreshTokenCookiePath,
		Expires:  session.RefreshTokenExpiresAt,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// refreshTokenFrom reads the refresh token from the cookie first and falls
// back to the JSON body for non-browser clients.
func (handler *Handler) refreshTokenFrom(request *http.Request) string {
	if cookie, err := request.Cookie(constants.RefreshTokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	var input refreshRequest
	if err := requestutil.DecodeJSON(request, &input); err == nil {
		return input.RefreshToken
	}
	return ""
}

// loginSessionPayload shapes the wire response for register/login. The
// refresh token travels in the body as well as the cookie, so non-browser
// clients that cannot hold the HttpOnly cookie still get a usable pair.
func loginSessionPayload(session *LoginSession) map[string]any {
	return map[string]any{
		FieldAccessToken:  session.AccessToken,
		FieldTokenType:    "Bearer",
		FieldExpiresIn:    session.AccessTokenExpiresIn,
		FieldRefreshToken: session.RefreshToken,
		FieldUser:         session.User,
	}
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
