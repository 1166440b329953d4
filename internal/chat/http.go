// Copyright (c) 2026 Amparo. All rights reserved.
// Author: backend@amparo.social

package chat

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amparo-social/amparo-api/internal/auth"
	requestutil "github.com/amparo-social/amparo-api/internal/platform/request"
	"github.com/amparo-social/amparo-api/internal/platform/respond"
	"github.com/amparo-social/amparo-api/internal/platform/validate"
	"github.com/amparo-social/amparo-api/pkg/pagination"
)

// # Definitions & Constructors

// IdentityResolver resolves the caller's identity from raw credentials.
// Implemented by [auth.Service]; an interface here keeps handler tests free
// of real token material.
type IdentityResolver interface {
	ResolveCurrent(ctx context.Context, accessToken, sessionID string) (auth.Identity, error)
}

// Handler implements chat-related HTTP endpoints.
//
// Chats are reachable by registered users AND anonymous sessions, so the
// handler resolves the identity itself instead of relying on the
// authenticated-only middleware chain.
type Handler struct {
	chatService *Service
	identities  IdentityResolver
}

// NewHandler constructs a new [Handler] with its service dependencies.
func NewHandler(service *Service, identities IdentityResolver) *Handler {
	return &Handler{chatService: service, identities: identities}
}

// Routes returns a [chi.Router] configured with chat-specific routes.
//
// # Endpoints
//   - POST   /                    : Starts a conversation.
//   - GET    /                    : Lists the caller's conversations.
//   - GET    /{chatID}            : One conversation with history.
//   - PATCH  /{chatID}            : Updates title/summary/activity.
//   - DELETE /{chatID}            : Removes a conversation.
//   - POST   /{chatID}/messages   : Appends a message.
//   - GET    /{chatID}/messages   : Lists messages.
//   - POST   /{chatID}/rating     : Rates the conversation.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/", handler.create)
	router.Get("/", handler.list)
	router.Get("/{chatID}", handler.get)
	router.Patch("/{chatID}", handler.update)
	router.Delete("/{chatID}", handler.remove)
	router.Post("/{chatID}/messages", handler.addMessage)
	router.Get("/{chatID}/messages", handler.listMessages)
	router.Post("/{chatID}/rating", handler.rate)

	return router
}

// # Request Payloads

type createChatRequest struct {
	Title     string `json:"title"`
	SessionID string `json:"session_id"`
}

type updateChatRequest struct {
	Title    *string `json:"title"`
	Summary  *string `json:"summary"`
	IsActive *bool   `json:"is_active"`
}

type createMessageRequest struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

type ratingRequest struct {
	Rating  *int   `json:"rating"`
	Comment string `json:"comment"`
}

// # Handlers

/*
Create starts a new conversation.

POST /api/v1/chats

Description: Registered callers own the chat through their account;
anonymous callers through their session id.

Request:
  - Body: createChatRequest (Title optional, SessionID for anonymous callers)

Response:
  - 201: Chat: The created conversation
  - 401: Unauthenticated: No valid credentials presented
  - 409: Conflict: The session already has a conversation
*/
func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
	var input createChatRequest
	// Body is optional; a bare POST from a registered caller is valid.
	_ = requestutil.DecodeJSON(request, &input)

	validator := &validate.Validator{}
	validator.MaxLen(FieldTitle, input.Title, MaxTitleLength)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	identity, err := handler.resolveIdentity(request, input.SessionID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	chat, err := handler.chatService.Create(request.Context(), identity, input.Title)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, chat)
}

/*
List returns the caller's conversations, paginated.

GET /api/v1/chats?page=1&limit=20

Response:
  - 200: []Chat with pagination metadata
  - 401: Unauthenticated: No valid credentials presented
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	identity, err := handler.resolveIdentity(request, "")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	params := pagination.FromRequest(request)
	chats, total, err := handler.chatService.ListOwn(request.Context(), identity, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, chats, pagination.NewMeta(params.Page, params.Limit, int(total)))
}

/*
Get returns one conversation with its message history.

GET /api/v1/chats/{chatID}

Response:
  - 200: Chat with messages
  - 403: Forbidden: Caller does not own the conversation
  - 404: NotFound: Unknown chat
*/
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	chatID, err := requestutil.NumericID(request, "chatID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	identity, err := handler.resolveIdentity(request, "")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	chat, messages, err := handler.chatService.Get(request.Context(), identity, chatID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"chat":     chat,
		"messages": messages,
	})
}

/*
Update applies partial changes to a conversation.

PATCH /api/v1/chats/{chatID}
*/
func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	chatID, err := requestutil.NumericID(request, "chatID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateChatRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	if input.Title != nil {
		validator.MaxLen(FieldTitle, *input.Title, MaxTitleLength)
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	identity, err := handler.resolveIdentity(request, "")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	chat, err := handler.chatService.Update(request.Context(), identity, chatID, UpdateInput{
		Title:    input.Title,
		Summary:  input.Summary,
		IsActive: input.IsActive,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, chat)
}

/*
Remove deletes a conversation and its messages.

DELETE /api/v1/chats/{chatID}
*/
func (handler *Handler) remove(writer http.ResponseWriter, request *http.Request) {
	chatID, err := requestutil.NumericID(request, "chatID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	identity, err := handler.resolveIdentity(request, "")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.chatService.Delete(request.Context(), identity, chatID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
AddMessage appends an utterance to the conversation.

POST /api/v1/chats/{chatID}/messages
*/
func (handler *Handler) addMessage(writer http.ResponseWriter, request *http.Request) {
	chatID, err := requestutil.NumericID(request, "chatID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input createMessageRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}
	if input.Role == "" {
		input.Role = MessageRoleUser
	}

	validator := &validate.Validator{}
	validator.Required(FieldContent, input.Content).
		MaxLen(FieldContent, input.Content, MaxMessageLength).
		OneOf(FieldRole, input.Role, MessageRoleUser, MessageRoleAssistant)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	identity, err := handler.resolveIdentity(request, "")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	message, err := handler.chatService.AddMessage(request.Context(), identity, chatID, input.Role, input.Content)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, message)
}

/*
ListMessages returns the conversation history in chronological order.

GET /api/v1/chats/{chatID}/messages?limit=100
*/
func (handler *Handler) listMessages(writer http.ResponseWriter, request *http.Request) {
	chatID, err := requestutil.NumericID(request, "chatID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	identity, err := handler.resolveIdentity(request, "")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	limit := pagination.FromRequest(request).Limit
	messages, err := handler.chatService.ListMessages(request.Context(), identity, chatID, limit)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, messages)
}

/*
Rate records an evaluation of the conversation.

POST /api/v1/chats/{chatID}/rating

Request:
  - Body: ratingRequest (Rating 0-5, Comment optional)
*/
func (handler *Handler) rate(writer http.ResponseWriter, request *http.Request) {
	chatID, err := requestutil.NumericID(request, "chatID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input ratingRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Custom(FieldRating, input.Rating == nil, "Rating is required")
	if input.Rating != nil {
		validator.Range(FieldRating, *input.Rating, MinRating, MaxRating)
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	identity, err := handler.resolveIdentity(request, "")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	chat, err := handler.chatService.Rate(request.Context(), identity, chatID, RatingInput{
		Rating:  *input.Rating,
		Comment: input.Comment,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, chat)
}

// resolveIdentity resolves the caller from the bearer token or session id.
// An explicit body-supplied session id wins over the header/query fallback.
func (handler *Handler) resolveIdentity(request *http.Request, bodySessionID string) (auth.Identity, error) {
	sessionID := bodySessionID
	if sessionID == "" {
		sessionID = requestutil.SessionID(request)
	}
	return handler.identities.ResolveCurrent(request.Context(), requestutil.BearerToken(request), sessionID)
}
