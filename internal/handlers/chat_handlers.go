package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"

	"chatbridge-backend/internal/models"
	"chatbridge-backend/internal/services"
	"chatbridge-backend/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ChatHandlers handles HTTP requests related to chats.
type ChatHandlers struct {
	chatService *services.ChatService
}

// NewChatHandlers creates a new ChatHandlers instance.
func NewChatHandlers(chatService *services.ChatService) *ChatHandlers {
	return &ChatHandlers{
		chatService: chatService,
	}
}

// HandleCreateChat handles POST /chat.
func (h *ChatHandlers) HandleCreateChat(w http.ResponseWriter, r *http.Request) {
	chat, err := h.chatService.CreateChat(r.Context())
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to create chat: "+err.Error())
		return
	}

	resp := models.CreateChatResponse{
		Chat: models.ChatResource{
			ID:        chat.ID,
			CreatedAt: chat.CreatedAt,
		},
	}
	httputil.RespondJSON(w, http.StatusCreated, resp)
}

// HandleSendMessage handles POST /chat/{chatID}. It maps the service's two
// failure conditions to 404 (unknown chat) and 502 (model failure).
func (h *ChatHandlers) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	chatIDStr := chi.URLParam(r, "chatID")
	chatID, err := uuid.Parse(chatIDStr)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid chat ID")
		return
	}

	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Message == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Message must not be empty")
		return
	}
	if utf8.RuneCountInString(req.Message) > services.MaxMessageLength {
		httputil.RespondError(w, http.StatusBadRequest, fmt.Sprintf("Message must not exceed %d characters", services.MaxMessageLength))
		return
	}

	message, err := h.chatService.SendMessage(r.Context(), chatID, req.Message)
	if err != nil {
		var modelErr *services.ModelUnavailableError
		switch {
		case errors.Is(err, services.ErrChatNotFound):
			httputil.RespondError(w, http.StatusNotFound, fmt.Sprintf("Chat %s not found.", chatID))
		case errors.As(err, &modelErr):
			httputil.RespondJSON(w, http.StatusBadGateway, models.ModelErrorResponse{
				Message: "Failed to generate response from language model.",
				Reason:  modelErr.Reason.Error(),
			})
		default:
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to send message: "+err.Error())
		}
		return
	}

	resp := models.SendMessageResponse{
		ChatID:   message.ChatID,
		Response: message.Content,
		Role:     message.Role,
		SentAt:   message.CreatedAt,
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}
