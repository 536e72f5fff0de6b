package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/medguide/backend/internal/model/triage"
	triageservice "github.com/zhouzirui/medguide/backend/internal/service/triage"
	"github.com/zhouzirui/medguide/backend/pkg/utils"
)

// SubmitPayload is the inbound body of a triage turn.
type SubmitPayload struct {
	Message        string   `json:"message"`
	ConversationID string   `json:"conversationId"`
	ChatID         string   `json:"chatId"`
	Lat            *float64 `json:"lat"`
	Lon            *float64 `json:"lon"`
}

// Request converts the payload; chatId is accepted as an alias of conversationId.
func (p SubmitPayload) Request() triageservice.SubmitRequest {
	id := p.ConversationID
	if id == "" {
		id = p.ChatID
	}
	return triageservice.SubmitRequest{
		Message:        p.Message,
		ConversationID: id,
		Location:       triage.NewLocation(p.Lat, p.Lon),
	}
}

// SubmitErrorStatus maps orchestrator errors to HTTP status and client message.
func SubmitErrorStatus(err error) (int, string) {
	if errors.Is(err, triageservice.ErrMessageRequired) {
		return http.StatusBadRequest, "message is required"
	}
	return http.StatusInternalServerError, "failed to analyze symptoms"
}

// Handler serves the triage REST endpoints.
type Handler struct {
	svc *triageservice.Service
}

// New creates a chat handler.
func New(svc *triageservice.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the chat and history routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleSubmit)
	r.Get("/history", h.handleList)
	r.Get("/history/{conversationID}", h.handleRetrieve)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload SubmitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Submit(r.Context(), payload.Request())
	if err != nil {
		status, message := SubmitErrorStatus(err)
		utils.RespondError(w, status, message)
		return
	}

	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.svc.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list conversations")
		utils.RespondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"histories": summaries})
}

func (h *Handler) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	query := r.URL.Query()
	location := triage.ParseLocation(query.Get("lat"), query.Get("lon"))

	result, err := h.svc.Retrieve(r.Context(), id, location)
	if errors.Is(err, triageservice.ErrConversationNotFound) {
		utils.RespondError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("conversation_id", id).Msg("failed to load conversation")
		utils.RespondError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}

	utils.RespondJSON(w, http.StatusOK, result)
}
