package stream

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	chathandler "github.com/zhouzirui/medguide/backend/internal/handler/chat"
	"github.com/zhouzirui/medguide/backend/internal/model/triage"
	triageservice "github.com/zhouzirui/medguide/backend/internal/service/triage"
	"github.com/zhouzirui/medguide/backend/pkg/utils"
)

// SSE event names.
const (
	EventStage  = "stage"
	EventResult = "result"
	EventError  = "error"
)

// Handler runs a triage turn and streams its stages via Server-Sent Events.
type Handler struct {
	svc *triageservice.Service
}

// New creates a new stream handler
func New(svc *triageservice.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the SSE route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := triageservice.SubmitRequest{
		Message:        query.Get("message"),
		ConversationID: query.Get("conversationId"),
		Location:       triage.ParseLocation(query.Get("lat"), query.Get("lon")),
	}
	if req.ConversationID == "" {
		req.ConversationID = query.Get("chatId")
	}
	if req.Message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	result, err := h.svc.SubmitWithProgress(r.Context(), req, func(p triageservice.Progress) {
		if sendErr := utils.SendSSEEvent(w, flusher, EventStage, p); sendErr != nil {
			log.Debug().Err(sendErr).Str("conversation_id", p.ConversationID).Msg("sse client gone")
		}
	})
	if err != nil {
		_, message := chathandler.SubmitErrorStatus(err)
		_ = utils.SendSSEEvent(w, flusher, EventError, map[string]string{"error": message})
		return
	}

	_ = utils.SendSSEEvent(w, flusher, EventResult, result)
}
