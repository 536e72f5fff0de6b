package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/medguide/backend/internal/config"
	"github.com/zhouzirui/medguide/backend/internal/handler/chat"
	"github.com/zhouzirui/medguide/backend/internal/handler/stream"
	"github.com/zhouzirui/medguide/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/medguide/backend/internal/middleware"
	triageService "github.com/zhouzirui/medguide/backend/internal/service/triage"
)

// NewRouter wires HTTP routes to the triage service.
func NewRouter(serverCfg config.ServerConfig, triageSvc *triageService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.Logger(log.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(serverCfg.AllowedOrigins))
	r.Use(middleware.Heartbeat("/health"))

	chatHandler := chat.New(triageSvc)
	streamHandler := stream.New(triageSvc)
	wsHandler := ws.New(triageSvc, serverCfg.AllowedOrigins)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)
	})

	return r
}
