package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	conversationHandler "github.com/Julian1897/smart-data-qa/internal/handler/conversation"
	modelconfigHandler "github.com/Julian1897/smart-data-qa/internal/handler/modelconfig"
	queryHandler "github.com/Julian1897/smart-data-qa/internal/handler/query"
	sessionHandler "github.com/Julian1897/smart-data-qa/internal/handler/session"
	streamHandler "github.com/Julian1897/smart-data-qa/internal/handler/stream"
	uploadHandler "github.com/Julian1897/smart-data-qa/internal/handler/upload"
	middlewarePkg "github.com/Julian1897/smart-data-qa/internal/middleware"
	conversationService "github.com/Julian1897/smart-data-qa/internal/service/conversation"
	"github.com/Julian1897/smart-data-qa/internal/service/modelcfg"
	resolverService "github.com/Julian1897/smart-data-qa/internal/service/resolver"
	sessionService "github.com/Julian1897/smart-data-qa/internal/service/session"
	"github.com/Julian1897/smart-data-qa/pkg/utils"
)

// Deps bundles the core services the HTTP layer exposes.
type Deps struct {
	Registry      *sessionService.Registry
	Conversations *conversationService.Store
	Models        *modelcfg.Manager
	Resolver      *resolverService.Service
	UploadMax     int64
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "智能数据问答系统 API"})
	})

	r.Route("/api", func(api chi.Router) {
		uploadHandler.New(deps.Registry, deps.UploadMax).RegisterRoutes(api)
		sessionHandler.New(deps.Registry).RegisterRoutes(api)
		conversationHandler.New(deps.Registry, deps.Conversations).RegisterRoutes(api)
		queryHandler.New(deps.Resolver).RegisterRoutes(api)
		modelconfigHandler.New(deps.Models).RegisterRoutes(api)
		streamHandler.New(deps.Resolver).RegisterRoutes(api)
	})

	return r
}
