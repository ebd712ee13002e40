package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/puppettale/backend/internal/handler/chat"
	"github.com/puppettale/backend/internal/handler/child"
	"github.com/puppettale/backend/internal/handler/sound"
	"github.com/puppettale/backend/internal/handler/story"
	middlewarePkg "github.com/puppettale/backend/internal/middleware"
	soundModel "github.com/puppettale/backend/internal/model/sound"
	chatService "github.com/puppettale/backend/internal/service/chat"
	storyService "github.com/puppettale/backend/internal/service/story"
	"github.com/puppettale/backend/internal/storage"
)

// Services holds what the router dispatches to.
type Services struct {
	Chat     *chatService.Service
	Stories  *storyService.Service
	Children storage.ChildStore
	Sounds   soundModel.Catalog
	Now      func() time.Time
}

// NewRouter wires HTTP routes to core services.
func NewRouter(svc Services) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		chat.New(svc.Chat).RegisterRoutes(api)
		sound.New(svc.Sounds).RegisterRoutes(api)
		child.New(svc.Children, svc.Now).RegisterRoutes(api)
		story.New(svc.Stories).RegisterRoutes(api)
	})

	return r
}
