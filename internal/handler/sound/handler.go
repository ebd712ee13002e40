package sound

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/puppettale/backend/internal/model/sound"
	"github.com/puppettale/backend/pkg/utils"
)

// Handler lists the ambience catalog.
type Handler struct {
	sounds sound.Catalog
}

// New creates the sound handler.
func New(sounds sound.Catalog) *Handler {
	return &Handler{sounds: sounds}
}

// RegisterRoutes mounts GET /sounds.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sounds", h.handleListSounds)
}

func (h *Handler) handleListSounds(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.sounds.List())
}
