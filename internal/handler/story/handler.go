package story

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/puppettale/backend/internal/model/story"
	storyService "github.com/puppettale/backend/internal/service/story"
	"github.com/puppettale/backend/internal/storage"
	"github.com/puppettale/backend/pkg/utils"
)

// Handler exposes story synthesis and the story library.
type Handler struct {
	stories *storyService.Service
}

// New creates the story handler.
func New(stories *storyService.Service) *Handler {
	return &Handler{stories: stories}
}

// RegisterRoutes mounts the routes under /children/{childID}/fairytales.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/children/{childID}/fairytales", func(sr chi.Router) {
		sr.Post("/create", h.handleCreate)
		sr.Get("/", h.handleList)
		sr.Get("/today", h.handleToday)
		sr.Get("/{storyID}", h.handleDetail)
		sr.Patch("/{storyID}", h.handleRename)
		sr.Delete("/{storyID}", h.handleDelete)
	})
}

// createResponse is the artifact plus an error message when creation failed.
type createResponse struct {
	story.Artifact
	Error string `json:"error,omitempty"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req story.CreateRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	pathChild := chi.URLParam(r, "childID")
	if req.ChildID != "" && req.ChildID != pathChild {
		utils.RespondError(w, http.StatusBadRequest, "childId does not match the route")
		return
	}
	req.ChildID = pathChild
	if err := req.Validate(); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	artifact, err := h.stories.Create(r.Context(), req)
	if err == nil {
		utils.RespondJSON(w, http.StatusCreated, artifact)
		return
	}

	status := http.StatusInternalServerError
	message := "server error"
	switch {
	case errors.Is(err, storyService.ErrInsufficientData):
		status, message = http.StatusUnprocessableEntity, storyService.ErrInsufficientData.Error()
	case errors.Is(err, storyService.ErrSafetyConcern):
		status, message = http.StatusUnprocessableEntity, storyService.ErrSafetyConcern.Error()
	case errors.Is(err, storyService.ErrNarrativeUnavailable):
		status, message = http.StatusBadGateway, storyService.ErrNarrativeUnavailable.Error()
	default:
		log.Printf("[story] create failed session=%s: %v", req.SessionID, err)
	}
	if artifact.SessionID == "" {
		artifact.SessionID = req.SessionID
	}
	if artifact.Pages == nil {
		artifact.Pages = []story.Page{}
	}
	utils.RespondJSON(w, status, createResponse{Artifact: artifact, Error: message})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.stories.List(r.Context(), chi.URLParam(r, "childID"))
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"fairyTales": records})
}

func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	count, err := h.stories.CountToday(r.Context(), chi.URLParam(r, "childID"))
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]int{"todayCount": count})
}

func (h *Handler) handleDetail(w http.ResponseWriter, r *http.Request) {
	rec, err := h.stories.Get(r.Context(), chi.URLParam(r, "childID"), chi.URLParam(r, "storyID"))
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleRename(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title string `json:"title"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.stories.Rename(r.Context(), chi.URLParam(r, "childID"), chi.URLParam(r, "storyID"), payload.Title)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.stories.Delete(r.Context(), chi.URLParam(r, "childID"), chi.URLParam(r, "storyID")); err != nil {
		h.respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, "story not found")
	case errors.Is(err, storyService.ErrInvalidTitle):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("[story] library request failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "server error")
	}
}
