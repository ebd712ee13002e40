package child

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/puppettale/backend/internal/model/child"
	"github.com/puppettale/backend/internal/storage"
	"github.com/puppettale/backend/pkg/utils"
)

// Handler serves the child profile page and puppet settings.
type Handler struct {
	children storage.ChildStore
	now      func() time.Time
}

// New creates the child handler. A nil now uses time.Now.
func New(children storage.ChildStore, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{children: children, now: now}
}

// RegisterRoutes mounts the routes under /children/{childID}.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Put("/children/{childID}", h.handleRegister)
	r.Get("/children/{childID}/mypage", h.handleProfile)
	r.Patch("/children/{childID}/puppet/name", h.handleRenamePuppet)
	r.Patch("/children/{childID}/puppet/mode", h.handleChangeMode)
}

// registerRequest creates or replaces a child record. Dates are YYYY-MM-DD.
type registerRequest struct {
	Name              string `json:"name" validate:"required,max=64"`
	BirthDate         string `json:"birthDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	HospitalizedSince string `json:"hospitalizedSince,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ProfileImageURL   string `json:"profileImageUrl,omitempty" validate:"omitempty,url,max=1024"`
	PuppetName        string `json:"puppetName,omitempty" validate:"max=64"`
	PuppetMode        string `json:"puppetMode,omitempty"`
}

func (req registerRequest) toChild(id string) (child.Child, error) {
	c := child.Child{
		ID:              id,
		Name:            strings.TrimSpace(req.Name),
		ProfileImageURL: req.ProfileImageURL,
	}
	if req.BirthDate != "" {
		d, _ := time.Parse(time.DateOnly, req.BirthDate)
		c.BirthDate = &d
	}
	if req.HospitalizedSince != "" {
		d, _ := time.Parse(time.DateOnly, req.HospitalizedSince)
		c.HospitalizedSince = &d
	}
	if req.PuppetName != "" || req.PuppetMode != "" {
		mode := child.ModeAffectionate
		if req.PuppetMode != "" {
			parsed, err := child.ParseMode(req.PuppetMode)
			if err != nil {
				return child.Child{}, err
			}
			mode = parsed
		}
		c.Puppet = &child.Puppet{Name: strings.TrimSpace(req.PuppetName), Mode: mode}
	}
	return c, nil
}

// handleRegister upserts the child record the profile and puppet routes read.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := req.toChild(chi.URLParam(r, "childID"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := h.children.SaveChild(r.Context(), c)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	log.Printf("[child] registered child=%s", saved.ID)
	utils.RespondJSON(w, http.StatusOK, child.BuildProfile(saved, h.now()))
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	c, err := h.children.GetChild(r.Context(), chi.URLParam(r, "childID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, child.BuildProfile(c, h.now()))
}

func (h *Handler) handleRenamePuppet(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PuppetName string `json:"puppetName"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name := strings.TrimSpace(payload.PuppetName)
	if name == "" || len(name) > 64 {
		utils.RespondError(w, http.StatusBadRequest, "puppetName must be 1-64 characters")
		return
	}

	c, err := h.children.UpdatePuppetName(r.Context(), chi.URLParam(r, "childID"), name)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, child.BuildProfile(c, h.now()))
}

func (h *Handler) handleChangeMode(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Mode string `json:"puppetMode"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	mode, err := child.ParseMode(payload.Mode)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.children.UpdatePuppetMode(r.Context(), chi.URLParam(r, "childID"), mode)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, child.BuildProfile(c, h.now()))
}

func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		utils.RespondError(w, http.StatusNotFound, "child not found")
		return
	}
	log.Printf("[child] request failed: %v", err)
	utils.RespondError(w, http.StatusInternalServerError, "server error")
}
