package handlers

import (
	"net/http"

	"github.com/lehigh-university-libraries/studio/internal/models"
	"github.com/lehigh-university-libraries/studio/internal/project"
)

func (h *Handler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.studio.Controller().State())
}

// HandlePatchState merges a partial section update into the live project.
func (h *Handler) HandlePatchState(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(w, r)
	if err != nil {
		h.writeError(w, "update state", err)
		return
	}
	ctl := h.studio.Controller()
	if err := ctl.Update(project.Section(r.PathValue("section")), raw); err != nil {
		h.writeError(w, "update state", err)
		return
	}
	h.writeJSON(w, ctl.State())
}

func (h *Handler) HandleSetTab(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tab models.Tab `json:"tab"`
	}
	if err := readJSON(w, r, &req); err != nil {
		h.writeError(w, "set tab", err)
		return
	}
	ctl := h.studio.Controller()
	if err := ctl.SetActiveTab(req.Tab); err != nil {
		h.writeError(w, "set tab", err)
		return
	}
	h.writeJSON(w, ctl.State())
}
