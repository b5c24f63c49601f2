package handlers

import (
	"net/http"

	"github.com/lehigh-university-libraries/studio/internal/persistence"
)

type projectSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Timestamp int64  `json:"timestamp"`
}

func summaryOf(rec persistence.Record) projectSummary {
	return projectSummary{ID: rec.ID, Name: rec.Name, Timestamp: rec.Timestamp}
}

// HandleNewProject resets the live project. The request must carry
// {"confirm": true}; anything else leaves the project as it is.
func (h *Handler) HandleNewProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Confirm bool `json:"confirm"`
	}
	if err := readJSON(w, r, &req); err != nil {
		h.writeError(w, "new project", err)
		return
	}
	ctl := h.studio.Controller()
	reset := ctl.NewProject(req.Confirm)
	h.writeJSON(w, map[string]any{
		"reset": reset,
		"state": ctl.State(),
	})
}

func (h *Handler) HandleListProjects(w http.ResponseWriter, r *http.Request) {
	records := h.studio.Controller().ListProjects()
	out := make([]projectSummary, 0, len(records))
	for _, rec := range records {
		out = append(out, summaryOf(rec))
	}
	h.writeJSON(w, out)
}

func (h *Handler) HandleSaveProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := readJSON(w, r, &req); err != nil {
		h.writeError(w, "save project", err)
		return
	}
	rec, err := h.studio.Controller().SaveCurrentAsProject(req.Name)
	if err != nil {
		h.writeError(w, "save project", err)
		return
	}
	h.writeJSONCode(w, http.StatusCreated, summaryOf(rec))
}

func (h *Handler) HandleGetProject(w http.ResponseWriter, r *http.Request) {
	rec, err := h.studio.Controller().Project(r.PathValue("id"))
	if err != nil {
		h.writeError(w, "get project", err)
		return
	}
	h.writeJSON(w, rec)
}

func (h *Handler) HandleLoadProject(w http.ResponseWriter, r *http.Request) {
	ctl := h.studio.Controller()
	rec, err := ctl.LoadProject(r.PathValue("id"))
	if err != nil {
		h.writeError(w, "load project", err)
		return
	}
	h.writeJSON(w, map[string]any{
		"project": summaryOf(rec),
		"state":   ctl.State(),
	})
}

func (h *Handler) HandleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.studio.Controller().DeleteProject(r.PathValue("id")); err != nil {
		h.writeError(w, "delete project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
