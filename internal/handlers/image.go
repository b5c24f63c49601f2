package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/lehigh-university-libraries/studio/internal/apperrors"
	"github.com/lehigh-university-libraries/studio/internal/models"
)

func (h *Handler) HandleLoadReference(w http.ResponseWriter, r *http.Request) {
	file, err := h.readUpload(w, r)
	if err != nil {
		h.writeError(w, "load reference", err)
		return
	}
	if err := h.studio.LoadReference(file); err != nil {
		h.writeError(w, "load reference", err)
		return
	}
	h.writeImageStudio(w)
}

func (h *Handler) HandleGenerateImage(w http.ResponseWriter, r *http.Request) {
	h.runImage(w, r, "generate image", func(ctx context.Context) error {
		_, err := h.studio.Generate(ctx)
		return err
	})
}

func (h *Handler) HandleEditImage(w http.ResponseWriter, r *http.Request) {
	h.runImage(w, r, "edit image", func(ctx context.Context) error {
		_, err := h.studio.Edit(ctx)
		return err
	})
}

func (h *Handler) HandleCombineImages(w http.ResponseWriter, r *http.Request) {
	h.runImage(w, r, "combine images", func(ctx context.Context) error {
		_, err := h.studio.Combine(ctx)
		return err
	})
}

func (h *Handler) HandleUndo(w http.ResponseWriter, r *http.Request) {
	h.studio.Undo()
	h.writeImageStudio(w)
}

func (h *Handler) HandleRedo(w http.ResponseWriter, r *http.Request) {
	h.studio.Redo()
	h.writeImageStudio(w)
}

func (h *Handler) HandleBuildImagePrompt(w http.ResponseWriter, r *http.Request) {
	prompt, err := h.studio.BuildImagePrompt()
	if err != nil {
		h.writeError(w, "build prompt", err)
		return
	}
	h.writeJSON(w, map[string]string{"prompt": prompt})
}

func (h *Handler) HandleAddCombineImage(w http.ResponseWriter, r *http.Request) {
	file, err := h.readUpload(w, r)
	if err != nil {
		h.writeError(w, "add combine image", err)
		return
	}
	if err := h.studio.AddCombineImage(file); err != nil {
		h.writeError(w, "add combine image", err)
		return
	}
	h.writeImageStudio(w)
}

func (h *Handler) HandleRemoveCombineImage(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		h.writeError(w, "remove combine image", apperrors.Validation("index", "not a number: %q", r.PathValue("index")))
		return
	}
	if err := h.studio.RemoveCombineImage(index); err != nil {
		h.writeError(w, "remove combine image", err)
		return
	}
	h.writeImageStudio(w)
}

func (h *Handler) HandleAddCustomClothing(w http.ResponseWriter, r *http.Request) {
	var req models.CustomClothing
	if err := readJSON(w, r, &req); err != nil {
		h.writeError(w, "add custom clothing", err)
		return
	}
	item, err := h.studio.AddCustomClothing(req.Name, req.Prompt)
	if err != nil {
		h.writeError(w, "add custom clothing", err)
		return
	}
	h.writeJSONCode(w, http.StatusCreated, item)
}

func (h *Handler) HandleDeleteCustomClothing(w http.ResponseWriter, r *http.Request) {
	if err := h.studio.DeleteCustomClothing(r.PathValue("id")); err != nil {
		h.writeError(w, "delete custom clothing", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleAddCustomLocation(w http.ResponseWriter, r *http.Request) {
	var req models.CustomLocation
	if err := readJSON(w, r, &req); err != nil {
		h.writeError(w, "add custom location", err)
		return
	}
	item, err := h.studio.AddCustomLocation(req.Category, req.Detail, req.Prompt)
	if err != nil {
		h.writeError(w, "add custom location", err)
		return
	}
	h.writeJSONCode(w, http.StatusCreated, item)
}

func (h *Handler) HandleDeleteCustomLocation(w http.ResponseWriter, r *http.Request) {
	if err := h.studio.DeleteCustomLocation(r.PathValue("id")); err != nil {
		h.writeError(w, "delete custom location", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePromptOptions lists the built-in clothing and location choices.
func (h *Handler) HandlePromptOptions(w http.ResponseWriter, r *http.Request) {
	p := h.studio.Prompts()
	h.writeJSON(w, map[string]any{
		"clothing":  p.ClothingOptions(),
		"locations": p.LocationOptions(),
	})
}

func (h *Handler) runImage(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context) error) {
	if err := fn(r.Context()); err != nil {
		h.writeError(w, op, err)
		return
	}
	h.writeImageStudio(w)
}

func (h *Handler) writeImageStudio(w http.ResponseWriter) {
	h.writeJSON(w, h.studio.Controller().State().ImageStudio)
}
