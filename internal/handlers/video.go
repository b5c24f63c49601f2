package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/studio/internal/apperrors"
	"github.com/lehigh-university-libraries/studio/internal/models"
)

func (h *Handler) HandleSetVideoMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode models.VideoMode `json:"mode"`
	}
	if err := readJSON(w, r, &req); err != nil {
		h.writeError(w, "set video mode", err)
		return
	}
	if err := h.studio.SetVideoMode(req.Mode); err != nil {
		h.writeError(w, "set video mode", err)
		return
	}
	h.writeVideoStudio(w)
}

// HandleVideoUpload attaches a multipart file as the video to analyze
// (kind=video) or the image to animate (kind=image).
func (h *Handler) HandleVideoUpload(w http.ResponseWriter, r *http.Request) {
	file, err := h.readUpload(w, r)
	if err != nil {
		h.writeError(w, "upload", err)
		return
	}
	switch kind := r.FormValue("kind"); kind {
	case "video":
		err = h.studio.AttachVideo(file)
	case "image", "":
		err = h.studio.AttachImage(file)
	default:
		err = apperrors.Validation("kind", "must be 'video' or 'image', got %q", kind)
	}
	if err != nil {
		h.writeError(w, "upload", err)
		return
	}
	h.writeVideoStudio(w)
}

func (h *Handler) HandleAnalyzeVideo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Frames []string `json:"frames"`
	}
	if err := readJSON(w, r, &req); err != nil {
		h.writeError(w, "analyze video", err)
		return
	}
	if _, err := h.studio.Analyze(r.Context(), req.Frames); err != nil {
		h.writeError(w, "analyze video", err)
		return
	}
	h.writeVideoStudio(w)
}

// HandleGenerateVideo blocks until the video is ready, which can take
// minutes.
func (h *Handler) HandleGenerateVideo(w http.ResponseWriter, r *http.Request) {
	if _, err := h.studio.GenerateVideo(r.Context()); err != nil {
		h.writeError(w, "generate video", err)
		return
	}
	h.writeVideoStudio(w)
}

func (h *Handler) HandleBuildVideoPrompt(w http.ResponseWriter, r *http.Request) {
	prompt, err := h.studio.BuildVideoPrompt()
	if err != nil {
		h.writeError(w, "build prompt", err)
		return
	}
	h.writeJSON(w, map[string]string{"prompt": prompt})
}

// HandleCurrentVideo streams the generated video. Range requests are
// supported so browsers can seek.
func (h *Handler) HandleCurrentVideo(w http.ResponseWriter, r *http.Request) {
	data, mimeType, err := h.studio.OpenVideo()
	if err != nil {
		h.writeError(w, "open video", err)
		return
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, "video", time.Time{}, bytes.NewReader(data))
}

func (h *Handler) writeVideoStudio(w http.ResponseWriter) {
	h.writeJSON(w, h.studio.Controller().State().VideoStudio)
}
