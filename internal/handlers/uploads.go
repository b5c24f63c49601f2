package handlers

import (
	"io"
	"net/http"

	"github.com/lehigh-university-libraries/studio/internal/apperrors"
	"github.com/lehigh-university-libraries/studio/internal/media"
	"github.com/lehigh-university-libraries/studio/internal/models"
)

// HandleUpload turns a multipart file into a StoredFile the browser can put
// into a message or patch.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	file, err := h.readUpload(w, r)
	if err != nil {
		h.writeError(w, "upload", err)
		return
	}
	h.writeJSON(w, file)
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (models.StoredFile, error) {
	r.Body = http.MaxBytesReader(w, r.Body, 2*media.MaxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("files")
		if err != nil {
			return models.StoredFile{}, apperrors.Validation("file", "failed to read file: %v", err)
		}
	}
	defer file.Close()

	// one byte past the limit is enough to reject it
	data, err := io.ReadAll(io.LimitReader(file, media.MaxUploadSize+1))
	if err != nil {
		return models.StoredFile{}, apperrors.Validation("file", "failed to read file contents: %v", err)
	}
	return media.FromUpload(header.Filename, data)
}
