package handlers

import (
	"net/http"

	"github.com/lehigh-university-libraries/studio/internal/studio"
)

func (h *Handler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req studio.MessageRequest
	if err := readJSON(w, r, &req); err != nil {
		h.writeError(w, "send message", err)
		return
	}
	reply, err := h.studio.SendMessage(r.Context(), req)
	if err != nil {
		h.writeError(w, "send message", err)
		return
	}
	h.writeJSON(w, reply)
}
