package studio

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/studio/internal/apperrors"
	"github.com/lehigh-university-libraries/studio/internal/gemini"
	"github.com/lehigh-university-libraries/studio/internal/media"
	"github.com/lehigh-university-libraries/studio/internal/models"
)

type MessageRequest struct {
	Text     string            `json:"text"`
	Image    *models.StoredFile `json:"image,omitempty"`
	Thinking bool              `json:"thinking"`
	UseMaps  bool              `json:"useMaps"`
	Location *models.Location  `json:"location,omitempty"`
}

// SendMessage appends the user's message, asks the model and appends the
// reply. A failed call is recorded in the conversation as an apology and
// the error is returned.
func (s *Service) SendMessage(ctx context.Context, req MessageRequest) (models.ChatMessage, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" && req.Image == nil {
		return models.ChatMessage{}, apperrors.Validation("text", "please enter a message or attach an image")
	}

	textReq := gemini.TextRequest{
		Prompt:   text,
		Thinking: req.Thinking,
		UseMaps:  req.UseMaps && req.Image == nil,
		Location: req.Location,
	}
	if req.Image != nil {
		if err := media.RequireKind(*req.Image, "image"); err != nil {
			return models.ChatMessage{}, err
		}
		payload, err := media.Base64Payload(req.Image.DataURL)
		if err != nil {
			return models.ChatMessage{}, err
		}
		textReq.Image = &gemini.InlineImage{Base64: payload, MIMEType: req.Image.Type}
	}

	_, epoch := s.ctl.Snapshot()
	user := models.ChatMessage{Role: models.RoleUser, Text: text, Image: req.Image}
	if err := s.ctl.AppendMessages(epoch, user); err != nil {
		return models.ChatMessage{}, err
	}

	result, err := s.gen.GenerateText(ctx, textReq)
	if err != nil {
		slog.Error("Assistant reply failed", "error", err)
		reply := models.ChatMessage{Role: models.RoleModel, Text: "Sorry, I ran into an error: " + err.Error()}
		if appendErr := s.ctl.AppendMessages(epoch, reply); appendErr != nil {
			slog.Warn("Dropped assistant error reply", "error", appendErr)
		}
		return reply, err
	}

	reply := models.ChatMessage{Role: models.RoleModel, Text: result.Text, GroundingChunks: result.GroundingChunks}
	if err := s.ctl.AppendMessages(epoch, reply); err != nil {
		return models.ChatMessage{}, err
	}
	return reply, nil
}
