// Package gemini is the client for the Gemini generation service.
package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/lehigh-university-libraries/studio/internal/apperrors"
	"github.com/lehigh-university-libraries/studio/internal/media"
	"github.com/lehigh-university-libraries/studio/internal/models"
)

const thinkingBudget = 32768

// Config selects the endpoint, credentials and models.
type Config struct {
	APIKey        string
	BaseURL       string
	Timeout       time.Duration
	TextModel     string
	ThinkingModel string
	ImageModel    string
	ImagenModel   string
	VideoModel    string
}

// DefaultConfig returns the models the studio was built around.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:        apiKey,
		BaseURL:       "https://generativelanguage.googleapis.com",
		Timeout:       5 * time.Minute,
		TextModel:     "gemini-2.5-flash",
		ThinkingModel: "gemini-2.5-pro",
		ImageModel:    "gemini-2.5-flash-image",
		ImagenModel:   "imagen-4.0-generate-001",
		VideoModel:    "veo-3.1-fast-generate-preview",
	}
}

// InlineImage is a base64 image sent along with a prompt.
type InlineImage struct {
	Base64   string
	MIMEType string
}

type TextRequest struct {
	Prompt   string
	Image    *InlineImage
	Thinking bool
	UseMaps  bool
	Location *models.Location
}

type TextResult struct {
	Text            string
	GroundingChunks []models.GroundingChunk
}

// Client talks to Gemini through the Go SDK for plain content generation
// and through the REST API for the endpoints the SDK does not cover.
type Client struct {
	cfg   Config
	genai *genai.Client
	rest  *resty.Client
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}

	return &Client{
		cfg:   cfg,
		genai: client,
		rest:  newRESTClient(cfg),
	}, nil
}

func newRESTClient(cfg Config) *resty.Client {
	return resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("x-goog-api-key", cfg.APIKey).
		SetHeader("Content-Type", "application/json")
}

func (c *Client) Close() error {
	if c.genai == nil {
		return nil
	}
	return c.genai.Close()
}

// GenerateText answers a chat prompt. An attached image turns the request
// into a photo analysis; Maps grounding applies only without an image.
func (c *Client) GenerateText(ctx context.Context, req TextRequest) (TextResult, error) {
	modelName := c.cfg.TextModel
	if req.Thinking {
		modelName = c.cfg.ThinkingModel
	}
	useMaps := req.UseMaps && req.Location != nil && req.Image == nil

	slog.Debug("Generating text", "model", modelName, "image", req.Image != nil, "maps", useMaps, "thinking", req.Thinking)

	// thinking budgets and the Maps tool are only exposed by the REST API
	if req.Thinking || useMaps {
		result, err := c.restGenerateText(ctx, modelName, req, useMaps)
		return result, apperrors.Remote("generate text", err)
	}

	model := c.genai.GenerativeModel(modelName)
	parts := []genai.Part{genai.Text(req.Prompt)}
	if req.Image != nil {
		blob, err := decodeBlob(*req.Image)
		if err != nil {
			return TextResult{}, err
		}
		prompt := req.Prompt
		if prompt == "" {
			prompt = defaultImageAnalysisPrompt
		}
		parts = []genai.Part{blob, genai.Text(prompt)}
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(photoAnalystInstruction)}}
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return TextResult{}, apperrors.Remote("generate text", fmt.Errorf("failed to generate content: %w", err))
	}
	text, err := responseText(resp)
	if err != nil {
		return TextResult{}, apperrors.Remote("generate text", err)
	}
	return TextResult{Text: text}, nil
}

// AnalyzeVideo sends the prompt with base64 JPEG frames sampled from a video.
func (c *Client) AnalyzeVideo(ctx context.Context, prompt string, frames []string) (string, error) {
	parts := []genai.Part{genai.Text(prompt)}
	for i, f := range frames {
		data, err := base64.StdEncoding.DecodeString(f)
		if err != nil {
			return "", apperrors.Validation(fmt.Sprintf("frames[%d]", i), "invalid base64: %v", err)
		}
		parts = append(parts, genai.Blob{MIMEType: "image/jpeg", Data: data})
	}

	model := c.genai.GenerativeModel(c.cfg.ThinkingModel)
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", apperrors.Remote("analyze video", fmt.Errorf("failed to generate content: %w", err))
	}
	text, err := responseText(resp)
	return text, apperrors.Remote("analyze video", err)
}

// EditImage applies prompt to one image and returns the result as a data URL.
func (c *Client) EditImage(ctx context.Context, prompt, imageBase64, mimeType string) (string, error) {
	blob, err := decodeBlob(InlineImage{Base64: imageBase64, MIMEType: mimeType})
	if err != nil {
		return "", err
	}
	url, err := c.generateImageContent(ctx, blob, genai.Text(prompt))
	return url, apperrors.Remote("edit image", err)
}

// CombineImages merges the images as directed by prompt.
func (c *Client) CombineImages(ctx context.Context, prompt string, images []InlineImage) (string, error) {
	parts := []genai.Part{genai.Text(prompt)}
	for _, img := range images {
		blob, err := decodeBlob(img)
		if err != nil {
			return "", err
		}
		parts = append(parts, blob)
	}
	url, err := c.generateImageContent(ctx, parts...)
	return url, apperrors.Remote("combine images", err)
}

func (c *Client) generateImageContent(ctx context.Context, parts ...genai.Part) (string, error) {
	model := c.genai.GenerativeModel(c.cfg.ImageModel)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(generationInstruction)}}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if blob, ok := part.(genai.Blob); ok {
			mimeType := blob.MIMEType
			if mimeType == "" {
				mimeType = "image/png"
			}
			return media.EncodeDataURL(mimeType, blob.Data), nil
		}
	}
	return "", errNoImage
}

var errNoImage = errors.New("no image was generated by the model")

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("empty content returned from Gemini")
	}
	var text string
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text += string(txt)
		}
	}
	return text, nil
}

func decodeBlob(img InlineImage) (genai.Blob, error) {
	data, err := base64.StdEncoding.DecodeString(img.Base64)
	if err != nil {
		return genai.Blob{}, apperrors.Validation("image", "invalid base64: %v", err)
	}
	return genai.Blob{MIMEType: img.MIMEType, Data: data}, nil
}
