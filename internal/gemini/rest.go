package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/lehigh-university-libraries/studio/internal/apperrors"
	"github.com/lehigh-university-libraries/studio/internal/models"
)

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type generateContentRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Tools             []map[string]any `json:"tools,omitempty"`
	ToolConfig        map[string]any   `json:"toolConfig,omitempty"`
	GenerationConfig  map[string]any   `json:"generationConfig,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content           content `json:"content"`
		GroundingMetadata struct {
			GroundingChunks []models.GroundingChunk `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
}

type predictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MIMEType           string `json:"mimeType"`
	} `json:"predictions"`
}

// VideoOperation is a long-running video generation job.
type VideoOperation struct {
	Name      string   `json:"name"`
	Done      bool     `json:"done"`
	VideoURIs []string `json:"videoUris,omitempty"`
}

type operationResponse struct {
	Name  string `json:"name"`
	Done  bool   `json:"done"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Response struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response"`
}

func (c *Client) restGenerateText(ctx context.Context, modelName string, req TextRequest, useMaps bool) (TextResult, error) {
	body := generateContentRequest{}
	if req.Image != nil {
		prompt := req.Prompt
		if prompt == "" {
			prompt = defaultImageAnalysisPrompt
		}
		body.Contents = []content{{Role: "user", Parts: []part{
			{InlineData: &inlineData{MIMEType: req.Image.MIMEType, Data: req.Image.Base64}},
			{Text: prompt},
		}}}
		body.SystemInstruction = &content{Parts: []part{{Text: photoAnalystInstruction}}}
	} else {
		body.Contents = []content{{Role: "user", Parts: []part{{Text: req.Prompt}}}}
	}
	if useMaps {
		body.Tools = []map[string]any{{"googleMaps": map[string]any{}}}
		body.ToolConfig = map[string]any{
			"retrievalConfig": map[string]any{
				"latLng": latLng{Latitude: req.Location.Latitude, Longitude: req.Location.Longitude},
			},
		}
	}
	if req.Thinking {
		body.GenerationConfig = map[string]any{
			"thinkingConfig": map[string]any{"thinkingBudget": thinkingBudget},
		}
	}

	var out generateContentResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		ForceContentType("application/json").
		Post("/v1beta/models/" + modelName + ":generateContent")
	if err := checkResponse(resp, err); err != nil {
		return TextResult{}, err
	}
	if len(out.Candidates) == 0 {
		return TextResult{}, fmt.Errorf("no candidates returned from Gemini")
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return TextResult{
		Text:            sb.String(),
		GroundingChunks: out.Candidates[0].GroundingMetadata.GroundingChunks,
	}, nil
}

// GenerateImage renders count images with Imagen and returns them as data URLs.
func (c *Client) GenerateImage(ctx context.Context, prompt, aspectRatio string, count int) ([]string, error) {
	body := map[string]any{
		"instances": []map[string]any{{"prompt": prompt}},
		"parameters": map[string]any{
			"sampleCount":    max(count, 1),
			"aspectRatio":    aspectRatio,
			"outputMimeType": "image/jpeg",
		},
	}

	var out predictResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		ForceContentType("application/json").
		Post("/v1beta/models/" + c.cfg.ImagenModel + ":predict")
	if err := checkResponse(resp, err); err != nil {
		return nil, apperrors.Remote("generate image", err)
	}

	urls := make([]string, 0, len(out.Predictions))
	for _, p := range out.Predictions {
		if p.BytesBase64Encoded == "" {
			continue
		}
		mimeType := p.MIMEType
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		urls = append(urls, "data:"+mimeType+";base64,"+p.BytesBase64Encoded)
	}
	if len(urls) == 0 {
		return nil, apperrors.Remote("generate image", errNoImage)
	}
	return urls, nil
}

// GenerateVideo starts a Veo job animating the given image.
func (c *Client) GenerateVideo(ctx context.Context, prompt, imageBase64, mimeType, aspectRatio string) (VideoOperation, error) {
	body := map[string]any{
		"instances": []map[string]any{{
			"prompt": videoPrompt(prompt),
			"image": map[string]string{
				"bytesBase64Encoded": imageBase64,
				"mimeType":           mimeType,
			},
		}},
		"parameters": map[string]any{
			"sampleCount": 1,
			"resolution":  "720p",
			"aspectRatio": aspectRatio,
		},
	}

	var out operationResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		ForceContentType("application/json").
		Post("/v1beta/models/" + c.cfg.VideoModel + ":predictLongRunning")
	if err := checkResponse(resp, err); err != nil {
		return VideoOperation{}, apperrors.Remote("generate video", err)
	}
	if out.Name == "" {
		return VideoOperation{}, apperrors.Remote("generate video", fmt.Errorf("no operation returned"))
	}

	slog.Info("Video generation started", "operation", out.Name)
	return toOperation(out)
}

// PollVideoOperation fetches the current state of op.
func (c *Client) PollVideoOperation(ctx context.Context, op VideoOperation) (VideoOperation, error) {
	var out operationResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&out).
		ForceContentType("application/json").
		Get("/v1beta/" + strings.TrimPrefix(op.Name, "/"))
	if err := checkResponse(resp, err); err != nil {
		return VideoOperation{}, apperrors.Remote("poll video operation", err)
	}
	return toOperation(out)
}

// DownloadVideo fetches a generated video and returns its bytes and MIME type.
func (c *Client) DownloadVideo(ctx context.Context, uri string) ([]byte, string, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		Get(uri)
	if err := checkResponse(resp, err); err != nil {
		return nil, "", apperrors.Remote("download video", err)
	}
	mimeType := resp.Header().Get("Content-Type")
	if mimeType == "" || strings.HasPrefix(mimeType, "application/octet-stream") {
		mimeType = "video/mp4"
	}
	return resp.Body(), mimeType, nil
}

func toOperation(out operationResponse) (VideoOperation, error) {
	if out.Error != nil {
		return VideoOperation{}, apperrors.Remote("generate video", fmt.Errorf("operation failed: %s", out.Error.Message))
	}
	op := VideoOperation{Name: out.Name, Done: out.Done}
	for _, s := range out.Response.GenerateVideoResponse.GeneratedSamples {
		if s.Video.URI != "" {
			op.VideoURIs = append(op.VideoURIs, s.Video.URI)
		}
	}
	return op, nil
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode(), resp.String())
	}
	return nil
}
