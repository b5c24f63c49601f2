package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/studio/internal/apperrors"
	"github.com/lehigh-university-libraries/studio/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig("test-key")
	cfg.BaseURL = srv.URL
	return &Client{cfg: cfg, rest: newRESTClient(cfg)}
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Errorf("Failed to decode request body: %v", err)
	}
	return body
}

func TestGenerateTextWithMapsGrounding(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-2.5-flash:generateContent" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Error("Missing API key header")
		}
		body := decodeBody(t, r)
		if _, ok := body["tools"]; !ok {
			t.Error("Expected the Maps tool")
		}
		if _, ok := body["generationConfig"]; ok {
			t.Error("Did not expect a thinking config")
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"Try "},{"text":"Cafe Lumen."}]},
			"groundingMetadata":{"groundingChunks":[{"maps":{"uri":"https://maps.example/1","title":"Cafe Lumen",
			"placeAnswerSources":{"reviewSnippets":[{"snippet":"great espresso","author":"sam"}]}}}]}}]}`)
	})

	got, err := c.GenerateText(context.Background(), TextRequest{
		Prompt:   "coffee nearby?",
		UseMaps:  true,
		Location: &models.Location{Latitude: 40.6, Longitude: -75.4},
	})
	if err != nil {
		t.Fatalf("GenerateText failed: %v", err)
	}
	if got.Text != "Try Cafe Lumen." {
		t.Errorf("Unexpected text %q", got.Text)
	}
	if len(got.GroundingChunks) != 1 || got.GroundingChunks[0].Maps == nil || got.GroundingChunks[0].Maps.Title != "Cafe Lumen" {
		t.Fatalf("Unexpected grounding chunks %+v", got.GroundingChunks)
	}
	if got.GroundingChunks[0].Maps.PlaceAnswerSources.ReviewSnippets[0].Author != "sam" {
		t.Error("Review snippets not decoded")
	}
}

func TestGenerateTextThinkingMode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-2.5-pro") {
			t.Errorf("Expected the thinking model, got %s", r.URL.Path)
		}
		body := decodeBody(t, r)
		gc, _ := body["generationConfig"].(map[string]any)
		tc, _ := gc["thinkingConfig"].(map[string]any)
		if tc["thinkingBudget"] != float64(thinkingBudget) {
			t.Errorf("Unexpected thinking config %v", body["generationConfig"])
		}
		// an image disables Maps grounding
		if _, ok := body["tools"]; ok {
			t.Error("Maps tool sent with an image")
		}
		if _, ok := body["systemInstruction"]; !ok {
			t.Error("Expected the photo analyst instruction")
		}
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"A portrait prompt"}]}}]}`)
	})

	got, err := c.GenerateText(context.Background(), TextRequest{
		Image:    &InlineImage{Base64: "AAAA", MIMEType: "image/png"},
		Thinking: true,
		UseMaps:  true,
		Location: &models.Location{},
	})
	if err != nil {
		t.Fatalf("GenerateText failed: %v", err)
	}
	if got.Text != "A portrait prompt" {
		t.Errorf("Unexpected text %q", got.Text)
	}
}

func TestGenerateImage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/imagen-4.0-generate-001:predict" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		body := decodeBody(t, r)
		params, _ := body["parameters"].(map[string]any)
		if params["aspectRatio"] != "16:9" || params["sampleCount"] != float64(1) {
			t.Errorf("Unexpected parameters %v", params)
		}
		io.WriteString(w, `{"predictions":[{"bytesBase64Encoded":"QUJD","mimeType":"image/jpeg"}]}`)
	})

	urls, err := c.GenerateImage(context.Background(), "a lighthouse", "16:9", 1)
	if err != nil {
		t.Fatalf("GenerateImage failed: %v", err)
	}
	if len(urls) != 1 || urls[0] != "data:image/jpeg;base64,QUJD" {
		t.Errorf("Unexpected urls %v", urls)
	}
}

func TestGenerateImageEmptyIsRemoteError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"predictions":[]}`)
	})

	_, err := c.GenerateImage(context.Background(), "blocked", "1:1", 1)
	if !apperrors.IsRemote(err) {
		t.Fatalf("Expected RemoteServiceError, got %v", err)
	}
	if !strings.Contains(err.Error(), "generate image") {
		t.Errorf("Expected operation in message, got %q", err.Error())
	}
}

func TestHTTPErrorsAreRemoteErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"API key not valid"}}`, http.StatusForbidden)
	})

	if _, err := c.GenerateText(context.Background(), TextRequest{Prompt: "hi", Thinking: true}); !apperrors.IsRemote(err) {
		t.Errorf("Expected RemoteServiceError, got %v", err)
	}
	if _, err := c.GenerateVideo(context.Background(), "walk", "AAAA", "image/png", "9:16"); !apperrors.IsRemote(err) {
		t.Errorf("Expected RemoteServiceError, got %v", err)
	}
	if _, _, err := c.DownloadVideo(context.Background(), "/files/x"); !apperrors.IsRemote(err) {
		t.Errorf("Expected RemoteServiceError, got %v", err)
	}
}

func TestVideoLifecycle(t *testing.T) {
	polls := 0
	var srvURL string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1beta/models/veo-3.1-fast-generate-preview:predictLongRunning":
			body := decodeBody(t, r)
			instances, _ := body["instances"].([]any)
			inst, _ := instances[0].(map[string]any)
			if prompt, _ := inst["prompt"].(string); !strings.HasSuffix(prompt, "User Prompt:\nwave hello") {
				t.Errorf("Expected generation rules before the prompt, got %q", prompt)
			}
			io.WriteString(w, `{"name":"models/veo/operations/op1","done":false}`)
		case r.Method == http.MethodGet && r.URL.Path == "/v1beta/models/veo/operations/op1":
			polls++
			if polls < 2 {
				io.WriteString(w, `{"name":"models/veo/operations/op1","done":false}`)
				return
			}
			io.WriteString(w, `{"name":"models/veo/operations/op1","done":true,"response":{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"`+srvURL+`/files/v1"}}]}}}`)
		case r.URL.Path == "/files/v1":
			if r.Header.Get("x-goog-api-key") != "test-key" {
				t.Error("Download must carry the API key")
			}
			w.Header().Set("Content-Type", "video/mp4")
			w.Write([]byte("mp4-bytes"))
		default:
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
		}
	})
	srvURL = c.cfg.BaseURL

	ctx := context.Background()
	op, err := c.GenerateVideo(ctx, "wave hello", "AAAA", "image/png", "9:16")
	if err != nil {
		t.Fatalf("GenerateVideo failed: %v", err)
	}
	for !op.Done {
		if op, err = c.PollVideoOperation(ctx, op); err != nil {
			t.Fatalf("PollVideoOperation failed: %v", err)
		}
	}
	if len(op.VideoURIs) != 1 {
		t.Fatalf("Expected one video, got %v", op.VideoURIs)
	}

	data, mimeType, err := c.DownloadVideo(ctx, op.VideoURIs[0])
	if err != nil {
		t.Fatalf("DownloadVideo failed: %v", err)
	}
	if string(data) != "mp4-bytes" || mimeType != "video/mp4" {
		t.Errorf("Unexpected download %q %q", data, mimeType)
	}
}

func TestFailedOperation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"name":"op","done":true,"error":{"code":3,"message":"prompt blocked"}}`)
	})

	_, err := c.PollVideoOperation(context.Background(), VideoOperation{Name: "op"})
	if !apperrors.IsRemote(err) || !strings.Contains(err.Error(), "prompt blocked") {
		t.Errorf("Expected remote error with reason, got %v", err)
	}
}
