package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/studio/internal/gemini"
)

// failingGenerator fails every call with err.
type failingGenerator struct {
	err error
}

func (f failingGenerator) GenerateText(context.Context, gemini.TextRequest) (gemini.TextResult, error) {
	return gemini.TextResult{Text: "ok"}, f.err
}

func (f failingGenerator) GenerateImage(context.Context, string, string, int) ([]string, error) {
	return nil, f.err
}

func (f failingGenerator) EditImage(context.Context, string, string, string) (string, error) {
	return "", f.err
}

func (f failingGenerator) CombineImages(context.Context, string, []gemini.InlineImage) (string, error) {
	return "", f.err
}

func (f failingGenerator) AnalyzeVideo(context.Context, string, []string) (string, error) {
	return "", f.err
}

func (f failingGenerator) GenerateVideo(context.Context, string, string, string, string) (gemini.VideoOperation, error) {
	return gemini.VideoOperation{}, f.err
}

func (f failingGenerator) PollVideoOperation(_ context.Context, op gemini.VideoOperation) (gemini.VideoOperation, error) {
	return op, f.err
}

func (f failingGenerator) DownloadVideo(context.Context, string) ([]byte, string, error) {
	return nil, "", f.err
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func expectLine(t *testing.T, body, want string) {
	t.Helper()
	if !strings.Contains(body, want+"\n") {
		t.Errorf("Metrics output missing %q", want)
	}
}

func TestInstrumentRecordsStatus(t *testing.T) {
	m := New()
	h := m.Instrument("POST /api/projects", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	for range 2 {
		h(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/projects", nil))
	}

	expectLine(t, scrape(t, m), `studio_http_requests_total{route="POST /api/projects",status="201"} 2`)
}

func TestInstrumentDefaultsToOK(t *testing.T) {
	m := New()
	h := m.Instrument("GET /api/state", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}"))
	})
	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/state", nil))

	expectLine(t, scrape(t, m), `studio_http_requests_total{route="GET /api/state",status="200"} 1`)
}

func TestGeneratorRecordsOutcome(t *testing.T) {
	m := New()
	ctx := context.Background()

	ok := m.Generator(failingGenerator{})
	if res, err := ok.GenerateText(ctx, gemini.TextRequest{Prompt: "hi"}); err != nil || res.Text != "ok" {
		t.Fatalf("Result not passed through: %+v %v", res, err)
	}

	boom := errors.New("boom")
	failing := m.Generator(failingGenerator{err: boom})
	for range 2 {
		if _, err := failing.GenerateImage(ctx, "p", "1:1", 1); !errors.Is(err, boom) {
			t.Fatalf("Error not passed through: %v", err)
		}
	}

	body := scrape(t, m)
	expectLine(t, body, `studio_remote_calls_total{op="generate_text",outcome="ok"} 1`)
	expectLine(t, body, `studio_remote_calls_total{op="generate_image",outcome="error"} 2`)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	live := 3
	m.WatchResources(func() int { return live })
	m.RemoteCalls.WithLabelValues("generate_text", "ok").Inc()

	body := scrape(t, m)
	expectLine(t, body, `studio_remote_calls_total{op="generate_text",outcome="ok"} 1`)
	expectLine(t, body, "studio_transient_resources 3")
	expectLine(t, body, "# TYPE go_goroutines gauge")
}
