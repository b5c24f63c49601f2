package studio

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/studio/internal/apperrors"
	"github.com/lehigh-university-libraries/studio/internal/gemini"
	"github.com/lehigh-university-libraries/studio/internal/ids"
	"github.com/lehigh-university-libraries/studio/internal/models"
	"github.com/lehigh-university-libraries/studio/internal/persistence"
	"github.com/lehigh-university-libraries/studio/internal/project"
	"github.com/lehigh-university-libraries/studio/internal/prompts"
	"github.com/lehigh-university-libraries/studio/internal/resource"
	"github.com/lehigh-university-libraries/studio/internal/session"
	"github.com/lehigh-university-libraries/studio/internal/storage"
)

const (
	pngURL  = "data:image/png;base64,iVBORw0KGgo="
	jpegURL = "data:image/jpeg;base64,/9j/4AAQ"
)

// fakeGenerator records calls and answers from its function fields.
type fakeGenerator struct {
	text    func(gemini.TextRequest) (gemini.TextResult, error)
	images  func(prompt, aspect string) ([]string, error)
	edit    func(prompt, b64, mime string) (string, error)
	combine func(prompt string, imgs []gemini.InlineImage) (string, error)
	analyze func(prompt string, frames []string) (string, error)
	poll    func(op gemini.VideoOperation) (gemini.VideoOperation, error)
	polls   int
	calls   []string
}

func (f *fakeGenerator) GenerateText(_ context.Context, req gemini.TextRequest) (gemini.TextResult, error) {
	f.calls = append(f.calls, "text")
	return f.text(req)
}

func (f *fakeGenerator) GenerateImage(_ context.Context, prompt, aspect string, _ int) ([]string, error) {
	f.calls = append(f.calls, "generate")
	return f.images(prompt, aspect)
}

func (f *fakeGenerator) EditImage(_ context.Context, prompt, b64, mime string) (string, error) {
	f.calls = append(f.calls, "edit")
	return f.edit(prompt, b64, mime)
}

func (f *fakeGenerator) CombineImages(_ context.Context, prompt string, imgs []gemini.InlineImage) (string, error) {
	f.calls = append(f.calls, "combine")
	return f.combine(prompt, imgs)
}

func (f *fakeGenerator) AnalyzeVideo(_ context.Context, prompt string, frames []string) (string, error) {
	f.calls = append(f.calls, "analyze")
	return f.analyze(prompt, frames)
}

func (f *fakeGenerator) GenerateVideo(_ context.Context, _, _, _, _ string) (gemini.VideoOperation, error) {
	f.calls = append(f.calls, "video")
	return gemini.VideoOperation{Name: "operations/1"}, nil
}

func (f *fakeGenerator) PollVideoOperation(_ context.Context, op gemini.VideoOperation) (gemini.VideoOperation, error) {
	f.polls++
	if f.poll != nil {
		return f.poll(op)
	}
	if f.polls < 2 {
		return op, nil
	}
	op.Done = true
	op.VideoURIs = []string{"https://example.com/v.mp4"}
	return op, nil
}

func (f *fakeGenerator) DownloadVideo(_ context.Context, _ string) ([]byte, string, error) {
	f.calls = append(f.calls, "download")
	return []byte("mp4-bytes"), "video/mp4", nil
}

type fixture struct {
	svc *Service
	ctl *session.Controller
	gen *fakeGenerator
	reg *resource.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gen := ids.NewGenerator(nil)
	projects, err := persistence.Open(storage.NewMemory(0), gen)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	builder, err := prompts.New()
	if err != nil {
		t.Fatalf("prompts.New failed: %v", err)
	}
	reg := resource.NewRegistry()
	ctl := session.New(projects, reg, session.WithHistoryLimit(10))
	fake := &fakeGenerator{}
	return &fixture{
		svc: New(ctl, fake, builder, gen, reg, WithPollInterval(time.Millisecond)),
		ctl: ctl,
		gen: fake,
		reg: reg,
	}
}

func (f *fixture) update(t *testing.T, section project.Section, raw string) {
	t.Helper()
	if err := f.ctl.Update(section, []byte(raw)); err != nil {
		t.Fatalf("Update %s failed: %v", section, err)
	}
}

func TestSendMessage(t *testing.T) {
	f := newFixture(t)
	f.gen.text = func(req gemini.TextRequest) (gemini.TextResult, error) {
		if !req.UseMaps || req.Location == nil {
			t.Errorf("Expected maps grounding with a location, got %+v", req)
		}
		return gemini.TextResult{
			Text:            "Try the harbour cafe.",
			GroundingChunks: []models.GroundingChunk{{Maps: &models.MapsSource{Title: "Harbour Cafe"}}},
		}, nil
	}

	reply, err := f.svc.SendMessage(context.Background(), MessageRequest{
		Text:     "  coffee nearby?  ",
		UseMaps:  true,
		Location: &models.Location{Latitude: 40.6, Longitude: -75.4},
	})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if reply.Role != models.RoleModel || len(reply.GroundingChunks) != 1 {
		t.Errorf("Unexpected reply %+v", reply)
	}

	msgs := f.ctl.State().Assistant.Messages
	if len(msgs) != 3 {
		t.Fatalf("Expected greeting, question and reply, got %d messages", len(msgs))
	}
	if msgs[1].Role != models.RoleUser || msgs[1].Text != "coffee nearby?" {
		t.Errorf("Unexpected user message %+v", msgs[1])
	}
}

func TestSendMessageWithImageDisablesMaps(t *testing.T) {
	f := newFixture(t)
	f.gen.text = func(req gemini.TextRequest) (gemini.TextResult, error) {
		if req.UseMaps {
			t.Error("Maps grounding should be off when an image is attached")
		}
		if req.Image == nil || req.Image.MIMEType != "image/png" || req.Image.Base64 != "iVBORw0KGgo=" {
			t.Errorf("Unexpected image %+v", req.Image)
		}
		return gemini.TextResult{Text: "A lighthouse."}, nil
	}

	_, err := f.svc.SendMessage(context.Background(), MessageRequest{
		Image:    &models.StoredFile{DataURL: pngURL, Name: "a.png", Type: "image/png"},
		UseMaps:  true,
		Location: &models.Location{},
	})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
}

func TestSendMessageFailureIsRecorded(t *testing.T) {
	f := newFixture(t)
	f.gen.text = func(gemini.TextRequest) (gemini.TextResult, error) {
		return gemini.TextResult{}, apperrors.Remote("generate text", errors.New("quota"))
	}

	_, err := f.svc.SendMessage(context.Background(), MessageRequest{Text: "hello"})
	if !apperrors.IsRemote(err) {
		t.Fatalf("Expected remote error, got %v", err)
	}
	msgs := f.ctl.State().Assistant.Messages
	last := msgs[len(msgs)-1]
	if last.Role != models.RoleModel || !strings.HasPrefix(last.Text, "Sorry, I ran into an error: ") {
		t.Errorf("Expected apology reply, got %+v", last)
	}
}

func TestSendMessageRequiresInput(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.SendMessage(context.Background(), MessageRequest{Text: "   "}); !apperrors.IsValidation(err) {
		t.Errorf("Expected validation error, got %v", err)
	}
	if len(f.gen.calls) != 0 {
		t.Error("No remote call should be made")
	}
}

func TestGenerateWithoutReference(t *testing.T) {
	f := newFixture(t)
	f.update(t, project.SectionImageStudio, `{"generatePrompt":"a lighthouse","aspectRatio":"16:9"}`)
	f.gen.images = func(prompt, aspect string) ([]string, error) {
		if prompt != "a lighthouse" || aspect != "16:9" {
			t.Errorf("Unexpected request %q %q", prompt, aspect)
		}
		return []string{jpegURL}, nil
	}

	a, err := f.svc.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if a.MIMEType != "image/jpeg" {
		t.Errorf("Expected jpeg artifact, got %q", a.MIMEType)
	}
	h := f.ctl.State().ImageStudio.History
	if h.Len() != 1 || h.Cursor() != 0 {
		t.Errorf("Expected one history entry, got len %d cursor %d", h.Len(), h.Cursor())
	}
}

func TestGenerateUsesReference(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.LoadReference(models.StoredFile{DataURL: pngURL, Name: "ref.png", Type: "image/png"}); err != nil {
		t.Fatalf("LoadReference failed: %v", err)
	}
	f.update(t, project.SectionImageStudio, `{"generatePrompt":"same person, at the beach"}`)
	f.gen.combine = func(_ string, imgs []gemini.InlineImage) (string, error) {
		if len(imgs) != 1 || imgs[0].MIMEType != "image/png" {
			t.Errorf("Expected the reference image, got %+v", imgs)
		}
		return jpegURL, nil
	}

	if _, err := f.svc.Generate(context.Background()); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got := strings.Join(f.gen.calls, ","); got != "combine" {
		t.Errorf("Expected a combine call, got %s", got)
	}
	if h := f.ctl.State().ImageStudio.History; h.Len() != 2 || h.Cursor() != 1 {
		t.Errorf("Expected reference plus result, got len %d cursor %d", h.Len(), h.Cursor())
	}
}

func TestGenerateRequiresPrompt(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Generate(context.Background()); !apperrors.IsValidation(err) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestEditUndoRedo(t *testing.T) {
	f := newFixture(t)
	f.update(t, project.SectionImageStudio, `{"editPrompt":"make it night"}`)
	if _, err := f.svc.Edit(context.Background()); !apperrors.IsValidation(err) {
		t.Fatalf("Expected validation error without an image, got %v", err)
	}

	if err := f.svc.LoadReference(models.StoredFile{DataURL: pngURL, Type: "image/png"}); err != nil {
		t.Fatalf("LoadReference failed: %v", err)
	}
	f.gen.edit = func(prompt, b64, mime string) (string, error) {
		if prompt != "make it night" || b64 != "iVBORw0KGgo=" || mime != "image/png" {
			t.Errorf("Unexpected edit request %q %q %q", prompt, b64, mime)
		}
		return jpegURL, nil
	}
	if _, err := f.svc.Edit(context.Background()); err != nil {
		t.Fatalf("Edit failed: %v", err)
	}

	if !f.svc.Undo() {
		t.Error("Expected undo to move back")
	}
	if cur, _ := f.ctl.State().ImageStudio.History.Current(); cur.DataURL != pngURL {
		t.Errorf("Expected the reference after undo, got %q", cur.DataURL)
	}
	if f.svc.Undo() {
		t.Error("Undo at the first entry should be a no-op")
	}
	if !f.svc.Redo() || f.svc.Redo() {
		t.Error("Expected exactly one redo step")
	}
}

func TestLoadReferenceRejectsVideo(t *testing.T) {
	f := newFixture(t)
	err := f.svc.LoadReference(models.StoredFile{DataURL: "data:video/mp4;base64,AA", Type: "video/mp4"})
	if !apperrors.IsValidation(err) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestCombine(t *testing.T) {
	f := newFixture(t)
	img := models.StoredFile{DataURL: pngURL, Name: "a.png", Type: "image/png"}
	f.update(t, project.SectionImageStudio, `{"combinePrompt":"put them together"}`)

	if err := f.svc.AddCombineImage(img); err != nil {
		t.Fatalf("AddCombineImage failed: %v", err)
	}
	if _, err := f.svc.Combine(context.Background()); !apperrors.IsValidation(err) {
		t.Fatalf("Expected validation error with one input, got %v", err)
	}

	for range 2 {
		if err := f.svc.AddCombineImage(img); err != nil {
			t.Fatalf("AddCombineImage failed: %v", err)
		}
	}
	if err := f.svc.AddCombineImage(img); !apperrors.IsValidation(err) {
		t.Errorf("Expected a fourth input to be rejected, got %v", err)
	}

	f.gen.combine = func(_ string, imgs []gemini.InlineImage) (string, error) {
		if len(imgs) != 3 {
			t.Errorf("Expected 3 inputs, got %d", len(imgs))
		}
		return jpegURL, nil
	}
	if _, err := f.svc.Combine(context.Background()); err != nil {
		t.Fatalf("Combine failed: %v", err)
	}
	state := f.ctl.State().ImageStudio
	if state.ResultImageURL != jpegURL {
		t.Errorf("Expected combine result to be stored, got %q", state.ResultImageURL)
	}
	if state.History.Len() != 0 {
		t.Error("Combine result should not enter the history")
	}

	if err := f.svc.RemoveCombineImage(5); !apperrors.IsNotFound(err) {
		t.Errorf("Expected not found, got %v", err)
	}
	if err := f.svc.RemoveCombineImage(0); err != nil {
		t.Fatalf("RemoveCombineImage failed: %v", err)
	}
	if n := len(f.ctl.State().ImageStudio.CombineImages); n != 2 {
		t.Errorf("Expected 2 inputs left, got %d", n)
	}
}

func TestBuildImagePrompt(t *testing.T) {
	f := newFixture(t)
	f.update(t, project.SectionImageStudio, `{"jobTitle":"teacher","selectedClothing":"Classic suit"}`)

	prompt, err := f.svc.BuildImagePrompt()
	if err != nil {
		t.Fatalf("BuildImagePrompt failed: %v", err)
	}
	if !strings.Contains(prompt, "teacher") {
		t.Errorf("Expected the job title in %q", prompt)
	}
	if got := f.ctl.State().ImageStudio.GeneratePrompt; got != prompt {
		t.Errorf("Expected prompt to be stored, got %q", got)
	}
}

func TestAnalyze(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Analyze(context.Background(), []string{"AA"}); !apperrors.IsValidation(err) {
		t.Fatalf("Expected validation error without a video, got %v", err)
	}

	f.update(t, project.SectionVideoStudio, `{"mode":"analyze","analysisPrompt":"what happens?","videoFile":{"dataUrl":"data:video/mp4;base64,AA","name":"c.mp4","type":"video/mp4"}}`)
	f.gen.analyze = func(prompt string, frames []string) (string, error) {
		if prompt != "what happens?" || len(frames) != 2 {
			t.Errorf("Unexpected request %q with %d frames", prompt, len(frames))
		}
		return "A dog runs.", nil
	}
	if _, err := f.svc.Analyze(context.Background(), []string{"AA", "BB"}); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if got := f.ctl.State().VideoStudio.AnalysisResult; got != "A dog runs." {
		t.Errorf("Expected analysis result to be stored, got %q", got)
	}

	// a failed follow-up keeps the last good answer
	f.gen.analyze = func(string, []string) (string, error) {
		return "", apperrors.Remote("analyze video", errors.New("overloaded"))
	}
	if _, err := f.svc.Analyze(context.Background(), []string{"AA"}); !apperrors.IsRemote(err) {
		t.Fatalf("Expected remote error, got %v", err)
	}
	if got := f.ctl.State().VideoStudio.AnalysisResult; got != "A dog runs." {
		t.Errorf("Expected previous result to be kept, got %q", got)
	}
}

func setVideoInputs(t *testing.T, f *fixture) {
	t.Helper()
	f.update(t, project.SectionVideoStudio, `{"generationPrompt":"she waves","imageFile":{"dataUrl":"`+pngURL+`","name":"a.png","type":"image/png"}}`)
}

func TestGenerateVideo(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.GenerateVideo(context.Background()); !apperrors.IsValidation(err) {
		t.Fatalf("Expected validation error without an image, got %v", err)
	}
	setVideoInputs(t, f)

	handle, err := f.svc.GenerateVideo(context.Background())
	if err != nil {
		t.Fatalf("GenerateVideo failed: %v", err)
	}
	if f.gen.polls != 2 {
		t.Errorf("Expected 2 polls, got %d", f.gen.polls)
	}
	if got := f.ctl.State().VideoStudio.GeneratedVideoURL; got != handle {
		t.Errorf("Expected handle %q in state, got %q", handle, got)
	}
	data, mimeType, err := f.svc.OpenVideo()
	if err != nil || string(data) != "mp4-bytes" || mimeType != "video/mp4" {
		t.Errorf("OpenVideo returned %q %q %v", data, mimeType, err)
	}

	// a second run replaces and releases the first video
	f.gen.polls = 0
	if _, err := f.svc.GenerateVideo(context.Background()); err != nil {
		t.Fatalf("GenerateVideo failed: %v", err)
	}
	if f.reg.Len() != 1 {
		t.Errorf("Expected one live video, got %d", f.reg.Len())
	}
}

func TestGenerateVideoSupersededByLoad(t *testing.T) {
	f := newFixture(t)
	setVideoInputs(t, f)
	f.gen.poll = func(op gemini.VideoOperation) (gemini.VideoOperation, error) {
		f.ctl.NewProject(true)
		op.Done = true
		op.VideoURIs = []string{"https://example.com/v.mp4"}
		return op, nil
	}

	_, err := f.svc.GenerateVideo(context.Background())
	if !errors.Is(err, session.ErrSuperseded) {
		t.Fatalf("Expected superseded error, got %v", err)
	}
	if f.reg.Len() != 0 {
		t.Errorf("Stale video was not released, %d live", f.reg.Len())
	}
	if f.ctl.State().VideoStudio.GeneratedVideoURL != "" {
		t.Error("Stale video leaked into the new project")
	}
}

func TestGenerateVideoCancelled(t *testing.T) {
	f := newFixture(t)
	setVideoInputs(t, f)
	ctx, cancel := context.WithCancel(context.Background())
	f.gen.poll = func(op gemini.VideoOperation) (gemini.VideoOperation, error) {
		cancel()
		return op, nil
	}

	if _, err := f.svc.GenerateVideo(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected cancellation, got %v", err)
	}
	if f.reg.Len() != 0 {
		t.Error("Nothing should be acquired after cancellation")
	}
}

func TestSetVideoModeClearsVideo(t *testing.T) {
	f := newFixture(t)
	setVideoInputs(t, f)
	if _, err := f.svc.GenerateVideo(context.Background()); err != nil {
		t.Fatalf("GenerateVideo failed: %v", err)
	}

	if err := f.svc.SetVideoMode(models.VideoModeAnalyze); err != nil {
		t.Fatalf("SetVideoMode failed: %v", err)
	}
	v := f.ctl.State().VideoStudio
	if v.Mode != models.VideoModeAnalyze || v.ImageFile != nil || v.GenerationPrompt != "" || v.GeneratedVideoURL != "" {
		t.Errorf("Mode switch left state behind: %+v", v)
	}
	if f.reg.Len() != 0 {
		t.Error("Video was not released on mode switch")
	}
	if _, _, err := f.svc.OpenVideo(); !apperrors.IsNotFound(err) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestCustomItems(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.AddCustomClothing("", "x"); !apperrors.IsValidation(err) {
		t.Errorf("Expected validation error, got %v", err)
	}
	cloth, err := f.svc.AddCustomClothing("Lab coat", "a white lab coat")
	if err != nil {
		t.Fatalf("AddCustomClothing failed: %v", err)
	}
	if !strings.HasPrefix(cloth.ID, ids.ClothingPrefix+"-") {
		t.Errorf("Unexpected clothing id %q", cloth.ID)
	}
	loc, err := f.svc.AddCustomLocation("Lab", "Bench", "a chemistry bench")
	if err != nil {
		t.Fatalf("AddCustomLocation failed: %v", err)
	}
	if !strings.HasPrefix(loc.ID, ids.LocationPrefix+"-") {
		t.Errorf("Unexpected location id %q", loc.ID)
	}

	if err := f.svc.DeleteCustomClothing(cloth.ID); err != nil {
		t.Errorf("DeleteCustomClothing failed: %v", err)
	}
	if err := f.svc.DeleteCustomClothing(cloth.ID); !apperrors.IsNotFound(err) {
		t.Errorf("Expected not found on second delete, got %v", err)
	}
	if err := f.svc.DeleteCustomLocation(loc.ID); err != nil {
		t.Errorf("DeleteCustomLocation failed: %v", err)
	}
	state := f.ctl.State().ImageStudio
	if len(state.CustomClothing) != 0 || len(state.CustomLocations) != 0 {
		t.Errorf("Expected custom items removed, got %+v %+v", state.CustomClothing, state.CustomLocations)
	}
}
