package studio

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/studio/internal/apperrors"
	"github.com/lehigh-university-libraries/studio/internal/media"
	"github.com/lehigh-university-libraries/studio/internal/models"
	"github.com/lehigh-university-libraries/studio/internal/project"
)

// SetVideoMode switches the video studio mode, clearing both modes' inputs
// and results and releasing the current video.
func (s *Service) SetVideoMode(mode models.VideoMode) error {
	return s.ctl.ResetVideoMode(mode)
}

// AttachVideo sets the video to analyze.
func (s *Service) AttachVideo(file models.StoredFile) error {
	if err := media.RequireKind(file, "video"); err != nil {
		return err
	}
	return s.ctl.Do(func(t *project.Tree) error {
		return t.UpdateVideoStudio(project.VideoStudioPatch{VideoFile: project.Value(file)})
	})
}

// AttachImage sets the image to animate.
func (s *Service) AttachImage(file models.StoredFile) error {
	if err := media.RequireKind(file, "image"); err != nil {
		return err
	}
	return s.ctl.Do(func(t *project.Tree) error {
		return t.UpdateVideoStudio(project.VideoStudioPatch{ImageFile: project.Value(file)})
	})
}

// Analyze asks the model about the uploaded video. frames are base64 JPEG
// stills sampled from it.
func (s *Service) Analyze(ctx context.Context, frames []string) (string, error) {
	state, epoch := s.ctl.Snapshot()
	v := state.VideoStudio
	if v.VideoFile == nil {
		return "", apperrors.Validation("videoFile", "please upload a video")
	}
	prompt := strings.TrimSpace(v.AnalysisPrompt)
	if prompt == "" {
		return "", apperrors.Validation("analysisPrompt", "please enter a question about the video")
	}
	if len(frames) == 0 {
		return "", apperrors.Validation("frames", "no frames were sampled from the video")
	}

	result, err := s.gen.AnalyzeVideo(ctx, prompt, frames)
	if err != nil {
		return "", err
	}
	err = s.ctl.Mutate(epoch, func(t *project.Tree) error {
		t.VideoStudio().AnalysisResult = result
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

// GenerateVideo animates the uploaded image. It blocks until the operation
// finishes or ctx is cancelled, then stores the video behind a transient
// handle and returns it.
func (s *Service) GenerateVideo(ctx context.Context) (string, error) {
	state, epoch := s.ctl.Snapshot()
	v := state.VideoStudio
	if v.ImageFile == nil {
		return "", apperrors.Validation("imageFile", "please upload an image")
	}
	prompt := strings.TrimSpace(v.GenerationPrompt)
	if prompt == "" {
		return "", apperrors.Validation("generationPrompt", "please enter a prompt")
	}
	payload, err := media.Base64Payload(v.ImageFile.DataURL)
	if err != nil {
		return "", err
	}

	s.ctl.ClearGeneratedVideo()

	op, err := s.gen.GenerateVideo(ctx, prompt, payload, v.ImageFile.Type, v.AspectRatio)
	if err != nil {
		return "", err
	}
	slog.Info("Video generation started", "operation", op.Name)

	for !op.Done {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("failed to wait for video operation %s: %w", op.Name, ctx.Err())
		case <-time.After(s.pollInterval):
		}
		op, err = s.gen.PollVideoOperation(ctx, op)
		if err != nil {
			return "", err
		}
		slog.Debug("Polled video operation", "operation", op.Name, "done", op.Done)
	}
	if len(op.VideoURIs) == 0 {
		return "", apperrors.Remote("generate video", errNoResult)
	}

	data, mimeType, err := s.gen.DownloadVideo(ctx, op.VideoURIs[0])
	if err != nil {
		return "", err
	}
	handle := s.blobs.Acquire(data, mimeType)
	if err := s.ctl.SetGeneratedVideo(epoch, handle); err != nil {
		return "", err
	}
	slog.Info("Video generation finished", "operation", op.Name, "bytes", len(data))
	return handle, nil
}

// BuildVideoPrompt assembles a prompt from the prompt builder fields and
// stores it as the generation prompt.
func (s *Service) BuildVideoPrompt() (string, error) {
	var prompt string
	err := s.ctl.Do(func(t *project.Tree) error {
		v := t.VideoStudio()
		prompt = s.prompts.Video(v.Persona)
		v.GenerationPrompt = prompt
		return nil
	})
	return prompt, err
}

// OpenVideo returns the bytes of the current generated video.
func (s *Service) OpenVideo() ([]byte, string, error) {
	handle := s.ctl.State().VideoStudio.GeneratedVideoURL
	if handle == "" {
		return nil, "", apperrors.NotFound("video", "current")
	}
	return s.blobs.Open(handle)
}
