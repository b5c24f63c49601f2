// Package studio implements the assistant, image and video workflows on top
// of the session controller and the generation service.
package studio

import (
	"context"
	"errors"
	"time"

	"github.com/lehigh-university-libraries/studio/internal/gemini"
	"github.com/lehigh-university-libraries/studio/internal/ids"
	"github.com/lehigh-university-libraries/studio/internal/prompts"
	"github.com/lehigh-university-libraries/studio/internal/session"
)

var errNoResult = errors.New("the service returned no result")

// Generator is the generation service. *gemini.Client implements it.
type Generator interface {
	GenerateText(ctx context.Context, req gemini.TextRequest) (gemini.TextResult, error)
	GenerateImage(ctx context.Context, prompt, aspectRatio string, count int) ([]string, error)
	EditImage(ctx context.Context, prompt, imageBase64, mimeType string) (string, error)
	CombineImages(ctx context.Context, prompt string, images []gemini.InlineImage) (string, error)
	AnalyzeVideo(ctx context.Context, prompt string, frames []string) (string, error)
	GenerateVideo(ctx context.Context, prompt, imageBase64, mimeType, aspectRatio string) (gemini.VideoOperation, error)
	PollVideoOperation(ctx context.Context, op gemini.VideoOperation) (gemini.VideoOperation, error)
	DownloadVideo(ctx context.Context, uri string) ([]byte, string, error)
}

var _ Generator = (*gemini.Client)(nil)

// Blobs holds generated videos for the lifetime of the process.
type Blobs interface {
	Acquire(data []byte, mimeType string) string
	Open(handle string) ([]byte, string, error)
}

type Service struct {
	ctl          *session.Controller
	gen          Generator
	prompts      *prompts.Builder
	ids          *ids.Generator
	blobs        Blobs
	pollInterval time.Duration
}

type Option func(*Service)

// WithPollInterval sets how long to wait between video operation polls.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		s.pollInterval = d
	}
}

func New(ctl *session.Controller, gen Generator, builder *prompts.Builder, idGen *ids.Generator, blobs Blobs, opts ...Option) *Service {
	s := &Service{
		ctl:          ctl,
		gen:          gen,
		prompts:      builder,
		ids:          idGen,
		blobs:        blobs,
		pollInterval: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Controller returns the session controller the service works on.
func (s *Service) Controller() *session.Controller {
	return s.ctl
}

// Prompts returns the prompt builder.
func (s *Service) Prompts() *prompts.Builder {
	return s.prompts
}
