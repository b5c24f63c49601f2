package metrics

import (
	"context"
	"time"

	"github.com/lehigh-university-libraries/studio/internal/gemini"
	"github.com/lehigh-university-libraries/studio/internal/studio"
)

// Generator wraps a studio.Generator and records every call.
type Generator struct {
	next studio.Generator
	m    *Metrics
}

func (m *Metrics) Generator(next studio.Generator) *Generator {
	return &Generator{next: next, m: m}
}

func (g *Generator) GenerateText(ctx context.Context, req gemini.TextRequest) (gemini.TextResult, error) {
	start := time.Now()
	res, err := g.next.GenerateText(ctx, req)
	g.m.observeRemote("generate_text", start, err)
	return res, err
}

func (g *Generator) GenerateImage(ctx context.Context, prompt, aspectRatio string, count int) ([]string, error) {
	start := time.Now()
	res, err := g.next.GenerateImage(ctx, prompt, aspectRatio, count)
	g.m.observeRemote("generate_image", start, err)
	return res, err
}

func (g *Generator) EditImage(ctx context.Context, prompt, imageBase64, mimeType string) (string, error) {
	start := time.Now()
	res, err := g.next.EditImage(ctx, prompt, imageBase64, mimeType)
	g.m.observeRemote("edit_image", start, err)
	return res, err
}

func (g *Generator) CombineImages(ctx context.Context, prompt string, images []gemini.InlineImage) (string, error) {
	start := time.Now()
	res, err := g.next.CombineImages(ctx, prompt, images)
	g.m.observeRemote("combine_images", start, err)
	return res, err
}

func (g *Generator) AnalyzeVideo(ctx context.Context, prompt string, frames []string) (string, error) {
	start := time.Now()
	res, err := g.next.AnalyzeVideo(ctx, prompt, frames)
	g.m.observeRemote("analyze_video", start, err)
	return res, err
}

func (g *Generator) GenerateVideo(ctx context.Context, prompt, imageBase64, mimeType, aspectRatio string) (gemini.VideoOperation, error) {
	start := time.Now()
	op, err := g.next.GenerateVideo(ctx, prompt, imageBase64, mimeType, aspectRatio)
	g.m.observeRemote("generate_video", start, err)
	return op, err
}

func (g *Generator) PollVideoOperation(ctx context.Context, op gemini.VideoOperation) (gemini.VideoOperation, error) {
	start := time.Now()
	res, err := g.next.PollVideoOperation(ctx, op)
	g.m.observeRemote("poll_video", start, err)
	return res, err
}

func (g *Generator) DownloadVideo(ctx context.Context, uri string) ([]byte, string, error) {
	start := time.Now()
	data, mimeType, err := g.next.DownloadVideo(ctx, uri)
	g.m.observeRemote("download_video", start, err)
	return data, mimeType, err
}
