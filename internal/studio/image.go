package studio

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/studio/internal/apperrors"
	"github.com/lehigh-university-libraries/studio/internal/gemini"
	"github.com/lehigh-university-libraries/studio/internal/media"
	"github.com/lehigh-university-libraries/studio/internal/models"
	"github.com/lehigh-university-libraries/studio/internal/project"
)

// LoadReference starts a fresh image history holding only the uploaded file.
func (s *Service) LoadReference(file models.StoredFile) error {
	if err := media.RequireKind(file, "image"); err != nil {
		return err
	}
	_, epoch := s.ctl.Snapshot()
	return s.ctl.ReplaceImageHistory(epoch, media.ArtifactOf(file))
}

// Generate creates an image from the generate prompt. When a reference image
// was loaded it is sent along so the result keeps the same subject.
func (s *Service) Generate(ctx context.Context) (models.Artifact, error) {
	state, epoch := s.ctl.Snapshot()
	img := state.ImageStudio
	prompt := strings.TrimSpace(img.GeneratePrompt)
	if prompt == "" {
		return models.Artifact{}, apperrors.Validation("generatePrompt", "please enter a prompt")
	}

	var dataURL string
	if ref, ok := img.History.First(); ok {
		inline, err := inlineOf(ref)
		if err != nil {
			return models.Artifact{}, err
		}
		dataURL, err = s.gen.CombineImages(ctx, prompt, []gemini.InlineImage{inline})
		if err != nil {
			return models.Artifact{}, err
		}
	} else {
		urls, err := s.gen.GenerateImage(ctx, prompt, img.AspectRatio, 1)
		if err != nil {
			return models.Artifact{}, err
		}
		if len(urls) == 0 {
			return models.Artifact{}, apperrors.Remote("generate image", errNoResult)
		}
		dataURL = urls[0]
	}

	return s.appendResult(epoch, dataURL)
}

// Edit applies the edit prompt to the current image.
func (s *Service) Edit(ctx context.Context) (models.Artifact, error) {
	state, epoch := s.ctl.Snapshot()
	img := state.ImageStudio
	current, ok := img.History.Current()
	if !ok {
		return models.Artifact{}, apperrors.Validation("history", "there is no image to edit")
	}
	prompt := strings.TrimSpace(img.EditPrompt)
	if prompt == "" {
		return models.Artifact{}, apperrors.Validation("editPrompt", "please describe the edit")
	}
	inline, err := inlineOf(current)
	if err != nil {
		return models.Artifact{}, err
	}

	dataURL, err := s.gen.EditImage(ctx, prompt, inline.Base64, inline.MIMEType)
	if err != nil {
		return models.Artifact{}, err
	}
	return s.appendResult(epoch, dataURL)
}

// Combine merges the combine inputs into a single image stored as the
// combine result. The result does not enter the image history.
func (s *Service) Combine(ctx context.Context) (string, error) {
	state, epoch := s.ctl.Snapshot()
	img := state.ImageStudio
	if len(img.CombineImages) < 2 {
		return "", apperrors.Validation("combineImages", "please add at least 2 images")
	}
	prompt := strings.TrimSpace(img.CombinePrompt)
	if prompt == "" {
		return "", apperrors.Validation("combinePrompt", "please describe how to combine the images")
	}

	inputs := make([]gemini.InlineImage, 0, len(img.CombineImages))
	for _, f := range img.CombineImages {
		inline, err := inlineOf(media.ArtifactOf(f))
		if err != nil {
			return "", err
		}
		inputs = append(inputs, inline)
	}

	if err := s.ctl.SetCombineResult(epoch, ""); err != nil {
		return "", err
	}
	dataURL, err := s.gen.CombineImages(ctx, prompt, inputs)
	if err != nil {
		return "", err
	}
	if err := s.ctl.SetCombineResult(epoch, dataURL); err != nil {
		return "", err
	}
	slog.Info("Combined images", "inputs", len(inputs))
	return dataURL, nil
}

func (s *Service) AddCombineImage(file models.StoredFile) error {
	if err := media.RequireKind(file, "image"); err != nil {
		return err
	}
	return s.ctl.Do(func(t *project.Tree) error {
		img := t.ImageStudio()
		if len(img.CombineImages) >= models.MaxCombineImages {
			return apperrors.Validation("combineImages", "at most %d images can be combined", models.MaxCombineImages)
		}
		img.CombineImages = append(img.CombineImages, file)
		return nil
	})
}

func (s *Service) RemoveCombineImage(index int) error {
	return s.ctl.Do(func(t *project.Tree) error {
		img := t.ImageStudio()
		if index < 0 || index >= len(img.CombineImages) {
			return apperrors.NotFound("combine image", strconv.Itoa(index))
		}
		img.CombineImages = slices.Delete(img.CombineImages, index, index+1)
		return nil
	})
}

// Undo and Redo move through the image history and report whether the
// current image changed.
func (s *Service) Undo() bool {
	return s.ctl.UndoImage()
}

func (s *Service) Redo() bool {
	return s.ctl.RedoImage()
}

// BuildImagePrompt assembles a prompt from the prompt builder fields and
// stores it as the generate prompt.
func (s *Service) BuildImagePrompt() (string, error) {
	var prompt string
	err := s.ctl.Do(func(t *project.Tree) error {
		img := t.ImageStudio()
		prompt = s.prompts.Image(img.Persona, img.CustomClothing, img.CustomLocations)
		img.GeneratePrompt = prompt
		return nil
	})
	return prompt, err
}

func (s *Service) appendResult(epoch uint64, dataURL string) (models.Artifact, error) {
	a, err := media.ArtifactFromDataURL(dataURL)
	if err != nil {
		return models.Artifact{}, apperrors.Remote("read generated image", err)
	}
	if err := s.ctl.AppendImage(epoch, a); err != nil {
		return models.Artifact{}, err
	}
	return a, nil
}

func inlineOf(a models.Artifact) (gemini.InlineImage, error) {
	payload, err := media.Base64Payload(a.DataURL)
	if err != nil {
		return gemini.InlineImage{}, err
	}
	return gemini.InlineImage{Base64: payload, MIMEType: a.MIMEType}, nil
}
