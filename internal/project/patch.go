package project

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/lehigh-university-libraries/studio/internal/apperrors"
	"github.com/lehigh-university-libraries/studio/internal/media"
	"github.com/lehigh-university-libraries/studio/internal/models"
)

// Section names a part of the project state that can be patched
type Section string

const (
	SectionAssistant   Section = "assistant"
	SectionImageStudio Section = "imageStudio"
	SectionVideoStudio Section = "videoStudio"
)

// PersonaPatch carries the prompt builder fields. Nil fields are left alone.
type PersonaPatch struct {
	JobTitle               *string `json:"jobTitle"`
	Age                    *string `json:"age"`
	FacialFeatures         *string `json:"facialFeatures"`
	Address                *string `json:"address"`
	SelectedClothing       *string `json:"selectedClothing"`
	SelectedLocation       *string `json:"selectedLocation"`
	SelectedLocationDetail *string `json:"selectedLocationDetail"`
	CameraHorizontal       *int    `json:"cameraHorizontal"`
	CameraVertical         *int    `json:"cameraVertical"`
}

type AssistantPatch struct {
	Messages *[]models.ChatMessage `json:"messages"`
}

// ImageStudioPatch lists the image studio fields callers may set directly.
// History is changed only through the snapshot store operations, and custom
// clothing and locations only through their add and delete operations.
type ImageStudioPatch struct {
	Mode           *models.ImageMode    `json:"mode"`
	GeneratePrompt *string              `json:"generatePrompt"`
	CombinePrompt  *string              `json:"combinePrompt"`
	EditPrompt     *string              `json:"editPrompt"`
	AspectRatio    *string              `json:"aspectRatio"`
	CombineImages  *[]models.StoredFile `json:"combineImages"`
	ResultImageURL *string              `json:"resultImageUrl"`
	PersonaPatch
}

// VideoStudioPatch lists the video studio fields callers may set directly.
// The generated video handle is owned by the session controller.
type VideoStudioPatch struct {
	Mode             *models.VideoMode           `json:"mode"`
	AnalysisPrompt   *string                     `json:"analysisPrompt"`
	VideoFile        Nullable[models.StoredFile] `json:"videoFile"`
	AnalysisResult   *string                     `json:"analysisResult"`
	GenerationPrompt *string                     `json:"generationPrompt"`
	ImageFile        Nullable[models.StoredFile] `json:"imageFile"`
	AspectRatio      *string                     `json:"aspectRatio"`
	LocationCategory *string                     `json:"locationCategory"`
	PersonaPatch
}

// DecodePatch parses raw JSON into the typed patch for section.
// Unknown fields are rejected.
func DecodePatch(section Section, data []byte) (any, error) {
	switch section {
	case SectionAssistant:
		var p AssistantPatch
		return &p, decodeStrict(data, &p)
	case SectionImageStudio:
		var p ImageStudioPatch
		return &p, decodeStrict(data, &p)
	case SectionVideoStudio:
		var p VideoStudioPatch
		return &p, decodeStrict(data, &p)
	default:
		return nil, apperrors.Validation("section", "unknown section %q", section)
	}
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.Validation("patch", "%v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return apperrors.Validation("patch", "unexpected data after patch object")
	}
	return nil
}

func (p *PersonaPatch) validate() error {
	for name, v := range map[string]*int{"cameraHorizontal": p.CameraHorizontal, "cameraVertical": p.CameraVertical} {
		if v != nil && (*v < models.CameraMin || *v > models.CameraMax) {
			return apperrors.Validation(name, "must be between %d and %d, got %d", models.CameraMin, models.CameraMax, *v)
		}
	}
	return nil
}

func (p *PersonaPatch) apply(dst *models.Persona) {
	set(&dst.JobTitle, p.JobTitle)
	set(&dst.Age, p.Age)
	set(&dst.FacialFeatures, p.FacialFeatures)
	set(&dst.Address, p.Address)
	set(&dst.SelectedClothing, p.SelectedClothing)
	set(&dst.SelectedLocation, p.SelectedLocation)
	set(&dst.SelectedLocationDetail, p.SelectedLocationDetail)
	set(&dst.CameraHorizontal, p.CameraHorizontal)
	set(&dst.CameraVertical, p.CameraVertical)
}

func (p *AssistantPatch) validate() error {
	if p.Messages == nil {
		return nil
	}
	for i, m := range *p.Messages {
		if m.Role != models.RoleUser && m.Role != models.RoleModel {
			return apperrors.Validation(fmt.Sprintf("messages[%d].role", i), "unknown role %q", m.Role)
		}
	}
	return nil
}

func (p *AssistantPatch) apply(dst *models.AssistantState) {
	if p.Messages != nil {
		dst.Messages = slices.Clone(*p.Messages)
	}
}

func (p *ImageStudioPatch) validate() error {
	if p.Mode != nil && !p.Mode.Valid() {
		return apperrors.Validation("mode", "unknown image mode %q", *p.Mode)
	}
	if p.AspectRatio != nil && !slices.Contains(models.ImageAspectRatios, *p.AspectRatio) {
		return apperrors.Validation("aspectRatio", "unsupported aspect ratio %q", *p.AspectRatio)
	}
	if p.CombineImages != nil {
		if len(*p.CombineImages) > models.MaxCombineImages {
			return apperrors.Validation("combineImages", "at most %d images can be combined", models.MaxCombineImages)
		}
		for i, f := range *p.CombineImages {
			if err := checkCombineImage(f); err != nil {
				return apperrors.Validation(fmt.Sprintf("combineImages[%d]", i), "%v", err)
			}
		}
	}
	return p.PersonaPatch.validate()
}

func (p *ImageStudioPatch) apply(dst *models.ImageStudioState) {
	set(&dst.Mode, p.Mode)
	set(&dst.GeneratePrompt, p.GeneratePrompt)
	set(&dst.CombinePrompt, p.CombinePrompt)
	set(&dst.EditPrompt, p.EditPrompt)
	set(&dst.AspectRatio, p.AspectRatio)
	setSlice(&dst.CombineImages, p.CombineImages)
	set(&dst.ResultImageURL, p.ResultImageURL)
	p.PersonaPatch.apply(&dst.Persona)
}

func checkCombineImage(f models.StoredFile) error {
	if err := media.RequireKind(f, "image"); err != nil {
		return err
	}
	_, err := media.MIMEOf(f.DataURL)
	return err
}

func (p *VideoStudioPatch) validate() error {
	if p.Mode != nil && !p.Mode.Valid() {
		return apperrors.Validation("mode", "unknown video mode %q", *p.Mode)
	}
	if p.AspectRatio != nil && !slices.Contains(models.VideoAspectRatios, *p.AspectRatio) {
		return apperrors.Validation("aspectRatio", "unsupported aspect ratio %q", *p.AspectRatio)
	}
	return p.PersonaPatch.validate()
}

func (p *VideoStudioPatch) apply(dst *models.VideoStudioState) {
	set(&dst.Mode, p.Mode)
	set(&dst.AnalysisPrompt, p.AnalysisPrompt)
	setNullable(&dst.VideoFile, p.VideoFile)
	set(&dst.AnalysisResult, p.AnalysisResult)
	set(&dst.GenerationPrompt, p.GenerationPrompt)
	setNullable(&dst.ImageFile, p.ImageFile)
	set(&dst.AspectRatio, p.AspectRatio)
	set(&dst.LocationCategory, p.LocationCategory)
	p.PersonaPatch.apply(&dst.Persona)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setSlice[T any](dst *[]T, v *[]T) {
	if v != nil {
		*dst = slices.Clone(*v)
		if *dst == nil {
			*dst = []T{}
		}
	}
}

func setNullable[T any](dst **T, v Nullable[T]) {
	if !v.Set {
		return
	}
	if v.Value == nil {
		*dst = nil
		return
	}
	c := *v.Value
	*dst = &c
}

// Nullable distinguishes an absent patch field from an explicit null.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// Value returns a Nullable that sets the field to v.
func Value[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

// Null returns a Nullable that clears the field.
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(bytes.TrimSpace(data)) == "null" {
		n.Value = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var v T
	if err := dec.Decode(&v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}
