package models

import (
	"slices"

	"github.com/lehigh-university-libraries/studio/internal/history"
)

// Tab selects which studio section is in front
type Tab string

const (
	TabAssistant Tab = "assistant"
	TabImage     Tab = "image"
	TabVideo     Tab = "video"
)

func (t Tab) Valid() bool {
	return t == TabAssistant || t == TabImage || t == TabVideo
}

// ImageMode is the image studio working mode
type ImageMode string

const (
	ImageModeGenerate ImageMode = "generate"
	ImageModeCombine  ImageMode = "combine"
)

func (m ImageMode) Valid() bool {
	return m == ImageModeGenerate || m == ImageModeCombine
}

// VideoMode is the video studio working mode
type VideoMode string

const (
	VideoModeAnalyze  VideoMode = "analyze"
	VideoModeGenerate VideoMode = "generate"
)

func (m VideoMode) Valid() bool {
	return m == VideoModeAnalyze || m == VideoModeGenerate
}

// ImageAspectRatios lists the ratios accepted by image generation
var ImageAspectRatios = []string{"1:1", "16:9", "9:16", "4:3", "3:4"}

// VideoAspectRatios lists the ratios accepted by video generation
var VideoAspectRatios = []string{"16:9", "9:16"}

// MaxCombineImages caps the combine inputs
const MaxCombineImages = 3

// Camera angle values run from 1 (strong left / low) to 9 (strong right / high)
const (
	CameraMin     = 1
	CameraMax     = 9
	CameraDefault = 5
)

const greeting = "Hi! To use this studio you need a Gemini API key. You can get one in Google AI Studio.\n\n" +
	"Once you have a key, configure it in the server environment (GEMINI_API_KEY). " +
	"For security reasons the studio only reads the key from the environment and never asks for it directly."

// Persona holds the prompt builder fields shared by the image and video studios
type Persona struct {
	JobTitle               string `json:"jobTitle"`
	Age                    string `json:"age"`
	FacialFeatures         string `json:"facialFeatures"`
	Address                string `json:"address"`
	SelectedClothing       string `json:"selectedClothing"`
	SelectedLocation       string `json:"selectedLocation"`
	SelectedLocationDetail string `json:"selectedLocationDetail"`
	CameraHorizontal       int    `json:"cameraHorizontal"`
	CameraVertical         int    `json:"cameraVertical"`
}

type AssistantState struct {
	Messages []ChatMessage `json:"messages"`
}

type ImageStudioState struct {
	Mode           ImageMode               `json:"mode"`
	GeneratePrompt string                  `json:"generatePrompt"`
	CombinePrompt  string                  `json:"combinePrompt"`
	EditPrompt     string                  `json:"editPrompt"`
	AspectRatio    string                  `json:"aspectRatio"`
	CombineImages  []StoredFile            `json:"combineImages"`
	History        history.Store[Artifact] `json:"history"`
	ResultImageURL string                  `json:"resultImageUrl,omitempty"`
	Persona
	CustomClothing  []CustomClothing `json:"customClothing"`
	CustomLocations []CustomLocation `json:"customLocations"`
}

type VideoStudioState struct {
	Mode             VideoMode   `json:"mode"`
	AnalysisPrompt   string      `json:"analysisPrompt"`
	VideoFile        *StoredFile `json:"videoFile"`
	AnalysisResult   string      `json:"analysisResult"`
	GenerationPrompt string      `json:"generationPrompt"`
	ImageFile        *StoredFile `json:"imageFile"`
	// GeneratedVideoURL is a transient resource handle, valid only in the
	// running process. It is never persisted.
	GeneratedVideoURL string `json:"generatedVideoUrl,omitempty"`
	AspectRatio       string `json:"aspectRatio"`
	LocationCategory  string `json:"locationCategory"`
	Persona
}

// ProjectState is the whole studio session across all tabs
type ProjectState struct {
	ActiveTab   Tab              `json:"activeTab"`
	Assistant   AssistantState   `json:"assistant"`
	ImageStudio ImageStudioState `json:"imageStudio"`
	VideoStudio VideoStudioState `json:"videoStudio"`
}

func defaultPersona() Persona {
	return Persona{
		CameraHorizontal: CameraDefault,
		CameraVertical:   CameraDefault,
	}
}

// DefaultState returns the state of a brand new project
func DefaultState() ProjectState {
	return ProjectState{
		ActiveTab: TabAssistant,
		Assistant: AssistantState{
			Messages: []ChatMessage{{Role: RoleModel, Text: greeting}},
		},
		ImageStudio: ImageStudioState{
			Mode:            ImageModeGenerate,
			AspectRatio:     "1:1",
			CombineImages:   []StoredFile{},
			Persona:         defaultPersona(),
			CustomClothing:  []CustomClothing{},
			CustomLocations: []CustomLocation{},
		},
		VideoStudio: VideoStudioState{
			Mode:             VideoModeGenerate,
			AspectRatio:      "9:16",
			LocationCategory: "Office",
			Persona:          defaultPersona(),
		},
	}
}

// Clone returns a deep copy that shares nothing mutable with s.
func (s ProjectState) Clone() ProjectState {
	out := s
	out.Assistant.Messages = cloneMessages(s.Assistant.Messages)
	out.ImageStudio.CombineImages = slices.Clone(s.ImageStudio.CombineImages)
	out.ImageStudio.History = s.ImageStudio.History.Clone()
	out.ImageStudio.CustomClothing = slices.Clone(s.ImageStudio.CustomClothing)
	out.ImageStudio.CustomLocations = slices.Clone(s.ImageStudio.CustomLocations)
	out.VideoStudio.VideoFile = cloneFile(s.VideoStudio.VideoFile)
	out.VideoStudio.ImageFile = cloneFile(s.VideoStudio.ImageFile)
	return out
}

// WithoutTransient returns a deep copy with runtime-only handles cleared.
func (s ProjectState) WithoutTransient() ProjectState {
	out := s.Clone()
	out.VideoStudio.GeneratedVideoURL = ""
	return out
}

func cloneFile(f *StoredFile) *StoredFile {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}

func cloneMessages(msgs []ChatMessage) []ChatMessage {
	if msgs == nil {
		return nil
	}
	out := make([]ChatMessage, len(msgs))
	for i, m := range msgs {
		out[i] = m
		out[i].Image = cloneFile(m.Image)
		out[i].GroundingChunks = cloneChunks(m.GroundingChunks)
	}
	return out
}

func cloneChunks(chunks []GroundingChunk) []GroundingChunk {
	if chunks == nil {
		return nil
	}
	out := make([]GroundingChunk, len(chunks))
	for i, c := range chunks {
		if c.Web != nil {
			w := *c.Web
			out[i].Web = &w
		}
		if c.Maps != nil {
			m := *c.Maps
			if m.PlaceAnswerSources != nil {
				p := PlaceAnswerSources{ReviewSnippets: slices.Clone(m.PlaceAnswerSources.ReviewSnippets)}
				m.PlaceAnswerSources = &p
			}
			out[i].Maps = &m
		}
	}
	return out
}
