// Package project holds the live project state and the typed patches applied to it.
package project

import (
	"github.com/lehigh-university-libraries/studio/internal/apperrors"
	"github.com/lehigh-university-libraries/studio/internal/history"
	"github.com/lehigh-university-libraries/studio/internal/models"
)

// Tree is the single mutable aggregate for one studio session.
// It is not safe for concurrent use; the session controller serialises access.
type Tree struct {
	state models.ProjectState
}

// NewTree returns a tree holding a copy of state.
func NewTree(state models.ProjectState) *Tree {
	return &Tree{state: state.Clone()}
}

// Get returns a deep copy of the current state.
func (t *Tree) Get() models.ProjectState {
	return t.state.Clone()
}

// Update decodes raw as a patch for section and merges it.
func (t *Tree) Update(section Section, raw []byte) error {
	p, err := DecodePatch(section, raw)
	if err != nil {
		return err
	}
	switch p := p.(type) {
	case *AssistantPatch:
		return t.UpdateAssistant(*p)
	case *ImageStudioPatch:
		return t.UpdateImageStudio(*p)
	case *VideoStudioPatch:
		return t.UpdateVideoStudio(*p)
	}
	return apperrors.Validation("section", "unknown section %q", section)
}

func (t *Tree) UpdateAssistant(p AssistantPatch) error {
	if err := p.validate(); err != nil {
		return err
	}
	p.apply(&t.state.Assistant)
	return nil
}

func (t *Tree) UpdateImageStudio(p ImageStudioPatch) error {
	if err := p.validate(); err != nil {
		return err
	}
	p.apply(&t.state.ImageStudio)
	return nil
}

func (t *Tree) UpdateVideoStudio(p VideoStudioPatch) error {
	if err := p.validate(); err != nil {
		return err
	}
	p.apply(&t.state.VideoStudio)
	return nil
}

// Replace swaps in a copy of state and returns the outgoing state.
func (t *Tree) Replace(state models.ProjectState) models.ProjectState {
	old := t.state
	t.state = state.Clone()
	return old
}

func (t *Tree) SetActiveTab(tab models.Tab) error {
	if !tab.Valid() {
		return apperrors.Validation("activeTab", "unknown tab %q", tab)
	}
	t.state.ActiveTab = tab
	return nil
}

// ImageHistory exposes the image studio snapshot store for in-place changes.
func (t *Tree) ImageHistory() *history.Store[models.Artifact] {
	return &t.state.ImageStudio.History
}

// Assistant, ImageStudio and VideoStudio give the controller direct access
// to fields that are not patchable.
func (t *Tree) Assistant() *models.AssistantState {
	return &t.state.Assistant
}

func (t *Tree) ImageStudio() *models.ImageStudioState {
	return &t.state.ImageStudio
}

func (t *Tree) VideoStudio() *models.VideoStudioState {
	return &t.state.VideoStudio
}
