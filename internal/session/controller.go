// Package session owns the live project for one studio session and
// coordinates it with saved projects and transient resources.
package session

import (
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/lehigh-university-libraries/studio/internal/apperrors"
	"github.com/lehigh-university-libraries/studio/internal/models"
	"github.com/lehigh-university-libraries/studio/internal/persistence"
	"github.com/lehigh-university-libraries/studio/internal/project"
	"github.com/lehigh-university-libraries/studio/internal/resource"
)

// ErrSuperseded is returned when a result arrives for a project that has
// since been replaced by a load or reset. The result is discarded.
var ErrSuperseded = errors.New("the project changed while the operation was running")

// Projects is the saved project catalog the controller delegates to.
type Projects interface {
	List() []persistence.Record
	Save(name string, state models.ProjectState) (persistence.Record, error)
	Load(id string) (persistence.Record, error)
	Delete(id string) error
}

// Controller is the single mutator of the live project. Every method holds
// one lock for its whole state transition. Work that has to wait on the
// generation service runs outside the lock and reports back with the epoch
// it started from.
type Controller struct {
	tree         *project.Tree
	epoch        uint64
	projects     Projects
	releaser     resource.Releaser
	historyLimit int
	mu           sync.Mutex
}

type Option func(*Controller)

// WithHistoryLimit caps the image history. Zero keeps everything.
func WithHistoryLimit(n int) Option {
	return func(c *Controller) {
		c.historyLimit = n
	}
}

func New(projects Projects, releaser resource.Releaser, opts ...Option) *Controller {
	c := &Controller{
		tree:     project.NewTree(models.DefaultState()),
		projects: projects,
		releaser: releaser,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a copy of the live project.
func (c *Controller) State() models.ProjectState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree.Get()
}

// Snapshot returns a copy of the live project and the epoch it belongs to.
func (c *Controller) Snapshot() (models.ProjectState, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree.Get(), c.epoch
}

func (c *Controller) SetActiveTab(tab models.Tab) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree.SetActiveTab(tab)
}

// Update applies a raw JSON patch to one section.
func (c *Controller) Update(section project.Section, raw []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree.Update(section, raw)
}

// Mutate runs fn against the live tree if it still belongs to epoch.
func (c *Controller) Mutate(epoch uint64, fn func(t *project.Tree) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return ErrSuperseded
	}
	return fn(c.tree)
}

// Do runs fn against the live tree regardless of epoch.
func (c *Controller) Do(fn func(t *project.Tree) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(c.tree)
}

// NewProject resets to the default state. Without confirmation nothing
// happens and it reports false.
func (c *Controller) NewProject(confirmed bool) bool {
	if !confirmed {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replace(models.DefaultState())
	slog.Info("Started new project")
	return true
}

// SaveCurrentAsProject stores a copy of the live project under name.
func (c *Controller) SaveCurrentAsProject(name string) (persistence.Record, error) {
	c.mu.Lock()
	snapshot := c.tree.Get().WithoutTransient()
	c.mu.Unlock()

	return c.projects.Save(name, snapshot)
}

// Project returns the saved project id without touching the live project.
func (c *Controller) Project(id string) (persistence.Record, error) {
	return c.projects.Load(id)
}

// LoadProject replaces the live project with the saved project id.
func (c *Controller) LoadProject(id string) (persistence.Record, error) {
	rec, err := c.projects.Load(id)
	if err != nil {
		return persistence.Record{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	rec.State.VideoStudio.GeneratedVideoURL = ""
	c.replace(rec.State)
	slog.Info("Project loaded", "id", rec.ID, "name", rec.Name)
	return rec, nil
}

// DeleteProject removes a saved project. The live project is not affected.
func (c *Controller) DeleteProject(id string) error {
	return c.projects.Delete(id)
}

// ListProjects returns the saved projects newest first.
func (c *Controller) ListProjects() []persistence.Record {
	records := c.projects.List()
	persistence.SortNewestFirst(records)
	return records
}

// ReplaceImageHistory starts a fresh image history holding only a.
func (c *Controller) ReplaceImageHistory(epoch uint64, a models.Artifact) error {
	return c.Mutate(epoch, func(t *project.Tree) error {
		return t.ImageHistory().Reset([]models.Artifact{a}, 0)
	})
}

// AppendImage adds a as the current image, pruning any redo branch.
func (c *Controller) AppendImage(epoch uint64, a models.Artifact) error {
	return c.Mutate(epoch, func(t *project.Tree) error {
		h := t.ImageHistory()
		h.Append(a)
		if dropped := h.Cap(c.historyLimit); dropped > 0 {
			slog.Debug("Evicted old image history", "dropped", dropped)
		}
		return nil
	})
}

func (c *Controller) UndoImage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree.ImageHistory().Undo()
}

func (c *Controller) RedoImage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree.ImageHistory().Redo()
}

func (c *Controller) AppendMessages(epoch uint64, msgs ...models.ChatMessage) error {
	return c.Mutate(epoch, func(t *project.Tree) error {
		a := t.Assistant()
		a.Messages = append(a.Messages, msgs...)
		return nil
	})
}

// SetGeneratedVideo stores handle as the live video, releasing the one it
// replaces. A handle that arrives for a replaced project is released at once.
func (c *Controller) SetGeneratedVideo(epoch uint64, handle string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		c.releaser.Release(handle)
		return ErrSuperseded
	}
	v := c.tree.VideoStudio()
	if v.GeneratedVideoURL != "" && v.GeneratedVideoURL != handle {
		c.releaser.Release(v.GeneratedVideoURL)
	}
	v.GeneratedVideoURL = handle
	return nil
}

// ClearGeneratedVideo releases the live video, if any.
func (c *Controller) ClearGeneratedVideo() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearVideo()
}

// ResetVideoMode switches the video studio to mode, clearing the inputs and
// results of both modes and releasing the live video.
func (c *Controller) ResetVideoMode(mode models.VideoMode) error {
	if !mode.Valid() {
		return apperrors.Validation("mode", "unknown video mode %q", mode)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearVideo()
	v := c.tree.VideoStudio()
	v.Mode = mode
	v.AnalysisPrompt = ""
	v.VideoFile = nil
	v.AnalysisResult = ""
	v.GenerationPrompt = ""
	v.ImageFile = nil
	return nil
}

func (c *Controller) SetCombineResult(epoch uint64, dataURL string) error {
	return c.Mutate(epoch, func(t *project.Tree) error {
		t.ImageStudio().ResultImageURL = dataURL
		return nil
	})
}

func (c *Controller) AddCustomClothing(item models.CustomClothing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.tree.ImageStudio()
	s.CustomClothing = append(s.CustomClothing, item)
}

func (c *Controller) AddCustomLocation(item models.CustomLocation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.tree.ImageStudio()
	s.CustomLocations = append(s.CustomLocations, item)
}

// DeleteCustomClothing removes the item with id and reports whether it existed.
func (c *Controller) DeleteCustomClothing(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.tree.ImageStudio()
	n := len(s.CustomClothing)
	s.CustomClothing = slices.DeleteFunc(s.CustomClothing, func(i models.CustomClothing) bool { return i.ID == id })
	return len(s.CustomClothing) != n
}

func (c *Controller) DeleteCustomLocation(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.tree.ImageStudio()
	n := len(s.CustomLocations)
	s.CustomLocations = slices.DeleteFunc(s.CustomLocations, func(i models.CustomLocation) bool { return i.ID == id })
	return len(s.CustomLocations) != n
}

// Close releases the live video. The controller stays usable.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearVideo()
}

func (c *Controller) replace(state models.ProjectState) {
	c.clearVideo()
	c.tree.Replace(state)
	c.epoch++
}

func (c *Controller) clearVideo() {
	v := c.tree.VideoStudio()
	if v.GeneratedVideoURL == "" {
		return
	}
	c.releaser.Release(v.GeneratedVideoURL)
	v.GeneratedVideoURL = ""
}
