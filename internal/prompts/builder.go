// Package prompts assembles generation prompts from the prompt builder fields.
package prompts

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/studio/internal/models"
)

//go:embed templates.yaml
var defaultTemplates []byte

type Option struct {
	Name   string `yaml:"name" json:"name"`
	Prompt string `yaml:"prompt" json:"prompt"`
}

type LocationGroup struct {
	Category string   `yaml:"category" json:"category"`
	Details  []Option `yaml:"details" json:"details"`
}

type scene struct {
	Location string `yaml:"location"`
	Detail   string `yaml:"detail"`
	Clothing string `yaml:"clothing"`
	Template string `yaml:"template"`
}

type fallback struct {
	Order         []string `yaml:"order"`
	Intro         string   `yaml:"intro"`
	Subject       string   `yaml:"subject"`
	Age           string   `yaml:"age"`
	Features      string   `yaml:"features"`
	Pose          string   `yaml:"pose"`
	Clothing      string   `yaml:"clothing"`
	Background    string   `yaml:"background"`
	Setting       string   `yaml:"setting"`
	CustomSetting string   `yaml:"custom_setting"`
	Style         string   `yaml:"style"`
}

type medium struct {
	Scenes   []scene  `yaml:"scenes"`
	Fallback fallback `yaml:"fallback"`
}

type tables struct {
	Clothing  []Option        `yaml:"clothing"`
	Locations []LocationGroup `yaml:"locations"`
	Camera    struct {
		Horizontal []string `yaml:"horizontal"`
		Vertical   []string `yaml:"vertical"`
	} `yaml:"camera"`
	Image medium `yaml:"image"`
	Video medium `yaml:"video"`
}

// Builder turns persona fields into image and video prompts.
type Builder struct {
	t tables
}

// New loads the built-in tables.
func New() (*Builder, error) {
	return Parse(defaultTemplates)
}

// Parse loads tables from YAML.
func Parse(data []byte) (*Builder, error) {
	var t tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse prompt templates: %w", err)
	}
	if len(t.Camera.Horizontal) != models.CameraMax || len(t.Camera.Vertical) != models.CameraMax {
		return nil, fmt.Errorf("camera tables need %d entries each", models.CameraMax)
	}
	return &Builder{t: t}, nil
}

// ClothingOptions lists the built-in clothing choices.
func (b *Builder) ClothingOptions() []Option {
	return b.t.Clothing
}

// LocationOptions lists the built-in locations by category.
func (b *Builder) LocationOptions() []LocationGroup {
	return b.t.Locations
}

// CameraDescription describes the camera angle for 1..9 values. Out of
// range values are clamped.
func (b *Builder) CameraDescription(horizontal, vertical int) string {
	h := b.t.Camera.Horizontal[clamp(horizontal)-1]
	v := b.t.Camera.Vertical[clamp(vertical)-1]
	return fmt.Sprintf("The camera angle is set to Horizontal: %s, Vertical: %s.", h, v)
}

// Image builds the image studio prompt.
func (b *Builder) Image(p models.Persona, clothing []models.CustomClothing, locations []models.CustomLocation) string {
	return b.build(b.t.Image, p, clothing, locations)
}

// Video builds the video studio prompt. The video studio has no custom items.
func (b *Builder) Video(p models.Persona) string {
	return b.build(b.t.Video, p, nil, nil)
}

func (b *Builder) build(m medium, p models.Persona, customClothing []models.CustomClothing, customLocations []models.CustomLocation) string {
	clothing := b.clothing(p.SelectedClothing, customClothing)
	camera := b.CameraDescription(p.CameraHorizontal, p.CameraVertical)
	address := ""
	if p.Address != "" {
		address = fmt.Sprintf("The background details should be subtly influenced by this address: %q.", p.Address)
	}

	for _, s := range m.Scenes {
		if s.Location != p.SelectedLocation || s.Detail != p.SelectedLocationDetail {
			continue
		}
		if clothing == "" {
			clothing = s.Clothing
		}
		r := strings.NewReplacer(
			"{persona}", persona(p),
			"{camera}", camera,
			"{address}", address,
			"{clothing}", clothing,
		)
		return collapse(r.Replace(s.Template))
	}

	f := m.Fallback
	background := f.Background
	if loc, ok := findCustomLocation(customLocations, p.SelectedLocation, p.SelectedLocationDetail); ok {
		background = strings.ReplaceAll(f.CustomSetting, "{location}", loc)
	} else if loc, ok := b.location(p.SelectedLocation, p.SelectedLocationDetail); ok {
		background = strings.ReplaceAll(f.Setting, "{location}", loc)
	}

	r := strings.NewReplacer(
		"{jobTitle}", or(p.JobTitle, "person"),
		"{age}", p.Age,
		"{features}", p.FacialFeatures,
		"{clothing}", clothing,
	)
	parts := map[string]string{
		"intro":      r.Replace(f.Intro),
		"subject":    r.Replace(f.Subject),
		"pose":       f.Pose,
		"camera":     camera,
		"background": background,
		"address":    address,
		"style":      f.Style,
	}
	if p.Age != "" {
		parts["age"] = r.Replace(f.Age)
	}
	if p.FacialFeatures != "" {
		parts["features"] = r.Replace(f.Features)
	}
	if clothing != "" {
		parts["clothing"] = r.Replace(f.Clothing)
	}

	var out []string
	for _, key := range f.Order {
		if s := parts[key]; s != "" {
			out = append(out, s)
		}
	}
	return collapse(strings.Join(out, " "))
}

// clothing resolves the selected clothing, custom items first.
func (b *Builder) clothing(selected string, custom []models.CustomClothing) string {
	if selected == "" {
		return ""
	}
	for _, c := range custom {
		if c.Name == selected {
			return c.Prompt
		}
	}
	for _, o := range b.t.Clothing {
		if o.Name == selected {
			return o.Prompt
		}
	}
	return ""
}

func (b *Builder) location(category, detail string) (string, bool) {
	if category == "" || detail == "" {
		return "", false
	}
	for _, g := range b.t.Locations {
		if g.Category != category {
			continue
		}
		for _, d := range g.Details {
			if d.Name == detail {
				return d.Prompt, true
			}
		}
	}
	return "", false
}

func findCustomLocation(custom []models.CustomLocation, category, detail string) (string, bool) {
	for _, l := range custom {
		if l.Category == category && l.Detail == detail {
			return l.Prompt, true
		}
	}
	return "", false
}

func persona(p models.Persona) string {
	var sb strings.Builder
	sb.WriteString("The subject is a " + or(p.JobTitle, "person"))
	if p.Age != "" {
		sb.WriteString(" who is around " + p.Age + " years old")
	}
	sb.WriteString(".")
	if p.FacialFeatures != "" {
		sb.WriteString(" Modify or add these facial features: " + p.FacialFeatures + ".")
	}
	return sb.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func or(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func clamp(v int) int {
	return min(max(v, models.CameraMin), models.CameraMax)
}
