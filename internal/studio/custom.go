package studio

import (
	"strings"

	"github.com/lehigh-university-libraries/studio/internal/apperrors"
	"github.com/lehigh-university-libraries/studio/internal/ids"
	"github.com/lehigh-university-libraries/studio/internal/models"
)

func (s *Service) AddCustomClothing(name, prompt string) (models.CustomClothing, error) {
	name, prompt = strings.TrimSpace(name), strings.TrimSpace(prompt)
	if name == "" || prompt == "" {
		return models.CustomClothing{}, apperrors.Validation("customClothing", "name and prompt are required")
	}
	item := models.CustomClothing{
		ID:     s.ids.WithPrefix(ids.ClothingPrefix),
		Name:   name,
		Prompt: prompt,
	}
	s.ctl.AddCustomClothing(item)
	return item, nil
}

func (s *Service) AddCustomLocation(category, detail, prompt string) (models.CustomLocation, error) {
	category, detail, prompt = strings.TrimSpace(category), strings.TrimSpace(detail), strings.TrimSpace(prompt)
	if category == "" || detail == "" || prompt == "" {
		return models.CustomLocation{}, apperrors.Validation("customLocations", "category, detail and prompt are required")
	}
	item := models.CustomLocation{
		ID:       s.ids.WithPrefix(ids.LocationPrefix),
		Category: category,
		Detail:   detail,
		Prompt:   prompt,
	}
	s.ctl.AddCustomLocation(item)
	return item, nil
}

func (s *Service) DeleteCustomClothing(id string) error {
	if !s.ctl.DeleteCustomClothing(id) {
		return apperrors.NotFound("custom clothing", id)
	}
	return nil
}

func (s *Service) DeleteCustomLocation(id string) error {
	if !s.ctl.DeleteCustomLocation(id) {
		return apperrors.NotFound("custom location", id)
	}
	return nil
}
