package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/skillswap/internal/apperror"
	"github.com/sakif/skillswap/internal/auth"
	"github.com/sakif/skillswap/internal/model"
	"github.com/sakif/skillswap/internal/repository"
)

// CatalogService owns skill listings.
type CatalogService struct {
	skills repository.SkillRepository
	logger *slog.Logger
}

func NewCatalogService(skills repository.SkillRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{skills: skills, logger: logger}
}

// NewSkill is the input to Create.
type NewSkill struct {
	Name        string
	Description string
	Category    model.Category
	Level       model.Level
}

// List returns skills matching filter, newest first unless Sort says
// otherwise. A zero Limit returns every match.
func (s *CatalogService) List(ctx context.Context, filter repository.SkillFilter) ([]model.Skill, error) {
	filter.Query = strings.TrimSpace(filter.Query)

	if filter.Category != "" && !filter.Category.Valid() {
		return nil, apperror.ValidationFailed("category",
			fmt.Sprintf("unknown category %q", filter.Category))
	}
	if filter.Level != "" && !filter.Level.Valid() {
		return nil, apperror.ValidationFailed("level",
			fmt.Sprintf("unknown level %q", filter.Level))
	}
	if filter.Sort == "" {
		filter.Sort = repository.SortNewest
	}
	if !filter.Sort.Valid() {
		return nil, apperror.ValidationFailed("sort",
			fmt.Sprintf("unknown sort %q", filter.Sort))
	}

	if filter.Limit < 0 {
		filter.Limit = 0
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	skills, err := s.skills.ListSkills(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list skills", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing skills: %w", err)
	}
	return skills, nil
}

// ListMine returns the caller's own skills.
func (s *CatalogService) ListMine(ctx context.Context, actor auth.Identity) ([]model.Skill, error) {
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	return s.List(ctx, repository.SkillFilter{OwnerID: actor.UserID})
}

// Get returns one skill.
func (s *CatalogService) Get(ctx context.Context, id string) (*model.Skill, error) {
	id, err := requireID("skill", id)
	if err != nil {
		return nil, err
	}
	return s.skills.GetSkillByID(ctx, id)
}

// Create lists a new skill owned by the caller.
func (s *CatalogService) Create(ctx context.Context, actor auth.Identity, in NewSkill) (*model.Skill, error) {
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	description := strings.TrimSpace(in.Description)

	if name == "" {
		return nil, apperror.ValidationFailed("name", "skill name is required")
	}
	if err := checkLength("name", "skill name", name, MaxSkillNameLength); err != nil {
		return nil, err
	}
	if description == "" {
		return nil, apperror.ValidationFailed("description", "description is required")
	}
	if err := checkLength("description", "description", description, MaxSkillDescriptionLength); err != nil {
		return nil, err
	}
	if !in.Category.Valid() {
		return nil, apperror.ValidationFailed("category",
			fmt.Sprintf("category must be one of %v", model.Categories))
	}
	if !in.Level.Valid() {
		return nil, apperror.ValidationFailed("level",
			fmt.Sprintf("level must be one of %v", model.Levels))
	}

	skill := &model.Skill{
		OwnerID:     actor.UserID,
		Name:        name,
		Description: description,
		Category:    in.Category,
		Level:       in.Level,
	}
	if err := s.skills.CreateSkill(ctx, skill); err != nil {
		s.logger.Error("failed to create skill",
			slog.String("ownerID", actor.UserID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating skill: %w", err)
	}

	s.logger.Info("skill created",
		slog.String("id", skill.ID),
		slog.String("ownerID", skill.OwnerID),
		slog.String("name", skill.Name),
	)
	return skill, nil
}

// Delete removes a skill and every request made on it. Only the owner or an
// admin may do this.
func (s *CatalogService) Delete(ctx context.Context, actor auth.Identity, id string) error {
	if err := requireIdentity(actor); err != nil {
		return err
	}
	id, err := requireID("skill", id)
	if err != nil {
		return err
	}

	skill, err := s.skills.GetSkillByID(ctx, id)
	if err != nil {
		return err
	}
	if skill.OwnerID != actor.UserID && !actor.IsAdmin() {
		return apperror.Forbidden("only the owner can delete this skill")
	}

	if err := s.skills.DeleteSkill(ctx, id); err != nil {
		return err
	}

	s.logger.Info("skill deleted",
		slog.String("id", id),
		slog.String("by", actor.UserID),
	)
	return nil
}
