package service

import (
	"context"
	"log/slog"

	"github.com/sakif/skillswap/internal/apperror"
	"github.com/sakif/skillswap/internal/auth"
	"github.com/sakif/skillswap/internal/model"
	"github.com/sakif/skillswap/internal/repository"
)

// ModerationService gives admins unconditional reads and deletes over every
// record. Routes are already behind RequireAdmin; the role is checked again
// here so the rule holds for any caller of the service.
type ModerationService struct {
	users    repository.UserRepository
	skills   repository.SkillRepository
	requests repository.RequestRepository
	logger   *slog.Logger
}

func NewModerationService(
	users repository.UserRepository,
	skills repository.SkillRepository,
	requests repository.RequestRepository,
	logger *slog.Logger,
) *ModerationService {
	return &ModerationService{users: users, skills: skills, requests: requests, logger: logger}
}

func requireAdmin(actor auth.Identity) error {
	if err := requireIdentity(actor); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return apperror.Forbidden("admin access required")
	}
	return nil
}

func (s *ModerationService) ListUsers(ctx context.Context, actor auth.Identity) ([]model.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.users.ListUsers(ctx)
}

func (s *ModerationService) GetUser(ctx context.Context, actor auth.Identity, id string) (*model.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	id, err := requireID("user", id)
	if err != nil {
		return nil, err
	}
	return s.users.GetUserByID(ctx, id)
}

func (s *ModerationService) ListSkills(ctx context.Context, actor auth.Identity) ([]model.Skill, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.skills.ListSkills(ctx, repository.SkillFilter{Sort: repository.SortNewest})
}

func (s *ModerationService) GetSkill(ctx context.Context, actor auth.Identity, id string) (*model.Skill, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	id, err := requireID("skill", id)
	if err != nil {
		return nil, err
	}
	return s.skills.GetSkillByID(ctx, id)
}

func (s *ModerationService) ListRequests(ctx context.Context, actor auth.Identity) ([]model.Request, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.requests.ListRequests(ctx)
}

func (s *ModerationService) GetRequest(ctx context.Context, actor auth.Identity, id string) (*model.Request, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	id, err := requireID("request", id)
	if err != nil {
		return nil, err
	}
	return s.requests.GetRequestByID(ctx, id)
}

// DeleteUser removes an account with its skills and the requests it sent.
// Admins cannot delete themselves.
func (s *ModerationService) DeleteUser(ctx context.Context, actor auth.Identity, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	id, err := requireID("user", id)
	if err != nil {
		return err
	}
	if id == actor.UserID {
		return apperror.Forbidden("admins cannot delete their own account")
	}

	if err := s.users.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Warn("user deleted by admin",
		slog.String("userID", id),
		slog.String("adminID", actor.UserID),
	)
	return nil
}

func (s *ModerationService) DeleteSkill(ctx context.Context, actor auth.Identity, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	id, err := requireID("skill", id)
	if err != nil {
		return err
	}

	if err := s.skills.DeleteSkill(ctx, id); err != nil {
		return err
	}
	s.logger.Warn("skill deleted by admin",
		slog.String("skillID", id),
		slog.String("adminID", actor.UserID),
	)
	return nil
}

// DeleteRequest removes a request whatever its status.
func (s *ModerationService) DeleteRequest(ctx context.Context, actor auth.Identity, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	id, err := requireID("request", id)
	if err != nil {
		return err
	}

	if err := s.requests.DeleteRequest(ctx, id); err != nil {
		return err
	}
	s.logger.Warn("request deleted by admin",
		slog.String("requestID", id),
		slog.String("adminID", actor.UserID),
	)
	return nil
}
