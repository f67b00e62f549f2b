package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/skillswap/internal/apperror"
	"github.com/sakif/skillswap/internal/auth"
	"github.com/sakif/skillswap/internal/model"
	"github.com/sakif/skillswap/internal/repository"
)

// LifecycleService enforces the learning-request state machine:
//
//	create          any member except the skill owner   → pending
//	accept / reject skill owner, while pending          → accepted / rejected
//	cancel          requester, while pending            → row deleted
//
// Decided requests never change again. Authorization is checked before the
// state, so a stranger sees Forbidden even for a decided request.
//
// The state check here is only a fast path. The repository's
// compare-and-set write is what actually guarantees that two racing
// decisions cannot both succeed.
type LifecycleService struct {
	skills   repository.SkillRepository
	requests repository.RequestRepository
	logger   *slog.Logger
}

func NewLifecycleService(
	skills repository.SkillRepository,
	requests repository.RequestRepository,
	logger *slog.Logger,
) *LifecycleService {
	return &LifecycleService{skills: skills, requests: requests, logger: logger}
}

// Create sends a pending request for skillID from the caller.
func (s *LifecycleService) Create(ctx context.Context, actor auth.Identity, skillID, message string) (*model.Request, error) {
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	skillID, err := requireID("skill", skillID)
	if err != nil {
		return nil, err
	}
	message = strings.TrimSpace(message)
	if err := checkLength("message", "message", message, MaxRequestMessageLength); err != nil {
		return nil, err
	}

	skill, err := s.skills.GetSkillByID(ctx, skillID)
	if err != nil {
		return nil, err
	}
	if skill.OwnerID == actor.UserID {
		return nil, apperror.ValidationFailed("skillId", "you cannot request your own skill")
	}

	req := &model.Request{
		SkillID:     skill.ID,
		RequesterID: actor.UserID,
		Message:     message,
	}
	if err := s.requests.CreateRequest(ctx, req); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("creating request: %w", err)
	}

	s.logger.Info("request created",
		slog.String("id", req.ID),
		slog.String("skillID", skill.ID),
		slog.String("requesterID", actor.UserID),
	)

	return s.requests.GetRequestByID(ctx, req.ID)
}

// Respond moves a pending request to accepted or rejected.
func (s *LifecycleService) Respond(ctx context.Context, actor auth.Identity, requestID string, to model.Status) (*model.Request, error) {
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	if !to.Decision() {
		return nil, apperror.ValidationFailed("status", "status must be accepted or rejected")
	}
	requestID, err := requireID("request", requestID)
	if err != nil {
		return nil, err
	}

	req, err := s.requests.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.OwnerID != actor.UserID {
		return nil, apperror.Forbidden("only the skill owner can respond to this request")
	}
	if req.Status != model.StatusPending {
		return nil, apperror.InvalidTransition("request", requestID, string(req.Status))
	}

	changed, err := s.requests.TransitionRequest(ctx, requestID, to)
	if err != nil {
		return nil, fmt.Errorf("updating request %s: %w", requestID, err)
	}
	if !changed {
		return nil, s.lostRace(ctx, requestID)
	}

	s.logger.Info("request decided",
		slog.String("id", requestID),
		slog.String("status", string(to)),
		slog.String("by", actor.UserID),
	)

	return s.requests.GetRequestByID(ctx, requestID)
}

// Accept is Respond with StatusAccepted.
func (s *LifecycleService) Accept(ctx context.Context, actor auth.Identity, requestID string) (*model.Request, error) {
	return s.Respond(ctx, actor, requestID, model.StatusAccepted)
}

// Reject is Respond with StatusRejected.
func (s *LifecycleService) Reject(ctx context.Context, actor auth.Identity, requestID string) (*model.Request, error) {
	return s.Respond(ctx, actor, requestID, model.StatusRejected)
}

// Cancel withdraws a pending request. Only its requester may do this.
func (s *LifecycleService) Cancel(ctx context.Context, actor auth.Identity, requestID string) error {
	if err := requireIdentity(actor); err != nil {
		return err
	}
	requestID, err := requireID("request", requestID)
	if err != nil {
		return err
	}

	req, err := s.requests.GetRequestByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req.RequesterID != actor.UserID {
		return apperror.Forbidden("only the requester can cancel this request")
	}
	if req.Status != model.StatusPending {
		return apperror.InvalidTransition("request", requestID, string(req.Status))
	}

	deleted, err := s.requests.DeletePendingRequest(ctx, requestID)
	if err != nil {
		return fmt.Errorf("cancelling request %s: %w", requestID, err)
	}
	if !deleted {
		return s.lostRace(ctx, requestID)
	}

	s.logger.Info("request cancelled",
		slog.String("id", requestID),
		slog.String("by", actor.UserID),
	)
	return nil
}

// ListReceived returns requests made on the caller's skills.
func (s *LifecycleService) ListReceived(ctx context.Context, actor auth.Identity) ([]model.Request, error) {
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	return s.requests.ListRequestsByOwner(ctx, actor.UserID)
}

// ListSent returns requests the caller has made.
func (s *LifecycleService) ListSent(ctx context.Context, actor auth.Identity) ([]model.Request, error) {
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	return s.requests.ListRequestsByRequester(ctx, actor.UserID)
}

// lostRace explains a compare-and-set that matched no row: either the
// request vanished or someone else decided it first.
func (s *LifecycleService) lostRace(ctx context.Context, requestID string) error {
	current, err := s.requests.GetRequestByID(ctx, requestID)
	if err != nil {
		return err
	}
	s.logger.Info("request changed concurrently",
		slog.String("id", requestID),
		slog.String("status", string(current.Status)),
	)
	return apperror.InvalidTransition("request", requestID, string(current.Status))
}
