// Package seed fills an empty database with an admin account and a small
// set of sample members, skills and requests for local development.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/skillswap/internal/apperror"
	"github.com/sakif/skillswap/internal/model"
	"github.com/sakif/skillswap/internal/repository"
)

const (
	AdminEmail    = "admin@skillswap.com"
	AdminPassword = "admin123"
	// MemberPassword is shared by every sample member.
	MemberPassword = "password123"
)

// Store is everything the seeder writes to. *sqlite.DB satisfies it.
type Store interface {
	repository.UserRepository
	repository.SkillRepository
	repository.RequestRepository
}

// Hasher turns a plaintext password into a stored hash.
type Hasher interface {
	Hash(plaintext string) (string, error)
}

// Result counts what Run created. Skipped is true when the database was
// already seeded and nothing was written.
type Result struct {
	Users    int
	Skills   int
	Requests int
	Skipped  bool
}

type member struct {
	name, email, bio string
}

type sampleSkill struct {
	name, description string
	category          model.Category
	level             model.Level
	ownerEmail        string
}

type sampleRequest struct {
	skillName, requesterEmail, message string
	status                             model.Status
}

var members = []member{
	{"John Doe", "john@example.com", "Web developer with 5 years of experience"},
	{"Jane Smith", "jane@example.com", "UI/UX designer passionate about creating beautiful interfaces"},
	{"Mike Johnson", "mike@example.com", "Guitar teacher with 10 years of experience"},
}

var skills = []sampleSkill{
	{"React Development", "Learn React from the basics to hooks, context and state management.",
		model.CategoryProgramming, model.LevelIntermediate, "john@example.com"},
	{"UI/UX Design", "Interface and experience design principles using Figma.",
		model.CategoryDesign, model.LevelAdvanced, "jane@example.com"},
	{"Guitar Lessons", "Acoustic and electric guitar from basic chords to music theory.",
		model.CategoryMusic, model.LevelExpert, "mike@example.com"},
	{"Python Programming", "Python fundamentals through to web development.",
		model.CategoryProgramming, model.LevelBeginner, "john@example.com"},
	{"Digital Marketing", "SEO, social media marketing and content creation.",
		model.CategoryMarketing, model.LevelIntermediate, "jane@example.com"},
	{"Spanish Language", "From basic conversation to advanced grammar.",
		model.CategoryLanguages, model.LevelBeginner, "mike@example.com"},
}

var requests = []sampleRequest{
	{"React Development", "jane@example.com", "I would love to learn React to improve my frontend skills!", model.StatusPending},
	{"UI/UX Design", "mike@example.com", "I want to learn design principles for my music website.", model.StatusAccepted},
	{"Guitar Lessons", "john@example.com", "I have always wanted to learn guitar. Can you help?", model.StatusPending},
}

// Run seeds store. It is idempotent: when the admin account already exists
// it returns Result{Skipped: true} without touching anything.
//
// The admin is written last, so its presence means every other row made it
// in. On failure the users created so far are deleted again and their
// skills and requests go with them through the cascades.
func Run(ctx context.Context, store Store, hasher Hasher, logger *slog.Logger) (Result, error) {
	_, err := store.GetUserByEmail(ctx, AdminEmail)
	switch {
	case err == nil:
		logger.Info("seed: admin already exists, skipping", slog.String("email", AdminEmail))
		return Result{Skipped: true}, nil
	case !errors.Is(err, apperror.ErrNotFound):
		return Result{}, fmt.Errorf("seed: checking for admin: %w", err)
	}

	var created []string
	res, err := populate(ctx, store, hasher, &created)
	if err != nil {
		rollback(ctx, store, created, logger)
		return Result{}, err
	}

	logger.Info("seed: database populated",
		slog.Int("users", res.Users),
		slog.Int("skills", res.Skills),
		slog.Int("requests", res.Requests),
	)
	return res, nil
}

// populate appends the id of every user it creates to created.
func populate(ctx context.Context, store Store, hasher Hasher, created *[]string) (Result, error) {
	var res Result

	// === 1. MEMBERS ===
	byEmail := make(map[string]*model.User, len(members))
	for _, m := range members {
		u, err := createUser(ctx, store, hasher, m.name, m.email, m.bio, MemberPassword, model.RoleMember)
		if err != nil {
			return res, err
		}
		*created = append(*created, u.ID)
		byEmail[m.email] = u
		res.Users++
	}

	// === 2. SKILLS ===
	byName := make(map[string]*model.Skill, len(skills))
	for _, s := range skills {
		skill := &model.Skill{
			OwnerID:     byEmail[s.ownerEmail].ID,
			Name:        s.name,
			Description: s.description,
			Category:    s.category,
			Level:       s.level,
		}
		if err := store.CreateSkill(ctx, skill); err != nil {
			return res, fmt.Errorf("seed: creating skill %q: %w", s.name, err)
		}
		byName[s.name] = skill
		res.Skills++
	}

	// === 3. REQUESTS ===
	// Requests start pending like any other; decided ones go through the
	// same compare-and-set transition the API uses.
	for _, r := range requests {
		req := &model.Request{
			SkillID:     byName[r.skillName].ID,
			RequesterID: byEmail[r.requesterEmail].ID,
			Message:     r.message,
			Status:      model.StatusPending,
		}
		if err := store.CreateRequest(ctx, req); err != nil {
			return res, fmt.Errorf("seed: creating request for %q: %w", r.skillName, err)
		}
		if r.status != model.StatusPending {
			if _, err := store.TransitionRequest(ctx, req.ID, r.status); err != nil {
				return res, fmt.Errorf("seed: deciding request for %q: %w", r.skillName, err)
			}
		}
		res.Requests++
	}

	// === 4. ADMIN ===
	admin, err := createUser(ctx, store, hasher, "Admin", AdminEmail, "System Administrator", AdminPassword, model.RoleAdmin)
	if err != nil {
		return res, err
	}
	*created = append(*created, admin.ID)
	res.Users++

	return res, nil
}

// rollback deletes users newest first. It ignores cancellation of ctx so a
// cancelled seed still cleans up after itself.
func rollback(ctx context.Context, store Store, userIDs []string, logger *slog.Logger) {
	ctx = context.WithoutCancel(ctx)
	for i := len(userIDs) - 1; i >= 0; i-- {
		if err := store.DeleteUser(ctx, userIDs[i]); err != nil {
			logger.Error("seed: rolling back user",
				slog.String("user_id", userIDs[i]),
				slog.Any("error", err),
			)
		}
	}
	logger.Warn("seed: rolled back partial seed", slog.Int("users", len(userIDs)))
}

func createUser(ctx context.Context, store Store, hasher Hasher, name, email, bio, password string, role model.Role) (*model.User, error) {
	hash, err := hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("seed: hashing password for %s: %w", email, err)
	}
	u := &model.User{
		Name:         name,
		Email:        email,
		Bio:          bio,
		Role:         role,
		PasswordHash: hash,
	}
	if err := store.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("seed: creating user %s: %w", email, err)
	}
	return u, nil
}
