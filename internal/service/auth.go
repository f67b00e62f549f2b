package service

// AuthService owns accounts: registration, password login, GitHub login and
// the caller's own profile.
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// Logout has no server side. Tokens are stateless; the client drops its
// session.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/skillswap/internal/apperror"
	"github.com/sakif/skillswap/internal/auth"
	"github.com/sakif/skillswap/internal/model"
	"github.com/sakif/skillswap/internal/repository"
)

// loginFailed is deliberately the same for an unknown email and a wrong
// password.
const loginFailed = "invalid email or password"

// AuthService handles the account business logic.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user and the token issued for them.
type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Registration is the input to Register.
type Registration struct {
	Name     string
	Email    string
	Password string
	Bio      string
}

// ProfileUpdate carries the editable profile fields. Nil means unchanged.
type ProfileUpdate struct {
	Name *string
	Bio  *string
}

// Register creates a member account and signs it in.
func (s *AuthService) Register(ctx context.Context, in Registration) (*AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	bio := strings.TrimSpace(in.Bio)

	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if err := checkLength("name", "name", name, MaxUserNameLength); err != nil {
		return nil, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := checkLength("bio", "bio", bio, MaxBioLength); err != nil {
		return nil, err
	}
	if in.Password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		// Hash only fails on length for valid input.
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be between %d and %d characters", auth.MinPasswordLength, auth.MaxPasswordLength))
	}

	user := &model.User{
		Email:        email,
		Name:         name,
		Bio:          bio,
		Role:         model.RoleMember,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: registering %s: %w", email, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	return s.issue(user)
}

// Login checks an email and password pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("email", "email and password are required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated(loginFailed)
		}
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Info("login rejected", slog.String("userID", user.ID))
			return nil, apperror.Unauthenticated(loginFailed)
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	return s.issue(user)
}

// LoginOrRegisterGitHub signs in the owner of a GitHub profile.
//
// Lookup order:
//  1. an account already linked to this GitHub id
//  2. an account registered with the same email, which gets linked
//  3. otherwise a new member account
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil || ghUser.ID == 0 {
		return nil, fmt.Errorf("service/auth: GitHub user must not be empty")
	}

	user, err := s.users.GetUserByGitHubID(ctx, ghUser.ID)
	switch {
	case err == nil:
		if ghUser.AvatarURL != "" && ghUser.AvatarURL != user.AvatarURL {
			user.AvatarURL = ghUser.AvatarURL
			if err := s.users.UpdateUser(ctx, user); err != nil {
				return nil, fmt.Errorf("service/auth: refreshing avatar for %s: %w", user.ID, err)
			}
		}
	case errors.Is(err, apperror.ErrNotFound):
		user, err = s.linkOrCreateGitHubUser(ctx, ghUser)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("service/auth: looking up GitHub user %d: %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", ghUser.Login),
	)

	return s.issue(user)
}

func (s *AuthService) linkOrCreateGitHubUser(ctx context.Context, ghUser *auth.GitHubUser) (*model.User, error) {
	githubID := ghUser.ID
	email := strings.ToLower(strings.TrimSpace(ghUser.Email))

	if email != "" {
		existing, err := s.users.GetUserByEmail(ctx, email)
		if err == nil {
			existing.GitHubID = &githubID
			if existing.AvatarURL == "" {
				existing.AvatarURL = ghUser.AvatarURL
			}
			if err := s.users.UpdateUser(ctx, existing); err != nil {
				return nil, fmt.Errorf("service/auth: linking GitHub account to %s: %w", existing.ID, err)
			}
			return existing, nil
		}
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
		}
	} else {
		// GitHub's own no-reply address keeps the email column unique.
		email = fmt.Sprintf("%d+%s@users.noreply.github.com", ghUser.ID, strings.ToLower(ghUser.Login))
	}

	user := &model.User{
		Email:     email,
		Name:      ghUser.DisplayName(),
		Role:      model.RoleMember,
		GitHubID:  &githubID,
		AvatarURL: ghUser.AvatarURL,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating GitHub user %d: %w", ghUser.ID, err)
	}
	return user, nil
}

// Profile returns the caller's own account.
func (s *AuthService) Profile(ctx context.Context, actor auth.Identity) (*model.User, error) {
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	return s.users.GetUserByID(ctx, actor.UserID)
}

// UpdateProfile changes the caller's name and/or bio. Email and role are
// not editable here.
func (s *AuthService) UpdateProfile(ctx context.Context, actor auth.Identity, in ProfileUpdate) (*model.User, error) {
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperror.ValidationFailed("name", "name cannot be empty")
		}
		if err := checkLength("name", "name", name, MaxUserNameLength); err != nil {
			return nil, err
		}
		user.Name = name
	}
	if in.Bio != nil {
		bio := strings.TrimSpace(*in.Bio)
		if err := checkLength("bio", "bio", bio, MaxBioLength); err != nil {
			return nil, err
		}
		user.Bio = bio
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: updating profile %s: %w", user.ID, err)
	}

	s.logger.Info("profile updated", slog.String("userID", user.ID))
	return user, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

// normalizeEmail lower-cases a bare address and rejects anything else,
// including display-name forms like "Ann <ann@example.com>".
func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", apperror.ValidationFailed("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperror.ValidationFailed("email", "email address is not valid")
	}
	return email, nil
}
