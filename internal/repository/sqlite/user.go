package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/xid"

	"github.com/sakif/skillswap/internal/apperror"
	"github.com/sakif/skillswap/internal/model"
	"github.com/sakif/skillswap/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, email, name, bio, role, password_hash, github_id, avatar_url, created_at, updated_at`

// CreateUser inserts a new user, generating its ID and timestamps.
// Emails are stored lower-cased; a duplicate email or GitHub ID returns
// apperror.ErrConflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	return db.observe(ctx, "users.create", func(ctx context.Context) error {
		now := time.Now().UTC()
		user.ID = xid.New().String()
		user.Email = strings.ToLower(strings.TrimSpace(user.Email))
		user.CreatedAt = now
		user.UpdatedAt = now
		if user.Role == "" {
			user.Role = model.RoleMember
		}

		query, args, err := sq.Insert("users").
			Columns("id", "email", "name", "bio", "role", "password_hash", "github_id", "avatar_url", "created_at", "updated_at").
			Values(user.ID, user.Email, user.Name, user.Bio, user.Role, user.PasswordHash, user.GitHubID, user.AvatarURL, user.CreatedAt, user.UpdatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("sqlite: building user insert: %w", err)
		}

		if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("user", "email already registered")
			}
			return fmt.Errorf("sqlite: inserting user (email=%s): %w", user.Email, err)
		}
		return nil
	})
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, "users.get_by_id", "id", id, id)
}

// GetUserByEmail looks a user up by email, ignoring case.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return db.getUser(ctx, "users.get_by_email", "email", email, email)
}

// GetUserByGitHubID finds the account linked to a GitHub user.
func (db *DB) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	return db.getUser(ctx, "users.get_by_github_id", "github_id", githubID, fmt.Sprint(githubID))
}

func (db *DB) getUser(ctx context.Context, operation, column string, value any, label string) (*model.User, error) {
	var u model.User
	err := db.observe(ctx, operation, func(ctx context.Context) error {
		err := db.conn.GetContext(ctx, &u,
			`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("user", label)
		}
		if err != nil {
			return fmt.Errorf("sqlite: getting user %s: %w", label, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUser saves the mutable profile fields: name, bio, avatar, GitHub link
// and role. Email and password hash are left alone.
func (db *DB) UpdateUser(ctx context.Context, user *model.User) error {
	return db.observe(ctx, "users.update", func(ctx context.Context) error {
		user.UpdatedAt = time.Now().UTC()

		result, err := db.conn.ExecContext(ctx,
			`UPDATE users
			 SET name = ?, bio = ?, avatar_url = ?, github_id = ?, role = ?, updated_at = ?
			 WHERE id = ?`,
			user.Name,
			user.Bio,
			user.AvatarURL,
			user.GitHubID,
			user.Role,
			user.UpdatedAt,
			user.ID,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("user", "GitHub account already linked to another user")
			}
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
		return expectOneRow(result, "user", user.ID)
	})
}

// ListUsers returns every account, newest first.
func (db *DB) ListUsers(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	err := db.observe(ctx, "users.list", func(ctx context.Context) error {
		if err := db.conn.SelectContext(ctx, &users,
			`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`); err != nil {
			return fmt.Errorf("sqlite: listing users: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// DeleteUser removes a user. Their skills, the requests on those skills and
// the requests they sent go with them through ON DELETE CASCADE.
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	return db.observe(ctx, "users.delete", func(ctx context.Context) error {
		result, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
		}
		return expectOneRow(result, "user", id)
	})
}

// expectOneRow turns "zero rows affected" into a NotFound error.
func expectOneRow(result sql.Result, resource, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
