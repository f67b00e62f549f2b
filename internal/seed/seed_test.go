package seed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/skillswap/internal/auth"
	"github.com/sakif/skillswap/internal/model"
	"github.com/sakif/skillswap/internal/repository"
	"github.com/sakif/skillswap/internal/repository/sqlite"
)

func TestRun(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	passwords := auth.NewPasswordServiceWithCost(bcrypt.MinCost)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	res, err := Run(ctx, db, passwords, logger)
	require.NoError(t, err)
	assert.Equal(t, Result{Users: 4, Skills: 6, Requests: 3}, res)

	admin, err := db.GetUserByEmail(ctx, AdminEmail)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)
	assert.NoError(t, passwords.Verify(admin.PasswordHash, AdminPassword))

	john, err := db.GetUserByEmail(ctx, "john@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, john.Role)
	assert.NoError(t, passwords.Verify(john.PasswordHash, MemberPassword))

	all, err := db.ListRequests(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	statuses := map[string]model.Status{}
	for _, r := range all {
		statuses[r.SkillName] = r.Status
		assert.NotEqual(t, r.OwnerID, r.RequesterID)
	}
	assert.Equal(t, map[string]model.Status{
		"React Development": model.StatusPending,
		"UI/UX Design":      model.StatusAccepted,
		"Guitar Lessons":    model.StatusPending,
	}, statuses)

	t.Run("second run is a no-op", func(t *testing.T) {
		again, err := Run(ctx, db, passwords, logger)
		require.NoError(t, err)
		assert.True(t, again.Skipped)

		users, err := db.ListUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 4)
	})
}

var errRequestsDown = errors.New("requests table unavailable")

// requestsDown lets users and skills through and fails every request insert.
type requestsDown struct {
	*sqlite.DB
}

func (requestsDown) CreateRequest(context.Context, *model.Request) error {
	return errRequestsDown
}

func TestRun_FailureLeavesNothingBehind(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	passwords := auth.NewPasswordServiceWithCost(bcrypt.MinCost)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	res, err := Run(ctx, requestsDown{db}, passwords, logger)
	require.ErrorIs(t, err, errRequestsDown)
	assert.Equal(t, Result{}, res)

	users, err := db.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	skills, err := db.ListSkills(ctx, repository.SkillFilter{})
	require.NoError(t, err)
	assert.Empty(t, skills)

	// With no admin left behind, the next run seeds from scratch.
	res, err = Run(ctx, db, passwords, logger)
	require.NoError(t, err)
	assert.Equal(t, Result{Users: 4, Skills: 6, Requests: 3}, res)
}
