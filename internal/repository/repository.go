// Package repository declares the storage interfaces the service layer
// depends on. The sqlite subpackage implements all of them on one *DB.
package repository

import (
	"context"

	"github.com/sakif/skillswap/internal/model"
)

// ListOptions pages a listing. Limit <= 0 means no limit.
type ListOptions struct {
	Limit  int
	Offset int
}

// SkillSort orders a skill listing.
type SkillSort string

const (
	SortNewest   SkillSort = "newest"
	SortOldest   SkillSort = "oldest"
	SortName     SkillSort = "name"
	SortCategory SkillSort = "category"
)

func (s SkillSort) Valid() bool {
	switch s {
	case SortNewest, SortOldest, SortName, SortCategory:
		return true
	}
	return false
}

// SkillFilter narrows a skill listing. Zero values mean "no constraint".
type SkillFilter struct {
	Query        string // substring of name or description, case-insensitive
	Category     model.Category
	Level        model.Level
	OwnerID      string // only this owner's skills
	ExcludeOwner string // everything except this owner's skills
	Sort         SkillSort
	ListOptions
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	ListUsers(ctx context.Context) ([]model.User, error)
	DeleteUser(ctx context.Context, id string) error
}

type SkillRepository interface {
	CreateSkill(ctx context.Context, skill *model.Skill) error
	GetSkillByID(ctx context.Context, id string) (*model.Skill, error)
	ListSkills(ctx context.Context, filter SkillFilter) ([]model.Skill, error)
	DeleteSkill(ctx context.Context, id string) error
}

// RequestRepository stores learning requests.
//
// TransitionRequest and DeletePendingRequest are compare-and-set operations:
// they only touch the row while its status is still pending and report
// whether they did, so two concurrent decisions can never both win.
type RequestRepository interface {
	CreateRequest(ctx context.Context, req *model.Request) error
	GetRequestByID(ctx context.Context, id string) (*model.Request, error)
	ListRequestsByOwner(ctx context.Context, ownerID string) ([]model.Request, error)
	ListRequestsByRequester(ctx context.Context, requesterID string) ([]model.Request, error)
	ListRequests(ctx context.Context) ([]model.Request, error)
	TransitionRequest(ctx context.Context, id string, to model.Status) (bool, error)
	DeletePendingRequest(ctx context.Context, id string) (bool, error)
	DeleteRequest(ctx context.Context, id string) error
}
