package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/skillswap/internal/apperror"
	"github.com/sakif/skillswap/internal/auth"
	"github.com/sakif/skillswap/internal/model"
)

func newTestModeration(t *testing.T) (*ModerationService, *LifecycleService, *memStore) {
	t.Helper()
	store := newMemStore()
	return NewModerationService(store, store, store, quietLogger()),
		NewLifecycleService(store, store, quietLogger()),
		store
}

func TestModeration_RequiresAdmin(t *testing.T) {
	svc, _, store := newTestModeration(t)
	member := addUser(t, store, "Ann", model.RoleMember)
	ctx := context.Background()

	calls := map[string]func(auth.Identity) error{
		"ListUsers":     func(a auth.Identity) error { _, err := svc.ListUsers(ctx, a); return err },
		"GetUser":       func(a auth.Identity) error { _, err := svc.GetUser(ctx, a, member.UserID); return err },
		"ListSkills":    func(a auth.Identity) error { _, err := svc.ListSkills(ctx, a); return err },
		"GetSkill":      func(a auth.Identity) error { _, err := svc.GetSkill(ctx, a, "x"); return err },
		"ListRequests":  func(a auth.Identity) error { _, err := svc.ListRequests(ctx, a); return err },
		"GetRequest":    func(a auth.Identity) error { _, err := svc.GetRequest(ctx, a, "x"); return err },
		"DeleteUser":    func(a auth.Identity) error { return svc.DeleteUser(ctx, a, member.UserID) },
		"DeleteSkill":   func(a auth.Identity) error { return svc.DeleteSkill(ctx, a, "x") },
		"DeleteRequest": func(a auth.Identity) error { return svc.DeleteRequest(ctx, a, "x") },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			if err := call(member); !errors.Is(err, apperror.ErrForbidden) {
				t.Errorf("member error = %v, want ErrForbidden", err)
			}
			if err := call(auth.Identity{}); !errors.Is(err, apperror.ErrUnauthenticated) {
				t.Errorf("anonymous error = %v, want ErrUnauthenticated", err)
			}
		})
	}

	if _, ok := store.users[member.UserID]; !ok {
		t.Error("member was deleted by a non-admin")
	}
}

func TestModeration_Listings(t *testing.T) {
	svc, lifecycle, store := newTestModeration(t)
	admin := addUser(t, store, "Root", model.RoleAdmin)
	ann := addUser(t, store, "Ann", model.RoleMember)
	bob := addUser(t, store, "Bob", model.RoleMember)
	skill := addSkill(t, store, ann, "Python Basics")
	req, err := lifecycle.Create(context.Background(), bob, skill.ID, "teach me")
	if err != nil {
		t.Fatalf("Create request: %v", err)
	}

	users, err := svc.ListUsers(context.Background(), admin)
	if err != nil || len(users) != 3 {
		t.Fatalf("ListUsers() = %d users, %v", len(users), err)
	}
	skills, err := svc.ListSkills(context.Background(), admin)
	if err != nil || len(skills) != 1 {
		t.Fatalf("ListSkills() = %d skills, %v", len(skills), err)
	}
	requests, err := svc.ListRequests(context.Background(), admin)
	if err != nil || len(requests) != 1 {
		t.Fatalf("ListRequests() = %d requests, %v", len(requests), err)
	}

	got, err := svc.GetRequest(context.Background(), admin, req.ID)
	if err != nil {
		t.Fatalf("GetRequest() error = %v", err)
	}
	if got.RequesterName != "Bob" {
		t.Errorf("RequesterName = %q", got.RequesterName)
	}
	if _, err := svc.GetUser(context.Background(), admin, "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUser(missing) error = %v, want ErrNotFound", err)
	}
}

func TestModerationDeleteUser_NotSelf(t *testing.T) {
	svc, _, store := newTestModeration(t)
	admin := addUser(t, store, "Root", model.RoleAdmin)

	if err := svc.DeleteUser(context.Background(), admin, admin.UserID); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("error = %v, want ErrForbidden", err)
	}
	if _, ok := store.users[admin.UserID]; !ok {
		t.Error("admin deleted their own account")
	}
}

func TestModerationDeleteUser_Cascades(t *testing.T) {
	svc, lifecycle, store := newTestModeration(t)
	admin := addUser(t, store, "Root", model.RoleAdmin)
	ann := addUser(t, store, "Ann", model.RoleMember)
	bob := addUser(t, store, "Bob", model.RoleMember)

	annSkill := addSkill(t, store, ann, "Python Basics")
	bobSkill := addSkill(t, store, bob, "Guitar")
	if _, err := lifecycle.Create(context.Background(), bob, annSkill.ID, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := lifecycle.Create(context.Background(), ann, bobSkill.ID, ""); err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteUser(context.Background(), admin, ann.UserID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}

	if len(store.skills) != 1 {
		t.Errorf("skills left = %d, want only Bob's", len(store.skills))
	}
	if len(store.requests) != 0 {
		t.Errorf("requests left = %d, want 0 (one on Ann's skill, one sent by Ann)", len(store.requests))
	}
	if err := svc.DeleteUser(context.Background(), admin, ann.UserID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second DeleteUser() error = %v, want ErrNotFound", err)
	}
}

func TestModerationDeleteRequest_IgnoresStatus(t *testing.T) {
	svc, lifecycle, store := newTestModeration(t)
	admin := addUser(t, store, "Root", model.RoleAdmin)
	ann := addUser(t, store, "Ann", model.RoleMember)
	bob := addUser(t, store, "Bob", model.RoleMember)
	skill := addSkill(t, store, ann, "Python Basics")

	req, err := lifecycle.Create(context.Background(), bob, skill.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := lifecycle.Accept(context.Background(), ann, req.ID); err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteRequest(context.Background(), admin, req.ID); err != nil {
		t.Fatalf("DeleteRequest() error = %v", err)
	}
	if err := svc.DeleteSkill(context.Background(), admin, skill.ID); err != nil {
		t.Fatalf("DeleteSkill() error = %v", err)
	}
	if err := svc.DeleteSkill(context.Background(), admin, skill.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second DeleteSkill() error = %v, want ErrNotFound", err)
	}
}
