package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sakif/skillswap/internal/apperror"
	"github.com/sakif/skillswap/internal/auth"
	"github.com/sakif/skillswap/internal/model"
	"github.com/sakif/skillswap/internal/repository"
)

// =========================================================================
// FAKE STORE
// =========================================================================
//
// memStore is an in-memory implementation of all three repository
// interfaces. It mirrors the behaviour the services rely on from SQLite:
// joined display fields, newest-first ordering, cascades on delete and the
// compare-and-set request writes. A mutex makes it safe for the concurrency
// tests.

type memStore struct {
	mu       sync.Mutex
	seq      int
	users    map[string]*model.User
	skills   map[string]*model.Skill
	requests map[string]*model.Request
	order    map[string]int // insertion sequence, for newest-first listings

	// failNext, when set, is returned by the next call and then cleared.
	failNext error
}

var (
	_ repository.UserRepository    = (*memStore)(nil)
	_ repository.SkillRepository   = (*memStore)(nil)
	_ repository.RequestRepository = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]*model.User),
		skills:   make(map[string]*model.Skill),
		requests: make(map[string]*model.Request),
		order:    make(map[string]int),
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	id := fmt.Sprintf("%s-%d", prefix, m.seq)
	m.order[id] = m.seq
	return id
}

func (m *memStore) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

// --- users ---

func (m *memStore) CreateUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	user.Email = strings.ToLower(user.Email)
	for _, u := range m.users {
		if u.Email == user.Email {
			return apperror.Conflict("user", "email already registered")
		}
	}
	if user.Role == "" {
		user.Role = model.RoleMember
	}
	user.ID = m.nextID("user")
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *memStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	out := *u
	return &out, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			out := *u
			return &out, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *memStore) GetUserByGitHubID(_ context.Context, githubID int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.GitHubID != nil && *u.GitHubID == githubID {
			out := *u
			return &out, nil
		}
	}
	return nil, apperror.NotFound("user", fmt.Sprint(githubID))
}

func (m *memStore) UpdateUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	if _, ok := m.users[user.ID]; !ok {
		return apperror.NotFound("user", user.ID)
	}
	user.UpdatedAt = time.Now().UTC()
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *memStore) ListUsers(_ context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.User{}
	for _, u := range m.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return m.order[out[i].ID] > m.order[out[j].ID] })
	return out, nil
}

func (m *memStore) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(m.users, id)
	for sid, s := range m.skills {
		if s.OwnerID == id {
			m.deleteSkillLocked(sid)
		}
	}
	for rid, r := range m.requests {
		if r.RequesterID == id {
			delete(m.requests, rid)
		}
	}
	return nil
}

// --- skills ---

func (m *memStore) CreateSkill(_ context.Context, skill *model.Skill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	if _, ok := m.users[skill.OwnerID]; !ok {
		return apperror.NotFound("user", skill.OwnerID)
	}
	skill.ID = m.nextID("skill")
	skill.CreatedAt = time.Now().UTC()
	skill.UpdatedAt = skill.CreatedAt
	stored := *skill
	m.skills[skill.ID] = &stored
	return nil
}

func (m *memStore) skillView(s *model.Skill) model.Skill {
	out := *s
	if owner, ok := m.users[s.OwnerID]; ok {
		out.OwnerName = owner.Name
	}
	return out
}

func (m *memStore) GetSkillByID(_ context.Context, id string) (*model.Skill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	s, ok := m.skills[id]
	if !ok {
		return nil, apperror.NotFound("skill", id)
	}
	out := m.skillView(s)
	return &out, nil
}

// ListSkills honours the filters the services pass through. Sorting other
// than newest is exercised by the sqlite tests.
func (m *memStore) ListSkills(_ context.Context, filter repository.SkillFilter) ([]model.Skill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	out := []model.Skill{}
	q := strings.ToLower(filter.Query)
	for _, s := range m.skills {
		switch {
		case filter.OwnerID != "" && s.OwnerID != filter.OwnerID:
			continue
		case filter.ExcludeOwner != "" && s.OwnerID == filter.ExcludeOwner:
			continue
		case filter.Category != "" && s.Category != filter.Category:
			continue
		case filter.Level != "" && s.Level != filter.Level:
			continue
		case q != "" && !strings.Contains(strings.ToLower(s.Name+" "+s.Description), q):
			continue
		}
		out = append(out, m.skillView(s))
	}
	sort.Slice(out, func(i, j int) bool { return m.order[out[i].ID] > m.order[out[j].ID] })
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memStore) DeleteSkill(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.skills[id]; !ok {
		return apperror.NotFound("skill", id)
	}
	m.deleteSkillLocked(id)
	return nil
}

func (m *memStore) deleteSkillLocked(id string) {
	delete(m.skills, id)
	for rid, r := range m.requests {
		if r.SkillID == id {
			delete(m.requests, rid)
		}
	}
}

// --- requests ---

func (m *memStore) CreateRequest(_ context.Context, req *model.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	if _, ok := m.skills[req.SkillID]; !ok {
		return apperror.NotFound("skill", req.SkillID)
	}
	req.ID = m.nextID("request")
	req.Status = model.StatusPending
	req.CreatedAt = time.Now().UTC()
	req.UpdatedAt = req.CreatedAt
	stored := *req
	m.requests[req.ID] = &stored
	return nil
}

func (m *memStore) requestView(r *model.Request) model.Request {
	out := *r
	if s, ok := m.skills[r.SkillID]; ok {
		out.SkillName = s.Name
		out.OwnerID = s.OwnerID
	}
	if u, ok := m.users[r.RequesterID]; ok {
		out.RequesterName = u.Name
	}
	return out
}

func (m *memStore) GetRequestByID(_ context.Context, id string) (*model.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	r, ok := m.requests[id]
	if !ok {
		return nil, apperror.NotFound("request", id)
	}
	out := m.requestView(r)
	return &out, nil
}

func (m *memStore) listRequests(keep func(model.Request) bool) []model.Request {
	out := []model.Request{}
	for _, r := range m.requests {
		if v := m.requestView(r); keep(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.order[out[i].ID] > m.order[out[j].ID] })
	return out
}

func (m *memStore) ListRequestsByOwner(_ context.Context, ownerID string) ([]model.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listRequests(func(r model.Request) bool { return r.OwnerID == ownerID }), nil
}

func (m *memStore) ListRequestsByRequester(_ context.Context, requesterID string) ([]model.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listRequests(func(r model.Request) bool { return r.RequesterID == requesterID }), nil
}

func (m *memStore) ListRequests(_ context.Context) ([]model.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listRequests(func(model.Request) bool { return true }), nil
}

func (m *memStore) TransitionRequest(_ context.Context, id string, to model.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return false, err
	}
	r, ok := m.requests[id]
	if !ok || r.Status != model.StatusPending {
		return false, nil
	}
	r.Status = to
	r.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *memStore) DeletePendingRequest(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return false, err
	}
	r, ok := m.requests[id]
	if !ok || r.Status != model.StatusPending {
		return false, nil
	}
	delete(m.requests, id)
	return true, nil
}

func (m *memStore) DeleteRequest(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[id]; !ok {
		return apperror.NotFound("request", id)
	}
	delete(m.requests, id)
	return nil
}

// =========================================================================
// HELPERS
// =========================================================================

var errDiskFull = errors.New("disk full")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// addUser stores a user directly and returns its identity.
func addUser(t *testing.T, store *memStore, name string, role model.Role) auth.Identity {
	t.Helper()
	u := &model.User{Name: name, Email: strings.ToLower(name) + "@example.com", Role: role}
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%s): %v", name, err)
	}
	return auth.Identity{UserID: u.ID, Role: u.Role}
}

// addSkill stores a skill directly.
func addSkill(t *testing.T, store *memStore, owner auth.Identity, name string) *model.Skill {
	t.Helper()
	s := &model.Skill{
		OwnerID:     owner.UserID,
		Name:        name,
		Description: "Learn " + name,
		Category:    model.CategoryProgramming,
		Level:       model.LevelBeginner,
	}
	if err := store.CreateSkill(context.Background(), s); err != nil {
		t.Fatalf("CreateSkill(%s): %v", name, err)
	}
	return s
}
