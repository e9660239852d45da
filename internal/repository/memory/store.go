// Package memory is an in-process Store used by tests and STORE=memory runs.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/crowdfund-backend/internal/models"
	repo "github.com/baharkarakas/crowdfund-backend/internal/repository"
)

type state struct {
	mu       sync.RWMutex
	users    map[string]models.User
	projects map[string]models.Project
	audit    []models.AuditLog
}

func newState() *state {
	return &state{users: map[string]models.User{}, projects: map[string]models.Project{}}
}

func (s *state) clone() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := newState()
	for k, v := range s.users {
		c.users[k] = copyUser(v)
	}
	for k, v := range s.projects {
		c.projects[k] = copyProject(v)
	}
	c.audit = append([]models.AuditLog(nil), s.audit...)
	return c
}

// adopt publishes the contents of a committed working copy.
func (s *state) adopt(w *state) {
	s.mu.Lock()
	s.users, s.projects, s.audit = w.users, w.projects, w.audit
	s.mu.Unlock()
}

// Store keeps a single live state. Writes through Repos and whole transactions
// are serialized on writeMu, so a commit never overwrites a concurrent write.
type Store struct {
	writeMu sync.Mutex
	live    *state
}

func NewStore() *Store {
	return &Store{live: newState()}
}

func (s *Store) Repos() repo.Repos {
	return reposFor(s.live, gate{&s.writeMu})
}

// WithinTx runs fn on a private copy of the data and publishes it only if fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(repo.Repos) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	work := s.live.clone()
	if err := fn(reposFor(work, gate{})); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.live.adopt(work)
	return nil
}

// gate serializes a write with transactions. The zero gate is used inside a
// transaction, which already holds the lock.
type gate struct{ mu *sync.Mutex }

func (g gate) hold() func() {
	if g.mu == nil {
		return func() {}
	}
	g.mu.Lock()
	return g.mu.Unlock
}

func reposFor(st *state, g gate) repo.Repos {
	return repo.Repos{
		Users:     &usersRepo{st, g},
		Projects:  &projectsRepo{st, g},
		AuditLogs: &auditLogsRepo{st, g},
	}
}

func copyUser(u models.User) models.User {
	u.Roles = u.Roles.Clone()
	if u.ResetTokenExpiry != nil {
		t := *u.ResetTokenExpiry
		u.ResetTokenExpiry = &t
	}
	return u
}

func copyProject(p models.Project) models.Project {
	if p.Budget != nil {
		p.Budget = append([]models.BudgetLineItem(nil), p.Budget...)
	}
	if p.DueDate != nil {
		t := *p.DueDate
		p.DueDate = &t
	}
	return p
}

// ---------- users ----------

type usersRepo struct {
	st *state
	gate
}

func (r *usersRepo) Create(_ context.Context, u *models.User) error {
	defer r.hold()()
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, existing := range r.st.users {
		if existing.Email == u.Email {
			return repo.ErrDuplicate
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	r.st.users[u.ID] = copyUser(*u)
	return nil
}

func (r *usersRepo) GetByID(_ context.Context, id string) (models.User, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	u, ok := r.st.users[id]
	if !ok {
		return models.User{}, repo.ErrNotFound
	}
	return copyUser(u), nil
}

func (r *usersRepo) find(match func(models.User) bool) (models.User, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	for _, u := range r.st.users {
		if match(u) {
			return copyUser(u), nil
		}
	}
	return models.User{}, repo.ErrNotFound
}

func (r *usersRepo) GetByEmail(_ context.Context, email string) (models.User, error) {
	return r.find(func(u models.User) bool { return u.Email == email })
}

func (r *usersRepo) GetByResetToken(_ context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, repo.ErrNotFound
	}
	return r.find(func(u models.User) bool { return u.PasswordResetToken == token })
}

func (r *usersRepo) List(_ context.Context, f models.UserFilter) ([]models.User, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	var out []models.User
	for _, u := range r.st.users {
		if f.Match(u) {
			out = append(out, copyUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *usersRepo) Update(_ context.Context, u *models.User) error {
	defer r.hold()()
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	prev, ok := r.st.users[u.ID]
	if !ok {
		return repo.ErrNotFound
	}
	for id, other := range r.st.users {
		if id != u.ID && other.Email == u.Email {
			return repo.ErrDuplicate
		}
	}
	u.CreatedAt = prev.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	r.st.users[u.ID] = copyUser(*u)
	return nil
}

func (r *usersRepo) Delete(_ context.Context, id string) error {
	defer r.hold()()
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.users[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.st.users, id)
	return nil
}

// ---------- projects ----------

type projectsRepo struct {
	st *state
	gate
}

func (r *projectsRepo) slugTaken(slug, exceptID string) bool {
	for id, p := range r.st.projects {
		if id != exceptID && p.Slug == slug {
			return true
		}
	}
	return false
}

func (r *projectsRepo) Create(_ context.Context, p *models.Project) error {
	defer r.hold()()
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.slugTaken(p.Slug, "") {
		return repo.ErrDuplicate
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Budget == nil {
		p.Budget = []models.BudgetLineItem{}
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	r.st.projects[p.ID] = copyProject(*p)
	return nil
}

func (r *projectsRepo) GetByID(_ context.Context, id string) (models.Project, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	p, ok := r.st.projects[id]
	if !ok {
		return models.Project{}, repo.ErrNotFound
	}
	return copyProject(p), nil
}

func (r *projectsRepo) List(_ context.Context, f models.ProjectFilter) ([]models.Project, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	out := []models.Project{}
	for _, p := range r.st.projects {
		if f.Match(p) {
			out = append(out, copyProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *projectsRepo) Update(_ context.Context, p *models.Project) error {
	defer r.hold()()
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	prev, ok := r.st.projects[p.ID]
	if !ok {
		return repo.ErrNotFound
	}
	if r.slugTaken(p.Slug, p.ID) {
		return repo.ErrDuplicate
	}
	p.CreatedAt = prev.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	r.st.projects[p.ID] = copyProject(*p)
	return nil
}

func (r *projectsRepo) Delete(_ context.Context, f models.ProjectFilter) ([]models.Project, error) {
	defer r.hold()()
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	out := []models.Project{}
	for id, p := range r.st.projects {
		if f.Match(p) {
			out = append(out, p)
			delete(r.st.projects, id)
		}
	}
	return out, nil
}

func (r *projectsRepo) DeleteByOwner(ctx context.Context, ownerID string) ([]models.Project, error) {
	if ownerID == "" {
		return []models.Project{}, nil
	}
	return r.Delete(ctx, models.ProjectFilter{OwnerID: ownerID})
}

// ---------- audit logs ----------

type auditLogsRepo struct {
	st *state
	gate
}

func (r *auditLogsRepo) Create(_ context.Context, l *models.AuditLog) error {
	defer r.hold()()
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = time.Now().UTC()
	c := *l
	c.Details = maps.Clone(l.Details)
	r.st.audit = append(r.st.audit, c)
	return nil
}

func (r *auditLogsRepo) List(_ context.Context, f models.AuditFilter) ([]models.AuditLog, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	out := []models.AuditLog{}
	for i := len(r.st.audit) - 1; i >= 0; i-- {
		if l := r.st.audit[i]; f.Match(l) {
			l.Details = maps.Clone(l.Details)
			out = append(out, l)
		}
	}
	return out, nil
}
