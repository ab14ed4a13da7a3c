package service

import (
	"context"
	"sync"
	"time"

	"github.com/cauth/cauth/internal/auth"
	"github.com/cauth/cauth/internal/domain"
	"github.com/cauth/cauth/internal/storage"
)

// In-memory fakes standing in for internal/storage/postgres, so the
// service layer and Event Engine can be exercised without a database.
// The permission and group cascades are implemented by hand here the way
// the postgres implementation implements them with SQL, so tests double as
// a contract check on the cascade behavior §4.3/§4.4 require (P6). The fake
// user Delete drops the user's group memberships but leaves its sessions
// in place.

type fakePermissionRepo struct {
	mu       sync.Mutex
	store    map[string]domain.Permission
	onDelete func(name string) // wired to the group repo's cascade
}

func newFakePermissionRepo() *fakePermissionRepo {
	return &fakePermissionRepo{store: map[string]domain.Permission{}}
}

func (f *fakePermissionRepo) List(ctx context.Context, page storage.ListPage) ([]domain.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Permission, 0, len(f.store))
	for _, p := range f.store {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePermissionRepo) Retrieve(ctx context.Context, name string) (*domain.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.store[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (f *fakePermissionRepo) Insert(ctx context.Context, perm *domain.Permission) error {
	if err := perm.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.store[perm.Name]; ok {
		return domain.ErrNameConflict
	}
	f.store[perm.Name] = *perm
	return nil
}

// Delete cascades to every group's grant of name (§4.3), mirroring the
// postgres repository's runCascade transaction.
func (f *fakePermissionRepo) Delete(ctx context.Context, name string) error {
	f.mu.Lock()
	if _, ok := f.store[name]; !ok {
		f.mu.Unlock()
		return domain.ErrNotFound
	}
	delete(f.store, name)
	f.mu.Unlock()

	if f.onDelete != nil {
		f.onDelete(name)
	}
	return nil
}

type fakeGroupRepo struct {
	mu         sync.Mutex
	store      map[string]domain.Group
	permission *fakePermissionRepo
	onDelete   func(name string) // wired to the user repo's cascade
}

func newFakeGroupRepo(perms *fakePermissionRepo) *fakeGroupRepo {
	return &fakeGroupRepo{store: map[string]domain.Group{}, permission: perms}
}

func (f *fakeGroupRepo) List(ctx context.Context, page storage.ListPage) ([]domain.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Group, 0, len(f.store))
	for _, g := range f.store {
		out = append(out, g)
	}
	return out, nil
}

func (f *fakeGroupRepo) Retrieve(ctx context.Context, name string) (*domain.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.store[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &g, nil
}

func (f *fakeGroupRepo) Insert(ctx context.Context, group *domain.Group) error {
	if err := group.Validate(); err != nil {
		return err
	}
	for _, p := range group.Permissions {
		if _, err := f.permission.Retrieve(ctx, p); err != nil {
			return domain.ErrNameError
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.store[group.Name]; ok {
		return domain.ErrNameConflict
	}
	f.store[group.Name] = *group
	return nil
}

// Delete cascades to every user's membership of name (§4.4).
func (f *fakeGroupRepo) Delete(ctx context.Context, name string) error {
	f.mu.Lock()
	if _, ok := f.store[name]; !ok {
		f.mu.Unlock()
		return domain.ErrNotFound
	}
	delete(f.store, name)
	f.mu.Unlock()

	if f.onDelete != nil {
		f.onDelete(name)
	}
	return nil
}

func (f *fakeGroupRepo) GrantPermission(ctx context.Context, group, permission string) error {
	if _, err := f.permission.Retrieve(ctx, permission); err != nil {
		return domain.ErrNameError
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.store[group]
	if !ok {
		return domain.ErrNameError
	}
	for _, p := range g.Permissions {
		if p == permission {
			return domain.ErrNameError
		}
	}
	g.Permissions = append(g.Permissions, permission)
	f.store[group] = g
	return nil
}

func (f *fakeGroupRepo) RevokePermission(ctx context.Context, group, permission string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.store[group]
	if !ok {
		return domain.ErrNameError
	}
	for i, p := range g.Permissions {
		if p == permission {
			g.Permissions = append(g.Permissions[:i], g.Permissions[i+1:]...)
			f.store[group] = g
			return nil
		}
	}
	return domain.ErrNameError
}

// permissionDeleted mimics the postgres cascade: remove every group's
// grant of name.
func (f *fakeGroupRepo) permissionDeleted(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for gname, g := range f.store {
		for i, p := range g.Permissions {
			if p == name {
				g.Permissions = append(g.Permissions[:i], g.Permissions[i+1:]...)
				f.store[gname] = g
				break
			}
		}
	}
}

type fakeUserRepo struct {
	mu    sync.Mutex
	store map[string]domain.User
	group map[string]map[string]bool // login -> set of group names
	groups *fakeGroupRepo
}

func newFakeUserRepo(groups *fakeGroupRepo) *fakeUserRepo {
	return &fakeUserRepo{store: map[string]domain.User{}, group: map[string]map[string]bool{}, groups: groups}
}

func (f *fakeUserRepo) List(ctx context.Context, page storage.ListPage) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.User, 0, len(f.store))
	for _, u := range f.store {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUserRepo) withGroups(u domain.User) domain.User {
	for gname := range f.group[u.Login] {
		if g, err := f.groups.Retrieve(context.Background(), gname); err == nil {
			u.Groups = append(u.Groups, *g)
		}
	}
	return u
}

func (f *fakeUserRepo) Retrieve(ctx context.Context, login string) (*domain.User, error) {
	f.mu.Lock()
	u, ok := f.store[login]
	f.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	u = f.withGroups(u)
	return &u, nil
}

func (f *fakeUserRepo) Insert(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.store[user.Login]; ok {
		return domain.ErrNameConflict
	}
	f.store[user.Login] = *user
	f.group[user.Login] = map[string]bool{}
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, login string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.store[login]; !ok {
		return domain.ErrNotFound
	}
	delete(f.store, login)
	delete(f.group, login)
	return nil
}

func (f *fakeUserRepo) Authenticate(ctx context.Context, login, password string) (*domain.User, error) {
	user, err := f.Retrieve(ctx, login)
	if err != nil {
		return nil, err
	}
	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (f *fakeUserRepo) GrantGroup(ctx context.Context, login, group string) error {
	if _, err := f.groups.Retrieve(ctx, group); err != nil {
		return domain.ErrNameError
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.store[login]; !ok {
		return domain.ErrNameError
	}
	f.group[login][group] = true
	return nil
}

func (f *fakeUserRepo) RevokeGroup(ctx context.Context, login, group string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.group[login][group]; !ok {
		return domain.ErrNameError
	}
	delete(f.group[login], group)
	return nil
}

func (f *fakeUserRepo) HasPermission(ctx context.Context, login, required string) (bool, error) {
	user, err := f.Retrieve(ctx, login)
	if err != nil {
		if err == domain.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return user.HasPermission(required), nil
}

// groupDeleted mimics the postgres cascade: drop every user's membership.
func (f *fakeUserRepo) groupDeleted(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, memberships := range f.group {
		delete(memberships, name)
	}
}

type fakeSessionRepo struct {
	mu    sync.Mutex
	store map[string]domain.Session
	users *fakeUserRepo
}

func newFakeSessionRepo(users *fakeUserRepo) *fakeSessionRepo {
	return &fakeSessionRepo{store: map[string]domain.Session{}, users: users}
}

func (f *fakeSessionRepo) Create(ctx context.Context, userLogin string, status domain.SessionStatus, ttl time.Duration) (*domain.Session, error) {
	token, err := domain.GenerateSessionToken()
	if err != nil {
		return nil, err
	}
	s := domain.Session{Token: token, UserLogin: userLogin, Status: status, ExpiresAt: time.Now().Add(ttl)}
	f.mu.Lock()
	f.store[token] = s
	f.mu.Unlock()
	return &s, nil
}

func (f *fakeSessionRepo) Retrieve(ctx context.Context, token string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.store[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (f *fakeSessionRepo) Activate(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.store[token]
	if !ok {
		return domain.ErrNotFound
	}
	s.Activate()
	f.store[token] = s
	return nil
}

func (f *fakeSessionRepo) Revoke(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.store[token]
	if !ok {
		return domain.ErrNotFound
	}
	s.Revoke()
	f.store[token] = s
	return nil
}

func (f *fakeSessionRepo) HasPermission(ctx context.Context, token, required string) (bool, error) {
	session, err := f.Retrieve(ctx, token)
	if err != nil {
		if err == domain.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	if !session.Usable(time.Now()) {
		return false, nil
	}
	return f.users.HasPermission(ctx, session.UserLogin, required)
}

type fakeEventRepo struct {
	mu     sync.Mutex
	nextID int64
	store  map[int64]domain.PendingEvent
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{store: map[int64]domain.PendingEvent{}}
}

func (f *fakeEventRepo) Create(ctx context.Context, event *domain.PendingEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	event.ID = f.nextID
	event.Status = domain.EventPending
	event.CreatedAt = time.Now()
	f.store[event.ID] = *event
	return nil
}

func (f *fakeEventRepo) Retrieve(ctx context.Context, id int64) (*domain.PendingEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

func (f *fakeEventRepo) List(ctx context.Context, page storage.ListPage) ([]domain.PendingEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.PendingEvent, 0, len(f.store))
	for _, e := range f.store {
		if e.IsPending() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEventRepo) RetrieveForUpdate(ctx context.Context, id int64) (*domain.PendingEvent, error) {
	return f.Retrieve(ctx, id)
}

func (f *fakeEventRepo) UpdateStatus(ctx context.Context, id int64, status domain.EventStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Status = status
	f.store[id] = e
	return nil
}

// fakeTransactor just runs fn against the incoming context: the fakes
// above have no notion of rollback, so there is nothing to wrap.
type fakeTransactor struct{}

func (fakeTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (p *fakePublisher) Publish(ctx context.Context, e domain.AuditEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) PublishBatch(ctx context.Context, es []domain.AuditEvent) error {
	for _, e := range es {
		_ = p.Publish(ctx, e)
	}
	return nil
}

func (p *fakePublisher) Close() error { return nil }

// testHarness wires every fake together plus a real Event Engine, mirroring
// how cmd/server/main.go wires the postgres-backed repositories.
type testHarness struct {
	permissions *fakePermissionRepo
	groups      *fakeGroupRepo
	users       *fakeUserRepo
	sessions    *fakeSessionRepo
	eventsRepo  *fakeEventRepo
	publisher   *fakePublisher
	engine      *EventEngine
}

func newTestHarness() *testHarness {
	permissions := newFakePermissionRepo()
	groups := newFakeGroupRepo(permissions)
	users := newFakeUserRepo(groups)
	sessions := newFakeSessionRepo(users)
	events := newFakeEventRepo()
	publisher := &fakePublisher{}

	permissions.onDelete = groups.permissionDeleted
	groups.onDelete = users.groupDeleted

	repos := &storage.Repositories{
		Permissions: permissions,
		Groups:      groups,
		Users:       users,
		Sessions:    sessions,
		Events:      events,
	}

	return &testHarness{
		permissions: permissions,
		groups:      groups,
		users:       users,
		sessions:    sessions,
		eventsRepo:  events,
		publisher:   publisher,
		engine:      NewEventEngine(repos, fakeTransactor{}, publisher, time.Hour, false),
	}
}
