package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/globalbi/admin-api/internal/core/domain"
)

// memStore is an in-memory backend shared by the service tests. It enforces
// the same uniqueness rules the real stores do.
type memStore struct {
	mu      sync.Mutex
	seq     int
	users   map[string]*memUser
	roles   map[string]*domain.Role
	groups  map[string]*domain.Group
	members map[string]*domain.Membership // key: groupID/userID
}

type memUser struct {
	seq          int
	user         domain.SafeUser
	roleID       string
	passwordHash string
	refreshHash  *string
}

func newMemStore() *memStore {
	return &memStore{
		users:   make(map[string]*memUser),
		roles:   make(map[string]*domain.Role),
		groups:  make(map[string]*domain.Group),
		members: make(map[string]*domain.Membership),
	}
}

func (s *memStore) nextID(prefix string) (string, int) {
	s.seq++
	return fmt.Sprintf("%s-%04d", prefix, s.seq), s.seq
}

func (s *memStore) usersRepo() *memUsers { return &memUsers{s} }
func (s *memStore) rolesRepo() *memRoles { return &memRoles{s} }
func (s *memStore) groupsRepo() *memGroups { return &memGroups{s} }

// seedRoles inserts the default roles and returns them by name.
func (s *memStore) seedRoles() map[string]*domain.Role {
	out := make(map[string]*domain.Role)
	for _, r := range domain.DefaultRoles() {
		created, err := s.rolesRepo().Create(context.Background(), r)
		if err != nil {
			panic(err)
		}
		out[created.Name] = created
	}
	return out
}

func (s *memStore) view(u *memUser) domain.SafeUser {
	v := u.user
	if r, ok := s.roles[u.roleID]; ok {
		v.Role = r.Ref()
	}
	return v
}

type memUsers struct{ s *memStore }

func (r *memUsers) Create(_ context.Context, nu domain.NewUser) (*domain.SafeUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.create(nu)
}

func (r *memUsers) CreateFirst(_ context.Context, nu domain.NewUser) (*domain.SafeUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if len(r.s.users) > 0 {
		return nil, domain.ErrAlreadyBootstrapped
	}
	return r.create(nu)
}

func (r *memUsers) create(nu domain.NewUser) (*domain.SafeUser, error) {
	for _, u := range r.s.users {
		if u.user.Email == nu.Email {
			return nil, domain.ErrEmailTaken
		}
		if u.user.Username == nu.Username {
			return nil, domain.ErrUsernameTaken
		}
	}
	if _, ok := r.s.roles[nu.RoleID]; !ok {
		return nil, domain.ErrRoleNotFound
	}
	id, seq := r.s.nextID("user")
	now := time.Now()
	u := &memUser{
		seq:          seq,
		user:         domain.SafeUser{ID: id, Name: nu.Name, Username: nu.Username, Email: nu.Email, CreatedAt: now, UpdatedAt: now},
		roleID:       nu.RoleID,
		passwordHash: nu.PasswordHash,
	}
	r.s.users[id] = u
	v := r.s.view(u)
	return &v, nil
}

func (r *memUsers) find(match func(*memUser) bool) (*memUser, error) {
	for _, u := range r.s.users {
		if match(u) {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memUsers) safe(match func(*memUser) bool) (*domain.SafeUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, err := r.find(match)
	if err != nil {
		return nil, err
	}
	v := r.s.view(u)
	return &v, nil
}

func (r *memUsers) creds(match func(*memUser) bool) (*domain.Credentials, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, err := r.find(match)
	if err != nil {
		return nil, err
	}
	return &domain.Credentials{User: r.s.view(u), PasswordHash: u.passwordHash, RefreshTokenHash: u.refreshHash}, nil
}

func (r *memUsers) FindByID(_ context.Context, id string) (*domain.SafeUser, error) {
	return r.safe(func(u *memUser) bool { return u.user.ID == id })
}

func (r *memUsers) FindByEmail(_ context.Context, email string) (*domain.SafeUser, error) {
	return r.safe(func(u *memUser) bool { return u.user.Email == email })
}

func (r *memUsers) FindByUsername(_ context.Context, username string) (*domain.SafeUser, error) {
	return r.safe(func(u *memUser) bool { return u.user.Username == username })
}

func (r *memUsers) List(_ context.Context) ([]domain.SafeUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows := make([]*memUser, 0, len(r.s.users))
	for _, u := range r.s.users {
		rows = append(rows, u)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })
	out := make([]domain.SafeUser, 0, len(rows))
	for _, u := range rows {
		out = append(out, r.s.view(u))
	}
	return out, nil
}

func (r *memUsers) Count(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.users)), nil
}

func (r *memUsers) Update(_ context.Context, id string, p domain.UserPatch) (*domain.SafeUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if p.Name != nil {
		u.user.Name = *p.Name
	}
	if p.Username != nil {
		u.user.Username = *p.Username
	}
	if p.Email != nil {
		u.user.Email = *p.Email
	}
	if p.PasswordHash != nil {
		u.passwordHash = *p.PasswordHash
	}
	if p.RoleID != nil {
		u.roleID = *p.RoleID
	}
	u.user.UpdatedAt = time.Now()
	v := r.s.view(u)
	return &v, nil
}

func (r *memUsers) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.users, id)
	for k, m := range r.s.members {
		if m.UserID == id {
			delete(r.s.members, k)
		}
	}
	return nil
}

func (r *memUsers) CredentialsByEmail(_ context.Context, email string) (*domain.Credentials, error) {
	return r.creds(func(u *memUser) bool { return u.user.Email == email })
}

func (r *memUsers) CredentialsByUsername(_ context.Context, username string) (*domain.Credentials, error) {
	return r.creds(func(u *memUser) bool { return u.user.Username == username })
}

func (r *memUsers) CredentialsByID(_ context.Context, id string) (*domain.Credentials, error) {
	return r.creds(func(u *memUser) bool { return u.user.ID == id })
}

func (r *memUsers) SetRefreshTokenHash(_ context.Context, userID string, hash *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.refreshHash = hash
	return nil
}

type memRoles struct{ s *memStore }

func (r *memRoles) Create(_ context.Context, role domain.Role) (*domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.roles {
		if existing.Name == role.Name {
			return nil, domain.ErrRoleNameTaken
		}
	}
	role.ID, _ = r.s.nextID("role")
	role.CreatedAt = time.Now()
	role.UpdatedAt = role.CreatedAt
	stored := role
	r.s.roles[role.ID] = &stored
	return &role, nil
}

func (r *memRoles) withCount(role *domain.Role) *domain.Role {
	out := *role
	out.UserCount = 0
	for _, u := range r.s.users {
		if u.roleID == role.ID {
			out.UserCount++
		}
	}
	return &out
}

func (r *memRoles) FindByID(_ context.Context, id string) (*domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	role, ok := r.s.roles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.withCount(role), nil
}

func (r *memRoles) FindByName(_ context.Context, name string) (*domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, role := range r.s.roles {
		if role.Name == name {
			return r.withCount(role), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memRoles) List(_ context.Context) ([]domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.Role, 0, len(r.s.roles))
	for _, role := range r.s.roles {
		out = append(out, *r.withCount(role))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRoles) Update(_ context.Context, id string, p domain.RolePatch) (*domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	role, ok := r.s.roles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if p.Name != nil {
		role.Name = *p.Name
	}
	if p.Description != nil {
		role.Description = *p.Description
	}
	if p.StaffStatus != nil {
		role.StaffStatus = *p.StaffStatus
	}
	return r.withCount(role), nil
}

func (r *memRoles) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.roles, id)
	return nil
}

func (r *memRoles) CountUsers(_ context.Context, roleID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, u := range r.s.users {
		if u.roleID == roleID {
			n++
		}
	}
	return n, nil
}

func (r *memRoles) MigrateUsers(_ context.Context, from, to string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, u := range r.s.users {
		if u.roleID == from {
			u.roleID = to
			n++
		}
	}
	return n, nil
}

type memGroups struct{ s *memStore }

func memberKey(groupID, userID string) string { return groupID + "/" + userID }

func (r *memGroups) Create(_ context.Context, name, description string) (*domain.Group, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, g := range r.s.groups {
		if g.Name == name {
			return nil, domain.ErrGroupNameTaken
		}
	}
	id, _ := r.s.nextID("group")
	now := time.Now()
	g := &domain.Group{ID: id, Name: name, Description: description, CreatedAt: now, UpdatedAt: now}
	r.s.groups[id] = g
	out := *g
	return &out, nil
}

func (r *memGroups) withCount(g *domain.Group) domain.Group {
	out := *g
	for _, m := range r.s.members {
		if m.GroupID == g.ID {
			out.MemberCount++
		}
	}
	return out
}

func (r *memGroups) FindByID(_ context.Context, id string) (*domain.Group, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.groups[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := r.withCount(g)
	return &out, nil
}

func (r *memGroups) FindByName(_ context.Context, name string) (*domain.Group, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, g := range r.s.groups {
		if g.Name == name {
			out := r.withCount(g)
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memGroups) list(keep func(*domain.Group) bool) []domain.Group {
	out := make([]domain.Group, 0, len(r.s.groups))
	for _, g := range r.s.groups {
		if keep(g) {
			out = append(out, r.withCount(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *memGroups) List(_ context.Context) ([]domain.Group, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(func(*domain.Group) bool { return true }), nil
}

func (r *memGroups) ListByMember(_ context.Context, userID string) ([]domain.Group, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(func(g *domain.Group) bool {
		_, ok := r.s.members[memberKey(g.ID, userID)]
		return ok
	}), nil
}

func (r *memGroups) Update(_ context.Context, id string, p domain.GroupPatch) (*domain.Group, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.groups[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if p.Name != nil {
		g.Name = *p.Name
	}
	if p.Description != nil {
		g.Description = *p.Description
	}
	out := r.withCount(g)
	return &out, nil
}

func (r *memGroups) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.groups[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.groups, id)
	for k, m := range r.s.members {
		if m.GroupID == id {
			delete(r.s.members, k)
		}
	}
	return nil
}

func (r *memGroups) AddMember(_ context.Context, groupID, userID string) (*domain.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := memberKey(groupID, userID)
	if _, ok := r.s.members[key]; ok {
		return nil, domain.ErrAlreadyMember
	}
	id, _ := r.s.nextID("membership")
	m := &domain.Membership{ID: id, GroupID: groupID, UserID: userID, CreatedAt: time.Now()}
	r.s.members[key] = m
	out := *m
	return &out, nil
}

func (r *memGroups) RemoveMember(_ context.Context, groupID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := memberKey(groupID, userID)
	if _, ok := r.s.members[key]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.members, key)
	return nil
}

func (r *memGroups) IsMember(_ context.Context, groupID, userID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.members[memberKey(groupID, userID)]
	return ok, nil
}

func (r *memGroups) Members(_ context.Context, groupID string) ([]domain.GroupMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ms []*domain.Membership
	for _, m := range r.s.members {
		if m.GroupID == groupID {
			ms = append(ms, m)
		}
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].ID < ms[j].ID })
	out := make([]domain.GroupMember, 0, len(ms))
	for _, m := range ms {
		if u, ok := r.s.users[m.UserID]; ok {
			out = append(out, domain.GroupMember{SafeUser: r.s.view(u), JoinedAt: m.CreatedAt})
		}
	}
	return out, nil
}
