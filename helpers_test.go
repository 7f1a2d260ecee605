package panelcore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/panelcore/audit"
	"github.com/MrEthical07/panelcore/session"
)

type stubUsers struct {
	mu    sync.RWMutex
	users map[string]UserRecord
}

func newStubUsers(users ...User) *stubUsers {
	s := &stubUsers{users: make(map[string]UserRecord)}
	for _, u := range users {
		s.users[u.ID] = UserRecord{User: u, PasswordHash: "$2a$10$secret"}
	}
	return s
}

func (s *stubUsers) GetUserByID(_ context.Context, id string) (*UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &rec, nil
}

func (s *stubUsers) set(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = UserRecord{User: u}
}

func (s *stubUsers) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var (
	admin   = User{ID: "admin", Email: "admin@example.com", Name: "Admin", Role: RoleUnrestricted, Status: StatusActive}
	manager = User{ID: "mgr-1", Email: "mgr@example.com", Name: "Manager", Role: RoleUnitManager, UnitID: "U1", Status: StatusActive}
	staff   = User{ID: "staff-1", Email: "staff@example.com", Name: "Staff", Role: RoleStaff, UnitID: "U1", Status: StatusActive}
)

type testEngine struct {
	*Engine
	users    *stubUsers
	sessions *session.MemoryStore
	audit    *audit.MemoryStore
	clock    *testClock
}

func newTestEngine(t *testing.T, mutate ...func(*Config)) *testEngine {
	t.Helper()

	cfg := DefaultConfig()
	for _, fn := range mutate {
		fn(&cfg)
	}

	te := &testEngine{
		users:    newStubUsers(admin, manager, staff),
		sessions: session.NewMemoryStore(),
		audit:    audit.NewMemoryStore(),
		clock:    &testClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)},
	}

	engine, err := New().
		WithConfig(cfg).
		WithUserProvider(te.users).
		WithSessionStore(te.sessions).
		WithAuditStore(te.audit).
		WithClock(te.clock.Now).
		Build(context.Background())
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	te.Engine = engine
	return te
}

func (te *testEngine) entries(t *testing.T) []audit.Entry {
	t.Helper()
	out, err := te.audit.Candidates(context.Background(), audit.Prefilter{})
	if err != nil {
		t.Fatalf("read audit store: %v", err)
	}
	return out
}

func (te *testEngine) entriesWithAction(t *testing.T, action string) []audit.Entry {
	t.Helper()
	var out []audit.Entry
	for _, e := range te.entries(t) {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}
