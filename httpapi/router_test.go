package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrEthical07/panelcore"
	"github.com/MrEthical07/panelcore/audit"
	"github.com/MrEthical07/panelcore/internal/directory"
)

const password = "correct horse battery"

type fixture struct {
	engine  *panelcore.Engine
	handler http.Handler
}

func newFixture(t *testing.T, mutate ...func(*panelcore.Config)) *fixture {
	t.Helper()

	hash, err := directory.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)

	dir, err := directory.New([]panelcore.UserRecord{
		{User: panelcore.User{ID: "admin", Email: "admin@example.com", Role: panelcore.RoleUnrestricted, Status: panelcore.StatusActive}, PasswordHash: hash},
		{User: panelcore.User{ID: "mgr-1", Email: "mgr@example.com", Role: panelcore.RoleUnitManager, UnitID: "U1", Status: panelcore.StatusActive}, PasswordHash: hash},
		{User: panelcore.User{ID: "staff-1", Email: "staff@example.com", Role: panelcore.RoleStaff, UnitID: "U1", Status: panelcore.StatusActive}, PasswordHash: hash},
		{User: panelcore.User{ID: "gone", Email: "gone@example.com", Role: panelcore.RoleStaff, UnitID: "U1", Status: panelcore.StatusSuspended}, PasswordHash: hash},
	})
	require.NoError(t, err)

	cfg := panelcore.DefaultConfig()
	cfg.Routing.Secret = "0123456789abcdef0123456789abcdef"
	for _, fn := range mutate {
		fn(&cfg)
	}

	engine, err := panelcore.New().WithConfig(cfg).WithUserProvider(dir).Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	handler, err := NewRouter(Options{Engine: engine, Credentials: dir})
	require.NoError(t, err)

	return &fixture{engine: engine, handler: handler}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) login(t *testing.T, email string) *http.Cookie {
	t.Helper()
	rr := f.do(loginRequestFor(email, password))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	for _, c := range rr.Result().Cookies() {
		if c.Name == "panel_session" {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func (f *fixture) get(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return f.do(req)
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	for i, unit := range []string{"U1", "U1", "U1", "U2", "U2"} {
		res := f.engine.Record(context.Background(), audit.Input{
			ActorID:    "mgr-1",
			Action:     "vehicles.update",
			Module:     "vehicles",
			EntityType: "vehicle",
			EntityID:   "V" + string(rune('0'+i)),
			UnitID:     unit,
			IP:         "10.0.0.9",
		})
		require.NoError(t, res.Err)
	}
}

func loginRequestFor(email, pw string) *http.Request {
	body, _ := json.Marshal(loginRequest{Email: email, Password: pw})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestLoginSetsCookies(t *testing.T) {
	f := newFixture(t)

	rr := f.do(loginRequestFor("mgr@example.com", password))
	require.Equal(t, http.StatusOK, rr.Code)

	cookies := map[string]*http.Cookie{}
	for _, c := range rr.Result().Cookies() {
		cookies[c.Name] = c
	}
	sess := cookies["panel_session"]
	require.NotNil(t, sess)
	assert.True(t, sess.HttpOnly)
	assert.True(t, sess.Secure)
	assert.Equal(t, http.SameSiteStrictMode, sess.SameSite)
	assert.Equal(t, "/", sess.Path)
	assert.Equal(t, int((7 * 24 * time.Hour).Seconds()), sess.MaxAge)
	assert.NotNil(t, cookies["panel_route"])

	var body loginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "mgr-1", body.User.ID)
	assert.Contains(t, body.Modules, "audit")
	assert.NotContains(t, rr.Body.String(), "PasswordHash")
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)

	rr := f.do(loginRequestFor("mgr@example.com", "nope"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "unauthorized", strings.TrimSpace(rr.Body.String()))

	rr = f.do(loginRequestFor("gone@example.com", password))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = f.do(loginRequestFor("", ""))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	var body validationBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "validation_failed", body.Error)
	assert.Len(t, body.Violations, 2)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{"))
	assert.Equal(t, http.StatusBadRequest, f.do(req).Code)
}

func TestLoginRateLimited(t *testing.T) {
	f := newFixture(t, func(c *panelcore.Config) {
		c.HTTP.LoginRateLimit = 2
		c.HTTP.LoginRateWindow = time.Minute
	})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusUnauthorized, f.do(loginRequestFor("mgr@example.com", "nope")).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, f.do(loginRequestFor("mgr@example.com", password)).Code)
}

func TestMeAndLogout(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "staff@example.com")

	rr := f.get("/auth/me", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	var me meResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))
	assert.Equal(t, "staff-1", me.User.ID)
	assert.NotContains(t, me.Modules, "users")

	assert.Equal(t, http.StatusUnauthorized, f.get("/auth/me", nil).Code)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(cookie)
	rr = f.do(req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	for _, c := range rr.Result().Cookies() {
		assert.Equal(t, -1, c.MaxAge, c.Name)
		assert.Empty(t, c.Value)
	}

	assert.Equal(t, http.StatusUnauthorized, f.get("/auth/me", cookie).Code)
}

func TestAuditLogsScopedToUnit(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	cookie := f.login(t, "mgr@example.com")

	rr := f.get("/audit/logs?unitId=U2&actionPrefix=vehicles.&pageSize=5", cookie)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var page audit.Page
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	assert.Equal(t, 3, page.Total)
	for _, e := range page.Items {
		assert.Equal(t, "U1", e.UnitID)
	}
}

func TestAuditLogsRedactedForStaff(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	cookie := f.login(t, "staff@example.com")

	rr := f.get("/audit/logs?actionPrefix=vehicles.", cookie)
	require.Equal(t, http.StatusOK, rr.Code)

	var page audit.Page
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	require.NotEmpty(t, page.Items)
	for _, e := range page.Items {
		assert.Equal(t, audit.Mask, e.IP)
	}
}

func TestAuditLogsValidation(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "admin@example.com")

	rr := f.get("/audit/logs?fromDate=yesterday&page=x", cookie)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var body validationBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	fields := []string{}
	for _, v := range body.Violations {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{"fromDate", "page"}, fields)

	rr = f.get("/audit/logs?severity=urgent", cookie)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.get("/audit/logs?page=9223372036854775807", cookie)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	body = validationBody{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Violations, 1)
	assert.Equal(t, "page", body.Violations[0].Field)
}

func TestAuditExport(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	cookie := f.login(t, "mgr@example.com")
	rr := f.get("/audit/export?format=csv&actionPrefix=vehicles.", cookie)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Disposition"), "attachment; filename=audit-export-"))
	lines := strings.Split(strings.TrimSuffix(rr.Body.String(), "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, `"id","createdAt","actorId","action","module","entityType","entityId","result","severity","ip"`, lines[0])

	rr = f.get("/audit/export?format=xml", cookie)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	staff := f.login(t, "staff@example.com")
	rr = f.get("/audit/export?format=json", staff)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "forbidden", strings.TrimSpace(rr.Body.String()))
}

func TestCorrelationHeaderReachesAudit(t *testing.T) {
	f := newFixture(t)
	req := loginRequestFor("admin@example.com", password)
	req.Header.Set("X-Correlation-ID", "corr-login-1")
	require.Equal(t, http.StatusOK, f.do(req).Code)

	cookie := f.login(t, "admin@example.com")
	rr := f.get("/audit/logs?correlationId=corr-login-1", cookie)
	require.Equal(t, http.StatusOK, rr.Code)

	var page audit.Page
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	require.Equal(t, 1, page.Total)
	assert.Equal(t, audit.ActionSessionCreate, page.Items[0].Action)
}

func TestNewRouterRequiresDependencies(t *testing.T) {
	_, err := NewRouter(Options{})
	assert.Error(t, err)
}
