package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	userguard "github.com/identware/userguard"
	"github.com/identware/userguard/middleware"
	"github.com/identware/userguard/password"
	"github.com/identware/userguard/permission"
)

type memAccounts struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]userguard.Account
	hashes map[int64]string
}

func newMemAccounts() *memAccounts {
	return &memAccounts{
		rows:   make(map[int64]userguard.Account),
		hashes: make(map[int64]string),
	}
}

func (m *memAccounts) seed(t *testing.T, identity, credential string) userguard.Account {
	t.Helper()
	hasher, err := password.NewHasher(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	hash, err := hasher.Hash(credential)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	account := userguard.Account{
		ID:       m.nextID,
		Identity: identity,
		Name:     identity,
		Email:    identity + "@example.com",
		Status:   userguard.AccountActive,
	}
	m.rows[account.ID] = account
	m.hashes[account.ID] = hash
	return account
}

func (m *memAccounts) AccountByID(_ context.Context, id int64) (userguard.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return userguard.Account{}, userguard.ErrAccountUnknown
	}
	return a, nil
}

func (m *memAccounts) AccountByIdentity(_ context.Context, identity string) (userguard.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.Identity == identity {
			return a, nil
		}
	}
	return userguard.Account{}, userguard.ErrAccountUnknown
}

func (m *memAccounts) AccountByEmail(_ context.Context, email string) (userguard.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.Email == email {
			return a, nil
		}
	}
	return userguard.Account{}, userguard.ErrAccountUnknown
}

func (m *memAccounts) AccountByMobile(_ context.Context, mobile string) (userguard.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.Mobile != "" && a.Mobile == mobile {
			return a, nil
		}
	}
	return userguard.Account{}, userguard.ErrAccountUnknown
}

func (m *memAccounts) CredentialHash(_ context.Context, id int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hash, ok := m.hashes[id]
	if !ok {
		return "", userguard.ErrAccountUnknown
	}
	return hash, nil
}

func (m *memAccounts) CreateAccount(_ context.Context, in userguard.CreateAccountInput) (userguard.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	account := userguard.Account{
		ID:       m.nextID,
		Identity: in.Identity,
		Name:     in.Name,
		Email:    in.Email,
		Mobile:   in.Mobile,
		Status:   in.Status,
	}
	m.rows[account.ID] = account
	m.hashes[account.ID] = in.CredentialHash
	return account, nil
}

func (m *memAccounts) UpdateAccount(_ context.Context, id int64, in userguard.UpdateAccountInput) (userguard.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return userguard.Account{}, userguard.ErrAccountUnknown
	}
	if in.Name != nil {
		a.Name = *in.Name
	}
	if in.Email != nil {
		a.Email = *in.Email
	}
	if in.Mobile != nil {
		a.Mobile = *in.Mobile
	}
	if in.Avatar != nil {
		a.Avatar = *in.Avatar
	}
	m.rows[id] = a
	return a, nil
}

func (m *memAccounts) UpdateStatus(_ context.Context, id int64, status userguard.AccountStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return userguard.ErrAccountUnknown
	}
	a.Status = status
	m.rows[id] = a
	return nil
}

func (m *memAccounts) UpdateCredential(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return userguard.ErrAccountUnknown
	}
	m.hashes[id] = hash
	return nil
}

func (m *memAccounts) IdentityTaken(_ context.Context, identity string, excludeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.Identity == identity && a.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAccounts) EmailTaken(_ context.Context, email string, excludeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.Email == email && a.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAccounts) MobileTaken(_ context.Context, mobile string, excludeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.Mobile != "" && a.Mobile == mobile && a.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

// memRoles serves a fixed role table: "member" lives on the api surface,
// "operator" on both so an operator's session can cross into admin routes.
type memRoles struct {
	mu       sync.Mutex
	accounts map[string][]string
}

func newMemRoles() *memRoles {
	return &memRoles{accounts: make(map[string][]string)}
}

func (m *memRoles) Roles(_ context.Context, section permission.Section) ([]permission.Role, error) {
	switch section {
	case permission.SectionAdmin:
		return []permission.Role{
			{Name: "operator", Section: permission.SectionAdmin, Status: permission.RoleActive},
		}, nil
	default:
		return []permission.Role{
			{Name: "member", Section: permission.SectionAPI, Status: permission.RoleActive},
			{Name: "operator", Section: permission.SectionAPI, Status: permission.RoleActive},
		}, nil
	}
}

func (m *memRoles) Permissions(_ context.Context, section permission.Section) ([]permission.Permission, error) {
	if section == permission.SectionAdmin {
		return []permission.Permission{
			{Key: "admin-user-account-unlock", Section: permission.SectionAdmin, Roles: []string{"operator"}},
			{Key: "admin-user-account-status", Section: permission.SectionAdmin, Roles: []string{"operator"}},
			{Key: "admin-user-roles-assign", Section: permission.SectionAdmin, Roles: []string{"operator"}},
			{Key: "admin-user-roles-revoke", Section: permission.SectionAdmin, Roles: []string{"operator"}},
			{Key: "admin-user-roles-refresh", Section: permission.SectionAdmin, Roles: []string{"operator"}},
		}, nil
	}
	return nil, nil
}

func (m *memRoles) roleKey(userID int64, section permission.Section) string {
	return fmt.Sprintf("%s:%d", section, userID)
}

func (m *memRoles) AccountRoles(_ context.Context, userID int64, section permission.Section) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.accounts[m.roleKey(userID, section)]...), nil
}

func (m *memRoles) AssignRole(_ context.Context, userID int64, role string, section permission.Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.roleKey(userID, section)
	for _, existing := range m.accounts[k] {
		if existing == role {
			return nil
		}
	}
	m.accounts[k] = append(m.accounts[k], role)
	return nil
}

func (m *memRoles) RevokeRole(_ context.Context, userID int64, role string, section permission.Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.roleKey(userID, section)
	kept := m.accounts[k][:0]
	for _, existing := range m.accounts[k] {
		if existing != role {
			kept = append(kept, existing)
		}
	}
	m.accounts[k] = kept
	return nil
}

type apiFixture struct {
	server   *Server
	accounts *memAccounts
	roles    *memRoles
	mr       *miniredis.Miniredis
}

func newAPITest(t *testing.T, mutate func(*userguard.Config)) (*apiFixture, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := userguard.DefaultConfig()
	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password = userguard.PasswordConfig{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	cfg.Audit.Enabled = false
	if mutate != nil {
		mutate(&cfg)
	}

	accounts := newMemAccounts()
	roles := newMemRoles()

	engine, err := userguard.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithLogger(zerolog.Nop()).
		WithAccountProvider(accounts).
		WithRoleProvider(roles).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}

	server, err := NewServer(engine, zerolog.Nop())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	fixture := &apiFixture{server: server, accounts: accounts, roles: roles, mr: mr}
	return fixture, func() {
		engine.Close()
		rdb.Close()
		mr.Close()
	}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(middleware.TokenHeader, token)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) doRaw(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Result bool            `json:"result"`
	Data   json.RawMessage `json:"data"`
	Error  *struct {
		Message string            `json:"message"`
		Code    int               `json:"code"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
	Status int `json:"status"`
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
	}
	return env
}

// login is the shortcut most tests start with: seed, assign, authenticate.
func (f *apiFixture) login(t *testing.T, identity, credential string, roles ...string) (access, refresh string) {
	t.Helper()
	account := f.accounts.seed(t, identity, credential)
	for _, role := range roles {
		_ = f.roles.AssignRole(context.Background(), account.ID, role, permission.SectionAPI)
	}

	rec := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"identity":   identity,
		"credential": credential,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (body %q)", rec.Code, rec.Body.String())
	}
	env := decodeBody(t, rec)
	var data struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode login data: %v", err)
	}
	return data.AccessToken, data.RefreshToken
}

func TestLoginEndToEnd(t *testing.T) {
	f, done := newAPITest(t, nil)
	defer done()

	account := f.accounts.seed(t, "alice", "correct-horse")
	_ = f.roles.AssignRole(context.Background(), account.ID, "member", permission.SectionAPI)

	rec := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"identity":   "alice",
		"credential": "correct-horse",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %q)", rec.Code, rec.Body.String())
	}
	env := decodeBody(t, rec)
	if !env.Result {
		t.Fatal("expected result true")
	}

	var data struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		Account      struct {
			Identity string `json:"identity"`
		} `json:"account"`
		Roles []string `json:"roles"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.AccessToken == "" || data.RefreshToken == "" {
		t.Fatal("expected both tokens in the response")
	}
	if data.Account.Identity != "alice" {
		t.Fatalf("expected account identity alice, got %q", data.Account.Identity)
	}
	if len(data.Roles) != 1 || data.Roles[0] != "member" {
		t.Fatalf("expected roles [member], got %v", data.Roles)
	}

	// Hardening headers ride on every piped response.
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff header, got %q", got)
	}
}

func TestLoginWrongCredential(t *testing.T) {
	f, done := newAPITest(t, nil)
	defer done()
	f.accounts.seed(t, "alice", "correct-horse")

	rec := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"identity":   "alice",
		"credential": "wrong-horse-x",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	env := decodeBody(t, rec)
	if env.Result {
		t.Fatal("expected result false")
	}
	if env.Error == nil || env.Error.Code != http.StatusUnauthorized {
		t.Fatalf("expected error code 401, got %+v", env.Error)
	}
}

func TestLoginValidationFailure(t *testing.T) {
	f, done := newAPITest(t, nil)
	defer done()

	rec := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"identity":   "alice",
		"credential": "short",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	env := decodeBody(t, rec)
	if env.Error == nil || env.Error.Fields["credential"] == "" {
		t.Fatalf("expected credential field error, got %+v", env.Error)
	}
}

func TestMalformedBodyRejected(t *testing.T) {
	f, done := newAPITest(t, nil)
	defer done()

	rec := f.doRaw(t, http.MethodPost, "/auth/login", `{"identity": "alice",`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (body %q)", rec.Code, rec.Body.String())
	}
}

func TestInjectionBlockedBeforeHandler(t *testing.T) {
	f, done := newAPITest(t, nil)
	defer done()

	rec := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"identity":   "1 or 1 = 1",
		"credential": "whatever-pass",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	env := decodeBody(t, rec)
	if env.Error == nil || env.Error.Message != "Injection detected" {
		t.Fatalf("expected injection message, got %+v", env.Error)
	}
}

func TestProtectedRouteWithoutToken(t *testing.T) {
	f, done := newAPITest(t, nil)
	defer done()

	rec := f.do(t, http.MethodGet, "/profile", "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestProfileWithAccessToken(t *testing.T) {
	f, done := newAPITest(t, nil)
	defer done()
	access, _ := f.login(t, "alice", "correct-horse", "member")

	rec := f.do(t, http.MethodGet, "/profile", access, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %q)", rec.Code, rec.Body.String())
	}
	env := decodeBody(t, rec)
	var data struct {
		Identity string `json:"identity"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Identity != "alice" {
		t.Fatalf("expected identity alice, got %q", data.Identity)
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	f, done := newAPITest(t, nil)
	defer done()
	_, refresh := f.login(t, "alice", "correct-horse", "member")

	rec := f.do(t, http.MethodPost, "/auth/refresh", refresh, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d (body %q)", rec.Code, rec.Body.String())
	}
	env := decodeBody(t, rec)
	var data struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}

	// The new access token works; the spent refresh token does not.
	if rec := f.do(t, http.MethodGet, "/profile", data.AccessToken, nil); rec.Code != http.StatusOK {
		t.Fatalf("new access: expected 200, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/auth/refresh", refresh, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("spent refresh: expected 403, got %d", rec.Code)
	}
}

func TestTokenKindEnforcedOnRoutes(t *testing.T) {
	f, done := newAPITest(t, nil)
	defer done()
	access, refresh := f.login(t, "alice", "correct-horse", "member")

	if rec := f.do(t, http.MethodGet, "/profile", refresh, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("refresh token on access route: expected 403, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/auth/refresh", access, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("access token on refresh route: expected 403, got %d", rec.Code)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	f, done := newAPITest(t, nil)
	defer done()
	access, refresh := f.login(t, "alice", "correct-horse", "member")

	rec := f.do(t, http.MethodPost, "/auth/logout", access, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/profile", access, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("after logout: expected 403, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/auth/refresh", refresh, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("refresh after logout: expected 403, got %d", rec.Code)
	}
}

func TestAdminRouteRequiresOperator(t *testing.T) {
	f, done := newAPITest(t, nil)
	defer done()
	memberTok, _ := f.login(t, "bob", "plain-member-1", "member")
	operatorTok, _ := f.login(t, "overseer", "operator-pass", "operator")

	if rec := f.do(t, http.MethodPost, "/admin/accounts/1/unlock", memberTok, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("member on admin route: expected 403, got %d", rec.Code)
	}

	rec := f.do(t, http.MethodPost, "/admin/accounts/1/unlock", operatorTok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("operator unlock: expected 200, got %d (body %q)", rec.Code, rec.Body.String())
	}
	env := decodeBody(t, rec)
	var data struct {
		Unlocked bool `json:"unlocked"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if !data.Unlocked {
		t.Fatal("expected unlocked true")
	}
}

func TestAdminRoleAssignment(t *testing.T) {
	f, done := newAPITest(t, nil)
	defer done()
	operatorTok, _ := f.login(t, "overseer", "operator-pass", "operator")
	target := f.accounts.seed(t, "carol", "carol-pass-1")

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/admin/accounts/%d/roles", target.ID), operatorTok, map[string]string{
		"role": "member",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("assign: expected 200, got %d (body %q)", rec.Code, rec.Body.String())
	}

	got, _ := f.roles.AccountRoles(context.Background(), target.ID, permission.SectionAPI)
	if len(got) != 1 || got[0] != "member" {
		t.Fatalf("expected [member] assigned, got %v", got)
	}
}

func TestUnknownRoleIs404(t *testing.T) {
	f, done := newAPITest(t, nil)
	defer done()
	operatorTok, _ := f.login(t, "overseer", "operator-pass", "operator")
	target := f.accounts.seed(t, "carol", "carol-pass-1")

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/admin/accounts/%d/roles", target.ID), operatorTok, map[string]string{
		"role": "superuser",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRequestLimitReturns429(t *testing.T) {
	f, done := newAPITest(t, func(cfg *userguard.Config) {
		cfg.Security.RequestLimit.MaxRequests = 2
	})
	defer done()

	for i := 0; i < 2; i++ {
		if rec := f.do(t, http.MethodGet, "/profile", "", nil); rec.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d: limited too early", i+1)
		}
	}
	rec := f.do(t, http.MethodGet, "/profile", "", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestHealthOutsidePipeline(t *testing.T) {
	f, done := newAPITest(t, func(cfg *userguard.Config) {
		cfg.Security.RequestLimit.MaxRequests = 1
	})
	defer done()

	// Exhaust the per-IP budget on a piped route.
	f.do(t, http.MethodGet, "/profile", "", nil)
	f.do(t, http.MethodGet, "/profile", "", nil)

	for i := 0; i < 3; i++ {
		rec := f.do(t, http.MethodGet, "/health", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("health probe %d: expected 200, got %d", i+1, rec.Code)
		}
		if rec.Header().Get("X-Frame-Options") != "" {
			t.Fatal("health must not pass through the security pipeline")
		}
	}
}

func TestRegisterCreatesPendingAccount(t *testing.T) {
	f, done := newAPITest(t, nil)
	defer done()

	rec := f.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"identity":   "newuser",
		"name":       "New User",
		"email":      "newuser@example.com",
		"credential": "sturdy-pass-1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body %q)", rec.Code, rec.Body.String())
	}
	env := decodeBody(t, rec)
	var data struct {
		Identity string `json:"identity"`
		Status   uint8  `json:"status"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Identity != "newuser" {
		t.Fatalf("expected identity newuser, got %q", data.Identity)
	}
	if userguard.AccountStatus(data.Status) != userguard.AccountPending {
		t.Fatalf("expected pending status, got %d", data.Status)
	}

	// Pending accounts cannot log in yet.
	rec = f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"identity":   "newuser",
		"credential": "sturdy-pass-1",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("pending login: expected 401, got %d", rec.Code)
	}
}
