package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/crowdfund-backend/internal/auth"
	"github.com/baharkarakas/crowdfund-backend/internal/config"
	"github.com/baharkarakas/crowdfund-backend/internal/models"
	"github.com/baharkarakas/crowdfund-backend/internal/notify"
	"github.com/baharkarakas/crowdfund-backend/internal/repository/memory"
	"github.com/baharkarakas/crowdfund-backend/internal/services"
)

type memSender struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (s *memSender) Send(_ context.Context, m notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, m)
	return nil
}

type inline struct{}

func (inline) TrySubmit(f func()) bool { f(); return true }

type memImages struct{}

func (memImages) Upload(_ context.Context, key string, body io.Reader, _ string) (models.ProjectImage, error) {
	_, _ = io.Copy(io.Discard, body)
	return models.ProjectImage{URL: "https://img.test/" + key, ID: key}, nil
}

func (memImages) Delete(context.Context, string) error { return nil }

type testAPI struct {
	t     *testing.T
	srv   *httptest.Server
	store *memory.Store
	mail  *memSender
}

func newTestAPI(t *testing.T) *testAPI {
	cfg := config.Config{
		Env:             "test",
		ClientURL:       "http://client.test",
		ConfirmTokenTTL: 3 * time.Hour,
		SessionTokenTTL: 60 * time.Hour,
		ResetTokenTTL:   time.Hour,
		RateRPS:         0,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	tm := auth.NewTokenManager("secret", "test")
	mail := &memSender{}
	disp := notify.NewDispatcher(mail, inline{}, time.Second, log)

	h := NewRouter(RouterDeps{
		Cfg:       cfg,
		Tokens:    tm,
		UserSvc:   services.NewUserService(store, tm, disp, memImages{}, cfg, log),
		ProjSvc:   services.NewProjectService(store, memImages{}, log),
		BudgetSvc: services.NewBudgetService(store, false),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &testAPI{t: t, srv: srv, store: store, mail: mail}
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func (a *testAPI) do(method, path, token string, body any) (int, envelope) {
	a.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("x-access-token", token)
	}
	return a.send(req)
}

func (a *testAPI) send(req *http.Request) (int, envelope) {
	a.t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(a.t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (a *testAPI) signupLogin(email string) string {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"firstname": "Ada", "lastname": "Lovelace", "email": email, "password": "pw-123456",
	})
	require.Equal(a.t, http.StatusCreated, code, env.Error)
	require.NotEmpty(a.t, env.Token)
	assert.Contains(a.t, env.Message, "Check your mail")

	code, env = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": "pw-123456"})
	require.Equal(a.t, http.StatusOK, code, env.Error)
	return env.Token
}

func (a *testAPI) createProject(token, title string) models.Project {
	a.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range map[string]string{"title": title, "caption": "c", "description": "d", "due_date": "2027-01-31"} {
		require.NoError(a.t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("projectImage", "cover.png")
	require.NoError(a.t, err)
	_, _ = fw.Write([]byte("png"))
	require.NoError(a.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, a.srv.URL+"/api/projects", &buf)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("x-access-token", token)
	code, env := a.send(req)
	require.Equal(a.t, http.StatusCreated, code, env.Error)

	var p models.Project
	require.NoError(a.t, json.Unmarshal(env.Data, &p))
	return p
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	resp, err := http.Get(a.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthFlow(t *testing.T) {
	a := newTestAPI(t)
	token := a.signupLogin("ada@example.com")

	code, env := a.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"firstname": "Ada", "lastname": "L", "email": "ada@example.com", "password": "x",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "conflict", env.Code)

	code, env = a.do(http.MethodPost, "/api/auth/signup", "", map[string]string{"email": "bad"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "validation_failed", env.Code)

	code, _ = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "who@example.com", "password": "nope"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = a.do(http.MethodGet, "/api/auth", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = a.do(http.MethodGet, "/api/auth", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotContains(t, string(env.Data), "password")
	var me models.User
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "ada@example.com", me.Email)
	assert.False(t, me.Confirmed)

	code, env = a.do(http.MethodGet, "/api/auth/"+me.ID+"/account_confirmation", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"accountConfirmation":true`)

	code, env = a.do(http.MethodPut, "/api/auth/request-password-reset-token", "", map[string]string{"email": "who@example.com"})
	assert.Equal(t, http.StatusCreated, code)
	assert.Empty(t, env.Data)

	code, env = a.do(http.MethodPut, "/api/auth/request-password-reset-token", "", map[string]string{"email": "ada@example.com"})
	require.Equal(t, http.StatusCreated, code)
	var link string
	require.NoError(t, json.Unmarshal(env.Data, &link))
	resetToken := link[strings.LastIndex(link, "/")+1:]

	code, _ = a.do(http.MethodPut, "/api/auth/reset-auth-password", "", map[string]string{"passwordResetToken": "bogus", "newPassword": "n"})
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = a.do(http.MethodPut, "/api/auth/reset-auth-password", "", map[string]string{"passwordResetToken": resetToken, "newPassword": "fresh-pw"})
	assert.Equal(t, http.StatusCreated, code)
	code, _ = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "fresh-pw"})
	assert.Equal(t, http.StatusOK, code)
}

func TestAdminRoutes(t *testing.T) {
	a := newTestAPI(t)
	token := a.signupLogin("ada@example.com")

	code, _ := a.do(http.MethodGet, "/api/auth/users", token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env := a.do(http.MethodPut, "/api/auth/update-auth", token, map[string]string{"email": "ada@example.com"})
	require.Equal(t, http.StatusCreated, code)
	assert.JSONEq(t, `["admin","user"]`, string(env.Data))

	// Roles live in the token, so a fresh login is needed.
	_, env = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "pw-123456"})
	admin := env.Token

	bobToken := a.signupLogin("bob@example.com")
	a.createProject(bobToken, "Bob project")

	code, env = a.do(http.MethodGet, "/api/auth/users", admin, nil)
	require.Equal(t, http.StatusOK, code)
	var users []models.User
	require.NoError(t, json.Unmarshal(env.Data, &users))
	require.Len(t, users, 2)

	var bobID string
	for _, u := range users {
		if u.Email == "bob@example.com" {
			bobID = u.ID
		}
	}
	code, env = a.do(http.MethodDelete, "/api/auth/users?id="+bobID, admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"deleted":1}`, string(env.Data))

	code, env = a.do(http.MethodGet, "/api/projects?admin=true", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(env.Data))

	code, _ = a.do(http.MethodGet, "/api/auth/audit-logs", bobToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = a.do(http.MethodGet, "/api/auth/audit-logs?entity_type=user", admin, nil)
	require.Equal(t, http.StatusOK, code)
	var logs []models.AuditLog
	require.NoError(t, json.Unmarshal(env.Data, &logs))
	require.Len(t, logs, 2)
	assert.Equal(t, models.ActionUserDeleted, logs[0].Action)
	assert.Equal(t, bobID, logs[0].EntityID)
	assert.Equal(t, models.ActionRoleToggled, logs[1].Action)
	assert.Equal(t, logs[1].EntityID, logs[0].ActorID)
}

func TestBudgetFlow(t *testing.T) {
	a := newTestAPI(t)
	owner := a.signupLogin("ada@example.com")
	other := a.signupLogin("bob@example.com")
	p := a.createProject(owner, "Solar Roof")
	assert.Equal(t, "solar-roof", p.Slug)

	path := "/api/projects/" + p.ID + "/budgets"
	code, env := a.do(http.MethodPut, path, owner, map[string]any{"budget": "nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, code, env.Error)
	code, _ = a.do(http.MethodPut, path, owner, map[string]any{"budget": []any{}})
	assert.Equal(t, http.StatusBadRequest, code)

	items := map[string]any{"budget": []map[string]any{
		{"item_name": "panels", "quantity": 2, "unit_cost": 5.0},
		{"item_name": "cable", "quantity": "1", "unit_cost": "3.0"},
	}}
	code, _ = a.do(http.MethodPut, path, other, items)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = a.do(http.MethodPut, path, owner, items)
	require.Equal(t, http.StatusOK, code, env.Error)
	var got models.Project
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, 13.0, got.Amount)
	assert.False(t, got.Approved)
	require.Len(t, got.Budget, 2)

	itemPath := path + "/" + got.Budget[0].ID
	code, env = a.do(http.MethodPut, itemPath, owner, map[string]any{"quantity": 3})
	require.Equal(t, http.StatusOK, code, env.Error)
	var budget []models.BudgetLineItem
	require.NoError(t, json.Unmarshal(env.Data, &budget))
	assert.Equal(t, 15.0, budget[0].LineTotal)

	code, _ = a.do(http.MethodPut, path+"/missing", owner, map[string]any{"quantity": 3})
	assert.Equal(t, http.StatusNotFound, code)

	code, env = a.do(http.MethodDelete, itemPath, owner, nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &budget))
	assert.Len(t, budget, 1)

	code, _ = a.do(http.MethodDelete, itemPath, owner, nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = a.do(http.MethodGet, "/api/projects?id="+p.ID, owner, nil)
	require.Equal(t, http.StatusOK, code)
	var list []models.Project
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, 3.0, list[0].Amount)

	code, _ = a.do(http.MethodDelete, "/api/projects?id="+p.ID, owner, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestProjectUpdate(t *testing.T) {
	a := newTestAPI(t)
	owner := a.signupLogin("ada@example.com")
	p := a.createProject(owner, "Solar Roof")

	code, env := a.do(http.MethodPut, "/api/projects?id="+p.ID, owner, map[string]string{"slug": "Green Roof", "due_date": "2027-02-01"})
	require.Equal(t, http.StatusOK, code, env.Error)
	var got models.Project
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "green-roof", got.Slug)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC), got.DueDate.UTC())

	code, _ = a.do(http.MethodPut, "/api/projects?id="+p.ID, owner, map[string]string{"due_date": "soon"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}
