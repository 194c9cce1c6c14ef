package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/gameportal/gameportal/internal/config"
	"github.com/gameportal/gameportal/internal/engine"
)

type ServerTestSuite struct {
	suite.Suite
	engine  *engine.Engine
	handler http.Handler
}

func (s *ServerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Listen:                "127.0.0.1:0",
		SessionKey:            "test-secret",
		SessionMaxAge:         3600,
		RememberTokenDays:     30,
		TokenSweepInterval:    time.Hour,
		PresenceSweepInterval: 10 * time.Second,
		Auth: &config.AuthConfig{
			BootstrapAdmin:    "admin",
			BootstrapPassword: "admin123",
		},
		Settings: &config.SettingsConfig{
			UserTimeout:         30,
			HeartbeatInterval:   15,
			MaxUsers:            100,
			RegistrationEnabled: true,
			ServerName:          "GAME SERVER",
		},
	}

	eng, err := engine.New(cfg)
	require.NoError(s.T(), err)
	s.engine = eng

	server, err := New(cfg, eng, false)
	require.NoError(s.T(), err)
	s.handler = server.Handler()
}

func (s *ServerTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.engine.Close())
}

// do performs a request with the given cookies and returns the response.
func (s *ServerTestSuite) do(method, target string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

// login logs in as the given user and returns the response cookies.
func (s *ServerTestSuite) login(username, password string, rememberMe bool) []*http.Cookie {
	form := url.Values{
		"username": {username},
		"password": {password},
	}
	if rememberMe {
		form.Set("remember_me", "on")
	}

	w := s.do(http.MethodPost, "/login", form, nil)
	require.Equal(s.T(), http.StatusFound, w.Code)
	require.Equal(s.T(), "/", w.Header().Get("Location"))
	return w.Result().Cookies()
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (s *ServerTestSuite) TestHeartbeat_Anonymous() {
	w := s.do(http.MethodGet, "/heartbeat", nil, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)

	var resp struct {
		ActiveUsers int   `json:"active_users"`
		Timestamp   int64 `json:"timestamp"`
	}
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), 0, resp.ActiveUsers)
	assert.Greater(s.T(), resp.Timestamp, int64(0))
}

func (s *ServerTestSuite) TestLogin_InvalidCredentials() {
	form := url.Values{
		"username": {"admin"},
		"password": {"wrong"},
	}
	w := s.do(http.MethodPost, "/login", form, nil)
	assert.Equal(s.T(), http.StatusFound, w.Code)
	assert.Equal(s.T(), "/login", w.Header().Get("Location"))

	// The failed login must not have bound a session.
	w = s.do(http.MethodGet, "/profile", nil, w.Result().Cookies())
	assert.Equal(s.T(), http.StatusFound, w.Code)
	assert.Equal(s.T(), "/login", w.Header().Get("Location"))
}

func (s *ServerTestSuite) TestLogin_Success() {
	cookies := s.login("admin", "admin123", false)
	require.NotNil(s.T(), findCookie(cookies, "gameportal_session"))
	assert.Nil(s.T(), findCookie(cookies, "remember_token"))

	w := s.do(http.MethodGet, "/profile", nil, cookies)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Contains(s.T(), w.Body.String(), `"username":"admin"`)
}

func (s *ServerTestSuite) TestLogin_RememberMe() {
	cookies := s.login("admin", "admin123", true)

	remember := findCookie(cookies, "remember_token")
	require.NotNil(s.T(), remember)
	assert.Equal(s.T(), 30*24*60*60, remember.MaxAge)
	assert.True(s.T(), remember.HttpOnly)
	assert.Len(s.T(), remember.Value, 64)
}

func (s *ServerTestSuite) TestAutoLogin_RememberTokenOnly() {
	cookies := s.login("admin", "admin123", true)
	remember := findCookie(cookies, "remember_token")
	require.NotNil(s.T(), remember)

	// A fresh request carrying only the remember token, no session.
	w := s.do(http.MethodGet, "/profile", nil, []*http.Cookie{remember})
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Contains(s.T(), w.Body.String(), `"username":"admin"`)
}

func (s *ServerTestSuite) TestLogout_RevokesRememberToken() {
	cookies := s.login("admin", "admin123", true)
	remember := findCookie(cookies, "remember_token")
	require.NotNil(s.T(), remember)

	w := s.do(http.MethodGet, "/logout", nil, cookies)
	assert.Equal(s.T(), http.StatusFound, w.Code)

	// The revoked token must never work again.
	w = s.do(http.MethodGet, "/profile", nil, []*http.Cookie{remember})
	assert.Equal(s.T(), http.StatusFound, w.Code)
	assert.Equal(s.T(), "/login", w.Header().Get("Location"))
}

func (s *ServerTestSuite) TestHeartbeat_TracksLoggedInUser() {
	cookies := s.login("admin", "admin123", false)

	w := s.do(http.MethodGet, "/heartbeat", nil, cookies)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Contains(s.T(), w.Body.String(), `"active_users":1`)

	// Heartbeats refresh rather than multiply entries.
	w = s.do(http.MethodGet, "/heartbeat", nil, cookies)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Contains(s.T(), w.Body.String(), `"active_users":1`)
}

func (s *ServerTestSuite) TestRegister_And_Login() {
	form := url.Values{
		"username": {"carol"},
		"user_id":  {"carol_001"},
		"email":    {"carol@example.com"},
		"password": {"pw123"},
	}
	w := s.do(http.MethodPost, "/register", form, nil)
	assert.Equal(s.T(), http.StatusFound, w.Code)
	assert.Equal(s.T(), "/login", w.Header().Get("Location"))

	cookies := s.login("carol", "pw123", false)
	w = s.do(http.MethodGet, "/profile", nil, cookies)
	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func (s *ServerTestSuite) TestRegister_Duplicate() {
	form := url.Values{
		"username": {"newuser"},
		"user_id":  {"id2"},
		"email":    {"a@x.com"},
		"password": {"pw"},
	}
	w := s.do(http.MethodPost, "/register", form, nil)
	require.Equal(s.T(), http.StatusFound, w.Code)

	// Same email, different username and ID.
	form.Set("username", "otheruser")
	form.Set("user_id", "id3")
	w = s.do(http.MethodPost, "/register", form, nil)
	assert.Equal(s.T(), http.StatusConflict, w.Code)
	assert.Contains(s.T(), w.Body.String(), "already exists")
	assert.Equal(s.T(), 2, s.engine.Users().Len(), "failed registration must not insert")
}

func (s *ServerTestSuite) TestRegister_Disabled() {
	settings := s.engine.Settings().Get()
	settings.RegistrationEnabled = false
	require.NoError(s.T(), s.engine.Settings().Update(settings))

	form := url.Values{
		"username": {"carol"},
		"user_id":  {"carol_001"},
		"email":    {"carol@example.com"},
		"password": {"pw"},
	}
	w := s.do(http.MethodPost, "/register", form, nil)
	assert.Equal(s.T(), http.StatusFound, w.Code)
	assert.Equal(s.T(), "/login", w.Header().Get("Location"))
	assert.Equal(s.T(), 1, s.engine.Users().Len())
}

func (s *ServerTestSuite) TestRename() {
	cookies := s.login("admin", "admin123", false)

	form := url.Values{"username": {"root"}}
	w := s.do(http.MethodPost, "/profile/username", form, cookies)
	assert.Equal(s.T(), http.StatusFound, w.Code)
	assert.Equal(s.T(), "/profile", w.Header().Get("Location"))

	// Session was rebound to the new name: profile still reachable.
	w = s.do(http.MethodGet, "/profile", nil, w.Result().Cookies())
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Contains(s.T(), w.Body.String(), `"username":"root"`)
}

func (s *ServerTestSuite) TestAdmin_RequiresAdminRole() {
	form := url.Values{
		"username": {"carol"},
		"user_id":  {"carol_001"},
		"email":    {"carol@example.com"},
		"password": {"pw"},
	}
	w := s.do(http.MethodPost, "/register", form, nil)
	require.Equal(s.T(), http.StatusFound, w.Code)

	cookies := s.login("carol", "pw", false)
	w = s.do(http.MethodGet, "/admin/users", nil, cookies)
	assert.Equal(s.T(), http.StatusFound, w.Code)
	assert.Equal(s.T(), "/", w.Header().Get("Location"))
}

func (s *ServerTestSuite) TestAdmin_ListUsers() {
	cookies := s.login("admin", "admin123", false)

	w := s.do(http.MethodGet, "/admin/users", nil, cookies)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Contains(s.T(), w.Body.String(), `"username":"admin"`)
}

func (s *ServerTestSuite) TestAdmin_UpdateSettings() {
	cookies := s.login("admin", "admin123", false)

	form := url.Values{
		"user_timeout":         {"60"},
		"heartbeat_interval":   {"20"},
		"max_users":            {"50"},
		"registration_enabled": {"on"},
		"server_name":          {"NEW NAME"},
	}
	w := s.do(http.MethodPost, "/admin/settings", form, cookies)
	assert.Equal(s.T(), http.StatusFound, w.Code)

	got := s.engine.Settings().Get()
	assert.Equal(s.T(), 60, got.UserTimeout)
	assert.Equal(s.T(), "NEW NAME", got.ServerName)
	assert.False(s.T(), got.MaintenanceMode, "unchecked checkbox means off")
}

func (s *ServerTestSuite) TestAdmin_UpdateSettings_Invalid() {
	cookies := s.login("admin", "admin123", false)
	before := s.engine.Settings().Get()

	form := url.Values{
		"user_timeout":       {"not-a-number"},
		"heartbeat_interval": {"20"},
		"max_users":          {"50"},
		"server_name":        {"X"},
	}
	w := s.do(http.MethodPost, "/admin/settings", form, cookies)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	assert.Equal(s.T(), before, s.engine.Settings().Get())
}

func (s *ServerTestSuite) TestAdmin_Stats() {
	cookies := s.login("admin", "admin123", false)

	w := s.do(http.MethodGet, "/admin/stats", nil, cookies)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Contains(s.T(), w.Body.String(), `"total_users":1`)
}

func (s *ServerTestSuite) TestMaintenanceMode() {
	form := url.Values{
		"username": {"carol"},
		"user_id":  {"carol_001"},
		"email":    {"carol@example.com"},
		"password": {"pw"},
	}
	w := s.do(http.MethodPost, "/register", form, nil)
	require.Equal(s.T(), http.StatusFound, w.Code)
	userCookies := s.login("carol", "pw", false)

	settings := s.engine.Settings().Get()
	settings.MaintenanceMode = true
	require.NoError(s.T(), s.engine.Settings().Update(settings))

	w = s.do(http.MethodGet, "/profile", nil, userCookies)
	assert.Equal(s.T(), http.StatusServiceUnavailable, w.Code)
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
