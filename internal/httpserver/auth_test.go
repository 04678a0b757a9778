package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ayezhov/auth-service/internal/models"
	"github.com/ayezhov/auth-service/internal/mq"
	"github.com/ayezhov/auth-service/internal/repo"
	"github.com/ayezhov/auth-service/internal/service"
	"github.com/ayezhov/auth-service/pkg/tokens"
)

type recordedEvent struct {
	Topic   string
	Payload any
}

type fakeEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeEvents) Publish(topic string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{Topic: topic, Payload: payload})
}

type testEnv struct {
	E      *echo.Echo
	DB     *gorm.DB
	H      *AuthHTTP
	Events *fakeEvents
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RefreshSession{}))

	codec, err := tokens.NewCodec([]byte("test-access-secret"), []byte("test-refresh-secret"))
	require.NoError(t, err)

	events := &fakeEvents{}
	svc := &service.AuthService{
		Repo:   &repo.GormRepo{DB: db},
		Codec:  codec,
		Events: events,
	}

	return &testEnv{
		E:      echo.New(),
		DB:     db,
		H:      &AuthHTTP{Svc: svc},
		Events: events,
	}
}

func (env *testEnv) doJSON(method, target string, payload any, cookies ...*http.Cookie) (*httptest.ResponseRecorder, echo.Context) {
	var body *bytes.Reader
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func (env *testEnv) register(t *testing.T, username, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	rec, c := env.doJSON(http.MethodPost, "/api/v1/register", map[string]string{
		"username": username, "email": email, "password": password,
	})
	require.NoError(t, env.H.Register(c))
	return rec
}

func (env *testEnv) login(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	rec, c := env.doJSON(http.MethodPost, "/api/v1/login", map[string]string{
		"email": email, "password": password,
	})
	require.NoError(t, env.H.Login(c))
	return rec
}

func (env *testEnv) activationToken(t *testing.T, email string) string {
	t.Helper()
	env.Events.mu.Lock()
	defer env.Events.mu.Unlock()
	for _, e := range env.Events.events {
		if e.Topic != mq.TopicMails {
			continue
		}
		mail := e.Payload.(service.MailPayload)
		if mail.Email != email {
			continue
		}
		return mail.URL[strings.LastIndex(mail.URL, "/")+1:]
	}
	t.Fatalf("no activation mail recorded for %s", email)
	return ""
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	res := &http.Response{Header: rec.Header()}
	for _, ck := range res.Cookies() {
		if ck.Name == "refreshToken" {
			return ck
		}
	}
	t.Fatal("refreshToken cookie not set")
	return nil
}

func TestRegister_StatusCodes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.register(t, "ana", "ana@x.com", "pw123456")
	require.Equal(t, http.StatusCreated, rec.Code)

	// legacy API reported every register failure as 500
	rec, c := env.doJSON(http.MethodPost, "/api/v1/register", map[string]string{"username": "ana"})
	require.NoError(t, env.H.Register(c))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "Please enter all fields!")

	rec, c = env.doJSON(http.MethodPost, "/api/v1/register", map[string]string{
		"username": "other", "email": "ana@x.com", "password": "pw123456",
	})
	require.NoError(t, env.H.Register(c))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "User already exists!")

	rec, c = env.doJSON(http.MethodPost, "/api/v1/register", map[string]string{
		"username": "ana", "email": "other@x.com", "password": "pw123456",
	})
	require.NoError(t, env.H.Register(c))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "Username already taken!")
}

func TestRegister_StrictStatusCodes(t *testing.T) {
	env := newTestEnv(t)
	env.H.Strict = true

	rec, c := env.doJSON(http.MethodPost, "/api/v1/register", map[string]string{"username": "ana"})
	require.NoError(t, env.H.Register(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env.register(t, "ana", "ana@x.com", "pw123456")
	rec, c = env.doJSON(http.MethodPost, "/api/v1/register", map[string]string{
		"username": "other", "email": "ana@x.com", "password": "pw123456",
	})
	require.NoError(t, env.H.Register(c))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestActivate_InvalidToken(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSON(http.MethodGet, "/api/v1/account/activate/garbage", nil)
	c.SetPath("/api/v1/account/activate/:token")
	c.SetParamNames("token")
	c.SetParamValues("garbage")
	require.NoError(t, env.H.ActivateAccount(c))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "Invalid token!")
}

func TestActivate_AlreadyVerified(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ana", "ana@x.com", "pw123456")
	token := env.activationToken(t, "ana@x.com")

	activate := func() *httptest.ResponseRecorder {
		rec, c := env.doJSON(http.MethodGet, "/api/v1/account/activate/"+token, nil)
		c.SetPath("/api/v1/account/activate/:token")
		c.SetParamNames("token")
		c.SetParamValues(token)
		require.NoError(t, env.H.ActivateAccount(c))
		return rec
	}

	rec := activate()
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Account activated")

	rec = activate()
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "User already verified")
}

func TestLogin_SetsCookieAndReturnsToken(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ana", "ana@x.com", "pw123456")

	rec := env.login(t, "ana@x.com", "pw123456")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Data.Token)

	ck := refreshCookie(t, rec)
	require.True(t, ck.HttpOnly)
	require.NotEmpty(t, ck.Value)
}

func TestLogin_FailuresAreByteIdentical(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ana", "ana@x.com", "pw123456")

	wrongPw := env.login(t, "ana@x.com", "wrong-password")
	unknown := env.login(t, "nobody@x.com", "pw123456")

	require.Equal(t, http.StatusBadRequest, wrongPw.Code)
	require.Equal(t, wrongPw.Code, unknown.Code)
	require.Equal(t, wrongPw.Body.String(), unknown.Body.String())
}

func TestAuthenticatedUser_HeaderHandling(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ana", "ana@x.com", "pw123456")

	rec, c := env.doJSON(http.MethodGet, "/api/v1/user", nil)
	require.NoError(t, env.H.AuthenticatedUser(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, c = env.doJSON(http.MethodGet, "/api/v1/user", nil)
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer")
	require.NoError(t, env.H.AuthenticatedUser(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, c = env.doJSON(http.MethodGet, "/api/v1/user", nil)
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer garbage")
	require.NoError(t, env.H.AuthenticatedUser(c))
	require.Equal(t, http.StatusForbidden, rec.Code)

	loginRec := env.login(t, "ana@x.com", "pw123456")
	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(loginRec.Body.Bytes(), &resp))

	rec, c = env.doJSON(http.MethodGet, "/api/v1/user", nil)
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer "+resp.Data.Token)
	require.NoError(t, env.H.AuthenticatedUser(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"username":"ana"`)
	require.NotContains(t, rec.Body.String(), "passwordHash")
	require.NotContains(t, rec.Body.String(), "PasswordHash")
}

func TestRefresh_WithoutCookie(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSON(http.MethodPost, "/api/v1/refresh", nil)
	require.NoError(t, env.H.Refresh(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Unauthenticated!")
}

func TestLogout_WithoutCookie(t *testing.T) {
	env := newTestEnv(t)

	// legacy quirk: logout without a cookie answers 500, not 401
	rec, c := env.doJSON(http.MethodPost, "/api/v1/logout", nil)
	require.NoError(t, env.H.Logout(c))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "Unauthenticated!")

	env.H.Strict = true
	rec, c = env.doJSON(http.MethodPost, "/api/v1/logout", nil)
	require.NoError(t, env.H.Logout(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

// Full lifecycle: register, activate via the mailed token, login, refresh
// with the issued cookie, logout, session gone.
func TestAccountLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.register(t, "ana", "ana@x.com", "pw123456")
	require.Equal(t, http.StatusCreated, rec.Code)

	token := env.activationToken(t, "ana@x.com")
	rec, c := env.doJSON(http.MethodGet, "/api/v1/account/activate/"+token, nil)
	c.SetPath("/api/v1/account/activate/:token")
	c.SetParamNames("token")
	c.SetParamValues(token)
	require.NoError(t, env.H.ActivateAccount(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var user models.User
	require.NoError(t, env.DB.Where("email = ?", "ana@x.com").First(&user).Error)
	require.True(t, user.IsActive)
	require.True(t, user.IsVerified)

	loginRec := env.login(t, "ana@x.com", "pw123456")
	require.Equal(t, http.StatusOK, loginRec.Code)
	ck := refreshCookie(t, loginRec)

	rec, c = env.doJSON(http.MethodPost, "/api/v1/refresh", nil, ck)
	require.NoError(t, env.H.Refresh(c))
	require.Equal(t, http.StatusOK, rec.Code)
	var refreshResp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refreshResp))
	require.NotEmpty(t, refreshResp.Data.Token)

	rec, c = env.doJSON(http.MethodPost, "/api/v1/logout", nil, ck)
	require.NoError(t, env.H.Logout(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	require.NoError(t, env.DB.Model(&models.RefreshSession{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.Equal(t, int64(0), count)
}
