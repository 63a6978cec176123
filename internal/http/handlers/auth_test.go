package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/primeestates/primeestates/internal/auth"
	"github.com/primeestates/primeestates/internal/config"
	"github.com/primeestates/primeestates/internal/domain/user"
	"github.com/primeestates/primeestates/internal/http/handlers"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fake implementation of handlers.AuthService

type fakeAuthService struct {
	registerFn func(ctx context.Context, in auth.RegisterInput) error
	verifyFn   func(ctx context.Context, token string) error
	loginFn    func(ctx context.Context, email, password string) (auth.LoginResult, error)
	resendFn   func(ctx context.Context, email string) error
	forgotFn   func(ctx context.Context, email string) error
	resetFn    func(ctx context.Context, token, password string) error
	currentFn  func(ctx context.Context, userID string) (user.Summary, error)
}

func (f *fakeAuthService) Register(ctx context.Context, in auth.RegisterInput) error {
	if f.registerFn != nil {
		return f.registerFn(ctx, in)
	}
	return nil
}

func (f *fakeAuthService) VerifyEmail(ctx context.Context, token string) error {
	if f.verifyFn != nil {
		return f.verifyFn(ctx, token)
	}
	return nil
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (auth.LoginResult, error) {
	if f.loginFn != nil {
		return f.loginFn(ctx, email, password)
	}
	return auth.LoginResult{}, nil
}

func (f *fakeAuthService) ResendVerification(ctx context.Context, email string) error {
	if f.resendFn != nil {
		return f.resendFn(ctx, email)
	}
	return nil
}

func (f *fakeAuthService) ForgotPassword(ctx context.Context, email string) error {
	if f.forgotFn != nil {
		return f.forgotFn(ctx, email)
	}
	return nil
}

func (f *fakeAuthService) ResetPassword(ctx context.Context, token, password string) error {
	if f.resetFn != nil {
		return f.resetFn(ctx, token, password)
	}
	return nil
}

func (f *fakeAuthService) CurrentUser(ctx context.Context, userID string) (user.Summary, error) {
	if f.currentFn != nil {
		return f.currentFn(ctx, userID)
	}
	return user.Summary{}, nil
}

func testCfg() config.Config {
	return config.Config{
		Env:            "dev",
		CookieName:     "token",
		SessionTTLDays: 7,
	}
}

func newAuthRouter(svc handlers.AuthService) *gin.Engine {
	h := handlers.NewAuthHandler(svc, testCfg())

	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.GET("/auth/verify-email/:token", h.VerifyEmail)
	r.POST("/auth/login", h.Login)
	r.GET("/auth/logout", h.Logout)
	r.POST("/auth/resend-verification", h.ResendVerification)
	r.POST("/auth/forgot-password", h.ForgotPassword)
	r.POST("/auth/reset-password/:token", h.ResetPassword)

	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
	User    *user.Summary   `json:"user"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()

	var e envelope

	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("bad response body: %v body=%s", err, w.Body.String())
	}

	return e
}

func TestRegisterEndpoint(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		serviceErr  error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "created",
			body:        `{"name":"Jane","email":"jane@example.com","phone":"555-0100","password":"hunter22"}`,
			wantStatus:  http.StatusCreated,
			wantMessage: "User registered! Please verify your email",
		},
		{
			name:        "duplicate email",
			body:        `{"name":"Jane","email":"jane@example.com","phone":"555-0100","password":"hunter22"}`,
			serviceErr:  auth.ErrEmailTaken,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Email is already registered",
		},
		{
			name:        "delivery failure",
			body:        `{"name":"Jane","email":"jane@example.com","phone":"555-0100","password":"hunter22"}`,
			serviceErr:  auth.ErrDelivery,
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Email could not be sent",
		},
		{
			name:       "invalid body",
			body:       `{"email":"not-an-email"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAuthService{
				registerFn: func(ctx context.Context, in auth.RegisterInput) error {
					return tt.serviceErr
				},
			}

			w := doJSON(t, newAuthRouter(svc), http.MethodPost, "/auth/register", tt.body)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			e := decodeEnvelope(t, w)

			if e.Success != (tt.wantStatus < 300) {
				t.Fatalf("success flag mismatch: %+v", e)
			}

			if tt.wantMessage != "" && e.Message != tt.wantMessage {
				t.Fatalf("got message %q, want %q", e.Message, tt.wantMessage)
			}
		})
	}
}

func TestLoginEndpointSuccessSetsCookieAndToken(t *testing.T) {
	svc := &fakeAuthService{
		loginFn: func(ctx context.Context, email, password string) (auth.LoginResult, error) {
			return auth.LoginResult{
				Token: "signed.jwt.value",
				User:  user.Summary{ID: "u1", Email: email, Role: user.RoleUser, IsVerified: true},
			}, nil
		},
	}

	w := doJSON(t, newAuthRouter(svc), http.MethodPost, "/auth/login",
		`{"email":"jane@example.com","password":"hunter22"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	e := decodeEnvelope(t, w)

	if !e.Success || e.Token != "signed.jwt.value" {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}

	if e.User == nil || e.User.ID != "u1" {
		t.Fatalf("expected user summary in body: %s", w.Body.String())
	}

	cookies := w.Result().Cookies()

	var session *http.Cookie

	for _, c := range cookies {
		if c.Name == "token" {
			session = c
		}
	}

	if session == nil {
		t.Fatalf("session cookie not set")
	}

	if session.Value != "signed.jwt.value" {
		t.Fatalf("cookie carries %q, want the session token", session.Value)
	}

	if !session.HttpOnly {
		t.Fatalf("session cookie must be httpOnly")
	}

	if session.MaxAge != int((7*24)*3600) {
		t.Fatalf("cookie maxAge %d does not match the 7 day session", session.MaxAge)
	}
}

func TestLoginEndpointFailures(t *testing.T) {
	tests := []struct {
		name        string
		serviceErr  error
		wantStatus  int
		wantMessage string
	}{
		{"bad credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
		{"unverified", auth.ErrUnverifiedAccount, http.StatusUnauthorized, "Please verify your email first"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAuthService{
				loginFn: func(ctx context.Context, email, password string) (auth.LoginResult, error) {
					return auth.LoginResult{}, tt.serviceErr
				},
			}

			w := doJSON(t, newAuthRouter(svc), http.MethodPost, "/auth/login",
				`{"email":"jane@example.com","password":"hunter22"}`)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d", w.Code, tt.wantStatus)
			}

			e := decodeEnvelope(t, w)

			if e.Success || e.Message != tt.wantMessage {
				t.Fatalf("unexpected body: %s", w.Body.String())
			}

			for _, c := range w.Result().Cookies() {
				if c.Name == "token" {
					t.Fatalf("failed login must not set a session cookie")
				}
			}
		})
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	w := doJSON(t, newAuthRouter(&fakeAuthService{}), http.MethodGet, "/auth/logout", "")

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d", w.Code)
	}

	e := decodeEnvelope(t, w)

	if !e.Success || e.Message != "User logged out successfully" {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}

	var session *http.Cookie

	for _, c := range w.Result().Cookies() {
		if c.Name == "token" {
			session = c
		}
	}

	if session == nil {
		t.Fatalf("logout should rewrite the session cookie")
	}

	if session.Value != "none" {
		t.Fatalf("got cookie value %q, want \"none\"", session.Value)
	}

	if session.MaxAge > 10 {
		t.Fatalf("logout cookie should expire within seconds, got maxAge=%d", session.MaxAge)
	}
}

func TestVerifyEmailEndpoint(t *testing.T) {
	svc := &fakeAuthService{
		verifyFn: func(ctx context.Context, token string) error {
			if token == "good" {
				return nil
			}
			return auth.ErrInvalidOrExpired
		},
	}

	r := newAuthRouter(svc)

	w := doJSON(t, r, http.MethodGet, "/auth/verify-email/good", "")

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/auth/verify-email/stale", "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", w.Code)
	}

	if e := decodeEnvelope(t, w); e.Message != "Invalid or expired verification token" {
		t.Fatalf("got message %q", e.Message)
	}
}

func TestForgotPasswordEndpoint(t *testing.T) {
	svc := &fakeAuthService{
		forgotFn: func(ctx context.Context, email string) error {
			if email == "jane@example.com" {
				return nil
			}
			return auth.ErrUserNotFound
		},
	}

	r := newAuthRouter(svc)

	w := doJSON(t, r, http.MethodPost, "/auth/forgot-password", `{"email":"jane@example.com"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if e := decodeEnvelope(t, w); e.Message != "Reset email sent" {
		t.Fatalf("got message %q", e.Message)
	}

	w = doJSON(t, r, http.MethodPost, "/auth/forgot-password", `{"email":"nobody@example.com"}`)

	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown email: got status %d, want 404", w.Code)
	}
}

func TestResetPasswordEndpoint(t *testing.T) {
	var gotToken, gotPassword string

	svc := &fakeAuthService{
		resetFn: func(ctx context.Context, token, password string) error {
			gotToken, gotPassword = token, password
			return nil
		},
	}

	w := doJSON(t, newAuthRouter(svc), http.MethodPost, "/auth/reset-password/abc123",
		`{"password":"newpass99"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if gotToken != "abc123" || gotPassword != "newpass99" {
		t.Fatalf("service received (%q, %q)", gotToken, gotPassword)
	}

	if e := decodeEnvelope(t, w); e.Message != "Password reset successful" {
		t.Fatalf("got message %q", e.Message)
	}

	// short password is rejected before the service is called
	w = doJSON(t, newAuthRouter(svc), http.MethodPost, "/auth/reset-password/abc123",
		`{"password":"abc"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("short password: got status %d, want 400", w.Code)
	}
}

func TestResendVerificationEndpoint(t *testing.T) {
	svc := &fakeAuthService{
		resendFn: func(ctx context.Context, email string) error {
			return auth.ErrAlreadyVerified
		},
	}

	w := doJSON(t, newAuthRouter(svc), http.MethodPost, "/auth/resend-verification",
		`{"email":"jane@example.com"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", w.Code)
	}

	if e := decodeEnvelope(t, w); !strings.Contains(e.Message, "already verified") {
		t.Fatalf("got message %q", e.Message)
	}
}
