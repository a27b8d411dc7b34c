package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/elibrary-backend/api/middleware"
	"github.com/angelmondragon/elibrary-backend/internal/auth"
	"github.com/angelmondragon/elibrary-backend/internal/users"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
)

type stubAuthService struct {
	loginReq   auth.LoginRequest
	refreshReq auth.RefreshRequest
	loggedOut  string
	resp       *auth.TokenResponse
	err        error
}

func (s *stubAuthService) Login(_ context.Context, req auth.LoginRequest) (*auth.TokenResponse, error) {
	s.loginReq = req
	return s.resp, s.err
}

func (s *stubAuthService) Refresh(_ context.Context, req auth.RefreshRequest) (*auth.TokenResponse, error) {
	s.refreshReq = req
	return s.resp, s.err
}

func (s *stubAuthService) Logout(_ context.Context, accessID string) error {
	s.loggedOut = accessID
	return s.err
}

type stubRegisterService struct {
	req auth.RegisterRequest
	err error
}

func (s *stubRegisterService) Register(_ context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	s.req = req
	if s.err != nil {
		return nil, s.err
	}
	return &users.UserDTO{ID: uuid.New(), Username: req.Username}, nil
}

func tokenResponse() *auth.TokenResponse {
	return &auth.TokenResponse{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", ExpiresIn: 3600}
}

func TestAuthLoginSuccess(t *testing.T) {
	svc := &stubAuthService{resp: tokenResponse()}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"  reader ","password":"secret1"}`))
	resp := httptest.NewRecorder()

	AuthLogin(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.loginReq.Username != "reader" {
		t.Fatalf("expected trimmed username got %q", svc.loginReq.Username)
	}
	var envelope struct {
		Data auth.TokenResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.AccessToken != "access" || envelope.Data.RefreshToken != "refresh" {
		t.Fatalf("unexpected tokens %+v", envelope.Data)
	}
}

func TestAuthLoginInvalidCredentials(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"reader","password":"wrong"}`))
	resp := httptest.NewRecorder()

	AuthLogin(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "invalid credentials") {
		t.Fatalf("expected message in body, got %s", resp.Body.String())
	}
}

func TestAuthLoginRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"reader","password":"x","email":"a@b.c"}`))
	resp := httptest.NewRecorder()

	AuthLogin(&stubAuthService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAuthRegisterCreatesAndLogsIn(t *testing.T) {
	reg := &stubRegisterService{}
	svc := &stubAuthService{resp: tokenResponse()}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`{"username":"newbie","email":"newbie@example.com","password":"secret1"}`))
	resp := httptest.NewRecorder()

	AuthRegister(reg, svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if reg.req.Email != "newbie@example.com" {
		t.Fatalf("register not called with body: %+v", reg.req)
	}
	if svc.loginReq.Username != "newbie" || svc.loginReq.Password != "secret1" {
		t.Fatalf("expected auto login, got %+v", svc.loginReq)
	}
}

func TestAuthRegisterValidation(t *testing.T) {
	reg := &stubRegisterService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`{"username":"ab","email":"nope","password":"123"}`))
	resp := httptest.NewRecorder()

	AuthRegister(reg, &stubAuthService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	for _, field := range []string{"username", "email", "password"} {
		if !strings.Contains(resp.Body.String(), field) {
			t.Fatalf("expected %s in validation details: %s", field, resp.Body.String())
		}
	}
}

func TestAuthRegisterConflict(t *testing.T) {
	reg := &stubRegisterService{err: pkgerrors.Conflict("username already exists")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`{"username":"taken","email":"t@example.com","password":"secret1"}`))
	resp := httptest.NewRecorder()

	AuthRegister(reg, &stubAuthService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestAuthRefreshPassesBearerToken(t *testing.T) {
	svc := &stubAuthService{resp: tokenResponse()}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"r1"}`))
	req.Header.Set("Authorization", "Bearer expired-access")
	resp := httptest.NewRecorder()

	AuthRefresh(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.refreshReq.AccessToken != "expired-access" || svc.refreshReq.RefreshToken != "r1" {
		t.Fatalf("unexpected refresh request %+v", svc.refreshReq)
	}
}

func TestAuthRefreshRequiresBearer(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"r1"}`))
	resp := httptest.NewRecorder()

	AuthRefresh(&stubAuthService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthLogoutRevokesSession(t *testing.T) {
	svc := &stubAuthService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req = req.WithContext(middleware.WithSessionID(req.Context(), "jti-1"))
	resp := httptest.NewRecorder()

	AuthLogout(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.loggedOut != "jti-1" {
		t.Fatalf("expected session jti-1 revoked, got %q", svc.loggedOut)
	}
}
