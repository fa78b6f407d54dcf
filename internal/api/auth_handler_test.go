package api

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"resumeStudio/internal/api/middleware"
	"resumeStudio/internal/auth"
	"resumeStudio/internal/errcode"
	"resumeStudio/internal/testutil"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *auth.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	authService := auth.NewAuthServiceWithKeys(key, &key.PublicKey, 15*time.Minute, time.Hour)
	h := NewAuthHandler(testutil.NewDB(t), authService, nil, slog.New(slog.DiscardHandler), 10)

	router := gin.New()
	group := router.Group("/v1/auth")
	group.POST("/register", h.Register)
	group.POST("/login", h.Login)
	group.POST("/refresh", h.Refresh)
	group.POST("/logout", h.Logout)
	router.GET("/v1/me", middleware.AuthMiddleware(authService), func(c *gin.Context) {
		id, _ := userIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{"id": id})
	})
	return router, authService
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuth_RegisterLoginAndAccess(t *testing.T) {
	router, _ := newAuthRouter(t)
	creds := gin.H{"username": "alice", "password": "correct-horse"}

	if w := postJSON(router, "/v1/auth/register", creds); w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	if w := postJSON(router, "/v1/auth/register", creds); w.Code != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409 got %d", w.Code)
	}

	w := postJSON(router, "/v1/auth/login", creds)
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var tokens tokenResponse
	if err := json.Unmarshal(w.Body.Bytes(), &tokens); err != nil {
		t.Fatal(err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" || tokens.TokenType != "Bearer" {
		t.Fatalf("unexpected token response %+v", tokens)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	me := httptest.NewRecorder()
	router.ServeHTTP(me, req)
	if me.Code != http.StatusOK {
		t.Fatalf("me: expected 200 got %d", me.Code)
	}

	// 刷新令牌不能当访问令牌用
	req = httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.RefreshToken)
	me = httptest.NewRecorder()
	router.ServeHTTP(me, req)
	if me.Code != http.StatusUnauthorized {
		t.Fatalf("refresh as access: expected 401 got %d", me.Code)
	}

	w = postJSON(router, "/v1/auth/refresh", gin.H{"refresh_token": tokens.RefreshToken})
	if w.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestAuth_Rejections(t *testing.T) {
	router, _ := newAuthRouter(t)

	expectError(t, postJSON(router, "/v1/auth/register", gin.H{"username": "bob", "password": "short"}), http.StatusBadRequest, errcode.ValidationFailed)

	postJSON(router, "/v1/auth/register", gin.H{"username": "bob", "password": "long-enough-pass"})
	expectError(t, postJSON(router, "/v1/auth/login", gin.H{"username": "bob", "password": "wrong-password"}), http.StatusUnauthorized, errcode.Unauthorized)
	expectError(t, postJSON(router, "/v1/auth/login", gin.H{"username": "nobody", "password": "whatever-pass"}), http.StatusUnauthorized, errcode.Unauthorized)
	expectError(t, postJSON(router, "/v1/auth/refresh", gin.H{"refresh_token": "garbage"}), http.StatusUnauthorized, errcode.Unauthorized)
	expectError(t, postJSON(router, "/v1/auth/logout", gin.H{}), http.StatusBadRequest, errcode.ValidationFailed)
}
