package http_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/catboard/auth-service/internal/application/auth"
	"github.com/catboard/auth-service/internal/domain"
	"github.com/catboard/auth-service/internal/infrastructure/memory"
	"github.com/catboard/auth-service/internal/infrastructure/security"
	"github.com/catboard/auth-service/internal/transport/http/middleware"
)

const (
	testAccessTTL  = 15 * time.Minute
	testRefreshTTL = 7 * 24 * time.Hour
)

// testEnv wires real handlers over the in-memory stores.
type testEnv struct {
	auth     *AuthHandler
	users    *UsersHandler
	svc      *auth.Service
	store    *memory.Store
	delivery *memory.LogDelivery
	hasher   *security.BcryptHasher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	delivery := memory.NewLogDelivery()
	hasher := security.NewBcryptHasher(4)
	signer := security.NewJWTSigner("test-secret", "catboard-auth", "catboard")

	svc := auth.NewService(
		store.Users(),
		hasher,
		signer,
		store.RefreshTokens(),
		store.Codes(),
		delivery,
		auth.Config{AccessTTL: testAccessTTL, RefreshTTL: testRefreshTTL, CodeTTL: 10 * time.Minute},
	)

	return &testEnv{
		auth:     NewAuthHandler(svc, testAccessTTL, testRefreshTTL, false),
		users:    NewUsersHandler(svc),
		svc:      svc,
		store:    store,
		delivery: delivery,
		hasher:   hasher,
	}
}

// seedUser stores a verified account with the given role and password.
func (e *testEnv) seedUser(t *testing.T, email string, role domain.Role, password string) domain.User {
	t.Helper()

	hash, err := e.hasher.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	now := time.Now().UTC()
	u, err := e.store.Users().Create(context.Background(), domain.User{
		ID:            uuid.NewString(),
		Name:          "Seeded",
		Email:         email,
		PasswordHash:  hash,
		Role:          role,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return u
}

// mustJSONBody marshals v to JSON and returns an io.Reader for request body.
func mustJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	return bytes.NewReader(b)
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	var r io.Reader = http.NoBody
	if body != nil {
		r = mustJSONBody(t, body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// mustReadData decodes the {"data": ...} envelope into out.
func mustReadData(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil || len(env.Data) == 0 {
		t.Fatalf("decode envelope failed; body=%s", rr.Body.String())
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data failed; body=%s err=%v", rr.Body.String(), err)
	}
}

type errorBody struct {
	Error struct {
		Code string            `json:"code"`
		Meta map[string]string `json:"meta"`
	} `json:"error"`
}

func mustReadError(t *testing.T, rr *httptest.ResponseRecorder) errorBody {
	t.Helper()

	var out errorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode error body failed; body=%s", rr.Body.String())
	}
	return out
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) errorBody {
	t.Helper()

	if rr.Code != status {
		t.Fatalf("expected %d, got %d body=%s", status, rr.Code, rr.Body.String())
	}
	eb := mustReadError(t, rr)
	if eb.Error.Code != code {
		t.Fatalf("expected code %q, got %q", code, eb.Error.Code)
	}
	return eb
}

// readCookie finds cookie by name from response headers.
func readCookie(res *http.Response, name string) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// withUserCtx injects user_id + role as the Auth middleware would.
func withUserCtx(req *http.Request, userID string, role domain.Role) *http.Request {
	ctx := middleware.WithUser(req.Context(), userID, string(role))
	return req.WithContext(ctx)
}

// withURLParam injects chi URL param (e.g. /users/{id}) into request context.
func withURLParam(req *http.Request, key, val string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, val)

	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	return req.WithContext(ctx)
}
