package middleware_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/taskmanager/backend/internal/logger"
	"github.com/taskmanager/backend/internal/middleware"
	"github.com/taskmanager/backend/internal/utils"
)

// mockVerifier implements middleware.IdentityVerifier without signing anything.
type mockVerifier struct {
	identity utils.Identity
	err      error
	gotToken string
}

func (m *mockVerifier) VerifyIdentity(token string) (utils.Identity, error) {
	m.gotToken = token
	return m.identity, m.err
}

var ok200 = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// callWithHeader wraps inner in mw, optionally sets the Authorization header,
// and returns the recorded response.
func callWithHeader(t *testing.T, mw func(http.Handler) http.Handler, inner http.Handler, authorization string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	mw(inner).ServeHTTP(rec, req)
	return rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Success {
		t.Errorf("expected success=false in error body")
	}
	return body.Message
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", false},
		{"bearer abc", "abc", false},
		{"BEARER   abc  ", "abc", false},
		{"", "", true},
		{"   ", "", true},
		{"Basic dXNlcjpwYXNz", "", true},
		{"Bearer", "", true},
		{"Bearer a b", "", true},
		{"abc", "", true},
	}
	for _, tc := range cases {
		got, err := middleware.BearerToken(tc.header)
		if (err != nil) != tc.wantErr {
			t.Errorf("BearerToken(%q) err = %v, wantErr %v", tc.header, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("BearerToken(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}

// TestAuthenticate_MissingHeader verifies a request with no Authorization
// header gets 401 and never reaches the verifier.
func TestAuthenticate_MissingHeader(t *testing.T) {
	v := &mockVerifier{}
	rec := callWithHeader(t, middleware.Authenticate(v, logger.Discard()), ok200, "")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if msg := decodeMessage(t, rec); msg != "Authentication required" {
		t.Errorf("unexpected message %q", msg)
	}
	if v.gotToken != "" {
		t.Errorf("verifier should not be called, got token %q", v.gotToken)
	}
}

func TestAuthenticate_WrongScheme(t *testing.T) {
	v := &mockVerifier{}
	rec := callWithHeader(t, middleware.Authenticate(v, logger.Discard()), ok200, "Token abc")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

// TestAuthenticate_VerifierError covers expired, tampered and foreign tokens,
// which the verifier reports as one error.
func TestAuthenticate_VerifierError(t *testing.T) {
	v := &mockVerifier{err: errors.New("invalid token")}
	rec := callWithHeader(t, middleware.Authenticate(v, logger.Discard()), ok200, "Bearer expired.token.value")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if v.gotToken != "expired.token.value" {
		t.Errorf("verifier got %q", v.gotToken)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON error, got content type %q", ct)
	}
}

// TestAuthenticate_ValidToken verifies the identity reaches the inner handler.
func TestAuthenticate_ValidToken(t *testing.T) {
	want := utils.Identity{UserID: "user-123", Email: "a@x.com", Role: "Manager", Name: "Ada Lovelace"}
	v := &mockVerifier{identity: want}

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := utils.IdentityFromContext(r.Context())
		if !ok {
			http.Error(w, "identity not in context", http.StatusInternalServerError)
			return
		}
		if got != want {
			http.Error(w, "wrong identity in context: "+got.UserID, http.StatusInternalServerError)
			return
		}
		if id, _ := utils.GetUserIDFromContext(r.Context()); id != want.UserID {
			http.Error(w, "wrong user id", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	rec := callWithHeader(t, middleware.Authenticate(v, logger.Discard()), inner, "bearer good-token")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d; body: %s", rec.Code, rec.Body.String())
	}
}

// TestRequireRole_MissingIdentity verifies RequireRole returns 401 when
// Authenticate did not run.
func TestRequireRole_MissingIdentity(t *testing.T) {
	rec := callWithHeader(t, middleware.RequireRole("Admin"), ok200, "")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		role string
		want int
	}{
		{"Admin", http.StatusOK},
		{"Manager", http.StatusOK},
		{"User", http.StatusForbidden},
		{"admin", http.StatusForbidden},
		{"", http.StatusForbidden},
	}
	for _, tc := range cases {
		v := &mockVerifier{identity: utils.Identity{UserID: "u", Role: tc.role}}
		chain := func(next http.Handler) http.Handler {
			return middleware.Authenticate(v, logger.Discard())(middleware.RequireRole("Admin", "Manager")(next))
		}
		rec := callWithHeader(t, chain, ok200, "Bearer t")
		if rec.Code != tc.want {
			t.Errorf("role %q: expected %d, got %d", tc.role, tc.want, rec.Code)
		}
		if tc.want == http.StatusForbidden {
			if msg := decodeMessage(t, rec); msg != "Insufficient permissions" {
				t.Errorf("role %q: unexpected message %q", tc.role, msg)
			}
		}
	}
}

func TestCORS_AllowedOrigin(t *testing.T) {
	mw := middleware.CORS([]string{"http://localhost:3000"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	mw(ok200).ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("expected origin echoed, got %q", got)
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), "Authorization") {
		t.Errorf("Authorization should be an allowed header")
	}
}

func TestCORS_UnknownOrigin(t *testing.T) {
	mw := middleware.CORS([]string{"http://localhost:3000"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	mw(ok200).ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allow-origin header, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected request to pass through, got %d", rec.Code)
	}
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	middleware.CORS([]string{"http://localhost:5173"})(inner).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if called {
		t.Errorf("preflight should not reach the handler")
	}
}

func TestRateLimiter_PerIP(t *testing.T) {
	rl := middleware.NewRateLimiter(0.001, 2)
	defer rl.Close()
	h := rl.Middleware(ok200)

	do := func(remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := do("10.0.0.1:1234"); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, code)
		}
	}
	if code := do("10.0.0.1:5678"); code != http.StatusTooManyRequests {
		t.Errorf("expected 429 once the burst is spent, got %d", code)
	}
	if code := do("10.0.0.2:1234"); code != http.StatusOK {
		t.Errorf("other clients must not share the bucket, got %d", code)
	}
}

func TestRateLimiter_RetryAfterFollowsRate(t *testing.T) {
	tests := []struct {
		limit float64
		want  string
	}{
		{limit: 10, want: "1"},
		{limit: 1, want: "1"},
		{limit: 0.5, want: "2"},
		{limit: 0.3, want: "4"},
		{limit: 0.01, want: "100"},
	}
	for _, tt := range tests {
		rl := middleware.NewRateLimiter(tt.limit, 1)
		if got := rl.RetryAfter(); got != tt.want {
			t.Errorf("limit %v: expected Retry-After %q, got %q", tt.limit, tt.want, got)
		}
		rl.Close()
	}

	rl := middleware.NewRateLimiter(0.2, 1)
	defer rl.Close()
	h := rl.Middleware(ok200)
	var rec *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "5" {
		t.Errorf("expected Retry-After 5, got %q", got)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := middleware.NewRateLimiter(0, 0)
	defer rl.Close()
	for i := 0; i < 50; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("disabled limiter rejected request %d", i)
		}
	}
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	rl := middleware.NewRateLimiter(1, 1)
	defer rl.Close()
	rl.Allow("10.0.0.1")
	rl.Allow("10.0.0.2")

	rl.EvictIdle(time.Hour)
	if n := rl.Visitors(); n != 2 {
		t.Errorf("recent clients evicted: %d left", n)
	}
	rl.EvictIdle(-time.Second)
	if n := rl.Visitors(); n != 0 {
		t.Errorf("expected all clients evicted, %d left", n)
	}
}

// TestRateLimiter_CloseStopsCleanup verifies Close is idempotent and leaves
// no cleanup goroutine behind.
func TestRateLimiter_CloseStopsCleanup(t *testing.T) {
	defer goleak.VerifyNone(t)

	rl := middleware.NewRateLimiter(1, 1)
	rl.Allow("10.0.0.1")
	rl.Close()
	rl.Close()
}
