package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestIsAllowedOrigin(t *testing.T) {
	allowed := []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost",
		"https://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1",
		"http://[::1]:3000",
	}

	for _, origin := range allowed {
		if !isAllowedOrigin(origin) {
			t.Errorf("isAllowedOrigin(%q) = false, want true", origin)
		}
	}

	denied := []string{
		"https://evil.com",
		"http://localhost.evil.com",
		"http://192.168.1.1:3000",
		"",
		"ftp://localhost:3000",
		"http://localhost:not-a-port",
		"http://localhost:3000/path",
		"http://localhost:70000",
		"http://user@localhost:3000",
	}

	for _, origin := range denied {
		if isAllowedOrigin(origin) {
			t.Errorf("isAllowedOrigin(%q) = true, want false", origin)
		}
	}
}

func TestIsLoopbackRemoteAddr(t *testing.T) {
	cases := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:12345", true},
		{"[::1]:12345", true},
		{"::1", true},
		{"[::1]", true},
		{"127.0.0.1", true},
		{"8.8.8.8:12345", false},
		{"192.168.1.1:8080", false},
		{"not-an-ip:1234", false},
		{"", false},
		{"garbage", false},
	}

	for _, tc := range cases {
		if got := isLoopbackRemoteAddr(tc.addr); got != tc.want {
			t.Errorf("isLoopbackRemoteAddr(%q) = %v, want %v", tc.addr, got, tc.want)
		}
	}
}

func TestCORSAllowlist_AllowedOrigin(t *testing.T) {
	handler := CORSAllowlist()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	rr.Header().Set("Vary", "Accept-Encoding")

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q, want %q", got, "http://localhost:3000")
	}
	vary := strings.Join(rr.Header().Values("Vary"), ",")
	if !strings.Contains(vary, "Accept-Encoding") || !strings.Contains(vary, "Origin") {
		t.Errorf("Vary = %q, want Accept-Encoding and Origin", vary)
	}
}

func TestCORSAllowlist_DeniedOrigin(t *testing.T) {
	handler := CORSAllowlist()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.com")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (request still served, just no ACAO)", rr.Code, http.StatusOK)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("ACAO = %q, want empty for denied origin", got)
	}
}

func TestCORSAllowlist_Preflight(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		want   int
	}{
		{"allowed", "http://localhost:3000", http.StatusNoContent},
		{"denied", "https://evil.com", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := CORSAllowlist()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called for preflight")
			}))

			req := httptest.NewRequest(http.MethodOptions, "/projects/p1/video", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", "GET")
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestCORSAllowlist_PreflightHeaders(t *testing.T) {
	handler := CORSAllowlist()(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/projects/p1/video", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	for header, want := range map[string][]string{
		"Access-Control-Allow-Headers":  {"Range", "Authorization", "Content-Type"},
		"Access-Control-Expose-Headers": {"Content-Range", "Accept-Ranges", "Content-Length"},
		"Access-Control-Allow-Methods":  {"GET", "HEAD", "PATCH", "DELETE"},
	} {
		got := rr.Header().Get(header)
		for _, w := range want {
			if !strings.Contains(got, w) {
				t.Errorf("%s missing %q, got %q", header, w, got)
			}
		}
	}
}

func TestLoopbackGuard(t *testing.T) {
	tests := []struct {
		addr string
		want int
	}{
		{"127.0.0.1:12345", http.StatusOK},
		{"[::1]:12345", http.StatusOK},
		{"8.8.8.8:12345", http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/projects", nil)
		req.RemoteAddr = tt.addr
		rr := httptest.NewRecorder()

		LoopbackGuard()(okHandler()).ServeHTTP(rr, req)

		if rr.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.addr, rr.Code, tt.want)
		}
		if tt.want == http.StatusForbidden {
			if code := decodeJSONBody(t, rr)["code"]; code != "FORBIDDEN" {
				t.Errorf("error code = %v, want FORBIDDEN", code)
			}
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		header string
		tokens *fakeTokens
		want   int
	}{
		{"valid", "/projects", "Bearer " + testToken, &fakeTokens{token: testToken}, http.StatusOK},
		{"missing", "/projects", "", &fakeTokens{token: testToken}, http.StatusUnauthorized},
		{"wrong scheme", "/projects", "Basic abc", &fakeTokens{token: testToken}, http.StatusUnauthorized},
		{"wrong token", "/projects", "Bearer nope", &fakeTokens{token: testToken}, http.StatusUnauthorized},
		{"query token on events", "/projects/events?token=" + testToken, "", &fakeTokens{token: testToken}, http.StatusOK},
		{"query token elsewhere", "/projects?token=" + testToken, "", &fakeTokens{token: testToken}, http.StatusUnauthorized},
		{"no stored token", "/projects", "Bearer " + testToken, &fakeTokens{}, http.StatusInternalServerError},
		{"store error", "/projects", "Bearer " + testToken, &fakeTokens{err: errors.New("db closed")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := AuthMiddleware(tt.tokens, testLogger())(okHandler())

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	if code := decodeJSONBody(t, rr)["code"]; code != "INTERNAL_ERROR" {
		t.Errorf("error code = %v, want INTERNAL_ERROR", code)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(RequestIDKey).(string)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if len(seen) != 8 {
		t.Fatalf("request id = %q, want 8 characters", seen)
	}
	if got := rr.Header().Get("X-Request-ID"); got != seen {
		t.Errorf("X-Request-ID = %q, want %q", got, seen)
	}
}
