package web

import (
	"context"
	"encoding/base64"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type nonceKey struct{}

// NonceFromContext returns the CSP nonce generated for the request, or ""
// in development mode.
func NonceFromContext(ctx context.Context) string {
	nonce, _ := ctx.Value(nonceKey{}).(string)
	return nonce
}

const cspTemplate = `
  default-src * 'unsafe-inline' 'unsafe-eval' data: blob:;
  script-src * 'unsafe-inline' 'unsafe-eval';
  style-src * 'unsafe-inline';
  img-src * data: blob:;
  font-src * data:;
  object-src *;
  base-uri 'self';
  form-action *;
  frame-ancestors {{ancestors}};
  block-all-mixed-content;
  upgrade-insecure-requests;
`

var whitespaceRun = regexp.MustCompile(`\s{2,}`)

// contentSecurityPolicyValue returns the policy on a single line. The
// frame-ancestors list lets the portal embed the pages.
func contentSecurityPolicyValue(frameAncestors string) string {
	policy := strings.ReplaceAll(cspTemplate, "{{ancestors}}", frameAncestors)
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(policy, " "))
}

// contentSecurityPolicy sets the CSP header and a per-request nonce.
// Development mode skips it.
func (s *Server) contentSecurityPolicy(next http.Handler) http.Handler {
	policy := contentSecurityPolicyValue(s.cfg.FrameAncestors)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.IsDevelopment() {
			next.ServeHTTP(w, r)
			return
		}

		nonce := base64.StdEncoding.EncodeToString([]byte(uuid.NewString()))
		r.Header.Set("X-Nonce", nonce)
		r.Header.Set("Content-Security-Policy", policy)
		w.Header().Set("Content-Security-Policy", policy)

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), nonceKey{}, nonce)))
	})
}

// logRequests logs one line per request. The query string is left out
// because it carries session tokens.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// bearerToken returns the session token from ?token= or an
// Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}
