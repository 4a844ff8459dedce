// Package auth guards the state-changing API routes with static bearer
// tokens. Only SHA-256 digests of the tokens are kept in configuration.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"Web3-Scaffold/pkg/logger"
)

var (
	// ErrMissingToken 表示请求未携带 Bearer 令牌。
	ErrMissingToken = errors.New("缺少 Bearer 令牌")
	// ErrInvalidToken 表示令牌不在允许列表中。
	ErrInvalidToken = errors.New("令牌无效")
)

// Token 描述一个允许访问的调用方。
type Token struct {
	Name   string
	SHA256 string
}

type entry struct {
	name   string
	digest [sha256.Size]byte
}

// Guard 校验请求携带的 Bearer 令牌。零值 Guard 不做任何校验。
type Guard struct {
	entries []entry
}

// NewGuard 解析令牌摘要。
func NewGuard(tokens []Token) (*Guard, error) {
	g := &Guard{}
	for _, t := range tokens {
		raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(t.SHA256), "0x"))
		if err != nil || len(raw) != sha256.Size {
			return nil, fmt.Errorf("令牌 %s 的 sha256 摘要无效", t.Name)
		}
		var e entry
		e.name = t.Name
		copy(e.digest[:], raw)
		g.entries = append(g.entries, e)
	}
	return g, nil
}

// Digest 返回令牌的十六进制 SHA-256 摘要，用于生成配置。
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Enabled reports whether any token is configured.
func (g *Guard) Enabled() bool { return g != nil && len(g.entries) > 0 }

// Authenticate 解析 Authorization 头并返回调用方名称。
func (g *Guard) Authenticate(authorization string) (string, error) {
	parts := strings.SplitN(strings.TrimSpace(authorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", ErrMissingToken
	}
	sum := sha256.Sum256([]byte(strings.TrimSpace(parts[1])))
	name, found := "", 0
	for _, e := range g.entries {
		if subtle.ConstantTimeCompare(sum[:], e.digest[:]) == 1 {
			name, found = e.name, 1
		}
	}
	if found == 0 {
		return "", ErrInvalidToken
	}
	return name, nil
}

// Middleware 拒绝未认证的请求，并为通过的请求写审计日志。
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		audit := logger.Named("audit")
		caller, err := g.Authenticate(r.Header.Get("Authorization"))
		if err != nil {
			audit.Warn("access_denied", "method", r.Method, "path", r.URL.Path, "error", err.Error())
			w.Header().Set("WWW-Authenticate", `Bearer realm="scaffold"`)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		start := time.Now()
		aw := &auditWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(aw, r.WithContext(WithCaller(r.Context(), caller)))
		audit.Info("api_request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", aw.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"caller", caller)
	})
}

type auditWriter struct {
	http.ResponseWriter
	status int
}

func (w *auditWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

type callerKey struct{}

// WithCaller 将调用方名称写入上下文。
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFromContext 返回已认证的调用方名称。
func CallerFromContext(ctx context.Context) string {
	caller, _ := ctx.Value(callerKey{}).(string)
	return caller
}
