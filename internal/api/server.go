package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"Web3-Scaffold/internal/auth"
	"Web3-Scaffold/internal/contracts"
	xerrors "Web3-Scaffold/internal/errors"
	"Web3-Scaffold/internal/observability/metrics"
	"Web3-Scaffold/pkg/logger"
)

const nftPrefix = "/api/v1/contracts/example-nft"

// Server 负责暴露 ExampleNFT 合约的 REST 接口。
type Server struct {
	addr      string
	contracts *contracts.Contracts
	timeout   time.Duration
	guard     *auth.Guard
}

// Option 调整 Server 的可选行为。
type Option func(*Server)

// WithGuard 为写操作路由启用 Bearer 令牌校验。
func WithGuard(g *auth.Guard) Option {
	return func(s *Server) { s.guard = g }
}

// WithTimeout 设置单个请求访问链节点的超时。
func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, c *contracts.Contracts, opts ...Option) *Server {
	s := &Server{addr: addr, contracts: c, timeout: 15 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler 返回注册了全部路由的 http.Handler。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET "+nftPrefix, s.instrument("info", s.handleInfo))
	mux.Handle("GET "+nftPrefix+"/supply", s.instrument("supply", s.handleSupply))
	mux.Handle("GET "+nftPrefix+"/tokens/{id}", s.instrument("token", s.handleToken))
	mux.Handle("GET "+nftPrefix+"/balances/{address}", s.instrument("balance", s.handleBalance))
	mux.Handle("POST "+nftPrefix+"/mint", s.guard.Middleware(s.instrument("mint", s.handleMint)))
	mux.Handle("GET /healthz", s.instrument("healthz", s.handleHealth))
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Named("api").Info("API 服务已启动", "addr", s.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(name string, fn http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		fn(rec, r.WithContext(ctx))

		metrics.ObserveHTTPRequest(name, r.Method, rec.status, time.Since(start))
	})
}

type errorResponse struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		err = xerrors.Wrap(xerrors.CodeTimeout, err, "请求超时")
	}
	coded, ok := xerrors.From(err)
	if !ok {
		coded = xerrors.Wrap(xerrors.CodeUnknown, err, err.Error())
	}
	status := xerrors.HTTPStatus(coded)
	if status >= http.StatusInternalServerError {
		logger.Named("api").Error("请求处理失败", "code", coded.Code(), "error", err)
	}
	writeJSON(w, status, errorResponse{
		Code:     string(coded.Code()),
		Message:  coded.Message(),
		Metadata: coded.Metadata(),
	})
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
