package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/signal-lamp/internal/config"
)

// Options 可选的挂载项
type Options struct {
	MetricsPath string
	Metrics     http.Handler
	// Ready 进程就绪判定，nil 视为始终就绪
	Ready func() bool
	// Routes 额外路由注册函数（健康检查、灯控 API 等）
	Routes []func(r *gin.Engine)
	Logger *zap.Logger
}

// Server HTTP 服务封装
type Server struct {
	srv    *http.Server
	ln     net.Listener
	logger *zap.Logger
}

// New 创建并配置 Gin + HTTP Server，注册探针、指标与业务路由
func New(cfg cfgpkg.HTTPConfig, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/readyz", func(c *gin.Context) {
		if opts.Ready == nil || opts.Ready() {
			c.String(http.StatusOK, "ready")
			return
		}
		c.String(http.StatusServiceUnavailable, "not-ready")
	})
	metricsPath := opts.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	if opts.Metrics != nil {
		r.GET(metricsPath, gin.WrapH(opts.Metrics))
	}
	for _, register := range opts.Routes {
		register(r)
	}

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return &Server{srv: srv, logger: logger}
}

// Handler 返回根处理器
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Listen 绑定监听地址（非阻塞），之后调用 Serve
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr 实际监听地址（Listen 之后有效）
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve 处理请求（阻塞），正常关闭时返回 nil
func (s *Server) Serve() error {
	if s.ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Start 监听并处理请求（阻塞）
func (s *Server) Start() error {
	return s.Serve()
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
