package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/taoyao-code/signal-lamp/internal/api"
	cfgpkg "github.com/taoyao-code/signal-lamp/internal/config"
	"github.com/taoyao-code/signal-lamp/internal/health"
	"github.com/taoyao-code/signal-lamp/internal/httpserver"
	"github.com/taoyao-code/signal-lamp/internal/lampclient"
	"github.com/taoyao-code/signal-lamp/internal/logging"
	"github.com/taoyao-code/signal-lamp/internal/metrics"
)

func main() {
	fs := pflag.NewFlagSet("lamp-gateway", pflag.ExitOnError)
	configPath := fs.String("config", "", "config file (yaml/toml/json)")
	fs.String("lamp.addr", "", "lamp address")
	fs.Int("lamp.port", 0, "lamp port")
	fs.String("http.addr", "", "http listen address")
	_ = fs.Parse(os.Args[1:])

	// 1) 加载配置
	cfg, err := cfgpkg.LoadWithFlags(*configPath, fs)
	if err != nil {
		panic(err)
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	log := zap.L()

	// 3) 指标注册与处理器
	reg := metrics.NewRegistry()
	lampMetrics := metrics.NewLampMetrics(reg)

	// 4) 设备客户端与 API
	client := lampclient.NewFromConfig(cfg.Lamp,
		lampclient.WithLogger(log.Named("lamp")),
		lampclient.WithObserver(lampMetrics),
	)
	handler := api.NewLampHandler(client, cfg.API.WatchInterval, log.Named("api"))

	// 5) 健康检查：与 API 共用串行化的读交换
	agg := health.NewAggregator(health.NewLampChecker(handler, client.Address()))
	agg.SetTimeout(cfg.Lamp.Timeout + time.Second)
	readiness := health.New()

	gin.SetMode(gin.ReleaseMode)
	opts := httpserver.Options{
		Ready:  readiness.Ready,
		Logger: log,
		Routes: []func(*gin.Engine){
			func(r *gin.Engine) { health.RegisterHTTPRoutes(r, agg) },
			func(r *gin.Engine) { api.RegisterLampRoutes(r, handler, cfg.API, log.Named("api")) },
		},
	}
	if cfg.Metrics.Enable {
		opts.MetricsPath = cfg.Metrics.Path
		opts.Metrics = metrics.Handler(reg)
	}
	httpSrv := httpserver.New(cfg.HTTP, opts)

	if err := httpSrv.Listen(); err != nil {
		log.Fatal("http listen error", zap.Error(err))
	}
	readiness.SetListening(true)
	log.Info("lamp gateway started",
		zap.String("lamp", client.Address()),
		zap.Duration("timeout", client.Timeout()),
	)
	go func() {
		if err := httpSrv.Serve(); err != nil {
			log.Error("http server error", zap.Error(err))
		}
	}()

	// 信号处理，优雅关闭
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	readiness.SetDraining(true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	log.Info("lamp gateway stopped")
}
