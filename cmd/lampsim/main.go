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

	cfgpkg "github.com/taoyao-code/signal-lamp/internal/config"
	"github.com/taoyao-code/signal-lamp/internal/httpserver"
	"github.com/taoyao-code/signal-lamp/internal/logging"
	"github.com/taoyao-code/signal-lamp/internal/metrics"
	"github.com/taoyao-code/signal-lamp/internal/simulator"
)

func main() {
	fs := pflag.NewFlagSet("lampsim", pflag.ExitOnError)
	configPath := fs.String("config", "", "config file (yaml/toml/json)")
	fs.String("simulator.addr", "", "listen address, e.g. :20000")
	fs.String("simulator.mode", "", "reply mode: normal|silent|short|nack|mismatch|garbage")
	fs.String("http.addr", "", "metrics listen address")
	_ = fs.Parse(os.Args[1:])

	cfg, err := cfgpkg.LoadWithFlags(*configPath, fs)
	if err != nil {
		panic(err)
	}
	if _, err := simulator.ParseMode(cfg.Simulator.Mode); err != nil {
		panic(err)
	}

	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	log := zap.L()

	reg := metrics.NewRegistry()
	sim := simulator.New(cfg.Simulator,
		simulator.WithLogger(log.Named("sim")),
		simulator.WithMetrics(metrics.NewSimulatorMetrics(reg)),
	)
	if err := sim.Start(); err != nil {
		log.Fatal("simulator start error", zap.Error(err))
	}

	// 指标端点（可选）
	var httpSrv *httpserver.Server
	if cfg.Metrics.Enable {
		gin.SetMode(gin.ReleaseMode)
		httpSrv = httpserver.New(cfg.HTTP, httpserver.Options{
			MetricsPath: cfg.Metrics.Path,
			Metrics:     metrics.Handler(reg),
			Logger:      log,
		})
		go func() {
			if err := httpSrv.Start(); err != nil {
				log.Error("http server error", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if httpSrv != nil {
		_ = httpSrv.Shutdown(ctx)
	}
	_ = sim.Shutdown(ctx)
}
