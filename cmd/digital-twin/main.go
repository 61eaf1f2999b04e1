package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"digital-twin-go/internal/api/handler"
	"digital-twin-go/internal/api/router"
	"digital-twin-go/internal/bootstrap"
	"digital-twin-go/internal/config"
	"digital-twin-go/internal/constants"
	appCoreLogger "digital-twin-go/internal/logger"
	"digital-twin-go/internal/tracing"
)

func main() {
	// .env 中的 GROQ_API_KEY 等变量，文件不存在时忽略
	_ = godotenv.Load()

	var configPath string
	var writeSample string
	pflag.StringVarP(&configPath, "config", "c", "", "Path to config file (searches config.yaml, configs/config.yaml, ~/.digital-twin/config.yaml when empty)")
	pflag.StringVar(&writeSample, "write-config", "", "Write a sample config to the given path and exit")
	pflag.Parse()

	if writeSample != "" {
		if err := config.WriteSampleConfig(writeSample); err != nil {
			glog.Fatalf("写入示例配置失败: %v", err)
		}
		glog.Infof("示例配置已写入 %s", writeSample)
		return
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("加载配置失败: %v", err)
	}

	logCloser := appCoreLogger.Init(bootstrap.LoggerConfig(cfg))
	defer logCloser.Close()
	glog.SetLogger(hertzadapter.From(appCoreLogger.Logger))
	glog.SetLevel(hertzLevel(cfg.Logger.Level))
	glog.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, bootstrap.TracingConfig(cfg), constants.Version)
	if err != nil {
		glog.Warnf("初始化链路追踪失败，继续运行: %v", err)
	}

	twinApp, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		appCoreLogger.Fatal().Err(err).Str("profile_source", cfg.Profile.Source).Msg("初始化问答服务失败")
	}
	defer twinApp.Close()

	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		tracer,
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		glog.CtxInfof(c, "Request: %s %s", string(ctx.Method()), string(ctx.Path()))
		ctx.Next(c)
		glog.CtxInfof(c, "Response: status %d", ctx.Response.StatusCode())
	})

	router.RegisterRoutes(h, handler.NewTwinHandler(twinApp.Service), cfg.Server.APIKeys)
	glog.Info("HTTP路由注册成功")

	glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)
	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("服务器关闭失败: %v", err)
	}
	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			glog.Warnf("关闭链路追踪失败: %v", err)
		}
	}
	glog.Info("优雅退出完成")
}

func hertzLevel(level string) glog.Level {
	switch level {
	case "debug":
		return glog.LevelDebug
	case "warn":
		return glog.LevelWarn
	case "error":
		return glog.LevelError
	}
	return glog.LevelInfo
}
