package main

import (
	"Ripple/internal/api/config"
	"Ripple/internal/pkg/cron"
	"Ripple/internal/pkg/logger"
	"Ripple/internal/pkg/metrics"
	"Ripple/internal/pkg/mongo"
	"Ripple/internal/pkg/redis"
	"Ripple/internal/wire"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

func main() {
	// 加载配置
	if err := config.LoadConfig(); err != nil {
		log.Error("Fatal error: failed to load configuration", "err", err)
		panic(err)
	}
	cfg := config.Cfg

	// 初始化日志
	logger.InitLogger()

	// Redis 连接
	if err := redis.InitRedis(cfg.Redis); err != nil {
		log.Error("Fatal error: failed to create redis connection", "err", err)
		panic(err)
	}

	// Mongo 连接与索引
	mongoConn, err := mongo.InitMongo(cfg.Mongo)
	if err != nil {
		log.Error("Fatal error: failed to create mongo connection", "err", err)
		panic(err)
	}
	idxCtx, idxCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = mongo.EnsureIndexes(idxCtx, mongoConn)
	idxCancel()
	if err != nil {
		log.Error("Fatal error: failed to ensure mongo indexes", "err", err)
		panic(err)
	}

	// 指标注册
	metrics.MustRegister(prometheus.DefaultRegisterer)

	// 依赖注入
	app, err := wire.BuildApplication(mongoConn, cfg)
	if err != nil {
		log.Error("Fatal error: failed to create application", "err", err)
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	// 跨实例广播派发与资料同步后台任务
	app.Dispatcher.Start(ctx)
	app.ProfileWorker.Start(ctx)

	// 定时任务
	if err = cron.InitCron(app.CronManager); err != nil {
		log.Error("Fatal error: failed to start cron jobs", "err", err)
		panic(err)
	}

	// Kafka 消费者
	g.Go(func() error {
		log.Info("Kafka Consumers starting...")
		return app.KafkaManager.Start(ctx, cfg)
	})

	// HTTP 服务器
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: app.Router,
	}
	g.Go(func() error {
		log.Info("HTTP Server starting...", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// 收到信号后先排空 HTTP,再取消 ctx 放后台组件退出
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig := <-quit:
			log.Info("Received signal, shutting down...", "signal", sig)
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP Server shutdown failed", "err", err)
		}
		cancel()
		return nil
	})

	if err = g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("App exited with error", "err", err)
	}

	// 停序:定时任务、积压冲刷、广播退订、连接清退,最后断开存储
	app.CronManager.Stop()
	app.ProfileWorker.Stop()
	app.Dispatcher.Stop()
	app.Hub.Shutdown()

	discCtx, discCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer discCancel()
	if err = mongoConn.Client().Disconnect(discCtx); err != nil {
		log.Error("Mongo disconnect failed", "err", err)
	}
	_ = redis.Rdb.Close()

	log.Info("App exited successfully.")
}
