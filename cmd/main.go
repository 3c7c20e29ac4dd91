// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"geoloc/internal/api"
	"geoloc/internal/config"
	"geoloc/internal/geolocation"
	"geoloc/internal/location"
	"geoloc/internal/logger"
	"geoloc/internal/metrics"
	"geoloc/internal/middleware"
	"geoloc/internal/migrate"
	"geoloc/internal/shopping"
	"geoloc/internal/stores"
	"geoloc/internal/utils"
)

func main() {
	cfg := config.Load()
	// 日志初始化
	l := logger.Setup()
	l.Debug("log_init_ok")
	l.Debug("config_api_base", "base", cfg.APIBase)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := utils.OpenPostgres(cfg.Postgres)
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := utils.PingPostgres(db, 5*time.Second); err != nil {
		l.Error("db_ping_error", "err", err)
	} else {
		l.Info("db_ping_ok")
	}
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}

	rc := utils.OpenRedis(cfg.Redis)
	if rc == nil {
		l.Info("redis_disabled")
	} else {
		defer rc.Close()
		if err := rc.Ping(ctx).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
		}
	}

	// 文档注释：定位宿主初始化
	// 背景：未配置任何提供者时 host 为 nil，定位请求统一以 NOT_SUPPORTED 结束。
	host, closeProviders := config.BuildHost(cfg)
	defer closeProviders()
	var platform geolocation.Geolocation
	if host != nil {
		host.Start(ctx)
		platform = host
	}
	svc := location.NewService(platform, location.WithDefaultTimeout(cfg.GeolocationTimeout))
	tracker := location.NewTracker(svc, location.WithContext(ctx))
	defer tracker.Close()
	// 服务自身位置：启动即定位一次，供附近门店缺省参考点使用
	tracker.Refetch()

	storeRepo := stores.NewRepository(db)
	nearby := stores.NewNearby(storeRepo,
		stores.WithRedis(rc),
		stores.WithTTL(cfg.NearbyCacheTTL),
		stores.WithRadius(cfg.NearbyRadiusMiles),
	)
	ready := map[string]func(context.Context) error{
		"postgres": db.PingContext,
	}
	if rc != nil {
		ready["redis"] = func(ctx context.Context) error { return rc.Ping(ctx).Err() }
	}

	apiMux := api.BuildRoutes(api.Deps{
		Location: svc,
		Tracker:  tracker,
		Stores:   storeRepo,
		Nearby:   nearby,
		Lists:    shopping.NewRepository(db),
		Ready:    ready,
	})
	mux := http.NewServeMux()
	mux.Handle(cfg.APIBase+"/", http.StripPrefix(cfg.APIBase, apiMux))
	mux.Handle(cfg.APIBase+"/metrics", metrics.Handler())

	handler := logger.AccessMiddleware(l)(middleware.Wrap(cfg, mux))
	s := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		l.Info("shutdown_begin")
		_ = s.Shutdown(sctx)
	}()

	if cfg.TLSEnable {
		if err := utils.EnsureSelfSignedCert(cfg.TLSCertPath, cfg.TLSKeyPath, "geoloc.local"); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		l.Info("listening_tls", "addr", cfg.Addr, "cert", cfg.TLSCertPath)
		err = s.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
	} else {
		l.Info("listening", "addr", cfg.Addr)
		err = s.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("server_error", "err", err)
		os.Exit(1)
	}
	tracker.Wait()
	l.Info("shutdown_done")
}
