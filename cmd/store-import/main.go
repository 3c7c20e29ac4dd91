package main

import (
	"context"
	"flag"
	"io"
	"os"
	"sync"
	"time"

	"geoloc/internal/config"
	"geoloc/internal/logger"
	"geoloc/internal/migrate"
	"geoloc/internal/stores"
	"geoloc/internal/utils"
)

// 文档注释：简单令牌桶限流（每分钟）
// 背景：共享数据库上批量写入需限速；超出时阻塞等待下一分钟刷新。
type minuteLimiter struct {
	capacity int
	used     int
	lastMin  int64
	mu       sync.Mutex
}

func (ml *minuteLimiter) allow() bool {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	nowMin := time.Now().Unix() / 60
	if ml.lastMin != nowMin {
		ml.lastMin = nowMin
		ml.used = 0
	}
	if ml.used < ml.capacity {
		ml.used++
		return true
	}
	return false
}

// wait：阻塞直到允许或 ctx 结束
func (ml *minuteLimiter) wait(ctx context.Context) error {
	for !ml.allow() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}
	return nil
}

func main() {
	cfg := config.Load()
	l := logger.Setup()
	in := flag.String("in", "", "store catalogue (JSON array or JSON lines); empty reads stdin")
	workers := flag.Int("workers", 4, "concurrent writers")
	rate := flag.Int("rate", 0, "max writes per minute; 0 disables throttling")
	flag.Parse()
	l.Info("store_import_start", "in", *in, "workers", *workers, "rate_per_min", *rate)

	var r io.Reader = os.Stdin
	if *in != "" {
		f, err := os.Open(*in)
		if err != nil {
			l.Error("input_open_error", "err", err)
			os.Exit(1)
		}
		defer f.Close()
		r = f
	}
	ss, errs := stores.Decode(r)
	for _, e := range errs {
		l.Warn("store_record_skip", "err", e)
	}
	if len(ss) == 0 {
		l.Info("store_import_done", "total", 0, "skipped", len(errs))
		return
	}

	db, err := utils.OpenPostgres(cfg.Postgres)
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	ctx := context.Background()
	if err := utils.PingPostgres(db, 5*time.Second); err != nil {
		l.Error("db_ping_error", "err", err)
		os.Exit(1)
	}
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}

	var wait func(context.Context) error
	if *rate > 0 {
		wait = (&minuteLimiter{capacity: *rate}).wait
	}
	n, err := stores.Import(ctx, stores.NewRepository(db), ss, *workers, wait)
	if err != nil {
		l.Error("store_import_partial", "ok", n, "total", len(ss), "err", err)
	}
	// 附近门店缓存按前缀失效，避免旧候选集在 TTL 内继续生效
	if rc := utils.OpenRedis(cfg.Redis); rc != nil {
		if err := stores.NewNearby(nil, stores.WithRedis(rc)).Invalidate(ctx); err != nil {
			l.Warn("nearby_invalidate_error", "err", err)
		}
		_ = rc.Close()
	}
	l.Info("store_import_done", "total", n, "skipped", len(errs))
	if err != nil {
		os.Exit(1)
	}
}
