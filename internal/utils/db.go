// 包 utils：数据库、缓存与证书的连接工具
package utils

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"geoloc/internal/config"
	"geoloc/internal/logger"

	_ "github.com/lib/pq"
)

// OpenPostgres：按配置打开连接池；sql.Open 不建立连接，可用性由 PingPostgres 检查
func OpenPostgres(c config.Postgres) (*sql.DB, error) {
	db, err := sql.Open("postgres", c.DSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(c.MaxOpen)
	db.SetMaxIdleConns(c.MaxIdle)
	logger.L().Debug("pg_pool", "host", c.Host, "db", c.DB, "max_open", c.MaxOpen, "max_idle", c.MaxIdle)
	return db, nil
}

// PingPostgres：带超时的连通性检查
func PingPostgres(db *sql.DB, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return db.PingContext(ctx)
}
