// 包 migrate：启动时建表
package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"geoloc/internal/logger"
)

// 背景：首次运行自动创建门店与购物清单表，保障导入与查询可直接进行
// 约束：全部使用 IF NOT EXISTS，可重复执行
var statements = []string{
	`CREATE TABLE IF NOT EXISTS stores (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        address TEXT NOT NULL DEFAULT '',
        lat DOUBLE PRECISION NOT NULL CHECK (lat BETWEEN -90 AND 90),
        lng DOUBLE PRECISION NOT NULL CHECK (lng BETWEEN -180 AND 180),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE INDEX IF NOT EXISTS idx_stores_lat_lng ON stores(lat, lng)`,
	`CREATE TABLE IF NOT EXISTS shopping_lists (
        id UUID PRIMARY KEY,
        name TEXT NOT NULL,
        items JSONB NOT NULL DEFAULT '[]'::jsonb,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE INDEX IF NOT EXISTS idx_shopping_lists_updated ON shopping_lists(updated_at DESC)`,
}

// Execer：*sql.DB 与 *sql.Tx 均满足
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func EnsureSchema(ctx context.Context, db Execer) error {
	for i, s := range statements {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
