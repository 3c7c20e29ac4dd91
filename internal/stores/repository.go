package stores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"geoloc/internal/geo"
	"geoloc/internal/logger"

	_ "github.com/lib/pq"
)

// Repository：门店表的 PostgreSQL 访问层
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{db: db} }

const storeCols = "id, name, address, lat, lng"

func scanStores(rows *sql.Rows) ([]Store, error) {
	defer rows.Close()
	var out []Store
	for rows.Next() {
		var s Store
		if err := rows.Scan(&s.ID, &s.Name, &s.Address, &s.Location.Lat, &s.Location.Lng); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// List：按 ID 返回全部门店
func (r *Repository) List(ctx context.Context) ([]Store, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+storeCols+" FROM stores ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	return scanStores(rows)
}

func (r *Repository) Get(ctx context.Context, id string) (Store, error) {
	var s Store
	row := r.db.QueryRowContext(ctx, "SELECT "+storeCols+" FROM stores WHERE id=$1", id)
	if err := row.Scan(&s.ID, &s.Name, &s.Address, &s.Location.Lat, &s.Location.Lng); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Store{}, ErrNotFound
		}
		return Store{}, fmt.Errorf("get store %s: %w", id, err)
	}
	return s, nil
}

// Upsert：按 ID 插入或覆盖
func (r *Repository) Upsert(ctx context.Context, s Store) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO stores(id, name, address, lat, lng)
        VALUES($1,$2,$3,$4,$5)
        ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, address=EXCLUDED.address, lat=EXCLUDED.lat, lng=EXCLUDED.lng, updated_at=now()`,
		s.ID, s.Name, s.Address, s.Location.Lat, s.Location.Lng)
	if err != nil {
		return fmt.Errorf("upsert store %s: %w", s.ID, err)
	}
	logger.L().Debug("store_upsert", "id", s.ID)
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM stores WHERE id=$1", id)
	if err != nil {
		return fmt.Errorf("delete store %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// 文档注释：矩形预筛选
// 背景：附近门店先按经纬度矩形走 (lat,lng) 索引缩小候选，再在内存中精确排序。
func (r *Repository) WithinBox(ctx context.Context, b geo.Box) ([]Store, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+storeCols+" FROM stores WHERE lat BETWEEN $1 AND $2 AND lng BETWEEN $3 AND $4",
		b.MinLat, b.MaxLat, b.MinLng, b.MaxLng)
	if err != nil {
		return nil, fmt.Errorf("stores within box: %w", err)
	}
	out, err := scanStores(rows)
	if err != nil {
		return nil, err
	}
	logger.L().Debug("stores_within_box", "min_lat", b.MinLat, "max_lat", b.MaxLat, "min_lng", b.MinLng, "max_lng", b.MaxLng, "n", len(out))
	return out, nil
}
