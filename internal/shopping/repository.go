package shopping

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"geoloc/internal/logger"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// Repository：购物清单的 PostgreSQL 访问层，条目以 JSONB 整体存取
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Create：分配 UUID 与时间戳后写入
func (r *Repository) Create(ctx context.Context, name string, items []Item) (List, error) {
	if items == nil {
		items = []Item{}
	}
	t := r.now().UTC()
	l := List{ID: uuid.NewString(), Name: name, Items: items, CreatedAt: t, UpdatedAt: t}
	if err := l.Validate(); err != nil {
		return List{}, err
	}
	b, err := json.Marshal(l.Items)
	if err != nil {
		return List{}, err
	}
	if _, err := r.db.ExecContext(ctx, `INSERT INTO shopping_lists(id, name, items, created_at, updated_at) VALUES($1,$2,$3,$4,$5)`,
		l.ID, l.Name, b, l.CreatedAt, l.UpdatedAt); err != nil {
		return List{}, fmt.Errorf("create list: %w", err)
	}
	logger.L().Debug("shopping_list_create", "id", l.ID, "items", len(l.Items))
	return l, nil
}

func (r *Repository) Get(ctx context.Context, id string) (List, error) {
	if _, err := uuid.Parse(id); err != nil {
		return List{}, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT id, name, items, created_at, updated_at FROM shopping_lists WHERE id=$1`, id)
	l, err := scanList(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return List{}, ErrNotFound
	}
	if err != nil {
		return List{}, fmt.Errorf("get list %s: %w", id, err)
	}
	return l, nil
}

// Save：整体覆盖名称与条目并刷新 UpdatedAt
func (r *Repository) Save(ctx context.Context, l *List) error {
	if err := l.Validate(); err != nil {
		return err
	}
	if l.Items == nil {
		l.Items = []Item{}
	}
	b, err := json.Marshal(l.Items)
	if err != nil {
		return err
	}
	l.UpdatedAt = r.now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE shopping_lists SET name=$2, items=$3, updated_at=$4 WHERE id=$1`, l.ID, l.Name, b, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save list %s: %w", l.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM shopping_lists WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete list %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// All：按更新时间倒序
func (r *Repository) All(ctx context.Context) ([]List, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, items, created_at, updated_at FROM shopping_lists ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list shopping lists: %w", err)
	}
	defer rows.Close()
	var out []List
	for rows.Next() {
		l, err := scanList(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanList(scan func(dest ...any) error) (List, error) {
	var l List
	var raw []byte
	if err := scan(&l.ID, &l.Name, &raw, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return List{}, err
	}
	if err := json.Unmarshal(raw, &l.Items); err != nil {
		return List{}, fmt.Errorf("decode items of %s: %w", l.ID, err)
	}
	return l, nil
}
