// 包 shopping：购物清单
package shopping

import (
	"errors"
	"time"
)

// ErrNotFound：清单不存在
var ErrNotFound = errors.New("shopping list not found")

// Item：清单条目
type Item struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	Checked     bool   `json:"checked"`
	// PriceCents：单价（分），0 表示未知
	PriceCents int64 `json:"priceCents,omitempty"`
}

// List：购物清单；Items 保持插入顺序
type List struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Remaining：未勾选条目数
func (l *List) Remaining() int {
	n := 0
	for _, it := range l.Items {
		if !it.Checked {
			n++
		}
	}
	return n
}

// Total：全部条目按数量计的合计金额（分）
func (l *List) Total() int64 {
	var n int64
	for _, it := range l.Items {
		n += it.PriceCents * int64(it.Quantity)
	}
	return n
}

// Toggle：切换指定商品的勾选状态；商品不存在返回 false
func (l *List) Toggle(productID string) bool {
	for i := range l.Items {
		if l.Items[i].ProductID == productID {
			l.Items[i].Checked = !l.Items[i].Checked
			return true
		}
	}
	return false
}

// 文档注释：校验条目
// 约束：商品 ID 非空且在清单内唯一，数量至少为 1。
func (l *List) Validate() error {
	seen := make(map[string]struct{}, len(l.Items))
	for _, it := range l.Items {
		if it.ProductID == "" {
			return errors.New("item product id required")
		}
		if it.PriceCents < 0 {
			return errors.New("item price must not be negative")
		}
		if it.Quantity < 1 {
			return errors.New("item quantity must be at least 1")
		}
		if _, dup := seen[it.ProductID]; dup {
			return errors.New("duplicate product id " + it.ProductID)
		}
		seen[it.ProductID] = struct{}{}
	}
	return nil
}
