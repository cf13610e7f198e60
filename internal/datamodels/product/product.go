package product

import (
	"context"
	"time"
)

// Product 商品模型
// Stock 为 NULL 表示不限量（比如定制类商品），有限库存才参与校验和扣减。
type Product struct {
	ID          int64  `gorm:"primaryKey"`
	Ref         string `gorm:"uniqueIndex;size:64;not null"` // 商品引用，下单和回调都用它定位
	Name        string `gorm:"size:128;not null"`
	Description string `gorm:"size:512"`
	Price       int64  `gorm:"not null"` // 分
	Stock       *int64
	Category    string `gorm:"size:32;index"` // 分类：chocolates、alfajores、gift-boxes 等
	Status      int    `gorm:"index"`         // 0:下线 1:在售
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Repository 商品仓储接口
type Repository interface {
	GetByRef(ctx context.Context, ref string) (*Product, error)
	ListAll(ctx context.Context) ([]*Product, error)
	ListOnline(ctx context.Context) ([]*Product, error)
	ListByCategory(ctx context.Context, category string) ([]*Product, error)
	// Search 在售商品中按名称/描述关键词模糊查询，category 为空表示不限分类
	Search(ctx context.Context, category, keyword string) ([]*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error

	// DecrementStock 原子扣减：stock = max(stock - qty, 0)，由存储端一条语句完成，
	// 避免并发订单各自读到同一旧值后互相覆盖。Stock 为 NULL 的商品不受影响。
	DecrementStock(ctx context.Context, ref string, qty int64) error
}
