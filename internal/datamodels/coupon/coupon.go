package coupon

import (
	"context"
	"time"
)

// Coupon 优惠券模型
type Coupon struct {
	ID           int64     `gorm:"primaryKey"`
	Code         string    `gorm:"uniqueIndex;size:32;not null"` // 结账时输入的券码
	Description  string    `gorm:"size:255"`
	StartTime    time.Time `gorm:"index"` // 生效时间
	EndTime      time.Time `gorm:"index"` // 失效时间
	Discount     float64   `gorm:"type:decimal(5,2);not null"` // 折扣（0.1-1.0，如 0.8 表示 8 折）
	LimitPerUser int64     `gorm:"default:1"`                  // 每人可用次数，默认 1
	Status       int       `gorm:"index;default:0"`            // 状态：0-未启用 1-启用 2-已停用
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Repository 优惠券仓储接口
type Repository interface {
	Create(ctx context.Context, c *Coupon) error
	GetByID(ctx context.Context, id int64) (*Coupon, error)
	GetByCode(ctx context.Context, code string) (*Coupon, error)
	ListAll(ctx context.Context) ([]*Coupon, error)
	Update(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, id int64) error
}
