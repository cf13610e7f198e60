package review

import (
	"context"
	"time"
)

// Review 商品评价
type Review struct {
	ID         uint64    `gorm:"primaryKey"`
	ProductRef string    `gorm:"size:64;index;not null"`
	UserID     int64     `gorm:"index;not null"`
	Rating     int       `gorm:"not null"` // 1-5
	Content    string    `gorm:"size:512"`
	CreatedAt  time.Time `gorm:"index"`
}

// Repository 评价仓储接口
type Repository interface {
	ListByProduct(ctx context.Context, productRef string, afterID uint64, limit int) ([]*Review, error)
	Create(ctx context.Context, r *Review) error
}
