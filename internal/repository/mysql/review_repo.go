package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/example/amargodulce/internal/datamodels/review"
)

type reviewRepo struct {
	db *gorm.DB
}

// NewReviewRepository 创建评价仓储
func NewReviewRepository(db *gorm.DB) review.Repository {
	return &reviewRepo{db: db}
}

func (r *reviewRepo) ListByProduct(ctx context.Context, productRef string, afterID uint64, limit int) ([]*review.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var list []*review.Review
	query := r.db.WithContext(ctx).Where("product_ref = ?", productRef)
	if afterID > 0 {
		query = query.Where("id > ?", afterID)
	}
	if err := query.Order("id ASC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *reviewRepo) Create(ctx context.Context, rv *review.Review) error {
	return r.db.WithContext(ctx).Create(rv).Error
}
