package service

import (
	"context"
	"errors"

	"github.com/example/amargodulce/internal/datamodels/review"
)

// ReviewService 商品评价（封装基础的读写）
type ReviewService struct {
	repo review.Repository
}

// NewReviewService 创建评价服务
func NewReviewService(repo review.Repository) *ReviewService {
	return &ReviewService{repo: repo}
}

// ListByProduct 返回某个商品的评价列表
func (s *ReviewService) ListByProduct(ctx context.Context, productRef string, afterID uint64, limit int) ([]*review.Review, error) {
	return s.repo.ListByProduct(ctx, productRef, afterID, limit)
}

// Create 发布一条评价
func (s *ReviewService) Create(ctx context.Context, productRef string, userID int64, rating int, content string) (*review.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, errors.New("评分必须在 1-5 之间")
	}
	r := &review.Review{
		ProductRef: productRef,
		UserID:     userID,
		Rating:     rating,
		Content:    content,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}
