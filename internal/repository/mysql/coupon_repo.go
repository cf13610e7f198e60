package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/example/amargodulce/internal/datamodels/coupon"
)

type couponRepo struct {
	db *gorm.DB
}

// NewCouponRepository 创建优惠券仓储
func NewCouponRepository(db *gorm.DB) coupon.Repository {
	return &couponRepo{db: db}
}

func (r *couponRepo) Create(ctx context.Context, c *coupon.Coupon) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *couponRepo) GetByID(ctx context.Context, id int64) (*coupon.Coupon, error) {
	var c coupon.Coupon
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *couponRepo) GetByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	var c coupon.Coupon
	if err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *couponRepo) ListAll(ctx context.Context) ([]*coupon.Coupon, error) {
	var list []*coupon.Coupon
	if err := r.db.WithContext(ctx).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *couponRepo) Update(ctx context.Context, c *coupon.Coupon) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *couponRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&coupon.Coupon{}, id).Error
}
