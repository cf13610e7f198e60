package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	radix "github.com/mediocregopher/radix/v3"
	"gorm.io/gorm"

	"github.com/example/amargodulce/internal/datamodels/coupon"
)

const redisCouponUsedKey = "ad:coupon:used:%d:%s" // userID, code

// CouponService 优惠券：后台 CRUD + 结账时的核销。
// 每人限用次数用 Redis 计数，超限回滚计数并报错。
type CouponService struct {
	repo  coupon.Repository
	redis radix.Client
}

// NewCouponService 创建优惠券服务
func NewCouponService(repo coupon.Repository, redis radix.Client) *CouponService {
	return &CouponService{repo: repo, redis: redis}
}

// GetByCode 查券
func (s *CouponService) GetByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return s.repo.GetByCode(ctx, code)
}

// ListAll 列出所有券（后台用）
func (s *CouponService) ListAll(ctx context.Context) ([]*coupon.Coupon, error) {
	return s.repo.ListAll(ctx)
}

// Create 创建券
func (s *CouponService) Create(ctx context.Context, c *coupon.Coupon) error {
	if c.Discount <= 0 || c.Discount > 1 {
		return errors.New("折扣必须在 (0, 1] 区间")
	}
	return s.repo.Create(ctx, c)
}

// Update 更新券
func (s *CouponService) Update(ctx context.Context, c *coupon.Coupon) error {
	return s.repo.Update(ctx, c)
}

// Delete 删除券
func (s *CouponService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Redeem 结账时核销：校验状态和有效期，再用 Redis INCR 占一次使用额度。
func (s *CouponService) Redeem(ctx context.Context, userID int64, code string) (*coupon.Coupon, error) {
	c, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("优惠券不存在: %s", code)
		}
		return nil, err
	}
	if c.Status != 1 {
		return nil, errors.New("优惠券未启用")
	}
	now := time.Now()
	if now.Before(c.StartTime) {
		return nil, errors.New("优惠券尚未生效")
	}
	if now.After(c.EndTime) {
		return nil, errors.New("优惠券已过期")
	}
	if c.Discount <= 0 || c.Discount > 1 {
		return nil, errors.New("优惠券折扣配置有误")
	}

	limit := c.LimitPerUser
	if limit <= 0 {
		limit = 1
	}

	if s.redis != nil {
		key := fmt.Sprintf(redisCouponUsedKey, userID, code)
		var used int
		// INCR 原子占额度
		if err := s.redis.Do(radix.Cmd(&used, "INCR", key)); err != nil {
			GetMonitor().RecordRedisError()
			return nil, err
		}
		// 第一次使用时设置过期，跟着券的失效时间走
		if used == 1 {
			ttl := int64(time.Until(c.EndTime) / time.Second)
			if ttl < 60 {
				ttl = 60
			}
			_ = s.redis.Do(radix.FlatCmd(nil, "EXPIRE", key, ttl))
		}
		if int64(used) > limit {
			// 超限，回滚计数
			_ = s.redis.Do(radix.Cmd(nil, "DECR", key))
			return nil, errors.New("优惠券使用次数已达上限")
		}
	}

	return c, nil
}

// Rollback 下单失败时把占掉的额度还回去
func (s *CouponService) Rollback(ctx context.Context, userID int64, code string) {
	if s.redis == nil {
		return
	}
	key := fmt.Sprintf(redisCouponUsedKey, userID, code)
	if err := s.redis.Do(radix.Cmd(nil, "DECR", key)); err != nil {
		GetMonitor().RecordRedisError()
	}
}
