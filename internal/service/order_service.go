package service

import (
	"context"
	"fmt"

	"github.com/example/amargodulce/internal/datamodels/order"
)

// OrderService 订单查询与后台人工推进
type OrderService struct {
	repo order.Repository
}

// NewOrderService 创建订单服务
func NewOrderService(repo order.Repository) *OrderService {
	return &OrderService{repo: repo}
}

// GetByExternalRef 买家用关联键查单（订单跟踪页轮询的就是这个）
func (s *OrderService) GetByExternalRef(ctx context.Context, ref string) (*order.Order, error) {
	return s.repo.GetByExternalRef(ctx, ref)
}

// ListByUser 查询指定用户的订单
func (s *OrderService) ListByUser(ctx context.Context, userID int64) ([]*order.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListRecent 查询最新的订单记录
func (s *OrderService) ListRecent(ctx context.Context, limit int) ([]*order.Order, error) {
	return s.repo.ListRecent(ctx, limit)
}

// ListByStatus 按状态筛选订单
func (s *OrderService) ListByStatus(ctx context.Context, status order.Status, limit int) ([]*order.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("未知状态: %s", status)
	}
	return s.repo.ListByStatus(ctx, status, limit)
}

// Advance 后台人工推进发货链路（paid -> shipped -> delivered）。
// 人工只许走发货这两跳：pending 之后的第一跳归对账器管，
// 人工把单标成 paid 会整个绕过库存校验和扣减闩。
func (s *OrderService) Advance(ctx context.Context, id int64, target order.Status) (*order.Order, error) {
	if target != order.StatusShipped && target != order.StatusDelivered {
		return nil, fmt.Errorf("人工只能推进到 shipped/delivered，不能转到 %s", target)
	}
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.CanTransition(o.Status, target) {
		return nil, fmt.Errorf("订单 #%d 不能从 %s 转到 %s", id, o.Status, target)
	}
	if err := s.repo.UpdateFields(ctx, id, map[string]interface{}{"status": target}); err != nil {
		return nil, err
	}
	o.Status = target
	return o, nil
}
