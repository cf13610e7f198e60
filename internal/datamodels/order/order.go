package order

import (
	"context"
	"time"
)

// Status 订单状态，直接存字符串，前台可直接展示
type Status string

const (
	StatusPending   Status = "pending"   // 已创建，等待支付
	StatusPaid      Status = "paid"      // 支付成功
	StatusFailed    Status = "failed"    // 支付失败或确认时库存不足
	StatusCancelled Status = "cancelled" // 买家/网关取消
	StatusShipped   Status = "shipped"   // 已发货（后台操作）
	StatusDelivered Status = "delivered" // 已送达（后台操作）
)

// transitions 固定的状态转移图。pending 之后由对账器自动推进，
// paid 之后只能由后台人工推进。failed/cancelled/delivered 为终态。
var transitions = map[Status][]Status{
	StatusPending: {StatusPaid, StatusFailed, StatusCancelled},
	StatusPaid:    {StatusShipped},
	StatusShipped: {StatusDelivered},
}

// Valid 判断是否为已知状态
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusFailed, StatusCancelled, StatusShipped, StatusDelivered:
		return true
	}
	return false
}

// CanTransition 判断 from -> to 是否在状态图内
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Order 订单模型
// ExternalRef 在下单时由服务端生成，是网关异步回调和本地订单之间唯一可靠的关联键：
// 网关自己的单号要到创建 preference 之后才存在。
type Order struct {
	ID          int64  `gorm:"primaryKey"`
	ExternalRef string `gorm:"uniqueIndex;size:64;not null"`
	UserID      int64  `gorm:"index;not null"`
	Status      Status `gorm:"size:16;index;not null"`
	Total       int64  `gorm:"not null"` // 分
	CouponCode  string `gorm:"size:32"`
	Discount    int64  // 优惠金额，分

	// StockAdjusted 库存扣减闩：只允许 false -> true 一次，
	// 且只发生在订单第一次进入 paid 的时候。
	StockAdjusted bool   `gorm:"not null;default:false"`
	FailureReason string `gorm:"size:255"`

	// 网关侧最近一次已知事实，每次通知都会刷新，用作审计轨迹
	PaymentID           string `gorm:"size:64;index"`
	PaymentStatus       string `gorm:"size:32"`
	PaymentStatusDetail string `gorm:"size:64"`
	PaymentExternalRef  string `gorm:"size:64"`

	Items     []Item `gorm:"foreignKey:OrderID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item 订单行，下单时快照单价
type Item struct {
	ID         int64  `gorm:"primaryKey"`
	OrderID    int64  `gorm:"index;not null"`
	ProductRef string `gorm:"size:64;index;not null"`
	Quantity   int64  `gorm:"not null"`
	UnitPrice  int64  `gorm:"not null"` // 分
}

// Repository 订单仓储接口
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	GetByExternalRef(ctx context.Context, ref string) (*Order, error)
	// UpdateFields 按字段部分更新，供对账器写回状态/支付事实
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	// ClaimStockAdjustment 原子地把库存闩从 false 翻成 true。
	// 返回 true 表示本次调用抢到了闩，调用方才有资格扣库存；
	// 返回 false 表示别的投递已经抢过了，跳过扣减。
	ClaimStockAdjustment(ctx context.Context, id int64) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]*Order, error)
	ListRecent(ctx context.Context, limit int) ([]*Order, error)
	ListByStatus(ctx context.Context, status Status, limit int) ([]*Order, error)
}
