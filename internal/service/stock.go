package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/example/amargodulce/internal/datamodels/order"
	"github.com/example/amargodulce/internal/datamodels/product"
)

// Shortfall 一个商品的缺口：要的比有的多
type Shortfall struct {
	ProductRef string `json:"product_ref"`
	Requested  int64  `json:"requested"`
	Available  int64  `json:"available"`
}

// StockValidator 库存校验与扣减。
// 下单前的预检和支付确认后的复检走的是同一份逻辑：预检挡住明显卖空的单，
// 复检兜住预检到回调之间被别的订单买走的窗口。
type StockValidator struct {
	productRepo product.Repository
}

// NewStockValidator 创建库存校验器
func NewStockValidator(productRepo product.Repository) *StockValidator {
	return &StockValidator{productRepo: productRepo}
}

// aggregate 把订单行按商品聚合，同一商品多行合并计数
func aggregate(items []order.Item) map[string]int64 {
	need := make(map[string]int64, len(items))
	for _, it := range items {
		if it.Quantity > 0 {
			need[it.ProductRef] += it.Quantity
		}
	}
	return need
}

// Validate 校验库存，返回全部缺口（不是只报第一个），好让买家/运营一次看全。
// 商品不存在按库存 0 处理；Stock 为 NULL 表示不限量，直接放行。
func (v *StockValidator) Validate(ctx context.Context, items []order.Item) ([]Shortfall, error) {
	need := aggregate(items)

	var problems []Shortfall
	for ref, requested := range need {
		p, err := v.productRepo.GetByRef(ctx, ref)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				problems = append(problems, Shortfall{ProductRef: ref, Requested: requested, Available: 0})
				continue
			}
			return nil, err
		}
		if p.Stock == nil {
			continue // 不限量
		}
		if *p.Stock < requested {
			problems = append(problems, Shortfall{ProductRef: ref, Requested: requested, Available: *p.Stock})
		}
	}
	return problems, nil
}

// Decrement 按聚合后的数量逐商品扣减。扣减本身由仓储端一条原子语句完成并在 0 处封底，
// 不限量商品在仓储端天然跳过。
func (v *StockValidator) Decrement(ctx context.Context, items []order.Item) error {
	need := aggregate(items)
	for ref, qty := range need {
		if err := v.productRepo.DecrementStock(ctx, ref, qty); err != nil {
			return err
		}
		GetMonitor().RecordStockDecrement()
	}
	return nil
}
