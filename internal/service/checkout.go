package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/amargodulce/internal/config"
	"github.com/example/amargodulce/internal/datamodels/order"
	"github.com/example/amargodulce/internal/datamodels/product"
	"github.com/example/amargodulce/internal/gateway"
)

// CheckoutLine 结账请求里的一行
type CheckoutLine struct {
	ProductRef string `json:"product_ref"`
	Quantity   int64  `json:"quantity"`
}

// CheckoutResult 下单 + 创建支付意向的结果
type CheckoutResult struct {
	Order     *order.Order `json:"order"`
	InitPoint string       `json:"init_point"` // 买家跳转到网关的地址
}

// ErrStockShortfall 预检没过，Problems 带全部缺口
type ErrStockShortfall struct {
	Problems []Shortfall
}

func (e *ErrStockShortfall) Error() string {
	return describeShortfalls(e.Problems)
}

// CheckoutService 下单与支付意向创建。
// external_ref 在任何支付交互之前就生成并落库：它是后面网关异步回调
// 唯一能对上的关联键。
type CheckoutService struct {
	orderRepo   order.Repository
	productRepo product.Repository
	couponSvc   *CouponService
	stock       *StockValidator
	gw          gateway.Client
	gwCfg       *config.GatewayConfig
	log         *zap.Logger
}

// NewCheckoutService 创建结账服务
func NewCheckoutService(
	orderRepo order.Repository,
	productRepo product.Repository,
	couponSvc *CouponService,
	stock *StockValidator,
	gw gateway.Client,
	gwCfg *config.GatewayConfig,
) *CheckoutService {
	return &CheckoutService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		couponSvc:   couponSvc,
		stock:       stock,
		gw:          gw,
		gwCfg:       gwCfg,
		log:         zap.L(),
	}
}

// Checkout 创建 pending 订单并向网关注册支付意向。
// 流程：快照单价 -> 算券 -> 预检库存 -> 落单 -> 创建 preference。
// 预检只能降低而不能消灭超卖窗口，支付确认后对账器还会复检一次。
func (s *CheckoutService) Checkout(ctx context.Context, userID int64, lines []CheckoutLine, couponCode string) (*CheckoutResult, error) {
	if len(lines) == 0 {
		return nil, errors.New("购物车为空")
	}

	// 1. 组订单行，快照当前单价
	items := make([]order.Item, 0, len(lines))
	prefItems := make([]gateway.PreferenceItem, 0, len(lines))
	var total int64
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("商品 %s 数量必须大于 0", line.ProductRef)
		}
		p, err := s.productRepo.GetByRef(ctx, line.ProductRef)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("商品不存在: %s", line.ProductRef)
			}
			return nil, err
		}
		if p.Status != 1 {
			return nil, fmt.Errorf("商品已下架: %s", line.ProductRef)
		}
		items = append(items, order.Item{
			ProductRef: p.Ref,
			Quantity:   line.Quantity,
			UnitPrice:  p.Price,
		})
		prefItems = append(prefItems, gateway.PreferenceItem{
			Title:     p.Name,
			Quantity:  line.Quantity,
			UnitPrice: p.Price,
		})
		total += p.Price * line.Quantity
	}

	// 2. 优惠券
	var discount int64
	if couponCode != "" {
		c, err := s.couponSvc.Redeem(ctx, userID, couponCode)
		if err != nil {
			return nil, err
		}
		discount = total - int64(math.Round(float64(total)*c.Discount))
		total -= discount
	}

	// 3. 预检库存，别把注定发不了货的单送去网关
	problems, err := s.stock.Validate(ctx, items)
	if err != nil {
		return nil, err
	}
	if len(problems) > 0 {
		if couponCode != "" {
			// 单没下成，把券的使用次数还回去
			s.couponSvc.Rollback(ctx, userID, couponCode)
		}
		return nil, &ErrStockShortfall{Problems: problems}
	}

	// 4. 落单（pending），关联键此刻生成
	o := &order.Order{
		ExternalRef: uuid.NewString(),
		UserID:      userID,
		Status:      order.StatusPending,
		Total:       total,
		CouponCode:  couponCode,
		Discount:    discount,
		Items:       items,
	}
	if err := s.orderRepo.Create(ctx, o); err != nil {
		GetMonitor().RecordDBError()
		return nil, err
	}

	// 5. 创建支付意向
	pref, err := s.gw.CreatePreference(ctx, &gateway.PreferenceRequest{
		ExternalReference: o.ExternalRef,
		Items:             prefItems,
		BackURL:           s.gwCfg.BackURL,
	})
	if err != nil {
		// 单到不了网关，占掉的券额度同样要还
		if couponCode != "" {
			s.couponSvc.Rollback(ctx, userID, couponCode)
		}
		GetMonitor().RecordGatewayError()
		s.log.Error("create preference failed",
			zap.String("external_ref", o.ExternalRef), zap.Error(err))
		return nil, fmt.Errorf("创建支付意向失败: %w", err)
	}

	s.log.Info("checkout created",
		zap.String("external_ref", o.ExternalRef),
		zap.Int64("user_id", userID),
		zap.Int64("total", total))
	return &CheckoutResult{Order: o, InitPoint: pref.InitPoint}, nil
}
