package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	radix "github.com/mediocregopher/radix/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/amargodulce/internal/datamodels/order"
	"github.com/example/amargodulce/internal/gateway"
)

// ReconcileService 支付通知对账器。
//
// 网关的 webhook 是 at-least-once、乱序投递的，同一笔支付的通知可能重复、
// 可能并发、可能在订单入库前就到。这里对外只有一个承诺：不管处理结果如何，
// webhook 一律按成功应答，否则网关的重投只会把坏情况放大成重试风暴。
// 所有被吞掉的错误都会进日志和 Monitor 计数。
type ReconcileService struct {
	orderRepo order.Repository
	gw        gateway.Client
	stock     *StockValidator
	notifier  Notifier
	redis     radix.Client // 可为 nil，仅作重复投递的快速跳过，正确性不依赖它
	log       *zap.Logger
}

// NewReconcileService 创建对账器
func NewReconcileService(
	orderRepo order.Repository,
	gw gateway.Client,
	stock *StockValidator,
	notifier Notifier,
	redis radix.Client,
) *ReconcileService {
	return &ReconcileService{
		orderRepo: orderRepo,
		gw:        gw,
		stock:     stock,
		notifier:  notifier,
		redis:     redis,
		log:       zap.L(),
	}
}

// mapOutcome 网关支付结果 -> 订单目标状态。认不出的结果一律当 pending，不做转移。
func mapOutcome(status string) order.Status {
	switch status {
	case gateway.PaymentApproved:
		return order.StatusPaid
	case gateway.PaymentRejected:
		return order.StatusFailed
	case gateway.PaymentCancelled:
		return order.StatusCancelled
	default:
		return order.StatusPending
	}
}

// bestPayment 在聚合单的多笔支付里选一笔：优先 approved，否则取列表里第一笔。
// 多笔支付金额如何对账目前没有产品决策，选择规则收敛在这一个函数里。
func bestPayment(mo *gateway.MerchantOrder) string {
	for _, p := range mo.Payments {
		if p.Status == gateway.PaymentApproved {
			return p.ID
		}
	}
	if len(mo.Payments) > 0 {
		return mo.Payments[0].ID
	}
	return ""
}

// HandleNotification 处理一条支付通知。没有返回值：按契约所有结果对网关都是成功。
func (s *ReconcileService) HandleNotification(ctx context.Context, n Notification) {
	GetMonitor().RecordNotification()

	// 1. 没有类型或标识的事件很常见（测试回调、无关主题），安全忽略
	if n.Empty() {
		GetMonitor().RecordIgnored()
		s.log.Debug("webhook ignored: no kind or id")
		return
	}

	// 2. 聚合单通知先解析成具体的支付单
	paymentID := n.ID
	switch n.Kind {
	case NotificationPayment:
	case NotificationMerchantOrder:
		mo, err := s.gw.GetMerchantOrder(ctx, n.ID)
		if err != nil {
			s.absorb("fetch merchant order failed", err, zap.String("merchant_order_id", n.ID))
			GetMonitor().RecordGatewayError()
			return
		}
		paymentID = bestPayment(mo)
		if paymentID == "" {
			// 聚合单还没挂上支付，真正的支付通知稍后会来
			GetMonitor().RecordIgnored()
			s.log.Debug("merchant order has no payments yet", zap.String("merchant_order_id", n.ID))
			return
		}
	default:
		GetMonitor().RecordIgnored()
		s.log.Debug("webhook ignored: unknown kind", zap.String("kind", n.Kind))
		return
	}

	// 3. 拉取支付单的权威事实
	pay, err := s.gw.GetPayment(ctx, paymentID)
	if err != nil {
		s.absorb("fetch payment failed", err, zap.String("payment_id", paymentID))
		GetMonitor().RecordGatewayError()
		return
	}

	// Redis 快速跳过：同一支付同一结果已经完整处理过。
	// 标记在处理成功的末尾才写入，这里查不到就老老实实走全流程。
	if s.alreadySeen(pay) {
		GetMonitor().RecordDuplicateSkip()
		s.log.Debug("duplicate delivery skipped by marker",
			zap.String("payment_id", pay.ID), zap.String("status", pay.Status))
		return
	}

	// 4. 恢复关联键：优先 external_reference，缺了再看 metadata
	ref := pay.ExternalReference
	if ref == "" {
		ref = pay.Metadata["external_reference"]
	}
	if ref == "" {
		GetMonitor().RecordIgnored()
		s.log.Warn("payment has no external reference, cannot reconcile",
			zap.String("payment_id", pay.ID))
		return
	}

	// 5. 找订单。找不到可能是订单库的读延迟，也可能是无关事件，都不值得让网关重投
	o, err := s.orderRepo.GetByExternalRef(ctx, ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			GetMonitor().RecordIgnored()
			s.log.Info("no order for external reference", zap.String("external_ref", ref))
			return
		}
		s.absorb("order lookup failed", err, zap.String("external_ref", ref))
		GetMonitor().RecordDBError()
		return
	}

	// 6. 幂等短路一：已支付且库存已扣，纯重复投递，零副作用
	if o.Status == order.StatusPaid && o.StockAdjusted {
		GetMonitor().RecordDuplicateSkip()
		s.log.Debug("order already paid and adjusted",
			zap.String("external_ref", ref), zap.String("payment_id", pay.ID))
		s.markSeen(pay)
		return
	}

	// 7/8. 目标状态 + 最新支付事实（事实不管转不转移都要写回，留审计轨迹）
	target := mapOutcome(pay.Status)
	facts := map[string]interface{}{
		"payment_id":            pay.ID,
		"payment_status":        pay.Status,
		"payment_status_detail": pay.StatusDetail,
		"payment_external_ref":  ref,
	}

	// 9. becomes-paid 边：pending -> paid 的第一次触发库存流程。
	// paid 但闩未翻（上一次投递在状态写入后中断）也重新走确认，
	// 抢闩保证库存流程仍然只执行一次。
	if target == order.StatusPaid &&
		(o.Status == order.StatusPending || (o.Status == order.StatusPaid && !o.StockAdjusted)) {
		s.confirmOrder(ctx, o, pay, facts)
		return
	}

	switch {
	case target == o.Status, target == order.StatusPending:
		// 无需转移
	case order.CanTransition(o.Status, target):
		facts["status"] = target // pending -> failed / cancelled
	default:
		// 迟到/乱序的非 approved 通知打到已推进的订单上：状态纹丝不动，只刷事实
		s.log.Info("stale notification, status kept",
			zap.String("external_ref", ref),
			zap.String("current", string(o.Status)),
			zap.String("reported", pay.Status))
	}

	if err := s.orderRepo.UpdateFields(ctx, o.ID, facts); err != nil {
		s.absorb("persist payment facts failed", err, zap.String("external_ref", ref))
		GetMonitor().RecordDBError()
		return
	}
	s.markSeen(pay)
}

// confirmOrder 处理 pending -> paid 的确认：复检库存、抢闩扣减、发确认通知。
func (s *ReconcileService) confirmOrder(ctx context.Context, o *order.Order, pay *gateway.Payment, facts map[string]interface{}) {
	// 9a. 支付确认后的复检：预检到回调之间库存可能已被别的订单买走
	problems, err := s.stock.Validate(ctx, o.Items)
	if err != nil {
		s.absorb("stock validation failed", err, zap.String("external_ref", o.ExternalRef))
		GetMonitor().RecordDBError()
		return
	}
	if len(problems) > 0 {
		if o.Status == order.StatusPaid {
			// 已经写过 paid 的订单不降级，缺口只告警，留给运营处理
			s.log.Warn("paid order has stock shortfall, status kept",
				zap.String("external_ref", o.ExternalRef),
				zap.String("reason", describeShortfalls(problems)))
			return
		}
		// 买家已付但货不够：这单到此为终态 failed，剩下是运营问题（退款/补货），
		// 不是网关重投能解决的，所以也按成功应答
		facts["status"] = order.StatusFailed
		facts["failure_reason"] = describeShortfalls(problems)
		if err := s.orderRepo.UpdateFields(ctx, o.ID, facts); err != nil {
			s.absorb("persist failed status failed", err, zap.String("external_ref", o.ExternalRef))
			GetMonitor().RecordDBError()
			return
		}
		GetMonitor().RecordOrderFailedStock()
		s.log.Warn("paid order failed on stock recheck",
			zap.String("external_ref", o.ExternalRef),
			zap.String("reason", facts["failure_reason"].(string)))
		s.markSeen(pay)
		return
	}

	facts["status"] = order.StatusPaid
	if err := s.orderRepo.UpdateFields(ctx, o.ID, facts); err != nil {
		s.absorb("persist paid status failed", err, zap.String("external_ref", o.ExternalRef))
		GetMonitor().RecordDBError()
		return
	}

	// 9b. 幂等闩二：先原子抢闩再扣库存。两条并发的 approved 投递
	// 在第 6 步都可能读到未扣减的订单，闩在这里把赢家收敛成一个。
	claimed, err := s.orderRepo.ClaimStockAdjustment(ctx, o.ID)
	if err != nil {
		s.absorb("claim stock adjustment failed", err, zap.String("external_ref", o.ExternalRef))
		GetMonitor().RecordDBError()
		return
	}
	if claimed {
		if err := s.stock.Decrement(ctx, o.Items); err != nil {
			// 闩已翻、扣减失败：宁可少扣也绝不双扣，这里只告警，等运营修数
			s.absorb("stock decrement failed after claim", err, zap.String("external_ref", o.ExternalRef))
			GetMonitor().RecordDBError()
			return
		}

		// 9c. 确认通知是 fire-and-forget，失败不影响对账结果
		if s.notifier != nil {
			msg := &ConfirmationMessage{
				OrderID:     o.ID,
				ExternalRef: o.ExternalRef,
				UserID:      o.UserID,
				Total:       o.Total,
				PaymentID:   pay.ID,
			}
			if err := s.notifier.NotifyConfirmed(ctx, msg); err != nil {
				s.log.Warn("confirmation notify failed",
					zap.String("external_ref", o.ExternalRef), zap.Error(err))
			}
		}
	}

	GetMonitor().RecordOrderPaid()
	s.log.Info("order confirmed",
		zap.String("external_ref", o.ExternalRef),
		zap.String("payment_id", pay.ID),
		zap.Bool("stock_adjusted_here", claimed))
	s.markSeen(pay)
}

// describeShortfalls 把缺口列表拼成一条可读的失败原因（全部缺口，不止第一个）
func describeShortfalls(problems []Shortfall) string {
	sort.Slice(problems, func(i, j int) bool { return problems[i].ProductRef < problems[j].ProductRef })
	parts := make([]string, 0, len(problems))
	for _, p := range problems {
		parts = append(parts, fmt.Sprintf("%s 需 %d 库存 %d", p.ProductRef, p.Requested, p.Available))
	}
	return "库存不足: " + strings.Join(parts, "; ")
}

func seenKey(pay *gateway.Payment) string {
	return fmt.Sprintf("ad:webhook:seen:%s:%s", pay.ID, pay.Status)
}

// alreadySeen 查重复投递标记，Redis 不可用时当没查到
func (s *ReconcileService) alreadySeen(pay *gateway.Payment) bool {
	if s.redis == nil {
		return false
	}
	var exists int
	if err := s.redis.Do(radix.Cmd(&exists, "EXISTS", seenKey(pay))); err != nil {
		GetMonitor().RecordRedisError()
		return false
	}
	return exists == 1
}

// markSeen 在一次完整成功的处理后写标记，24 小时过期
func (s *ReconcileService) markSeen(pay *gateway.Payment) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Do(radix.Cmd(nil, "SET", seenKey(pay), "1", "EX", "86400")); err != nil {
		GetMonitor().RecordRedisError()
	}
}

// absorb 统一的吞错出口：记日志、计数，webhook 层照样回 200
func (s *ReconcileService) absorb(msg string, err error, fields ...zap.Field) {
	GetMonitor().RecordAbsorbedError()
	s.log.Error(msg, append(fields, zap.Error(err))...)
}
