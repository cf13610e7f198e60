package service

import (
	"sync"
	"time"
)

// Monitor 监控服务，统计对账与基础设施的错误/处理量。
// webhook 对外永远回 200，吞掉的错误只能靠这里和日志暴露出来。
type Monitor struct {
	mu sync.RWMutex

	// 错误统计
	RedisErrors    int64
	MQErrors       int64
	DBErrors       int64
	GatewayErrors  int64
	AbsorbedErrors int64 // 对账过程中被吞掉、仅记日志的错误

	// 对账统计
	NotificationsReceived int64
	NotificationsIgnored  int64 // 无法解析/查无订单的安全空操作
	DuplicateSkips        int64 // 幂等短路跳过的重复通知
	OrdersPaid            int64
	OrdersFailedStock     int64 // 确认时库存不足转 failed
	StockDecrements       int64

	// 时间统计
	LastRedisError   time.Time
	LastMQError      time.Time
	LastDBError      time.Time
	LastGatewayError time.Time
	LastNotification time.Time
}

var globalMonitor = &Monitor{}

// GetMonitor 获取全局监控实例
func GetMonitor() *Monitor {
	return globalMonitor
}

// RecordRedisError 记录Redis错误
func (m *Monitor) RecordRedisError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RedisErrors++
	m.LastRedisError = time.Now()
}

// RecordMQError 记录MQ错误
func (m *Monitor) RecordMQError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MQErrors++
	m.LastMQError = time.Now()
}

// RecordDBError 记录数据库错误
func (m *Monitor) RecordDBError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DBErrors++
	m.LastDBError = time.Now()
}

// RecordGatewayError 记录网关请求错误
func (m *Monitor) RecordGatewayError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GatewayErrors++
	m.LastGatewayError = time.Now()
}

// RecordAbsorbedError 记录被吞掉的对账错误
func (m *Monitor) RecordAbsorbedError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AbsorbedErrors++
}

// RecordNotification 记录收到一条支付通知
func (m *Monitor) RecordNotification() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotificationsReceived++
	m.LastNotification = time.Now()
}

// RecordIgnored 记录一次安全空操作
func (m *Monitor) RecordIgnored() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotificationsIgnored++
}

// RecordDuplicateSkip 记录一次幂等短路
func (m *Monitor) RecordDuplicateSkip() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicateSkips++
}

// RecordOrderPaid 记录订单确认成功
func (m *Monitor) RecordOrderPaid() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OrdersPaid++
}

// RecordOrderFailedStock 记录确认时库存不足
func (m *Monitor) RecordOrderFailedStock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OrdersFailedStock++
}

// RecordStockDecrement 记录一次库存扣减
func (m *Monitor) RecordStockDecrement() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StockDecrements++
}

// GetStats 获取统计信息
func (m *Monitor) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"errors": map[string]interface{}{
			"redis":    m.RedisErrors,
			"mq":       m.MQErrors,
			"db":       m.DBErrors,
			"gateway":  m.GatewayErrors,
			"absorbed": m.AbsorbedErrors,
		},
		"reconciler": map[string]interface{}{
			"notifications_received": m.NotificationsReceived,
			"notifications_ignored":  m.NotificationsIgnored,
			"duplicate_skips":        m.DuplicateSkips,
			"orders_paid":            m.OrdersPaid,
			"orders_failed_stock":    m.OrdersFailedStock,
			"stock_decrements":       m.StockDecrements,
		},
		"last_events": map[string]interface{}{
			"redis_error":       m.LastRedisError,
			"mq_error":          m.LastMQError,
			"db_error":          m.LastDBError,
			"gateway_error":     m.LastGatewayError,
			"last_notification": m.LastNotification,
		},
	}
}

// Reset 重置统计（用于测试或定期清理）
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RedisErrors = 0
	m.MQErrors = 0
	m.DBErrors = 0
	m.GatewayErrors = 0
	m.AbsorbedErrors = 0
	m.NotificationsReceived = 0
	m.NotificationsIgnored = 0
	m.DuplicateSkips = 0
	m.OrdersPaid = 0
	m.OrdersFailedStock = 0
	m.StockDecrements = 0
}
