package gateway

import "context"

// 网关侧的支付结果状态（原样透传字符串，映射到订单状态在 service 层做）
const (
	PaymentApproved  = "approved"
	PaymentRejected  = "rejected"
	PaymentCancelled = "cancelled"
	PaymentPending   = "pending"
)

// Payment 网关返回的支付单事实
type Payment struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	StatusDetail string `json:"status_detail"`
	// ExternalReference 创建 preference 时带过去的本地订单关联键
	ExternalReference string            `json:"external_reference"`
	Metadata          map[string]string `json:"metadata"`
}

// MerchantOrder 网关侧的聚合单，一次结账可能挂多笔支付尝试
type MerchantOrder struct {
	ID       string                 `json:"id"`
	Payments []MerchantOrderPayment `json:"payments"`
}

// MerchantOrderPayment 聚合单下的一笔支付
type MerchantOrderPayment struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// PreferenceItem 创建 preference 时的商品行
type PreferenceItem struct {
	Title     string `json:"title"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unit_price"` // 分
}

// PreferenceRequest 创建支付意向的请求
type PreferenceRequest struct {
	ExternalReference string           `json:"external_reference"`
	Items             []PreferenceItem `json:"items"`
	NotificationURL   string           `json:"notification_url,omitempty"`
	BackURL           string           `json:"back_url,omitempty"`
}

// Preference 创建结果，InitPoint 为买家跳转地址
type Preference struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// Client 支付网关客户端。对账只依赖这三个调用。
type Client interface {
	GetPayment(ctx context.Context, id string) (*Payment, error)
	GetMerchantOrder(ctx context.Context, id string) (*MerchantOrder, error)
	CreatePreference(ctx context.Context, req *PreferenceRequest) (*Preference, error)
}
