package service

import (
	"encoding/json"
	"net/url"
	"strings"
)

// 通知类型
const (
	NotificationPayment       = "payment"
	NotificationMerchantOrder = "merchant_order"
)

// Notification 从 webhook 原始请求里提取出来的最小事实：
// 事件类型 + 一个标识（支付单 ID 或聚合单 ID）。
type Notification struct {
	Kind string
	ID   string
}

// Empty 表示没提取出任何可用信息，此类事件直接按成功处理
func (n Notification) Empty() bool {
	return n.Kind == "" || n.ID == ""
}

// flexibleID 网关同一个字段有时发数字有时发字符串，这里统一收成字符串
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		s = ""
	}
	*f = flexibleID(s)
	return nil
}

// webhookBody 网关 webhook 的 JSON 载荷（字段因通知版本不同时有时无）
type webhookBody struct {
	Type     string `json:"type"`
	Topic    string `json:"topic"`
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Data     struct {
		ID flexibleID `json:"id"`
	} `json:"data"`
	ID flexibleID `json:"id"`
}

// ParseWebhook 从查询参数和请求体里提取通知类型与标识。
// 网关会以好几种形态投递同一类事件（query 参数版、JSON 体版、resource URL 版），
// 哪个字段有值用哪个；全都没有就返回空通知，由调用方按无害事件处理。
func ParseWebhook(query url.Values, body []byte) Notification {
	n := Notification{}

	// 1. query 参数：?type=payment&data.id=123 或 ?topic=merchant_order&id=456
	if t := query.Get("type"); t != "" {
		n.Kind = t
	} else if t := query.Get("topic"); t != "" {
		n.Kind = t
	}
	if id := query.Get("data.id"); id != "" {
		n.ID = id
	} else if id := query.Get("id"); id != "" {
		n.ID = id
	}

	// 2. JSON 体：优先级低于 query，只补缺
	if len(body) > 0 {
		var wb webhookBody
		if err := json.Unmarshal(body, &wb); err == nil {
			if n.Kind == "" {
				if wb.Type != "" {
					n.Kind = wb.Type
				} else if wb.Topic != "" {
					n.Kind = wb.Topic
				}
			}
			if n.ID == "" {
				if wb.Data.ID != "" {
					n.ID = string(wb.Data.ID)
				} else if wb.ID != "" {
					n.ID = string(wb.ID)
				} else if wb.Resource != "" {
					// resource 形如 https://.../merchant_orders/123，取末段
					n.ID = lastPathSegment(wb.Resource)
					if n.Kind == "" && strings.Contains(wb.Resource, "merchant_orders") {
						n.Kind = NotificationMerchantOrder
					}
				}
			}
		}
	}

	// 归一化：网关对 payment 事件偶尔用 "payment.created" 这类带动作后缀的 type
	if idx := strings.IndexByte(n.Kind, '.'); idx > 0 {
		n.Kind = n.Kind[:idx]
	}
	return n
}

func lastPathSegment(raw string) string {
	raw = strings.TrimRight(raw, "/")
	if idx := strings.LastIndexByte(raw, '/'); idx >= 0 {
		return raw[idx+1:]
	}
	return raw
}
