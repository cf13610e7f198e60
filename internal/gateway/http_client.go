package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/example/amargodulce/internal/config"
)

// flexString 网关的 id 字段时而是 JSON 数字时而是字符串，解码侧统一收成字符串
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		s = ""
	}
	*f = flexString(s)
	return nil
}

// 线上接口的应答形态，转换成稳定的导出类型后再交给上层
type paymentWire struct {
	ID                flexString        `json:"id"`
	Status            string            `json:"status"`
	StatusDetail      string            `json:"status_detail"`
	ExternalReference string            `json:"external_reference"`
	Metadata          map[string]string `json:"metadata"`
}

type merchantOrderWire struct {
	ID       flexString `json:"id"`
	Payments []struct {
		ID     flexString `json:"id"`
		Status string     `json:"status"`
	} `json:"payments"`
}

// HTTPClient 按 Mercado Pago 风格的 REST 接口实现 Client
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewHTTPClient 创建网关客户端
func NewHTTPClient(cfg *config.GatewayConfig) *HTTPClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		token:   cfg.AccessToken,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("gateway %s %s: status %d: %s", method, path, resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetPayment 拉取支付单事实
func (c *HTTPClient) GetPayment(ctx context.Context, id string) (*Payment, error) {
	var w paymentWire
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+id, nil, &w); err != nil {
		return nil, err
	}
	return &Payment{
		ID:                string(w.ID),
		Status:            w.Status,
		StatusDetail:      w.StatusDetail,
		ExternalReference: w.ExternalReference,
		Metadata:          w.Metadata,
	}, nil
}

// GetMerchantOrder 拉取聚合单及其下属支付列表
func (c *HTTPClient) GetMerchantOrder(ctx context.Context, id string) (*MerchantOrder, error) {
	var w merchantOrderWire
	if err := c.do(ctx, http.MethodGet, "/merchant_orders/"+id, nil, &w); err != nil {
		return nil, err
	}
	mo := &MerchantOrder{ID: string(w.ID)}
	for _, p := range w.Payments {
		mo.Payments = append(mo.Payments, MerchantOrderPayment{ID: string(p.ID), Status: p.Status})
	}
	return mo, nil
}

// CreatePreference 创建支付意向，返回买家跳转地址
func (c *HTTPClient) CreatePreference(ctx context.Context, req *PreferenceRequest) (*Preference, error) {
	var pref Preference
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", req, &pref); err != nil {
		return nil, err
	}
	return &pref, nil
}
