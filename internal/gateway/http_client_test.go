package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/amargodulce/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(&config.GatewayConfig{
		BaseURL:     srv.URL,
		AccessToken: "secreto",
	})
}

func TestGetPayment(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/123" {
			t.Errorf("path = %s, want /v1/payments/123", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secreto" {
			t.Errorf("authorization = %q, want bearer token", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":                 "123",
			"status":             "approved",
			"status_detail":      "accredited",
			"external_reference": "ext-1",
			"metadata":           map[string]string{"external_reference": "ext-1"},
		})
	})

	p, err := c.GetPayment(context.Background(), "123")
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != PaymentApproved || p.ExternalReference != "ext-1" {
		t.Errorf("payment = %+v", p)
	}
	if p.Metadata["external_reference"] != "ext-1" {
		t.Errorf("metadata = %+v", p.Metadata)
	}
}

func TestGetPaymentNumericID(t *testing.T) {
	t.Parallel()

	// 网关对同一字段有的接口版本发数字而不是字符串
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":                 12345,
			"status":             "approved",
			"external_reference": "ext-1",
		})
	})

	p, err := c.GetPayment(context.Background(), "12345")
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != "12345" {
		t.Errorf("id = %q, want numeric id decoded as string", p.ID)
	}
}

func TestGetMerchantOrderNumericIDs(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id": 55,
			"payments": []map[string]interface{}{
				{"id": 901, "status": "approved"},
			},
		})
	})

	mo, err := c.GetMerchantOrder(context.Background(), "55")
	if err != nil {
		t.Fatal(err)
	}
	if mo.ID != "55" || len(mo.Payments) != 1 || mo.Payments[0].ID != "901" {
		t.Errorf("merchant order = %+v, want numeric ids decoded as strings", mo)
	}
}

func TestGetMerchantOrder(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/merchant_orders/55" {
			t.Errorf("path = %s, want /merchant_orders/55", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "55",
			"payments": []map[string]string{
				{"id": "p1", "status": "rejected"},
				{"id": "p2", "status": "approved"},
			},
		})
	})

	mo, err := c.GetMerchantOrder(context.Background(), "55")
	if err != nil {
		t.Fatal(err)
	}
	if len(mo.Payments) != 2 || mo.Payments[1].Status != PaymentApproved {
		t.Errorf("merchant order = %+v", mo)
	}
}

func TestCreatePreference(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/checkout/preferences" {
			t.Errorf("%s %s, want POST /checkout/preferences", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %s", ct)
		}
		var req PreferenceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ExternalReference != "ext-9" || len(req.Items) != 1 {
			t.Errorf("request = %+v", req)
		}
		json.NewEncoder(w).Encode(Preference{ID: "pref-9", InitPoint: "https://gw.test/init/pref-9"})
	})

	pref, err := c.CreatePreference(context.Background(), &PreferenceRequest{
		ExternalReference: "ext-9",
		Items:             []PreferenceItem{{Title: "alfajor", Quantity: 2, UnitPrice: 1500}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if pref.InitPoint != "https://gw.test/init/pref-9" {
		t.Errorf("init point = %s", pref.InitPoint)
	}
}

func TestNon2xxIsError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
	})

	if _, err := c.GetPayment(context.Background(), "999"); err == nil {
		t.Error("expected error for 404 response")
	}
}
