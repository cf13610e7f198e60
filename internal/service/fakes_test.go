package service

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/example/amargodulce/internal/datamodels/coupon"
	"github.com/example/amargodulce/internal/datamodels/order"
	"github.com/example/amargodulce/internal/datamodels/product"
	"github.com/example/amargodulce/internal/gateway"
)

// ---------- 订单仓储内存实现 ----------

type fakeOrderRepo struct {
	mu   sync.Mutex
	seq  int64
	byID map[int64]*order.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{byID: make(map[int64]*order.Order)}
}

func copyOrder(o *order.Order) *order.Order {
	cp := *o
	cp.Items = append([]order.Item(nil), o.Items...)
	return &cp
}

func (r *fakeOrderRepo) Create(ctx context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	o.ID = r.seq
	r.byID[o.ID] = copyOrder(o)
	return nil
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyOrder(o), nil
}

func (r *fakeOrderRepo) GetByExternalRef(ctx context.Context, ref string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.byID {
		if o.ExternalRef == ref {
			return copyOrder(o), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeOrderRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range fields {
		switch k {
		case "status":
			o.Status = v.(order.Status)
		case "failure_reason":
			o.FailureReason = v.(string)
		case "payment_id":
			o.PaymentID = v.(string)
		case "payment_status":
			o.PaymentStatus = v.(string)
		case "payment_status_detail":
			o.PaymentStatusDetail = v.(string)
		case "payment_external_ref":
			o.PaymentExternalRef = v.(string)
		case "stock_adjusted":
			o.StockAdjusted = v.(bool)
		}
	}
	return nil
}

func (r *fakeOrderRepo) ClaimStockAdjustment(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if o.StockAdjusted {
		return false, nil
	}
	o.StockAdjusted = true
	return true, nil
}

func (r *fakeOrderRepo) ListByUser(ctx context.Context, userID int64) ([]*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []*order.Order
	for _, o := range r.byID {
		if o.UserID == userID {
			list = append(list, copyOrder(o))
		}
	}
	return list, nil
}

func (r *fakeOrderRepo) ListRecent(ctx context.Context, limit int) ([]*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []*order.Order
	for _, o := range r.byID {
		list = append(list, copyOrder(o))
	}
	return list, nil
}

func (r *fakeOrderRepo) ListByStatus(ctx context.Context, status order.Status, limit int) ([]*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []*order.Order
	for _, o := range r.byID {
		if o.Status == status {
			list = append(list, copyOrder(o))
		}
	}
	return list, nil
}

// ---------- 商品仓储内存实现 ----------

type fakeProductRepo struct {
	mu    sync.Mutex
	seq   int64
	byRef map[string]*product.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{byRef: make(map[string]*product.Product)}
}

func copyProduct(p *product.Product) *product.Product {
	cp := *p
	if p.Stock != nil {
		v := *p.Stock
		cp.Stock = &v
	}
	return &cp
}

func (r *fakeProductRepo) GetByRef(ctx context.Context, ref string) (*product.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byRef[ref]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyProduct(p), nil
}

func (r *fakeProductRepo) ListAll(ctx context.Context) ([]*product.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []*product.Product
	for _, p := range r.byRef {
		list = append(list, copyProduct(p))
	}
	return list, nil
}

func (r *fakeProductRepo) ListOnline(ctx context.Context) ([]*product.Product, error) {
	return r.ListAll(ctx)
}

func (r *fakeProductRepo) ListByCategory(ctx context.Context, category string) ([]*product.Product, error) {
	return r.ListAll(ctx)
}

func (r *fakeProductRepo) Search(ctx context.Context, category, keyword string) ([]*product.Product, error) {
	return r.ListAll(ctx)
}

func (r *fakeProductRepo) Create(ctx context.Context, p *product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	p.ID = r.seq
	r.byRef[p.Ref] = copyProduct(p)
	return nil
}

func (r *fakeProductRepo) Update(ctx context.Context, p *product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byRef[p.Ref] = copyProduct(p)
	return nil
}

func (r *fakeProductRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ref, p := range r.byRef {
		if p.ID == id {
			delete(r.byRef, ref)
		}
	}
	return nil
}

// DecrementStock 和 MySQL 实现同语义：持锁内完成读改写并在 0 处封底
func (r *fakeProductRepo) DecrementStock(ctx context.Context, ref string, qty int64) error {
	if qty <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byRef[ref]
	if !ok || p.Stock == nil {
		return nil
	}
	left := *p.Stock - qty
	if left < 0 {
		left = 0
	}
	*p.Stock = left
	return nil
}

func (r *fakeProductRepo) stockOf(ref string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byRef[ref]
	if !ok || p.Stock == nil {
		return -1
	}
	return *p.Stock
}

// ---------- 网关假实现 ----------

type fakeGateway struct {
	mu             sync.Mutex
	payments       map[string]*gateway.Payment
	merchantOrders map[string]*gateway.MerchantOrder
	prefs          []*gateway.PreferenceRequest
	prefErr        error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		payments:       make(map[string]*gateway.Payment),
		merchantOrders: make(map[string]*gateway.MerchantOrder),
	}
}

func (g *fakeGateway) GetPayment(ctx context.Context, id string) (*gateway.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.payments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (g *fakeGateway) GetMerchantOrder(ctx context.Context, id string) (*gateway.MerchantOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	mo, ok := g.merchantOrders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *mo
	return &cp, nil
}

func (g *fakeGateway) CreatePreference(ctx context.Context, req *gateway.PreferenceRequest) (*gateway.Preference, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.prefErr != nil {
		return nil, g.prefErr
	}
	g.prefs = append(g.prefs, req)
	return &gateway.Preference{ID: "pref-1", InitPoint: "https://gateway.test/init/pref-1"}, nil
}

// ---------- 通知假实现 ----------

type fakeNotifier struct {
	mu   sync.Mutex
	sent []*ConfirmationMessage
}

func (n *fakeNotifier) NotifyConfirmed(ctx context.Context, msg *ConfirmationMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// ---------- 优惠券仓储内存实现 ----------

type fakeCouponRepo struct {
	mu     sync.Mutex
	seq    int64
	byCode map[string]*coupon.Coupon
}

func newFakeCouponRepo() *fakeCouponRepo {
	return &fakeCouponRepo{byCode: make(map[string]*coupon.Coupon)}
}

func (r *fakeCouponRepo) Create(ctx context.Context, c *coupon.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	c.ID = r.seq
	cp := *c
	r.byCode[c.Code] = &cp
	return nil
}

func (r *fakeCouponRepo) GetByID(ctx context.Context, id int64) (*coupon.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byCode {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCouponRepo) GetByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byCode[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCouponRepo) ListAll(ctx context.Context) ([]*coupon.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []*coupon.Coupon
	for _, c := range r.byCode {
		cp := *c
		list = append(list, &cp)
	}
	return list, nil
}

func (r *fakeCouponRepo) Update(ctx context.Context, c *coupon.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.byCode[c.Code] = &cp
	return nil
}

func (r *fakeCouponRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for code, c := range r.byCode {
		if c.ID == id {
			delete(r.byCode, code)
		}
	}
	return nil
}
