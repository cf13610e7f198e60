package service

import (
	"context"
	"testing"

	"github.com/example/amargodulce/internal/datamodels/order"
)

func seedOrder(t *testing.T, repo *fakeOrderRepo, status order.Status) *order.Order {
	t.Helper()
	o := &order.Order{
		ExternalRef: "ext-" + string(status),
		UserID:      1,
		Status:      status,
		Total:       1000,
	}
	if err := repo.Create(context.Background(), o); err != nil {
		t.Fatal(err)
	}
	return o
}

func TestAdvanceShipsAndDelivers(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := NewOrderService(repo)
	o := seedOrder(t, repo, order.StatusPaid)

	got, err := svc.Advance(context.Background(), o.ID, order.StatusShipped)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != order.StatusShipped {
		t.Errorf("status = %s, want shipped", got.Status)
	}

	if _, err := svc.Advance(context.Background(), o.ID, order.StatusDelivered); err != nil {
		t.Fatal(err)
	}
	stored, _ := repo.GetByID(context.Background(), o.ID)
	if stored.Status != order.StatusDelivered {
		t.Errorf("status = %s, want delivered", stored.Status)
	}
}

func TestAdvanceRejectsIllegalTransitions(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := NewOrderService(repo)

	pending := seedOrder(t, repo, order.StatusPending)
	paid := seedOrder(t, repo, order.StatusPaid)
	delivered := seedOrder(t, repo, order.StatusDelivered)

	cases := []struct {
		name   string
		id     int64
		target order.Status
	}{
		{"pending cannot ship", pending.ID, order.StatusShipped},
		// pending 的第一跳只归对账器：人工标 paid 会绕过库存流程
		{"pending cannot be paid by hand", pending.ID, order.StatusPaid},
		{"pending cannot be failed by hand", pending.ID, order.StatusFailed},
		{"pending cannot be cancelled by hand", pending.ID, order.StatusCancelled},
		{"paid cannot go back to pending", paid.ID, order.StatusPending},
		{"paid cannot be failed by hand", paid.ID, order.StatusFailed},
		{"delivered is terminal", delivered.ID, order.StatusShipped},
		{"unknown target", paid.ID, order.Status("refunded")},
	}
	for _, tc := range cases {
		if _, err := svc.Advance(context.Background(), tc.id, tc.target); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}

	// 被拒的推进不能留下任何改动
	stored, _ := repo.GetByID(context.Background(), paid.ID)
	if stored.Status != order.StatusPaid {
		t.Errorf("status = %s, want paid untouched", stored.Status)
	}
	stored, _ = repo.GetByID(context.Background(), pending.ID)
	if stored.Status != order.StatusPending || stored.StockAdjusted {
		t.Errorf("pending order = %s adjusted=%v, want pending/false untouched",
			stored.Status, stored.StockAdjusted)
	}
}

func TestAdvanceMissingOrder(t *testing.T) {
	svc := NewOrderService(newFakeOrderRepo())
	if _, err := svc.Advance(context.Background(), 999, order.StatusShipped); err == nil {
		t.Error("expected error for missing order")
	}
}

func TestListByStatusValidates(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := NewOrderService(repo)
	seedOrder(t, repo, order.StatusPaid)
	seedOrder(t, repo, order.StatusPending)

	list, err := svc.ListByStatus(context.Background(), order.StatusPaid, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("list = %d orders, want 1", len(list))
	}

	if _, err := svc.ListByStatus(context.Background(), order.Status("bogus"), 10); err == nil {
		t.Error("expected error for unknown status")
	}
}
