package invoicing

import (
	"context"
	"testing"
	"time"

	"github.com/pulsedesk/pulsedesk/internal/app/domain/crm"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/invoice"
	"github.com/pulsedesk/pulsedesk/internal/app/storage/memory"
)

func newFixture(t *testing.T) (*Service, string) {
	t.Helper()
	store := memory.New()
	client, err := store.CreateClient(context.Background(), crm.Client{UserID: "u1", Name: "Acme"})
	if err != nil {
		t.Fatal(err)
	}
	return New(store, store, nil), client.ID
}

func TestCreateDefaults(t *testing.T) {
	svc, clientID := newFixture(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, "u1", clientID, "INV-1", 250, "", time.Time{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inv.Status != invoice.StatusDraft {
		t.Fatalf("status = %s", inv.Status)
	}
	if inv.Currency != "USD" {
		t.Fatalf("currency = %s, want USD default", inv.Currency)
	}
	if inv.DueAt.Before(time.Now().UTC().AddDate(0, 0, 29)) {
		t.Fatalf("due date not defaulted 30 days out: %v", inv.DueAt)
	}
}

func TestCreateRejectsDuplicateNumber(t *testing.T) {
	svc, clientID := newFixture(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "u1", clientID, "INV-1", 100, "EUR", time.Time{}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, "u1", clientID, "inv-1", 200, "EUR", time.Time{}); err == nil {
		t.Fatal("expected duplicate number error")
	}
}

func TestCreateRejectsForeignClient(t *testing.T) {
	svc, clientID := newFixture(t)

	if _, err := svc.Create(context.Background(), "u2", clientID, "INV-9", 100, "", time.Time{}); err == nil {
		t.Fatal("expected ownership error")
	}
}

func TestStatusTransitions(t *testing.T) {
	svc, clientID := newFixture(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, "u1", clientID, "INV-1", 300, "", time.Time{})
	if err != nil {
		t.Fatal(err)
	}

	sent, err := svc.Send(ctx, inv.ID)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent.Status != invoice.StatusSent {
		t.Fatalf("status = %s", sent.Status)
	}
	// Sending twice is rejected.
	if _, err := svc.Send(ctx, inv.ID); err == nil {
		t.Fatal("expected error sending a non-draft invoice")
	}

	paid, err := svc.MarkPaid(ctx, inv.ID, time.Time{})
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if paid.Status != invoice.StatusPaid || paid.PaidAt == nil {
		t.Fatalf("payment not recorded: %+v", paid)
	}
	// Paying again is a no-op.
	again, err := svc.MarkPaid(ctx, inv.ID, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if !again.PaidAt.Equal(*paid.PaidAt) {
		t.Fatal("repeated payment changed paid_at")
	}
	// Paid invoices cannot be voided.
	if _, err := svc.Void(ctx, inv.ID); err == nil {
		t.Fatal("expected error voiding a paid invoice")
	}
}

func TestVoidBlocksPayment(t *testing.T) {
	svc, clientID := newFixture(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, "u1", clientID, "INV-2", 100, "", time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Void(ctx, inv.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.MarkPaid(ctx, inv.ID, time.Time{}); err == nil {
		t.Fatal("expected error paying a void invoice")
	}
}

func TestRevenueSummaryExcludesVoid(t *testing.T) {
	svc, clientID := newFixture(t)
	ctx := context.Background()

	a, _ := svc.Create(ctx, "u1", clientID, "INV-1", 100, "", time.Time{})
	b, _ := svc.Create(ctx, "u1", clientID, "INV-2", 50, "", time.Time{})
	c, _ := svc.Create(ctx, "u1", clientID, "INV-3", 75, "", time.Time{})

	if _, err := svc.MarkPaid(ctx, a.ID, time.Time{}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Void(ctx, c.ID); err != nil {
		t.Fatal(err)
	}
	_ = b

	sum, err := svc.RevenueSummary(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if sum.TotalRevenue != 100 || sum.PaidCount != 1 {
		t.Fatalf("unexpected paid side: %+v", sum)
	}
	if sum.Outstanding != 50 || sum.OpenCount != 1 {
		t.Fatalf("unexpected open side: %+v", sum)
	}
}

func TestRevenueTrendWindow(t *testing.T) {
	svc, clientID := newFixture(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, "u1", clientID, "INV-1", 420, "", time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.MarkPaid(ctx, inv.ID, time.Now().UTC()); err != nil {
		t.Fatal(err)
	}

	trend, err := svc.RevenueTrend(ctx, "u1", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(trend) != 3 {
		t.Fatalf("trend length = %d, want 3", len(trend))
	}
	if trend[2].Revenue != 420 {
		t.Fatalf("current month revenue = %v, want 420", trend[2].Revenue)
	}

	// Out-of-range windows fall back to six months.
	trend, err = svc.RevenueTrend(ctx, "u1", 99)
	if err != nil {
		t.Fatal(err)
	}
	if len(trend) != 6 {
		t.Fatalf("trend length = %d, want 6", len(trend))
	}
}

// Month-end windows must keep one bucket per month: subtracting months from
// May 31 lands in March via date normalization unless the window is anchored
// on the first of the month.
func TestRevenueTrendMonthEndWindow(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	paidAt := time.Date(2026, time.February, 15, 12, 0, 0, 0, time.UTC)
	if _, err := store.CreateInvoice(ctx, invoice.Invoice{
		UserID: "u1",
		Number: "INV-1",
		Amount: 100,
		Status: invoice.StatusPaid,
		PaidAt: &paidAt,
	}); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2026, time.May, 31, 23, 0, 0, 0, time.UTC)
	trend, err := store.MonthlyRevenue(ctx, "u1", 6, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(trend) != 6 {
		t.Fatalf("trend has %d buckets, want 6", len(trend))
	}
	wantMonths := []int{12, 1, 2, 3, 4, 5}
	for i, b := range trend {
		if b.MonthNumber != wantMonths[i] {
			t.Fatalf("bucket %d month = %d, want %d (%+v)", i, b.MonthNumber, wantMonths[i], trend)
		}
	}
	if trend[2].Revenue != 100 {
		t.Fatalf("February revenue = %v, want 100", trend[2].Revenue)
	}
}
