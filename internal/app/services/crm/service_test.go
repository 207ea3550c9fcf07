package crm

import (
	"context"
	"testing"

	"github.com/pulsedesk/pulsedesk/internal/app/domain/crm"
	"github.com/pulsedesk/pulsedesk/internal/app/storage/memory"
)

func TestClientLifecycle(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	c, err := svc.CreateClient(ctx, "u1", "  Acme Corp ", "billing@acme.test", "Acme", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Name != "Acme Corp" {
		t.Fatalf("name = %q", c.Name)
	}

	newName := "Acme Inc"
	c, err = svc.UpdateClient(ctx, c.ID, &newName, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if c.Name != "Acme Inc" {
		t.Fatalf("name = %q", c.Name)
	}

	if err := svc.DeleteClient(ctx, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetClient(ctx, c.ID); err == nil {
		t.Fatal("expected missing client after delete")
	}
}

func TestCreateDealValidatesOwnership(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	c, err := svc.CreateClient(ctx, "u1", "Acme", "", "", "", "")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.CreateDeal(ctx, "u2", c.ID, "poached deal", 100); err == nil {
		t.Fatal("expected ownership error")
	}
	d, err := svc.CreateDeal(ctx, "u1", c.ID, "expansion", 5000)
	if err != nil {
		t.Fatalf("create deal: %v", err)
	}
	if d.Stage != crm.StageLead {
		t.Fatalf("stage = %s", d.Stage)
	}
}

func TestMoveDeal(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	c, _ := svc.CreateClient(ctx, "u1", "Acme", "", "", "", "")
	d, err := svc.CreateDeal(ctx, "u1", c.ID, "expansion", 5000)
	if err != nil {
		t.Fatal(err)
	}

	d, err = svc.MoveDeal(ctx, d.ID, "qualified")
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if d.Stage != crm.StageQualified || d.ClosedAt != nil {
		t.Fatalf("unexpected deal: %+v", d)
	}

	d, err = svc.MoveDeal(ctx, d.ID, "won")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if d.ClosedAt == nil {
		t.Fatal("closing must set closed_at")
	}

	if _, err := svc.MoveDeal(ctx, d.ID, "lead"); err == nil {
		t.Fatal("closed deals must not move")
	}
	if _, err := svc.MoveDeal(ctx, d.ID, "sideways"); err == nil {
		t.Fatal("expected error for unknown stage")
	}
}

func TestPipelineSummary(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	c, _ := svc.CreateClient(ctx, "u1", "Acme", "", "", "", "")

	open, _ := svc.CreateDeal(ctx, "u1", c.ID, "open one", 1000)
	_ = open
	won, _ := svc.CreateDeal(ctx, "u1", c.ID, "won one", 2000)
	lost, _ := svc.CreateDeal(ctx, "u1", c.ID, "lost one", 3000)

	if _, err := svc.MoveDeal(ctx, won.ID, "won"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.MoveDeal(ctx, lost.ID, "lost"); err != nil {
		t.Fatal(err)
	}

	sum, err := svc.PipelineSummary(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if sum.OpenDeals != 1 || sum.PipelineValue != 1000 {
		t.Fatalf("unexpected open pipeline: %+v", sum)
	}
	if sum.WonDeals != 1 || sum.WonValue != 2000 {
		t.Fatalf("unexpected won pipeline: %+v", sum)
	}
}
